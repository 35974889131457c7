package repository

import (
	"context"

	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/internal/service"
)

// ApplicationRepository handles organizer and background-check applications
type ApplicationRepository struct {
	db database.Database
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db database.Database) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

var (
	parseOrganizerJSON  = parseInto[model.OrganizerApplication]()
	parseBackgroundJSON = parseInto[model.BackgroundCheckApplication]()
)

func parseOrganizerApplication(data record) (*model.OrganizerApplication, error) {
	a, err := parseOrganizerJSON(data)
	if err != nil {
		return nil, err
	}
	a.CheckoutSessionID = getStringPtr(data, "checkout_session_id")
	return a, nil
}

func parseBackgroundCheck(data record) (*model.BackgroundCheckApplication, error) {
	a, err := parseBackgroundJSON(data)
	if err != nil {
		return nil, err
	}
	if key, ok := data["document_key"].(string); ok {
		a.DocumentKey = key
	}
	return a, nil
}

func decisionVars(id string, from model.ApplicationStatus, d service.ReviewDecision) map[string]interface{} {
	return map[string]interface{}{
		"id":          id,
		"from":        from,
		"status":      d.Status,
		"reviewer_id": d.ReviewerID,
		"note":        ptrToNone(d.Note),
		"decided_at":  timeVar(d.DecidedAt),
	}
}

const decideSet = `
	status = $status,
	reviewer_id = $reviewer_id,
	review_note = $note,
	decided_at = <datetime>$decided_at,
	updated_on = time::now()
`

// CreateOrganizer stores an organizer application with the given status
func (r *ApplicationRepository) CreateOrganizer(ctx context.Context, a *model.OrganizerApplication) error {
	query := `
		CREATE organizer_applications CONTENT {
			user_id: $user_id,
			motivation: $motivation,
			experience: $experience,
			city: $city,
			status: $status,
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	vars := map[string]interface{}{
		"user_id":    a.UserID,
		"motivation": a.Motivation,
		"experience": ptrToNone(a.Experience),
		"city":       ptrToNone(a.City),
		"status":     a.Status,
	}
	created, err := createOne(ctx, r.db, query, vars, parseOrganizerApplication)
	if err != nil {
		return err
	}
	*a = *created
	return nil
}

// GetOrganizer retrieves an organizer application
func (r *ApplicationRepository) GetOrganizer(ctx context.Context, id string) (*model.OrganizerApplication, error) {
	return selectOne(ctx, r.db, `SELECT * FROM type::record($id) WHERE meta::tb(id) = 'organizer_applications'`,
		map[string]interface{}{"id": id}, parseOrganizerApplication)
}

// GetOpenOrganizer returns the user's organizer application that is still
// awaiting payment or review
func (r *ApplicationRepository) GetOpenOrganizer(ctx context.Context, userID string) (*model.OrganizerApplication, error) {
	query := `
		SELECT * FROM organizer_applications
		WHERE user_id = $user_id AND status IN $open
		LIMIT 1
	`
	return selectOne(ctx, r.db, query, map[string]interface{}{
		"user_id": userID,
		"open":    []model.ApplicationStatus{model.ApplicationPendingPayment, model.ApplicationPaymentComplete},
	}, parseOrganizerApplication)
}

// SetOrganizerCheckoutSession records the fee checkout session
func (r *ApplicationRepository) SetOrganizerCheckoutSession(ctx context.Context, id, sessionID string) error {
	query := `UPDATE type::record($id) SET checkout_session_id = $session_id, updated_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{"id": id, "session_id": sessionID})
}

// TransitionOrganizer moves an application between statuses without a
// decision. It returns false when the application was not in from.
func (r *ApplicationRepository) TransitionOrganizer(ctx context.Context, id string, from, next model.ApplicationStatus) (bool, error) {
	query := `UPDATE type::record($id) SET status = $next, updated_on = time::now() WHERE status = $from RETURN AFTER`
	results, err := r.db.Query(ctx, query, map[string]interface{}{"id": id, "from": from, "next": next})
	if err != nil {
		return false, err
	}
	return len(statementRows(results, 0)) > 0, nil
}

// DecideOrganizer records a decision if the application is still in from
func (r *ApplicationRepository) DecideOrganizer(ctx context.Context, id string, from model.ApplicationStatus, d service.ReviewDecision) (*model.OrganizerApplication, error) {
	query := `UPDATE type::record($id) SET ` + decideSet + ` WHERE status = $from RETURN AFTER`
	rows, err := selectMany(ctx, r.db, query, decisionVars(id, from, d), parseOrganizerApplication)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// CreateBackgroundCheck stores a pending background-check application
func (r *ApplicationRepository) CreateBackgroundCheck(ctx context.Context, a *model.BackgroundCheckApplication) error {
	query := `
		CREATE background_check_applications CONTENT {
			user_id: $user_id,
			legal_name: $legal_name,
			date_of_birth: $date_of_birth,
			document_key: $document_key,
			status: $status,
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	vars := map[string]interface{}{
		"user_id":       a.UserID,
		"legal_name":    a.LegalName,
		"date_of_birth": a.DateOfBirth,
		"document_key":  a.DocumentKey,
		"status":        model.ApplicationPending,
	}
	created, err := createOne(ctx, r.db, query, vars, parseBackgroundCheck)
	if err != nil {
		return err
	}
	*a = *created
	return nil
}

// GetBackgroundCheck retrieves a background-check application
func (r *ApplicationRepository) GetBackgroundCheck(ctx context.Context, id string) (*model.BackgroundCheckApplication, error) {
	return selectOne(ctx, r.db, `SELECT * FROM type::record($id) WHERE meta::tb(id) = 'background_check_applications'`,
		map[string]interface{}{"id": id}, parseBackgroundCheck)
}

// GetPendingBackgroundCheck returns the user's pending background check
func (r *ApplicationRepository) GetPendingBackgroundCheck(ctx context.Context, userID string) (*model.BackgroundCheckApplication, error) {
	query := `SELECT * FROM background_check_applications WHERE user_id = $user_id AND status = 'pending' LIMIT 1`
	return selectOne(ctx, r.db, query, map[string]interface{}{"user_id": userID}, parseBackgroundCheck)
}

// DecideBackgroundCheck records a decision if the application is still pending
func (r *ApplicationRepository) DecideBackgroundCheck(ctx context.Context, id string, d service.ReviewDecision) (*model.BackgroundCheckApplication, error) {
	query := `UPDATE type::record($id) SET ` + decideSet + ` WHERE status = $from RETURN AFTER`
	rows, err := selectMany(ctx, r.db, query, decisionVars(id, model.ApplicationPending, d), parseBackgroundCheck)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// ListByUser returns every application the user has filed
func (r *ApplicationRepository) ListByUser(ctx context.Context, userID string) (*model.ApplicationList, error) {
	vars := map[string]interface{}{"user_id": userID}
	organizer, err := selectMany(ctx, r.db,
		`SELECT * FROM organizer_applications WHERE user_id = $user_id ORDER BY created_on DESC`, vars, parseOrganizerApplication)
	if err != nil {
		return nil, err
	}
	checks, err := selectMany(ctx, r.db,
		`SELECT * FROM background_check_applications WHERE user_id = $user_id ORDER BY created_on DESC`, vars, parseBackgroundCheck)
	if err != nil {
		return nil, err
	}
	return &model.ApplicationList{Organizer: organizer, BackgroundCheck: checks}, nil
}

// ListForReview returns applications of the given type and status, oldest
// first. An empty type lists both kinds.
func (r *ApplicationRepository) ListForReview(ctx context.Context, typ model.ApplicationType, status model.ApplicationStatus, limit int) (*model.ApplicationList, error) {
	limit, _ = page(limit, 0, 50, 200)
	vars := map[string]interface{}{"limit": limit}
	where := ""
	if status != "" {
		where = "WHERE status = $status"
		vars["status"] = status
	}

	list := &model.ApplicationList{
		Organizer:       []*model.OrganizerApplication{},
		BackgroundCheck: []*model.BackgroundCheckApplication{},
	}
	if typ == "" || typ == model.ApplicationOrganizer {
		rows, err := selectMany(ctx, r.db,
			`SELECT * FROM organizer_applications `+where+` ORDER BY created_on ASC LIMIT $limit`, vars, parseOrganizerApplication)
		if err != nil {
			return nil, err
		}
		list.Organizer = rows
	}
	if typ == "" || typ == model.ApplicationBackgroundCheck {
		rows, err := selectMany(ctx, r.db,
			`SELECT * FROM background_check_applications `+where+` ORDER BY created_on ASC LIMIT $limit`, vars, parseBackgroundCheck)
		if err != nil {
			return nil, err
		}
		list.BackgroundCheck = rows
	}
	return list, nil
}
