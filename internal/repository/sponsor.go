package repository

import (
	"context"
	"time"

	"github.com/forgo/haven/api/internal/cache"
	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/model"
)

// SponsorRepository handles sponsor records and their counters
type SponsorRepository struct {
	db database.Database
}

// NewSponsorRepository creates a new sponsor repository
func NewSponsorRepository(db database.Database) *SponsorRepository {
	return &SponsorRepository{db: db}
}

var parseSponsorJSON = parseInto[model.Sponsor]()

func parseSponsor(data record) (*model.Sponsor, error) {
	s, err := parseSponsorJSON(data)
	if err != nil {
		return nil, err
	}
	s.CustomerID = getStringPtr(data, "customer_id")
	s.CheckoutSessionID = getStringPtr(data, "checkout_session_id")
	return s, nil
}

// Create stores a pending sponsor application
func (r *SponsorRepository) Create(ctx context.Context, s *model.Sponsor) error {
	query := `
		CREATE sponsors CONTENT {
			owner_id: $owner_id,
			company_name: $company_name,
			website_url: $website_url,
			logo_url: $logo_url,
			tier: $tier,
			status: $status,
			impressions: 0,
			clicks: 0,
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	vars := map[string]interface{}{
		"owner_id":     s.OwnerID,
		"company_name": s.CompanyName,
		"website_url":  s.WebsiteURL,
		"logo_url":     ptrToNone(s.LogoURL),
		"tier":         s.Tier,
		"status":       model.SponsorPending,
	}
	created, err := createOne(ctx, r.db, query, vars, parseSponsor)
	if err != nil {
		return err
	}
	*s = *created
	return nil
}

// GetByID retrieves a sponsor
func (r *SponsorRepository) GetByID(ctx context.Context, id string) (*model.Sponsor, error) {
	return selectOne(ctx, r.db, `SELECT * FROM type::record($id) WHERE meta::tb(id) = 'sponsors'`,
		map[string]interface{}{"id": id}, parseSponsor)
}

// List returns sponsors, optionally filtered by status, newest first
func (r *SponsorRepository) List(ctx context.Context, status model.SponsorStatus, limit, offset int) ([]*model.Sponsor, error) {
	limit, offset = page(limit, offset, 50, 200)
	vars := map[string]interface{}{"limit": limit, "offset": offset}
	where := ""
	if status != "" {
		where = "WHERE status = $status"
		vars["status"] = status
	}
	query := `SELECT * FROM sponsors ` + where + ` ORDER BY created_on DESC LIMIT $limit START $offset`
	return selectMany(ctx, r.db, query, vars, parseSponsor)
}

// ListByOwner returns the sponsors a user applied for
func (r *SponsorRepository) ListByOwner(ctx context.Context, ownerID string) ([]*model.Sponsor, error) {
	return selectMany(ctx, r.db, `SELECT * FROM sponsors WHERE owner_id = $owner_id ORDER BY created_on DESC`,
		map[string]interface{}{"owner_id": ownerID}, parseSponsor)
}

// SetCheckoutSession records the checkout session opened for a sponsor
func (r *SponsorRepository) SetCheckoutSession(ctx context.Context, id, sessionID string) error {
	query := `UPDATE type::record($id) SET checkout_session_id = $session_id, updated_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{"id": id, "session_id": sessionID})
}

// Transition moves a sponsor from one status to another, setting the run
// window when given. It returns nil when the sponsor was no longer in from.
func (r *SponsorRepository) Transition(ctx context.Context, id string, from, next model.SponsorStatus, startsAt, endsAt *time.Time) (*model.Sponsor, error) {
	set := "status = $next, updated_on = time::now()"
	vars := map[string]interface{}{"id": id, "from": from, "next": next}
	if startsAt != nil {
		set += ", starts_at = <datetime>$starts_at"
		vars["starts_at"] = timeVar(*startsAt)
	}
	if endsAt != nil {
		set += ", ends_at = <datetime>$ends_at"
		vars["ends_at"] = timeVar(*endsAt)
	}
	query := `UPDATE type::record($id) SET ` + set + ` WHERE status = $from RETURN AFTER`
	rows, err := selectMany(ctx, r.db, query, vars, parseSponsor)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// RecordPayment stores the processor customer and payment time
func (r *SponsorRepository) RecordPayment(ctx context.Context, id string, customerID *string, paidOn time.Time) error {
	query := `
		UPDATE type::record($id) SET
			customer_id = $customer_id,
			paid_on = <datetime>$paid_on,
			updated_on = time::now()
	`
	return r.db.Execute(ctx, query, map[string]interface{}{
		"id":          id,
		"customer_id": ptrToNone(customerID),
		"paid_on":     timeVar(paidOn),
	})
}

// ListActive returns active sponsors whose window has not ended
func (r *SponsorRepository) ListActive(ctx context.Context, now time.Time) ([]*model.Sponsor, error) {
	query := `
		SELECT * FROM sponsors
		WHERE status = 'active' AND (!ends_at OR ends_at > <datetime>$now)
	`
	return selectMany(ctx, r.db, query, map[string]interface{}{"now": timeVar(now)}, parseSponsor)
}

// ApplyCounts adds drained impression and click counters to one sponsor.
// An id with no sponsor record matches nothing and is not an error.
func (r *SponsorRepository) ApplyCounts(ctx context.Context, id string, c cache.SponsorCounts) error {
	query := `UPDATE sponsors SET impressions += $impressions, clicks += $clicks WHERE id = type::record($id)`
	return r.db.Execute(ctx, query, map[string]interface{}{"id": id, "impressions": c.Impressions, "clicks": c.Clicks})
}

// ExpireEnded marks active or paused sponsors past ends_at as expired
func (r *SponsorRepository) ExpireEnded(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE sponsors SET status = 'expired', updated_on = time::now()
		WHERE status IN ['active', 'paused'] AND ends_at AND ends_at <= <datetime>$now
		RETURN AFTER
	`
	results, err := r.db.Query(ctx, query, map[string]interface{}{"now": timeVar(now)})
	if err != nil {
		return 0, err
	}
	return len(statementRows(results, 0)), nil
}
