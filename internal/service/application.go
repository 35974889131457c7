package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/forgo/haven/api/internal/mailer"
	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/internal/payment"
)

// ReviewDecision is the reviewer outcome written onto an application
type ReviewDecision struct {
	Status     model.ApplicationStatus
	ReviewerID string
	Note       *string
	DecidedAt  time.Time
}

// ApplicationRepository defines the interface for application storage
type ApplicationRepository interface {
	CreateOrganizer(ctx context.Context, a *model.OrganizerApplication) error
	GetOrganizer(ctx context.Context, id string) (*model.OrganizerApplication, error)
	GetOpenOrganizer(ctx context.Context, userID string) (*model.OrganizerApplication, error)
	SetOrganizerCheckoutSession(ctx context.Context, id, sessionID string) error
	TransitionOrganizer(ctx context.Context, id string, from, next model.ApplicationStatus) (bool, error)
	DecideOrganizer(ctx context.Context, id string, from model.ApplicationStatus, d ReviewDecision) (*model.OrganizerApplication, error)

	CreateBackgroundCheck(ctx context.Context, a *model.BackgroundCheckApplication) error
	GetBackgroundCheck(ctx context.Context, id string) (*model.BackgroundCheckApplication, error)
	GetPendingBackgroundCheck(ctx context.Context, userID string) (*model.BackgroundCheckApplication, error)
	DecideBackgroundCheck(ctx context.Context, id string, d ReviewDecision) (*model.BackgroundCheckApplication, error)

	ListByUser(ctx context.Context, userID string) (*model.ApplicationList, error)
	ListForReview(ctx context.Context, typ model.ApplicationType, status model.ApplicationStatus, limit int) (*model.ApplicationList, error)
}

// ApplicationService runs the organizer and background-check workflows
// that raise a user's verification status
type ApplicationService struct {
	appRepo      ApplicationRepository
	profiles     VerificationStore
	users        BillingAccounts
	files        FileStore
	mail         mailer.Sender
	checkout     Checkout
	organizerFee int64
	now          func() time.Time
}

// ApplicationServiceConfig holds configuration for the application service
type ApplicationServiceConfig struct {
	AppRepo      ApplicationRepository
	ProfileRepo  VerificationStore
	Users        BillingAccounts
	Files        FileStore
	Mailer       mailer.Sender
	Checkout     Checkout
	OrganizerFee int64 // cents; zero skips checkout
}

// NewApplicationService creates a new application service
func NewApplicationService(cfg ApplicationServiceConfig) *ApplicationService {
	return &ApplicationService{
		appRepo:      cfg.AppRepo,
		profiles:     cfg.ProfileRepo,
		users:        cfg.Users,
		files:        cfg.Files,
		mail:         cfg.Mailer,
		checkout:     cfg.Checkout,
		organizerFee: cfg.OrganizerFee,
		now:          time.Now,
	}
}

// ListOwn returns the caller's applications of both kinds
func (s *ApplicationService) ListOwn(ctx context.Context, userID string) (*model.ApplicationList, error) {
	return s.appRepo.ListByUser(ctx, userID)
}

// ListForReview returns the admin review queue
func (s *ApplicationService) ListForReview(ctx context.Context, actor Actor, typ, status string, limit int) (*model.ApplicationList, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}
	t := model.ApplicationType(typ)
	if typ != "" && t != model.ApplicationOrganizer && t != model.ApplicationBackgroundCheck {
		return nil, invalid([]model.FieldError{{Field: "type", Message: "type must be organizer or background_check"}})
	}
	st := model.ApplicationStatus(status)
	switch st {
	case "", model.ApplicationPendingPayment, model.ApplicationPaymentComplete, model.ApplicationPending,
		model.ApplicationApproved, model.ApplicationRejected:
	default:
		return nil, ErrInvalidStatus
	}
	return s.appRepo.ListForReview(ctx, t, st, limit)
}

// ===== Organizer applications =====

// ApplyOrganizer opens an organizer application and a checkout for the fee.
// Requires id_verified and no other open application.
func (s *ApplicationService) ApplyOrganizer(ctx context.Context, userID string, req model.OrganizerApplicationRequest) (*model.OrganizerApplicationResponse, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}
	if _, err := requireVerification(ctx, s.profiles, userID, model.VerificationIDVerified); err != nil {
		return nil, err
	}

	open, err := s.appRepo.GetOpenOrganizer(ctx, userID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, ErrApplicationExists
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	app := &model.OrganizerApplication{
		UserID:     userID,
		Motivation: strings.TrimSpace(req.Motivation),
		Experience: nonEmpty(req.Experience),
		City:       nonEmpty(req.City),
		Status:     model.ApplicationPendingPayment,
	}
	if s.organizerFee == 0 {
		app.Status = model.ApplicationPaymentComplete
	}
	if err := s.appRepo.CreateOrganizer(ctx, app); err != nil {
		return nil, err
	}
	if s.organizerFee == 0 {
		return &model.OrganizerApplicationResponse{Application: app}, nil
	}

	items := []payment.LineItem{{
		Name:       "Meetup organizer application",
		UnitAmount: s.organizerFee,
		Currency:   s.checkout.Currency,
		Quantity:   1,
	}}
	sess, err := s.checkout.open(ctx, payment.KindOrganizerApplication, payment.ModePayment, app.ID, user, items)
	if err != nil {
		// free the slot so the user can try again
		if _, rerr := s.appRepo.TransitionOrganizer(ctx, app.ID, model.ApplicationPendingPayment, model.ApplicationRejected); rerr != nil {
			slog.Error("failed to close unpaid application", slog.String("application_id", app.ID), slog.String("error", rerr.Error()))
		}
		return nil, err
	}
	if err := s.appRepo.SetOrganizerCheckoutSession(ctx, app.ID, sess.ID); err != nil {
		return nil, err
	}

	return &model.OrganizerApplicationResponse{Application: app, CheckoutURL: sess.URL}, nil
}

// DecideOrganizer approves or rejects a paid organizer application.
// Approval raises the applicant to meetup_organizer. Approving an already
// approved application retries the raise.
func (s *ApplicationService) DecideOrganizer(ctx context.Context, actor Actor, id string, approve bool, req model.DecisionRequest) (*model.OrganizerApplication, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}
	rid, ok := recordID("organizer_applications", id)
	if !ok {
		return nil, ErrApplicationNotFound
	}
	app, err := s.appRepo.GetOrganizer(ctx, rid)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, ErrApplicationNotFound
	}

	decided, err := s.appRepo.DecideOrganizer(ctx, rid, model.ApplicationPaymentComplete, s.decision(actor, approve, req))
	if err != nil {
		return nil, err
	}
	resumed := false
	if decided == nil {
		if !approve || app.Status != model.ApplicationApproved {
			return nil, ErrApplicationNotPending
		}
		decided, resumed = app, true
	}

	if err := s.finishDecision(ctx, decided.UserID, "meetup organizer", approve, resumed, model.VerificationMeetupOrganizer, req.Note); err != nil {
		return nil, err
	}
	return decided, nil
}

// CheckoutCompleted marks the organizer fee paid
func (s *ApplicationService) CheckoutCompleted(ctx context.Context, ev *payment.Event) error {
	ok, err := s.appRepo.TransitionOrganizer(ctx, ev.ReferenceID, model.ApplicationPendingPayment, model.ApplicationPaymentComplete)
	if err != nil {
		return err
	}
	if !ok {
		slog.Warn("paid checkout for application not awaiting payment", slog.String("application_id", ev.ReferenceID))
		return nil
	}

	if ev.CustomerID != "" {
		app, err := s.appRepo.GetOrganizer(ctx, ev.ReferenceID)
		if err == nil && app != nil {
			user, err := s.users.GetByID(ctx, app.UserID)
			if err == nil && user != nil && user.PaymentCustomer == nil {
				if err := s.users.SetPaymentCustomer(ctx, app.UserID, ev.CustomerID); err != nil {
					slog.Warn("failed to store payment customer", slog.String("user_id", app.UserID), slog.String("error", err.Error()))
				}
			}
		}
	}
	return nil
}

// CheckoutExpired closes an application whose fee was never paid so the
// user may apply again
func (s *ApplicationService) CheckoutExpired(ctx context.Context, ev *payment.Event) error {
	_, err := s.appRepo.TransitionOrganizer(ctx, ev.ReferenceID, model.ApplicationPendingPayment, model.ApplicationRejected)
	return err
}

// ===== Background checks =====

// DocumentUploadURL returns a presigned upload for an identity document
func (s *ApplicationService) DocumentUploadURL(ctx context.Context, userID string, req model.UploadRequest) (*model.UploadTarget, error) {
	return presign(ctx, s.files, documentPrefix(userID), req.ContentType, model.AllowedDocumentTypes)
}

// SubmitBackgroundCheck files a background check. Requires email_verified
// and no other pending check.
func (s *ApplicationService) SubmitBackgroundCheck(ctx context.Context, userID string, req model.BackgroundCheckRequest) (*model.BackgroundCheckApplication, error) {
	fields := req.Validate(s.now())
	if req.DocumentKey != "" && !strings.HasPrefix(req.DocumentKey, documentPrefix(userID)+"/") {
		fields = append(fields, model.FieldError{Field: "document_key", Message: "document_key must come from the upload url"})
	}
	if err := invalid(fields); err != nil {
		return nil, err
	}
	if _, err := requireVerification(ctx, s.profiles, userID, model.VerificationEmailVerified); err != nil {
		return nil, err
	}

	pending, err := s.appRepo.GetPendingBackgroundCheck(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, ErrApplicationExists
	}

	app := &model.BackgroundCheckApplication{
		UserID:      userID,
		LegalName:   strings.TrimSpace(req.LegalName),
		DateOfBirth: req.DateOfBirth,
		DocumentKey: req.DocumentKey,
	}
	if err := s.appRepo.CreateBackgroundCheck(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// DecideBackgroundCheck approves or rejects a pending background check.
// Approval raises the applicant to at least id_verified.
func (s *ApplicationService) DecideBackgroundCheck(ctx context.Context, actor Actor, id string, approve bool, req model.DecisionRequest) (*model.BackgroundCheckApplication, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}
	rid, ok := recordID("background_check_applications", id)
	if !ok {
		return nil, ErrApplicationNotFound
	}
	app, err := s.appRepo.GetBackgroundCheck(ctx, rid)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, ErrApplicationNotFound
	}

	decided, err := s.appRepo.DecideBackgroundCheck(ctx, rid, s.decision(actor, approve, req))
	if err != nil {
		return nil, err
	}
	resumed := false
	if decided == nil {
		if !approve || app.Status != model.ApplicationApproved {
			return nil, ErrApplicationNotPending
		}
		decided, resumed = app, true
	}

	if err := s.finishDecision(ctx, decided.UserID, "background check", approve, resumed, model.VerificationIDVerified, req.Note); err != nil {
		return nil, err
	}
	return decided, nil
}

// DocumentLink returns a short-lived link to a background-check document. Admin only.
func (s *ApplicationService) DocumentLink(ctx context.Context, actor Actor, id string) (*model.DownloadLink, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}
	rid, ok := recordID("background_check_applications", id)
	if !ok {
		return nil, ErrApplicationNotFound
	}
	app, err := s.appRepo.GetBackgroundCheck(ctx, rid)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, ErrApplicationNotFound
	}
	return s.files.PresignDownload(ctx, app.DocumentKey)
}

func (s *ApplicationService) decision(actor Actor, approve bool, req model.DecisionRequest) ReviewDecision {
	status := model.ApplicationRejected
	if approve {
		status = model.ApplicationApproved
	}
	return ReviewDecision{
		Status:     status,
		ReviewerID: actor.UserID,
		Note:       nonEmpty(req.Note),
		DecidedAt:  s.now().UTC(),
	}
}

// finishDecision raises the applicant on approval and emails the outcome.
// A resumed approval was saved by an earlier call whose raise failed; it is
// a no-op once the profile already holds the level.
func (s *ApplicationService) finishDecision(ctx context.Context, userID, kind string, approve, resumed bool, level model.VerificationStatus, note *string) error {
	if resumed {
		profile, err := s.profiles.GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if profile != nil && profile.VerificationStatus.Raise(level) == profile.VerificationStatus {
			return nil
		}
	}
	if approve {
		if _, err := raiseVerification(ctx, s.profiles, userID, level); err != nil {
			return err
		}
	}
	s.notify(ctx, userID, kind, approve, note)
	return nil
}

// notify emails the decision; failures are logged only
func (s *ApplicationService) notify(ctx context.Context, userID, kind string, approved bool, note *string) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil || user == nil {
		return
	}
	msg := mailer.ApplicationDecision(user.Email, kind, approved, stringValue(note))
	if err := s.mail.Send(ctx, msg); err != nil {
		slog.Warn("failed to send decision email", slog.String("user_id", userID), slog.String("error", err.Error()))
	}
}

func documentPrefix(userID string) string {
	return "background-checks/" + keyPart(userID)
}
