package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/internal/payment"
)

// SponsorRepository defines the interface for sponsor storage
type SponsorRepository interface {
	Create(ctx context.Context, s *model.Sponsor) error
	GetByID(ctx context.Context, id string) (*model.Sponsor, error)
	List(ctx context.Context, status model.SponsorStatus, limit, offset int) ([]*model.Sponsor, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Sponsor, error)
	SetCheckoutSession(ctx context.Context, id, sessionID string) error
	Transition(ctx context.Context, id string, from, next model.SponsorStatus, startsAt, endsAt *time.Time) (*model.Sponsor, error)
	RecordPayment(ctx context.Context, id string, customerID *string, paidOn time.Time) error
	ListActive(ctx context.Context, now time.Time) ([]*model.Sponsor, error)
}

// TierCatalog resolves sponsor tiers
type TierCatalog interface {
	Tier(name model.SponsorTierName) (*model.SponsorTier, bool)
	SponsorTiers() []model.SponsorTier
}

// SponsorCounters buffers impressions and clicks between flushes
type SponsorCounters interface {
	RecordImpression(ctx context.Context, sponsorID string) error
	RecordClick(ctx context.Context, sponsorID string) error
}

// activeSponsorTTL bounds how stale the counted-sponsor set may be
const activeSponsorTTL = time.Minute

// SponsorService manages sponsorships, placements and their counters
type SponsorService struct {
	sponsorRepo SponsorRepository
	tiers       TierCatalog
	counters    SponsorCounters
	profiles    VerificationStore
	users       BillingAccounts
	checkout    Checkout
	now         func() time.Time

	activeMu     sync.Mutex
	activeIDs    map[string]bool
	activeLoaded time.Time
}

// SponsorServiceConfig holds configuration for the sponsor service
type SponsorServiceConfig struct {
	SponsorRepo SponsorRepository
	Tiers       TierCatalog
	Counters    SponsorCounters
	ProfileRepo VerificationStore
	Users       BillingAccounts
	Checkout    Checkout
}

// NewSponsorService creates a new sponsor service
func NewSponsorService(cfg SponsorServiceConfig) *SponsorService {
	return &SponsorService{
		sponsorRepo: cfg.SponsorRepo,
		tiers:       cfg.Tiers,
		counters:    cfg.Counters,
		profiles:    cfg.ProfileRepo,
		users:       cfg.Users,
		checkout:    cfg.Checkout,
		now:         time.Now,
	}
}

// Tiers returns the tier catalog, highest weight first
func (s *SponsorService) Tiers() []model.SponsorTier {
	return s.tiers.SponsorTiers()
}

// Apply records a pending sponsorship and opens a subscription checkout
// for the tier's monthly price
func (s *SponsorService) Apply(ctx context.Context, userID string, req model.CreateSponsorRequest) (*model.SponsorApplicationResponse, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}
	tier, ok := s.tiers.Tier(model.SponsorTierName(req.Tier))
	if !ok {
		return nil, ErrUnknownTier
	}
	if _, err := requireVerification(ctx, s.profiles, userID, model.VerificationEmailVerified); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	sp := &model.Sponsor{
		OwnerID:     userID,
		CompanyName: strings.TrimSpace(req.CompanyName),
		WebsiteURL:  req.WebsiteURL,
		LogoURL:     nonEmpty(req.LogoURL),
		Tier:        tier.Name,
	}
	if err := s.sponsorRepo.Create(ctx, sp); err != nil {
		return nil, err
	}

	items := []payment.LineItem{{
		Name:       tier.DisplayName + " sponsorship",
		UnitAmount: tier.MonthlyCents,
		Currency:   s.checkout.Currency,
		Quantity:   1,
		Recurring:  true,
	}}
	sess, err := s.checkout.open(ctx, payment.KindSponsor, payment.ModeSubscription, sp.ID, user, items)
	if err != nil {
		return nil, err
	}
	if err := s.sponsorRepo.SetCheckoutSession(ctx, sp.ID, sess.ID); err != nil {
		return nil, err
	}

	return &model.SponsorApplicationResponse{Sponsor: sp, CheckoutURL: sess.URL}, nil
}

// ListOwn returns the caller's sponsorships
func (s *SponsorService) ListOwn(ctx context.Context, userID string) ([]*model.Sponsor, error) {
	return s.sponsorRepo.ListByOwner(ctx, userID)
}

// List returns sponsors for the admin console, optionally filtered by status
func (s *SponsorService) List(ctx context.Context, actor Actor, status string, limit, offset int) ([]*model.Sponsor, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}
	st := model.SponsorStatus(status)
	if status != "" && !st.IsValid() {
		return nil, ErrInvalidStatus
	}
	return s.sponsorRepo.List(ctx, st, limit, offset)
}

// SetStatus moves a sponsor along its lifecycle. Activating opens a window
// from now, 30 days long unless an end date is already set.
func (s *SponsorService) SetStatus(ctx context.Context, actor Actor, id string, req model.SetSponsorStatusRequest) (*model.Sponsor, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}
	next := model.SponsorStatus(req.Status)
	if !next.IsValid() {
		return nil, ErrInvalidStatus
	}

	sp, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sp.Status.CanTransition(next) {
		return nil, ErrInvalidTransition
	}

	var startsAt, endsAt *time.Time
	if next == model.SponsorActive {
		now := s.now().UTC()
		startsAt = &now
		if sp.EndsAt == nil || !sp.EndsAt.After(now) {
			end := now.Add(model.SponsorActivationPeriod)
			endsAt = &end
		}
	}

	updated, err := s.sponsorRepo.Transition(ctx, sp.ID, sp.Status, next, startsAt, endsAt)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrInvalidTransition
	}
	s.forgetActive()

	slog.Info("sponsor status changed",
		slog.String("sponsor_id", sp.ID),
		slog.String("from", string(sp.Status)),
		slog.String("to", string(next)),
		slog.String("admin_id", actor.UserID))
	return updated, nil
}

// Placements returns active sponsors shown in slot, highest tier first
func (s *SponsorService) Placements(ctx context.Context, slot string) ([]model.Placement, error) {
	known := false
	for _, t := range s.tiers.SponsorTiers() {
		if t.HasPlacement(slot) {
			known = true
			break
		}
	}
	if !known {
		return nil, ErrUnknownPlacement
	}

	active, err := s.sponsorRepo.ListActive(ctx, s.now())
	if err != nil {
		return nil, err
	}

	type ranked struct {
		p      model.Placement
		weight int
	}
	var shown []ranked
	for _, sp := range active {
		tier, ok := s.tiers.Tier(sp.Tier)
		if !ok || !tier.HasPlacement(slot) {
			continue
		}
		shown = append(shown, ranked{
			p: model.Placement{
				SponsorID:   sp.ID,
				CompanyName: sp.CompanyName,
				WebsiteURL:  sp.WebsiteURL,
				LogoURL:     sp.LogoURL,
				Tier:        sp.Tier,
			},
			weight: tier.Weight,
		})
	}
	sort.SliceStable(shown, func(i, j int) bool { return shown[i].weight > shown[j].weight })

	out := make([]model.Placement, len(shown))
	for i, r := range shown {
		out[i] = r.p
	}
	return out, nil
}

// RecordImpression counts one view of an active sponsor's placement
func (s *SponsorService) RecordImpression(ctx context.Context, id string) error {
	rid, err := s.countable(ctx, id)
	if err != nil {
		return err
	}
	return s.counters.RecordImpression(ctx, rid)
}

// RecordClick counts one click-through on an active sponsor's placement
func (s *SponsorService) RecordClick(ctx context.Context, id string) error {
	rid, err := s.countable(ctx, id)
	if err != nil {
		return err
	}
	return s.counters.RecordClick(ctx, rid)
}

// countable resolves id to a sponsor currently shown in placements
func (s *SponsorService) countable(ctx context.Context, id string) (string, error) {
	rid, ok := recordID("sponsors", id)
	if !ok {
		return "", ErrSponsorNotFound
	}

	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	now := s.now()
	if s.activeIDs == nil || now.Sub(s.activeLoaded) >= activeSponsorTTL {
		active, err := s.sponsorRepo.ListActive(ctx, now)
		if err != nil {
			return "", err
		}
		s.activeIDs = make(map[string]bool, len(active))
		for _, sp := range active {
			s.activeIDs[sp.ID] = true
		}
		s.activeLoaded = now
	}
	if !s.activeIDs[rid] {
		return "", ErrSponsorNotFound
	}
	return rid, nil
}

func (s *SponsorService) forgetActive() {
	s.activeMu.Lock()
	s.activeIDs = nil
	s.activeMu.Unlock()
}

// CheckoutCompleted records the first subscription payment. Activation
// stays with an admin.
func (s *SponsorService) CheckoutCompleted(ctx context.Context, ev *payment.Event) error {
	sp, err := s.sponsorRepo.GetByID(ctx, ev.ReferenceID)
	if err != nil {
		return err
	}
	if sp == nil {
		slog.Warn("paid checkout for unknown sponsor", slog.String("sponsor_id", ev.ReferenceID))
		return nil
	}

	var customer *string
	if ev.CustomerID != "" {
		customer = &ev.CustomerID
	}
	if err := s.sponsorRepo.RecordPayment(ctx, sp.ID, customer, s.now()); err != nil {
		return err
	}
	if customer != nil {
		user, err := s.users.GetByID(ctx, sp.OwnerID)
		if err == nil && user != nil && user.PaymentCustomer == nil {
			if err := s.users.SetPaymentCustomer(ctx, sp.OwnerID, *customer); err != nil {
				slog.Warn("failed to store payment customer", slog.String("user_id", sp.OwnerID), slog.String("error", err.Error()))
			}
		}
	}
	return nil
}

// CheckoutExpired expires a sponsorship whose checkout was abandoned
func (s *SponsorService) CheckoutExpired(ctx context.Context, ev *payment.Event) error {
	_, err := s.sponsorRepo.Transition(ctx, ev.ReferenceID, model.SponsorPending, model.SponsorExpired, nil, nil)
	return err
}

func (s *SponsorService) load(ctx context.Context, id string) (*model.Sponsor, error) {
	rid, ok := recordID("sponsors", id)
	if !ok {
		return nil, ErrSponsorNotFound
	}
	sp, err := s.sponsorRepo.GetByID(ctx, rid)
	if err != nil {
		return nil, err
	}
	if sp == nil {
		return nil, ErrSponsorNotFound
	}
	return sp, nil
}
