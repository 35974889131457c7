package fixtures

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/internal/repository"
)

// Factory creates test entities in the database
type Factory struct {
	users     *repository.UserRepository
	profiles  *repository.ProfileRepository
	memorials *repository.MemorialRepository
	meetups   *repository.MeetupRepository
	store     *repository.StoreRepository
}

// New creates a new fixture factory
func New(db database.Database) *Factory {
	return &Factory{
		users:     repository.NewUserRepository(db),
		profiles:  repository.NewProfileRepository(db),
		memorials: repository.NewMemorialRepository(db),
		meetups:   repository.NewMeetupRepository(db),
		store:     repository.NewStoreRepository(db),
	}
}

func randomID() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return c
}

// ============================================================================
// Users
// ============================================================================

// UserOpts customizes user creation
type UserOpts struct {
	Email        string
	Password     string
	Role         model.UserRole
	Verification model.VerificationStatus
}

// CreateUser creates a user and its profile. The default profile is
// email_verified so gated operations are reachable.
func (f *Factory) CreateUser(t *testing.T, opts ...func(*UserOpts)) *model.User {
	t.Helper()

	id := randomID()
	o := &UserOpts{
		Email:        fmt.Sprintf("user_%s@haven.test", id),
		Password:     "testpass123",
		Role:         model.UserRoleUser,
		Verification: model.VerificationEmailVerified,
	}
	for _, fn := range opts {
		fn(o)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(o.Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("fixtures: failed to hash password: %v", err)
	}
	h := string(hash)

	user := &model.User{
		Email:         o.Email,
		Hash:          &h,
		Role:          o.Role,
		EmailVerified: o.Verification != model.VerificationUnverified,
	}
	if err := f.users.Create(ctx(t), user); err != nil {
		t.Fatalf("fixtures: failed to create user: %v", err)
	}

	profile := &model.Profile{
		UserID:             user.ID,
		Username:           "user_" + id,
		DisplayName:        "User " + id,
		VerificationStatus: o.Verification,
		IsPublic:           true,
	}
	if err := f.profiles.Create(ctx(t), profile); err != nil {
		t.Fatalf("fixtures: failed to create profile: %v", err)
	}

	user.Hash = nil
	return user
}

// CreateAdmin creates an admin user
func (f *Factory) CreateAdmin(t *testing.T) *model.User {
	return f.CreateUser(t, func(o *UserOpts) {
		o.Role = model.UserRoleAdmin
	})
}

// ============================================================================
// Memorials
// ============================================================================

// CreateMemorial creates a public memorial owned by owner
func (f *Factory) CreateMemorial(t *testing.T, owner *model.User, opts ...func(*model.Memorial)) *model.Memorial {
	t.Helper()

	m := &model.Memorial{
		OwnerID:    owner.ID,
		Name:       "Memorial " + randomID(),
		Visibility: model.MemorialPublic,
	}
	m.Slug = "memorial-" + randomID()
	for _, fn := range opts {
		fn(m)
	}

	if err := f.memorials.Create(ctx(t), m); err != nil {
		t.Fatalf("fixtures: failed to create memorial: %v", err)
	}
	return m
}

// ============================================================================
// Meetups
// ============================================================================

// MeetupOpts customizes meetup creation
type MeetupOpts struct {
	Title        string
	City         string
	StartsAt     time.Time
	MaxAttendees int
}

// CreateMeetup creates a scheduled in-person meetup a week out
func (f *Factory) CreateMeetup(t *testing.T, organizer *model.User, opts ...func(*MeetupOpts)) *model.Meetup {
	t.Helper()

	o := &MeetupOpts{
		Title:    "Meetup " + randomID(),
		City:     "Portland",
		StartsAt: time.Now().Add(7 * 24 * time.Hour).UTC().Truncate(time.Second),
	}
	for _, fn := range opts {
		fn(o)
	}

	location := "Community Hall"
	m := &model.Meetup{
		OrganizerID:  organizer.ID,
		Title:        o.Title,
		Format:       model.MeetupInPerson,
		Location:     &location,
		City:         &o.City,
		StartsAt:     o.StartsAt,
		EndsAt:       o.StartsAt.Add(2 * time.Hour),
		MaxAttendees: o.MaxAttendees,
		Status:       model.MeetupScheduled,
	}
	if err := f.meetups.Create(ctx(t), m); err != nil {
		t.Fatalf("fixtures: failed to create meetup: %v", err)
	}
	return m
}

// ============================================================================
// Store
// ============================================================================

// CreateProduct creates an active digital gift
func (f *Factory) CreateProduct(t *testing.T, priceCents int64) *model.Product {
	t.Helper()

	p := &model.Product{
		Name:       "Candle " + randomID(),
		Kind:       model.ProductDigitalGift,
		PriceCents: priceCents,
		Currency:   "usd",
		IsActive:   true,
	}
	if err := f.store.CreateProduct(ctx(t), p); err != nil {
		t.Fatalf("fixtures: failed to create product: %v", err)
	}
	return p
}

// CreatePendingOrder creates a pending_payment order for one product
func (f *Factory) CreatePendingOrder(t *testing.T, buyer *model.User, p *model.Product) *model.Order {
	t.Helper()

	o := &model.Order{
		UserID: buyer.ID,
		Items: []model.OrderItem{{
			ProductID:      p.ID,
			Name:           p.Name,
			Kind:           p.Kind,
			Quantity:       1,
			UnitPriceCents: p.PriceCents,
		}},
		TotalCents: p.PriceCents,
		Currency:   p.Currency,
		Status:     model.OrderPendingPayment,
	}
	if err := f.store.CreateOrder(ctx(t), o); err != nil {
		t.Fatalf("fixtures: failed to create order: %v", err)
	}
	return o
}
