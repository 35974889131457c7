package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"github.com/forgo/haven/api/internal/mailer"
	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/internal/payment"
	"github.com/forgo/haven/api/pkg/jwt"
)

// ============================================================================
// Shared Test Helpers
// ============================================================================

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func strPtr(s string) *string { return &s }

func createTestJWTService(t *testing.T) *jwt.Service {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	return jwt.NewTestService(privateKey, "test-issuer", time.Hour)
}

func userActor(id string) Actor  { return Actor{UserID: id, Role: model.UserRoleUser} }
func adminActor(id string) Actor { return Actor{UserID: id, Role: model.UserRoleAdmin} }

// ============================================================================
// Users and Profiles
// ============================================================================

type mockUserRepo struct {
	mu         sync.Mutex
	users      map[string]*model.User
	emailIndex map[string]*model.User
	createErr  error
	customers  map[string]string
}

func newMockUserRepo(users ...*model.User) *mockUserRepo {
	m := &mockUserRepo{
		users:      make(map[string]*model.User),
		emailIndex: make(map[string]*model.User),
		customers:  make(map[string]string),
	}
	for _, u := range users {
		m.users[u.ID] = u
		m.emailIndex[u.Email] = u
	}
	return m
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = "user:" + user.Email
	user.CreatedOn = testNow
	user.UpdatedOn = testNow
	m.users[user.ID] = user
	m.emailIndex[user.Email] = user
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id], nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emailIndex[email], nil
}

func (m *mockUserRepo) SetEmailVerified(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.EmailVerified = true
	}
	return nil
}

func (m *mockUserRepo) TouchLogin(ctx context.Context, userID string, at time.Time) error {
	return nil
}

func (m *mockUserRepo) SetPaymentCustomer(ctx context.Context, userID, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[userID] = customerID
	if u, ok := m.users[userID]; ok {
		u.PaymentCustomer = &customerID
	}
	return nil
}

type mockProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile // by user id
	casFails int
}

func newMockProfileRepo(profiles ...*model.Profile) *mockProfileRepo {
	m := &mockProfileRepo{profiles: make(map[string]*model.Profile)}
	for _, p := range profiles {
		m.profiles[p.UserID] = p
	}
	return m
}

func profileAt(userID string, status model.VerificationStatus) *model.Profile {
	return &model.Profile{
		ID:                 "profiles:" + userID,
		UserID:             userID,
		Username:           "u_" + userID,
		DisplayName:        "User " + userID,
		VerificationStatus: status,
		IsPublic:           true,
	}
}

func (m *mockProfileRepo) GetByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockProfileRepo) CompareAndSetVerification(ctx context.Context, userID string, expected, next model.VerificationStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.casFails > 0 {
		m.casFails--
		return false, nil
	}
	p, ok := m.profiles[userID]
	if !ok || p.VerificationStatus != expected {
		return false, nil
	}
	p.VerificationStatus = next
	return true, nil
}

func (m *mockProfileRepo) SetVerificationStatus(ctx context.Context, userID string, status model.VerificationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[userID]; ok {
		p.VerificationStatus = status
	}
	return nil
}

func (m *mockProfileRepo) Create(ctx context.Context, p *model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = "profiles:" + p.UserID
	m.profiles[p.UserID] = p
	return nil
}

func (m *mockProfileRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockProfileRepo) status(userID string) model.VerificationStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[userID].VerificationStatus
}

// ============================================================================
// Infrastructure
// ============================================================================

type captureMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (c *captureMailer) Send(ctx context.Context, msg mailer.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureMailer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

type mockGateway struct {
	createCheckoutSessionFunc func(ctx context.Context, p payment.CheckoutParams) (*payment.Session, error)
	createPortalSessionFunc   func(ctx context.Context, customerID, returnURL string) (string, error)
	parseWebhookFunc          func(payload []byte, signature string) (*payment.Event, error)
}

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, p payment.CheckoutParams) (*payment.Session, error) {
	if m.createCheckoutSessionFunc != nil {
		return m.createCheckoutSessionFunc(ctx, p)
	}
	return &payment.Session{ID: "cs_test", URL: "https://checkout.test/cs_test"}, nil
}

func (m *mockGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	if m.createPortalSessionFunc != nil {
		return m.createPortalSessionFunc(ctx, customerID, returnURL)
	}
	return "https://billing.test/" + customerID, nil
}

func (m *mockGateway) ParseWebhook(payload []byte, signature string) (*payment.Event, error) {
	if m.parseWebhookFunc != nil {
		return m.parseWebhookFunc(payload, signature)
	}
	return nil, payment.ErrInvalidSignature
}

func testCheckout(gw payment.Gateway) Checkout {
	return Checkout{
		Gateway:    gw,
		SuccessURL: "https://haven.test/checkout/success",
		CancelURL:  "https://haven.test/checkout/cancelled",
		Currency:   "usd",
	}
}

type mockFileStore struct {
	presignUploadFunc   func(ctx context.Context, key, contentType string) (*model.UploadTarget, error)
	presignDownloadFunc func(ctx context.Context, key string) (*model.DownloadLink, error)
}

func (m *mockFileStore) PresignUpload(ctx context.Context, key, contentType string) (*model.UploadTarget, error) {
	if m.presignUploadFunc != nil {
		return m.presignUploadFunc(ctx, key, contentType)
	}
	return &model.UploadTarget{UploadURL: "https://s3.test/" + key, Key: key}, nil
}

func (m *mockFileStore) PresignDownload(ctx context.Context, key string) (*model.DownloadLink, error) {
	if m.presignDownloadFunc != nil {
		return m.presignDownloadFunc(ctx, key)
	}
	return &model.DownloadLink{URL: "https://s3.test/get/" + key, ExpiresAt: testNow.Add(15 * time.Minute)}, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events map[string][]Event
}

func (c *capturePublisher) SendToUser(userID string, event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.events == nil {
		c.events = make(map[string][]Event)
	}
	c.events[userID] = append(c.events[userID], event)
}

func (c *capturePublisher) forUser(userID string) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[userID]
}
