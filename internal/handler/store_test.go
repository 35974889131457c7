package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/forgo/haven/api/internal/payment"
	"github.com/forgo/haven/api/internal/service"
)

// ============================================================================
// Mocks
// ============================================================================

type mockGateway struct {
	payment.Unconfigured
	parseWebhookFunc func(payload []byte, signature string) (*payment.Event, error)
}

func (m *mockGateway) ParseWebhook(payload []byte, signature string) (*payment.Event, error) {
	if m.parseWebhookFunc != nil {
		return m.parseWebhookFunc(payload, signature)
	}
	return nil, payment.ErrInvalidSignature
}

type memoryLedger struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (l *memoryLedger) MarkSessionProcessed(ctx context.Context, sessionID, kind string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seen == nil {
		l.seen = map[string]bool{}
	}
	if l.seen[sessionID] {
		return false, nil
	}
	l.seen[sessionID] = true
	return true, nil
}

func (l *memoryLedger) UnmarkSessionProcessed(ctx context.Context, sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.seen, sessionID)
	return nil
}

type countingCheckoutHandler struct {
	mu        sync.Mutex
	completed int
}

func (c *countingCheckoutHandler) CheckoutCompleted(ctx context.Context, ev *payment.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed++
	return nil
}

func (c *countingCheckoutHandler) CheckoutExpired(ctx context.Context, ev *payment.Event) error {
	return nil
}

func newWebhookHandler(gw payment.Gateway, orders service.CheckoutHandler) *StoreHandler {
	webhooks := service.NewWebhookService(service.WebhookServiceConfig{
		Gateway:  gw,
		Ledger:   &memoryLedger{},
		Handlers: map[string]service.CheckoutHandler{payment.KindStoreOrder: orders},
	})
	return NewStoreHandler(nil, webhooks)
}

// ============================================================================
// Webhook Tests
// ============================================================================

func TestWebhook_BadSignature(t *testing.T) {
	t.Parallel()

	h := newWebhookHandler(&mockGateway{}, &countingCheckoutHandler{})
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/webhook", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	rr := httptest.NewRecorder()

	h.Webhook(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestWebhook_ReplayAppliedOnce(t *testing.T) {
	t.Parallel()

	var gotSignature string
	gw := &mockGateway{parseWebhookFunc: func(payload []byte, signature string) (*payment.Event, error) {
		gotSignature = signature
		return &payment.Event{
			ID:            "evt_1",
			Type:          payment.EventCheckoutCompleted,
			SessionID:     "cs_1",
			ReferenceID:   "store_orders:o1",
			PaymentStatus: "paid",
			Metadata:      map[string]string{payment.MetaKind: payment.KindStoreOrder},
		}, nil
	}}
	orders := &countingCheckoutHandler{}
	h := newWebhookHandler(gw, orders)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/checkout/webhook", strings.NewReader(`{"id":"evt_1"}`))
		req.Header.Set("Stripe-Signature", "t=1,v1=good")
		rr := httptest.NewRecorder()
		h.Webhook(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d", i, rr.Code)
		}
	}

	if gotSignature != "t=1,v1=good" {
		t.Errorf("signature header not forwarded, got %q", gotSignature)
	}
	if orders.completed != 1 {
		t.Errorf("expected the order to be completed once, got %d", orders.completed)
	}
}
