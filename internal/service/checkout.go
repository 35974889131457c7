package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/internal/payment"
)

// Checkout holds what every service that opens a hosted checkout needs
type Checkout struct {
	Gateway    payment.Gateway
	SuccessURL string
	CancelURL  string
	Currency   string
}

// open creates a checkout session for a reference, tagging it with kind so
// the webhook can route it back
func (c Checkout) open(ctx context.Context, kind, mode, referenceID string, user *model.User, items []payment.LineItem) (*payment.Session, error) {
	params := payment.CheckoutParams{
		Mode:        mode,
		ReferenceID: referenceID,
		LineItems:   items,
		Metadata:    map[string]string{payment.MetaKind: kind},
		SuccessURL:  c.SuccessURL,
		CancelURL:   c.CancelURL,
	}
	if user != nil {
		params.CustomerEmail = user.Email
		params.CustomerID = stringValue(user.PaymentCustomer)
	}

	sess, err := c.Gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		slog.Error("checkout session failed",
			slog.String("kind", kind),
			slog.String("reference_id", referenceID),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}
	return sess, nil
}

// CheckoutHandler reacts to verified checkout events of one kind
type CheckoutHandler interface {
	CheckoutCompleted(ctx context.Context, ev *payment.Event) error
	CheckoutExpired(ctx context.Context, ev *payment.Event) error
}

// SessionLedger remembers which checkout events were already applied
type SessionLedger interface {
	MarkSessionProcessed(ctx context.Context, sessionID, kind string) (bool, error)
	UnmarkSessionProcessed(ctx context.Context, sessionID string) error
}

// WebhookService verifies payment webhooks and routes them by checkout kind
type WebhookService struct {
	gateway  payment.Gateway
	ledger   SessionLedger
	handlers map[string]CheckoutHandler
}

// WebhookServiceConfig holds configuration for the webhook service
type WebhookServiceConfig struct {
	Gateway  payment.Gateway
	Ledger   SessionLedger
	Handlers map[string]CheckoutHandler
}

// NewWebhookService creates a new webhook service
func NewWebhookService(cfg WebhookServiceConfig) *WebhookService {
	return &WebhookService{
		gateway:  cfg.Gateway,
		ledger:   cfg.Ledger,
		handlers: cfg.Handlers,
	}
}

// Handle verifies the payload and applies the event once. Unknown event
// types and kinds are acknowledged and ignored. An error means the
// processor should retry.
func (s *WebhookService) Handle(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) || errors.Is(err, payment.ErrNotConfigured) {
			return ErrInvalidWebhook
		}
		return err
	}

	var apply func(CheckoutHandler) error
	switch ev.Type {
	case payment.EventCheckoutCompleted, payment.EventCheckoutAsyncSuccess:
		if !ev.Paid() {
			slog.Info("checkout completed without payment yet", slog.String("session_id", ev.SessionID))
			return nil
		}
		apply = func(h CheckoutHandler) error { return h.CheckoutCompleted(ctx, ev) }
	case payment.EventCheckoutExpired:
		apply = func(h CheckoutHandler) error { return h.CheckoutExpired(ctx, ev) }
	default:
		return nil
	}

	handler, ok := s.handlers[ev.Kind()]
	if !ok || ev.ReferenceID == "" {
		slog.Warn("unroutable checkout event",
			slog.String("type", ev.Type),
			slog.String("kind", ev.Kind()),
			slog.String("session_id", ev.SessionID))
		return nil
	}

	// completion and expiry are recorded separately
	key := ev.SessionID + "|" + ev.Type
	if ev.Type == payment.EventCheckoutAsyncSuccess {
		key = ev.SessionID + "|" + payment.EventCheckoutCompleted
	}
	fresh, err := s.ledger.MarkSessionProcessed(ctx, key, ev.Kind())
	if err != nil {
		return err
	}
	if !fresh {
		slog.Info("checkout event replayed", slog.String("session_id", ev.SessionID), slog.String("type", ev.Type))
		return nil
	}

	if err := apply(handler); err != nil {
		if uerr := s.ledger.UnmarkSessionProcessed(ctx, key); uerr != nil {
			slog.Error("failed to release checkout session", slog.String("session_id", ev.SessionID), slog.String("error", uerr.Error()))
		}
		return err
	}

	slog.Info("checkout event applied",
		slog.String("type", ev.Type),
		slog.String("kind", ev.Kind()),
		slog.String("reference_id", ev.ReferenceID))
	return nil
}
