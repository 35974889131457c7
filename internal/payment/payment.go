// Package payment wraps the hosted checkout, billing portal and webhook
// verification of the payment processor (Stripe). Card data never reaches
// the API; services only see session ids, urls and verified events.
package payment

import (
	"context"
	"errors"
)

// Checkout modes
const (
	ModePayment      = "payment"
	ModeSubscription = "subscription"
)

// Webhook event types handled by the API
const (
	EventCheckoutCompleted    = "checkout.session.completed"
	EventCheckoutAsyncSuccess = "checkout.session.async_payment_succeeded"
	EventCheckoutExpired      = "checkout.session.expired"
)

// Metadata keys attached to every checkout session
const (
	MetaKind = "kind"
	MetaRef  = "reference_id"
)

// Checkout kinds, stored under MetaKind
const (
	KindStoreOrder           = "store_order"
	KindOrganizerApplication = "organizer_application"
	KindSponsor              = "sponsor"
)

var (
	ErrNotConfigured    = errors.New("payment processor not configured")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// LineItem is a server-priced checkout line
type LineItem struct {
	Name       string
	UnitAmount int64
	Currency   string
	Quantity   int64
	Recurring  bool // monthly subscription price
}

// CheckoutParams describes a hosted checkout session
type CheckoutParams struct {
	Mode          string
	ReferenceID   string
	CustomerEmail string
	CustomerID    string
	LineItems     []LineItem
	Metadata      map[string]string
	SuccessURL    string
	CancelURL     string
}

// Session is a created checkout session
type Session struct {
	ID  string
	URL string
}

// Event is a verified webhook event about a checkout session
type Event struct {
	ID            string
	Type          string
	SessionID     string
	ReferenceID   string
	CustomerID    string
	PaymentStatus string
	Metadata      map[string]string
}

// Kind returns the checkout kind recorded in metadata
func (e *Event) Kind() string {
	return e.Metadata[MetaKind]
}

// Paid reports whether the session collected payment
func (e *Event) Paid() bool {
	return e.PaymentStatus == "paid" || e.PaymentStatus == "no_payment_required"
}

// Gateway is the payment processor
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*Session, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
}

// Unconfigured rejects every call. It stands in when no processor key is set.
type Unconfigured struct{}

func (Unconfigured) CreateCheckoutSession(context.Context, CheckoutParams) (*Session, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) CreatePortalSession(context.Context, string, string) (string, error) {
	return "", ErrNotConfigured
}

func (Unconfigured) ParseWebhook([]byte, string) (*Event, error) {
	return nil, ErrNotConfigured
}
