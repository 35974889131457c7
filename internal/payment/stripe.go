package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Stripe implements Gateway on the Stripe API
type Stripe struct {
	api           *client.API
	webhookSecret string
}

// NewStripe creates a Stripe gateway
func NewStripe(secretKey, webhookSecret string) *Stripe {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Stripe{api: api, webhookSecret: webhookSecret}
}

// CreateCheckoutSession opens a hosted checkout session
func (s *Stripe) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(p.Mode),
		ClientReferenceID: stripe.String(p.ReferenceID),
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
	}
	params.Context = ctx

	switch {
	case p.CustomerID != "":
		params.Customer = stripe.String(p.CustomerID)
	case p.CustomerEmail != "":
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	if p.Mode == ModePayment && p.CustomerID == "" {
		// Needed so paid orders can later open the billing portal.
		params.CustomerCreation = stripe.String(string(stripe.CheckoutSessionCustomerCreationAlways))
	}

	for _, item := range p.LineItems {
		price := &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(item.Currency),
			UnitAmount: stripe.Int64(item.UnitAmount),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(item.Name),
			},
		}
		if item.Recurring {
			price.Recurring = &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
				Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
			}
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: price,
			Quantity:  stripe.Int64(item.Quantity),
		})
	}

	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	params.AddMetadata(MetaRef, p.ReferenceID)

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

// CreatePortalSession returns a billing portal url for the customer
func (s *Stripe) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	sess, err := s.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return sess.URL, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes checkout
// session events. Other event types come back with only ID and Type set.
func (s *Stripe) ParseWebhook(payload []byte, signature string) (*Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: evt.ID, Type: string(evt.Type)}
	switch out.Type {
	case EventCheckoutCompleted, EventCheckoutAsyncSuccess, EventCheckoutExpired:
	default:
		return out, nil
	}

	var sess stripe.CheckoutSession
	if evt.Data == nil {
		return nil, fmt.Errorf("webhook %s has no data", evt.ID)
	}
	if err := json.Unmarshal(evt.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}

	out.SessionID = sess.ID
	out.ReferenceID = sess.ClientReferenceID
	out.PaymentStatus = string(sess.PaymentStatus)
	out.Metadata = sess.Metadata
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	if out.ReferenceID == "" {
		out.ReferenceID = out.Metadata[MetaRef]
	}
	if sess.Customer != nil {
		out.CustomerID = sess.Customer.ID
	}
	return out, nil
}
