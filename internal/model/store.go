package model

import (
	"strings"
	"time"
)

// ProductKind distinguishes gift products from plain donations
type ProductKind string

const (
	ProductDigitalGift ProductKind = "digital_gift"
	ProductDonation    ProductKind = "donation"
)

// Product is an item in the memorial-gift store
type Product struct {
	ID          string      `json:"id"`
	SKU         *string     `json:"sku,omitempty"`
	Name        string      `json:"name"`
	Description *string     `json:"description,omitempty"`
	Kind        ProductKind `json:"kind"`
	PriceCents  int64       `json:"price_cents"`
	Currency    string      `json:"currency"`
	ImageURL    *string     `json:"image_url,omitempty"`
	AssetKey    *string     `json:"-"`
	HasDownload bool        `json:"has_download"`
	IsActive    bool        `json:"is_active"`
	CreatedOn   time.Time   `json:"created_on"`
	UpdatedOn   time.Time   `json:"updated_on"`
}

// OrderStatus is the lifecycle state of a store order
type OrderStatus string

const (
	OrderPendingPayment  OrderStatus = "pending_payment"
	OrderPaymentComplete OrderStatus = "payment_complete"
	OrderFulfilled       OrderStatus = "fulfilled"
	OrderCancelled       OrderStatus = "cancelled"
	OrderRefunded        OrderStatus = "refunded"
)

// IsPaid reports whether payment has been captured for the order
func (s OrderStatus) IsPaid() bool {
	return s == OrderPaymentComplete || s == OrderFulfilled
}

// OrderItem is a priced line of an order. Prices are copied from the
// product at checkout time.
type OrderItem struct {
	ProductID      string      `json:"product_id"`
	Name           string      `json:"name"`
	Kind           ProductKind `json:"kind"`
	Quantity       int         `json:"quantity"`
	UnitPriceCents int64       `json:"unit_price_cents"`
}

// Order is a store purchase
type Order struct {
	ID                string      `json:"id"`
	UserID            string      `json:"user_id"`
	MemorialID        *string     `json:"memorial_id,omitempty"`
	Items             []OrderItem `json:"items"`
	TotalCents        int64       `json:"total_cents"`
	Currency          string      `json:"currency"`
	Status            OrderStatus `json:"status"`
	CheckoutSessionID *string     `json:"checkout_session_id,omitempty"`
	Message           *string     `json:"message,omitempty"`
	PaidOn            *time.Time  `json:"paid_on,omitempty"`
	CreatedOn         time.Time   `json:"created_on"`
	UpdatedOn         time.Time   `json:"updated_on"`
}

// HasItem reports whether the order contains productID
func (o *Order) HasItem(productID string) bool {
	for _, it := range o.Items {
		if it.ProductID == productID {
			return true
		}
	}
	return false
}

// Constraints
const (
	MinItemQuantity   = 1
	MaxItemQuantity   = 10
	MaxOrderItems     = 20
	MaxOrderMessage   = 500
	MaxProductNameLen = 200
	MaxProductDescLen = 2000
)

// CheckoutItem is a requested product and quantity. Prices never come from the client.
type CheckoutItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CreateCheckoutRequest opens a hosted checkout for store items
type CreateCheckoutRequest struct {
	Items      []CheckoutItem `json:"items"`
	MemorialID *string        `json:"memorial_id,omitempty"`
	Message    *string        `json:"message,omitempty"`
}

// Validate checks shape only; products are resolved by the service
func (r *CreateCheckoutRequest) Validate() []FieldError {
	var errors []FieldError

	if len(r.Items) == 0 {
		errors = append(errors, FieldError{Field: "items", Message: "at least one item is required"})
	} else if len(r.Items) > MaxOrderItems {
		errors = append(errors, FieldError{Field: "items", Message: "too many items"})
	}
	for _, it := range r.Items {
		if it.ProductID == "" {
			errors = append(errors, FieldError{Field: "items.product_id", Message: "product_id is required"})
		}
		if it.Quantity < MinItemQuantity || it.Quantity > MaxItemQuantity {
			errors = append(errors, FieldError{Field: "items.quantity", Message: "quantity must be between 1 and 10"})
		}
	}
	if r.Message != nil && len(*r.Message) > MaxOrderMessage {
		errors = append(errors, FieldError{Field: "message", Message: "message must be 500 characters or less"})
	}

	return errors
}

// CheckoutResponse is returned once a hosted checkout session is open
type CheckoutResponse struct {
	OrderID     string `json:"order_id,omitempty"`
	ReferenceID string `json:"reference_id,omitempty"`
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// PortalResponse carries a billing portal link
type PortalResponse struct {
	URL string `json:"url"`
}

// DownloadLink is a short-lived presigned GET for a purchased asset
type DownloadLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateProductRequest represents an admin request to add a product
type CreateProductRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Kind        string  `json:"kind"`
	PriceCents  int64   `json:"price_cents"`
	ImageURL    *string `json:"image_url,omitempty"`
	AssetKey    *string `json:"asset_key,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// Validate checks the product request
func (r *CreateProductRequest) Validate() []FieldError {
	var errors []FieldError

	if strings.TrimSpace(r.Name) == "" || len(r.Name) > MaxProductNameLen {
		errors = append(errors, FieldError{Field: "name", Message: "name must be 1-200 characters"})
	}
	if r.Description != nil && len(*r.Description) > MaxProductDescLen {
		errors = append(errors, FieldError{Field: "description", Message: "description must be 2000 characters or less"})
	}
	if ProductKind(r.Kind) != ProductDigitalGift && ProductKind(r.Kind) != ProductDonation {
		errors = append(errors, FieldError{Field: "kind", Message: "kind must be digital_gift or donation"})
	}
	if r.PriceCents <= 0 {
		errors = append(errors, FieldError{Field: "price_cents", Message: "price_cents must be positive"})
	}

	return errors
}

// UpdateProductRequest represents a partial product update
type UpdateProductRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	PriceCents  *int64  `json:"price_cents,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
	AssetKey    *string `json:"asset_key,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// Validate checks the product update
func (r *UpdateProductRequest) Validate() []FieldError {
	var errors []FieldError

	if r.Name != nil && (strings.TrimSpace(*r.Name) == "" || len(*r.Name) > MaxProductNameLen) {
		errors = append(errors, FieldError{Field: "name", Message: "name must be 1-200 characters"})
	}
	if r.Description != nil && len(*r.Description) > MaxProductDescLen {
		errors = append(errors, FieldError{Field: "description", Message: "description must be 2000 characters or less"})
	}
	if r.PriceCents != nil && *r.PriceCents <= 0 {
		errors = append(errors, FieldError{Field: "price_cents", Message: "price_cents must be positive"})
	}

	return errors
}
