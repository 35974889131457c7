package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/forgo/haven/api/internal/middleware"
	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/internal/service"
)

// maxWebhookBytes caps processor webhook payloads
const maxWebhookBytes = 65536

// StoreHandler handles products, checkout, orders and billing
type StoreHandler struct {
	storeService   *service.StoreService
	webhookService *service.WebhookService
}

// NewStoreHandler creates a new store handler
func NewStoreHandler(storeService *service.StoreService, webhookService *service.WebhookService) *StoreHandler {
	return &StoreHandler{
		storeService:   storeService,
		webhookService: webhookService,
	}
}

// ListProducts handles GET /api/store/products
func (h *StoreHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.storeService.ListProducts(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "list products")
		return
	}
	WriteCollection(w, http.StatusOK, products, nil)
}

// ListAllProducts handles GET /api/admin/store/products
func (h *StoreHandler) ListAllProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.storeService.ListAllProducts(r.Context(), actorFrom(r))
	if err != nil {
		writeServiceError(w, r, err, "list all products")
		return
	}
	WriteCollection(w, http.StatusOK, products, nil)
}

// GetProduct handles GET /api/store/products/{id}
func (h *StoreHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.storeService.GetProduct(r.Context(), optionalActor(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "get product")
		return
	}
	WriteData(w, http.StatusOK, p)
}

// CreateProduct handles POST /api/store/products
func (h *StoreHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req model.CreateProductRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := h.storeService.CreateProduct(r.Context(), actorFrom(r), req)
	if err != nil {
		writeServiceError(w, r, err, "create product")
		return
	}
	WriteData(w, http.StatusCreated, p)
}

// UpdateProduct handles PATCH /api/store/products/{id}
func (h *StoreHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateProductRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := h.storeService.UpdateProduct(r.Context(), actorFrom(r), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, r, err, "update product")
		return
	}
	WriteData(w, http.StatusOK, p)
}

// CreateCheckout handles POST /api/checkout/create-session
func (h *StoreHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCheckoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.storeService.CreateCheckout(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err, "create checkout")
		return
	}
	WriteData(w, http.StatusCreated, resp)
}

// Webhook handles POST /api/checkout/webhook. The raw body is needed for
// signature verification, so it is never decoded here.
func (h *StoreHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		WriteError(w, model.NewBadRequestError("unreadable webhook payload"))
		return
	}

	if err := h.webhookService.Handle(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		writeServiceError(w, r, err, "checkout webhook")
		return
	}
	slog.DebugContext(r.Context(), "webhook processed", "bytes", len(payload))
	WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// ListOrders handles GET /api/store/orders
func (h *StoreHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	orders, err := h.storeService.ListOrders(r.Context(), middleware.GetUserID(r.Context()), limit, offset)
	if err != nil {
		writeServiceError(w, r, err, "list orders")
		return
	}
	WriteCollection(w, http.StatusOK, orders, pageInfo(limit, offset, len(orders)))
}

// GetOrder handles GET /api/store/orders/{id}
func (h *StoreHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.storeService.GetOrder(r.Context(), actorFrom(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "get order")
		return
	}
	WriteData(w, http.StatusOK, o)
}

// Download handles GET /api/store/orders/{id}/download/{productId}
func (h *StoreHandler) Download(w http.ResponseWriter, r *http.Request) {
	link, err := h.storeService.Download(r.Context(), actorFrom(r), r.PathValue("id"), r.PathValue("productId"))
	if err != nil {
		writeServiceError(w, r, err, "download")
		return
	}
	WriteData(w, http.StatusOK, link)
}

// BillingPortal handles POST /api/billing/portal
func (h *StoreHandler) BillingPortal(w http.ResponseWriter, r *http.Request) {
	resp, err := h.storeService.BillingPortal(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "billing portal")
		return
	}
	WriteData(w, http.StatusOK, resp)
}
