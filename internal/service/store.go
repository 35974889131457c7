package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/mailer"
	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/internal/payment"
)

// StoreRepository defines the interface for product and order storage
type StoreRepository interface {
	ListProducts(ctx context.Context, activeOnly bool) ([]*model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	GetProducts(ctx context.Context, ids []string) (map[string]*model.Product, error)
	CreateProduct(ctx context.Context, p *model.Product) error
	UpdateProduct(ctx context.Context, p *model.Product) (*model.Product, error)

	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListOrdersByUser(ctx context.Context, userID string, limit, offset int) ([]*model.Order, error)
	SetOrderCheckoutSession(ctx context.Context, id, sessionID string) error
	TransitionOrder(ctx context.Context, id string, from, next model.OrderStatus) (bool, error)
}

// GiftRecipients resolves memorials and places gifts on them. AddGifts
// returns database.ErrDuplicate when an order's gifts are already placed.
type GiftRecipients interface {
	GetByID(ctx context.Context, id string) (*model.Memorial, error)
	AddGifts(ctx context.Context, memorialID string, gifts []*model.MemorialGift) error
}

// BillingAccounts reads users and records their processor customer id
type BillingAccounts interface {
	UserLookup
	SetPaymentCustomer(ctx context.Context, userID, customerID string) error
}

// StoreService manages the gift store, checkout and order fulfilment
type StoreService struct {
	storeRepo StoreRepository
	memorials GiftRecipients
	users     BillingAccounts
	files     FileStore
	mail      mailer.Sender
	checkout  Checkout
	portalURL string
}

// StoreServiceConfig holds configuration for the store service
type StoreServiceConfig struct {
	StoreRepo       StoreRepository
	Memorials       GiftRecipients
	Users           BillingAccounts
	Files           FileStore
	Mailer          mailer.Sender
	Checkout        Checkout
	PortalReturnURL string
}

// NewStoreService creates a new store service
func NewStoreService(cfg StoreServiceConfig) *StoreService {
	return &StoreService{
		storeRepo: cfg.StoreRepo,
		memorials: cfg.Memorials,
		users:     cfg.Users,
		files:     cfg.Files,
		mail:      cfg.Mailer,
		checkout:  cfg.Checkout,
		portalURL: cfg.PortalReturnURL,
	}
}

// ListProducts returns active products
func (s *StoreService) ListProducts(ctx context.Context) ([]*model.Product, error) {
	return s.storeRepo.ListProducts(ctx, true)
}

// ListAllProducts returns every product, including retired ones. Admin only.
func (s *StoreService) ListAllProducts(ctx context.Context, actor Actor) ([]*model.Product, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}
	return s.storeRepo.ListProducts(ctx, false)
}

// GetProduct returns an active product; admins also see inactive ones
func (s *StoreService) GetProduct(ctx context.Context, viewer *Actor, id string) (*model.Product, error) {
	p, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive && (viewer == nil || !viewer.IsAdmin()) {
		return nil, ErrProductNotFound
	}
	return p, nil
}

// CreateProduct adds a product priced in the store currency. Admin only.
func (s *StoreService) CreateProduct(ctx context.Context, actor Actor, req model.CreateProductRequest) (*model.Product, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	p := &model.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Kind:        model.ProductKind(req.Kind),
		PriceCents:  req.PriceCents,
		Currency:    s.checkout.Currency,
		ImageURL:    req.ImageURL,
		AssetKey:    nonEmpty(req.AssetKey),
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := s.storeRepo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProduct applies a partial update. Admin only.
func (s *StoreService) UpdateProduct(ctx context.Context, actor Actor, id string, req model.UpdateProductRequest) (*model.Product, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}
	p, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = emptyToNil(*req.Description)
	}
	if req.PriceCents != nil {
		p.PriceCents = *req.PriceCents
	}
	if req.ImageURL != nil {
		p.ImageURL = emptyToNil(*req.ImageURL)
	}
	if req.AssetKey != nil {
		p.AssetKey = emptyToNil(*req.AssetKey)
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	return s.storeRepo.UpdateProduct(ctx, p)
}

// CreateCheckout prices the cart from the catalog, stores a pending order
// and opens a hosted checkout session for it
func (s *StoreService) CreateCheckout(ctx context.Context, userID string, req model.CreateCheckoutRequest) (*model.CheckoutResponse, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	lines, err := mergeCheckoutItems(req.Items)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	products, err := s.storeRepo.GetProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	order := &model.Order{UserID: userID, Currency: s.checkout.Currency, Message: nonEmpty(req.Message)}
	needsMemorial := false
	for _, l := range lines {
		p := products[l.ProductID]
		if p == nil {
			return nil, ErrProductNotFound
		}
		if !p.IsActive {
			return nil, ErrProductInactive
		}
		if p.Kind == model.ProductDigitalGift {
			needsMemorial = true
		}
		order.Items = append(order.Items, model.OrderItem{
			ProductID:      p.ID,
			Name:           p.Name,
			Kind:           p.Kind,
			Quantity:       l.Quantity,
			UnitPriceCents: p.PriceCents,
		})
		order.TotalCents += p.PriceCents * int64(l.Quantity)
	}

	if req.MemorialID != nil && *req.MemorialID != "" {
		m, err := s.giftableMemorial(ctx, userID, *req.MemorialID)
		if err != nil {
			return nil, err
		}
		order.MemorialID = &m.ID
	} else if needsMemorial {
		return nil, ErrMemorialRequired
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if err := s.storeRepo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	items := make([]payment.LineItem, len(order.Items))
	for i, it := range order.Items {
		items[i] = payment.LineItem{
			Name:       it.Name,
			UnitAmount: it.UnitPriceCents,
			Currency:   order.Currency,
			Quantity:   int64(it.Quantity),
		}
	}
	sess, err := s.checkout.open(ctx, payment.KindStoreOrder, payment.ModePayment, order.ID, user, items)
	if err != nil {
		if _, cerr := s.storeRepo.TransitionOrder(ctx, order.ID, model.OrderPendingPayment, model.OrderCancelled); cerr != nil {
			slog.Error("failed to cancel unpaid order", slog.String("order_id", order.ID), slog.String("error", cerr.Error()))
		}
		return nil, err
	}

	if err := s.storeRepo.SetOrderCheckoutSession(ctx, order.ID, sess.ID); err != nil {
		return nil, err
	}

	return &model.CheckoutResponse{OrderID: order.ID, SessionID: sess.ID, CheckoutURL: sess.URL}, nil
}

// mergeCheckoutItems folds repeated products into one line and normalizes ids
func mergeCheckoutItems(items []model.CheckoutItem) ([]model.CheckoutItem, error) {
	qty := make(map[string]int)
	for _, it := range items {
		id, ok := recordID("store_products", it.ProductID)
		if !ok {
			return nil, ErrProductNotFound
		}
		qty[id] += it.Quantity
	}

	out := make([]model.CheckoutItem, 0, len(qty))
	for id, q := range qty {
		if q > model.MaxItemQuantity {
			return nil, invalid([]model.FieldError{{Field: "items.quantity", Message: "quantity must be between 1 and 10"}})
		}
		out = append(out, model.CheckoutItem{ProductID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

// giftableMemorial returns a memorial the user may place gifts on
func (s *StoreService) giftableMemorial(ctx context.Context, userID, id string) (*model.Memorial, error) {
	rid, ok := recordID("memorials", id)
	if !ok {
		return nil, ErrMemorialNotFound
	}
	m, err := s.memorials.GetByID(ctx, rid)
	if err != nil {
		return nil, err
	}
	if m == nil || (!m.IsPublic() && m.OwnerID != userID) {
		return nil, ErrMemorialNotFound
	}
	return m, nil
}

// ListOrders returns the caller's orders
func (s *StoreService) ListOrders(ctx context.Context, userID string, limit, offset int) ([]*model.Order, error) {
	return s.storeRepo.ListOrdersByUser(ctx, userID, limit, offset)
}

// GetOrder returns an order to its owner or an admin
func (s *StoreService) GetOrder(ctx context.Context, actor Actor, id string) (*model.Order, error) {
	o, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// Download returns a short-lived link to a purchased gift's asset
func (s *StoreService) Download(ctx context.Context, actor Actor, orderID, productID string) (*model.DownloadLink, error) {
	o, err := s.GetOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.IsPaid() {
		return nil, ErrOrderNotPaid
	}

	pid, ok := recordID("store_products", productID)
	if !ok || !o.HasItem(pid) {
		return nil, ErrProductNotFound
	}
	p, err := s.storeRepo.GetProduct(ctx, pid)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	if p.AssetKey == nil {
		return nil, ErrNoDownload
	}
	return s.files.PresignDownload(ctx, *p.AssetKey)
}

// BillingPortal returns a processor-hosted billing page for the caller
func (s *StoreService) BillingPortal(ctx context.Context, userID string) (*model.PortalResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.PaymentCustomer == nil || *user.PaymentCustomer == "" {
		return nil, ErrNoBillingAccount
	}

	url, err := s.checkout.Gateway.CreatePortalSession(ctx, *user.PaymentCustomer, s.portalURL)
	if err != nil {
		slog.Error("billing portal failed", slog.String("user_id", userID), slog.String("error", err.Error()))
		return nil, ErrPaymentProvider
	}
	return &model.PortalResponse{URL: url}, nil
}

// CheckoutCompleted marks the order paid, places its gifts on the
// memorial, fulfils it and emails a receipt. An order left at
// payment_complete by a failed delivery is resumed on retry. An order the
// stale-checkout job cancelled while its payment cleared is revived, since
// the buyer has paid.
func (s *StoreService) CheckoutCompleted(ctx context.Context, ev *payment.Event) error {
	o, err := s.storeRepo.GetOrder(ctx, ev.ReferenceID)
	if err != nil {
		return err
	}
	if o == nil {
		slog.Warn("paid checkout for unknown order", slog.String("order_id", ev.ReferenceID))
		return nil
	}

	switch o.Status {
	case model.OrderPendingPayment, model.OrderCancelled:
		ok, err := s.storeRepo.TransitionOrder(ctx, o.ID, o.Status, model.OrderPaymentComplete)
		if err != nil {
			return err
		}
		if !ok {
			slog.Warn("order changed while applying payment", slog.String("order_id", o.ID))
			return nil
		}
		if o.Status == model.OrderCancelled {
			slog.Warn("payment cleared for cancelled order, reviving", slog.String("order_id", o.ID))
		}
	case model.OrderPaymentComplete:
		slog.Info("resuming fulfilment", slog.String("order_id", o.ID))
	default:
		slog.Warn("paid checkout for order not awaiting payment",
			slog.String("order_id", o.ID), slog.String("status", string(o.Status)))
		return nil
	}
	o.Status = model.OrderPaymentComplete

	s.rememberCustomer(ctx, o.UserID, ev.CustomerID)

	if o.MemorialID != nil {
		err := s.memorials.AddGifts(ctx, *o.MemorialID, giftsFor(o))
		if err != nil && !errors.Is(err, database.ErrDuplicate) {
			return err
		}
	}
	ok, err := s.storeRepo.TransitionOrder(ctx, o.ID, model.OrderPaymentComplete, model.OrderFulfilled)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	o.Status = model.OrderFulfilled

	s.sendReceipt(ctx, o)
	return nil
}

// CheckoutExpired cancels an order whose checkout was abandoned
func (s *StoreService) CheckoutExpired(ctx context.Context, ev *payment.Event) error {
	_, err := s.storeRepo.TransitionOrder(ctx, ev.ReferenceID, model.OrderPendingPayment, model.OrderCancelled)
	return err
}

func giftsFor(o *model.Order) []*model.MemorialGift {
	var gifts []*model.MemorialGift
	for _, it := range o.Items {
		if it.Kind != model.ProductDigitalGift {
			continue
		}
		gifts = append(gifts, &model.MemorialGift{
			OrderID:   o.ID,
			ProductID: it.ProductID,
			GiverID:   o.UserID,
			Name:      it.Name,
			Message:   o.Message,
			Quantity:  it.Quantity,
		})
	}
	return gifts
}

// rememberCustomer stores the processor customer on first purchase so the
// billing portal works later
func (s *StoreService) rememberCustomer(ctx context.Context, userID, customerID string) {
	if customerID == "" {
		return
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil || user == nil || user.PaymentCustomer != nil {
		return
	}
	if err := s.users.SetPaymentCustomer(ctx, userID, customerID); err != nil {
		slog.Warn("failed to store payment customer", slog.String("user_id", userID), slog.String("error", err.Error()))
	}
}

func (s *StoreService) sendReceipt(ctx context.Context, o *model.Order) {
	user, err := s.users.GetByID(ctx, o.UserID)
	if err != nil || user == nil {
		return
	}
	lines := make([]mailer.ReceiptLine, len(o.Items))
	for i, it := range o.Items {
		lines[i] = mailer.ReceiptLine{Name: it.Name, Quantity: it.Quantity, TotalCents: it.UnitPriceCents * int64(it.Quantity)}
	}
	msg := mailer.OrderReceipt(user.Email, o.ID, o.Currency, lines, o.TotalCents)
	if err := s.mail.Send(ctx, msg); err != nil {
		slog.Warn("failed to send receipt", slog.String("order_id", o.ID), slog.String("error", err.Error()))
	}
}

func (s *StoreService) loadProduct(ctx context.Context, id string) (*model.Product, error) {
	rid, ok := recordID("store_products", id)
	if !ok {
		return nil, ErrProductNotFound
	}
	p, err := s.storeRepo.GetProduct(ctx, rid)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

func (s *StoreService) loadOrder(ctx context.Context, id string) (*model.Order, error) {
	rid, ok := recordID("store_orders", id)
	if !ok {
		return nil, ErrOrderNotFound
	}
	o, err := s.storeRepo.GetOrder(ctx, rid)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}
