package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/model"
)

// StoreRepository handles products, orders and processed checkout sessions
type StoreRepository struct {
	db database.Database
}

// NewStoreRepository creates a new store repository
func NewStoreRepository(db database.Database) *StoreRepository {
	return &StoreRepository{db: db}
}

var (
	parseProduct = parseInto[model.Product]()
	parseOrder   = parseInto[model.Order]()
)

// parseProductRecord keeps asset_key, which is hidden from JSON output
func parseProductRecord(data record) (*model.Product, error) {
	p, err := parseProduct(data)
	if err != nil {
		return nil, err
	}
	p.AssetKey = getStringPtr(data, "asset_key")
	p.HasDownload = p.AssetKey != nil
	return p, nil
}

// parseOrderRecord keeps checkout_session_id
func parseOrderRecord(data record) (*model.Order, error) {
	o, err := parseOrder(data)
	if err != nil {
		return nil, err
	}
	o.CheckoutSessionID = getStringPtr(data, "checkout_session_id")
	return o, nil
}

// ListProducts returns products ordered by name. activeOnly hides retired items.
func (r *StoreRepository) ListProducts(ctx context.Context, activeOnly bool) ([]*model.Product, error) {
	query := `SELECT * FROM store_products ORDER BY name ASC`
	if activeOnly {
		query = `SELECT * FROM store_products WHERE is_active = true ORDER BY name ASC`
	}
	return selectMany(ctx, r.db, query, nil, parseProductRecord)
}

// GetProduct retrieves a product
func (r *StoreRepository) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	return selectOne(ctx, r.db, `SELECT * FROM type::record($id) WHERE meta::tb(id) = 'store_products'`,
		map[string]interface{}{"id": id}, parseProductRecord)
}

// GetProducts retrieves several products by id. Missing ids are absent
// from the result.
func (r *StoreRepository) GetProducts(ctx context.Context, ids []string) (map[string]*model.Product, error) {
	out := make(map[string]*model.Product, len(ids))
	for _, id := range ids {
		if _, seen := out[id]; seen {
			continue
		}
		p, err := r.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		if p != nil {
			out[id] = p
		}
	}
	return out, nil
}

// CreateProduct stores a product. A taken sku returns database.ErrDuplicate.
func (r *StoreRepository) CreateProduct(ctx context.Context, p *model.Product) error {
	query := `
		CREATE store_products CONTENT {
			sku: $sku,
			name: $name,
			description: $description,
			kind: $kind,
			price_cents: $price_cents,
			currency: $currency,
			image_url: $image_url,
			asset_key: $asset_key,
			is_active: $is_active,
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	created, err := createOne(ctx, r.db, query, productVars(p), parseProductRecord)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%w: sku exists", database.ErrDuplicate)
		}
		return err
	}
	*p = *created
	return nil
}

// UpdateProduct writes every editable product field
func (r *StoreRepository) UpdateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	query := `
		UPDATE type::record($id) SET
			name = $name,
			description = $description,
			price_cents = $price_cents,
			image_url = $image_url,
			asset_key = $asset_key,
			is_active = $is_active,
			updated_on = time::now()
		RETURN AFTER
	`
	vars := productVars(p)
	vars["id"] = p.ID
	return createOne(ctx, r.db, query, vars, parseProductRecord)
}

// EnsureProductBySKU creates the product unless one with its sku exists.
// Existing rows are left alone so admin edits survive restarts.
func (r *StoreRepository) EnsureProductBySKU(ctx context.Context, p *model.Product) (bool, error) {
	if p.SKU == nil {
		return false, fmt.Errorf("%w: product sku is required", database.ErrQuery)
	}
	existing, err := selectOne(ctx, r.db, `SELECT * FROM store_products WHERE sku = $sku LIMIT 1`,
		map[string]interface{}{"sku": *p.SKU}, parseProductRecord)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	if err := r.CreateProduct(ctx, p); err != nil {
		if isDuplicate(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func productVars(p *model.Product) map[string]interface{} {
	return map[string]interface{}{
		"sku":         ptrToNone(p.SKU),
		"name":        p.Name,
		"description": ptrToNone(p.Description),
		"kind":        p.Kind,
		"price_cents": p.PriceCents,
		"currency":    p.Currency,
		"image_url":   ptrToNone(p.ImageURL),
		"asset_key":   ptrToNone(p.AssetKey),
		"is_active":   p.IsActive,
	}
}

// CreateOrder stores an order in pending_payment
func (r *StoreRepository) CreateOrder(ctx context.Context, o *model.Order) error {
	query := `
		CREATE store_orders CONTENT {
			user_id: $user_id,
			memorial_id: $memorial_id,
			items: $items,
			total_cents: $total_cents,
			currency: $currency,
			status: $status,
			message: $message,
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	items := make([]map[string]interface{}, len(o.Items))
	for i, it := range o.Items {
		items[i] = map[string]interface{}{
			"product_id":       it.ProductID,
			"name":             it.Name,
			"kind":             it.Kind,
			"quantity":         it.Quantity,
			"unit_price_cents": it.UnitPriceCents,
		}
	}
	vars := map[string]interface{}{
		"user_id":     o.UserID,
		"memorial_id": ptrToNone(o.MemorialID),
		"items":       items,
		"total_cents": o.TotalCents,
		"currency":    o.Currency,
		"status":      model.OrderPendingPayment,
		"message":     ptrToNone(o.Message),
	}
	created, err := createOne(ctx, r.db, query, vars, parseOrderRecord)
	if err != nil {
		return err
	}
	*o = *created
	return nil
}

// GetOrder retrieves an order
func (r *StoreRepository) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	return selectOne(ctx, r.db, `SELECT * FROM type::record($id) WHERE meta::tb(id) = 'store_orders'`,
		map[string]interface{}{"id": id}, parseOrderRecord)
}

// ListOrdersByUser returns a user's orders, newest first
func (r *StoreRepository) ListOrdersByUser(ctx context.Context, userID string, limit, offset int) ([]*model.Order, error) {
	limit, offset = page(limit, offset, 20, 100)
	query := `
		SELECT * FROM store_orders WHERE user_id = $user_id
		ORDER BY created_on DESC LIMIT $limit START $offset
	`
	return selectMany(ctx, r.db, query,
		map[string]interface{}{"user_id": userID, "limit": limit, "offset": offset}, parseOrderRecord)
}

// SetOrderCheckoutSession records the hosted checkout session for an order
func (r *StoreRepository) SetOrderCheckoutSession(ctx context.Context, id, sessionID string) error {
	query := `UPDATE type::record($id) SET checkout_session_id = $session_id, updated_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{"id": id, "session_id": sessionID})
}

// TransitionOrder moves an order to next only if its current status is from.
// It returns false when the order was not in that state.
func (r *StoreRepository) TransitionOrder(ctx context.Context, id string, from, next model.OrderStatus) (bool, error) {
	set := "status = $next, updated_on = time::now()"
	if next == model.OrderPaymentComplete {
		set += ", paid_on = time::now()"
	}
	query := `UPDATE type::record($id) SET ` + set + ` WHERE status = $from RETURN AFTER`
	results, err := r.db.Query(ctx, query, map[string]interface{}{"id": id, "from": from, "next": next})
	if err != nil {
		return false, err
	}
	return len(statementRows(results, 0)) > 0, nil
}

// CancelStaleOrders cancels pending_payment orders created before cutoff
func (r *StoreRepository) CancelStaleOrders(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		UPDATE store_orders SET status = $cancelled, updated_on = time::now()
		WHERE status = $pending AND created_on < <datetime>$cutoff
		RETURN AFTER
	`
	results, err := r.db.Query(ctx, query, map[string]interface{}{
		"cancelled": model.OrderCancelled,
		"pending":   model.OrderPendingPayment,
		"cutoff":    timeVar(cutoff),
	})
	if err != nil {
		return 0, err
	}
	return len(statementRows(results, 0)), nil
}

// MarkSessionProcessed records a handled checkout session. It returns false
// when the session had already been recorded.
func (r *StoreRepository) MarkSessionProcessed(ctx context.Context, sessionID, kind string) (bool, error) {
	query := `
		CREATE processed_checkout_sessions CONTENT {
			session_id: $session_id,
			kind: $kind,
			created_on: time::now()
		}
	`
	err := r.db.Execute(ctx, query, map[string]interface{}{"session_id": sessionID, "kind": kind})
	if err != nil {
		if isDuplicate(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// UnmarkSessionProcessed forgets a session so a failed dispatch can be retried
func (r *StoreRepository) UnmarkSessionProcessed(ctx context.Context, sessionID string) error {
	return r.db.Execute(ctx, `DELETE processed_checkout_sessions WHERE session_id = $session_id`,
		map[string]interface{}{"session_id": sessionID})
}
