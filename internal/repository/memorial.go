package repository

import (
	"context"
	"fmt"

	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/model"
)

// MemorialRepository handles memorial and memorial gift data access
type MemorialRepository struct {
	db database.Database
}

// NewMemorialRepository creates a new memorial repository
func NewMemorialRepository(db database.Database) *MemorialRepository {
	return &MemorialRepository{db: db}
}

var (
	parseMemorial = parseInto[model.Memorial]()
	parseGift     = parseInto[model.MemorialGift]()
)

// Create stores a memorial. Slug collisions return database.ErrDuplicate.
func (r *MemorialRepository) Create(ctx context.Context, m *model.Memorial) error {
	query := `
		CREATE memorials CONTENT {
			owner_id: $owner_id,
			name: $name,
			slug: $slug,
			birth_date: $birth_date,
			death_date: $death_date,
			biography: $biography,
			photo_url: $photo_url,
			visibility: $visibility,
			gift_count: 0,
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	vars := map[string]interface{}{
		"owner_id":   m.OwnerID,
		"name":       m.Name,
		"slug":       m.Slug,
		"birth_date": ptrToNone(m.BirthDate),
		"death_date": ptrToNone(m.DeathDate),
		"biography":  ptrToNone(m.Biography),
		"photo_url":  ptrToNone(m.PhotoURL),
		"visibility": m.Visibility,
	}

	created, err := createOne(ctx, r.db, query, vars, parseMemorial)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%w: slug exists", database.ErrDuplicate)
		}
		return err
	}
	*m = *created
	return nil
}

// GetByID retrieves a memorial
func (r *MemorialRepository) GetByID(ctx context.Context, id string) (*model.Memorial, error) {
	return selectOne(ctx, r.db, `SELECT * FROM type::record($id) WHERE meta::tb(id) = 'memorials'`,
		map[string]interface{}{"id": id}, parseMemorial)
}

// ListPublic returns public memorials, newest first
func (r *MemorialRepository) ListPublic(ctx context.Context, limit, offset int) ([]*model.Memorial, error) {
	limit, offset = page(limit, offset, 20, 100)
	query := `SELECT * FROM memorials WHERE visibility = 'public' ORDER BY created_on DESC LIMIT $limit START $offset`
	return selectMany(ctx, r.db, query, map[string]interface{}{"limit": limit, "offset": offset}, parseMemorial)
}

// ListByOwner returns all memorials of an owner
func (r *MemorialRepository) ListByOwner(ctx context.Context, ownerID string) ([]*model.Memorial, error) {
	query := `SELECT * FROM memorials WHERE owner_id = $owner_id ORDER BY created_on DESC`
	return selectMany(ctx, r.db, query, map[string]interface{}{"owner_id": ownerID}, parseMemorial)
}

// Update writes the editable memorial fields
func (r *MemorialRepository) Update(ctx context.Context, m *model.Memorial) error {
	query := `
		UPDATE type::record($id) SET
			name = $name,
			birth_date = $birth_date,
			death_date = $death_date,
			biography = $biography,
			photo_url = $photo_url,
			visibility = $visibility,
			updated_on = time::now()
	`
	vars := map[string]interface{}{
		"id":         m.ID,
		"name":       m.Name,
		"birth_date": ptrToNone(m.BirthDate),
		"death_date": ptrToNone(m.DeathDate),
		"biography":  ptrToNone(m.Biography),
		"photo_url":  ptrToNone(m.PhotoURL),
		"visibility": m.Visibility,
	}
	return r.db.Execute(ctx, query, vars)
}

// Delete removes a memorial and its gifts
func (r *MemorialRepository) Delete(ctx context.Context, id string) error {
	batch := database.NewBatch().
		Add(`DELETE memorial_gifts WHERE memorial_id = $id`, map[string]interface{}{"id": id}).
		Add(`DELETE type::record($id)`, map[string]interface{}{"id": id})
	_, err := batch.Run(ctx, r.db)
	return err
}

// Search matches public memorials by name
func (r *MemorialRepository) Search(ctx context.Context, q string, limit int) ([]*model.Memorial, error) {
	query := `
		SELECT * FROM memorials
		WHERE visibility = 'public' AND string::contains(string::lowercase(name), $q)
		ORDER BY created_on DESC
		LIMIT $limit
	`
	return selectMany(ctx, r.db, query, map[string]interface{}{"q": q, "limit": limit}, parseMemorial)
}

// AddGifts places gifts on a memorial and bumps its gift_count in one
// transaction. Gifts are unique per order and product, so placing an
// order's gifts twice fails with database.ErrDuplicate and changes nothing.
func (r *MemorialRepository) AddGifts(ctx context.Context, memorialID string, gifts []*model.MemorialGift) error {
	if len(gifts) == 0 {
		return nil
	}

	batch := database.NewBatch()
	total := 0
	for _, g := range gifts {
		batch.Add(`
			CREATE memorial_gifts CONTENT {
				memorial_id: $memorial_id,
				order_id: $order_id,
				product_id: $product_id,
				giver_id: $giver_id,
				name: $name,
				image_url: $image_url,
				message: $message,
				quantity: $quantity,
				created_on: time::now()
			}
		`, map[string]interface{}{
			"memorial_id": memorialID,
			"order_id":    g.OrderID,
			"product_id":  g.ProductID,
			"giver_id":    g.GiverID,
			"name":        g.Name,
			"image_url":   ptrToNone(g.ImageURL),
			"message":     ptrToNone(g.Message),
			"quantity":    g.Quantity,
		})
		total += g.Quantity
	}
	batch.Add(`UPDATE type::record($id) SET gift_count += $n`, map[string]interface{}{"id": memorialID, "n": total})

	_, err := batch.Run(ctx, r.db)
	return err
}

// ListGifts returns the gifts placed on a memorial, newest first
func (r *MemorialRepository) ListGifts(ctx context.Context, memorialID string, limit, offset int) ([]*model.MemorialGift, error) {
	limit, offset = page(limit, offset, 50, 200)
	query := `
		SELECT * FROM memorial_gifts WHERE memorial_id = $memorial_id
		ORDER BY created_on DESC LIMIT $limit START $offset
	`
	return selectMany(ctx, r.db, query,
		map[string]interface{}{"memorial_id": memorialID, "limit": limit, "offset": offset}, parseGift)
}
