package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/forgo/haven/api/internal/model"
)

// ProductSeeder inserts catalog products that are not in the store yet
type ProductSeeder interface {
	EnsureProductBySKU(ctx context.Context, p *model.Product) (bool, error)
}

// SeedResult reports what a seeding pass did
type SeedResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// SeedProducts makes sure every catalog product exists, keyed by sku.
// Products already present are skipped so admin edits survive restarts.
func SeedProducts(ctx context.Context, repo ProductSeeder, products []*model.Product) (*SeedResult, error) {
	res := &SeedResult{}
	for _, p := range products {
		created, err := repo.EnsureProductBySKU(ctx, p)
		if err != nil {
			return res, fmt.Errorf("seed product %s: %w", stringValue(p.SKU), err)
		}
		if created {
			res.Created++
		} else {
			res.Skipped++
		}
	}
	slog.Info("catalog products seeded",
		slog.Int("created", res.Created),
		slog.Int("skipped", res.Skipped))
	return res, nil
}
