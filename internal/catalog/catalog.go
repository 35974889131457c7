// Package catalog loads the sponsor tier and store product seed file.
//
// Sponsor tiers live only in the catalog. Products are inserted into the
// store on startup when their sku is not present yet; later edits made by
// admins are left alone.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/forgo/haven/api/internal/model"
)

// Product is a seed entry for the store
type Product struct {
	SKU         string            `yaml:"sku"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Kind        model.ProductKind `yaml:"kind"`
	PriceCents  int64             `yaml:"price_cents"`
	ImageURL    string            `yaml:"image_url"`
	AssetKey    string            `yaml:"asset_key"`
}

// Catalog is the parsed seed file
type Catalog struct {
	Tiers    []model.SponsorTier `yaml:"sponsor_tiers"`
	Products []Product           `yaml:"products"`

	byName map[model.SponsorTierName]*model.SponsorTier
}

// Load reads and validates the catalog at path
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates catalog YAML
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	// Highest weight first
	sort.SliceStable(c.Tiers, func(i, j int) bool { return c.Tiers[i].Weight > c.Tiers[j].Weight })

	c.byName = make(map[model.SponsorTierName]*model.SponsorTier, len(c.Tiers))
	for i := range c.Tiers {
		c.byName[c.Tiers[i].Name] = &c.Tiers[i]
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	var errs []error

	seenTier := map[model.SponsorTierName]bool{}
	for i, t := range c.Tiers {
		if !t.Name.IsValid() {
			errs = append(errs, fmt.Errorf("sponsor_tiers[%d]: unknown tier %q", i, t.Name))
		}
		if seenTier[t.Name] {
			errs = append(errs, fmt.Errorf("sponsor_tiers[%d]: duplicate tier %q", i, t.Name))
		}
		seenTier[t.Name] = true
		if t.MonthlyCents <= 0 {
			errs = append(errs, fmt.Errorf("sponsor_tiers[%d]: monthly_cents must be positive", i))
		}
		if len(t.Placements) == 0 {
			errs = append(errs, fmt.Errorf("sponsor_tiers[%d]: at least one placement required", i))
		}
	}

	seenSKU := map[string]bool{}
	for i, p := range c.Products {
		if p.SKU == "" {
			errs = append(errs, fmt.Errorf("products[%d]: sku is required", i))
		}
		if seenSKU[p.SKU] {
			errs = append(errs, fmt.Errorf("products[%d]: duplicate sku %q", i, p.SKU))
		}
		seenSKU[p.SKU] = true
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("products[%d]: name is required", i))
		}
		if p.Kind != model.ProductDigitalGift && p.Kind != model.ProductDonation {
			errs = append(errs, fmt.Errorf("products[%d]: unknown kind %q", i, p.Kind))
		}
		if p.PriceCents <= 0 {
			errs = append(errs, fmt.Errorf("products[%d]: price_cents must be positive", i))
		}
	}

	return errors.Join(errs...)
}

// Tier returns the named tier
func (c *Catalog) Tier(name model.SponsorTierName) (*model.SponsorTier, bool) {
	t, ok := c.byName[name]
	return t, ok
}

// SponsorTiers returns all tiers ordered by weight, highest first
func (c *Catalog) SponsorTiers() []model.SponsorTier {
	out := make([]model.SponsorTier, len(c.Tiers))
	copy(out, c.Tiers)
	return out
}

// SeedProduct converts a seed entry to a store product in currency
func (p Product) SeedProduct(currency string) *model.Product {
	prod := &model.Product{
		SKU:        &p.SKU,
		Name:       p.Name,
		Kind:       p.Kind,
		PriceCents: p.PriceCents,
		Currency:   currency,
		IsActive:   true,
	}
	if p.Description != "" {
		prod.Description = &p.Description
	}
	if p.ImageURL != "" {
		prod.ImageURL = &p.ImageURL
	}
	if p.AssetKey != "" {
		prod.AssetKey = &p.AssetKey
		prod.HasDownload = true
	}
	return prod
}
