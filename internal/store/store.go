// Package store persists the product catalog.
package store

import (
	"context"
	"time"
)

// ProductStore is an interface for product storage operations.
// Every read returns copies, so callers can never mutate stored state.
type ProductStore interface {
	// FindAll returns every product in storage order.
	// Returns an empty slice if the catalog is empty.
	FindAll(ctx context.Context) ([]Product, error)

	// FindBySlug returns the first product whose slug matches exactly.
	// Returns ErrProductNotFound if no product has the slug.
	FindBySlug(ctx context.Context, slug string) (*Product, error)

	// FindByID retrieves a single product by its identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id string) (*Product, error)

	// Create assigns the next id, stamps lastUpdated and persists the product.
	Create(ctx context.Context, product NewProduct) (*Product, error)

	// Update merges the supplied fields into the stored product, keeps its id and
	// advances lastUpdated.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Update(ctx context.Context, id string, patch ProductPatch) (*Product, error)
}

// Product is the persisted catalog record.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	Inventory   int       `json:"inventory"`
	Image       string    `json:"image,omitempty"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// NewProduct carries the caller supplied fields of a product to create.
type NewProduct struct {
	Name        string
	Slug        string
	Description string
	Price       float64
	Category    string
	Inventory   int
	Image       string
}

// ProductPatch is a partial update; nil fields keep their stored value.
type ProductPatch struct {
	Name        *string
	Slug        *string
	Description *string
	Price       *float64
	Category    *string
	Inventory   *int
	Image       *string
}

// apply copies the non-nil fields onto p.
func (patch ProductPatch) apply(p *Product) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Slug != nil {
		p.Slug = *patch.Slug
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Inventory != nil {
		p.Inventory = *patch.Inventory
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
}

// nextStamp returns now, or one millisecond past prev when the clock has not moved beyond it.
func nextStamp(prev, now time.Time) time.Time {
	now = now.UTC()
	if !now.After(prev) {
		return prev.Add(time.Millisecond).UTC()
	}
	return now
}
