// Package catalog defines the product store contract and the live snapshot hub.
package catalog

import (
	"context"

	"github.com/dearher/bagstore/internal/domain/product"
)

const DefaultFeaturedLimit = 8

// Store is the catalog source of truth. List and ListFeatured return
// newest first. Create and Update stamp timestamps. GetBySlug and GetByID
// return product.ErrProductNotFound when nothing matches.
type Store interface {
	List(ctx context.Context) ([]product.Product, error)
	GetBySlug(ctx context.Context, slug string) (*product.Product, error)
	GetByID(ctx context.Context, id string) (*product.Product, error)
	ListFeatured(ctx context.Context, limit int) ([]product.Product, error)
	Create(ctx context.Context, in product.Input) (string, error)
	Update(ctx context.Context, id string, patch product.Patch) error
	Delete(ctx context.Context, id string) error
}

// Notifier announces that the catalog changed.
type Notifier interface {
	Notify(ctx context.Context, event product.Changed) error
}

// ToggleFeatured is an Update touching only the featured flag.
func ToggleFeatured(ctx context.Context, s Store, id string, featured bool) error {
	return s.Update(ctx, id, product.Patch{Featured: &featured})
}
