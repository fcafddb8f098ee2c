package query

import (
	"context"

	"go.uber.org/zap"

	"github.com/dearher/bagstore/internal/catalog"
	"github.com/dearher/bagstore/internal/domain/product"
)

// Snapshotter serves the cached catalog. *catalog.Hub satisfies it.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]product.Product, error)
}

// Handler answers catalog reads. Listings come from the live snapshot;
// single lookups and the featured list go to the store.
type Handler struct {
	snapshots Snapshotter
	store     catalog.Store
	featured  int
	log       *zap.Logger
}

func NewHandler(snapshots Snapshotter, store catalog.Store, featuredLimit int, log *zap.Logger) *Handler {
	if featuredLimit <= 0 {
		featuredLimit = catalog.DefaultFeaturedLimit
	}
	return &Handler{snapshots: snapshots, store: store, featured: featuredLimit, log: log.Named("query")}
}

// Products
func (h *Handler) ListProducts(ctx context.Context, cfg product.FilterConfig) ([]product.Product, error) {
	products, err := h.snapshots.Snapshot(ctx)
	if err != nil {
		h.log.Error("listing products", zap.Error(err))
		return nil, err
	}
	return product.ApplyFilters(products, cfg), nil
}

// ListAllProducts returns the unfiltered catalog, newest first (for admin use)
func (h *Handler) ListAllProducts(ctx context.Context) ([]product.Product, error) {
	return h.snapshots.Snapshot(ctx)
}

func (h *Handler) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	return h.store.GetByID(ctx, id)
}

func (h *Handler) GetProductBySlug(ctx context.Context, slug string) (*product.Product, error) {
	return h.store.GetBySlug(ctx, slug)
}

// FeaturedProducts returns up to limit featured products; limit <= 0 uses
// the configured default.
func (h *Handler) FeaturedProducts(ctx context.Context, limit int) ([]product.Product, error) {
	if limit <= 0 {
		limit = h.featured
	}
	products, err := h.store.ListFeatured(ctx, limit)
	if err != nil {
		h.log.Error("listing featured products", zap.Error(err))
		return nil, err
	}
	return products, nil
}

// Options
func (h *Handler) Options() product.Options {
	return product.CatalogOptions()
}
