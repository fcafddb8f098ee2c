package command

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/dearher/bagstore/internal/catalog"
	"github.com/dearher/bagstore/internal/domain/product"
	"github.com/dearher/bagstore/internal/infrastructure/upload"
)

// ImageStore keeps product images. *upload.S3Uploader satisfies it.
type ImageStore interface {
	Upload(ctx context.Context, folder string, images []upload.Image) ([]string, error)
	Delete(ctx context.Context, url string) error
}

// Handler runs admin catalog writes. Every successful write is followed by
// a change notification; a failed notification is logged, not returned,
// because the write itself already landed.
type Handler struct {
	store    catalog.Store
	notifier catalog.Notifier
	images   ImageStore
	log      *zap.Logger
}

func NewHandler(store catalog.Store, notifier catalog.Notifier, images ImageStore, log *zap.Logger) *Handler {
	return &Handler{
		store:    store,
		notifier: notifier,
		images:   images,
		log:      log.Named("command"),
	}
}

// CreateProduct validates, stores and announces a new product
func (h *Handler) CreateProduct(ctx context.Context, cmd CreateProduct) (*product.Product, error) {
	in := cmd.Input
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	id, err := h.store.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	p, err := h.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	h.log.Info("product created", zap.String("product_id", id), zap.String("slug", p.Slug))
	h.notify(ctx, product.NewChanged(product.EventProductCreated, id, p.Slug))
	return p, nil
}

// UpdateProduct applies a partial update. Images dropped from the product
// are removed from storage on a best-effort basis.
func (h *Handler) UpdateProduct(ctx context.Context, cmd UpdateProduct) (*product.Product, error) {
	if err := cmd.Patch.Validate(); err != nil {
		return nil, err
	}
	before, err := h.store.GetByID(ctx, cmd.ProductID)
	if err != nil {
		return nil, err
	}
	if err := h.store.Update(ctx, cmd.ProductID, cmd.Patch); err != nil {
		return nil, err
	}
	after, err := h.store.GetByID(ctx, cmd.ProductID)
	if err != nil {
		return nil, err
	}

	h.deleteImages(ctx, removedImages(before.Images, after.Images))
	h.log.Info("product updated", zap.String("product_id", cmd.ProductID))
	h.notify(ctx, product.NewChanged(product.EventProductUpdated, cmd.ProductID, after.Slug))
	return after, nil
}

// DeleteProduct removes the product and then its images.
func (h *Handler) DeleteProduct(ctx context.Context, cmd DeleteProduct) error {
	p, err := h.store.GetByID(ctx, cmd.ProductID)
	if err != nil {
		return err
	}
	if err := h.store.Delete(ctx, cmd.ProductID); err != nil {
		return err
	}

	h.deleteImages(ctx, p.Images)
	h.log.Info("product deleted", zap.String("product_id", cmd.ProductID))
	h.notify(ctx, product.NewChanged(product.EventProductDeleted, cmd.ProductID, p.Slug))
	return nil
}

func (h *Handler) ToggleFeatured(ctx context.Context, cmd ToggleFeatured) (*product.Product, error) {
	if err := catalog.ToggleFeatured(ctx, h.store, cmd.ProductID, cmd.Featured); err != nil {
		return nil, err
	}
	p, err := h.store.GetByID(ctx, cmd.ProductID)
	if err != nil {
		return nil, err
	}

	h.log.Info("product featured toggled", zap.String("product_id", cmd.ProductID), zap.Bool("featured", cmd.Featured))
	h.notify(ctx, product.NewChanged(product.EventProductFeaturedToggled, cmd.ProductID, p.Slug))
	return p, nil
}

// UploadImages stores images and returns their URLs in upload order.
func (h *Handler) UploadImages(ctx context.Context, cmd UploadImages) ([]string, error) {
	return h.images.Upload(ctx, cmd.Folder, cmd.Images)
}

func (h *Handler) notify(ctx context.Context, event product.Changed) {
	if err := h.notifier.Notify(ctx, event); err != nil {
		h.log.Error("catalog notification failed",
			zap.String("event", event.EventType),
			zap.String("product_id", event.ProductID),
			zap.Error(err),
		)
	}
}

func (h *Handler) deleteImages(ctx context.Context, urls []string) {
	for _, url := range urls {
		if err := h.images.Delete(ctx, url); err != nil {
			h.log.Warn("image cleanup failed", zap.String("url", url), zap.Error(err))
		}
	}
}

func removedImages(before, after []string) []string {
	var removed []string
	for _, url := range before {
		if !slices.Contains(after, url) {
			removed = append(removed, url)
		}
	}
	return removed
}
