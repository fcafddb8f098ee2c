package command

import (
	"github.com/dearher/bagstore/internal/domain/product"
	"github.com/dearher/bagstore/internal/infrastructure/upload"
)

// Product Commands
type CreateProduct struct {
	Input product.Input
}

type UpdateProduct struct {
	ProductID string
	Patch     product.Patch
}

type DeleteProduct struct {
	ProductID string
}

type ToggleFeatured struct {
	ProductID string `json:"-"`
	Featured  bool   `json:"featured"`
}

// Image Commands
type UploadImages struct {
	Folder string
	Images []upload.Image
}
