package cart

import (
	"errors"

	"github.com/dearher/bagstore/internal/domain/product"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidProduct  = errors.New("product id is required")
	ErrCorruptCart     = errors.New("stored cart is not a valid line list")
	ErrCartUnavailable = errors.New("cart storage unavailable")
)

// Line is one cart entry. Name, slug, price and image are snapshots taken
// when the line was first added. JSON names match the stored cart format.
type Line struct {
	ProductID string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Price     int    `json:"price"`
	Image     string `json:"image"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

// NewLine snapshots p for the cart.
func NewLine(p product.Product, color, size string, quantity int) Line {
	return Line{
		ProductID: p.ID,
		Name:      p.Name,
		Slug:      p.Slug,
		Price:     p.Price,
		Image:     p.PrimaryImage(),
		Color:     color,
		Size:      size,
		Quantity:  quantity,
	}
}

// Subtotal is price times quantity.
func (l Line) Subtotal() int {
	return l.Price * l.Quantity
}

// matches reports whether l has the identity key (productID, color).
// Size is deliberately not part of the key.
func (l Line) matches(productID, color string) bool {
	return l.ProductID == productID && l.Color == color
}
