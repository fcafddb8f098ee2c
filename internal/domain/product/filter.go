package product

import (
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
	SortName      SortKey = "name"
)

var SortKeys = []SortKey{SortNewest, SortPriceLow, SortPriceHigh, SortName}

// PriceRange bounds are inclusive; 0 leaves that side open.
type PriceRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type FilterConfig struct {
	PriceRange  PriceRange `json:"priceRange"`
	PatternType string     `json:"patternType"`
	Color       string     `json:"color"`
	SortBy      SortKey    `json:"sortBy"`
}

// ApplyFilters returns the products matching cfg in the requested order.
// The input is not modified. Newest (and any unknown key) keeps input order,
// which the catalog already delivers newest first.
func ApplyFilters(products []Product, cfg FilterConfig) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if cfg.PatternType != "" && p.PatternType != cfg.PatternType {
			continue
		}
		if cfg.Color != "" && !p.HasColor(cfg.Color) {
			continue
		}
		if cfg.PriceRange.Min > 0 && p.Price < cfg.PriceRange.Min {
			continue
		}
		if cfg.PriceRange.Max > 0 && p.Price > cfg.PriceRange.Max {
			continue
		}
		out = append(out, p)
	}

	switch cfg.SortBy {
	case SortPriceLow:
		slices.SortStableFunc(out, func(a, b Product) int { return a.Price - b.Price })
	case SortPriceHigh:
		slices.SortStableFunc(out, func(a, b Product) int { return b.Price - a.Price })
	case SortName:
		// Collators keep internal buffers and are not safe to share.
		c := collate.New(language.English)
		slices.SortStableFunc(out, func(a, b Product) int { return c.CompareString(a.Name, b.Name) })
	}
	return out
}
