package product

import "github.com/gosimple/slug"

var PatternTypes = []string{
	"Floral",
	"Abstract",
	"Geometric",
	"Vintage",
	"Minimalist",
	"Artistic Print",
	"Solid",
	"Embroidered",
	"Handpainted",
}

var Colors = []string{
	"Ivory",
	"Beige",
	"Blush Pink",
	"Dusty Rose",
	"Sage Green",
	"Lavender",
	"Champagne",
	"Pearl White",
	"Nude",
	"Mauve",
	"Terracotta",
	"Burgundy",
	"Black",
	"Navy",
	"Olive",
}

var Sizes = []string{"Small", "Medium", "Large"}

var Materials = []string{
	"Premium Faux Leather",
	"Vegan Leather",
	"Canvas",
	"Cotton",
	"Linen",
	"Jute",
	"Silk Blend",
}

// Options is the catalog vocabulary served to admin forms and shop filters.
type Options struct {
	PatternTypes []string  `json:"patternTypes"`
	Colors       []string  `json:"colors"`
	Sizes        []string  `json:"sizes"`
	Materials    []string  `json:"materials"`
	SortBy       []SortKey `json:"sortBy"`
}

func CatalogOptions() Options {
	return Options{
		PatternTypes: PatternTypes,
		Colors:       Colors,
		Sizes:        Sizes,
		Materials:    Materials,
		SortBy:       SortKeys,
	}
}

// Slugify derives a URL-safe identifier: lowercase ASCII, hyphen separated.
func Slugify(name string) string {
	return slug.Make(name)
}

func IsValidSlug(s string) bool {
	return slug.IsSlug(s)
}
