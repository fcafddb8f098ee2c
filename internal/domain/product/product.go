package product

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidName     = errors.New("Product name is required")
	ErrInvalidPrice    = errors.New("Price must be greater than 0")
	ErrInvalidStock    = errors.New("stock cannot be negative")
	ErrInvalidSlug     = errors.New("slug must be lowercase letters, digits and hyphens")
	ErrInvalidOption   = errors.New("invalid option")
	ErrSlugTaken       = errors.New("slug already in use")
	ErrEmptyPatch      = errors.New("nothing to update")
)

// Product is a catalog entry as stored and served.
type Product struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Price       int       `json:"price" db:"price"`
	Description string    `json:"description" db:"description"`
	Images      []string  `json:"images" db:"-"`
	PatternType string    `json:"patternType" db:"pattern_type"`
	Size        string    `json:"size" db:"size"`
	Material    string    `json:"material" db:"material"`
	Colors      []string  `json:"colors" db:"-"`
	Featured    bool      `json:"featured" db:"featured"`
	Stock       int       `json:"stock" db:"stock"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// PrimaryImage returns the first image URL or "".
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// HasColor reports whether color is one of the product's colors.
func (p Product) HasColor(color string) bool {
	return slices.Contains(p.Colors, color)
}

// Input is the admin form for a new product. Slug is derived from Name when empty.
type Input struct {
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Price       int      `json:"price"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	PatternType string   `json:"patternType"`
	Size        string   `json:"size"`
	Material    string   `json:"material"`
	Colors      []string `json:"colors"`
	Featured    bool     `json:"featured"`
	Stock       int      `json:"stock"`
}

// Normalize trims text fields and fills the slug from the name.
func (in *Input) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Slug = strings.TrimSpace(in.Slug)
	if in.Slug == "" {
		in.Slug = Slugify(in.Name)
	}
	if in.Images == nil {
		in.Images = []string{}
	}
	if in.Colors == nil {
		in.Colors = []string{}
	}
}

func (in Input) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrInvalidName
	}
	if in.Price <= 0 {
		return ErrInvalidPrice
	}
	if in.Stock < 0 {
		return ErrInvalidStock
	}
	if !IsValidSlug(in.Slug) {
		return ErrInvalidSlug
	}
	return validateOptions(in.PatternType, in.Size, in.Material, in.Colors)
}

// Product builds the stored form. The store assigns id and timestamps.
func (in Input) Product(id string, now time.Time) Product {
	return Product{
		ID:          id,
		Name:        in.Name,
		Slug:        in.Slug,
		Price:       in.Price,
		Description: in.Description,
		Images:      slices.Clone(in.Images),
		PatternType: in.PatternType,
		Size:        in.Size,
		Material:    in.Material,
		Colors:      slices.Clone(in.Colors),
		Featured:    in.Featured,
		Stock:       in.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Name        *string   `json:"name,omitempty"`
	Slug        *string   `json:"slug,omitempty"`
	Price       *int      `json:"price,omitempty"`
	Description *string   `json:"description,omitempty"`
	Images      *[]string `json:"images,omitempty"`
	PatternType *string   `json:"patternType,omitempty"`
	Size        *string   `json:"size,omitempty"`
	Material    *string   `json:"material,omitempty"`
	Colors      *[]string `json:"colors,omitempty"`
	Featured    *bool     `json:"featured,omitempty"`
	Stock       *int      `json:"stock,omitempty"`
}

func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

func (p Patch) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyPatch
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return ErrInvalidName
	}
	if p.Price != nil && *p.Price <= 0 {
		return ErrInvalidPrice
	}
	if p.Stock != nil && *p.Stock < 0 {
		return ErrInvalidStock
	}
	if p.Slug != nil && !IsValidSlug(*p.Slug) {
		return ErrInvalidSlug
	}
	var colors []string
	if p.Colors != nil {
		colors = *p.Colors
	}
	return validateOptions(deref(p.PatternType), deref(p.Size), deref(p.Material), colors)
}

// Apply copies the set fields onto prod and stamps UpdatedAt.
func (p Patch) Apply(prod *Product, now time.Time) {
	if p.Name != nil {
		prod.Name = strings.TrimSpace(*p.Name)
	}
	if p.Slug != nil {
		prod.Slug = *p.Slug
	}
	if p.Price != nil {
		prod.Price = *p.Price
	}
	if p.Description != nil {
		prod.Description = *p.Description
	}
	if p.Images != nil {
		prod.Images = slices.Clone(*p.Images)
	}
	if p.PatternType != nil {
		prod.PatternType = *p.PatternType
	}
	if p.Size != nil {
		prod.Size = *p.Size
	}
	if p.Material != nil {
		prod.Material = *p.Material
	}
	if p.Colors != nil {
		prod.Colors = slices.Clone(*p.Colors)
	}
	if p.Featured != nil {
		prod.Featured = *p.Featured
	}
	if p.Stock != nil {
		prod.Stock = *p.Stock
	}
	prod.UpdatedAt = now
}

// IsValidationError reports whether err came from input validation.
func IsValidationError(err error) bool {
	for _, target := range []error{ErrInvalidName, ErrInvalidPrice, ErrInvalidStock, ErrInvalidSlug, ErrInvalidOption, ErrEmptyPatch} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func validateOptions(patternType, size, material string, colors []string) error {
	if patternType != "" && !slices.Contains(PatternTypes, patternType) {
		return fmt.Errorf("%w: pattern type %q", ErrInvalidOption, patternType)
	}
	if size != "" && !slices.Contains(Sizes, size) {
		return fmt.Errorf("%w: size %q", ErrInvalidOption, size)
	}
	if material != "" && !slices.Contains(Materials, material) {
		return fmt.Errorf("%w: material %q", ErrInvalidOption, material)
	}
	for _, c := range colors {
		if !slices.Contains(Colors, c) {
			return fmt.Errorf("%w: color %q", ErrInvalidOption, c)
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
