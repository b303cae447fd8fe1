package product

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidName     = errors.New("product name is required")
	ErrInvalidPrice    = errors.New("product price must be positive")
)

// Variant is a purchasable box option of a product (e.g. "Boxed set of 8").
type Variant struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	SKU   string `json:"sku,omitempty"`
	Price int64  `json:"price"` // minor currency units
}

// Product is a catalog entry. Prices here are live; carts snapshot the price
// at add time and are never affected by later edits.
type Product struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Image       string    `json:"image,omitempty"`
	Price       int64     `json:"price"` // base price, minor currency units
	SKU         string    `json:"sku,omitempty"`
	Variants    []Variant `json:"variants,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PriceFor resolves the unit price for a variant id; an empty or unknown
// variant id falls back to the base price.
func (p *Product) PriceFor(variantID string) int64 {
	if variantID == "" {
		return p.Price
	}
	for _, v := range p.Variants {
		if v.ID == variantID {
			return v.Price
		}
	}
	return p.Price
}

// Validate checks the fields required before a product may be stored.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrInvalidName
	}
	if p.Price <= 0 {
		return ErrInvalidPrice
	}
	for _, v := range p.Variants {
		if v.Price <= 0 {
			return ErrInvalidPrice
		}
	}
	return nil
}

var slugStrip = regexp.MustCompile(`[^\w\s-]`)
var slugDashes = regexp.MustCompile(`[\s_-]+`)

// Slugify builds a URL-friendly slug from a product name.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugStrip.ReplaceAllString(s, "")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
