package domain

import (
	"time"
)

// Bounds for product text fields, enforced at the HTTP boundary and
// re-checked by the service layer.
const (
	MaxNameLength        = 500
	MaxDescriptionLength = 5000
	MaxCategoryLength    = 200
)

// Product represents a product record in the catalog. Prices are integer
// minor units (cents) to keep fixed fractional precision.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       int64     `json:"price"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductView is the outward projection of a product. It carries no
// internal-only fields, so it is safe to serialize and to cache.
type ProductView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       int64     `json:"price"`
	Stock       int       `json:"stock"`
	InStock     bool      `json:"in_stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// View projects the product to its outward representation.
func (p *Product) View() ProductView {
	return ProductView{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		Stock:       p.Stock,
		InStock:     p.Stock > 0,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
