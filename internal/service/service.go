package service

import (
	"context"

	"github.com/tidewell/catalog-search/pkg/pagination"

	"github.com/tidewell/catalog-search/internal/domain"
)

// Catalog is the capability contract the HTTP layer consumes. CatalogService
// implements it directly; CachedCatalog wraps any implementer with a
// read-through cache, so the two compose without the transport knowing
// which one it holds.
type Catalog interface {
	// Search answers a filtered, ranked, paginated query.
	Search(ctx context.Context, criteria domain.SearchCriteria) (pagination.Result[domain.ProductView], error)

	// GetByID retrieves a single product view by id.
	GetByID(ctx context.Context, id string) (*domain.ProductView, error)

	// Create adds a product to the catalog.
	Create(ctx context.Context, input *CreateProductInput) (*domain.ProductView, error)

	// Update applies partial changes to an existing product.
	Update(ctx context.Context, id string, input *UpdateProductInput) (*domain.ProductView, error)

	// Delete removes a product by id.
	Delete(ctx context.Context, id string) error
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name        string
	Description string
	Category    string
	Price       int64
	Stock       int
}

// UpdateProductInput holds the parameters for updating a product.
// Nil fields are left unchanged.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Category    *string
	Price       *int64
	Stock       *int
}

// EventPublisher publishes product lifecycle events. The concrete
// implementation lives in internal/event; tests substitute a mock.
type EventPublisher interface {
	PublishProductCreated(ctx context.Context, product *domain.Product) error
	PublishProductUpdated(ctx context.Context, product *domain.Product) error
	PublishProductDeleted(ctx context.Context, id string) error
}
