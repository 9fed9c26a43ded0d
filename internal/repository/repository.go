package repository

import (
	"context"

	"github.com/tidewell/catalog-search/internal/domain"
)

// ProductRepository defines the persistence contract for the catalog.
//
// Search evaluates the criteria's full predicate conjunction, orders the
// matching set (relevance when a keyword is present, the explicit sort key
// otherwise, with name/id tie-breaks either way), and returns the requested
// page along with the total match count before pagination. Criteria are
// expected to be normalized.
type ProductRepository interface {
	// Create inserts a new product into the store.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// Search returns one page of matching products plus the pre-pagination
	// total count.
	Search(ctx context.Context, criteria domain.SearchCriteria) ([]domain.Product, int, error)

	// Update modifies an existing product in the store.
	Update(ctx context.Context, product *domain.Product) error

	// Delete removes a product from the store by its identifier.
	Delete(ctx context.Context, id string) error
}
