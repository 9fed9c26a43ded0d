package memory

import (
	"context"
	"sort"
	"sync"

	apperrors "github.com/tidewell/catalog-search/pkg/errors"

	"github.com/tidewell/catalog-search/internal/domain"
)

// ProductRepository is an in-memory implementation of
// repository.ProductRepository. It evaluates the same filter, ordering, and
// pagination semantics as the postgres store, so it doubles as the reference
// implementation the engine tests pin down. Thread-safe via sync.RWMutex.
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

// NewProductRepository creates an empty in-memory product repository.
func NewProductRepository() *ProductRepository {
	return &ProductRepository{
		products: make(map[string]domain.Product),
	}
}

// Create inserts a new product. The id must not already exist.
func (r *ProductRepository) Create(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[p.ID]; ok {
		return apperrors.AlreadyExists("product", "id", p.ID)
	}

	r.products[p.ID] = *p
	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

// Search filters, orders, and paginates the catalog per the criteria,
// returning the page plus the total match count before pagination.
func (r *ProductRepository) Search(_ context.Context, c domain.SearchCriteria) ([]domain.Product, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]domain.Product, 0)
	for _, p := range r.products {
		if domain.Matches(c, &p) {
			matched = append(matched, p)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return domain.Less(c, &matched[i], &matched[j])
	})

	total := len(matched)

	offset := c.Offset()
	if offset > total {
		offset = total
	}
	end := offset + c.PerPage
	if end > total {
		end = total
	}

	page := make([]domain.Product, end-offset)
	copy(page, matched[offset:end])

	return page, total, nil
}

// Update modifies an existing product.
func (r *ProductRepository) Update(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[p.ID]; !ok {
		return apperrors.NotFound("product", p.ID)
	}

	r.products[p.ID] = *p
	return nil
}

// Delete removes a product by its ID.
func (r *ProductRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return apperrors.NotFound("product", id)
	}

	delete(r.products, id)
	return nil
}
