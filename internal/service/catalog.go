package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/tidewell/catalog-search/pkg/errors"
	"github.com/tidewell/catalog-search/pkg/pagination"
	"github.com/tidewell/catalog-search/pkg/slug"

	"github.com/tidewell/catalog-search/internal/domain"
	"github.com/tidewell/catalog-search/internal/repository"
)

// CatalogService implements the Catalog contract directly against the
// product repository. It normalizes criteria before delegating, stamps ids
// and timestamps on writes, and publishes lifecycle events without letting
// a publish failure fail the write.
type CatalogService struct {
	repo   repository.ProductRepository
	events EventPublisher
	logger *slog.Logger
}

// NewCatalogService creates a new catalog service. events may be nil when
// event publishing is disabled.
func NewCatalogService(repo repository.ProductRepository, events EventPublisher, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:   repo,
		events: events,
		logger: logger,
	}
}

// Search normalizes the criteria and answers the query from the repository.
// An empty result is a success, never an error.
func (s *CatalogService) Search(ctx context.Context, criteria domain.SearchCriteria) (pagination.Result[domain.ProductView], error) {
	c := criteria.Normalize()

	products, total, err := s.repo.Search(ctx, c)
	if err != nil {
		return pagination.Result[domain.ProductView]{}, fmt.Errorf("search products: %w", err)
	}

	views := make([]domain.ProductView, len(products))
	for i := range products {
		views[i] = products[i].View()
	}

	s.logger.DebugContext(ctx, "search executed",
		slog.String("keyword", c.Keyword),
		slog.Int("page", c.Page),
		slog.Int("per_page", c.PerPage),
		slog.String("sort", string(c.Sort)),
		slog.Int("total", total),
	)

	return pagination.NewResult(views, total, c.Page, c.PerPage), nil
}

// GetByID retrieves a single product view by id.
func (s *CatalogService) GetByID(ctx context.Context, id string) (*domain.ProductView, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}

	view := product.View()
	return &view, nil
}

// Create adds a new product to the catalog. Both timestamps are set to the
// same instant; updated-at only moves on Update.
func (s *CatalogService) Create(ctx context.Context, input *CreateProductInput) (*domain.ProductView, error) {
	if err := validateName(input.Name); err != nil {
		return nil, err
	}
	if err := validateCategory(input.Category); err != nil {
		return nil, err
	}
	if err := validateDescription(input.Description); err != nil {
		return nil, err
	}
	if input.Price < 0 {
		return nil, apperrors.InvalidInput("price must not be negative")
	}
	if input.Stock < 0 {
		return nil, apperrors.InvalidInput("stock must not be negative")
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Slug:        slug.Generate(input.Name),
		Description: input.Description,
		Category:    input.Category,
		Price:       input.Price,
		Stock:       input.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishProductCreated(ctx, product); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish product.created event",
				slog.String("product_id", product.ID),
				slog.String("error", err.Error()),
			)
			// Do not fail the operation if event publishing fails.
		}
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
	)

	view := product.View()
	return &view, nil
}

// Update applies partial changes to an existing product. created-at is
// immutable; updated-at is refreshed.
func (s *CatalogService) Update(ctx context.Context, id string, input *UpdateProductInput) (*domain.ProductView, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	if input.Name != nil {
		if err := validateName(*input.Name); err != nil {
			return nil, err
		}
		product.Name = *input.Name
		product.Slug = slug.Generate(*input.Name)
	}

	if input.Description != nil {
		if err := validateDescription(*input.Description); err != nil {
			return nil, err
		}
		product.Description = *input.Description
	}

	if input.Category != nil {
		if err := validateCategory(*input.Category); err != nil {
			return nil, err
		}
		product.Category = *input.Category
	}

	if input.Price != nil {
		if *input.Price < 0 {
			return nil, apperrors.InvalidInput("price must not be negative")
		}
		product.Price = *input.Price
	}

	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, apperrors.InvalidInput("stock must not be negative")
		}
		product.Stock = *input.Stock
	}

	product.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishProductUpdated(ctx, product); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish product.updated event",
				slog.String("product_id", product.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
	)

	view := product.View()
	return &view, nil
}

// Delete removes a product by its id.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishProductDeleted(ctx, id); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish product.deleted event",
				slog.String("product_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("product_id", id),
	)

	return nil
}

func validateName(name string) error {
	if name == "" {
		return apperrors.InvalidInput("product name is required")
	}
	if len(name) > domain.MaxNameLength {
		return apperrors.InvalidInput(fmt.Sprintf("product name must be at most %d characters", domain.MaxNameLength))
	}
	return nil
}

func validateCategory(category string) error {
	if category == "" {
		return apperrors.InvalidInput("product category is required")
	}
	if len(category) > domain.MaxCategoryLength {
		return apperrors.InvalidInput(fmt.Sprintf("product category must be at most %d characters", domain.MaxCategoryLength))
	}
	return nil
}

func validateDescription(description string) error {
	if len(description) > domain.MaxDescriptionLength {
		return apperrors.InvalidInput(fmt.Sprintf("product description must be at most %d characters", domain.MaxDescriptionLength))
	}
	return nil
}
