package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/tidewell/catalog-search/pkg/database"
	apperrors "github.com/tidewell/catalog-search/pkg/errors"

	"github.com/tidewell/catalog-search/internal/domain"
)

const productColumns = "id, name, slug, description, category, price, stock, created_at, updated_at"

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	ctx, end := database.TraceQuery(ctx, "CreateProduct", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Slug,
		p.Description,
		p.Category,
		p.Price,
		p.Stock,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "id", p.ID)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (product *domain.Product, err error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetProduct", query)
	defer func() { end(err) }()

	var p domain.Product
	err = r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Category,
		&p.Price,
		&p.Stock,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	return &p, nil
}

// Search filters, orders, and paginates the catalog in a single query,
// using count(*) OVER() for the pre-pagination total.
func (r *ProductRepository) Search(ctx context.Context, c domain.SearchCriteria) (products []domain.Product, total int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if c.HasKeyword() {
		pattern := "%" + escapeLike(c.Keyword) + "%"
		conditions = append(conditions, fmt.Sprintf(
			"(name ILIKE $%d OR description ILIKE $%d OR category ILIKE $%d)",
			argIndex, argIndex, argIndex,
		))
		args = append(args, pattern)
		argIndex++
	}

	if c.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price >= $%d", argIndex))
		args = append(args, *c.MinPrice)
		argIndex++
	}

	if c.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price <= $%d", argIndex))
		args = append(args, *c.MaxPrice)
		argIndex++
	}

	if c.InStock != nil {
		if *c.InStock {
			conditions = append(conditions, "stock > 0")
		} else {
			conditions = append(conditions, "stock = 0")
		}
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// The WHERE clause and its args are fixed here; ordering and paging
	// placeholders come after so the count fallback below can reuse them.
	filterArgs := args[:len(args):len(args)]

	var orderBy string
	if c.HasKeyword() {
		// Relevance tiers as an ordering expression: exact name, name
		// prefix, exact category, category prefix, then everything else
		// that matched the predicate. Mirrors domain.Rank.
		orderBy = fmt.Sprintf(`CASE
			WHEN lower(name) = $%d THEN 1
			WHEN lower(name) LIKE $%d THEN 2
			WHEN lower(category) = $%d THEN 3
			WHEN lower(category) LIKE $%d THEN 4
			ELSE 5
		END ASC, lower(name) ASC, id ASC`, argIndex, argIndex+1, argIndex, argIndex+1)
		args = append(args, c.Keyword, escapeLike(c.Keyword)+"%")
		argIndex += 2
	} else {
		orderBy = sortExpression(c.Sort)
	}

	query := fmt.Sprintf(`
		SELECT `+productColumns+`,
			   count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		whereClause, orderBy, argIndex, argIndex+1,
	)

	args = append(args, c.PerPage, c.Offset())

	ctx, end := database.TraceQuery(ctx, "SearchProducts", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Product
		if err = rows.Scan(
			&p.ID,
			&p.Name,
			&p.Slug,
			&p.Description,
			&p.Category,
			&p.Price,
			&p.Stock,
			&p.CreatedAt,
			&p.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	// count(*) OVER() is only readable from returned rows, so a page past
	// the end of the filtered set loses the total. Recover it with a plain
	// count over the same predicate; the offset guard keeps the common
	// genuinely-no-matches case to a single round trip.
	if len(products) == 0 && c.Offset() > 0 {
		countQuery := "SELECT count(*) FROM products " + whereClause
		if err = r.db.QueryRow(ctx, countQuery, filterArgs...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count products: %w", err)
		}
	}

	if products == nil {
		products = []domain.Product{}
	}

	return products, total, nil
}

// Update modifies an existing product in the database.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) (err error) {
	query := `
		UPDATE products
		SET name = $1, slug = $2, description = $3, category = $4,
		    price = $5, stock = $6, updated_at = $7
		WHERE id = $8`

	ctx, end := database.TraceQuery(ctx, "UpdateProduct", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query,
		p.Name,
		p.Slug,
		p.Description,
		p.Category,
		p.Price,
		p.Stock,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}

	return nil
}

// Delete removes a product from the database by its ID.
func (r *ProductRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM products WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteProduct", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}

	return nil
}

// sortExpression maps a sort key to its ORDER BY expression. Every variant
// falls through to lower(name), id so pagination stays deterministic when
// the primary key has duplicates. Sort keys come from the fixed domain
// enum, never from raw request input.
func sortExpression(sort domain.SortKey) string {
	switch sort {
	case domain.SortNameDesc:
		return "lower(name) DESC, id ASC"
	case domain.SortPrice:
		return "price ASC, lower(name) ASC, id ASC"
	case domain.SortPriceDesc:
		return "price DESC, lower(name) ASC, id ASC"
	case domain.SortCreated:
		return "created_at ASC, lower(name) ASC, id ASC"
	case domain.SortCreatedDesc:
		return "created_at DESC, lower(name) ASC, id ASC"
	case domain.SortStock:
		return "stock ASC, lower(name) ASC, id ASC"
	case domain.SortStockDesc:
		return "stock DESC, lower(name) ASC, id ASC"
	default:
		return "lower(name) ASC, id ASC"
	}
}

// escapeLike escapes LIKE/ILIKE metacharacters in a keyword so user input
// is always matched literally. Postgres uses backslash as the default
// escape character.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
