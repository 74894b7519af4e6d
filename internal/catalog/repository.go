package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lamnt/fashionstore/internal/contracts"
)

// ErrNotFound is returned when a product does not exist in the catalog.
var ErrNotFound = errors.New("product not found")

// Repository handles read access to the product catalog
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Pool returns the underlying database pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.db
}

const productColumns = `
	product_id,
	name,
	COALESCE(price, 0),
	COALESCE(thumbnail, ''),
	category_id,
	target_id,
	is_activated
`

// GetByID returns the product with the given ID, active or not
func (r *Repository) GetByID(ctx context.Context, productID int) (*contracts.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM shop.products
		WHERE product_id = $1
	`

	var p contracts.Product
	err := r.db.QueryRow(ctx, query, productID).Scan(
		&p.ProductID,
		&p.Name,
		&p.Price,
		&p.Thumbnail,
		&p.CategoryID,
		&p.TargetID,
		&p.Activated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query product %d: %w", productID, err)
	}

	return &p, nil
}

// GetByIDs returns the products with the given IDs regardless of
// activation state
func (r *Repository) GetByIDs(ctx context.Context, productIDs []int) (map[int]contracts.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM shop.products
		WHERE product_id = ANY($1)
	`
	return r.queryProductMap(ctx, query, productIDs)
}

// GetActiveByIDs returns the currently active products among the given IDs
func (r *Repository) GetActiveByIDs(ctx context.Context, productIDs []int) (map[int]contracts.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM shop.products
		WHERE product_id = ANY($1)
		  AND is_activated = TRUE
	`
	return r.queryProductMap(ctx, query, productIDs)
}

func (r *Repository) queryProductMap(ctx context.Context, query string, productIDs []int) (map[int]contracts.Product, error) {
	result := make(map[int]contracts.Product, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	rows, err := r.db.Query(ctx, query, productIDs)
	if err != nil {
		return nil, fmt.Errorf("query products by id: %w", err)
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}

	for _, p := range products {
		result[p.ProductID] = p
	}

	return result, nil
}

// FindSimilar returns up to limit active products sharing both the category
// and the target audience of the source, excluding the source itself.
// This is the attribute-similarity fallback used when no mined correlation
// data exists for a product.
func (r *Repository) FindSimilar(ctx context.Context, source contracts.Product, limit int) ([]contracts.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM shop.products
		WHERE product_id <> $1
		  AND category_id = $2
		  AND target_id = $3
		  AND is_activated = TRUE
		ORDER BY product_id
		LIMIT $4
	`

	rows, err := r.db.Query(ctx, query, source.ProductID, source.CategoryID, source.TargetID, limit)
	if err != nil {
		return nil, fmt.Errorf("query similar products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// ListActive returns all currently active products
func (r *Repository) ListActive(ctx context.Context) ([]contracts.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM shop.products
		WHERE is_activated = TRUE
		ORDER BY product_id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query active products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func scanProducts(rows pgx.Rows) ([]contracts.Product, error) {
	products := make([]contracts.Product, 0)
	for rows.Next() {
		var p contracts.Product
		if err := rows.Scan(
			&p.ProductID,
			&p.Name,
			&p.Price,
			&p.Thumbnail,
			&p.CategoryID,
			&p.TargetID,
			&p.Activated,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}
