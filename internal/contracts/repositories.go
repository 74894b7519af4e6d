package contracts

import "context"

// ProductReader provides read access to the product catalog.
type ProductReader interface {
	// GetByID returns the product with the given ID, active or not.
	GetByID(ctx context.Context, productID int) (*Product, error)

	// GetByIDs returns the products with the given IDs, keyed by productID,
	// regardless of activation state. Missing products are absent.
	GetByIDs(ctx context.Context, productIDs []int) (map[int]Product, error)

	// GetActiveByIDs returns the currently active products among the given
	// IDs, keyed by productID. Missing or deactivated products are absent.
	GetActiveByIDs(ctx context.Context, productIDs []int) (map[int]Product, error)

	// FindSimilar returns up to limit active products sharing both the
	// category and the target audience of the source, excluding the source.
	FindSimilar(ctx context.Context, source Product, limit int) ([]Product, error)

	// ListActive returns all currently active products.
	ListActive(ctx context.Context) ([]Product, error)
}

// OrderReader provides read access to order history, already resolved
// to catalog products through the SKU -> color -> product chain.
type OrderReader interface {
	// RecentTransactions returns transactions built from completed or
	// delivered orders, newest first. limit 0 means all. Line items whose
	// SKU chain does not resolve are dropped; orders with no remaining
	// items are skipped.
	RecentTransactions(ctx context.Context, limit int) ([]Transaction, error)
}
