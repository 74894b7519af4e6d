package orders

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lamnt/fashionstore/internal/contracts"
)

// Repository handles read access to order history.
// Line items resolve to catalog products through the
// SKU -> product color -> product chain; items that do not resolve are
// dropped by the inner joins, and orders left with no items are skipped.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// RecentTransactions returns transactions built from completed or delivered
// orders, newest first. limit 0 means all qualifying orders.
func (r *Repository) RecentTransactions(ctx context.Context, limit int) ([]contracts.Transaction, error) {
	query := `
		SELECT
			o.order_id,
			p.product_id,
			COALESCE(od.quantity, 1),
			COALESCE(p.price, 0)
		FROM shop.orders o
		JOIN shop.order_details od ON od.order_id = o.order_id
		JOIN shop.product_size_stocks ss ON ss.sku = od.sku
		JOIN shop.product_colors pc ON pc.color_id = ss.color_id
		JOIN shop.products p ON p.product_id = pc.product_id
		WHERE o.order_status = 'completed'
		   OR o.shipping_status = 'delivered'
		ORDER BY o.created_at DESC, o.order_id DESC, od.order_detail_id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query order transactions: %w", err)
	}
	defer rows.Close()

	// Rows arrive grouped by order; fold consecutive rows of the same
	// order into one transaction.
	transactions := make([]contracts.Transaction, 0)
	var current *contracts.Transaction

	for rows.Next() {
		var orderID int
		var item contracts.TransactionItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}

		if current == nil || current.OrderID != orderID {
			if limit > 0 && len(transactions) == limit {
				break
			}
			transactions = append(transactions, contracts.Transaction{OrderID: orderID})
			current = &transactions[len(transactions)-1]
		}
		current.Items = append(current.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}

	return transactions, nil
}
