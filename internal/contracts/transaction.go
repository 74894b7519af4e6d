package contracts

// TransactionItem is one resolved line item of an order.
type TransactionItem struct {
	ProductID int     `json:"productID"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Transaction is the set of products purchased together in one order,
// the unit of co-occurrence analysis. An order contributes a transaction
// only if at least one of its line items resolved to a catalog product.
type Transaction struct {
	OrderID int               `json:"orderID"`
	Items   []TransactionItem `json:"items"`
}

// ProductIDs returns the product IDs of the transaction in line-item order,
// one ID per line item (quantity is not expanded).
func (t Transaction) ProductIDs() []int {
	ids := make([]int, 0, len(t.Items))
	for _, item := range t.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// ProfitTable maps productID to the positive integer weight ("utility")
// the miner assigns to the item. Derived from unit price.
type ProfitTable map[int]int
