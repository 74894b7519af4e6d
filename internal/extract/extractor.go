package extract

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/lamnt/fashionstore/internal/contracts"
	"github.com/lamnt/fashionstore/pkg/config"
	"github.com/lamnt/fashionstore/pkg/logger"
)

// ErrNoTransactions is returned when order history yields no usable
// transactions. The pipeline must abort before mining in that case.
var ErrNoTransactions = errors.New("no qualifying order transactions")

// Extractor turns persisted order history into the miner's input format:
// a transaction file (one order per line, space-separated product IDs) and
// a profit file (one "productID profit" pair per line, ascending by ID).
type Extractor struct {
	orders contracts.OrderReader
	cfg    config.MiningConfig
	logger *logger.Logger
}

// Result summarizes one export run.
type Result struct {
	Orders           int    `json:"orders"`
	DistinctProducts int    `json:"distinctProducts"`
	TotalItems       int    `json:"totalItems"`
	TransactionPath  string `json:"transactionPath"`
	ProfitPath       string `json:"profitPath"`
}

// New creates a new Extractor
func New(orders contracts.OrderReader, cfg config.MiningConfig, log *logger.Logger) *Extractor {
	return &Extractor{
		orders: orders,
		cfg:    cfg,
		logger: log,
	}
}

// Build loads qualifying orders and derives the transaction set and the
// profit table. Profits come from unit prices rounded to integers; items
// whose price cannot be resolved get the configured default.
func (e *Extractor) Build(ctx context.Context, limit int) ([]contracts.Transaction, contracts.ProfitTable, error) {
	transactions, err := e.orders.RecentTransactions(ctx, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("load order transactions: %w", err)
	}

	if len(transactions) == 0 {
		return nil, nil, ErrNoTransactions
	}

	profits := make(contracts.ProfitTable)
	for _, tx := range transactions {
		for _, item := range tx.Items {
			if _, seen := profits[item.ProductID]; seen {
				continue
			}
			profit := int(math.Round(item.Price))
			if profit <= 0 {
				profit = e.cfg.DefaultProfit
			}
			profits[item.ProductID] = profit
		}
	}

	return transactions, profits, nil
}

// Export writes the two artifact files for the mining pipeline. The write
// is not transactional: a crash mid-write can leave an inconsistent pair,
// which the next mining stage surfaces as a parse failure.
func (e *Extractor) Export(ctx context.Context) (*Result, error) {
	transactions, profits, err := e.Build(ctx, e.cfg.OrderLimit)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(e.cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	result := &Result{
		Orders:           len(transactions),
		DistinctProducts: len(profits),
		TransactionPath:  filepath.Join(e.cfg.DataDir, e.cfg.TransactionFile),
		ProfitPath:       filepath.Join(e.cfg.DataDir, e.cfg.ProfitFile),
	}

	for _, tx := range transactions {
		result.TotalItems += len(tx.Items)
	}

	if err := writeTransactionFile(result.TransactionPath, transactions); err != nil {
		return nil, err
	}

	if err := writeProfitFile(result.ProfitPath, profits); err != nil {
		return nil, err
	}

	e.logger.WithFields(map[string]interface{}{
		"orders":            result.Orders,
		"distinct_products": result.DistinctProducts,
		"total_items":       result.TotalItems,
	}).Info("Exported mining artifacts")

	return result, nil
}

// writeTransactionFile writes one order per line, items separated by
// spaces, one token per line item.
func writeTransactionFile(path string, transactions []contracts.Transaction) error {
	var sb strings.Builder
	for i, tx := range transactions {
		if i > 0 {
			sb.WriteByte('\n')
		}
		for j, id := range tx.ProductIDs() {
			if j > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strconv.Itoa(id))
		}
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write transaction file: %w", err)
	}
	return nil
}

// writeProfitFile writes one "productID profit" pair per line, sorted
// ascending by productID.
func writeProfitFile(path string, profits contracts.ProfitTable) error {
	ids := make([]int, 0, len(profits))
	for id := range profits {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var sb strings.Builder
	for i, id := range ids {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(strconv.Itoa(id))
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(profits[id]))
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write profit file: %w", err)
	}
	return nil
}
