package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lamnt/fashionstore/internal/extract"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export mining artifacts from order history",
	Long: `Writes the transaction and profit artifacts consumed by the miner
without running the full pipeline.

Example:
  go run ./cmd/recsys export`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	svcs, err := buildServices()
	if err != nil {
		return err
	}
	defer svcs.Close()

	result, err := svcs.extractor.Export(context.Background())
	if err != nil {
		if errors.Is(err, extract.ErrNoTransactions) {
			return fmt.Errorf("no completed orders to export")
		}
		return err
	}

	fmt.Println("Export completed")
	fmt.Printf("  orders:            %d\n", result.Orders)
	fmt.Printf("  distinct products: %d\n", result.DistinctProducts)
	fmt.Printf("  total items:       %d\n", result.TotalItems)
	fmt.Printf("  transactions:      %s\n", result.TransactionPath)
	fmt.Printf("  profits:           %s\n", result.ProfitPath)

	return nil
}
