package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lamnt/fashionstore/internal/mining"
)

// mineCmd represents the mine command
var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Run the full mining pipeline once",
	Long: `Runs the four-stage mining pipeline:

  1. Export transactions and profits from order history
  2. Mine frequent itemsets over the export
  3. Analyze correlations over the mining output
  4. Materialize the correlation map with live catalog data

The command blocks until the run finishes and prints the run summary.

Example:
  go run ./cmd/recsys mine`,
	RunE: runMine,
}

func init() {
	rootCmd.AddCommand(mineCmd)
}

func runMine(cmd *cobra.Command, args []string) error {
	svcs, err := buildServices()
	if err != nil {
		return err
	}
	defer svcs.Close()

	stats, err := svcs.orchestrator.Run(context.Background())
	if err != nil {
		if errors.Is(err, mining.ErrRunInProgress) {
			return fmt.Errorf("a pipeline run is already in progress")
		}

		var stageErr *mining.StageError
		if errors.As(err, &stageErr) {
			if stageErr.Stderr != "" {
				fmt.Printf("stage %s stderr:\n%s\n", stageErr.Stage, stageErr.Stderr)
			}
			return fmt.Errorf("pipeline failed at stage %s: %w", stageErr.Stage, stageErr.Err)
		}

		return err
	}

	fmt.Println("Mining pipeline completed")
	fmt.Printf("  orders:          %d\n", stats.Orders)
	fmt.Printf("  products:        %d\n", stats.Products)
	fmt.Printf("  recommendations: %d\n", stats.Recommendations)
	fmt.Printf("  avg per product: %.2f\n", stats.AvgPerProduct)
	fmt.Printf("  duration:        %s\n", stats.Duration)

	return nil
}
