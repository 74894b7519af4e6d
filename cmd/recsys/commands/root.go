package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "recsys",
	Short: "FashionStore recommendation subsystem",
	Long: `FashionStore recommendation CLI

Correlation-based product recommendations for the store: order history
export, the staged mining pipeline and the serving API.

Usage:
  go run ./cmd/recsys [command]

Examples:
  go run ./cmd/recsys api
  go run ./cmd/recsys mine
  go run ./cmd/recsys export
  go run ./cmd/recsys scheduler start`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
