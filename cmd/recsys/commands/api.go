package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lamnt/fashionstore/internal/api"
	"github.com/lamnt/fashionstore/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the recommendation API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                          - Health check
  GET  /api/recommendations             - Store-wide ranking
  GET  /api/recommendations/{productID} - Per-product recommendations
  GET  /api/bought-together/{productID} - Bought-together products
  POST /api/cart-analysis               - Real-time basket analysis
  GET  /api/combos                      - Combo offers
  POST /api/mining/run                  - Run the mining pipeline
  GET  /api/mining/status               - Pipeline status
  POST /api/mining/export               - Export mining artifacts

Example:
  go run ./cmd/recsys api
  go run ./cmd/recsys api --port 5000`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	svcs, err := buildServices()
	if err != nil {
		return err
	}
	defer svcs.Close()

	if apiPort != "" {
		svcs.cfg.Port = apiPort
	}

	recHandler := handlers.NewRecommendationHandler(svcs.service, svcs.combos, svcs.log)
	miningHandler := handlers.NewMiningHandler(svcs.orchestrator, svcs.extractor, svcs.log)

	router := api.NewRouter(recHandler, miningHandler, svcs.log)
	server := api.New(svcs.cfg, svcs.log, router)

	go func() {
		if err := server.Start(); err != nil {
			svcs.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("Server running on http://localhost:%s\n", svcs.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
