package commands

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/lamnt/fashionstore/pkg/config"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the mining pipeline status",
	Long: `Queries a running API server for the pipeline state machine
snapshot and prints it.

Example:
  go run ./cmd/recsys status
  go run ./cmd/recsys status --addr http://localhost:5000`,
	RunE: runStatus,
}

var statusAddr string

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "API server address (default from PORT)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	addr := statusAddr
	if addr == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		addr = "http://localhost:" + cfg.Port
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(addr + "/api/mining/status")
	if err != nil {
		return fmt.Errorf("query status: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}

	fmt.Println(string(body))
	return nil
}
