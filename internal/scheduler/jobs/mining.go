package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/lamnt/fashionstore/internal/mining"
	"github.com/lamnt/fashionstore/pkg/logger"
)

// MiningJob runs the full mining pipeline nightly so the correlation map
// tracks the latest order history.
type MiningJob struct {
	orchestrator *mining.Orchestrator
	logger       *logger.Logger
}

// NewMiningJob creates a new mining pipeline job
func NewMiningJob(orchestrator *mining.Orchestrator, log *logger.Logger) *MiningJob {
	return &MiningJob{
		orchestrator: orchestrator,
		logger:       log,
	}
}

// Name returns the job name
func (j *MiningJob) Name() string {
	return "mining_pipeline"
}

// Schedule returns the cron schedule (3 AM daily, after the order day closes)
func (j *MiningJob) Schedule() string {
	return "0 0 3 * * *"
}

// Run executes one pipeline run
func (j *MiningJob) Run(ctx context.Context) error {
	stats, err := j.orchestrator.Run(ctx)
	if err != nil {
		// A manual run holding the pipeline is not a job failure; the
		// next scheduled run picks up the fresh data anyway.
		if errors.Is(err, mining.ErrRunInProgress) {
			j.logger.Warn("Skipping scheduled mining run, another run is in progress")
			return nil
		}
		return fmt.Errorf("mining pipeline: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"orders":          stats.Orders,
		"products":        stats.Products,
		"recommendations": stats.Recommendations,
	}).Info("Scheduled mining run completed")

	return nil
}
