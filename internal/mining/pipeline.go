package mining

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lamnt/fashionstore/internal/extract"
	"github.com/lamnt/fashionstore/pkg/config"
	"github.com/lamnt/fashionstore/pkg/logger"
)

// State is the pipeline state machine position.
type State string

// Pipeline states. A run moves Idle -> Exporting -> Mining -> Analyzing ->
// Materializing -> Done, or stops at Failed with the failing stage recorded.
const (
	StateIdle          State = "idle"
	StateExporting     State = "exporting"
	StateMining        State = "mining"
	StateAnalyzing     State = "analyzing"
	StateMaterializing State = "materializing"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// Stage names the pipeline stage that produced a result or failure.
type Stage string

const (
	StageExport      Stage = "export"
	StageMine        Stage = "mine"
	StageAnalyze     Stage = "analyze"
	StageMaterialize Stage = "materialize"
)

// RunStats summarizes a successful pipeline run, computed by reading back
// the final artifact.
type RunStats struct {
	Orders          int           `json:"orders"`
	Products        int           `json:"products"`
	Recommendations int           `json:"recommendations"`
	AvgPerProduct   float64       `json:"avgRecommendationsPerProduct"`
	Duration        time.Duration `json:"duration"`
	FinishedAt      time.Time     `json:"finishedAt"`
}

// Status is an inspectable snapshot of the pipeline state machine.
type Status struct {
	State       State     `json:"state"`
	FailedStage Stage     `json:"failedStage,omitempty"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"startedAt,omitempty"`
	LastRun     *RunStats `json:"lastRun,omitempty"`
}

// exporter is stage 1: export transactions and profits.
type exporter interface {
	Export(ctx context.Context) (*extract.Result, error)
}

// artifactMaterializer is stage 4: join analysis output with the catalog.
type artifactMaterializer interface {
	Materialize(ctx context.Context) (*MaterializeResult, error)
}

// Orchestrator runs the four mining stages in strict sequence. Each stage
// consumes files written by the previous one, so any failure aborts the
// run immediately; artifacts of completed stages remain on disk and the
// previous correlation map stays in use until a full run replaces it.
type Orchestrator struct {
	exporter     exporter
	materializer artifactMaterializer
	runner       runner
	cfg          config.MiningConfig
	logger       *logger.Logger

	runMu sync.Mutex // held for the duration of a run

	statusMu sync.RWMutex
	status   Status
}

// NewOrchestrator creates a new pipeline orchestrator
func NewOrchestrator(ex exporter, mat artifactMaterializer, cfg config.MiningConfig, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		exporter:     ex,
		materializer: mat,
		runner:       osRunner{},
		cfg:          cfg,
		logger:       log,
		status:       Status{State: StateIdle},
	}
}

// Status returns the current state machine snapshot.
func (o *Orchestrator) Status() Status {
	o.statusMu.RLock()
	defer o.statusMu.RUnlock()
	return o.status
}

func (o *Orchestrator) setState(state State) {
	o.statusMu.Lock()
	o.status.State = state
	o.statusMu.Unlock()
}

func (o *Orchestrator) finish(stats *RunStats) {
	o.statusMu.Lock()
	o.status.State = StateDone
	o.status.FailedStage = ""
	o.status.Error = ""
	o.status.LastRun = stats
	o.statusMu.Unlock()
}

func (o *Orchestrator) fail(stage Stage, err error) *StageError {
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		stageErr = &StageError{Stage: stage, Err: err}
	}

	o.statusMu.Lock()
	o.status.State = StateFailed
	o.status.FailedStage = stageErr.Stage
	o.status.Error = stageErr.Error()
	o.statusMu.Unlock()

	o.logger.WithFields(map[string]interface{}{
		"stage":  string(stageErr.Stage),
		"stderr": stageErr.Stderr,
	}).WithError(stageErr.Err).Error("Pipeline stage failed")

	return stageErr
}

// Run executes the full export -> mine -> analyze -> materialize sequence.
// The calling request blocks for the duration, potentially minutes.
// Returns ErrRunInProgress when another run holds the pipeline.
func (o *Orchestrator) Run(ctx context.Context) (*RunStats, error) {
	if !o.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer o.runMu.Unlock()

	started := time.Now()
	o.statusMu.Lock()
	o.status = Status{State: StateExporting, StartedAt: started, LastRun: o.status.LastRun}
	o.statusMu.Unlock()

	o.logger.Info("Starting mining pipeline run")

	// Stage 1: export transactions and profits
	exportResult, err := o.exporter.Export(ctx)
	if err != nil {
		return nil, o.fail(StageExport, err)
	}

	// Stage 2: run the itemset miner over the exported artifacts
	o.setState(StateMining)
	if err := o.runScript(ctx, StageMine, o.cfg.MineScript); err != nil {
		return nil, o.fail(StageMine, err)
	}

	// Stage 3: correlation analysis over the mining output
	o.setState(StateAnalyzing)
	if err := o.runScript(ctx, StageAnalyze, o.cfg.AnalyzeScript); err != nil {
		return nil, o.fail(StageAnalyze, err)
	}

	// Stage 4: materialize the correlation map artifact
	o.setState(StateMaterializing)
	if _, err := o.materializer.Materialize(ctx); err != nil {
		return nil, o.fail(StageMaterialize, err)
	}

	stats, err := o.readBackStats()
	if err != nil {
		return nil, o.fail(StageMaterialize, err)
	}

	stats.Orders = exportResult.Orders
	stats.Duration = time.Since(started)
	stats.FinishedAt = time.Now()

	o.finish(stats)

	o.logger.WithFields(map[string]interface{}{
		"orders":          stats.Orders,
		"products":        stats.Products,
		"recommendations": stats.Recommendations,
		"duration":        stats.Duration.String(),
	}).Info("Mining pipeline run completed")

	return stats, nil
}

// runScript executes one external stage in the scripts directory with the
// configured time ceiling, capturing both output streams.
func (o *Orchestrator) runScript(ctx context.Context, stage Stage, script string) error {
	stageCtx := ctx
	if o.cfg.StageTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, o.cfg.StageTimeout)
		defer cancel()
	}

	o.logger.WithFields(map[string]interface{}{
		"stage":  string(stage),
		"script": script,
	}).Info("Running pipeline stage")

	stdout, stderr, exitCode, err := o.runner.Run(stageCtx, o.cfg.PythonBin, []string{script}, o.cfg.ScriptsDir, nil)
	if err != nil {
		return &StageError{Stage: stage, Stderr: string(stderr), Err: &LaunchError{Script: script, Err: err}}
	}

	if exitCode != 0 {
		return &StageError{
			Stage:  stage,
			Stderr: string(stderr),
			Err:    &ProcessFailure{Script: script, ExitCode: exitCode, Stderr: string(stderr)},
		}
	}

	if len(stdout) > 0 {
		o.logger.WithField("stage", string(stage)).Debugf("Stage output: %s", string(stdout))
	}

	return nil
}

// readBackStats parses the final artifact to compute run statistics.
func (o *Orchestrator) readBackStats() (*RunStats, error) {
	path := filepath.Join(o.cfg.DataDir, o.cfg.CorrelationMapFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read correlation map artifact: %w", err)
	}

	var corrMap map[int][]json.RawMessage
	if err := json.Unmarshal(data, &corrMap); err != nil {
		return nil, fmt.Errorf("parse correlation map artifact: %w", err)
	}

	stats := &RunStats{Products: len(corrMap)}
	for _, entries := range corrMap {
		stats.Recommendations += len(entries)
	}
	if stats.Products > 0 {
		stats.AvgPerProduct = float64(stats.Recommendations) / float64(stats.Products)
	}

	return stats, nil
}
