package mining

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamnt/fashionstore/internal/extract"
	"github.com/lamnt/fashionstore/pkg/config"
)

type fakeExporter struct {
	result *extract.Result
	err    error
}

func (f *fakeExporter) Export(ctx context.Context) (*extract.Result, error) {
	return f.result, f.err
}

type fakeMaterializer struct {
	artifact string // JSON written as the correlation map on success
	dataDir  string
	file     string
	err      error
}

func (f *fakeMaterializer) Materialize(ctx context.Context) (*MaterializeResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	path := filepath.Join(f.dataDir, f.file)
	if err := os.WriteFile(path, []byte(f.artifact), 0o644); err != nil {
		return nil, err
	}
	return &MaterializeResult{ArtifactPath: path}, nil
}

// scriptedRunner fails a single named script and succeeds otherwise.
type scriptedRunner struct {
	failScript string
	scripts    []string
}

func (s *scriptedRunner) Run(ctx context.Context, bin string, args []string, dir string, stdin []byte) ([]byte, []byte, int, error) {
	script := args[len(args)-1]
	s.scripts = append(s.scripts, script)
	if script == s.failScript {
		return nil, []byte("MemoryError\n"), 1, nil
	}
	return []byte("ok\n"), nil, 0, nil
}

func testPipelineConfig(t *testing.T) config.MiningConfig {
	t.Helper()
	return config.MiningConfig{
		PythonBin:          "python3",
		ScriptsDir:         "/srv/miner",
		DataDir:            t.TempDir(),
		CorrelationMapFile: "correlation_map.json",
		MineScript:         "run_store_mining.py",
		AnalyzeScript:      "analyze_correlations.py",
	}
}

func newTestOrchestrator(t *testing.T, cfg config.MiningConfig, run runner) (*Orchestrator, *fakeMaterializer) {
	t.Helper()
	mat := &fakeMaterializer{
		artifact: `{"1":[{"productID":2,"correlationScore":0.8},{"productID":3,"correlationScore":0.5}],"2":[{"productID":1,"correlationScore":0.8}]}`,
		dataDir:  cfg.DataDir,
		file:     cfg.CorrelationMapFile,
	}
	ex := &fakeExporter{result: &extract.Result{Orders: 42, DistinctProducts: 3, TotalItems: 7}}
	o := NewOrchestrator(ex, mat, cfg, testLogger())
	o.runner = run
	return o, mat
}

func TestOrchestrator_Run(t *testing.T) {
	cfg := testPipelineConfig(t)
	run := &scriptedRunner{}
	o, _ := newTestOrchestrator(t, cfg, run)

	stats, err := o.Run(context.Background())
	require.NoError(t, err)

	// External stages run in order with their configured scripts.
	assert.Equal(t, []string{"run_store_mining.py", "analyze_correlations.py"}, run.scripts)

	// Stats come from reading the final artifact back, not from stage
	// return values.
	assert.Equal(t, 42, stats.Orders)
	assert.Equal(t, 2, stats.Products)
	assert.Equal(t, 3, stats.Recommendations)
	assert.InDelta(t, 1.5, stats.AvgPerProduct, 1e-9)

	status := o.Status()
	assert.Equal(t, StateDone, status.State)
	assert.Empty(t, status.FailedStage)
	require.NotNil(t, status.LastRun)
	assert.Equal(t, 42, status.LastRun.Orders)
}

func TestOrchestrator_Run_ExportFailure(t *testing.T) {
	cfg := testPipelineConfig(t)
	run := &scriptedRunner{}
	o, _ := newTestOrchestrator(t, cfg, run)
	o.exporter = &fakeExporter{err: extract.ErrNoTransactions}

	_, err := o.Run(context.Background())
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageExport, stageErr.Stage)
	assert.ErrorIs(t, err, extract.ErrNoTransactions)

	// A failed stage aborts the run: no external stage ever started.
	assert.Empty(t, run.scripts)

	status := o.Status()
	assert.Equal(t, StateFailed, status.State)
	assert.Equal(t, StageExport, status.FailedStage)
}

func TestOrchestrator_Run_MineFailure(t *testing.T) {
	cfg := testPipelineConfig(t)
	run := &scriptedRunner{failScript: "run_store_mining.py"}
	o, _ := newTestOrchestrator(t, cfg, run)

	_, err := o.Run(context.Background())
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageMine, stageErr.Stage)
	assert.Contains(t, stageErr.Stderr, "MemoryError")

	var procErr *ProcessFailure
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, 1, procErr.ExitCode)

	// The analyze stage never ran.
	assert.Equal(t, []string{"run_store_mining.py"}, run.scripts)
	assert.Equal(t, StateFailed, o.Status().State)
}

func TestOrchestrator_Run_MaterializeFailure(t *testing.T) {
	cfg := testPipelineConfig(t)
	o, mat := newTestOrchestrator(t, cfg, &scriptedRunner{})
	mat.err = errors.New("read analysis artifact: no such file")

	_, err := o.Run(context.Background())
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageMaterialize, stageErr.Stage)
}

func TestOrchestrator_Run_InProgress(t *testing.T) {
	cfg := testPipelineConfig(t)
	o, _ := newTestOrchestrator(t, cfg, &scriptedRunner{})

	o.runMu.Lock()
	defer o.runMu.Unlock()

	_, err := o.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestOrchestrator_Run_KeepsLastRunAfterFailure(t *testing.T) {
	cfg := testPipelineConfig(t)
	run := &scriptedRunner{}
	o, _ := newTestOrchestrator(t, cfg, run)

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	// A later failed run must not erase the stats of the last good run.
	run.failScript = "analyze_correlations.py"
	_, err = o.Run(context.Background())
	require.Error(t, err)

	status := o.Status()
	assert.Equal(t, StateFailed, status.State)
	assert.Equal(t, StageAnalyze, status.FailedStage)
	require.NotNil(t, status.LastRun)
	assert.Equal(t, 42, status.LastRun.Orders)
}
