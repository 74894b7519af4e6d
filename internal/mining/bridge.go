package mining

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"golang.org/x/time/rate"

	"github.com/lamnt/fashionstore/internal/contracts"
	"github.com/lamnt/fashionstore/pkg/config"
	"github.com/lamnt/fashionstore/pkg/logger"
)

// Request actions understood by the recommendation service script.
const (
	ActionRecommend      = "recommend"
	ActionBoughtTogether = "bought_together"
	ActionCartAnalysis   = "cart_analysis"
)

// Request is the JSON request written to the miner's standard input.
type Request struct {
	Action    string                  `json:"action"`
	Orders    []contracts.Transaction `json:"orders"`
	ProductID int                     `json:"productID,omitempty"`
	CartItems []int                   `json:"cartItems,omitempty"`
	MinUtil   float64                 `json:"minutil"`
	MinCor    float64                 `json:"mincor"`
	MaxLen    int                     `json:"maxlen,omitempty"`
	TopN      int                     `json:"topN"`
}

// MinedRecommendation is one recommended product from the real-time miner.
type MinedRecommendation struct {
	ProductID  int     `json:"productID"`
	Score      float64 `json:"score"`
	Frequency  int     `json:"frequency"`
	Confidence float64 `json:"confidence"`
}

// Pattern is one mined itemset with its utility and correlation.
type Pattern struct {
	Items       []int   `json:"items"`
	Utility     float64 `json:"utility"`
	Correlation float64 `json:"correlation"`
}

// Response is the single JSON object the miner writes to standard output
// before exit. Anything on the diagnostic stream is log context only.
type Response struct {
	Success         bool                  `json:"success"`
	Message         string                `json:"message,omitempty"`
	Recommendations []MinedRecommendation `json:"recommendations"`
	TotalPatterns   int                   `json:"totalPatterns,omitempty"`
	Patterns        []Pattern             `json:"patterns,omitempty"`
	TotalOrders     int                   `json:"totalOrders,omitempty"`
}

// Miner is the opaque external mining computation. The real implementation
// spawns a python process; tests substitute a stub.
type Miner interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// Bridge invokes the external recommendation service synchronously:
// serialize the request, start the process, stream the request in, collect
// all output, deserialize the response. One process per call, no pooling,
// no retries; callers supply their own deadline via ctx. Concurrent spawns
// are capped so a burst of requests cannot exhaust the host.
type Bridge struct {
	python  string
	workDir string
	script  string

	sem     chan struct{}
	limiter *rate.Limiter
	runner  runner
	logger  *logger.Logger
}

// NewBridge creates a bridge to the recommendation service script.
func NewBridge(cfg config.MiningConfig, log *logger.Logger) *Bridge {
	return &Bridge{
		python:  cfg.PythonBin,
		workDir: cfg.ScriptsDir,
		script:  cfg.ServiceScript,
		sem:     make(chan struct{}, cfg.MaxMiners),
		limiter: rate.NewLimiter(rate.Limit(cfg.MaxMiners), cfg.MaxMiners),
		runner:  osRunner{},
		logger:  log,
	}
}

// Invoke runs one request/response cycle against the miner.
func (b *Bridge) Invoke(ctx context.Context, req Request) (*Response, error) {
	select {
	case b.sem <- struct{}{}:
		defer func() { <-b.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal mine request: %w", err)
	}

	b.logger.WithFields(map[string]interface{}{
		"action": req.Action,
		"orders": len(req.Orders),
		"top_n":  req.TopN,
	}).Debug("Invoking miner")

	scriptPath := filepath.Join(b.workDir, b.script)
	stdout, stderr, exitCode, err := b.runner.Run(ctx, b.python, []string{scriptPath}, b.workDir, payload)
	if err != nil {
		return nil, &LaunchError{Script: b.script, Err: err}
	}

	if exitCode != 0 {
		return nil, &ProcessFailure{
			Script:   b.script,
			ExitCode: exitCode,
			Stderr:   string(stderr),
		}
	}

	if len(stderr) > 0 {
		// Diagnostic stream is log context only, never parsed.
		b.logger.WithField("stderr", string(stderr)).Debug("Miner diagnostics")
	}

	var resp Response
	if err := json.Unmarshal(stdout, &resp); err != nil {
		return nil, &ProtocolError{Script: b.script, Output: string(stdout), Err: err}
	}

	return &resp, nil
}
