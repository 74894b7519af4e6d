package mining

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lamnt/fashionstore/internal/contracts"
	"github.com/lamnt/fashionstore/pkg/config"
	"github.com/lamnt/fashionstore/pkg/logger"
)

// analysisEntry is one ranked neighbor in the stage-3 analysis output.
type analysisEntry struct {
	ProductID int     `json:"productID"`
	Score     float64 `json:"score"`
}

// productLookup is the slice of the catalog the materializer needs.
type productLookup interface {
	GetByIDs(ctx context.Context, productIDs []int) (map[int]contracts.Product, error)
}

// Materializer joins the correlation analysis output with live catalog
// data into the correlation map artifact consumed by the serving path.
type Materializer struct {
	products productLookup
	cfg      config.MiningConfig
	logger   *logger.Logger
}

// MaterializeResult summarizes one materialization.
type MaterializeResult struct {
	Products        int    `json:"products"`
	Recommendations int    `json:"recommendations"`
	ArtifactPath    string `json:"artifactPath"`
}

// NewMaterializer creates a new Materializer
func NewMaterializer(products productLookup, cfg config.MiningConfig, log *logger.Logger) *Materializer {
	return &Materializer{
		products: products,
		cfg:      cfg,
		logger:   log,
	}
}

// Materialize reads the analysis artifact, hydrates every product ID with
// current catalog fields, and writes the correlation map artifact. The
// previous artifact stays valid until the new one is fully written.
func (m *Materializer) Materialize(ctx context.Context) (*MaterializeResult, error) {
	analysisPath := filepath.Join(m.cfg.DataDir, m.cfg.AnalysisFile)
	data, err := os.ReadFile(analysisPath)
	if err != nil {
		return nil, fmt.Errorf("read analysis artifact: %w", err)
	}

	var analysis map[int][]analysisEntry
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, &ProtocolError{Script: m.cfg.AnalyzeScript, Output: string(data), Err: err}
	}

	// Collect every product ID appearing as a neighbor for one catalog read.
	idSet := make(map[int]struct{})
	for _, entries := range analysis {
		for _, e := range entries {
			idSet[e.ProductID] = struct{}{}
		}
	}
	ids := make([]int, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	products, err := m.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate analysis products: %w", err)
	}

	corrMap := make(contracts.CorrelationMap, len(analysis))
	total := 0
	for sourceID, entries := range analysis {
		list := make([]contracts.CorrelationEntry, 0, len(entries))
		for _, e := range entries {
			entry := contracts.CorrelationEntry{
				ProductID:        e.ProductID,
				CorrelationScore: e.Score,
			}
			if entry.CorrelationScore <= 0 {
				entry.CorrelationScore = 1.0
			}
			if p, ok := products[e.ProductID]; ok {
				entry.Name = p.Name
				entry.CategoryID = p.CategoryID
				entry.TargetID = p.TargetID
				entry.Price = p.Price
				entry.Thumbnail = p.Thumbnail
			} else {
				entry.Name = "Unknown"
			}
			list = append(list, entry)
		}
		corrMap[sourceID] = list
		total += len(list)
	}

	artifactPath := filepath.Join(m.cfg.DataDir, m.cfg.CorrelationMapFile)
	encoded, err := json.MarshalIndent(corrMap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode correlation map: %w", err)
	}

	if err := os.WriteFile(artifactPath, encoded, 0o644); err != nil {
		return nil, fmt.Errorf("write correlation map artifact: %w", err)
	}

	m.logger.WithFields(map[string]interface{}{
		"products":        len(corrMap),
		"recommendations": total,
	}).Info("Materialized correlation map")

	return &MaterializeResult{
		Products:        len(corrMap),
		Recommendations: total,
		ArtifactPath:    artifactPath,
	}, nil
}
