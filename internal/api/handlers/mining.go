package handlers

import (
	"errors"
	"net/http"

	"github.com/lamnt/fashionstore/internal/extract"
	"github.com/lamnt/fashionstore/internal/mining"
	"github.com/lamnt/fashionstore/pkg/logger"
)

// MiningHandler handles the administrative pipeline endpoints
type MiningHandler struct {
	orchestrator *mining.Orchestrator
	extractor    *extract.Extractor
	logger       *logger.Logger
}

// NewMiningHandler creates a new mining handler
func NewMiningHandler(orchestrator *mining.Orchestrator, extractor *extract.Extractor, log *logger.Logger) *MiningHandler {
	return &MiningHandler{
		orchestrator: orchestrator,
		extractor:    extractor,
		logger:       log,
	}
}

// RunPipeline runs the full mining pipeline. The request blocks until
// the run finishes, potentially for minutes.
// POST /api/mining/run
func (h *MiningHandler) RunPipeline(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orchestrator.Run(r.Context())
	if err != nil {
		if errors.Is(err, mining.ErrRunInProgress) {
			respondError(w, http.StatusConflict, "A pipeline run is already in progress")
			return
		}

		var stageErr *mining.StageError
		if errors.As(err, &stageErr) {
			respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"success": false,
				"stage":   string(stageErr.Stage),
				"error":   stageErr.Error(),
				"stderr":  stageErr.Stderr,
			})
			return
		}

		h.logger.WithError(err).Error("Pipeline run failed")
		respondError(w, http.StatusInternalServerError, "Pipeline run failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats":   stats,
	})
}

// GetStatus returns the pipeline state machine snapshot
// GET /api/mining/status
func (h *MiningHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.orchestrator.Status())
}

// Export writes the transaction and profit artifacts without running the
// full pipeline, for inspection or manual mining runs.
// POST /api/mining/export
func (h *MiningHandler) Export(w http.ResponseWriter, r *http.Request) {
	result, err := h.extractor.Export(r.Context())
	if err != nil {
		if errors.Is(err, extract.ErrNoTransactions) {
			respondError(w, http.StatusUnprocessableEntity, "No completed orders to export")
			return
		}
		h.logger.WithError(err).Error("Export failed")
		respondError(w, http.StatusInternalServerError, "Export failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  result,
	})
}
