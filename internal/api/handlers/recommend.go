package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/lamnt/fashionstore/internal/catalog"
	"github.com/lamnt/fashionstore/internal/contracts"
	"github.com/lamnt/fashionstore/internal/reco"
	"github.com/lamnt/fashionstore/pkg/logger"
)

// RecommendationHandler handles recommendation API endpoints
type RecommendationHandler struct {
	service *reco.Service
	combos  *reco.ComboBuilder
	logger  *logger.Logger
}

// NewRecommendationHandler creates a new recommendation handler
func NewRecommendationHandler(service *reco.Service, combos *reco.ComboBuilder, log *logger.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		service: service,
		combos:  combos,
		logger:  log,
	}
}

// RecommendationResponse is the payload of the per-product endpoints.
type RecommendationResponse struct {
	Success              bool                       `json:"success"`
	ProductID            int                        `json:"productID"`
	TotalRecommendations int                        `json:"totalRecommendations"`
	Recommendations      []contracts.Recommendation `json:"recommendations"`
	Source               string                     `json:"source"`
}

// GetByProduct returns recommendations for one product
// GET /api/recommendations/{productID}?topN=10
func (h *RecommendationHandler) GetByProduct(w http.ResponseWriter, r *http.Request) {
	productID, _ := strconv.Atoi(mux.Vars(r)["productID"])
	topN := queryInt(r, "topN", 10)

	recs, err := h.service.ByProduct(r.Context(), productID, topN)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Product not found")
			return
		}
		h.logger.WithError(err).Error("Failed to get recommendations")
		respondError(w, http.StatusInternalServerError, "Failed to get recommendations")
		return
	}

	respondJSON(w, http.StatusOK, RecommendationResponse{
		Success:              true,
		ProductID:            productID,
		TotalRecommendations: len(recs),
		Recommendations:      recs,
		Source:               recommendationSource(recs),
	})
}

// GetBoughtTogether returns products frequently bought with one product
// GET /api/bought-together/{productID}?topN=5
func (h *RecommendationHandler) GetBoughtTogether(w http.ResponseWriter, r *http.Request) {
	productID, _ := strconv.Atoi(mux.Vars(r)["productID"])
	topN := queryInt(r, "topN", 5)

	recs, err := h.service.BoughtTogether(r.Context(), productID, topN)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Product not found")
			return
		}
		h.logger.WithError(err).Error("Failed to get bought-together products")
		respondError(w, http.StatusInternalServerError, "Failed to get bought-together products")
		return
	}

	respondJSON(w, http.StatusOK, RecommendationResponse{
		Success:              true,
		ProductID:            productID,
		TotalRecommendations: len(recs),
		Recommendations:      recs,
		Source:               recommendationSource(recs),
	})
}

// GetMostRecommended returns the store-wide ranking
// GET /api/recommendations?topN=10
func (h *RecommendationHandler) GetMostRecommended(w http.ResponseWriter, r *http.Request) {
	topN := queryInt(r, "topN", 10)

	ranked, err := h.service.MostRecommended(r.Context(), topN)
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute ranking")
		respondError(w, http.StatusInternalServerError, "Failed to compute ranking")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"total":    len(ranked),
		"products": ranked,
	})
}

// CartAnalysisRequest is the cart analysis request body.
type CartAnalysisRequest struct {
	CartItems []int `json:"cartItems"`
}

// AnalyzeCart mines recommendations for a basket in real time
// POST /api/cart-analysis?minutil=0.001&mincor=0.3&topN=5&limit=5000
func (h *RecommendationHandler) AnalyzeCart(w http.ResponseWriter, r *http.Request) {
	var req CartAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	opts := reco.MineOptions{
		MinUtil:    queryFloat(r, "minutil", 0),
		MinCor:     queryFloat(r, "mincor", 0),
		MaxLen:     queryInt(r, "maxlen", 0),
		TopN:       queryInt(r, "topN", 0),
		OrderLimit: queryInt(r, "limit", 0),
	}

	result, err := h.service.CartAnalysis(r.Context(), req.CartItems, opts)
	if err != nil {
		if errors.Is(err, reco.ErrEmptyCart) {
			respondError(w, http.StatusBadRequest, "Cart is empty or invalid")
			return
		}
		h.logger.WithError(err).Error("Cart analysis failed")
		respondError(w, http.StatusInternalServerError, "Cart analysis failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetStatistics runs a live mining pass and reports pattern counts
// GET /api/statistics?minutil=0.001&mincor=0.3&maxlen=3&limit=5000
func (h *RecommendationHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	opts := reco.MineOptions{
		MinUtil:    queryFloat(r, "minutil", 0),
		MinCor:     queryFloat(r, "mincor", 0),
		MaxLen:     queryInt(r, "maxlen", 0),
		OrderLimit: queryInt(r, "limit", 0),
	}

	stats, err := h.service.Statistics(r.Context(), opts)
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute mining statistics")
		respondError(w, http.StatusInternalServerError, "Failed to compute mining statistics")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// GetCombos returns combo offers derived from the correlation map
// GET /api/combos
func (h *RecommendationHandler) GetCombos(w http.ResponseWriter, r *http.Request) {
	combos, err := h.combos.Build(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to build combos")
		respondError(w, http.StatusInternalServerError, "Failed to build combos")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"total":   len(combos),
		"combos":  combos,
	})
}

// recommendationSource reports where the neighbor entries came from; the
// leading searched entry does not count.
func recommendationSource(recs []contracts.Recommendation) string {
	for _, rec := range recs {
		if rec.IsSearched {
			continue
		}
		return rec.Source
	}
	return "none"
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func queryFloat(r *http.Request, name string, fallback float64) float64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}
