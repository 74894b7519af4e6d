package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/lamnt/fashionstore/internal/api/handlers"
	"github.com/lamnt/fashionstore/pkg/logger"
)

// NewRouter creates and configures the HTTP router
func NewRouter(recHandler *handlers.RecommendationHandler, miningHandler *handlers.MiningHandler, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Recommendation endpoints
	api.HandleFunc("/recommendations", recHandler.GetMostRecommended).Methods("GET")
	api.HandleFunc("/recommendations/{productID:[0-9]+}", recHandler.GetByProduct).Methods("GET")
	api.HandleFunc("/bought-together/{productID:[0-9]+}", recHandler.GetBoughtTogether).Methods("GET")
	api.HandleFunc("/cart-analysis", recHandler.AnalyzeCart).Methods("POST")
	api.HandleFunc("/statistics", recHandler.GetStatistics).Methods("GET")
	api.HandleFunc("/combos", recHandler.GetCombos).Methods("GET")

	// Mining pipeline endpoints (administrative)
	api.HandleFunc("/mining/run", miningHandler.RunPipeline).Methods("POST")
	api.HandleFunc("/mining/status", miningHandler.GetStatus).Methods("GET")
	api.HandleFunc("/mining/export", miningHandler.Export).Methods("POST")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "fashionstore-recsys",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
