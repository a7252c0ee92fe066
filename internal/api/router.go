package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/tearsheet/internal/api/handlers"
	"github.com/wonny/tearsheet/pkg/logger"
)

// RouterOptions selects the optional router surfaces
type RouterOptions struct {
	Limiter        Limiter // nil = unlimited
	MetricsEnabled bool    // expose /metrics
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(metricsHandler *handlers.MetricsHandler, portfolioHandler *handlers.PortfolioHandler, opts RouterOptions, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	if opts.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	// API v1
	api := r.PathPrefix("/api").Subrouter()
	if opts.Limiter != nil {
		api.Use(rateLimitMiddleware(opts.Limiter, log))
	}

	// Ad-hoc series
	api.HandleFunc("/metrics", metricsHandler.ComputeMetrics).Methods("POST")
	api.HandleFunc("/tearsheet", metricsHandler.RenderTearsheet).Methods("POST")
	api.HandleFunc("/montecarlo", metricsHandler.Simulate).Methods("POST")

	// Stored portfolios
	api.HandleFunc("/portfolios/{id}/metrics", portfolioHandler.GetMetrics).Methods("GET")
	api.HandleFunc("/portfolios/{id}/tearsheet", portfolioHandler.GetTearsheet).Methods("GET")
	api.HandleFunc("/portfolios/{id}/runs", portfolioHandler.ListRuns).Methods("GET")
	api.HandleFunc("/runs/{id}", portfolioHandler.GetRun).Methods("GET")

	// Apply middleware
	r.Use(instrumentMiddleware)
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "tearsheet-api",
	})
}
