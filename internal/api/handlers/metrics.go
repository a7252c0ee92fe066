package handlers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/wonny/tearsheet/internal/metrics"
	"github.com/wonny/tearsheet/internal/report"
	"github.com/wonny/tearsheet/internal/reportconfig"
	"github.com/wonny/tearsheet/internal/tearsheet"
	"github.com/wonny/tearsheet/pkg/logger"
	"github.com/wonny/tearsheet/pkg/monitoring"
	"github.com/wonny/tearsheet/pkg/redis"
)

// maxBodyBytes caps request bodies (16 MiB)
const maxBodyBytes = 16 << 20

// BundleCache caches computed bundles; *redis.Cache satisfies it
type BundleCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// MetricsHandler serves ad-hoc metrics and tearsheets for posted series
// ⭐ SSOT: 메트릭 API 핸들러는 이 구조체에서만
type MetricsHandler struct {
	builder  *report.Builder
	agg      *metrics.Aggregator
	cache    BundleCache
	cacheTTL time.Duration
	defaults reportconfig.Options
	logger   *logger.Logger
}

// NewMetricsHandler creates a new metrics handler. cache may be nil.
func NewMetricsHandler(agg *metrics.Aggregator, cache BundleCache, cacheTTL time.Duration, defaults reportconfig.Options, log *logger.Logger) *MetricsHandler {
	return &MetricsHandler{
		builder:  report.NewBuilder(agg),
		agg:      agg,
		cache:    cache,
		cacheTTL: cacheTTL,
		defaults: defaults,
		logger:   log,
	}
}

// decode reads and parses a SeriesRequest, returning the body digest for caching
func (h *MetricsHandler) decode(w http.ResponseWriter, r *http.Request) (metrics.Input, reportconfig.Options, string, bool) {
	var req SeriesRequest

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return metrics.Input{}, reportconfig.Options{}, "", false
	}
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return metrics.Input{}, reportconfig.Options{}, "", false
	}
	if len(req.Returns) == 0 {
		respondError(w, http.StatusBadRequest, "returns is required")
		return metrics.Input{}, reportconfig.Options{}, "", false
	}

	opts, err := req.ResolveOptions(h.defaults)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return metrics.Input{}, reportconfig.Options{}, "", false
	}

	in, err := req.Input()
	if err != nil {
		status := statusOf(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		respondError(w, status, err.Error())
		return metrics.Input{}, reportconfig.Options{}, "", false
	}

	sum := sha256.Sum256(body)
	return in, opts, hex.EncodeToString(sum[:]), true
}

// ComputeMetrics returns the metrics bundle of the posted series
// POST /api/metrics
func (h *MetricsHandler) ComputeMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	in, opts, digest, ok := h.decode(w, r)
	if !ok {
		return
	}

	optsHash, err := reportconfig.Hash(opts)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to hash options")
		return
	}
	key := redis.BundleKey(digest, optsHash)

	if bundle, ok := cachedBundle(ctx, h.cache, key, h.logger); ok {
		respondJSON(w, http.StatusOK, bundle)
		return
	}

	bundle, err := h.agg.Compute(in, opts)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Warn("Failed to compute metrics")
		respondError(w, statusOf(err), err.Error())
		return
	}

	storeBundle(ctx, h.cache, key, bundle, h.cacheTTL, h.logger)
	respondJSON(w, http.StatusOK, bundle)
}

// RenderTearsheet returns the HTML (or ?format=xlsx workbook) tearsheet of the posted series
// POST /api/tearsheet
func (h *MetricsHandler) RenderTearsheet(w http.ResponseWriter, r *http.Request) {
	in, opts, _, ok := h.decode(w, r)
	if !ok {
		return
	}

	rep, err := h.builder.Build(in, opts)
	if err != nil {
		h.logger.WithContext(r.Context()).WithError(err).Warn("Failed to build report")
		respondError(w, statusOf(err), err.Error())
		return
	}

	writeReport(w, r.URL.Query().Get("format"), rep, h.logger)
}

// writeReport renders rep in the requested format ("html" by default)
func writeReport(w http.ResponseWriter, format string, rep *report.Report, log *logger.Logger) {
	var buf bytes.Buffer
	var contentType string

	switch format {
	case "", "html":
		contentType = "text/html; charset=utf-8"
		if err := tearsheet.Render(&buf, rep); err != nil {
			log.WithError(err).Error("Failed to render tearsheet")
			respondError(w, http.StatusInternalServerError, "Failed to render tearsheet")
			return
		}
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		if err := tearsheet.WriteXLSX(&buf, rep); err != nil {
			log.WithError(err).Error("Failed to write workbook")
			respondError(w, http.StatusInternalServerError, "Failed to write workbook")
			return
		}
	default:
		respondError(w, http.StatusBadRequest, "format must be html or xlsx")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func cachedBundle(ctx context.Context, cache BundleCache, key string, log *logger.Logger) (*metrics.Bundle, bool) {
	if cache == nil {
		return nil, false
	}
	var bundle metrics.Bundle
	hit, err := cache.Get(ctx, key, &bundle)
	switch {
	case err != nil:
		monitoring.CacheLookups.WithLabelValues("error").Inc()
		log.WithError(err).Warn("Bundle cache lookup failed")
		return nil, false
	case !hit:
		monitoring.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	monitoring.CacheLookups.WithLabelValues("hit").Inc()
	return &bundle, true
}

func storeBundle(ctx context.Context, cache BundleCache, key string, bundle *metrics.Bundle, ttl time.Duration, log *logger.Logger) {
	if cache == nil {
		return
	}
	if err := cache.Set(ctx, key, bundle, ttl); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Warn("Bundle cache store failed")
	}
}
