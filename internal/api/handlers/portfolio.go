package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/wonny/tearsheet/internal/metrics"
	"github.com/wonny/tearsheet/internal/report"
	"github.com/wonny/tearsheet/internal/reportconfig"
	"github.com/wonny/tearsheet/internal/series"
	"github.com/wonny/tearsheet/internal/store"
	"github.com/wonny/tearsheet/pkg/logger"
	"github.com/wonny/tearsheet/pkg/redis"
)

// RunStore is the persistence surface used by the portfolio endpoints
type RunStore interface {
	LoadReturns(ctx context.Context, portfolioID string, from, to time.Time) (metrics.Input, error)
	SaveRun(ctx context.Context, run *store.Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*store.Run, error)
	ListRuns(ctx context.Context, portfolioID string, limit int) ([]store.Run, error)
}

// PortfolioHandler serves metrics for portfolios stored in the database
// ⭐ SSOT: 포트폴리오 API 핸들러는 이 구조체에서만
type PortfolioHandler struct {
	store    RunStore
	agg      *metrics.Aggregator
	builder  *report.Builder
	cache    BundleCache
	cacheTTL time.Duration
	defaults reportconfig.Options
	lookback time.Duration
	now      func() time.Time
	logger   *logger.Logger
}

// NewPortfolioHandler creates a new portfolio handler. A nil store answers 503.
func NewPortfolioHandler(st RunStore, agg *metrics.Aggregator, cache BundleCache, cacheTTL time.Duration, defaults reportconfig.Options, lookback time.Duration, log *logger.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		store:    st,
		agg:      agg,
		builder:  report.NewBuilder(agg),
		cache:    cache,
		cacheTTL: cacheTTL,
		defaults: defaults,
		lookback: lookback,
		now:      time.Now,
		logger:   log,
	}
}

func (h *PortfolioHandler) available(w http.ResponseWriter) bool {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "Database not configured")
		return false
	}
	return true
}

// window parses ?from=&to= (YYYY-MM-DD), defaulting to the configured lookback
func (h *PortfolioHandler) window(r *http.Request) (time.Time, time.Time, error) {
	to := h.now().UTC()
	from := to.Add(-h.lookback)

	q := r.URL.Query()
	if s := q.Get("from"); s != "" {
		t, err := time.Parse(series.DateLayout, s)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = t
	}
	if s := q.Get("to"); s != "" {
		t, err := time.Parse(series.DateLayout, s)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = t
	}
	return from, to, nil
}

// options applies ?mode= on the defaults
func (h *PortfolioHandler) options(r *http.Request) (reportconfig.Options, error) {
	opts := h.defaults
	if m := r.URL.Query().Get("mode"); m != "" {
		opts.Mode = reportconfig.Mode(m)
	}
	return opts, reportconfig.Validate(opts)
}

// GetMetrics returns the metrics bundle of a stored portfolio
// GET /api/portfolios/{id}/metrics?from=2020-01-01&to=2024-12-31&mode=basic&save=true
func (h *PortfolioHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	from, to, err := h.window(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date format (expected YYYY-MM-DD)")
		return
	}
	opts, err := h.options(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	optsHash, err := reportconfig.Hash(opts)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to hash options")
		return
	}

	save := r.URL.Query().Get("save") == "true"
	key := redis.PortfolioKey(id, optsHash, from.Format(series.DateLayout)+"_"+to.Format(series.DateLayout))
	if !save {
		if bundle, ok := cachedBundle(ctx, h.cache, key, h.logger); ok {
			respondJSON(w, http.StatusOK, bundle)
			return
		}
	}

	in, err := h.store.LoadReturns(ctx, id, from, to)
	if err != nil {
		h.respondStoreError(w, err, id)
		return
	}

	bundle, err := h.agg.Compute(in, opts)
	if err != nil {
		respondError(w, statusOf(err), err.Error())
		return
	}
	storeBundle(ctx, h.cache, key, bundle, h.cacheTTL, h.logger)

	if !save {
		respondJSON(w, http.StatusOK, bundle)
		return
	}

	run := &store.Run{PortfolioID: id, OptionsHash: optsHash, AsOf: in.Returns.Last(), Bundle: bundle}
	if err := h.store.SaveRun(ctx, run); err != nil {
		h.logger.WithContext(r.Context()).WithError(err).WithField("portfolio", id).Error("Failed to save run")
		respondError(w, http.StatusInternalServerError, "Failed to save run")
		return
	}
	respondJSON(w, http.StatusCreated, run)
}

// GetTearsheet renders the tearsheet of a stored portfolio
// GET /api/portfolios/{id}/tearsheet?format=html|xlsx
func (h *PortfolioHandler) GetTearsheet(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	id := mux.Vars(r)["id"]

	from, to, err := h.window(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date format (expected YYYY-MM-DD)")
		return
	}
	opts, err := h.options(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts.Title = id

	in, err := h.store.LoadReturns(r.Context(), id, from, to)
	if err != nil {
		h.respondStoreError(w, err, id)
		return
	}

	rep, err := h.builder.Build(in, opts)
	if err != nil {
		respondError(w, statusOf(err), err.Error())
		return
	}
	writeReport(w, r.URL.Query().Get("format"), rep, h.logger)
}

// ListRuns returns the latest saved runs of a portfolio
// GET /api/portfolios/{id}/runs?limit=20
func (h *PortfolioHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	id := mux.Vars(r)["id"]

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	runs, err := h.store.ListRuns(r.Context(), id, limit)
	if err != nil {
		h.respondStoreError(w, err, id)
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	respondJSON(w, http.StatusOK, runs)
}

// GetRun returns one saved run
// GET /api/runs/{id}
func (h *PortfolioHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid run id")
		return
	}

	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, id.String())
		return
	}
	respondJSON(w, http.StatusOK, run)
}

func (h *PortfolioHandler) respondStoreError(w http.ResponseWriter, err error, id string) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).WithField("id", id).Error("Store query failed")
		respondError(w, status, "Failed to query store")
		return
	}
	respondError(w, status, err.Error())
}
