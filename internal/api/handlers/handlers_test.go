package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tearsheet/internal/metrics"
	"github.com/wonny/tearsheet/internal/montecarlo"
	"github.com/wonny/tearsheet/internal/reportconfig"
	"github.com/wonny/tearsheet/internal/series"
	"github.com/wonny/tearsheet/internal/store"
	"github.com/wonny/tearsheet/pkg/logger"
)

// =============================================================================
// Fakes
// =============================================================================

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = b
	c.sets++
	return nil
}

type fakeStore struct {
	inputs map[string]metrics.Input
	runs   []store.Run
}

func (s *fakeStore) LoadReturns(_ context.Context, id string, _, _ time.Time) (metrics.Input, error) {
	in, ok := s.inputs[id]
	if !ok {
		return metrics.Input{}, store.ErrNotFound
	}
	return in, nil
}

func (s *fakeStore) SaveRun(_ context.Context, run *store.Run) error {
	run.ID = uuid.New()
	s.runs = append(s.runs, *run)
	return nil
}

func (s *fakeStore) GetRun(_ context.Context, id uuid.UUID) (*store.Run, error) {
	for i := range s.runs {
		if s.runs[i].ID == id {
			return &s.runs[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) ListRuns(_ context.Context, id string, limit int) ([]store.Run, error) {
	var out []store.Run
	for _, r := range s.runs {
		if r.PortfolioID == id && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

// =============================================================================
// Helpers
// =============================================================================

func router(m *MetricsHandler, p *PortfolioHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/metrics", m.ComputeMetrics).Methods("POST")
	r.HandleFunc("/api/tearsheet", m.RenderTearsheet).Methods("POST")
	r.HandleFunc("/api/montecarlo", m.Simulate).Methods("POST")
	r.HandleFunc("/api/portfolios/{id}/metrics", p.GetMetrics).Methods("GET")
	r.HandleFunc("/api/portfolios/{id}/tearsheet", p.GetTearsheet).Methods("GET")
	r.HandleFunc("/api/portfolios/{id}/runs", p.ListRuns).Methods("GET")
	r.HandleFunc("/api/runs/{id}", p.GetRun).Methods("GET")
	return r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBundle(t *testing.T, rec *httptest.ResponseRecorder) metrics.Bundle {
	t.Helper()
	var b metrics.Bundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	return b
}

func dailyInput(t *testing.T, n int) metrics.Input {
	t.Helper()
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	pattern := []float64{0.01, -0.02, 0.015, -0.008, 0.02}
	dates := make([]time.Time, n)
	values := make([]float64, n)
	for i := range values {
		dates[i] = start.AddDate(0, 0, i)
		values[i] = pattern[i%len(pattern)]
	}
	s, err := series.New(dates, values)
	require.NoError(t, err)
	return metrics.Input{Returns: s}
}

func newHandlers(st RunStore, cache BundleCache) http.Handler {
	agg := metrics.NewAggregator(logger.Nop())
	m := NewMetricsHandler(agg, cache, time.Minute, reportconfig.Default(), logger.Nop())
	var p *PortfolioHandler
	if st != nil {
		p = NewPortfolioHandler(st, agg, cache, time.Minute, reportconfig.Default(), 24*time.Hour*3650, logger.Nop())
	} else {
		p = NewPortfolioHandler(nil, agg, cache, time.Minute, reportconfig.Default(), time.Hour, logger.Nop())
	}
	return router(m, p)
}

// =============================================================================
// POST /api/metrics
// =============================================================================

func TestComputeMetrics(t *testing.T) {
	cache := newMemoryCache()
	h := newHandlers(nil, cache)

	body := `{"returns":[0.01,-0.02,null,0.03,0.01],"options":{"mode":"basic"}}`
	rec := do(h, "POST", "/api/metrics", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	b := decodeBundle(t, rec)
	assert.False(t, b.HasBenchmark)
	_, ok := b.Get("Smart Sharpe")
	assert.False(t, ok, "basic mode")
	assert.InDelta(t, 1.01*0.98*1.03*1.01-1, b.Value("Cumulative Return"), 1e-12)

	// 같은 요청은 캐시에서
	rec2 := do(h, "POST", "/api/metrics", body)
	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, 1, cache.sets)
	assert.JSONEq(t, rec.Body.String(), rec2.Body.String())
}

func TestComputeMetrics_Benchmark(t *testing.T) {
	h := newHandlers(nil, nil)

	body := `{
		"dates":["2024-01-02","2024-01-03","2024-01-04","2024-01-05"],
		"returns":[0.01,-0.02,0.03,0.01],
		"benchmark":[0.01,-0.02,0.03,0.01]
	}`
	rec := do(h, "POST", "/api/metrics", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	b := decodeBundle(t, rec)
	assert.True(t, b.HasBenchmark)
	assert.InDelta(t, 1.0, b.Value("Beta"), 1e-12)
	start, _ := b.Get("Start Period")
	assert.Equal(t, "2024-01-02", start.Display())
}

func TestComputeMetrics_Errors(t *testing.T) {
	h := newHandlers(nil, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{"returns":`, http.StatusBadRequest},
		{"no returns", `{}`, http.StatusBadRequest},
		{"unknown mode", `{"returns":[0.01],"options":{"mode":"verbose"}}`, http.StatusBadRequest},
		{"bad periods", `{"returns":[0.01],"options":{"periods_per_year":0}}`, http.StatusBadRequest},
		{"bad date", `{"dates":["01/02/2024"],"returns":[0.01]}`, http.StatusBadRequest},
		{"date count", `{"dates":["2024-01-02"],"returns":[0.01,0.02]}`, http.StatusUnprocessableEntity},
		{"unsorted", `{"dates":["2024-01-03","2024-01-02"],"returns":[0.01,0.02]}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, "POST", "/api/metrics", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestComputeMetrics_EmptyAfterCleaning(t *testing.T) {
	h := newHandlers(nil, nil)

	for _, body := range []string{`{"returns":[null,null]}`, `{"returns":[0,0,0]}`} {
		rec := do(h, "POST", "/api/metrics", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		b := decodeBundle(t, rec)
		assert.Len(t, b.Warnings, 1, body)
		e, ok := b.Get("Sharpe")
		require.True(t, ok)
		assert.Equal(t, metrics.Missing, e.Display(), body)
	}
}

func TestRenderTearsheet(t *testing.T) {
	h := newHandlers(nil, nil)

	rec := do(h, "POST", "/api/tearsheet", `{"returns":[0.01,-0.02,0.03,0.01],"options":{"title":"Demo"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<title>Demo</title>")

	rec = do(h, "POST", "/api/tearsheet?format=xlsx", `{"returns":[0.01,-0.02,0.03,0.01]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "PK", rec.Body.String()[:2])

	rec = do(h, "POST", "/api/tearsheet?format=pdf", `{"returns":[0.01,-0.02,0.03,0.01]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// POST /api/montecarlo
// =============================================================================

func returnsBody(n int) string {
	pattern := []string{"0.01", "-0.02", "0.015", "-0.008", "0.02"}
	values := make([]string, n)
	for i := range values {
		values[i] = pattern[i%len(pattern)]
	}
	return `{"returns":[` + strings.Join(values, ",") + `]}`
}

func TestSimulate(t *testing.T) {
	h := newHandlers(nil, nil)

	rec := do(h, "POST", "/api/montecarlo?sims=200&seed=3&horizon=60&bust=-0.1", returnsBody(40))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res montecarlo.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 200, res.Config.Simulations)
	assert.Equal(t, 60, res.Horizon)
	assert.Equal(t, 40, res.Samples)
	require.NotNil(t, res.BustProbability)
	assert.Nil(t, res.GoalProbability)

	tests := []struct {
		name  string
		query string
		body  string
		want  int
	}{
		{"bad sims", "?sims=abc", returnsBody(40), http.StatusBadRequest},
		{"too many sims", "?sims=1000000", returnsBody(40), http.StatusBadRequest},
		{"bad method", "?method=garch", returnsBody(40), http.StatusBadRequest},
		{"positive bust", "?bust=0.2", returnsBody(40), http.StatusBadRequest},
		{"short series", "", returnsBody(10), http.StatusUnprocessableEntity},
		{"no returns", "", `{}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, "POST", "/api/montecarlo"+tt.query, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

// =============================================================================
// Portfolio endpoints
// =============================================================================

func TestPortfolio_NoDatabase(t *testing.T) {
	h := newHandlers(nil, nil)

	for _, path := range []string{
		"/api/portfolios/p1/metrics",
		"/api/portfolios/p1/tearsheet",
		"/api/portfolios/p1/runs",
		"/api/runs/" + uuid.NewString(),
	} {
		rec := do(h, "GET", path, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestPortfolio_Metrics(t *testing.T) {
	st := &fakeStore{inputs: map[string]metrics.Input{"growth": dailyInput(t, 60)}}
	h := newHandlers(st, newMemoryCache())

	rec := do(h, "GET", "/api/portfolios/growth/metrics?mode=basic", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	b := decodeBundle(t, rec)
	assert.NotEmpty(t, b.Entries)

	rec = do(h, "GET", "/api/portfolios/missing/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(h, "GET", "/api/portfolios/growth/metrics?from=2023/01/01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, "GET", "/api/portfolios/growth/metrics?mode=nope", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPortfolio_SaveAndFetchRun(t *testing.T) {
	st := &fakeStore{inputs: map[string]metrics.Input{"growth": dailyInput(t, 60)}}
	h := newHandlers(st, nil)

	rec := do(h, "GET", "/api/portfolios/growth/metrics?save=true", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var run store.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, "growth", run.PortfolioID)
	assert.Len(t, run.OptionsHash, 64)
	assert.Equal(t, "2023-03-02", run.AsOf.Format(series.DateLayout))

	rec = do(h, "GET", "/api/runs/"+run.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(h, "GET", "/api/portfolios/growth/runs?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []store.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.Len(t, runs, 1)

	rec = do(h, "GET", "/api/portfolios/other/runs", "")
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(h, "GET", "/api/runs/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(h, "GET", "/api/runs/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPortfolio_Tearsheet(t *testing.T) {
	st := &fakeStore{inputs: map[string]metrics.Input{"growth": dailyInput(t, 60)}}
	h := newHandlers(st, nil)

	rec := do(h, "GET", "/api/portfolios/growth/tearsheet", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "<title>growth</title>")
}
