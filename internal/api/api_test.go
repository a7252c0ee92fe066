package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tearsheet/internal/api/handlers"
	"github.com/wonny/tearsheet/internal/metrics"
	"github.com/wonny/tearsheet/internal/reportconfig"
	"github.com/wonny/tearsheet/pkg/config"
	"github.com/wonny/tearsheet/pkg/logger"
)

type stubLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.err
}

func newTestRouter(opts RouterOptions) http.Handler {
	agg := metrics.NewAggregator(logger.Nop())
	mh := handlers.NewMetricsHandler(agg, nil, time.Minute, reportconfig.Default(), logger.Nop())
	ph := handlers.NewPortfolioHandler(nil, agg, nil, time.Minute, reportconfig.Default(), time.Hour, logger.Nop())
	return NewRouter(mh, ph, opts, logger.Nop())
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "10.0.0.7:51234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(newTestRouter(RouterOptions{}), "GET", "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"tearsheet-api"}`, rec.Body.String())
}

func TestRoutes(t *testing.T) {
	h := newTestRouter(RouterOptions{})

	rec := serve(h, "POST", "/api/metrics", `{"returns":[0.01,-0.02,0.03]}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, "GET", "/api/portfolios/p1/metrics", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(h, "POST", "/api/montecarlo?min_samples=2&sims=10", `{"returns":[0.01,-0.02,0.03]}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, "GET", "/api/metrics", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = serve(h, "GET", "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "metrics endpoint disabled")
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(RouterOptions{MetricsEnabled: true})

	serve(h, "POST", "/api/metrics", `{"returns":[0.01,-0.02,0.03]}`)
	rec := serve(h, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tearsheet_http_requests_total")
	assert.Contains(t, rec.Body.String(), `route="/api/metrics"`)
	assert.Contains(t, rec.Body.String(), "tearsheet_bundles_computed_total")
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := &stubLimiter{allowed: false}
	h := newTestRouter(RouterOptions{Limiter: limiter})

	rec := serve(h, "POST", "/api/metrics", `{"returns":[0.01]}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, []string{"10.0.0.7"}, limiter.keys)

	// health 는 제한 대상 아님
	rec = serve(h, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// 리미터 장애 시 통과
	limiter.err = errors.New("redis down")
	rec = serve(h, "POST", "/api/metrics", `{"returns":[0.01,0.02]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLocalLimiter(t *testing.T) {
	l := NewLocalLimiter(1, 2)
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "a")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "a")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "a")
	assert.False(t, ok, "burst exhausted")

	ok, _ = l.Allow(ctx, "b")
	assert.True(t, ok, "buckets are per key")

	assert.Equal(t, 5, NewLocalLimiter(4.5, 0).burst)
}

func TestRequestID(t *testing.T) {
	h := newTestRouter(RouterOptions{})

	rec := serve(h, "GET", "/health", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := serve(h, "GET", "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestServer_Shutdown(t *testing.T) {
	srv := New(&config.Config{Port: "0"}, logger.Nop(), http.NewServeMux())

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-errc)
}
