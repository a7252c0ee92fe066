package commands

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/tearsheet/internal/api"
	"github.com/wonny/tearsheet/internal/api/handlers"
	"github.com/wonny/tearsheet/internal/metrics"
	"github.com/wonny/tearsheet/internal/store"
	"github.com/wonny/tearsheet/pkg/database"
	"github.com/wonny/tearsheet/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

DATABASE_URL 이 없으면 포트폴리오 엔드포인트는 503 을 반환합니다.
REDIS_ENABLED=true 이면 지표 번들 캐시와 분산 rate limit 을 사용합니다.

Endpoints:
  GET  /health                           - Health check
  GET  /metrics                          - Prometheus metrics
  POST /api/metrics                      - 요청 본문 시계열의 지표 번들
  POST /api/tearsheet?format=html|xlsx   - 요청 본문 시계열의 tearsheet
  GET  /api/portfolios/{id}/metrics      - 저장된 포트폴리오 지표 (save=true 면 실행 기록)
  GET  /api/portfolios/{id}/tearsheet    - 저장된 포트폴리오 tearsheet
  GET  /api/portfolios/{id}/runs         - 실행 기록 목록
  GET  /api/runs/{id}                    - 실행 기록 조회

Example:
  go run ./cmd/tearsheet api
  go run ./cmd/tearsheet api --port 9090`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	PrintHeader("Tearsheet API Server", "")

	// 1. Load config, logger, options
	a, err := bootstrap()
	if err != nil {
		return err
	}
	cfg, log := a.cfg, a.log
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	ctx := context.Background()

	// 2. Database (optional)
	var runStore handlers.RunStore
	db, err := database.New(ctx, cfg)
	switch {
	case err == nil:
		defer db.Close()
		repo := store.NewRepository(db.Pool)
		if err := repo.Migrate(ctx); err != nil {
			return err
		}
		runStore = repo
		log.Info("Connected to database")
	case errors.Is(err, database.ErrNotConfigured):
		log.Warn("DATABASE_URL not set, portfolio endpoints disabled")
	default:
		return fmt.Errorf("connect to database: %w", err)
	}

	// 3. Redis (optional): bundle cache + distributed rate limit
	var (
		cache   handlers.BundleCache
		limiter api.Limiter
	)
	rdb, err := redis.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()

	if rdb.Enabled() {
		cache = redis.NewCache(rdb, "tearsheet")
		if cfg.APIRateLimit > 0 {
			limiter = redis.NewRateLimiter(rdb, "tearsheet:ratelimit", int(math.Max(1, math.Ceil(cfg.APIRateLimit))), time.Second)
		}
		log.Info("Connected to redis")
	} else if cfg.APIRateLimit > 0 {
		limiter = api.NewLocalLimiter(cfg.APIRateLimit, 0)
	}

	// 4. Handlers + router
	agg := metrics.NewAggregator(log)
	metricsHandler := handlers.NewMetricsHandler(agg, cache, cfg.Redis.CacheTTL, a.opts, log)
	portfolioHandler := handlers.NewPortfolioHandler(runStore, agg, cache, cfg.Redis.CacheTTL, a.opts, cfg.Report.Lookback, log)

	router := api.NewRouter(metricsHandler, portfolioHandler, api.RouterOptions{
		Limiter:        limiter,
		MetricsEnabled: cfg.MetricsEnabled,
	}, log)

	// 5. Start server with graceful shutdown
	server := api.New(cfg, log, router)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info("API server started successfully")
	fmt.Fprintf(out, "\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	fmt.Fprintln(out, "\nShutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	fmt.Fprintln(out, "Server stopped")
	return nil
}
