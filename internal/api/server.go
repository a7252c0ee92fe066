package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/wonny/tearsheet/pkg/config"
	"github.com/wonny/tearsheet/pkg/logger"
)

// Server is the tearsheet HTTP API server
// ⭐ SSOT: API 서버 설정은 이 파일에서만
type Server struct {
	http   *http.Server
	logger *logger.Logger
}

// New creates the server listening on cfg.Port
func New(cfg *config.Config, log *logger.Logger, router http.Handler) *Server {
	return &Server{
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second, // 수십 년치 일간 수익률 본문
			WriteTimeout:      60 * time.Second, // 긴 시계열 tearsheet 렌더링
			IdleTimeout:       90 * time.Second,
		},
		logger: log.WithFields(map[string]interface{}{
			"port":    cfg.Port,
			"metrics": cfg.MetricsEnabled,
		}),
	}
}

// Start blocks serving requests until Shutdown
func (s *Server) Start() error {
	s.logger.Info("Starting API server")

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")

	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
