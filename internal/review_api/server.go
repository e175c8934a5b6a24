package review_api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rentroll-payment-ledger/internal/config"
	"github.com/rentroll-payment-ledger/internal/review_api/handler"
	"github.com/rentroll-payment-ledger/internal/review_api/service"
)

// Services are the backends the review API reads and drives
type Services struct {
	Ledger  service.LedgerService
	Audit   service.AuditService
	Preview service.PreviewService
	// Checks back the /health endpoint, keyed by dependency name
	Checks map[string]HealthCheck
}

// Server owns the HTTP listener of the review API
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
}

func NewServer(log *slog.Logger, cfg *config.Config, services Services) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()
	httpRouter.MaxMultipartMemory = cfg.Server.MaxUploadBytes

	setupRouter(log, httpRouter,
		handler.NewLedgerHandler(log.With("handler", "ledger"), services.Ledger),
		handler.NewAuditHandler(log.With("handler", "audit"), services.Audit),
		handler.NewImportHandler(log.With("handler", "import"), services.Preview, cfg.Server.MaxUploadBytes),
		services.Checks,
	)

	return &Server{
		logger:     log,
		httpRouter: httpRouter,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      httpRouter,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// Start blocks until the server stops. A graceful Stop is not an error.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop drains in-flight requests until ctx expires
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
