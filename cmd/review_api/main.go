package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rentroll-payment-ledger/internal/config"
	"github.com/rentroll-payment-ledger/internal/data/mongo"
	"github.com/rentroll-payment-ledger/internal/data/postgres"
	"github.com/rentroll-payment-ledger/internal/ingestion/components"
	"github.com/rentroll-payment-ledger/internal/logger"
	"github.com/rentroll-payment-ledger/internal/matcher"
	"github.com/rentroll-payment-ledger/internal/platform/persistence"
	"github.com/rentroll-payment-ledger/internal/review_api"
	"github.com/rentroll-payment-ledger/internal/review_api/service"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("review_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	overrides, err := matcher.LoadOverrides(cfg.Ingestion.OverridesPath)
	if err != nil {
		log.Error("Failed to load sender overrides", "error", err)
		os.Exit(1)
	}

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	repos := components.Repositories{
		Tenants:  postgres.NewTenantRepository(log, postgresDB),
		Payments: postgres.NewPaymentRepository(log, postgresDB),
		Ledger:   postgres.NewLedgerRepository(log, postgresDB),
		Outbox:   postgres.NewOutboxRepository(log, postgresDB),
	}

	ingestion, err := components.CreateIngestion(postgresDB, repos, overrides, log, cfg)
	if err != nil {
		log.Error("Failed to create ingestion pipeline", "error", err)
		os.Exit(1)
	}

	services := review_api.Services{
		Ledger:  service.NewLedgerService(log.With("service", "ledger"), repos.Tenants, repos.Ledger, ingestion.Recomputer),
		Audit:   service.NewAuditService(mongo.NewAuditRepository(log, mongoDB.Database())),
		Preview: service.NewPreviewService(log.With("service", "preview"), ingestion.Import, cfg.Ingestion.Location()),
		Checks: map[string]review_api.HealthCheck{
			"postgres": postgresDB.Ping,
			"mongodb":  mongoDB.Ping,
		},
	}

	server := review_api.NewServer(log, cfg, services)
	log.Info("REST server initialized")

	errChan := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	ingestion.Shutdown()
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
		os.Exit(1)
	}
	log.Info("Server shutdown completed successfully")
}
