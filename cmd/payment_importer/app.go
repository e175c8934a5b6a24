package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/rentroll-payment-ledger/internal/config"
	"github.com/rentroll-payment-ledger/internal/data/postgres"
	"github.com/rentroll-payment-ledger/internal/ingestion/components"
	"github.com/rentroll-payment-ledger/internal/logger"
	"github.com/rentroll-payment-ledger/internal/matcher"
	"github.com/rentroll-payment-ledger/internal/platform/persistence"
)

// app is the wired pipeline for one CLI invocation
type app struct {
	cfg       *config.Config
	log       *slog.Logger
	db        *persistence.PostgresDB
	ingestion *components.Ingestion
}

// openApp loads config, connects to Postgres and wires the ingestion pipeline.
// Logs go to stderr so stdout carries only the JSON result.
func openApp(ctx context.Context, configName string) (*app, error) {
	cfg, err := config.LoadConfig(configName)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(os.Stderr, cfg.Logging.Level)

	overrides, err := matcher.LoadOverrides(cfg.Ingestion.OverridesPath)
	if err != nil {
		return nil, err
	}
	log.Info("Loaded sender overrides", "path", cfg.Ingestion.OverridesPath, "entries", overrides.Len())

	db, err := persistence.NewPostgresDB(ctx, log, &cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	repos := components.Repositories{
		Tenants:  postgres.NewTenantRepository(log, db),
		Payments: postgres.NewPaymentRepository(log, db),
		Ledger:   postgres.NewLedgerRepository(log, db),
		Outbox:   postgres.NewOutboxRepository(log, db),
	}

	ingestion, err := components.CreateIngestion(db, repos, overrides, log, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &app{cfg: cfg, log: log, db: db, ingestion: ingestion}, nil
}

func (a *app) Close() {
	a.ingestion.Shutdown()
	a.db.Close()
}
