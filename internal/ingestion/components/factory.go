package components

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rentroll-payment-ledger/internal/config"
	"github.com/rentroll-payment-ledger/internal/domain/audit"
	"github.com/rentroll-payment-ledger/internal/domain/ledger"
	"github.com/rentroll-payment-ledger/internal/domain/payment"
	"github.com/rentroll-payment-ledger/internal/domain/tenant"
	"github.com/rentroll-payment-ledger/internal/ingestion/service"
	"github.com/rentroll-payment-ledger/internal/matcher"
	"github.com/rentroll-payment-ledger/internal/platform/persistence"
	"github.com/rentroll-payment-ledger/internal/source"
)

// Repositories bundles the stores the ingestion pipeline writes through
type Repositories struct {
	Tenants  tenant.Repository
	Payments payment.Repository
	Ledger   ledger.Repository
	Outbox   audit.OutboxRepository
}

// Ingestion is the wired pipeline shared by the importer, the email processor
// and the review API
type Ingestion struct {
	Import          *service.ImportService
	Email           *service.EmailService
	Recomputer      service.BalanceRecomputer
	OpeningBalances service.OpeningBalanceWriter
	ParsePool       *service.ParsePool
}

// Shutdown releases the parse workers
func (i *Ingestion) Shutdown() {
	i.ParsePool.Shutdown()
}

// CreateIngestion creates the ingestion services with all their dependencies.
func CreateIngestion(
	db persistence.TxBeginner,
	repos Repositories,
	overrides *matcher.OverrideTable,
	logger *slog.Logger,
	cfg *config.Config,
) (*Ingestion, error) {
	tenantMatcher := matcher.New(overrides, logger.With("component", "matcher"))
	dedupGate := NewDedupGate(repos.Payments, logger.With("component", "dedup_gate"))
	auditEmitter := NewAuditEmitter(repos.Outbox, logger.With("component", "audit_emitter"))
	poster := NewLedgerPoster(db, repos.Tenants, repos.Payments, repos.Ledger, auditEmitter, logger.With("component", "ledger_poster"))

	parsePool, err := service.NewParsePool(
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "parse_pool"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create parse pool: %w", err)
	}
	logger.Info("Created parse pool", "pool_size", cfg.WorkerPool.Size)

	router := source.NewEmailRouter(source.DefaultRoutes(cfg.Ingestion.Location(), time.Now, cfg.Ingestion.ZelleSenders)...)

	return &Ingestion{
		Import: service.NewImportService(repos.Tenants, tenantMatcher, dedupGate, poster, parsePool,
			logger.With("component", "import_service")),
		Email: service.NewEmailService(router, repos.Tenants, tenantMatcher, dedupGate, poster,
			logger.With("component", "email_service")),
		Recomputer:      NewBalanceRecomputer(db, repos.Tenants, repos.Ledger, logger.With("component", "recomputer")),
		OpeningBalances: NewOpeningBalanceWriter(db, repos.Tenants, repos.Ledger, logger.With("component", "opening_balance")),
		ParsePool:       parsePool,
	}, nil
}
