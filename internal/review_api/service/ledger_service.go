package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentroll-payment-ledger/internal/domain/ledger"
	"github.com/rentroll-payment-ledger/internal/domain/tenant"
	ingestion "github.com/rentroll-payment-ledger/internal/ingestion/service"
)

type ledgerService struct {
	tenantRepo tenant.Repository
	ledgerRepo ledger.Repository
	recomputer ingestion.BalanceRecomputer
	logger     *slog.Logger
}

// NewLedgerService creates a ledger service over the tenant and ledger stores
func NewLedgerService(
	logger *slog.Logger,
	tenantRepo tenant.Repository,
	ledgerRepo ledger.Repository,
	recomputer ingestion.BalanceRecomputer,
) LedgerService {
	return &ledgerService{
		tenantRepo: tenantRepo,
		ledgerRepo: ledgerRepo,
		recomputer: recomputer,
		logger:     logger,
	}
}

// GetLedger returns one page of entries plus the tenant's current balance.
// Unknown tenants surface as tenant.ErrTenantNotFound.
func (s *ledgerService) GetLedger(ctx context.Context, tenantID uuid.UUID, page, perPage int) (*LedgerPage, error) {
	t, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	total, err := s.ledgerRepo.CountByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	entries, err := s.ledgerRepo.ListByTenant(ctx, tenantID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	balance := decimal.Zero
	latest, err := s.ledgerRepo.GetLatestByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest ledger entry: %w", err)
	}
	if latest != nil {
		balance = latest.Balance
	}

	return &LedgerPage{
		Tenant:  t,
		Entries: entries,
		Total:   total,
		Balance: balance,
	}, nil
}

func (s *ledgerService) Recompute(ctx context.Context, tenantID uuid.UUID) (*ingestion.RecomputeResult, error) {
	result, err := s.recomputer.Recompute(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if result.Updated > 0 {
		s.logger.Warn("Recompute repaired drifted balances",
			"tenant_id", tenantID.String(),
			"updated", result.Updated,
			"balance", result.Balance.StringFixed(2),
		)
	}
	return result, nil
}
