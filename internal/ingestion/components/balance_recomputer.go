package components

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/rentroll-payment-ledger/internal/domain/ledger"
	"github.com/rentroll-payment-ledger/internal/domain/tenant"
	"github.com/rentroll-payment-ledger/internal/ingestion/service"
	"github.com/rentroll-payment-ledger/internal/platform/persistence"
)

// BalanceRecomputerImpl is the only writer of stored balances after insert
type BalanceRecomputerImpl struct {
	db         persistence.TxBeginner
	tenantRepo tenant.Repository
	ledgerRepo ledger.Repository
	logger     *slog.Logger
}

func NewBalanceRecomputer(
	db persistence.TxBeginner,
	tenantRepo tenant.Repository,
	ledgerRepo ledger.Repository,
	logger *slog.Logger,
) *BalanceRecomputerImpl {
	return &BalanceRecomputerImpl{
		db:         db,
		tenantRepo: tenantRepo,
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// Recompute rewrites every drifted balance of the tenant in one transaction.
// Running it on a consistent ledger updates nothing.
func (r *BalanceRecomputerImpl) Recompute(ctx context.Context, tenantID uuid.UUID) (*service.RecomputeResult, error) {
	var result *service.RecomputeResult
	err := persistence.ExecuteTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		result, _, err = recomputeTenant(ctx, r.tenantRepo.WithTx(tx), r.ledgerRepo.WithTx(tx), tenantID)
		return err
	})
	if err != nil {
		r.logger.Error("Failed to recompute ledger", "tenant_id", tenantID.String(), "error", err)
		return nil, fmt.Errorf("failed to recompute ledger for tenant %s: %w", tenantID, err)
	}

	r.logger.Info("Ledger recomputed",
		"tenant_id", tenantID.String(),
		"entries", result.Entries,
		"updated", result.Updated,
		"balance", result.Balance.StringFixed(2),
	)
	return result, nil
}

// recomputeTenant must run inside a transaction; both repositories are bound to it.
// It returns the entries in chronological order with their corrected balances.
func recomputeTenant(ctx context.Context, tenantTx tenant.Repository, ledgerTx ledger.Repository, tenantID uuid.UUID) (*service.RecomputeResult, []*ledger.Entry, error) {
	if _, err := tenantTx.LockForUpdate(ctx, tenantID); err != nil {
		return nil, nil, err
	}

	entries, err := ledgerTx.ListByTenantForUpdate(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}

	changed, final := ledger.ApplyRunningBalance(entries)
	for _, e := range changed {
		if err := ledgerTx.UpdateBalance(ctx, e.ID, e.Balance); err != nil {
			return nil, nil, err
		}
	}

	return &service.RecomputeResult{
		TenantID: tenantID,
		Entries:  len(entries),
		Updated:  len(changed),
		Balance:  final,
	}, entries, nil
}

// OpeningBalanceWriterImpl implements the OpeningBalanceWriter interface
type OpeningBalanceWriterImpl struct {
	db         persistence.TxBeginner
	tenantRepo tenant.Repository
	ledgerRepo ledger.Repository
	logger     *slog.Logger
}

func NewOpeningBalanceWriter(
	db persistence.TxBeginner,
	tenantRepo tenant.Repository,
	ledgerRepo ledger.Repository,
	logger *slog.Logger,
) *OpeningBalanceWriterImpl {
	return &OpeningBalanceWriterImpl{
		db:         db,
		tenantRepo: tenantRepo,
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// Backfill inserts an OPENING_BALANCE entry dated asOf and recomputes the
// ledger in the same transaction, so entries after asOf absorb the amount.
func (w *OpeningBalanceWriterImpl) Backfill(ctx context.Context, tenantID uuid.UUID, amount decimal.Decimal, asOf time.Time) (*service.RecomputeResult, error) {
	entry, err := ledger.NewEntry(tenantID, ledger.EntryTypeOpeningBalance, amount, asOf.Format("2006-01"), asOf, "opening balance")
	if err != nil {
		return nil, err
	}

	var result *service.RecomputeResult
	err = persistence.ExecuteTx(ctx, w.db, func(tx pgx.Tx) error {
		tenantTx := w.tenantRepo.WithTx(tx)
		ledgerTx := w.ledgerRepo.WithTx(tx)

		if _, err := tenantTx.LockForUpdate(ctx, tenantID); err != nil {
			return err
		}
		if err := ledgerTx.Create(ctx, entry); err != nil {
			return err
		}

		var entries []*ledger.Entry
		var err error
		result, entries, err = recomputeTenant(ctx, tenantTx, ledgerTx, tenantID)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.ID == entry.ID {
				entry.Balance = e.Balance
			}
		}
		return nil
	})
	if err != nil {
		w.logger.Error("Failed to backfill opening balance",
			"tenant_id", tenantID.String(),
			"amount", amount.StringFixed(2),
			"as_of", asOf.Format(time.DateOnly),
			"error", err,
		)
		return nil, fmt.Errorf("failed to backfill opening balance for tenant %s: %w", tenantID, err)
	}

	result.Entry = entry
	w.logger.Info("Opening balance backfilled",
		"tenant_id", tenantID.String(),
		"entry_id", entry.ID.String(),
		"updated", result.Updated,
		"balance", result.Balance.StringFixed(2),
	)
	return result, nil
}
