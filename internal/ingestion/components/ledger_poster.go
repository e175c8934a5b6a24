package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rentroll-payment-ledger/internal/domain/ledger"
	"github.com/rentroll-payment-ledger/internal/domain/payment"
	"github.com/rentroll-payment-ledger/internal/domain/tenant"
	"github.com/rentroll-payment-ledger/internal/ingestion/service"
	"github.com/rentroll-payment-ledger/internal/platform/persistence"
)

// LedgerPosterImpl implements the LedgerPoster interface
type LedgerPosterImpl struct {
	db           persistence.TxBeginner
	tenantRepo   tenant.Repository
	paymentRepo  payment.Repository
	ledgerRepo   ledger.Repository
	auditEmitter service.AuditEmitter
	logger       *slog.Logger
	now          func() time.Time
}

func NewLedgerPoster(
	db persistence.TxBeginner,
	tenantRepo tenant.Repository,
	paymentRepo payment.Repository,
	ledgerRepo ledger.Repository,
	auditEmitter service.AuditEmitter,
	logger *slog.Logger,
) *LedgerPosterImpl {
	return &LedgerPosterImpl{
		db:           db,
		tenantRepo:   tenantRepo,
		paymentRepo:  paymentRepo,
		ledgerRepo:   ledgerRepo,
		auditEmitter: auditEmitter,
		logger:       logger,
		now:          time.Now,
	}
}

// Post writes the CONFIRMED payment and its PAYMENT entry in one transaction
// while holding the tenant row lock. The audit event is emitted after commit;
// its failure is reported in the result and never undoes the payment.
func (p *LedgerPosterImpl) Post(ctx context.Context, m *payment.MatchedPayment, source payment.Source) (*service.PostResult, error) {
	if !m.IsMatched() {
		return nil, ErrUnmatchedPayment
	}

	logger := p.logger.With("external_id", m.ExternalID, "method", m.Method, "tenant_id", m.TenantID.String())

	now := p.now().UTC()
	confirmed, err := payment.NewConfirmedPayment(m, source, now)
	if err != nil {
		logger.Warn("Payment rejected before posting", "error", err)
		return nil, err
	}

	var entry *ledger.Entry
	err = persistence.ExecuteTx(ctx, p.db, func(tx pgx.Tx) error {
		if _, err := p.tenantRepo.WithTx(tx).LockForUpdate(ctx, confirmed.TenantID); err != nil {
			return err
		}

		if err := p.paymentRepo.WithTx(tx).Create(ctx, confirmed); err != nil {
			return err
		}

		ledgerTx := p.ledgerRepo.WithTx(tx)
		latest, err := ledgerTx.GetLatestByTenant(ctx, confirmed.TenantID)
		if err != nil {
			return err
		}

		entry, err = ledger.NewPaymentEntry(confirmed, latest, now)
		if err != nil {
			return err
		}
		return ledgerTx.Create(ctx, entry)
	})
	if err != nil {
		if errors.Is(err, payment.ErrDuplicatePayment{}) {
			logger.Info("Payment already posted, skipping")
			return nil, err
		}
		logger.Error("Failed to post payment",
			"sender", m.SenderName,
			"amount", m.Amount.StringFixed(2),
			"error", err,
		)
		return nil, fmt.Errorf("failed to post payment %s: %w", m.Key(), err)
	}

	logger.Info("Payment posted",
		"payment_id", confirmed.ID.String(),
		"entry_id", entry.ID.String(),
		"amount", confirmed.Amount.StringFixed(2),
		"balance", entry.Balance.StringFixed(2),
	)

	result := &service.PostResult{Payment: confirmed, Entry: entry}
	if err := p.auditEmitter.Emit(ctx, confirmed, m); err != nil {
		logger.Warn("Payment committed without audit event", "payment_id", confirmed.ID.String(), "error", err)
		result.AuditErr = err
	}
	return result, nil
}
