package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
	"github.com/rentroll-payment-ledger/internal/ingestion/service"
)

// DedupGateImpl implements the DedupGate interface over the payment store
type DedupGateImpl struct {
	paymentRepo payment.Repository
	logger      *slog.Logger
}

func NewDedupGate(paymentRepo payment.Repository, logger *slog.Logger) service.DedupGate {
	return &DedupGateImpl{
		paymentRepo: paymentRepo,
		logger:      logger,
	}
}

// IsNew reports whether no payment with the same external id and method exists
func (g *DedupGateImpl) IsNew(ctx context.Context, m *payment.MatchedPayment) (bool, error) {
	if m.ExternalID == "" {
		return false, payment.ErrMissingExternalID
	}

	exists, err := g.paymentRepo.ExistsByExternalID(ctx, m.ExternalID, m.Method)
	if err != nil {
		g.logger.Error("Failed to check payment for duplicates",
			"external_id", m.ExternalID, "method", m.Method, "error", err,
		)
		return false, fmt.Errorf("failed to check duplicate for %s: %w", m.Key(), err)
	}

	if exists {
		g.logger.Debug("Payment already recorded", "external_id", m.ExternalID, "method", m.Method)
	}
	return !exists, nil
}
