package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rentroll-payment-ledger/internal/domain/audit"
	"github.com/rentroll-payment-ledger/internal/domain/payment"
	"github.com/rentroll-payment-ledger/internal/ingestion/service"
)

// AuditEmitterImpl writes PAYMENT events to the audit outbox
type AuditEmitterImpl struct {
	outboxRepo audit.OutboxRepository
	logger     *slog.Logger
}

func NewAuditEmitter(outboxRepo audit.OutboxRepository, logger *slog.Logger) service.AuditEmitter {
	return &AuditEmitterImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// Emit records the payment and how its tenant was resolved
func (e *AuditEmitterImpl) Emit(ctx context.Context, p *payment.Payment, m *payment.MatchedPayment) error {
	event, err := audit.NewPaymentEvent(p, m)
	if err != nil {
		e.logger.Error("Failed to build audit event payload", "payment_id", p.ID.String(), "error", err)
		return fmt.Errorf("failed to build audit event for payment %s: %w", p.ID, err)
	}

	message := audit.NewMessage(event)
	if err := e.outboxRepo.Create(ctx, message); err != nil {
		e.logger.Error("Failed to create audit outbox message",
			"payment_id", p.ID.String(),
			"tenant_id", p.TenantID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create audit outbox message for payment %s: %w", p.ID, err)
	}

	e.logger.Info("Audit event queued",
		"payment_id", p.ID.String(),
		"event_id", event.ID.String(),
		"outbox_id", message.ID,
	)
	return nil
}
