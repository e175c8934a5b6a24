package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rentroll-payment-ledger/internal/domain/audit"
	"github.com/rentroll-payment-ledger/internal/platform/messaging/producers"
)

var errEmptyEvent = errors.New("outbox message carries no event")

// AuditPublisher moves one outbox message to the audit sinks
type AuditPublisher interface {
	PublishAudit(ctx context.Context, message *audit.Message) error
}

// AuditPublisherImpl publishes to the audit topic, then archives the event.
// Either sink may be nil. Delivery is at least once; consumers key on the event id.
type AuditPublisherImpl struct {
	outboxRepo audit.OutboxRepository
	events     producers.EventPublisher
	archive    audit.ArchiveRepository
	logger     *slog.Logger
}

func NewAuditPublisher(
	outboxRepo audit.OutboxRepository,
	events producers.EventPublisher,
	archive audit.ArchiveRepository,
	logger *slog.Logger,
) AuditPublisher {
	return &AuditPublisherImpl{
		outboxRepo: outboxRepo,
		events:     events,
		archive:    archive,
		logger:     logger,
	}
}

// PublishAudit delivers the event and marks the message PROCESSED
func (p *AuditPublisherImpl) PublishAudit(ctx context.Context, message *audit.Message) error {
	if message.Event == nil {
		p.logger.Error("Outbox message has no event payload", "outbox_id", message.ID)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, audit.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("outbox %d: %w", message.ID, errEmptyEvent)
	}

	logger := p.logger.With("outbox_id", message.ID, "event_id", message.Event.ID.String())
	logger.Debug("Publishing audit event")

	if p.events != nil {
		if err := p.events.PublishEvent(ctx, message.Event); err != nil {
			logger.Error("Failed to publish audit event", "error", err)
			return fmt.Errorf("failed to publish audit event %s: %w", message.Event.ID, err)
		}
	}

	if p.archive != nil {
		if err := p.archive.Save(ctx, message.Event); err != nil {
			logger.Error("Failed to archive audit event", "error", err)
			return fmt.Errorf("failed to archive audit event %s: %w", message.Event.ID, err)
		}
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, audit.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED", "error", err)
		return fmt.Errorf("audit event %s delivered, but failed to mark outbox %d as PROCESSED: %w", message.Event.ID, message.ID, err)
	}

	logger.Info("Audit event delivered and outbox message marked as PROCESSED")
	return nil
}
