package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rentroll-payment-ledger/internal/ingestion/service"
	"github.com/rentroll-payment-ledger/internal/platform/messaging/producers"
)

// EmailProcessor ingests one raw receipt
type EmailProcessor interface {
	Process(ctx context.Context, raw []byte) (*service.EmailOutcome, error)
}

// EmailEventHandler handles raw receipt emails read from Kafka
type EmailEventHandler struct {
	processor EmailProcessor
	producer  producers.DeadLetterPublisher
	logger    *slog.Logger
}

// NewEmailEventHandler creates a new handler. producer may be nil when the DLQ is disabled.
func NewEmailEventHandler(
	logger *slog.Logger,
	processor EmailProcessor,
	producer producers.DeadLetterPublisher,
) *EmailEventHandler {
	return &EmailEventHandler{
		processor: processor,
		producer:  producer,
		logger:    logger,
	}
}

// HandleMessage processes one email. Storage failures are returned so the
// offset stays uncommitted; emails that can never be posted go to the DLQ.
func (h *EmailEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	logger := h.logger.With("message_key", string(key))

	out, err := h.processor.Process(ctx, value)
	if err != nil {
		logger.Error("Failed to ingest email, leaving offset uncommitted", "error", err)
		return fmt.Errorf("processing email %s failed: %w", string(key), err)
	}

	switch out.Outcome {
	case service.OutcomeCreated, service.OutcomeDuplicate:
		logger.Info("Email handled", "outcome", out.Outcome)
		return nil
	}

	reason := out.Reason()
	if h.producer == nil {
		logger.Warn("Email not ingested and DLQ is disabled, dropping", "outcome", out.Outcome, "reason", reason)
		return nil
	}

	if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
		if errors.Is(dlqErr, producers.ErrDLQDisabled) {
			logger.Warn("Email not ingested and DLQ is disabled, dropping", "outcome", out.Outcome, "reason", reason)
			return nil
		}
		logger.Error("Failed to publish email to DLQ", "dlq_error", dlqErr, "reason", reason)
		return fmt.Errorf("failed to park email %s in DLQ: %w", string(key), dlqErr)
	}

	logger.Info("Published unprocessable email to DLQ", "outcome", out.Outcome, "reason", reason)
	return nil
}
