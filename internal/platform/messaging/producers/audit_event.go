package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/rentroll-payment-ledger/internal/config"
	"github.com/rentroll-payment-ledger/internal/domain/audit"
)

// AuditEventProducer publishes audit events keyed by tenant, so one tenant's
// events stay ordered on a single partition
type AuditEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

func NewAuditEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*AuditEventProducer, error) {
	if cfg.AuditTopic == "" {
		return nil, fmt.Errorf("kafka audit topic is not configured")
	}

	if err := ensureTopic(cfg, cfg.AuditTopic, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure audit topic %s exists: %w", cfg.AuditTopic, err)
	}

	return &AuditEventProducer{
		logger: logger,
		writer: newSyncWriter(cfg, cfg.AuditTopic),
		topic:  cfg.AuditTopic,
	}, nil
}

func (p *AuditEventProducer) PublishEvent(ctx context.Context, event *audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event %s: %w", event.ID, err)
	}

	key := event.ID.String()
	if event.TenantID != nil {
		key = event.TenantID.String()
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "event-id", Value: []byte(event.ID.String())},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish audit event",
			"topic", p.topic,
			"event_id", event.ID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to publish audit event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published audit event", "topic", p.topic, "event_id", event.ID.String())
	return nil
}

func (p *AuditEventProducer) Close() error {
	p.logger.Info("Closing audit event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close audit kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
