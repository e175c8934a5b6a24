package producers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/rentroll-payment-ledger/internal/config"
)

// EmailProducer enqueues raw RFC 5322 receipts on the email topic
type EmailProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

func NewEmailProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*EmailProducer, error) {
	if cfg.EmailTopic == "" {
		return nil, fmt.Errorf("kafka email topic is not configured")
	}

	if err := ensureTopic(cfg, cfg.EmailTopic, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure email topic %s exists: %w", cfg.EmailTopic, err)
	}

	return &EmailProducer{
		logger: logger,
		writer: newSyncWriter(cfg, cfg.EmailTopic),
		topic:  cfg.EmailTopic,
	}, nil
}

// SubmitEmail publishes one message keyed by its Message-ID
func (p *EmailProducer) SubmitEmail(ctx context.Context, messageID string, raw []byte) error {
	if len(raw) == 0 {
		return fmt.Errorf("refusing to submit empty email %q", messageID)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(messageID), Value: raw}); err != nil {
		p.logger.Error("Failed to submit email", "topic", p.topic, "message_id", messageID, "error", err)
		return fmt.Errorf("failed to submit email to %s: %w", p.topic, err)
	}

	p.logger.Debug("Submitted email", "topic", p.topic, "message_id", messageID, "bytes", len(raw))
	return nil
}

func (p *EmailProducer) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close email kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
