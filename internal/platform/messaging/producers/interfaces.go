package producers

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/rentroll-payment-ledger/internal/domain/audit"
)

// EventPublisher delivers audit events to the external sink
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *audit.Event) error
	Close() error
}

// DeadLetterPublisher handles publishing messages to a Dead Letter Queue
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// EmailSubmitter enqueues raw receipt emails for the streaming driver
type EmailSubmitter interface {
	SubmitEmail(ctx context.Context, messageID string, raw []byte) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
