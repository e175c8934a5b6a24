package consumers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rentroll-payment-ledger/internal/config"
)

// MessageHandler processes one message. A non-nil error leaves the offset uncommitted.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer defines the message queue consumer interface
type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

// KafkaReader is the slice of kafka.Reader the consumer loop needs
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer implements Consumer using Kafka
type KafkaConsumer struct {
	reader     KafkaReader
	logger     *slog.Logger
	retryDelay time.Duration
	done       chan struct{}
}

// NewKafkaConsumer reads the email topic with the configured consumer group
func NewKafkaConsumer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) *KafkaConsumer {
	startOffset := kafka.FirstOffset
	if cfg.StartOffset == kafka.LastOffset {
		startOffset = kafka.LastOffset
	}

	return &KafkaConsumer{
		logger: logger.With("topic", cfg.EmailTopic, "group_id", cfg.ConsumerGroup),
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.BrokerList(),
			Topic:       cfg.EmailTopic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			MaxWait:     cfg.MaxWait,
			StartOffset: startOffset,
		}),
		retryDelay: time.Second,
		done:       make(chan struct{}),
	}
}

// Subscribe starts the fetch loop in the background; Done closes when it exits
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	if c.done == nil {
		c.done = make(chan struct{})
	}
	c.logger.Info("Subscribed to Kafka topic")

	go func() {
		defer close(c.done)
		c.consume(ctx, handler)
	}()

	return nil
}

// Done is closed once the fetch loop has stopped
func (c *KafkaConsumer) Done() <-chan struct{} {
	return c.done
}

// consume fetches until ctx is canceled. Messages are handled one at a time so
// a retried message is never overtaken by a later one.
func (c *KafkaConsumer) consume(ctx context.Context, handler MessageHandler) {
	for {
		if ctx.Err() != nil {
			c.logger.Info("Context canceled, stopping consumer")
			return
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("Consumer stopped")
				return
			}
			c.logger.Error("Failed to fetch message from Kafka", "error", err)
			if !c.sleep(ctx) {
				return
			}
			continue
		}

		c.logger.Debug("Received message from Kafka",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
		)

		if err := handler(ctx, msg.Key, msg.Value); err != nil {
			c.logger.Error("Failed to process message, will not commit offset",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"key", string(msg.Key),
				"error", err,
			)
			if !c.sleep(ctx) {
				return
			}
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Failed to commit message after successful processing",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"key", string(msg.Key),
				"error", err,
			)
		}
	}
}

func (c *KafkaConsumer) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.retryDelay):
		return true
	}
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
