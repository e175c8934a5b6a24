package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rentroll-payment-ledger/internal/domain/audit"
	"github.com/rentroll-payment-ledger/internal/platform/persistence"
)

// OutboxRepository implements audit.OutboxRepository for PostgreSQL.
// The payload column holds the full event envelope.
type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewOutboxRepository(logger *slog.Logger, db *persistence.PostgresDB) audit.OutboxRepository {
	return &OutboxRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *OutboxRepository) WithTx(tx pgx.Tx) audit.OutboxRepository {
	return &OutboxRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a pending message for the outbox poller
func (r *OutboxRepository) Create(ctx context.Context, message *audit.Message) error {
	envelope, err := message.Envelope()
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}

	query := `
		INSERT INTO audit_outbox (event_id, event_type, tenant_id, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err = r.querier.QueryRow(ctx, query,
		message.Event.ID,
		message.Event.Type,
		message.Event.TenantID,
		envelope,
		message.Status,
		message.Attempts,
		message.CreatedAt,
	).Scan(&message.ID)
	if err != nil {
		r.logger.Error("Failed to create outbox message",
			"event_id", message.Event.ID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message: %w", err)
	}

	return nil
}

// GetPending returns the oldest pending messages first
func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*audit.Message, error) {
	query := `
		SELECT id, payload, status, attempts, created_at, last_attempt_at
		FROM audit_outbox
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, audit.OutboxStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to get pending outbox messages", "error", err)
		return nil, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	defer rows.Close()

	var messages []*audit.Message
	for rows.Next() {
		var (
			message audit.Message
			payload []byte
		)
		err := rows.Scan(
			&message.ID,
			&payload,
			&message.Status,
			&message.Attempts,
			&message.CreatedAt,
			&message.LastAttemptAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan outbox message", "error", err)
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}

		var event audit.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			r.logger.Error("Failed to decode outbox payload", "id", message.ID, "error", err)
			return nil, fmt.Errorf("failed to decode outbox payload %d: %w", message.ID, err)
		}
		message.Event = &event
		messages = append(messages, &message)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over outbox messages", "error", err)
		return nil, fmt.Errorf("error iterating over outbox messages: %w", err)
	}

	return messages, nil
}

func (r *OutboxRepository) UpdateStatus(ctx context.Context, id int64, status audit.OutboxStatus) error {
	query := `
		UPDATE audit_outbox
		SET status = $1, last_attempt_at = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, status, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update outbox message status",
			"id", id,
			"status", string(status),
			"error", err,
		)
		return fmt.Errorf("failed to update outbox message status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return audit.ErrMessageNotFound{ID: id}
	}

	return nil
}

func (r *OutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	query := `
		UPDATE audit_outbox
		SET attempts = attempts + 1, last_attempt_at = $1
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to increment outbox message attempts", "id", id, "error", err)
		return fmt.Errorf("failed to increment outbox message attempts: %w", err)
	}

	if result.RowsAffected() == 0 {
		return audit.ErrMessageNotFound{ID: id}
	}

	return nil
}
