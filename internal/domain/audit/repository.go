package audit

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OutboxRepository manages audit outbox persistence
type OutboxRepository interface {
	Create(ctx context.Context, message *Message) error
	GetPending(ctx context.Context, limit int) ([]*Message, error)
	UpdateStatus(ctx context.Context, id int64, status OutboxStatus) error
	IncrementAttempts(ctx context.Context, id int64) error
	WithTx(tx pgx.Tx) OutboxRepository
}

// ArchiveRepository is the queryable copy of published events
type ArchiveRepository interface {
	Save(ctx context.Context, event *Event) error
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]*Event, error)
}

// ErrMessageNotFound indicates missing outbox message
type ErrMessageNotFound struct {
	ID int64
}

func (e ErrMessageNotFound) Error() string {
	return "audit outbox message not found: " + strconv.FormatInt(e.ID, 10)
}
