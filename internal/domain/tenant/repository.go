package tenant

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository is the read side of the tenant roster
type Repository interface {
	ListActive(ctx context.Context) (Snapshot, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// LockForUpdate serializes ledger writes for one tenant inside a transaction
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Tenant, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrTenantNotFound indicates missing tenant
type ErrTenantNotFound struct {
	TenantID uuid.UUID
}

func (e ErrTenantNotFound) Error() string {
	return "tenant not found: " + e.TenantID.String()
}

// Is implements the errors.Is interface for ErrTenantNotFound
func (e ErrTenantNotFound) Is(target error) bool {
	t, ok := target.(ErrTenantNotFound)
	if !ok {
		return false
	}
	if t.TenantID == uuid.Nil {
		return true
	}
	return e.TenantID == t.TenantID
}
