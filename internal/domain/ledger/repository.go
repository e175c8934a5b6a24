package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository manages ledger entry persistence. Balances are only ever written
// by Create and by UpdateBalance during recomputation.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetLatestByTenant(ctx context.Context, tenantID uuid.UUID) (*Entry, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*Entry, error)
	ListByTenantForUpdate(ctx context.Context, tenantID uuid.UUID) ([]*Entry, error)
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
	UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
	WithTx(tx pgx.Tx) Repository
}

// ErrEntryNotFound indicates missing ledger entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	// If the target EntryID is empty, consider it a match for any ErrEntryNotFound
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}

// ErrBalanceMismatch indicates a stored running balance that disagrees with the amounts
type ErrBalanceMismatch struct {
	EntryID  uuid.UUID
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

func (e ErrBalanceMismatch) Error() string {
	return "running balance mismatch at entry " + e.EntryID.String() +
		": expected " + e.Expected.StringFixed(2) + ", stored " + e.Actual.StringFixed(2)
}
