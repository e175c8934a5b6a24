package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/rentroll-payment-ledger/internal/domain/ledger"
	"github.com/rentroll-payment-ledger/internal/platform/persistence"
)

const entryColumns = `id, tenant_id, type, amount, period, balance, payment_id, description, created_at`

// LedgerRepository implements the ledger.Repository interface for PostgreSQL.
// Entries are always ordered by (created_at, id), the running balance order.
type LedgerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *LedgerRepository) Create(ctx context.Context, entry *ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		entry.ID,
		entry.TenantID,
		entry.Type,
		entry.Amount,
		entry.Period,
		entry.Balance,
		entry.PaymentID,
		entry.Description,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create ledger entry",
			"tenant_id", entry.TenantID.String(),
			"type", string(entry.Type),
			"error", err,
		)
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}

	return nil
}

// GetLatestByTenant returns the newest entry, or nil when the ledger is empty
func (r *LedgerRepository) GetLatestByTenant(ctx context.Context, tenantID uuid.UUID) (*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE tenant_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	entry, err := scanEntry(r.querier.QueryRow(ctx, query, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get latest ledger entry", "tenant_id", tenantID.String(), "error", err)
		return nil, fmt.Errorf("failed to get latest ledger entry: %w", err)
	}

	return entry, nil
}

// ListByTenant pages through a tenant's ledger in running-balance order
func (r *LedgerRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE tenant_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, tenantID, query, tenantID, limit, offset)
}

// ListByTenantForUpdate reads and row-locks the whole ledger of a tenant
func (r *LedgerRepository) ListByTenantForUpdate(ctx context.Context, tenantID uuid.UUID) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE tenant_id = $1
		ORDER BY created_at ASC, id ASC
		FOR UPDATE
	`
	return r.list(ctx, tenantID, query, tenantID)
}

func (r *LedgerRepository) list(ctx context.Context, tenantID uuid.UUID, query string, args ...interface{}) ([]*ledger.Entry, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list ledger entries", "tenant_id", tenantID.String(), "error", err)
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			r.logger.Error("Failed to scan ledger entry", "error", err)
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over ledger entries", "error", err)
		return nil, fmt.Errorf("error iterating over ledger entries: %w", err)
	}

	return entries, nil
}

func (r *LedgerRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries WHERE tenant_id = $1`, tenantID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count ledger entries", "tenant_id", tenantID.String(), "error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return count, nil
}

// UpdateBalance rewrites only the balance column. Amounts are immutable.
func (r *LedgerRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	result, err := r.querier.Exec(ctx, `UPDATE ledger_entries SET balance = $1 WHERE id = $2`, balance, id)
	if err != nil {
		r.logger.Error("Failed to update ledger balance", "entry_id", id.String(), "error", err)
		return fmt.Errorf("failed to update ledger balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ledger.ErrEntryNotFound{EntryID: id}
	}

	return nil
}

func scanEntry(row pgx.Row) (*ledger.Entry, error) {
	var e ledger.Entry
	err := row.Scan(
		&e.ID,
		&e.TenantID,
		&e.Type,
		&e.Amount,
		&e.Period,
		&e.Balance,
		&e.PaymentID,
		&e.Description,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
