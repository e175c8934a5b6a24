package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rentroll-payment-ledger/internal/domain/tenant"
	"github.com/rentroll-payment-ledger/internal/platform/persistence"
)

// TenantRepository reads the tenant roster. Soft-deleted tenants are invisible.
type TenantRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewTenantRepository(logger *slog.Logger, db *persistence.PostgresDB) tenant.Repository {
	return &TenantRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *TenantRepository) WithTx(tx pgx.Tx) tenant.Repository {
	return &TenantRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// ListActive reads the matching snapshot in a stable order
func (r *TenantRepository) ListActive(ctx context.Context) (tenant.Snapshot, error) {
	query := `
		SELECT id, first_name, last_name, property_id
		FROM tenants
		WHERE deleted_at IS NULL
		ORDER BY last_name, first_name, id
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list tenants", "error", err)
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var snapshot tenant.Snapshot
	for rows.Next() {
		var t tenant.Tenant
		if err := rows.Scan(&t.ID, &t.FirstName, &t.LastName, &t.PropertyID); err != nil {
			r.logger.Error("Failed to scan tenant", "error", err)
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		snapshot = append(snapshot, &t)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over tenants", "error", err)
		return nil, fmt.Errorf("error iterating over tenants: %w", err)
	}

	return snapshot, nil
}

func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	query := `
		SELECT id, first_name, last_name, property_id
		FROM tenants
		WHERE id = $1 AND deleted_at IS NULL
	`
	return r.getOne(ctx, "get", query, id)
}

// LockForUpdate takes the row lock that serializes ledger writes per tenant
func (r *TenantRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	query := `
		SELECT id, first_name, last_name, property_id
		FROM tenants
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`
	return r.getOne(ctx, "lock", query, id)
}

func (r *TenantRepository) getOne(ctx context.Context, op, query string, id uuid.UUID) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := r.querier.QueryRow(ctx, query, id).Scan(&t.ID, &t.FirstName, &t.LastName, &t.PropertyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrTenantNotFound{TenantID: id}
		}
		r.logger.Error("Failed to "+op+" tenant", "tenant_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to %s tenant: %w", op, err)
	}
	return &t, nil
}
