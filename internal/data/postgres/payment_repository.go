// Package postgres provides PostgreSQL implementations of the domain repositories.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
	"github.com/rentroll-payment-ledger/internal/platform/persistence"
)

// paymentKeyConstraint backs the (external_id, method) dedup rule
const paymentKeyConstraint = "payments_external_id_method_key"

// PaymentRepository implements the payment.Repository interface for PostgreSQL
type PaymentRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewPaymentRepository creates a new PostgreSQL payment repository
func NewPaymentRepository(logger *slog.Logger, db *persistence.PostgresDB) payment.Repository {
	return &PaymentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *PaymentRepository) WithTx(tx pgx.Tx) payment.Repository {
	return &PaymentRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts a payment. A second payment with the same external id and
// method fails with payment.ErrDuplicatePayment.
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	query := `
		INSERT INTO payments (id, tenant_id, amount, method, date, note, external_id, status, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		p.ID,
		p.TenantID,
		p.Amount,
		p.Method,
		p.Date,
		p.Note,
		p.ExternalID,
		p.Status,
		p.Source,
		p.CreatedAt,
	)
	if err != nil {
		if constraint, ok := persistence.IsUniqueViolation(err); ok && constraint == paymentKeyConstraint {
			r.logger.Info("Payment already recorded", "external_id", p.ExternalID, "method", string(p.Method))
			return payment.ErrDuplicatePayment{Key: p.Key()}
		}
		r.logger.Error("Failed to create payment",
			"external_id", p.ExternalID,
			"method", string(p.Method),
			"error", err,
		)
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// GetByExternalID reads a payment by its dedup key
func (r *PaymentRepository) GetByExternalID(ctx context.Context, externalID string, method payment.Method) (*payment.Payment, error) {
	query := `
		SELECT id, tenant_id, amount, method, date, note, external_id, status, source, created_at
		FROM payments
		WHERE external_id = $1 AND method = $2
	`

	p, err := scanPayment(r.querier.QueryRow(ctx, query, externalID, method))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrPaymentNotFound{Key: payment.Key{ExternalID: externalID, Method: method}}
		}
		r.logger.Error("Failed to get payment", "external_id", externalID, "method", string(method), "error", err)
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return p, nil
}

// ExistsByExternalID reports whether the dedup key is already taken
func (r *PaymentRepository) ExistsByExternalID(ctx context.Context, externalID string, method payment.Method) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM payments WHERE external_id = $1 AND method = $2)`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, externalID, method).Scan(&exists); err != nil {
		r.logger.Error("Failed to check payment existence", "external_id", externalID, "method", string(method), "error", err)
		return false, fmt.Errorf("failed to check payment existence: %w", err)
	}

	return exists, nil
}

// ListByTenant returns a tenant's payments, newest first
func (r *PaymentRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*payment.Payment, error) {
	query := `
		SELECT id, tenant_id, amount, method, date, note, external_id, status, source, created_at
		FROM payments
		WHERE tenant_id = $1
		ORDER BY date DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list payments", "tenant_id", tenantID.String(), "error", err)
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*payment.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			r.logger.Error("Failed to scan payment", "error", err)
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over payments", "error", err)
		return nil, fmt.Errorf("error iterating over payments: %w", err)
	}

	return payments, nil
}

func scanPayment(row pgx.Row) (*payment.Payment, error) {
	var p payment.Payment
	err := row.Scan(
		&p.ID,
		&p.TenantID,
		&p.Amount,
		&p.Method,
		&p.Date,
		&p.Note,
		&p.ExternalID,
		&p.Status,
		&p.Source,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
