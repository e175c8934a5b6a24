package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines payment persistence operations
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByExternalID(ctx context.Context, externalID string, method Method) (*Payment, error)
	ExistsByExternalID(ctx context.Context, externalID string, method Method) (bool, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*Payment, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrUnknownMethod indicates an unsupported payment network name
type ErrUnknownMethod struct {
	Value string
}

func (e ErrUnknownMethod) Error() string {
	return "unknown payment method: " + e.Value
}

// ErrDuplicatePayment indicates the (external id, method) pair is already recorded
type ErrDuplicatePayment struct {
	Key Key
}

func (e ErrDuplicatePayment) Error() string {
	return "duplicate payment: " + e.Key.String()
}

// Is matches any ErrDuplicatePayment when the target key is empty
func (e ErrDuplicatePayment) Is(target error) bool {
	t, ok := target.(ErrDuplicatePayment)
	if !ok {
		return false
	}
	if t.Key == (Key{}) {
		return true
	}
	return e.Key == t.Key
}

// ErrPaymentNotFound indicates missing payment
type ErrPaymentNotFound struct {
	Key Key
}

func (e ErrPaymentNotFound) Error() string {
	return "payment not found: " + e.Key.String()
}

// Is matches any ErrPaymentNotFound when the target key is empty
func (e ErrPaymentNotFound) Is(target error) bool {
	t, ok := target.(ErrPaymentNotFound)
	if !ok {
		return false
	}
	if t.Key == (Key{}) {
		return true
	}
	return e.Key == t.Key
}
