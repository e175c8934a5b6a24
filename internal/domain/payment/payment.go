package payment

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrMissingExternalID = errors.New("external id cannot be empty")
	ErrMissingTenant     = errors.New("payment has no tenant")
)

// Key is the sole identity of a transaction: the provider token plus the network
type Key struct {
	ExternalID string
	Method     Method
}

func (k Key) String() string {
	return string(k.Method) + ":" + k.ExternalID
}

// ParsedPayment is the canonical shape every source parser produces.
// Date carries a calendar day as midnight UTC; Note is nil when the source had none.
type ParsedPayment struct {
	SenderName string          `json:"sender_name"`
	Amount     decimal.Decimal `json:"amount"`
	Date       time.Time       `json:"date"`
	Note       *string         `json:"note,omitempty"`
	ExternalID string          `json:"external_id"`
	Method     Method          `json:"method"`
}

// Key returns the dedup key of the payment
func (p *ParsedPayment) Key() Key {
	return Key{ExternalID: p.ExternalID, Method: p.Method}
}

// Period is the billing month token (YYYY-MM) of the payment date
func (p *ParsedPayment) Period() string {
	return p.Date.Format("2006-01")
}

// MatchedPayment is a ParsedPayment with the tenant resolution attached.
// A nil TenantID means the sender could not be attributed.
type MatchedPayment struct {
	ParsedPayment
	TenantID   *uuid.UUID `json:"tenant_id,omitempty"`
	TenantName string     `json:"tenant_name,omitempty"`
	PropertyID *uuid.UUID `json:"property_id,omitempty"`
	Confidence Confidence `json:"match_confidence"`
}

// IsMatched reports whether a tenant was assigned
func (m *MatchedPayment) IsMatched() bool {
	return m.TenantID != nil && m.Confidence != ConfidenceUnmatched
}

// Payment is a persisted, tenant-attributed payment
type Payment struct {
	ID         uuid.UUID       `json:"id"`
	TenantID   uuid.UUID       `json:"tenant_id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     Method          `json:"method"`
	Date       time.Time       `json:"date"`
	Note       *string         `json:"note,omitempty"`
	ExternalID string          `json:"external_id"`
	Status     Status          `json:"status"`
	Source     Source          `json:"source"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewConfirmedPayment builds the CONFIRMED payment row for a matched payment
func NewConfirmedPayment(m *MatchedPayment, source Source, now time.Time) (*Payment, error) {
	if m.TenantID == nil {
		return nil, ErrMissingTenant
	}
	if !m.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if m.ExternalID == "" {
		return nil, ErrMissingExternalID
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	return &Payment{
		ID:         id,
		TenantID:   *m.TenantID,
		Amount:     m.Amount,
		Method:     m.Method,
		Date:       m.Date,
		Note:       m.Note,
		ExternalID: m.ExternalID,
		Status:     StatusConfirmed,
		Source:     source,
		CreatedAt:  now,
	}, nil
}

// Key returns the dedup key of the payment
func (p *Payment) Key() Key {
	return Key{ExternalID: p.ExternalID, Method: p.Method}
}
