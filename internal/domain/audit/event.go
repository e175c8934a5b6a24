package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
)

// EventType names the kind of provenance record
type EventType string

const EventTypePayment EventType = "PAYMENT"

// Event is one append-only provenance record
type Event struct {
	ID         uuid.UUID       `json:"id"`
	Type       EventType       `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	TenantID   *uuid.UUID      `json:"tenant_id,omitempty"`
	PropertyID *uuid.UUID      `json:"property_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// PaymentPayload is the body of a PAYMENT event
type PaymentPayload struct {
	PaymentID  uuid.UUID          `json:"payment_id"`
	Amount     decimal.Decimal    `json:"amount"`
	Method     payment.Method     `json:"method"`
	Date       string             `json:"date"`
	Note       *string            `json:"note,omitempty"`
	ExternalID string             `json:"external_id"`
	SenderName string             `json:"sender_name"`
	TenantName string             `json:"tenant_name,omitempty"`
	Confidence payment.Confidence `json:"match_confidence"`
	Source     payment.Source     `json:"source"`
}

// NewPaymentEvent describes a posted payment together with how it was attributed
func NewPaymentEvent(p *payment.Payment, m *payment.MatchedPayment) (*Event, error) {
	payload, err := json.Marshal(PaymentPayload{
		PaymentID:  p.ID,
		Amount:     p.Amount,
		Method:     p.Method,
		Date:       p.Date.Format(time.DateOnly),
		Note:       p.Note,
		ExternalID: p.ExternalID,
		SenderName: m.SenderName,
		TenantName: m.TenantName,
		Confidence: m.Confidence,
		Source:     p.Source,
	})
	if err != nil {
		return nil, err
	}

	tenantID := p.TenantID
	return &Event{
		ID:         uuid.New(),
		Type:       EventTypePayment,
		Payload:    payload,
		TenantID:   &tenantID,
		PropertyID: m.PropertyID,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// PaymentPayload decodes the payload of a PAYMENT event
func (e *Event) PaymentPayload() (*PaymentPayload, error) {
	var p PaymentPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
