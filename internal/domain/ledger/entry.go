package ledger

import (
	"bytes"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
)

// EntryType defines ledger line categories
type EntryType string

const (
	EntryTypeRent           EntryType = "RENT"
	EntryTypeLateFee        EntryType = "LATE_FEE"
	EntryTypeUtility        EntryType = "UTILITY"
	EntryTypeDeposit        EntryType = "DEPOSIT"
	EntryTypeCredit         EntryType = "CREDIT"
	EntryTypePayment        EntryType = "PAYMENT"
	EntryTypeDeduction      EntryType = "DEDUCTION"
	EntryTypeOpeningBalance EntryType = "OPENING_BALANCE"
)

var ErrZeroAmount = errors.New("ledger entry amount cannot be zero")

// Entry is one append-only line of a tenant's ledger.
// Amount is signed: positive charges, negative credits and payments.
// Balance is the tenant's cumulative total including this entry.
type Entry struct {
	ID          uuid.UUID       `json:"id"`
	TenantID    uuid.UUID       `json:"tenant_id"`
	Type        EntryType       `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Period      string          `json:"period"`
	Balance     decimal.Decimal `json:"balance"`
	PaymentID   *uuid.UUID      `json:"payment_id,omitempty"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewPaymentEntry creates the PAYMENT line for a confirmed payment, chained onto
// the tenant's latest entry (nil when the ledger is empty). The entry's CreatedAt
// never precedes the previous entry so the running balance stays in creation order.
func NewPaymentEntry(p *payment.Payment, previous *Entry, now time.Time) (*Entry, error) {
	if !p.Amount.IsPositive() {
		return nil, payment.ErrInvalidAmount
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	amount := p.Amount.Neg()
	balance := amount
	createdAt := now.UTC().Truncate(time.Microsecond)
	if previous != nil {
		balance = previous.Balance.Add(amount)
		if !createdAt.After(previous.CreatedAt) {
			createdAt = previous.CreatedAt.Add(time.Microsecond)
		}
	}

	paymentID := p.ID
	return &Entry{
		ID:          id,
		TenantID:    p.TenantID,
		Type:        EntryTypePayment,
		Amount:      amount,
		Period:      p.Date.Format("2006-01"),
		Balance:     balance,
		PaymentID:   &paymentID,
		Description: string(p.Method) + " payment " + p.ExternalID,
		CreatedAt:   createdAt,
	}, nil
}

// NewEntry creates a non-payment line. Its balance is provisional until the
// tenant's ledger is recomputed.
func NewEntry(tenantID uuid.UUID, entryType EntryType, amount decimal.Decimal, period string, createdAt time.Time, description string) (*Entry, error) {
	if amount.IsZero() {
		return nil, ErrZeroAmount
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	return &Entry{
		ID:          id,
		TenantID:    tenantID,
		Type:        entryType,
		Amount:      amount,
		Period:      period,
		Balance:     amount,
		Description: description,
		CreatedAt:   createdAt.UTC().Truncate(time.Microsecond),
	}, nil
}

// SortChronologically orders entries by creation time, then id
func SortChronologically(entries []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return bytes.Compare(entries[i].ID[:], entries[j].ID[:]) < 0
	})
}

// ApplyRunningBalance walks entries in chronological order and rewrites each
// Balance to the prefix sum of Amount. It returns the entries whose balance
// changed and the final balance. Applying it twice changes nothing the second time.
func ApplyRunningBalance(entries []*Entry) ([]*Entry, decimal.Decimal) {
	SortChronologically(entries)

	var changed []*Entry
	running := decimal.Zero
	for _, e := range entries {
		running = running.Add(e.Amount)
		if !e.Balance.Equal(running) {
			e.Balance = running
			changed = append(changed, e)
		}
	}
	return changed, running
}

// VerifyRunningBalance checks entries, already in chronological order, against
// the running balance rule and reports the first violation.
func VerifyRunningBalance(entries []*Entry) error {
	running := decimal.Zero
	for _, e := range entries {
		running = running.Add(e.Amount)
		if !e.Balance.Equal(running) {
			return ErrBalanceMismatch{EntryID: e.ID, Expected: running, Actual: e.Balance}
		}
	}
	return nil
}
