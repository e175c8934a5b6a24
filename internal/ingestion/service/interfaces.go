package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentroll-payment-ledger/internal/domain/ledger"
	"github.com/rentroll-payment-ledger/internal/domain/payment"
	"github.com/rentroll-payment-ledger/internal/domain/tenant"
)

// TenantMatcher attributes parsed payments to tenants of a snapshot
type TenantMatcher interface {
	Match(payments []payment.ParsedPayment, snapshot tenant.Snapshot) []payment.MatchedPayment
	MatchOne(p payment.ParsedPayment, snapshot tenant.Snapshot) payment.MatchedPayment
}

// DedupGate answers whether a payment's (external id, method) pair is unseen.
// It must be consulted before any ledger mutation.
type DedupGate interface {
	IsNew(ctx context.Context, m *payment.MatchedPayment) (bool, error)
}

// LedgerPoster commits a matched payment and its ledger entry atomically
type LedgerPoster interface {
	Post(ctx context.Context, m *payment.MatchedPayment, source payment.Source) (*PostResult, error)
}

// AuditEmitter records the provenance of a committed payment
type AuditEmitter interface {
	Emit(ctx context.Context, p *payment.Payment, m *payment.MatchedPayment) error
}

// BalanceRecomputer rewrites a tenant's running balances from the entry amounts
type BalanceRecomputer interface {
	Recompute(ctx context.Context, tenantID uuid.UUID) (*RecomputeResult, error)
}

// OpeningBalanceWriter backdates an opening balance into an existing ledger
type OpeningBalanceWriter interface {
	Backfill(ctx context.Context, tenantID uuid.UUID, amount decimal.Decimal, asOf time.Time) (*RecomputeResult, error)
}

// PostResult is what a successful post committed. AuditErr is set when the
// payment is durable but its audit event could not be recorded.
type PostResult struct {
	Payment  *payment.Payment
	Entry    *ledger.Entry
	AuditErr error
}

// RecomputeResult reports one recomputation pass over a tenant ledger
type RecomputeResult struct {
	TenantID uuid.UUID       `json:"tenant_id"`
	Entries  int             `json:"entries"`
	Updated  int             `json:"updated"`
	Balance  decimal.Decimal `json:"balance"`
	Entry    *ledger.Entry   `json:"entry,omitempty"`
}
