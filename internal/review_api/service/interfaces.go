package service

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentroll-payment-ledger/internal/domain/audit"
	"github.com/rentroll-payment-ledger/internal/domain/ledger"
	"github.com/rentroll-payment-ledger/internal/domain/tenant"
	ingestion "github.com/rentroll-payment-ledger/internal/ingestion/service"
)

// LedgerService is the read and repair side of tenant ledgers
type LedgerService interface {
	GetLedger(ctx context.Context, tenantID uuid.UUID, page, perPage int) (*LedgerPage, error)
	Recompute(ctx context.Context, tenantID uuid.UUID) (*ingestion.RecomputeResult, error)
}

// AuditService lists archived provenance events
type AuditService interface {
	ListEvents(ctx context.Context, tenantID uuid.UUID, limit int) ([]*audit.Event, error)
}

// PreviewService runs an uploaded export through the pipeline without writing
type PreviewService interface {
	Preview(ctx context.Context, provider, filename string, r io.Reader) (*ingestion.Summary, error)
}

// LedgerPage is one page of a tenant's ledger in running-balance order
type LedgerPage struct {
	Tenant  *tenant.Tenant
	Entries []*ledger.Entry
	Total   int64
	Balance decimal.Decimal
}
