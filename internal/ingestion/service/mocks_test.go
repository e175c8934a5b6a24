package service

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
	"github.com/rentroll-payment-ledger/internal/domain/tenant"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type MockTenantRepo struct {
	mock.Mock
}

func (m *MockTenantRepo) ListActive(ctx context.Context) (tenant.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(tenant.Snapshot), args.Error(1)
}

func (m *MockTenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenant.Tenant), args.Error(1)
}

func (m *MockTenantRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenant.Tenant), args.Error(1)
}

func (m *MockTenantRepo) WithTx(tx pgx.Tx) tenant.Repository {
	args := m.Called(tx)
	return args.Get(0).(tenant.Repository)
}

type MockDedupGate struct {
	mock.Mock
}

func (m *MockDedupGate) IsNew(ctx context.Context, mp *payment.MatchedPayment) (bool, error) {
	args := m.Called(ctx, mp)
	return args.Bool(0), args.Error(1)
}

type MockLedgerPoster struct {
	mock.Mock
}

func (m *MockLedgerPoster) Post(ctx context.Context, mp *payment.MatchedPayment, source payment.Source) (*PostResult, error) {
	args := m.Called(ctx, mp, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PostResult), args.Error(1)
}

// keyed matches a matched payment by its dedup key
func keyed(externalID string, method payment.Method) interface{} {
	return mock.MatchedBy(func(mp *payment.MatchedPayment) bool {
		return mp.ExternalID == externalID && mp.Method == method
	})
}
