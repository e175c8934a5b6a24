package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentroll-payment-ledger/internal/domain/ledger"
	"github.com/rentroll-payment-ledger/internal/domain/tenant"
	ingestion "github.com/rentroll-payment-ledger/internal/ingestion/service"
)

func TestLedgerService_GetLedger(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	kalin := &tenant.Tenant{ID: tenantID, FirstName: "Kalin", LastName: "Ivanov"}

	rent := &ledger.Entry{ID: uuid.New(), TenantID: tenantID, Type: ledger.EntryTypeRent,
		Amount: decimal.RequireFromString("1200"), Balance: decimal.RequireFromString("1200"), CreatedAt: time.Now().Add(-time.Hour)}
	pay := &ledger.Entry{ID: uuid.New(), TenantID: tenantID, Type: ledger.EntryTypePayment,
		Amount: decimal.RequireFromString("-500"), Balance: decimal.RequireFromString("700"), CreatedAt: time.Now()}

	t.Run("Success", func(t *testing.T) {
		tenants := new(MockTenantRepo)
		entries := new(MockLedgerRepo)
		svc := NewLedgerService(newTestLogger(), tenants, entries, new(MockRecomputer))

		tenants.On("GetByID", ctx, tenantID).Return(kalin, nil).Once()
		entries.On("CountByTenant", ctx, tenantID).Return(int64(12), nil).Once()
		entries.On("ListByTenant", ctx, tenantID, 10, 10).Return([]*ledger.Entry{rent, pay}, nil).Once()
		entries.On("GetLatestByTenant", ctx, tenantID).Return(pay, nil).Once()

		page, err := svc.GetLedger(ctx, tenantID, 2, 10)
		require.NoError(t, err)
		assert.Equal(t, kalin, page.Tenant)
		assert.Equal(t, int64(12), page.Total)
		assert.Len(t, page.Entries, 2)
		assert.True(t, page.Balance.Equal(decimal.RequireFromString("700")))
		tenants.AssertExpectations(t)
		entries.AssertExpectations(t)
	})

	t.Run("EmptyLedgerHasZeroBalance", func(t *testing.T) {
		tenants := new(MockTenantRepo)
		entries := new(MockLedgerRepo)
		svc := NewLedgerService(newTestLogger(), tenants, entries, new(MockRecomputer))

		tenants.On("GetByID", ctx, tenantID).Return(kalin, nil).Once()
		entries.On("CountByTenant", ctx, tenantID).Return(int64(0), nil).Once()
		entries.On("ListByTenant", ctx, tenantID, 10, 0).Return([]*ledger.Entry{}, nil).Once()
		entries.On("GetLatestByTenant", ctx, tenantID).Return(nil, nil).Once()

		page, err := svc.GetLedger(ctx, tenantID, 1, 10)
		require.NoError(t, err)
		assert.True(t, page.Balance.IsZero())
		assert.Empty(t, page.Entries)
	})

	t.Run("UnknownTenant", func(t *testing.T) {
		tenants := new(MockTenantRepo)
		entries := new(MockLedgerRepo)
		svc := NewLedgerService(newTestLogger(), tenants, entries, new(MockRecomputer))

		tenants.On("GetByID", ctx, tenantID).Return(nil, tenant.ErrTenantNotFound{TenantID: tenantID}).Once()

		_, err := svc.GetLedger(ctx, tenantID, 1, 10)
		assert.ErrorIs(t, err, tenant.ErrTenantNotFound{})
		entries.AssertNotCalled(t, "ListByTenant")
	})

	t.Run("ListFailure", func(t *testing.T) {
		tenants := new(MockTenantRepo)
		entries := new(MockLedgerRepo)
		svc := NewLedgerService(newTestLogger(), tenants, entries, new(MockRecomputer))

		tenants.On("GetByID", ctx, tenantID).Return(kalin, nil).Once()
		entries.On("CountByTenant", ctx, tenantID).Return(int64(3), nil).Once()
		entries.On("ListByTenant", ctx, tenantID, 10, 0).Return(nil, errors.New("db error")).Once()

		_, err := svc.GetLedger(ctx, tenantID, 1, 10)
		assert.ErrorContains(t, err, "failed to list ledger entries")
	})
}

func TestLedgerService_Recompute(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("PassesResultThrough", func(t *testing.T) {
		recomputer := new(MockRecomputer)
		svc := NewLedgerService(newTestLogger(), new(MockTenantRepo), new(MockLedgerRepo), recomputer)

		expected := &ingestion.RecomputeResult{TenantID: tenantID, Entries: 3, Updated: 1, Balance: decimal.RequireFromString("700")}
		recomputer.On("Recompute", ctx, tenantID).Return(expected, nil).Once()

		result, err := svc.Recompute(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, expected, result)
		recomputer.AssertExpectations(t)
	})

	t.Run("Failure", func(t *testing.T) {
		recomputer := new(MockRecomputer)
		svc := NewLedgerService(newTestLogger(), new(MockTenantRepo), new(MockLedgerRepo), recomputer)

		recomputer.On("Recompute", ctx, tenantID).Return(nil, tenant.ErrTenantNotFound{TenantID: tenantID}).Once()

		_, err := svc.Recompute(ctx, tenantID)
		assert.ErrorIs(t, err, tenant.ErrTenantNotFound{})
	})
}
