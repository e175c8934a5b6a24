package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
	"github.com/rentroll-payment-ledger/internal/domain/tenant"
	"github.com/rentroll-payment-ledger/internal/matcher"
	"github.com/rentroll-payment-ledger/internal/source"
)

var (
	kalin    = &tenant.Tenant{ID: uuid.New(), FirstName: "Kalin", LastName: "Ivanov"}
	maria    = &tenant.Tenant{ID: uuid.New(), FirstName: "Maria", LastName: "Lopez"}
	snapshot = tenant.Snapshot{kalin, maria}
)

func parsed(sender, amount, externalID string, method payment.Method) payment.ParsedPayment {
	return payment.ParsedPayment{
		SenderName: sender,
		Amount:     decimal.RequireFromString(amount),
		Date:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		ExternalID: externalID,
		Method:     method,
	}
}

func batchOf(method payment.Method, payments ...payment.ParsedPayment) *source.Batch {
	b := &source.Batch{Method: method, Origin: "test"}
	for i := range payments {
		b.Results = append(b.Results, source.Result{Method: method, Line: i + 2, Payment: &payments[i]})
	}
	return b
}

type importFixture struct {
	tenants *MockTenantRepo
	dedup   *MockDedupGate
	poster  *MockLedgerPoster
	service *ImportService
}

func newImportFixture() *importFixture {
	f := &importFixture{
		tenants: &MockTenantRepo{},
		dedup:   &MockDedupGate{},
		poster:  &MockLedgerPoster{},
	}
	f.tenants.On("ListActive", mock.Anything).Return(snapshot, nil)
	f.service = NewImportService(f.tenants, matcher.New(nil, newTestLogger()), f.dedup, f.poster, nil, newTestLogger())
	return f
}

func posted() *PostResult {
	return &PostResult{}
}

func TestImportService_IngestBatches(t *testing.T) {
	ctx := context.Background()

	t.Run("DedupKeyIncludesMethod", func(t *testing.T) {
		f := newImportFixture()
		f.dedup.On("IsNew", mock.Anything, mock.Anything).Return(true, nil)
		f.poster.On("Post", mock.Anything, keyed("ABC123", payment.MethodVenmo), payment.SourceHistoricalImport).Return(posted(), nil).Once()
		f.poster.On("Post", mock.Anything, keyed("ABC123", payment.MethodPayPal), payment.SourceHistoricalImport).Return(posted(), nil).Once()

		summary, err := f.service.IngestBatches(ctx, []*source.Batch{
			batchOf(payment.MethodVenmo, parsed("Kalin Ivanov", "500", "ABC123", payment.MethodVenmo)),
			batchOf(payment.MethodPayPal, parsed("Kalin Ivanov", "500", "ABC123", payment.MethodPayPal)),
		}, payment.SourceHistoricalImport, false)
		require.NoError(t, err)

		assert.Equal(t, 2, summary.Created)
		assert.Equal(t, 0, summary.Duplicates)
		f.poster.AssertExpectations(t)
	})

	t.Run("ExistingPaymentsAreDuplicates", func(t *testing.T) {
		f := newImportFixture()
		f.dedup.On("IsNew", mock.Anything, keyed("1", payment.MethodVenmo)).Return(false, nil)
		f.dedup.On("IsNew", mock.Anything, keyed("2", payment.MethodVenmo)).Return(true, nil)
		f.poster.On("Post", mock.Anything, keyed("2", payment.MethodVenmo), payment.SourceHistoricalImport).Return(posted(), nil)

		summary, err := f.service.IngestBatches(ctx, []*source.Batch{
			batchOf(payment.MethodVenmo,
				parsed("Kalin Ivanov", "500", "1", payment.MethodVenmo),
				parsed("Maria Lopez", "900", "2", payment.MethodVenmo),
			),
		}, payment.SourceHistoricalImport, false)
		require.NoError(t, err)

		assert.Equal(t, 1, summary.Duplicates)
		assert.Equal(t, 1, summary.Created)
		f.poster.AssertNumberOfCalls(t, "Post", 1)
	})

	t.Run("RepeatedSyntheticIDIsCollision", func(t *testing.T) {
		f := newImportFixture()
		row := parsed("Kalin Ivanov", "500", "", payment.MethodZelle)
		row.ExternalID = source.SyntheticID(payment.MethodZelle, row.SenderName, row.Amount, row.Date)

		f.dedup.On("IsNew", mock.Anything, mock.Anything).Return(true, nil).Once()
		f.poster.On("Post", mock.Anything, mock.Anything, payment.SourceHistoricalImport).Return(posted(), nil).Once()

		summary, err := f.service.IngestBatches(ctx, []*source.Batch{batchOf(payment.MethodZelle, row, row)},
			payment.SourceHistoricalImport, false)
		require.NoError(t, err)

		assert.Equal(t, 1, summary.Created)
		assert.Equal(t, 1, summary.Duplicates)
		assert.Equal(t, 1, summary.Collisions)
		f.dedup.AssertExpectations(t)
	})

	t.Run("StorageFailureDoesNotStopBatch", func(t *testing.T) {
		f := newImportFixture()
		f.dedup.On("IsNew", mock.Anything, mock.Anything).Return(true, nil)
		f.poster.On("Post", mock.Anything, keyed("1", payment.MethodCashApp), mock.Anything).Return(nil, errors.New("connection refused"))
		f.poster.On("Post", mock.Anything, keyed("2", payment.MethodCashApp), mock.Anything).Return(nil, payment.ErrDuplicatePayment{})
		f.poster.On("Post", mock.Anything, keyed("3", payment.MethodCashApp), mock.Anything).Return(&PostResult{AuditErr: errors.New("outbox down")}, nil)

		summary, err := f.service.IngestBatches(ctx, []*source.Batch{
			batchOf(payment.MethodCashApp,
				parsed("Kalin Ivanov", "500", "1", payment.MethodCashApp),
				parsed("Kalin Ivanov", "100", "2", payment.MethodCashApp),
				parsed("Maria Lopez", "900", "3", payment.MethodCashApp),
			),
		}, payment.SourceHistoricalImport, false)
		require.NoError(t, err)

		assert.Equal(t, 1, summary.Failed)
		assert.Equal(t, 1, summary.Duplicates)
		assert.Equal(t, 1, summary.Created)
		assert.Equal(t, 1, summary.AuditFailures)
		require.Len(t, summary.Failures, 1)
		failure := summary.Failures[0]
		assert.Equal(t, "Kalin Ivanov", failure.Sender)
		assert.Equal(t, "1", failure.ExternalID)
		assert.Equal(t, payment.MethodCashApp, failure.Method)
		assert.Contains(t, failure.Error, "connection refused")
	})

	t.Run("FailedKeyIsRetriedLaterInRun", func(t *testing.T) {
		f := newImportFixture()
		f.dedup.On("IsNew", mock.Anything, mock.Anything).Return(true, nil)
		f.poster.On("Post", mock.Anything, keyed("3981234", payment.MethodVenmo), payment.SourceHistoricalImport).
			Return(nil, errors.New("conn reset")).Once()
		f.poster.On("Post", mock.Anything, keyed("3981234", payment.MethodVenmo), payment.SourceHistoricalImport).
			Return(posted(), nil).Once()

		row := parsed("Kalin Ivanov", "500", "3981234", payment.MethodVenmo)
		summary, err := f.service.IngestBatches(ctx, []*source.Batch{
			batchOf(payment.MethodVenmo, row),
			batchOf(payment.MethodVenmo, row),
		}, payment.SourceHistoricalImport, false)
		require.NoError(t, err)

		assert.Equal(t, 1, summary.Failed)
		assert.Equal(t, 1, summary.Created)
		assert.Equal(t, 0, summary.Duplicates)
		f.poster.AssertNumberOfCalls(t, "Post", 2)
	})

	t.Run("DedupFailureIsReported", func(t *testing.T) {
		f := newImportFixture()
		f.dedup.On("IsNew", mock.Anything, mock.Anything).Return(false, errors.New("timeout"))

		summary, err := f.service.IngestBatches(ctx, []*source.Batch{
			batchOf(payment.MethodVenmo, parsed("Kalin Ivanov", "500", "1", payment.MethodVenmo)),
		}, payment.SourceHistoricalImport, false)
		require.NoError(t, err)

		assert.Equal(t, 1, summary.Failed)
		f.poster.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("DryRunNeverPosts", func(t *testing.T) {
		f := newImportFixture()
		f.dedup.On("IsNew", mock.Anything, mock.Anything).Return(true, nil)

		summary, err := f.service.IngestBatches(ctx, []*source.Batch{
			batchOf(payment.MethodVenmo,
				parsed("Kalin Ivanov", "500", "1", payment.MethodVenmo),
				parsed("Kalin Ivanov", "500", "1", payment.MethodVenmo),
			),
		}, payment.SourceHistoricalImport, true)
		require.NoError(t, err)

		assert.True(t, summary.DryRun)
		assert.Equal(t, 1, summary.Created)
		assert.Equal(t, 1, summary.Duplicates, "in-run repeats are caught without a write")
		f.poster.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("UnmatchedSendersReport", func(t *testing.T) {
		f := newImportFixture()

		summary, err := f.service.IngestBatches(ctx, []*source.Batch{
			batchOf(payment.MethodVenmo,
				parsed("Kalin Ivanof", "20", "1", payment.MethodVenmo),
				parsed("Raffle Buyer", "5", "2", payment.MethodVenmo),
				parsed("raffle  buyer", "5", "3", payment.MethodVenmo),
				parsed("Kalin Ivanof", "30", "4", payment.MethodVenmo),
			),
		}, payment.SourceHistoricalImport, true)
		require.NoError(t, err)

		assert.Equal(t, 4, summary.Unmatched)
		assert.Equal(t, 4, summary.ByConfidence[payment.ConfidenceUnmatched])
		require.Len(t, summary.UnmatchedSenders, 2)

		top := summary.UnmatchedSenders[0]
		assert.Equal(t, "Kalin Ivanof", top.Name)
		assert.Equal(t, 2, top.Count)
		assert.True(t, top.Total.Equal(decimal.NewFromInt(50)))
		assert.Equal(t, "Kalin Ivanov", top.Suggestion)

		raffle := summary.UnmatchedSenders[1]
		assert.Equal(t, 2, raffle.Count)
		assert.True(t, raffle.Total.Equal(decimal.NewFromInt(10)))
		f.dedup.AssertNotCalled(t, "IsNew", mock.Anything, mock.Anything)
	})

	t.Run("SnapshotFailureAbortsRun", func(t *testing.T) {
		tenants := &MockTenantRepo{}
		tenants.On("ListActive", mock.Anything).Return(nil, errors.New("db down"))
		svc := NewImportService(tenants, matcher.New(nil, newTestLogger()), &MockDedupGate{}, &MockLedgerPoster{}, nil, newTestLogger())

		_, err := svc.IngestBatches(ctx, nil, payment.SourceHistoricalImport, false)
		assert.ErrorContains(t, err, "failed to read tenant snapshot")
	})
}

func TestSummary_AddBatch(t *testing.T) {
	b := batchOf(payment.MethodVenmo, parsed("Kalin Ivanov", "500", "1", payment.MethodVenmo))
	b.Results = append(b.Results,
		source.Result{Method: payment.MethodVenmo, Line: 5, Skip: source.SkipNonPositiveAmount},
		source.Result{Method: payment.MethodVenmo, Line: 6, Skip: source.SkipNotCompleted},
	)

	s := NewSummary(false)
	s.AddBatch(b)

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Parsed)
	assert.Equal(t, map[source.SkipReason]int{
		source.SkipNonPositiveAmount: 1,
		source.SkipNotCompleted:      1,
	}, s.Skipped)
}
