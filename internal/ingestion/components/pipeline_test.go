package components

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentroll-payment-ledger/internal/config"
	"github.com/rentroll-payment-ledger/internal/domain/ledger"
	"github.com/rentroll-payment-ledger/internal/domain/payment"
	"github.com/rentroll-payment-ledger/internal/domain/tenant"
	"github.com/rentroll-payment-ledger/internal/ingestion/service"
	"github.com/rentroll-payment-ledger/internal/matcher"
	"github.com/rentroll-payment-ledger/internal/source"
)

const venmoExport = `,ID,Datetime,Type,Status,Note,From,To,Amount (total)
,3981234,2024-03-01T14:22:05,Payment,Complete,March rent,Jesus Mota,Land Lord,+ $500.00
,3981235,2024-03-02T10:00:00,Payment,Complete,,Raffle Buyer,Land Lord,+ $20.00
,3981236,2024-03-03T10:00:00,Payment,Complete,,Land Lord,Bob Smith,- $50.00
,3981237,2024-03-04T10:00:00,Payment,Complete,,Maria Lopez,Land Lord,+ $900.00
`

const chaseStatement = `Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #
CREDIT,03/01/2024,Zelle payment from JESUS MOTA WFCT0Q4ABCDE,500.00,QUICKPAY_CREDIT,1500.00,,
`

const zelleAlert = `From: Chase <no.reply.alerts@chase.com>
Subject: You received money with Zelle(R)
Date: Fri, 01 Mar 2024 15:00:00 -0500
Content-Type: text/plain; charset=UTF-8

JESUS MOTA sent you money.
Amount: $500.00
Memo: March rent
`

type pipelineFixture struct {
	store     *memoryStore
	ingestion *Ingestion
	kalin     *tenant.Tenant
	maria     *tenant.Tenant
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	kalin := &tenant.Tenant{ID: uuid.New(), FirstName: "Kalin", LastName: "Ivanov"}
	maria := &tenant.Tenant{ID: uuid.New(), FirstName: "Maria", LastName: "Lopez"}
	store := newMemoryStore(kalin, maria)

	overrides, err := matcher.NewOverrideTable([]matcher.Override{
		{Sender: "Jesus Mota", Tenant: "Kalin Ivanov"},
		{Sender: "Raffle Buyer", Unknown: true},
	})
	require.NoError(t, err)

	cfg := &config.Config{
		WorkerPool: config.WorkerPoolConfig{Size: 2},
		Ingestion:  config.IngestionConfig{Timezone: "UTC"},
	}
	ingestion, err := CreateIngestion(&fakeDB{}, store.repositories(), overrides, newTestLogger(), cfg)
	require.NoError(t, err)
	t.Cleanup(ingestion.Shutdown)

	return &pipelineFixture{store: store, ingestion: ingestion, kalin: kalin, maria: maria}
}

func (f *pipelineFixture) importVenmo(t *testing.T, dryRun bool) *service.Summary {
	parser, err := source.NewExportParser(payment.MethodVenmo, time.UTC)
	require.NoError(t, err)

	summary, err := f.ingestion.Import.Import(context.Background(), parser,
		[]service.ExportInput{{Reader: strings.NewReader(venmoExport)}}, dryRun)
	require.NoError(t, err)
	return summary
}

func TestPipeline_ImportIsIdempotent(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	_, err := f.ingestion.OpeningBalances.Backfill(ctx, f.kalin.ID, decimal.NewFromInt(1200), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	first := f.importVenmo(t, false)
	assert.Equal(t, 4, first.Total)
	assert.Equal(t, 1, first.Skipped[source.SkipNonPositiveAmount])
	assert.Equal(t, 2, first.Matched)
	assert.Equal(t, 1, first.Unmatched)
	assert.Equal(t, 2, first.Created)
	assert.Equal(t, 0, first.Duplicates)
	assert.Equal(t, 1, first.ByConfidence[payment.ConfidenceManual])
	assert.Equal(t, 1, first.ByConfidence[payment.ConfidenceExact])
	assert.Equal(t, 1, first.ByConfidence[payment.ConfidenceUnmatched])
	require.Len(t, first.UnmatchedSenders, 1)
	assert.Equal(t, "Raffle Buyer", first.UnmatchedSenders[0].Name)

	entries := f.store.ledgerOf(f.kalin.ID)
	require.Len(t, entries, 2)
	payEntry := entries[1]
	assert.Equal(t, ledger.EntryTypePayment, payEntry.Type)
	assert.True(t, payEntry.Amount.Equal(decimal.NewFromInt(-500)))
	assert.True(t, payEntry.Balance.Equal(decimal.NewFromInt(700)))
	assert.NoError(t, ledger.VerifyRunningBalance(entries))
	assert.Len(t, f.store.outbox, 2)

	second := f.importVenmo(t, false)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, first.Created, second.Duplicates)
	assert.Len(t, f.store.ledgerOf(f.kalin.ID), 2)
	assert.Len(t, f.store.outbox, 2)
}

func TestPipeline_DryRunWritesNothing(t *testing.T) {
	f := newPipelineFixture(t)

	summary := f.importVenmo(t, true)
	assert.True(t, summary.DryRun)
	assert.Equal(t, 2, summary.Created)
	assert.Empty(t, f.store.payments)
	assert.Empty(t, f.store.ledgerOf(f.kalin.ID))
}

func TestPipeline_ZelleEmailAndStatementAgree(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	out, err := f.ingestion.Email.Process(ctx, []byte(zelleAlert))
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeCreated, out.Outcome)
	require.NotNil(t, out.Payment)
	assert.Equal(t, payment.ConfidenceManual, out.Payment.Confidence)

	parser, err := source.NewExportParser(payment.MethodZelle, time.UTC)
	require.NoError(t, err)
	summary, err := f.ingestion.Import.Import(ctx, parser,
		[]service.ExportInput{{Reader: strings.NewReader(chaseStatement)}}, false)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 1, summary.Duplicates)
	assert.Len(t, f.store.ledgerOf(f.kalin.ID), 1)
}

func TestPipeline_UnknownSenderEmailIsUnrouted(t *testing.T) {
	f := newPipelineFixture(t)

	out, err := f.ingestion.Email.Process(context.Background(), []byte("From: friend@example.com\nSubject: hi\n\nhello\n"))
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeUnrouted, out.Outcome)
	assert.Nil(t, out.Result)
}
