package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
	"github.com/rentroll-payment-ledger/internal/domain/tenant"
	"github.com/rentroll-payment-ledger/internal/source"
)

// ImportService drives bulk exports through parse, match, dedup and post.
// Parsing is concurrent across files; posting is sequential.
type ImportService struct {
	tenantRepo tenant.Repository
	matcher    TenantMatcher
	dedup      DedupGate
	poster     LedgerPoster
	parsePool  *ParsePool
	logger     *slog.Logger
}

func NewImportService(
	tenantRepo tenant.Repository,
	matcher TenantMatcher,
	dedup DedupGate,
	poster LedgerPoster,
	parsePool *ParsePool,
	logger *slog.Logger,
) *ImportService {
	return &ImportService{
		tenantRepo: tenantRepo,
		matcher:    matcher,
		dedup:      dedup,
		poster:     poster,
		parsePool:  parsePool,
		logger:     logger,
	}
}

// Import parses every input with the same network parser and ingests the
// payments. Only setup failures return an error; per-payment storage
// failures are reported in the summary.
func (s *ImportService) Import(ctx context.Context, parser source.ExportParser, inputs []ExportInput, dryRun bool) (*Summary, error) {
	batches, err := s.parsePool.ParseAll(parser, inputs)
	if err != nil {
		return nil, err
	}
	return s.IngestBatches(ctx, batches, payment.SourceHistoricalImport, dryRun)
}

// IngestBatches matches all parsed payments against one tenant snapshot and
// posts them in source order
func (s *ImportService) IngestBatches(ctx context.Context, batches []*source.Batch, src payment.Source, dryRun bool) (*Summary, error) {
	summary := NewSummary(dryRun)

	var parsed []payment.ParsedPayment
	for _, b := range batches {
		summary.AddBatch(b)
		parsed = append(parsed, b.Payments()...)
	}

	snapshot, err := s.tenantRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read tenant snapshot: %w", err)
	}

	matched := s.matcher.Match(parsed, snapshot)
	newIngestRun(s.dedup, s.poster, s.logger, summary).ingestAll(ctx, matched, src)
	summary.finalize(snapshot)

	s.logger.Info("Ingestion finished",
		"dry_run", dryRun,
		"total", summary.Total,
		"matched", summary.Matched,
		"unmatched", summary.Unmatched,
		"duplicates", summary.Duplicates,
		"created", summary.Created,
		"failed", summary.Failed,
	)
	return summary, nil
}

// ingestRun carries the state shared by the payments of one run
type ingestRun struct {
	dedup   DedupGate
	poster  LedgerPoster
	logger  *slog.Logger
	summary *Summary
	seen    map[payment.Key]bool
}

func newIngestRun(dedup DedupGate, poster LedgerPoster, logger *slog.Logger, summary *Summary) *ingestRun {
	return &ingestRun{
		dedup:   dedup,
		poster:  poster,
		logger:  logger,
		summary: summary,
		seen:    make(map[payment.Key]bool),
	}
}

func (r *ingestRun) ingestAll(ctx context.Context, matched []payment.MatchedPayment, src payment.Source) {
	for i := range matched {
		_, _ = r.ingest(ctx, &matched[i], src)
	}
}

// ingest routes one matched payment to exactly one summary outcome. The error
// is set only for OutcomeFailed and is already recorded in the summary.
func (r *ingestRun) ingest(ctx context.Context, m *payment.MatchedPayment, src payment.Source) (Outcome, error) {
	r.summary.ByConfidence[m.Confidence]++
	if !m.IsMatched() {
		r.summary.addUnmatched(m)
		return OutcomeUnmatched, nil
	}
	r.summary.Matched++

	key := m.Key()
	if r.seen[key] {
		r.summary.Duplicates++
		if source.IsSynthetic(m.Method, m.ExternalID) {
			r.summary.Collisions++
			r.logger.Warn("Synthetic external id repeated within one run, treating as duplicate",
				"external_id", m.ExternalID,
				"method", m.Method,
				"sender", m.SenderName,
				"amount", m.Amount.StringFixed(2),
			)
		}
		return OutcomeDuplicate, nil
	}

	outcome, err := r.post(ctx, m, src)
	if outcome != OutcomeFailed {
		r.seen[key] = true
	}
	return outcome, err
}

// post checks the dedup gate and commits a payment not yet seen in this run.
// A failed key stays unseen so a later row carrying it is still attempted.
func (r *ingestRun) post(ctx context.Context, m *payment.MatchedPayment, src payment.Source) (Outcome, error) {
	isNew, err := r.dedup.IsNew(ctx, m)
	if err != nil {
		r.summary.addFailure(m, err)
		return OutcomeFailed, err
	}
	if !isNew {
		r.summary.Duplicates++
		return OutcomeDuplicate, nil
	}

	if r.summary.DryRun {
		r.summary.Created++
		return OutcomeCreated, nil
	}

	result, err := r.poster.Post(ctx, m, src)
	if err != nil {
		if errors.Is(err, payment.ErrDuplicatePayment{}) {
			r.summary.Duplicates++
			return OutcomeDuplicate, nil
		}
		r.summary.addFailure(m, err)
		return OutcomeFailed, err
	}

	r.summary.Created++
	if result.AuditErr != nil {
		r.summary.AuditFailures++
	}
	return OutcomeCreated, nil
}

// Outcome is what happened to one source record
type Outcome string

const (
	OutcomeUnrouted  Outcome = "unrouted"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeUnmatched Outcome = "unmatched"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFailed    Outcome = "failed"
	OutcomeCreated   Outcome = "created"
)
