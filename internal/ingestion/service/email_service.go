package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
	"github.com/rentroll-payment-ledger/internal/domain/tenant"
	"github.com/rentroll-payment-ledger/internal/source"
)

// EmailService ingests forwarded payment receipts one message at a time
type EmailService struct {
	router     *source.EmailRouter
	tenantRepo tenant.Repository
	matcher    TenantMatcher
	dedup      DedupGate
	poster     LedgerPoster
	logger     *slog.Logger
}

func NewEmailService(
	router *source.EmailRouter,
	tenantRepo tenant.Repository,
	matcher TenantMatcher,
	dedup DedupGate,
	poster LedgerPoster,
	logger *slog.Logger,
) *EmailService {
	return &EmailService{
		router:     router,
		tenantRepo: tenantRepo,
		matcher:    matcher,
		dedup:      dedup,
		poster:     poster,
		logger:     logger,
	}
}

// EmailOutcome describes how one message was handled. Result is nil for
// messages no network claims; Payment is set once the receipt was matched.
type EmailOutcome struct {
	Outcome Outcome
	Result  *source.Result
	Payment *payment.MatchedPayment
}

// Reason is a short human readable explanation for messages that were not posted
func (o *EmailOutcome) Reason() string {
	switch o.Outcome {
	case OutcomeUnrouted:
		return "sender is not a known payment network"
	case OutcomeSkipped:
		if o.Result.Detail != "" {
			return string(o.Result.Skip) + ": " + o.Result.Detail
		}
		return string(o.Result.Skip)
	case OutcomeUnmatched:
		return "no tenant matches sender " + o.Payment.SenderName
	}
	return string(o.Outcome)
}

// Process routes, parses, matches and posts a single raw message. The error
// is reserved for storage failures, after which the message should be retried.
func (s *EmailService) Process(ctx context.Context, raw []byte) (*EmailOutcome, error) {
	res := s.router.Route(raw)
	if res == nil {
		s.logger.Info("Email not from a known payment network")
		return &EmailOutcome{Outcome: OutcomeUnrouted}, nil
	}

	out := &EmailOutcome{Result: res}
	if res.Skipped() {
		s.logger.Info("Email receipt skipped", "method", res.Method, "reason", res.Skip, "detail", res.Detail)
		out.Outcome = OutcomeSkipped
		return out, nil
	}

	snapshot, err := s.tenantRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read tenant snapshot: %w", err)
	}

	matched := s.matcher.MatchOne(*res.Payment, snapshot)
	out.Payment = &matched

	run := newIngestRun(s.dedup, s.poster, s.logger, NewSummary(false))
	out.Outcome, err = run.ingest(ctx, &matched, payment.SourceEmailImport)
	if err != nil {
		return out, err
	}

	s.logger.Info("Email receipt ingested",
		"outcome", out.Outcome,
		"method", matched.Method,
		"external_id", matched.ExternalID,
		"confidence", matched.Confidence,
	)
	return out, nil
}

// IngestFiles reads saved .eml files and ingests them as one run. A file that
// cannot be read aborts the run before anything is posted.
func (s *EmailService) IngestFiles(ctx context.Context, paths []string, dryRun bool) (*Summary, error) {
	summary := NewSummary(dryRun)

	var parsed []payment.ParsedPayment
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read email %s: %w", path, err)
		}

		res := s.router.Route(raw)
		if res == nil {
			summary.Total++
			summary.Unrouted++
			s.logger.Info("Email not from a known payment network", "file", path)
			continue
		}
		summary.AddResult(res)
		if !res.Skipped() {
			parsed = append(parsed, *res.Payment)
		}
	}

	snapshot, err := s.tenantRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read tenant snapshot: %w", err)
	}

	matched := s.matcher.Match(parsed, snapshot)
	newIngestRun(s.dedup, s.poster, s.logger, summary).ingestAll(ctx, matched, payment.SourceEmailImport)
	summary.finalize(snapshot)

	s.logger.Info("Email ingestion finished",
		"dry_run", dryRun,
		"total", summary.Total,
		"created", summary.Created,
		"duplicates", summary.Duplicates,
		"unmatched", summary.Unmatched,
	)
	return summary, nil
}
