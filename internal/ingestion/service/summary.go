package service

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
	"github.com/rentroll-payment-ledger/internal/domain/tenant"
	"github.com/rentroll-payment-ledger/internal/matcher"
	"github.com/rentroll-payment-ledger/internal/source"
)

// Summary is the outcome of one ingestion run. In a dry run Created counts
// the payments that would have been posted.
type Summary struct {
	DryRun           bool                       `json:"dry_run"`
	Total            int                        `json:"total"`
	Unrouted         int                        `json:"unrouted,omitempty"`
	Parsed           int                        `json:"parsed"`
	Skipped          map[source.SkipReason]int  `json:"skipped"`
	ByConfidence     map[payment.Confidence]int `json:"by_confidence"`
	Matched          int                        `json:"matched"`
	Unmatched        int                        `json:"unmatched"`
	Duplicates       int                        `json:"duplicates"`
	Created          int                        `json:"created"`
	Failed           int                        `json:"failed"`
	AuditFailures    int                        `json:"audit_failures"`
	Collisions       int                        `json:"collisions"`
	UnmatchedSenders []UnmatchedSender          `json:"unmatched_senders"`
	Failures         []Failure                  `json:"failures"`

	unmatched map[string]*UnmatchedSender
}

// UnmatchedSender aggregates the payments of one sender nobody could be matched to
type UnmatchedSender struct {
	Name       string          `json:"name"`
	Count      int             `json:"count"`
	Total      decimal.Decimal `json:"total"`
	Suggestion string          `json:"suggestion,omitempty"`
}

// Failure carries enough of a payment to retry it by hand
type Failure struct {
	Sender     string          `json:"sender"`
	Amount     decimal.Decimal `json:"amount"`
	ExternalID string          `json:"external_id"`
	Method     payment.Method  `json:"method"`
	Error      string          `json:"error"`
}

func NewSummary(dryRun bool) *Summary {
	return &Summary{
		DryRun:           dryRun,
		Skipped:          make(map[source.SkipReason]int),
		ByConfidence:     make(map[payment.Confidence]int),
		UnmatchedSenders: []UnmatchedSender{},
		Failures:         []Failure{},
		unmatched:        make(map[string]*UnmatchedSender),
	}
}

// AddBatch counts the records of a parsed batch
func (s *Summary) AddBatch(b *source.Batch) {
	s.Total += len(b.Results)
	for reason, n := range b.SkipCounts() {
		s.Skipped[reason] += n
	}
	s.Parsed += len(b.Results) - countSkipped(b)
}

// AddResult counts a single record, as produced by the email channel
func (s *Summary) AddResult(r *source.Result) {
	s.Total++
	if r.Skipped() {
		s.Skipped[r.Skip]++
		return
	}
	s.Parsed++
}

func countSkipped(b *source.Batch) int {
	n := 0
	for _, r := range b.Results {
		if r.Skipped() {
			n++
		}
	}
	return n
}

func (s *Summary) addUnmatched(m *payment.MatchedPayment) {
	s.Unmatched++
	key := source.NormalizeSender(m.SenderName)
	u, ok := s.unmatched[key]
	if !ok {
		u = &UnmatchedSender{Name: m.SenderName, Total: decimal.Zero}
		s.unmatched[key] = u
	}
	u.Count++
	u.Total = u.Total.Add(m.Amount)
}

func (s *Summary) addFailure(m *payment.MatchedPayment, err error) {
	s.Failed++
	s.Failures = append(s.Failures, Failure{
		Sender:     m.SenderName,
		Amount:     m.Amount,
		ExternalID: m.ExternalID,
		Method:     m.Method,
		Error:      err.Error(),
	})
}

// finalize flattens unmatched senders, largest total first, with the closest
// tenant name as a hint for whoever maintains the override table
func (s *Summary) finalize(snapshot tenant.Snapshot) {
	s.UnmatchedSenders = s.UnmatchedSenders[:0]
	for _, u := range s.unmatched {
		if t := matcher.Suggest(u.Name, snapshot); t != nil {
			u.Suggestion = t.FullName()
		}
		s.UnmatchedSenders = append(s.UnmatchedSenders, *u)
	}
	sort.Slice(s.UnmatchedSenders, func(i, j int) bool {
		a, b := s.UnmatchedSenders[i], s.UnmatchedSenders[j]
		if cmp := a.Total.Cmp(b.Total); cmp != 0 {
			return cmp > 0
		}
		return a.Name < b.Name
	})
}
