// Package source turns provider exports and forwarded receipts into canonical payments.
package source

import (
	"fmt"
	"io"
	"os"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
)

// SkipReason explains why a source record produced no payment
type SkipReason string

const (
	SkipNotIncoming       SkipReason = "NOT_INCOMING"
	SkipNotCompleted      SkipReason = "NOT_COMPLETED"
	SkipNonPositiveAmount SkipReason = "NON_POSITIVE_AMOUNT"
	SkipMissingSender     SkipReason = "MISSING_SENDER"
	SkipMalformed         SkipReason = "MALFORMED"
	SkipUnrelatedRow      SkipReason = "UNRELATED_ROW"
)

// Result is the outcome for one source record. Exactly one of Payment and Skip is set.
type Result struct {
	Method  payment.Method
	Line    int
	Payment *payment.ParsedPayment
	Skip    SkipReason
	Detail  string
}

// Skipped reports whether the record was rejected
func (r Result) Skipped() bool {
	return r.Payment == nil
}

func accept(line int, p *payment.ParsedPayment) Result {
	return Result{Method: p.Method, Line: line, Payment: p}
}

func skip(method payment.Method, line int, reason SkipReason, format string, args ...any) Result {
	return Result{Method: method, Line: line, Skip: reason, Detail: fmt.Sprintf(format, args...)}
}

// Batch holds every record result of one export file, in source order
type Batch struct {
	Method  payment.Method
	Origin  string
	Results []Result
}

// Payments returns the accepted payments in source order
func (b *Batch) Payments() []payment.ParsedPayment {
	payments := make([]payment.ParsedPayment, 0, len(b.Results))
	for _, r := range b.Results {
		if r.Payment != nil {
			payments = append(payments, *r.Payment)
		}
	}
	return payments
}

// SkipCounts tallies rejected records by reason
func (b *Batch) SkipCounts() map[SkipReason]int {
	counts := make(map[SkipReason]int)
	for _, r := range b.Results {
		if r.Payment == nil {
			counts[r.Skip]++
		}
	}
	return counts
}

// ExportParser reads one network's bulk export. The error return is reserved for
// input that cannot be read at all; bad rows become skipped results.
type ExportParser interface {
	Method() payment.Method
	Parse(r io.Reader) (*Batch, error)
}

// EmailParser reads one network's forwarded receipt
type EmailParser interface {
	Method() payment.Method
	Parse(msg *Email) Result
}

// ParseFile runs an export parser over a file on disk
func ParseFile(p ExportParser, path string) (*Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s export %s: %w", p.Method(), path, err)
	}
	defer f.Close()

	batch, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s export %s: %w", p.Method(), path, err)
	}
	batch.Origin = path
	return batch, nil
}
