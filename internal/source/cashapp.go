package source

import (
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
)

// CashAppExportParser reads the Cash App activity CSV
type CashAppExportParser struct {
	loc *time.Location
}

func NewCashAppExportParser(loc *time.Location) *CashAppExportParser {
	return &CashAppExportParser{loc: loc}
}

func (p *CashAppExportParser) Method() payment.Method {
	return payment.MethodCashApp
}

func (p *CashAppExportParser) Parse(r io.Reader) (*Batch, error) {
	t, err := readTable(r, "Transaction ID", "Date", "Transaction Type", "Amount", "Status", "Name of sender/receiver")
	if err != nil {
		return nil, err
	}

	batch := &Batch{Method: payment.MethodCashApp}
	for _, row := range t.rows {
		batch.Results = append(batch.Results, p.parseRow(t, row))
	}
	return batch, nil
}

func (p *CashAppExportParser) parseRow(t *table, row tableRow) Result {
	const method = payment.MethodCashApp
	if row.fields == nil {
		return skip(method, row.line, SkipMalformed, "unreadable record")
	}

	id := t.get(row, "Transaction ID")
	if id == "" {
		return skip(method, row.line, SkipMalformed, "missing transaction id")
	}

	if status := t.get(row, "Status"); !strings.EqualFold(status, "COMPLETE") {
		return skip(method, row.line, SkipNotCompleted, "status %q", status)
	}

	amount, err := ParseAmount(t.get(row, "Amount"))
	if err != nil {
		return skip(method, row.line, SkipMalformed, "%v", err)
	}
	if !amount.IsPositive() {
		return skip(method, row.line, SkipNonPositiveAmount, "amount %s", amount.StringFixed(2))
	}

	txType := t.get(row, "Transaction Type")
	if !isCashAppIncoming(txType) {
		return skip(method, row.line, SkipNotIncoming, "type %q", txType)
	}

	sender := cleanName(t.get(row, "Name of sender/receiver"))
	if sender == "" {
		return skip(method, row.line, SkipMissingSender, "empty sender")
	}

	date, err := p.day(t.get(row, "Date"))
	if err != nil {
		return skip(method, row.line, SkipMalformed, "%v", err)
	}

	return accept(row.line, &payment.ParsedPayment{
		SenderName: sender,
		Amount:     amount,
		Date:       date,
		Note:       optionalNote(t.get(row, "Notes")),
		ExternalID: id,
		Method:     method,
	})
}

func isCashAppIncoming(txType string) bool {
	lower := strings.ToLower(txType)
	return strings.Contains(lower, "received") || lower == "p2p"
}

var trailingZone = regexp.MustCompile(`\s+[A-Z]{2,5}$`)

// day reads "2024-03-01 14:22:05 EST". The zone abbreviation names the
// account's zone, so the wall clock is read in loc.
func (p *CashAppExportParser) day(value string) (time.Time, error) {
	value = trailingZone.ReplaceAllString(strings.TrimSpace(value), "")
	return parseDay(value, p.loc, "2006-01-02 15:04:05", "2006-01-02 15:04", time.DateOnly, "01/02/2006")
}
