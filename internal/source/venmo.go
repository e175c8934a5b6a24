package source

import (
	"io"
	"strings"
	"time"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
)

// VenmoExportParser reads the Venmo account statement CSV
type VenmoExportParser struct {
	loc *time.Location
}

func NewVenmoExportParser(loc *time.Location) *VenmoExportParser {
	return &VenmoExportParser{loc: loc}
}

func (p *VenmoExportParser) Method() payment.Method {
	return payment.MethodVenmo
}

func (p *VenmoExportParser) Parse(r io.Reader) (*Batch, error) {
	t, err := readTable(r, "ID", "Datetime", "Type", "Status", "From", "To", "Amount (total)")
	if err != nil {
		return nil, err
	}

	batch := &Batch{Method: payment.MethodVenmo}
	for _, row := range t.rows {
		batch.Results = append(batch.Results, p.parseRow(t, row))
	}
	return batch, nil
}

func (p *VenmoExportParser) parseRow(t *table, row tableRow) Result {
	const method = payment.MethodVenmo
	if row.fields == nil {
		return skip(method, row.line, SkipMalformed, "unreadable record")
	}

	id := t.get(row, "ID")
	if id == "" {
		// statement footer rows carry balances without a transaction
		return skip(method, row.line, SkipUnrelatedRow, "no transaction id")
	}

	if status := t.get(row, "Status"); !strings.EqualFold(status, "Complete") {
		return skip(method, row.line, SkipNotCompleted, "status %q", status)
	}

	amount, err := ParseAmount(t.get(row, "Amount (total)"))
	if err != nil {
		return skip(method, row.line, SkipMalformed, "%v", err)
	}
	if !amount.IsPositive() {
		return skip(method, row.line, SkipNonPositiveAmount, "amount %s", amount.StringFixed(2))
	}

	var sender string
	switch txType := t.get(row, "Type"); strings.ToLower(txType) {
	case "payment":
		sender = t.get(row, "From")
	case "charge":
		sender = t.get(row, "To")
	default:
		return skip(method, row.line, SkipNotIncoming, "type %q", txType)
	}
	sender = cleanName(sender)
	if sender == "" {
		return skip(method, row.line, SkipMissingSender, "empty sender")
	}

	date, err := p.day(t.get(row, "Datetime"))
	if err != nil {
		return skip(method, row.line, SkipMalformed, "%v", err)
	}

	return accept(row.line, &payment.ParsedPayment{
		SenderName: sender,
		Amount:     amount,
		Date:       date,
		Note:       optionalNote(t.get(row, "Note")),
		ExternalID: id,
		Method:     method,
	})
}

// day reads the statement timestamp, which Venmo prints in UTC
func (p *VenmoExportParser) day(value string) (time.Time, error) {
	if at, err := parseTime(value, time.UTC, "2006-01-02T15:04:05", "2006-01-02 15:04:05"); err == nil {
		return CalendarDay(at, p.loc), nil
	}
	return parseDay(value, p.loc, time.DateOnly)
}
