package source

import (
	"io"
	"strings"
	"time"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
)

// PayPalExportParser reads the PayPal activity download CSV
type PayPalExportParser struct {
	loc *time.Location
}

func NewPayPalExportParser(loc *time.Location) *PayPalExportParser {
	return &PayPalExportParser{loc: loc}
}

func (p *PayPalExportParser) Method() payment.Method {
	return payment.MethodPayPal
}

func (p *PayPalExportParser) Parse(r io.Reader) (*Batch, error) {
	t, err := readTable(r, "Date", "Name", "Type", "Status", "Gross", "Transaction ID")
	if err != nil {
		return nil, err
	}

	batch := &Batch{Method: payment.MethodPayPal}
	for _, row := range t.rows {
		batch.Results = append(batch.Results, p.parseRow(t, row))
	}
	return batch, nil
}

func (p *PayPalExportParser) parseRow(t *table, row tableRow) Result {
	const method = payment.MethodPayPal
	if row.fields == nil {
		return skip(method, row.line, SkipMalformed, "unreadable record")
	}

	id := t.get(row, "Transaction ID")
	if id == "" {
		return skip(method, row.line, SkipMalformed, "missing transaction id")
	}

	if status := t.get(row, "Status"); !strings.EqualFold(status, "Completed") {
		return skip(method, row.line, SkipNotCompleted, "status %q", status)
	}

	txType := t.get(row, "Type")
	lower := strings.ToLower(txType)
	if !strings.Contains(lower, "payment") || strings.Contains(lower, "withdrawal") {
		return skip(method, row.line, SkipNotIncoming, "type %q", txType)
	}

	amount, err := ParseAmount(t.get(row, "Gross"))
	if err != nil {
		return skip(method, row.line, SkipMalformed, "%v", err)
	}
	if !amount.IsPositive() {
		return skip(method, row.line, SkipNonPositiveAmount, "amount %s", amount.StringFixed(2))
	}

	sender := cleanName(t.get(row, "Name"))
	if sender == "" {
		return skip(method, row.line, SkipMissingSender, "empty sender")
	}

	// The Date column is already the account's calendar day
	date, err := parseDay(t.get(row, "Date"), p.loc, "01/02/2006", "1/2/2006", time.DateOnly, "02/01/2006")
	if err != nil {
		return skip(method, row.line, SkipMalformed, "%v", err)
	}

	note := t.get(row, "Note")
	if note == "" {
		note = t.get(row, "Subject")
	}

	return accept(row.line, &payment.ParsedPayment{
		SenderName: sender,
		Amount:     amount,
		Date:       date,
		Note:       optionalNote(note),
		ExternalID: id,
		Method:     method,
	})
}
