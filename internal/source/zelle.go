package source

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
)

// ZelleStatementParser reads Zelle credits out of a bank statement, either the
// bank's CSV download or a plain text statement with one transaction per line.
// Banks expose no Zelle transaction id, so ids are synthesized.
type ZelleStatementParser struct {
	loc *time.Location
}

func NewZelleStatementParser(loc *time.Location) *ZelleStatementParser {
	return &ZelleStatementParser{loc: loc}
}

func (p *ZelleStatementParser) Method() payment.Method {
	return payment.MethodZelle
}

func (p *ZelleStatementParser) Parse(r io.Reader) (*Batch, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading statement: %w", err)
	}

	if looksLikeCSVStatement(data) {
		return p.parseCSV(bytes.NewReader(data))
	}
	return p.parseText(bytes.NewReader(data))
}

func looksLikeCSVStatement(data []byte) bool {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		return strings.Contains(lower, ",") && strings.Contains(lower, "description")
	}
	return false
}

func (p *ZelleStatementParser) parseCSV(r io.Reader) (*Batch, error) {
	t, err := readTable(r, "Posting Date", "Description", "Amount")
	if err != nil {
		return nil, err
	}

	batch := &Batch{Method: payment.MethodZelle}
	for _, row := range t.rows {
		if row.fields == nil {
			batch.Results = append(batch.Results, skip(payment.MethodZelle, row.line, SkipMalformed, "unreadable record"))
			continue
		}
		batch.Results = append(batch.Results,
			p.statementLine(row.line, t.get(row, "Posting Date"), t.get(row, "Description"), t.get(row, "Amount")))
	}
	return batch, nil
}

var statementLine = regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{2,4})\s+(.+?)\s+([-+(]?\s*\$?[\d,]+\.\d{2}\)?)$`)

func (p *ZelleStatementParser) parseText(r io.Reader) (*Batch, error) {
	batch := &Batch{Method: payment.MethodZelle}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		m := statementLine.FindStringSubmatch(text)
		if m == nil {
			reason := SkipUnrelatedRow
			if strings.Contains(strings.ToLower(text), "zelle") {
				reason = SkipMalformed
			}
			batch.Results = append(batch.Results, skip(payment.MethodZelle, line, reason, "unrecognized line"))
			continue
		}
		batch.Results = append(batch.Results, p.statementLine(line, m[1], m[2], m[3]))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading statement: %w", err)
	}
	return batch, nil
}

func (p *ZelleStatementParser) statementLine(line int, rawDate, description, rawAmount string) Result {
	const method = payment.MethodZelle

	sender, incoming, ok := zelleCounterparty(description)
	if !ok {
		return skip(method, line, SkipUnrelatedRow, "not a zelle transfer")
	}
	if !incoming {
		return skip(method, line, SkipNotIncoming, "outgoing zelle transfer")
	}

	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return skip(method, line, SkipMalformed, "%v", err)
	}
	if !amount.IsPositive() {
		return skip(method, line, SkipNonPositiveAmount, "amount %s", amount.StringFixed(2))
	}
	if sender == "" {
		return skip(method, line, SkipMissingSender, "no name after 'from'")
	}

	date, err := parseDay(rawDate, p.loc, "01/02/2006", "1/2/2006", "01/02/06", "1/2/06", time.DateOnly)
	if err != nil {
		return skip(method, line, SkipMalformed, "%v", err)
	}

	return accept(line, &payment.ParsedPayment{
		SenderName: sender,
		Amount:     amount,
		Date:       date,
		ExternalID: SyntheticID(method, sender, amount, date),
		Method:     method,
	})
}

var (
	zelleFrom = regexp.MustCompile(`(?i)\bzelle\b.*?\bfrom\s+(.*)$`)
	zelleTo   = regexp.MustCompile(`(?i)\bzelle\b.*?\bto\b`)
)

// Tokens that end the counterparty name in a bank description
var zelleNameStops = map[string]bool{
	"on": true, "ref": true, "ref#": true, "conf": true, "conf#": true, "memo": true, "id": true, "trn": true,
}

// zelleCounterparty reads the sender out of descriptions such as
// "Zelle payment from JOHN DOE WFCT0Q4ABCDE" or "ZELLE FROM JANE ROE ON 03/01 REF # BAC1".
func zelleCounterparty(description string) (sender string, incoming bool, ok bool) {
	if m := zelleFrom.FindStringSubmatch(description); m != nil {
		var name []string
		for _, token := range strings.Fields(m[1]) {
			if zelleNameStops[strings.ToLower(strings.TrimSuffix(token, ":"))] || strings.ContainsAny(token, "0123456789#") {
				break
			}
			name = append(name, token)
		}
		return strings.Join(name, " "), true, true
	}
	if zelleTo.MatchString(description) {
		return "", false, true
	}
	return "", false, false
}
