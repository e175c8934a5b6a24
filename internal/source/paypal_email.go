package source

import (
	"regexp"
	"strings"
	"time"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
)

var (
	paypalSentYou  = regexp.MustCompile(`(?i)^(.+?)\s+sent\s+you\s+(\$\s?[\d,]+(?:\.\d{2})?)(?:\s*USD)?`)
	paypalOutgoing = regexp.MustCompile(`(?i)^(you\s+sent|you\s+paid|you\s+requested|.+?\s+requested\s+\$)`)
	paypalNote     = regexp.MustCompile(`(?i)^note\s+from\s+.+?:\s*(.*)$`)
	paypalID       = regexp.MustCompile(`(?i)transaction\s+id\s*:?\s*([A-Z0-9]{10,20})\b`)
)

// PayPalEmailParser reads "X sent you $N USD" receipts with an optional
// "Note from X:" section
type PayPalEmailParser struct {
	loc *time.Location
}

func NewPayPalEmailParser(loc *time.Location) *PayPalEmailParser {
	return &PayPalEmailParser{loc: loc}
}

func (p *PayPalEmailParser) Method() payment.Method {
	return payment.MethodPayPal
}

func (p *PayPalEmailParser) Parse(msg *Email) Result {
	const method = payment.MethodPayPal
	subject := msg.OriginalSubject()
	lines := msg.Lines()

	m, _ := match(paypalSentYou, subject, lines)
	if m == nil {
		if mentions(paypalOutgoing, subject, lines) {
			return skip(method, 0, SkipNotIncoming, "subject %q", subject)
		}
		return skip(method, 0, SkipMalformed, "no payment sentence")
	}

	id := paypalID.FindStringSubmatch(msg.Text)
	if id == nil {
		return skip(method, 0, SkipMalformed, "no transaction id")
	}

	return receipt{
		method:     method,
		sender:     m[1],
		rawAmount:  m[2],
		day:        originalDay(msg, p.loc),
		note:       noteSection(paypalNote, lines),
		externalID: strings.ToUpper(id[1]),
	}.result()
}

// noteSection reads a labeled note, taking the following line when the label stands alone
func noteSection(label *regexp.Regexp, lines []string) *string {
	for i, line := range lines {
		m := label.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if note := optionalNote(m[1]); note != nil {
			return note
		}
		if i+1 < len(lines) {
			return optionalNote(lines[i+1])
		}
		return nil
	}
	return nil
}
