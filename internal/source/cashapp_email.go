package source

import (
	"regexp"
	"time"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
)

var (
	cashSentYou  = regexp.MustCompile(`(?i)^(.+?)\s+sent\s+you\s+(\$\s?[\d,]+(?:\.\d{1,2})?)(?:\s+for\s+(.+))?$`)
	cashReceived = regexp.MustCompile(`(?i)^you\s+received\s+(\$\s?[\d,]+(?:\.\d{1,2})?)\s+from\s+(.+?)(?:\s+for\s+(.+))?$`)
	cashOutgoing = regexp.MustCompile(`(?i)^(you\s+sent|you\s+paid|.+?\s+requested\s+\$)`)
	cashID       = regexp.MustCompile(`(?i)identifier\s*:?\s*#\s*([A-Z0-9]{4,})`)
)

// CashAppEmailParser reads "X sent you $N for <note>" receipts
type CashAppEmailParser struct {
	loc *time.Location
}

func NewCashAppEmailParser(loc *time.Location) *CashAppEmailParser {
	return &CashAppEmailParser{loc: loc}
}

func (p *CashAppEmailParser) Method() payment.Method {
	return payment.MethodCashApp
}

func (p *CashAppEmailParser) Parse(msg *Email) Result {
	const method = payment.MethodCashApp
	subject := msg.OriginalSubject()
	lines := msg.Lines()

	var sender, rawAmount, note string
	if m, _ := match(cashSentYou, subject, lines); m != nil {
		sender, rawAmount, note = m[1], m[2], m[3]
	} else if m, _ := match(cashReceived, subject, lines); m != nil {
		sender, rawAmount, note = m[2], m[1], m[3]
	} else if mentions(cashOutgoing, subject, lines) {
		return skip(method, 0, SkipNotIncoming, "subject %q", subject)
	} else {
		return skip(method, 0, SkipMalformed, "no payment sentence")
	}

	id := cashID.FindStringSubmatch(msg.Text)
	if id == nil {
		return skip(method, 0, SkipMalformed, "no identifier")
	}

	return receipt{
		method:     method,
		sender:     sender,
		rawAmount:  rawAmount,
		day:        originalDay(msg, p.loc),
		note:       optionalNote(note),
		externalID: id[1],
	}.result()
}
