package source

import (
	"regexp"
	"time"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
)

var (
	zelleSentYou  = regexp.MustCompile(`(?i)^(.+?)\s+sent\s+you\s+(?:(\$\s?[\d,]+\.\d{2})|money)`)
	zelleReceived = regexp.MustCompile(`(?i)^you\s+received\s+(\$\s?[\d,]+\.\d{2})\s+from\s+(.+?)\.?$`)
	zelleOutgoing = regexp.MustCompile(`(?i)^(you\s+sent|your\s+payment\s+to|you\s+requested)`)
	zelleAmount   = regexp.MustCompile(`(?i)^amount:?\s*(\$\s?[\d,]+\.\d{2})`)
	zelleMemo     = regexp.MustCompile(`(?i)^memo\b:?\s*(.*)$`)
)

// ZelleEmailParser reads bank alerts for incoming Zelle transfers. The alerts
// carry no usable transaction id, so the id is synthesized the same way the
// statement parser does it.
type ZelleEmailParser struct {
	loc *time.Location
}

func NewZelleEmailParser(loc *time.Location) *ZelleEmailParser {
	return &ZelleEmailParser{loc: loc}
}

func (p *ZelleEmailParser) Method() payment.Method {
	return payment.MethodZelle
}

func (p *ZelleEmailParser) Parse(msg *Email) Result {
	const method = payment.MethodZelle
	subject := msg.OriginalSubject()
	lines := msg.Lines()

	var sender, rawAmount string
	if m, _ := match(zelleReceived, subject, lines); m != nil {
		sender, rawAmount = m[2], m[1]
	} else if m, _ := match(zelleSentYou, subject, lines); m != nil {
		sender, rawAmount = m[1], m[2]
	} else if mentions(zelleOutgoing, subject, lines) {
		return skip(method, 0, SkipNotIncoming, "subject %q", subject)
	} else {
		return skip(method, 0, SkipMalformed, "no transfer sentence")
	}

	if rawAmount == "" {
		if m, _ := match(zelleAmount, "", lines); m != nil {
			rawAmount = m[1]
		}
	}

	return receipt{
		method:    method,
		sender:    sender,
		rawAmount: rawAmount,
		day:       originalDay(msg, p.loc),
		note:      noteSection(zelleMemo, lines),
	}.result()
}
