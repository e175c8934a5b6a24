package source

import (
	"regexp"
	"strings"
	"time"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
)

var (
	venmoIncoming    = regexp.MustCompile(`(?i)^(.+?)\s+paid\s+your?\b(?:\s+\$\s?([\d,]+(?:\.\d{1,2})?))?`)
	venmoOutgoing    = regexp.MustCompile(`(?i)^(you\s+paid|you\s+charged|you\s+completed|.+?\s+charged\s+you|.+?\s+requests?\s+\$)`)
	venmoAmountLine  = regexp.MustCompile(`^\+?\s*\$\s?[\d,]+(?:\.\d{1,2})?$`)
	venmoID          = regexp.MustCompile(`(?i)\b(?:transaction|payment)\s+id\b[\s:#]*(\d{6,})`)
	venmoBoilerplate = regexp.MustCompile(`(?i)^(see transaction|like|comment|transaction id|payment id|money credited|privacy|help center)`)
)

// VenmoEmailParser reads "X paid you $N" receipts. Forwarded copies often carry
// a relative age ("4d") instead of a date; it is resolved against the clock.
type VenmoEmailParser struct {
	loc *time.Location
	now Clock
}

func NewVenmoEmailParser(loc *time.Location, now Clock) *VenmoEmailParser {
	if now == nil {
		now = time.Now
	}
	return &VenmoEmailParser{loc: loc, now: now}
}

func (p *VenmoEmailParser) Method() payment.Method {
	return payment.MethodVenmo
}

func (p *VenmoEmailParser) Parse(msg *Email) Result {
	const method = payment.MethodVenmo
	subject := msg.OriginalSubject()
	lines := msg.Lines()

	if mentions(venmoOutgoing, subject, nil) {
		return skip(method, 0, SkipNotIncoming, "subject %q", subject)
	}
	// the body anchor comes first so the note below it can be read
	m, at := match(venmoIncoming, "", lines)
	if m == nil {
		m, at = match(venmoIncoming, subject, nil)
	}
	if m == nil {
		if mentions(venmoOutgoing, "", lines) {
			return skip(method, 0, SkipNotIncoming, "no incoming payment sentence")
		}
		return skip(method, 0, SkipMalformed, "no payment sentence")
	}

	id := venmoID.FindStringSubmatch(msg.Text)
	if id == nil {
		return skip(method, 0, SkipMalformed, "no transaction id")
	}

	rawAmount := m[2]
	body := lines
	if at != subjectLine {
		body = lines[at+1:]
	}
	if rawAmount == "" {
		for _, line := range body {
			if venmoAmountLine.MatchString(line) {
				rawAmount = line
				break
			}
		}
	}

	var note *string
	if at != subjectLine {
		note = p.note(body)
	}

	return receipt{
		method:     method,
		sender:     m[1],
		rawAmount:  rawAmount,
		day:        p.day(msg, lines),
		note:       note,
		externalID: id[1],
	}.result()
}

// note is the first line after the anchor that is neither amount, age nor chrome
func (p *VenmoEmailParser) note(after []string) *string {
	for _, line := range after {
		if venmoAmountLine.MatchString(line) {
			continue
		}
		if _, ok := RelativeDay(strings.TrimLeft(line, "· "), time.Time{}, p.loc); ok {
			continue
		}
		if venmoBoilerplate.MatchString(line) {
			return nil
		}
		return optionalNote(line)
	}
	return nil
}

func (p *VenmoEmailParser) day(msg *Email, lines []string) time.Time {
	now := p.now()
	for _, line := range lines {
		if day, ok := RelativeDay(strings.TrimLeft(line, "· "), now, p.loc); ok {
			return day
		}
	}
	return originalDay(msg, p.loc)
}
