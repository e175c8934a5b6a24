package source

import (
	"regexp"
	"strings"
	"time"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
)

const subjectLine = -1

// match looks for re in the subject first, then in each body line. The returned
// index is subjectLine or the position in lines.
func match(re *regexp.Regexp, subject string, lines []string) ([]string, int) {
	if m := re.FindStringSubmatch(strings.TrimSpace(subject)); m != nil {
		return m, subjectLine
	}
	for i, line := range lines {
		if m := re.FindStringSubmatch(line); m != nil {
			return m, i
		}
	}
	return nil, 0
}

func mentions(re *regexp.Regexp, subject string, lines []string) bool {
	m, _ := match(re, subject, lines)
	return m != nil
}

// receipt collects what a parser found in a message before validation
type receipt struct {
	method     payment.Method
	sender     string
	rawAmount  string
	day        time.Time
	note       *string
	externalID string
}

// result validates the receipt in the same order the export parsers do
func (r receipt) result() Result {
	amount, err := ParseAmount(r.rawAmount)
	if err != nil {
		return skip(r.method, 0, SkipMalformed, "%v", err)
	}
	if !amount.IsPositive() {
		return skip(r.method, 0, SkipNonPositiveAmount, "amount %s", amount.StringFixed(2))
	}

	sender := cleanName(r.sender)
	if sender == "" {
		return skip(r.method, 0, SkipMissingSender, "empty sender")
	}
	if r.day.IsZero() {
		return skip(r.method, 0, SkipMalformed, "no payment date")
	}

	externalID := r.externalID
	if externalID == "" {
		externalID = SyntheticID(r.method, sender, amount, r.day)
	}

	return accept(0, &payment.ParsedPayment{
		SenderName: sender,
		Amount:     amount,
		Date:       r.day,
		Note:       r.note,
		ExternalID: externalID,
		Method:     r.method,
	})
}

func originalDay(msg *Email, loc *time.Location) time.Time {
	at := msg.OriginalDate(loc)
	if at.IsZero() {
		return time.Time{}
	}
	return CalendarDay(at, loc)
}
