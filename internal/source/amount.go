package source

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

var amountNoise = strings.NewReplacer("$", "", ",", "", " ", "", "\u00a0", "")

// ParseAmount reads a signed money value as the networks print it:
// "+ $500.00", "- $50.00", "-$50.00", "$1,200.00", "(50.00)", "500 USD".
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimSpace(strings.TrimSuffix(s, "USD"))

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = amountNoise.Replace(s)

	switch {
	case strings.HasPrefix(s, "-"):
		negative = !negative
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if s == "" || strings.ContainsAny(s, "+-eE") {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if negative {
		d = d.Neg()
	}
	return d.Round(2), nil
}
