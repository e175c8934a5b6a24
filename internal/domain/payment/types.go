package payment

import "strings"

// Method identifies the peer-to-peer network a payment arrived through
type Method string

const (
	MethodVenmo   Method = "VENMO"
	MethodCashApp Method = "CASHAPP"
	MethodPayPal  Method = "PAYPAL"
	MethodZelle   Method = "ZELLE"
)

// Methods lists every supported network in a stable order
var Methods = []Method{MethodVenmo, MethodCashApp, MethodPayPal, MethodZelle}

// ParseMethod accepts the lower- or upper-case network name
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToUpper(strings.TrimSpace(s))) {
	case MethodVenmo:
		return MethodVenmo, nil
	case MethodCashApp, "CASH_APP":
		return MethodCashApp, nil
	case MethodPayPal:
		return MethodPayPal, nil
	case MethodZelle:
		return MethodZelle, nil
	}
	return "", ErrUnknownMethod{Value: s}
}

// Status defines payment confirmation states
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusRejected  Status = "REJECTED"
)

// Source tags how a payment entered the system
type Source string

const (
	SourceHistoricalImport Source = "HISTORICAL_IMPORT"
	SourceEmailImport      Source = "EMAIL_IMPORT"
	SourceManual           Source = "MANUAL"
)

// Confidence records how a tenant assignment was reached
type Confidence string

const (
	ConfidenceManual    Confidence = "manual"
	ConfidenceExact     Confidence = "exact"
	ConfidenceFuzzy     Confidence = "fuzzy"
	ConfidenceUnmatched Confidence = "unmatched"
)

// Confidences lists the tiers from most to least trusted
var Confidences = []Confidence{ConfidenceManual, ConfidenceExact, ConfidenceFuzzy, ConfidenceUnmatched}

// Rank orders confidence tiers by trust; lower is more trusted.
func (c Confidence) Rank() int {
	for i, tier := range Confidences {
		if tier == c {
			return i
		}
	}
	return len(Confidences)
}

// MoreTrustedThan reports whether c ranks above other
func (c Confidence) MoreTrustedThan(other Confidence) bool {
	return c.Rank() < other.Rank()
}
