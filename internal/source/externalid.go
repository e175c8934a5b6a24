package source

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
)

const syntheticHexLen = 24

var syntheticPrefixes = map[payment.Method]string{
	payment.MethodVenmo:   "vm_",
	payment.MethodCashApp: "ca_",
	payment.MethodPayPal:  "pp_",
	payment.MethodZelle:   "zl_",
}

// NormalizeSender lower-cases a sender name and collapses its whitespace
func NormalizeSender(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// SyntheticID derives a stable external id for channels that expose none.
// Two payments sharing network, sender, amount and day get the same id.
func SyntheticID(method payment.Method, sender string, amount decimal.Decimal, day time.Time) string {
	key := strings.Join([]string{
		string(method),
		NormalizeSender(sender),
		amount.StringFixed(2),
		day.Format(time.DateOnly),
	}, "|")
	sum := sha256.Sum256([]byte(key))
	return syntheticPrefixes[method] + hex.EncodeToString(sum[:])[:syntheticHexLen]
}

// IsSynthetic reports whether an external id was derived rather than provider assigned
func IsSynthetic(method payment.Method, externalID string) bool {
	prefix := syntheticPrefixes[method]
	return len(externalID) == len(prefix)+syntheticHexLen && strings.HasPrefix(externalID, prefix)
}

func cleanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func optionalNote(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
