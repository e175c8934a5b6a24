package matcher

import (
	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/rentroll-payment-ledger/internal/domain/tenant"
)

// Suggest names the tenant whose full name is closest to sender by edit
// distance, for review reports only. It returns nil when nothing is within
// half the length of the longer name.
func Suggest(sender string, snapshot tenant.Snapshot) *tenant.Tenant {
	name := []rune(Normalize(sender))
	if len(name) == 0 {
		return nil
	}

	var best *tenant.Tenant
	bestDistance := -1
	for _, t := range snapshot {
		for _, form := range []string{
			Normalize(t.FirstName + " " + t.LastName),
			Normalize(t.LastName + " " + t.FirstName),
		} {
			candidate := []rune(form)
			distance := levenshtein.DistanceForStrings(name, candidate, levenshtein.DefaultOptions)
			if distance > max(len(name), len(candidate))/2 {
				continue
			}
			if bestDistance < 0 || distance < bestDistance {
				best, bestDistance = t, distance
			}
		}
	}
	return best
}
