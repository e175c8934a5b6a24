package matcher

import (
	"strings"
	"unicode"
)

// Normalize lower-cases a name, trims punctuation from each token and collapses whitespace
func Normalize(name string) string {
	return strings.Join(tokens(name), " ")
}

func tokens(name string) []string {
	fields := strings.Fields(strings.ToLower(name))
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// containsPhrase reports whether phrase occurs in text on token boundaries.
// Both arguments must already be normalized.
func containsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}
