package cache

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

var keyFolder = cases.Fold()

// Key builds a deterministic cache key from semantic request parameters.
// Each part is case-folded and stripped to alphanumerics, so two requests
// describing the same domain, sales context, and discriminator always map
// to the same key. No randomness, no timestamps.
func Key(domain string, salesContext string, extra ...string) string {
	parts := make([]string, 0, 2+len(extra))
	parts = append(parts, normalizeKeyPart(domain), normalizeKeyPart(salesContext))
	for _, e := range extra {
		parts = append(parts, normalizeKeyPart(e))
	}
	return strings.Join(parts, ":")
}

func normalizeKeyPart(s string) string {
	folded := keyFolder.String(s)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
