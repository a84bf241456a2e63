package domain

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText brings free-form text to the canonical matching form used
// across the service: NFKC composition, trimmed, internal whitespace
// collapsed to single spaces, lowercased. Display strings keep their
// original casing; this form is for lookups and comparisons only.
func NormalizeText(s string) string {
	s = norm.NFKC.String(s)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
