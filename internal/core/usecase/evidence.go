package usecase

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/DanaMt13/smart-librarian/internal/core/domain"
)

const (
	snippetMaxLen  = 220
	snippetLeadIn  = 40
	minTokenRunes  = 3
	maxSuggestions = 5
)

// formatRankedReport renders one line per displayed candidate with the raw
// distance and a derived similarity estimate. The similarity is a display
// heuristic, not a calibrated probability.
func formatRankedReport(candidates []domain.Candidate) string {
	var b strings.Builder
	for i, c := range candidates {
		similarity := math.Max(0, 1-c.Distance)
		fmt.Fprintf(&b, "%d. %s (distance %.4f, similarity %.2f)\n", i+1, c.Title, c.Distance, similarity)
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildEvidence(candidates []domain.Candidate, query string) []domain.EvidenceItem {
	out := make([]domain.EvidenceItem, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, domain.EvidenceItem{
			Title:    c.Title,
			Distance: c.Distance,
			Snippet:  bestSnippet(c.Document, query),
		})
	}
	return out
}

// bestSnippet is a best-effort locator, not a relevance-ranked excerpt: it
// finds the earliest occurrence of any query token in the flattened document
// and cuts a window around it. With no token hit it falls back to the
// document head.
func bestSnippet(document, query string) string {
	if document == "" {
		return ""
	}

	flat := strings.TrimSpace(strings.ReplaceAll(document, "\n", " "))
	lower := strings.ToLower(flat)

	best := -1
	for _, token := range queryTokens(query) {
		idx := strings.Index(lower, token)
		if idx >= 0 && (best == -1 || idx < best) {
			best = idx
		}
	}

	start := 0
	if best > 0 {
		start = utf8.RuneCountInString(flat[:best]) - snippetLeadIn
		if start < 0 {
			start = 0
		}
	}

	runes := []rune(flat)
	if start >= len(runes) {
		start = 0
	}
	end := start + snippetMaxLen
	if end > len(runes) {
		end = len(runes)
	}
	return strings.TrimSpace(string(runes[start:end]))
}

// queryTokens splits the normalized query into alphanumeric tokens (letters
// including diacritics) longer than two runes.
func queryTokens(query string) []string {
	normalized := domain.NormalizeText(query)
	if normalized == "" {
		return nil
	}

	tokens := make([]string, 0, 8)
	var b strings.Builder
	flush := func() {
		if utf8.RuneCountInString(b.String()) >= minTokenRunes {
			tokens = append(tokens, b.String())
		}
		b.Reset()
	}
	for _, r := range normalized {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}

func rankedTitles(candidates []domain.Candidate) []domain.RankedTitle {
	out := make([]domain.RankedTitle, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, domain.RankedTitle{Title: c.Title, Distance: c.Distance})
	}
	return out
}
