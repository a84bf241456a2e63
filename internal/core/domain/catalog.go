package domain

import "strings"

// BookEntry is one catalog row: a short pitch, a long-form detailed summary,
// and theme tags.
type BookEntry struct {
	Title       string   `yaml:"title"`
	Summary     string   `yaml:"summary"`
	FullSummary string   `yaml:"full_summary"`
	Themes      []string `yaml:"themes"`
}

// EmbeddingText composes the text that gets embedded and indexed for this
// book: short summary, long summary, then themes.
func (b BookEntry) EmbeddingText() string {
	parts := make([]string, 0, 3)
	if s := strings.TrimSpace(b.Summary); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(b.FullSummary); s != "" {
		parts = append(parts, s)
	}
	if len(b.Themes) > 0 {
		parts = append(parts, "Themes: "+strings.Join(b.Themes, ", "))
	}
	return strings.Join(parts, "\n\n")
}

// DetailedSummary returns the long-form description, falling back to the
// short summary when none exists.
func (b BookEntry) DetailedSummary() string {
	if s := strings.TrimSpace(b.FullSummary); s != "" {
		return s
	}
	return strings.TrimSpace(b.Summary)
}

// SummaryLookup is the outcome of a catalog lookup by title. When Found is
// false, Suggestions may carry containment matches for a "did you mean" hint.
type SummaryLookup struct {
	Found       bool
	Title       string
	Summary     string
	Suggestions []string
}
