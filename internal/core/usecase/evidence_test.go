package usecase

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/DanaMt13/smart-librarian/internal/core/domain"
)

func TestFormatRankedReport(t *testing.T) {
	report := formatRankedReport([]domain.Candidate{
		{Title: "1984", Distance: 0.0521},
		{Title: "Dune", Distance: 1.4},
	})

	lines := strings.Split(report, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), report)
	}
	if !strings.HasPrefix(lines[0], "1. 1984") {
		t.Fatalf("expected 1-indexed first line, got %q", lines[0])
	}
	if !strings.Contains(lines[0], "distance 0.0521") || !strings.Contains(lines[0], "similarity 0.95") {
		t.Fatalf("unexpected first line: %q", lines[0])
	}
	// Similarity is clamped at zero for distances beyond 1.
	if !strings.Contains(lines[1], "similarity 0.00") {
		t.Fatalf("expected clamped similarity, got %q", lines[1])
	}
}

func TestBestSnippetLocatesEarliestTokenHit(t *testing.T) {
	doc := strings.Repeat("x", 100) + " the hobbit sets out on an adventure " + strings.Repeat("y", 300)
	snippet := bestSnippet(doc, "Ce este The Hobbit?")

	if !strings.Contains(snippet, "hobbit") {
		t.Fatalf("expected snippet around the token hit, got %q", snippet)
	}
	if utf8.RuneCountInString(snippet) > snippetMaxLen {
		t.Fatalf("snippet too long: %d runes", utf8.RuneCountInString(snippet))
	}
	// Window starts 40 runes before the hit, so some lead-in survives.
	if !strings.Contains(snippet, "x") {
		t.Fatalf("expected lead-in before the hit, got %q", snippet)
	}
}

func TestBestSnippetShortTokensAreIgnored(t *testing.T) {
	doc := "an ox is at it " + strings.Repeat("z", 50) + " wizard school"
	snippet := bestSnippet(doc, "is it an ox in wizard land")
	if !strings.Contains(snippet, "wizard") && !strings.HasPrefix(snippet, "an ox") {
		t.Fatalf("unexpected snippet %q", snippet)
	}
	// Tokens of length <= 2 never match: "wizard" is the earliest usable hit.
	if got := bestSnippet("it it it wizard", "it wizard"); !strings.Contains(got, "wizard") {
		t.Fatalf("expected hit on long token only, got %q", got)
	}
}

func TestBestSnippetNoTokenMatchFallsBackToHead(t *testing.T) {
	doc := "A quiet village story." + strings.Repeat(" more text", 40)
	snippet := bestSnippet(doc, "spaceship lasers")
	if !strings.HasPrefix(snippet, "A quiet village story.") {
		t.Fatalf("expected document head, got %q", snippet)
	}
}

func TestBestSnippetEmptyDocument(t *testing.T) {
	if got := bestSnippet("", "anything"); got != "" {
		t.Fatalf("expected empty snippet, got %q", got)
	}
}

func TestBestSnippetFlattensNewlines(t *testing.T) {
	snippet := bestSnippet("first line\nsecond dragon line\nthird", "dragon")
	if strings.Contains(snippet, "\n") {
		t.Fatalf("expected flattened snippet, got %q", snippet)
	}
	if !strings.Contains(snippet, "dragon") {
		t.Fatalf("expected token hit, got %q", snippet)
	}
}

func TestQueryTokensKeepsDiacritics(t *testing.T) {
	tokens := queryTokens("O carte despre libertate și curaj, te rog")
	joined := strings.Join(tokens, " ")
	if !strings.Contains(joined, "libertate") || !strings.Contains(joined, "curaj") {
		t.Fatalf("expected content tokens, got %v", tokens)
	}
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) < minTokenRunes {
			t.Fatalf("short token leaked through: %q", tok)
		}
	}
}

func TestBuildEvidenceCarriesDistances(t *testing.T) {
	items := buildEvidence([]domain.Candidate{
		{Title: "1984", Distance: 0.1, Document: "surveillance state dystopia"},
		{Title: "Dune", Distance: 0.6, Document: "desert planet politics"},
	}, "dystopia")

	if len(items) != 2 {
		t.Fatalf("expected 2 evidence items, got %d", len(items))
	}
	if items[0].Title != "1984" || items[0].Distance != 0.1 {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if !strings.Contains(items[0].Snippet, "dystopia") {
		t.Fatalf("expected snippet hit, got %q", items[0].Snippet)
	}
}
