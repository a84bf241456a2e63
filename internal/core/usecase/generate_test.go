package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DanaMt13/smart-librarian/internal/core/domain"
)

type completerFake struct {
	calls     int
	requests  []domain.ChatRequest
	responses []domain.ChatResponse
	err       error
}

func (f *completerFake) Complete(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.responses) {
		return &domain.ChatResponse{}, nil
	}
	resp := f.responses[f.calls]
	f.calls++
	return &resp, nil
}

type catalogFake struct {
	lookups []string
	entries map[string]string
}

func (f *catalogFake) LookupSummary(_ context.Context, title string) (domain.SummaryLookup, error) {
	f.lookups = append(f.lookups, title)
	summary, ok := f.entries[domain.NormalizeText(title)]
	if !ok {
		return domain.SummaryLookup{Suggestions: []string{"1984"}}, nil
	}
	return domain.SummaryLookup{Found: true, Title: title, Summary: summary}, nil
}

func (f *catalogFake) ListBooks(context.Context) ([]domain.BookEntry, error) {
	return nil, nil
}

func toolCallResponse(title string) domain.ChatResponse {
	return domain.ChatResponse{Message: domain.ChatMessage{
		Role: domain.RoleAssistant,
		ToolCalls: []domain.ToolCall{{
			ID:        "call-1",
			Name:      summaryToolName,
			Arguments: `{"title":"` + title + `"}`,
		}},
	}}
}

func textResponse(text string) domain.ChatResponse {
	return domain.ChatResponse{Message: domain.ChatMessage{Role: domain.RoleAssistant, Content: text}}
}

func TestComposeHappyPathKeepsCompliantAnswer(t *testing.T) {
	blob := "1984 by George Orwell follows Winston Smith in a totalitarian state."
	compliant := "You should read 1984.\n\n" + detailedSummaryHeading + ":\n" + blob + "\n\n" + evidenceHeading + ": surveillance themes."
	completer := &completerFake{responses: []domain.ChatResponse{
		toolCallResponse("1984"),
		textResponse(compliant),
	}}
	catalog := &catalogFake{entries: map[string]string{"1984": blob}}

	gen := NewAnswerGenerator(completer, catalog)
	answer, err := gen.Compose(context.Background(), "a dystopia please", "1984", "surveillance snippet")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if answer != compliant {
		t.Fatalf("expected compliant answer kept verbatim, got %q", answer)
	}
	if completer.calls != 2 {
		t.Fatalf("expected two completion calls, got %d", completer.calls)
	}
	if !strings.Contains(answer, blob) {
		t.Fatalf("expected detailed summary verbatim in answer")
	}
}

func TestComposeForcesToolAndFixesTitle(t *testing.T) {
	// The generator asks for Dune; the lookup must still run for 1984 and the
	// final answer must not recommend Dune.
	blob := "summary of 1984"
	completer := &completerFake{responses: []domain.ChatResponse{
		toolCallResponse("Dune"),
		textResponse(detailedSummaryHeading + ":\n" + blob),
	}}
	catalog := &catalogFake{entries: map[string]string{"1984": blob}}

	gen := NewAnswerGenerator(completer, catalog)
	answer, err := gen.Compose(context.Background(), "recommend something", "1984", "")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if len(catalog.lookups) != 1 || catalog.lookups[0] != "1984" {
		t.Fatalf("expected lookup for chosen title only, got %v", catalog.lookups)
	}
	if strings.Contains(answer, "Dune") {
		t.Fatalf("generator-requested title leaked into answer: %q", answer)
	}

	if completer.requests[0].ForceTool != summaryToolName {
		t.Fatalf("expected forced tool, got %q", completer.requests[0].ForceTool)
	}
	if len(completer.requests[1].Tools) != 0 {
		t.Fatalf("compose phase must not re-offer tools")
	}
}

func TestComposeRepairsMalformedAnswer(t *testing.T) {
	blob := "detailed text for The Hobbit"
	completer := &completerFake{responses: []domain.ChatResponse{
		toolCallResponse("The Hobbit"),
		textResponse("a free-form ramble with no sections"),
	}}
	catalog := &catalogFake{entries: map[string]string{"the hobbit": blob}}

	gen := NewAnswerGenerator(completer, catalog)
	answer, err := gen.Compose(context.Background(), "adventure", "The Hobbit", "")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if !strings.Contains(answer, detailedSummaryHeading) {
		t.Fatalf("expected repaired answer with heading, got %q", answer)
	}
	if !strings.Contains(answer, blob) {
		t.Fatalf("expected lookup text verbatim, got %q", answer)
	}
	if !strings.Contains(answer, "a free-form ramble") {
		t.Fatalf("expected raw composed text preserved, got %q", answer)
	}
	if !strings.Contains(answer, "I recommend: **The Hobbit**") {
		t.Fatalf("expected templated recommendation line, got %q", answer)
	}
}

func TestComposeFallbackWhenToolIgnored(t *testing.T) {
	blob := "summary of Dune"
	completer := &completerFake{responses: []domain.ChatResponse{
		textResponse("I refuse to call tools."),
	}}
	catalog := &catalogFake{entries: map[string]string{"dune": blob}}

	gen := NewAnswerGenerator(completer, catalog)
	answer, err := gen.Compose(context.Background(), "desert politics", "Dune", "")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if completer.calls != 1 {
		t.Fatalf("fallback must not issue a second completion, got %d calls", completer.calls)
	}
	if !strings.Contains(answer, "I recommend: **Dune**") || !strings.Contains(answer, blob) {
		t.Fatalf("unexpected fallback answer: %q", answer)
	}
}

func TestComposeUnknownTitleUsesDidYouMean(t *testing.T) {
	completer := &completerFake{responses: []domain.ChatResponse{
		toolCallResponse("Ninety Eighty Four"),
		textResponse("noncompliant"),
	}}
	catalog := &catalogFake{entries: map[string]string{}}

	gen := NewAnswerGenerator(completer, catalog)
	answer, err := gen.Compose(context.Background(), "q", "Ninety Eighty Four", "")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if !strings.Contains(answer, "Did you mean: 1984?") {
		t.Fatalf("expected did-you-mean blob, got %q", answer)
	}
}

func TestComposeDraftErrorPropagates(t *testing.T) {
	gen := NewAnswerGenerator(&completerFake{err: errors.New("service down")}, &catalogFake{})
	if _, err := gen.Compose(context.Background(), "q", "1984", ""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestComposeSnippetReachesDraftContext(t *testing.T) {
	completer := &completerFake{responses: []domain.ChatResponse{
		textResponse("no tool"),
	}}
	gen := NewAnswerGenerator(completer, &catalogFake{entries: map[string]string{"1984": "s"}})
	if _, err := gen.Compose(context.Background(), "q", "1984", "a telling excerpt"); err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	found := false
	for _, msg := range completer.requests[0].Messages {
		if strings.Contains(msg.Content, "a telling excerpt") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected evidence snippet in draft messages")
	}
}

func TestComposeFallbackHookFires(t *testing.T) {
	blob := "summary of 1984"
	catalog := &catalogFake{entries: map[string]string{"1984": blob}}

	// Malformed compose output triggers deterministic reconstruction.
	completer := &completerFake{responses: []domain.ChatResponse{
		toolCallResponse("1984"),
		textResponse("just a casual sentence"),
	}}
	gen := NewAnswerGenerator(completer, catalog)
	fallbacks := 0
	gen.SetFallbackHook(func() { fallbacks++ })

	if _, err := gen.Compose(context.Background(), "dystopia", "1984", ""); err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if fallbacks != 1 {
		t.Fatalf("expected one fallback, got %d", fallbacks)
	}

	// A compliant answer must not fire the hook.
	compliant := detailedSummaryHeading + ":\n" + blob
	completer = &completerFake{responses: []domain.ChatResponse{
		toolCallResponse("1984"),
		textResponse(compliant),
	}}
	gen = NewAnswerGenerator(completer, catalog)
	fallbacks = 0
	gen.SetFallbackHook(func() { fallbacks++ })

	if _, err := gen.Compose(context.Background(), "dystopia", "1984", ""); err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if fallbacks != 0 {
		t.Fatalf("expected no fallback for compliant answer, got %d", fallbacks)
	}
}
