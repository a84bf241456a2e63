package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DanaMt13/smart-librarian/internal/core/domain"
	"github.com/DanaMt13/smart-librarian/internal/core/ports"
)

const (
	summaryToolName        = "get_summary_by_title"
	detailedSummaryHeading = "Detailed Summary"
	evidenceHeading        = "Evidence"
	completionTemperature  = 0.4
)

// answerState drives the two-phase grounded answer protocol. Every state has
// a defined successor, including the one where the completion service ignored
// the tool-forcing instruction.
type answerState string

const (
	stateStart         answerState = "start"
	stateDrafting      answerState = "drafting"
	stateToolRequested answerState = "tool_requested"
	stateToolExecuted  answerState = "tool_executed"
	stateComposed      answerState = "composed"
	stateDone          answerState = "done"
)

type AnswerGenerator struct {
	completer  ports.ChatCompleter
	catalog    ports.SummaryCatalog
	onFallback func()
}

func NewAnswerGenerator(completer ports.ChatCompleter, catalog ports.SummaryCatalog) *AnswerGenerator {
	return &AnswerGenerator{
		completer: completer,
		catalog:   catalog,
	}
}

// SetFallbackHook registers a callback fired whenever the answer has to be
// assembled deterministically instead of accepted from the completion
// service. Used for metrics; nil is fine.
func (g *AnswerGenerator) SetFallbackHook(fn func()) {
	g.onFallback = fn
}

func (g *AnswerGenerator) recordFallback() {
	if g.onFallback != nil {
		g.onFallback()
	}
}

type answerRun struct {
	messages []domain.ChatMessage
	toolCall domain.ToolCall
	blob     string
	answer   string
}

// Compose produces the final grounded answer for the already-chosen title.
// The completion service is treated as untrusted with respect to the title:
// any title it requests through the tool call is discarded in favor of
// chosenTitle before the lookup executes.
func (g *AnswerGenerator) Compose(ctx context.Context, query, chosenTitle, snippet string) (string, error) {
	run := &answerRun{}
	state := stateStart

	for state != stateDone {
		switch state {
		case stateStart:
			run.messages = draftMessages(query, chosenTitle, snippet)
			state = stateDrafting

		case stateDrafting:
			resp, err := g.completer.Complete(ctx, domain.ChatRequest{
				Messages:    run.messages,
				Tools:       []domain.ToolSpec{summaryToolSpec()},
				ForceTool:   summaryToolName,
				Temperature: completionTemperature,
			})
			if err != nil {
				return "", fmt.Errorf("draft completion: %w", err)
			}
			run.messages = append(run.messages, resp.Message)

			call, ok := findToolCall(resp.Message, summaryToolName)
			if !ok {
				// Fallback transition: the generator never requested the
				// lookup, so it runs locally and the answer is synthesized
				// without a second completion call.
				lookup, err := g.catalog.LookupSummary(ctx, chosenTitle)
				if err != nil {
					return "", fmt.Errorf("summary lookup: %w", err)
				}
				run.answer = synthesizeAnswer(chosenTitle, "", lookupBlob(lookup))
				g.recordFallback()
				state = stateDone
				break
			}
			run.toolCall = call
			state = stateToolRequested

		case stateToolRequested:
			if requested := toolCallTitle(run.toolCall); requested != "" &&
				domain.NormalizeText(requested) != domain.NormalizeText(chosenTitle) {
				slog.Warn("tool_title_overridden", "requested", requested, "chosen", chosenTitle)
			}
			lookup, err := g.catalog.LookupSummary(ctx, chosenTitle)
			if err != nil {
				return "", fmt.Errorf("summary lookup: %w", err)
			}
			run.blob = lookupBlob(lookup)
			run.messages = append(run.messages, domain.ChatMessage{
				Role:       domain.RoleTool,
				ToolCallID: run.toolCall.ID,
				Name:       summaryToolName,
				Content:    run.blob,
			})
			state = stateToolExecuted

		case stateToolExecuted:
			resp, err := g.completer.Complete(ctx, domain.ChatRequest{
				Messages:    run.messages,
				Temperature: completionTemperature,
			})
			if err != nil {
				return "", fmt.Errorf("compose completion: %w", err)
			}
			run.answer = strings.TrimSpace(resp.Message.Content)
			state = stateComposed

		case stateComposed:
			if !isWellFormedAnswer(run.answer, run.blob) {
				run.answer = synthesizeAnswer(chosenTitle, run.answer, run.blob)
				g.recordFallback()
			}
			state = stateDone
		}
	}

	return run.answer, nil
}

func draftMessages(query, chosenTitle, snippet string) []domain.ChatMessage {
	system := "You are Smart Librarian, a book recommendation assistant. " +
		"The final title has already been chosen and is immutable: recommend exactly that title and never introduce another one. " +
		"Call the " + summaryToolName + " tool with exactly that title. " +
		"Then compose a concise recommendation (4-6 sentences), followed by a \"" + detailedSummaryHeading + "\" section " +
		"reproducing the tool text verbatim, and, when an evidence excerpt is supplied, an \"" + evidenceHeading + "\" section citing it."

	messages := []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: system},
		{Role: domain.RoleSystem, Content: "CHOSEN_TITLE=" + chosenTitle},
	}
	if strings.TrimSpace(snippet) != "" {
		messages = append(messages, domain.ChatMessage{
			Role:    domain.RoleSystem,
			Content: "EVIDENCE_SNIPPET=" + snippet,
		})
	}
	return append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: strings.TrimSpace(query)})
}

func summaryToolSpec() domain.ToolSpec {
	return domain.ToolSpec{
		Name:        summaryToolName,
		Description: "Returns the full detailed summary for an exact book title (case-insensitive).",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "The exact book title to fetch the detailed summary for.",
				},
			},
			"required":             []string{"title"},
			"additionalProperties": false,
		},
	}
}

func findToolCall(message domain.ChatMessage, name string) (domain.ToolCall, bool) {
	for _, call := range message.ToolCalls {
		if call.Name == name {
			return call, true
		}
	}
	return domain.ToolCall{}, false
}

func toolCallTitle(call domain.ToolCall) string {
	var args struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return ""
	}
	return strings.TrimSpace(args.Title)
}

func lookupBlob(lookup domain.SummaryLookup) string {
	if lookup.Found {
		return lookup.Summary
	}
	if len(lookup.Suggestions) > 0 {
		suggestions := lookup.Suggestions
		if len(suggestions) > maxSuggestions {
			suggestions = suggestions[:maxSuggestions]
		}
		return "The exact title was not found. Did you mean: " + strings.Join(suggestions, ", ") + "?"
	}
	return "The title was not found in the local summary catalog."
}

// isWellFormedAnswer requires the section marker and the lookup text
// reproduced verbatim; anything else goes through deterministic
// reconstruction instead of a retry.
func isWellFormedAnswer(answer, blob string) bool {
	return answer != "" &&
		strings.Contains(answer, detailedSummaryHeading) &&
		strings.Contains(answer, blob)
}

func synthesizeAnswer(title, composed, blob string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I recommend: **%s**.\n\n", title)
	if s := strings.TrimSpace(composed); s != "" {
		b.WriteString(s)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "%s:\n%s", detailedSummaryHeading, blob)
	return b.String()
}
