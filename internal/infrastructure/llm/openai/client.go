package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/DanaMt13/smart-librarian/internal/core/domain"
	"github.com/DanaMt13/smart-librarian/internal/infrastructure/resilience"
)

// Client speaks the OpenAI-compatible HTTP API: chat completions with tool
// calling, embeddings, and moderations.
type Client struct {
	baseURL         string
	apiKey          string
	chatModel       string
	embedModel      string
	moderationModel string
	httpClient      *http.Client
	executor        *resilience.Executor
}

type Options struct {
	HTTPTimeout        time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, apiKey, chatModel, embedModel, moderationModel string) *Client {
	return NewWithOptions(baseURL, apiKey, chatModel, embedModel, moderationModel, Options{})
}

func NewWithOptions(baseURL, apiKey, chatModel, embedModel, moderationModel string, options Options) *Client {
	timeout := options.HTTPTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		apiKey:          apiKey,
		chatModel:       chatModel,
		embedModel:      embedModel,
		moderationModel: moderationModel,
		httpClient:      &http.Client{Timeout: timeout},
		executor:        options.ResilienceExecutor,
	}
}

// Completer exposes chat completions as the ChatCompleter port.
type Completer struct {
	client *Client
}

func NewCompleter(client *Client) *Completer {
	return &Completer{client: client}
}

func (c *Completer) Complete(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	payload := chatCompletionRequest{
		Model:       c.client.chatModel,
		Messages:    encodeMessages(req.Messages),
		Temperature: req.Temperature,
	}
	for _, tool := range req.Tools {
		payload.Tools = append(payload.Tools, wireTool{
			Type: "function",
			Function: wireToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	if req.ForceTool != "" {
		payload.ToolChoice = &wireToolChoice{
			Type:     "function",
			Function: wireToolChoiceFunction{Name: req.ForceTool},
		}
	}

	var response chatCompletionResponse
	if err := c.client.call(ctx, "/v1/chat/completions", payload, &response, "chat completion"); err != nil {
		return nil, err
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: empty choices")
	}
	return &domain.ChatResponse{Message: decodeMessage(response.Choices[0].Message)}, nil
}

// Embedder exposes the embeddings endpoint as the Embedder port.
type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}
	var response struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := e.client.call(ctx, "/v1/embeddings", payload, &response, "embed"); err != nil {
		return nil, err
	}

	out := make([][]float32, 0, len(response.Data))
	for _, d := range response.Data {
		out = append(out, d.Embedding)
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

// Moderator exposes the moderation endpoint as the ModerationService port.
type Moderator struct {
	client *Client
}

func NewModerator(client *Client) *Moderator {
	return &Moderator{client: client}
}

func (m *Moderator) Moderate(ctx context.Context, text string) (domain.ModerationResult, error) {
	payload := map[string]any{
		"model": m.client.moderationModel,
		"input": text,
	}
	var response struct {
		Results []struct {
			Flagged    bool            `json:"flagged"`
			Categories map[string]bool `json:"categories"`
		} `json:"results"`
	}
	if err := m.client.call(ctx, "/v1/moderations", payload, &response, "moderate"); err != nil {
		return domain.ModerationResult{}, err
	}
	if len(response.Results) == 0 {
		return domain.ModerationResult{}, fmt.Errorf("moderation: empty results")
	}
	return domain.ModerationResult{
		Flagged:    response.Results[0].Flagged,
		Categories: response.Results[0].Categories,
	}, nil
}

func (c *Client) call(ctx context.Context, path string, payload, out any, operation string) error {
	if c.executor == nil {
		return wrapTemporaryIfNeeded(operation, c.postJSON(ctx, path, payload, out, operation))
	}
	err := c.executor.Execute(ctx, operation, func(execCtx context.Context) error {
		return c.postJSON(execCtx, path, payload, out, operation)
	}, classifyOpenAIError)
	return wrapTemporaryIfNeeded(operation, err)
}
