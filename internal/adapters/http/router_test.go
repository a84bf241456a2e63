package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DanaMt13/smart-librarian/internal/core/domain"
	"github.com/DanaMt13/smart-librarian/internal/core/usecase"
	"github.com/DanaMt13/smart-librarian/internal/observability/metrics"
)

type recommenderFake struct {
	lastQuery string
	lastTopK  int
	rec       *domain.Recommendation
	err       error
}

func (f *recommenderFake) Recommend(_ context.Context, query string, topK int) (*domain.Recommendation, error) {
	f.lastQuery = query
	f.lastTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.rec, nil
}

type catalogFake struct {
	books []domain.BookEntry
	err   error
}

func (f *catalogFake) LookupSummary(_ context.Context, title string) (domain.SummaryLookup, error) {
	return domain.SummaryLookup{}, fmt.Errorf("not used")
}

func (f *catalogFake) ListBooks(_ context.Context) ([]domain.BookEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.books, nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishCatalogReindex(_ context.Context, reason string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, reason)
	return nil
}

func (f *queueFake) SubscribeCatalogReindex(context.Context, func(context.Context, string) error) error {
	return fmt.Errorf("not used")
}

func newTestRouter(rec *recommenderFake, catalog *catalogFake, queue *queueFake, options RouterOptions) http.Handler {
	return NewRouter(rec, catalog, queue, metrics.NewHTTPServerMetrics("api-test"), options).Handler()
}

func TestRecommendReturnsPipelineResult(t *testing.T) {
	title := "The Hobbit"
	rec := &recommenderFake{rec: &domain.Recommendation{
		Title:      &title,
		AnswerText: "I recommend: **The Hobbit**.",
		Ranked:     []domain.RankedTitle{{Title: "The Hobbit", Distance: 0.42}},
		Evidence:   []domain.EvidenceItem{{Title: "The Hobbit", Distance: 0.42, Snippet: "journey"}},
		Confidence: domain.ConfidenceHigh,
	}}
	handler := newTestRouter(rec, &catalogFake{}, &queueFake{}, RouterOptions{})

	req := httptest.NewRequest(http.MethodPost, "/v1/recommend", strings.NewReader(`{"query":"friendship and adventure","top_k":3}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", res.Code, res.Body.String())
	}
	if rec.lastQuery != "friendship and adventure" || rec.lastTopK != 3 {
		t.Fatalf("forwarded query = %q topK = %d", rec.lastQuery, rec.lastTopK)
	}

	var payload struct {
		Title      *string `json:"title"`
		AnswerText string  `json:"answer_text"`
		Confidence string  `json:"confidence"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Title == nil || *payload.Title != "The Hobbit" {
		t.Fatalf("title = %v", payload.Title)
	}
	if payload.Confidence != "High" {
		t.Fatalf("confidence = %q", payload.Confidence)
	}
}

func TestRecommendDefaultsTopKWhenOmitted(t *testing.T) {
	rec := &recommenderFake{rec: &domain.Recommendation{
		AnswerText: "ok",
		Ranked:     []domain.RankedTitle{},
		Evidence:   []domain.EvidenceItem{},
		Confidence: domain.ConfidenceLow,
	}}
	handler := newTestRouter(rec, &catalogFake{}, &queueFake{}, RouterOptions{})

	req := httptest.NewRequest(http.MethodPost, "/v1/recommend", strings.NewReader(`{"query":"dystopia"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", res.Code, res.Body.String())
	}
	if rec.lastTopK != defaultRecommendTopK {
		t.Fatalf("forwarded topK = %d, want %d", rec.lastTopK, defaultRecommendTopK)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/recommend", strings.NewReader(`{"query":"dystopia","top_k":-2}`))
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if rec.lastTopK != defaultRecommendTopK {
		t.Fatalf("negative topK forwarded as %d, want %d", rec.lastTopK, defaultRecommendTopK)
	}
}

func TestRecommendRejectsInvalidJSON(t *testing.T) {
	handler := newTestRouter(&recommenderFake{}, &catalogFake{}, &queueFake{}, RouterOptions{})

	req := httptest.NewRequest(http.MethodPost, "/v1/recommend", strings.NewReader("{"))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", res.Code)
	}
}

func TestRecommendMapsTemporaryErrorTo503(t *testing.T) {
	rec := &recommenderFake{err: domain.WrapError(domain.ErrTemporary, "embed", errors.New("upstream down"))}
	handler := newTestRouter(rec, &catalogFake{}, &queueFake{}, RouterOptions{})

	req := httptest.NewRequest(http.MethodPost, "/v1/recommend", strings.NewReader(`{"query":"war stories"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, body = %s", res.Code, res.Body.String())
	}
}

func TestBlockedQueryStillReturns200(t *testing.T) {
	rec := &recommenderFake{rec: &domain.Recommendation{
		AnswerText: usecase.BlockedAnswer,
		Ranked:     []domain.RankedTitle{},
		Evidence:   []domain.EvidenceItem{},
		Confidence: domain.ConfidenceLow,
	}}
	handler := newTestRouter(rec, &catalogFake{}, &queueFake{}, RouterOptions{})

	req := httptest.NewRequest(http.MethodPost, "/v1/recommend", strings.NewReader(`{"query":"offensive"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	var payload struct {
		Title      *string `json:"title"`
		AnswerText string  `json:"answer_text"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Title != nil {
		t.Fatalf("expected nil title, got %v", *payload.Title)
	}
	if payload.AnswerText != usecase.BlockedAnswer {
		t.Fatalf("answer = %q", payload.AnswerText)
	}
}

func TestListTitlesReturnsCatalogTitles(t *testing.T) {
	catalog := &catalogFake{books: []domain.BookEntry{
		{Title: "1984"},
		{Title: "The Hobbit"},
	}}
	handler := newTestRouter(&recommenderFake{}, catalog, &queueFake{}, RouterOptions{})

	req := httptest.NewRequest(http.MethodGet, "/v1/titles", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	var payload struct {
		Titles []string `json:"titles"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Titles) != 2 || payload.Titles[1] != "The Hobbit" {
		t.Fatalf("titles = %v", payload.Titles)
	}
}

func TestTriggerReindexPublishesReason(t *testing.T) {
	queue := &queueFake{}
	handler := newTestRouter(&recommenderFake{}, &catalogFake{}, queue, RouterOptions{})

	req := httptest.NewRequest(http.MethodPost, "/v1/catalog/reindex", strings.NewReader(`{"reason":"seed update"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", res.Code, res.Body.String())
	}
	if len(queue.published) != 1 || queue.published[0] != "seed update" {
		t.Fatalf("published = %v", queue.published)
	}
}

func TestTriggerReindexDefaultsReason(t *testing.T) {
	queue := &queueFake{}
	handler := newTestRouter(&recommenderFake{}, &catalogFake{}, queue, RouterOptions{})

	req := httptest.NewRequest(http.MethodPost, "/v1/catalog/reindex", strings.NewReader(""))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("status = %d", res.Code)
	}
	if len(queue.published) != 1 || queue.published[0] != "api_request" {
		t.Fatalf("published = %v", queue.published)
	}
}

func TestRequestIDHeaderIsEchoed(t *testing.T) {
	handler := newTestRouter(&recommenderFake{}, &catalogFake{}, &queueFake{}, RouterOptions{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-123")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	if got := res.Header().Get(requestIDHeader); got != "req-123" {
		t.Fatalf("request id = %q", got)
	}
}
