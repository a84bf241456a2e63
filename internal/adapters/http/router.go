package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/DanaMt13/smart-librarian/internal/core/ports"
	"github.com/DanaMt13/smart-librarian/internal/core/usecase"
	"github.com/DanaMt13/smart-librarian/internal/observability/metrics"
)

const (
	serviceName = "api"

	// defaultRecommendTopK applies when the request omits top_k.
	defaultRecommendTopK = 5
)

type Router struct {
	recommender ports.BookRecommender
	catalog     ports.SummaryCatalog
	queue       ports.MessageQueue
	metrics     *metrics.HTTPServerMetrics

	rateLimitRPS   float64
	rateLimitBurst int
}

type RouterOptions struct {
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(
	recommender ports.BookRecommender,
	catalog ports.SummaryCatalog,
	queue ports.MessageQueue,
	m *metrics.HTTPServerMetrics,
	options RouterOptions,
) *Router {
	return &Router{
		recommender:    recommender,
		catalog:        catalog,
		queue:          queue,
		metrics:        m,
		rateLimitRPS:   options.RateLimitRPS,
		rateLimitBurst: options.RateLimitBurst,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/recommend", rt.recommend)
	mux.HandleFunc("/v1/titles", rt.listTitles)
	mux.HandleFunc("/v1/catalog/reindex", rt.triggerReindex)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.rateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) recommend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Query string `json:"query"`
		TopK  int    `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.TopK <= 0 {
		req.TopK = defaultRecommendTopK
	}

	start := time.Now()
	rec, err := rt.recommender.Recommend(r.Context(), req.Query, req.TopK)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if rt.metrics != nil {
		if rec.Title == nil && rec.AnswerText == usecase.BlockedAnswer {
			rt.metrics.RecordSafetyBlock(serviceName)
		}
		rt.metrics.RecordRecommendation(serviceName, string(rec.Confidence), len(rec.Ranked), time.Since(start))
	}

	writeJSON(w, http.StatusOK, rec)
}

func (rt *Router) listTitles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	books, err := rt.catalog.ListBooks(r.Context())
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	titles := make([]string, 0, len(books))
	for _, book := range books {
		titles = append(titles, book.Title)
	}
	writeJSON(w, http.StatusOK, map[string]any{"titles": titles})
}

func (rt *Router) triggerReindex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	// Body is optional.
	_ = json.NewDecoder(r.Body).Decode(&req)
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "api_request"
	}

	if err := rt.queue.PublishCatalogReindex(r.Context(), reason); err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "reason": reason})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
