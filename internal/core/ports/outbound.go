package ports

import (
	"context"

	"github.com/DanaMt13/smart-librarian/internal/core/domain"
)

// Embedder builds vectors for catalog entries and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the opaque nearest-neighbor service over the book catalog.
// Search results come back ordered by ascending distance (smaller = more
// similar).
type VectorIndex interface {
	Reset(ctx context.Context) error
	IndexBooks(ctx context.Context, books []domain.BookEntry, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.Candidate, error)
}

// ChatCompleter is the opaque text-completion service, including structured
// tool calling.
type ChatCompleter interface {
	Complete(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error)
}

// ModerationService classifies text safety. It may error; callers decide how
// to degrade.
type ModerationService interface {
	Moderate(ctx context.Context, text string) (domain.ModerationResult, error)
}

// SummaryCatalog reads the local book description catalog.
type SummaryCatalog interface {
	LookupSummary(ctx context.Context, title string) (domain.SummaryLookup, error)
	ListBooks(ctx context.Context) ([]domain.BookEntry, error)
}

// MessageQueue publishes/consumes catalog reindex events.
type MessageQueue interface {
	PublishCatalogReindex(ctx context.Context, reason string) error
	SubscribeCatalogReindex(ctx context.Context, handler func(context.Context, string) error) error
}
