package ports

import (
	"context"

	"github.com/DanaMt13/smart-librarian/internal/core/domain"
)

// BookRecommender is the inbound contract for the full recommendation
// pipeline.
type BookRecommender interface {
	Recommend(ctx context.Context, query string, topK int) (*domain.Recommendation, error)
}

// CatalogIndexer is the inbound contract for (re)building the vector index
// from the catalog.
type CatalogIndexer interface {
	Reindex(ctx context.Context) (int, error)
}
