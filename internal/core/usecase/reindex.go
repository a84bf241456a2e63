package usecase

import (
	"context"
	"fmt"

	"github.com/DanaMt13/smart-librarian/internal/core/domain"
	"github.com/DanaMt13/smart-librarian/internal/core/ports"
)

// ReindexUseCase rebuilds the vector index from the summary catalog: drop,
// re-embed, upsert. Point identity is deterministic per title, so repeated
// runs converge to the same index.
type ReindexUseCase struct {
	catalog  ports.SummaryCatalog
	embedder ports.Embedder
	index    ports.VectorIndex
}

var _ ports.CatalogIndexer = (*ReindexUseCase)(nil)

func NewReindexUseCase(catalog ports.SummaryCatalog, embedder ports.Embedder, index ports.VectorIndex) *ReindexUseCase {
	return &ReindexUseCase{
		catalog:  catalog,
		embedder: embedder,
		index:    index,
	}
}

func (uc *ReindexUseCase) Reindex(ctx context.Context) (int, error) {
	books, err := uc.catalog.ListBooks(ctx)
	if err != nil {
		return 0, fmt.Errorf("list catalog books: %w", err)
	}

	indexable := make([]domain.BookEntry, 0, len(books))
	texts := make([]string, 0, len(books))
	for _, book := range books {
		text := book.EmbeddingText()
		if text == "" {
			continue
		}
		indexable = append(indexable, book)
		texts = append(texts, text)
	}
	if len(indexable) == 0 {
		return 0, nil
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed catalog: %w", err)
	}
	if len(vectors) != len(indexable) {
		return 0, fmt.Errorf("embedding count mismatch: got %d vectors for %d books", len(vectors), len(indexable))
	}

	if err := uc.index.Reset(ctx); err != nil {
		return 0, fmt.Errorf("reset vector index: %w", err)
	}
	if err := uc.index.IndexBooks(ctx, indexable, vectors); err != nil {
		return 0, fmt.Errorf("index catalog: %w", err)
	}
	return len(indexable), nil
}
