// Package yamlcatalog serves the book summary catalog from a YAML seed file.
package yamlcatalog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/DanaMt13/smart-librarian/internal/core/domain"
)

const maxSuggestions = 5

type Catalog struct {
	path string
	load func() (catalogData, error)
}

type catalogData struct {
	books   []domain.BookEntry
	byTitle map[string]domain.BookEntry
}

// New builds a catalog over the given YAML file. The file is read lazily on
// first use and the parsed content is immutable afterwards.
func New(path string) *Catalog {
	c := &Catalog{path: path}
	c.load = sync.OnceValues(func() (catalogData, error) {
		return loadFile(path)
	})
	return c
}

func (c *Catalog) ListBooks(ctx context.Context) ([]domain.BookEntry, error) {
	data, err := c.load()
	if err != nil {
		return nil, err
	}
	out := make([]domain.BookEntry, len(data.books))
	copy(out, data.books)
	return out, nil
}

func (c *Catalog) LookupSummary(ctx context.Context, title string) (domain.SummaryLookup, error) {
	data, err := c.load()
	if err != nil {
		return domain.SummaryLookup{}, err
	}

	key := domain.NormalizeText(title)
	if key == "" {
		return domain.SummaryLookup{}, domain.WrapError(domain.ErrInvalidInput, "lookup summary", fmt.Errorf("empty title"))
	}

	if book, ok := data.byTitle[key]; ok {
		return domain.SummaryLookup{
			Found:   true,
			Title:   book.Title,
			Summary: book.DetailedSummary(),
		}, nil
	}

	return domain.SummaryLookup{Suggestions: suggestTitles(data.books, key)}, nil
}

// suggestTitles returns catalog titles whose normalized form contains the
// requested key or vice versa, in catalog order.
func suggestTitles(books []domain.BookEntry, key string) []string {
	var suggestions []string
	for _, book := range books {
		normalized := domain.NormalizeText(book.Title)
		if strings.Contains(normalized, key) || strings.Contains(key, normalized) {
			suggestions = append(suggestions, book.Title)
			if len(suggestions) == maxSuggestions {
				break
			}
		}
	}
	return suggestions
}

func loadFile(path string) (catalogData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return catalogData{}, fmt.Errorf("read catalog file: %w", err)
	}

	var doc struct {
		Books []domain.BookEntry `yaml:"books"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return catalogData{}, fmt.Errorf("parse catalog file %s: %w", path, err)
	}

	byTitle := make(map[string]domain.BookEntry, len(doc.Books))
	for _, book := range doc.Books {
		key := domain.NormalizeText(book.Title)
		if key == "" {
			continue
		}
		if _, exists := byTitle[key]; exists {
			return catalogData{}, fmt.Errorf("duplicate catalog title %q", book.Title)
		}
		byTitle[key] = book
	}

	return catalogData{books: doc.Books, byTitle: byTitle}, nil
}
