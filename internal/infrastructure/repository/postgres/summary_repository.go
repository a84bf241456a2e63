package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/DanaMt13/smart-librarian/internal/core/domain"
)

const maxSuggestions = 5

// SummaryRepository persists the book summary catalog in Postgres and serves
// title lookups with containment suggestions on a miss.
type SummaryRepository struct {
	db *sql.DB
}

func NewSummaryRepository(db *sql.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *SummaryRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS book_summaries (
	norm_title TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	summary TEXT NOT NULL,
	full_summary TEXT NOT NULL DEFAULT '',
	themes JSONB NOT NULL DEFAULT '[]'::jsonb,
	updated_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// UpsertBooks writes the full seed catalog in one transaction, keyed by
// normalized title so re-seeding is idempotent.
func (r *SummaryRepository) UpsertBooks(ctx context.Context, books []domain.BookEntry) error {
	if len(books) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	for _, book := range books {
		key := domain.NormalizeText(book.Title)
		if key == "" {
			continue
		}
		themesJSON, err := json.Marshal(book.Themes)
		if err != nil {
			return fmt.Errorf("marshal themes: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO book_summaries (norm_title, title, summary, full_summary, themes, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (norm_title) DO UPDATE SET
	title = EXCLUDED.title,
	summary = EXCLUDED.summary,
	full_summary = EXCLUDED.full_summary,
	themes = EXCLUDED.themes,
	updated_at = EXCLUDED.updated_at
`, key, book.Title, book.Summary, book.FullSummary, themesJSON, now)
		if err != nil {
			return fmt.Errorf("upsert book %q: %w", book.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert tx: %w", err)
	}
	return nil
}

func (r *SummaryRepository) ListBooks(ctx context.Context) ([]domain.BookEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT title, summary, full_summary, themes
FROM book_summaries
ORDER BY title
`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []domain.BookEntry
	for rows.Next() {
		var book domain.BookEntry
		var themesRaw []byte
		if err := rows.Scan(&book.Title, &book.Summary, &book.FullSummary, &themesRaw); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		if len(themesRaw) > 0 {
			if err := json.Unmarshal(themesRaw, &book.Themes); err != nil {
				return nil, fmt.Errorf("unmarshal themes: %w", err)
			}
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return books, nil
}

func (r *SummaryRepository) LookupSummary(ctx context.Context, title string) (domain.SummaryLookup, error) {
	key := domain.NormalizeText(title)
	if key == "" {
		return domain.SummaryLookup{}, domain.WrapError(domain.ErrInvalidInput, "lookup summary", fmt.Errorf("empty title"))
	}

	row := r.db.QueryRowContext(ctx, `
SELECT title, summary, full_summary
FROM book_summaries
WHERE norm_title = $1
`, key)

	var entry domain.BookEntry
	err := row.Scan(&entry.Title, &entry.Summary, &entry.FullSummary)
	switch {
	case err == nil:
		return domain.SummaryLookup{
			Found:   true,
			Title:   entry.Title,
			Summary: entry.DetailedSummary(),
		}, nil
	case errors.Is(err, sql.ErrNoRows):
		suggestions, err := r.suggestTitles(ctx, key)
		if err != nil {
			return domain.SummaryLookup{}, err
		}
		return domain.SummaryLookup{Suggestions: suggestions}, nil
	default:
		return domain.SummaryLookup{}, fmt.Errorf("scan book summary: %w", err)
	}
}

func (r *SummaryRepository) suggestTitles(ctx context.Context, key string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT title
FROM book_summaries
WHERE norm_title LIKE '%' || $1 || '%' OR $1 LIKE '%' || norm_title || '%'
ORDER BY title
LIMIT $2
`, key, maxSuggestions)
	if err != nil {
		return nil, fmt.Errorf("suggest titles: %w", err)
	}
	defer rows.Close()

	var suggestions []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		suggestions = append(suggestions, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suggestions: %w", err)
	}
	return suggestions, nil
}
