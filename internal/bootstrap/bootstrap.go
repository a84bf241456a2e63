package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/DanaMt13/smart-librarian/internal/config"
	"github.com/DanaMt13/smart-librarian/internal/core/ports"
	"github.com/DanaMt13/smart-librarian/internal/core/usecase"
	"github.com/DanaMt13/smart-librarian/internal/infrastructure/catalog/yamlcatalog"
	"github.com/DanaMt13/smart-librarian/internal/infrastructure/llm/openai"
	"github.com/DanaMt13/smart-librarian/internal/infrastructure/queue/nats"
	"github.com/DanaMt13/smart-librarian/internal/infrastructure/repository/postgres"
	"github.com/DanaMt13/smart-librarian/internal/infrastructure/resilience"
	"github.com/DanaMt13/smart-librarian/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Catalog   ports.SummaryCatalog
	Recommend ports.BookRecommender
	Reindex   ports.CatalogIndexer

	generator *usecase.AnswerGenerator
	closeFn   func()
}

// SetFallbackHook forwards to the answer generator so binaries can count
// deterministic fallback answers without reaching into the pipeline.
func (a *App) SetFallbackHook(fn func()) {
	a.generator.SetFallbackHook(fn)
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	catalog, closeCatalog, err := buildCatalog(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		closeCatalog()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	openaiClient := openai.NewWithOptions(
		cfg.OpenAIBaseURL,
		cfg.OpenAIAPIKey,
		cfg.OpenAIChatModel,
		cfg.OpenAIEmbedModel,
		cfg.OpenAIModerationModel,
		openai.Options{ResilienceExecutor: executor},
	)
	embedder := openai.NewEmbedder(openaiClient)
	completer := openai.NewCompleter(openaiClient)
	moderator := openai.NewModerator(openaiClient)

	vectorIndex := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	gate := usecase.NewSafetyGate(moderator, cfg.ModerationEnabled, nil)
	retriever := usecase.NewRetriever(embedder, vectorIndex, cfg.RetrievalProbeK, cfg.RetrievalMaxTopK)
	generator := usecase.NewAnswerGenerator(completer, catalog)

	return &App{
		Config:    cfg,
		Queue:     queue,
		Catalog:   catalog,
		Recommend: usecase.NewRecommendUseCase(gate, retriever, generator),
		Reindex:   usecase.NewReindexUseCase(catalog, embedder, vectorIndex),

		generator: generator,
		closeFn: func() {
			queue.Close()
			closeCatalog()
		},
	}, nil
}

// buildCatalog selects the summary catalog backend. The postgres backend is
// seeded from the YAML file on startup so both backends serve the same data.
func buildCatalog(ctx context.Context, cfg config.Config) (ports.SummaryCatalog, func(), error) {
	if strings.ToLower(cfg.CatalogBackend) == "yaml" {
		return yamlcatalog.New(cfg.CatalogPath), func() {}, nil
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewSummaryRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}

	seed := yamlcatalog.New(cfg.CatalogPath)
	books, err := seed.ListBooks(ctx)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("load seed catalog: %w", err)
	}
	if err := repo.UpsertBooks(ctx, books); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("seed catalog: %w", err)
	}

	return repo, func() { _ = db.Close() }, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
