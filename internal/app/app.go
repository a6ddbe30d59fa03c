package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/services/documents"
	"github.com/ternarybob/scribe/internal/services/embeddings"
	"github.com/ternarybob/scribe/internal/services/images"
	"github.com/ternarybob/scribe/internal/services/kv"
	"github.com/ternarybob/scribe/internal/services/llm"
	"github.com/ternarybob/scribe/internal/services/personas"
	"github.com/ternarybob/scribe/internal/services/pipeline"
	"github.com/ternarybob/scribe/internal/services/publisher"
	"github.com/ternarybob/scribe/internal/services/research"
	"github.com/ternarybob/scribe/internal/services/scheduler"
	"github.com/ternarybob/scribe/internal/services/search"
	"github.com/ternarybob/scribe/internal/services/sources"
	"github.com/ternarybob/scribe/internal/services/vectorstore"
	"github.com/ternarybob/scribe/internal/services/writer"
	"github.com/ternarybob/scribe/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Settings and credentials
	KVService *kv.Service

	// Retrieval
	Embedder    *embeddings.Service
	VectorStore *vectorstore.Store
	Documents   *documents.Service
	Loader      *documents.Loader

	// Generation
	LLMService *llm.Service
	Search     interfaces.SearchProvider // nil when no engine is configured
	Researcher *research.Researcher
	Writer     *writer.Writer
	Personas   *personas.Service
	Images     interfaces.ImageProvider // nil when thumbnails are disabled
	Publisher  interfaces.Publisher

	// Content sources
	Sources       *sources.Service
	SourceFactory *sources.Factory

	// Orchestration
	Pipeline         *pipeline.Pipeline
	SchedulerService *scheduler.Service
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(context.Background()); err != nil {
		_ = app.StorageManager.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info().
		Str("mode", cfg.Pipeline.Mode).
		Str("publisher", cfg.Publisher.Type).
		Str("embedder", app.Embedder.Name()).
		Int("chunks", app.VectorStore.Count()).
		Msg("Application initialization complete")

	return app, nil
}

func (a *App) initDatabase() error {
	manager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger, a.Config.Pipeline.TopicHistory)
	if err != nil {
		return err
	}
	a.StorageManager = manager
	return nil
}

func (a *App) initServices(ctx context.Context) error {
	var err error

	a.KVService = kv.NewService(a.StorageManager.KeyValueStorage(), a.Logger)
	kvStorage := a.StorageManager.KeyValueStorage()

	// 1. Embeddings and the vector store
	a.Embedder, err = embeddings.NewService(a.Config, kvStorage, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create embedding service: %w", err)
	}
	a.VectorStore, err = vectorstore.New(ctx, a.StorageManager.ChunkStorage(), a.Embedder, &a.Config.Retrieval, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to load vector store: %w", err)
	}

	// 2. Knowledge base documents
	a.Documents = documents.NewService(a.StorageManager.KnowledgeBaseStorage(), a.Config.KB.Dir, a.Logger)
	a.Loader = documents.NewLoader(a.Config, a.Logger)

	// 3. Completion providers
	a.LLMService, err = llm.NewService(a.Config, kvStorage, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create LLM service: %w", err)
	}

	// 4. Web search is optional; web_search sources and deep research need it
	a.Search, err = search.NewSearchProvider(ctx, a.Config, kvStorage, a.Logger)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Web search unavailable, web_search sources and deep research are disabled")
		a.Search = nil
	}
	if a.Search != nil {
		a.Researcher = research.NewResearcher(a.LLMService, a.Search, a.Logger)
	}

	// 5. Sources
	a.Sources = sources.NewService(a.StorageManager.SourceStorage(), a.Logger)
	var factoryOpts []sources.FactoryOption
	if a.Search != nil {
		factoryOpts = append(factoryOpts, sources.WithSearchProvider(a.Search))
	}
	a.SourceFactory = sources.NewFactory(a.Config, a.Logger, factoryOpts...)

	// 6. Personas
	a.Personas = personas.NewService(a.StorageManager.PersonaStorage(), a.Logger)
	if err := a.Personas.EnsureDefaults(ctx); err != nil {
		return fmt.Errorf("failed to seed personas: %w", err)
	}

	// 7. Writer, thumbnails and publishing
	a.Writer = writer.NewWriter(a.LLMService, a.Config, a.Logger)

	a.Images, err = images.NewImageProvider(ctx, a.Config, kvStorage, a.Logger)
	if err != nil {
		a.Logger.Warn().Err(err).Str("mode", a.Config.Images.Mode).Msg("Thumbnails disabled")
		a.Images = nil
	}

	a.Publisher, err = publisher.NewPublisher(ctx, a.Config, a.StorageManager.PostStorage(), kvStorage, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create publisher: %w", err)
	}

	// 8. Pipeline and its trigger
	deps := pipeline.Deps{
		Config:        a.Config,
		KnowledgeBase: a.StorageManager.KnowledgeBaseStorage(),
		Loader:        a.Loader,
		Store:         a.VectorStore,
		Sources:       a.StorageManager.SourceStorage(),
		Factory:       a.SourceFactory,
		LLM:           a.LLMService,
		Writer:        a.Writer,
		Personas:      a.Personas,
		Topics:        a.StorageManager.TopicStorage(),
		Images:        a.Images,
		Publisher:     a.Publisher,
		Logger:        a.Logger,
	}
	// Assigned separately so a nil researcher stays a nil interface
	if a.Researcher != nil {
		deps.Researcher = a.Researcher
	}
	a.Pipeline = pipeline.New(deps)
	a.SchedulerService = scheduler.NewService(a.Pipeline, a.Logger)

	return nil
}

// Close stops the scheduler and closes storage
func (a *App) Close() error {
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
