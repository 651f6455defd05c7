package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/inkpress/storybook-api/internal/config"
	"github.com/inkpress/storybook-api/internal/events"
	"github.com/inkpress/storybook-api/internal/generation"
	"github.com/inkpress/storybook-api/internal/pipeline"
	"github.com/inkpress/storybook-api/internal/platform/gemini"
	"github.com/inkpress/storybook-api/internal/platform/openaicap"
	"github.com/inkpress/storybook-api/internal/platform/postgres"
	"github.com/inkpress/storybook-api/internal/platform/storage"
	"github.com/inkpress/storybook-api/internal/store"
	"github.com/inkpress/storybook-api/internal/upload"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	projectStore      store.ProjectStore
	photoStore        store.PhotoStore
	pageStore         store.PageStore
	illustrationStore store.IllustrationStore

	// Platform
	objectStore    storage.ObjectStore
	storyGenerator generation.StoryGenerator
	illustrator    generation.Illustrator
	captioner      generation.Captioner
	changeListener store.ChangeListener

	// Domain services
	eventEmitter *events.InMemoryEventEmitter
	uploadQueue  *upload.Queue
	manager      *pipeline.Manager

	// cancelConsumer stops the change-notification consumer on shutdown.
	cancelConsumer context.CancelFunc
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before application
// initialization.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Stores
	app.projectStore = postgres.NewPostgresProjectStore(db, logger)
	app.photoStore = postgres.NewPostgresPhotoStore(db, logger)
	app.pageStore = postgres.NewPostgresPageStore(db, logger)
	app.illustrationStore = postgres.NewPostgresIllustrationStore(db, logger)

	// Object storage
	var err error
	app.objectStore, err = storage.NewMinioStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}
	logger.Info("Object storage initialized", "bucket", cfg.Storage.Bucket)

	// Generation backends
	app.storyGenerator, err = gemini.NewStoryGenerator(
		ctx,
		logger.With("component", "story_generator"),
		cfg.LLM,
		app.projectStore,
		app.photoStore,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize story generator: %w", err)
	}

	app.illustrator, err = gemini.NewIllustrator(
		ctx,
		logger.With("component", "illustrator"),
		cfg.LLM,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize illustrator: %w", err)
	}
	logger.Info("Generation backends initialized",
		"story_model", cfg.LLM.StoryModel,
		"illustration_model", cfg.LLM.IllustrationModel)

	// Captioning is best-effort and optional.
	if cfg.Caption.APIKey != "" {
		captioner, err := openaicap.NewCaptioner(logger, cfg.Caption)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize captioner: %w", err)
		}
		app.captioner = captioner
		logger.Info("Photo captioner initialized", "model", cfg.Caption.Model)
	}

	// Event system
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)

	// Upload queue
	app.uploadQueue, err = upload.NewQueue(
		logger,
		app.photoStore,
		app.objectStore,
		app.captioner,
		app.eventEmitter,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize upload queue: %w", err)
	}

	// Generation pipeline
	generationPipeline, err := pipeline.NewPipeline(
		logger,
		app.projectStore,
		app.pageStore,
		app.illustrationStore,
		app.objectStore,
		app.storyGenerator,
		app.illustrator,
		app.eventEmitter,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generation pipeline: %w", err)
	}

	app.manager, err = pipeline.NewManager(logger, generationPipeline, app.projectStore)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize run manager: %w", err)
	}

	// Change notifications keep run counters honest when rows are written
	// by anything other than the in-process pipeline.
	app.changeListener = postgres.NewChangeListener(
		cfg.Database.URL,
		postgres.DefaultChangeChannel,
		logger,
	)

	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	app.cancelConsumer = cancelConsumer
	if err := app.changeListener.Start(consumerCtx); err != nil {
		cancelConsumer()
		return nil, fmt.Errorf("failed to start change listener: %w", err)
	}
	go app.manager.ConsumeChanges(consumerCtx, app.changeListener)

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.cancelConsumer != nil {
		app.cancelConsumer()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
