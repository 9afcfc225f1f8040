// Package app initializes and holds the long-lived services of the artifact
// repository, acting as a dependency injection container. It is built once
// at startup and handed to the command layer.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/autoscraper/scrapervault/internal/api"
	"github.com/autoscraper/scrapervault/internal/clock/system"
	"github.com/autoscraper/scrapervault/internal/config"
	"github.com/autoscraper/scrapervault/internal/events"
	eventspubsub "github.com/autoscraper/scrapervault/internal/events/pubsub"
	"github.com/autoscraper/scrapervault/internal/fetch"
	"github.com/autoscraper/scrapervault/internal/history"
	"github.com/autoscraper/scrapervault/internal/logging"
	"github.com/autoscraper/scrapervault/internal/metrics"
	"github.com/autoscraper/scrapervault/internal/repository"
	"github.com/autoscraper/scrapervault/internal/sandbox"
	"github.com/autoscraper/scrapervault/internal/scraper"
	"github.com/autoscraper/scrapervault/internal/storage"
	"github.com/autoscraper/scrapervault/internal/storage/gcs"
	"github.com/autoscraper/scrapervault/internal/storage/local"
	"github.com/autoscraper/scrapervault/internal/validate"
)

// App holds the shared services: storage tier, repository views, sandbox,
// fetchers, audit store and event publisher.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	remote    *gcs.Store
	store     *storage.Tiered
	writer    *repository.Writer
	notifier  *events.NotifyingWriter
	resolver  *repository.Resolver
	runner    *sandbox.Runner
	loader    *scraper.Loader
	fetcher   fetch.Fetcher
	headless  *fetch.Headless
	histStore history.Store
	publisher events.Publisher
	validator *validate.Validator
}

// New initializes every service from cfg, failing fast when a configured
// dependency cannot be reached.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	metrics.Init()

	a := &App{cfg: cfg, logger: logger}

	localStore, err := local.New(local.Config{BaseDir: cfg.Storage.LocalDir})
	if err != nil {
		return nil, fmt.Errorf("initialize local storage: %w", err)
	}

	var remote storage.Store
	if cfg.Storage.GCSBucket != "" {
		logger.Info("using GCS durable tier", zap.String("bucket", cfg.Storage.GCSBucket))
		a.remote, err = gcs.Connect(ctx, gcs.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("initialize GCS storage: %w", err)
		}
		remote = a.remote
	} else {
		logger.Info("no GCS bucket configured, running local-only")
	}
	a.store = storage.NewTiered(remote, localStore, logger)

	clock := system.New()
	a.writer = repository.NewWriter(a.store, clock, logger)
	a.resolver = repository.NewResolver(a.store, logger)

	a.runner = sandbox.New(sandbox.Config{
		Interpreter: cfg.Sandbox.Interpreter,
		Timeout:     cfg.SandboxTimeout(),
		WorkDir:     cfg.Sandbox.WorkDir,
	}, logger)
	a.loader = scraper.NewLoader(a.runner, logger)

	static := fetch.NewStatic(fetch.StaticConfig{
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   cfg.NavTimeout(),
	})
	if cfg.Fetch.HeadlessPromotion {
		a.headless, err = fetch.NewHeadless(fetch.HeadlessConfig{
			MaxParallel:       cfg.Fetch.MaxParallel,
			UserAgent:         cfg.Fetch.UserAgent,
			NavigationTimeout: cfg.NavTimeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("initialize headless fetcher: %w", err)
		}
	}
	heuristic := fetch.NewShellHeuristic(cfg.Fetch.MinDocumentBytes)
	var headless fetch.Fetcher
	if a.headless != nil {
		headless = a.headless
	}
	a.fetcher = fetch.NewPromoting(static, headless, heuristic, logger)

	if cfg.History.DSN != "" {
		logger.Info("connecting validation history store")
		a.histStore, err = history.Connect(ctx, cfg.History.DSN)
		if err != nil {
			return nil, fmt.Errorf("initialize history store: %w", err)
		}
	} else {
		a.histStore = history.NoOpStore{}
	}

	if cfg.Events.ProjectID != "" && cfg.Events.TopicName != "" {
		logger.Info("connecting event publisher", zap.String("topic", cfg.Events.TopicName))
		a.publisher, err = eventspubsub.New(ctx, cfg.Events.ProjectID, cfg.Events.TopicName)
		if err != nil {
			return nil, fmt.Errorf("initialize event publisher: %w", err)
		}
	} else {
		a.publisher = events.NoOpPublisher{}
	}

	a.notifier = events.NewNotifyingWriter(a.writer, a.publisher, clock, logger)
	a.validator = validate.New(a.resolver, a.writer, a.runner, a.histStore, a.publisher, clock, logger)

	return a, nil
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Store returns the tiered storage backend.
func (a *App) Store() *storage.Tiered { return a.store }

// Writer returns the artifact writer. Saves made through it publish an
// artifact.saved event when a broker is configured.
func (a *App) Writer() *events.NotifyingWriter { return a.notifier }

// Resolver returns the artifact resolver.
func (a *App) Resolver() *repository.Resolver { return a.resolver }

// Runner returns the execution sandbox.
func (a *App) Runner() *sandbox.Runner { return a.runner }

// Loader returns the scraper loader.
func (a *App) Loader() *scraper.Loader { return a.loader }

// Fetcher returns the promoting page fetcher.
func (a *App) Fetcher() fetch.Fetcher { return a.fetcher }

// Validator returns the validation service.
func (a *App) Validator() *validate.Validator { return a.validator }

// History returns the validation-run audit store.
func (a *App) History() history.Store { return a.histStore }

// Publisher returns the event publisher.
func (a *App) Publisher() events.Publisher { return a.publisher }

// Server builds the HTTP server over the container's services.
func (a *App) Server() *api.Server {
	return api.NewServer(a.notifier, a.resolver, a.validator, a.histStore, a.fetcher, a.logger)
}

// Close shuts everything down in reverse dependency order.
func (a *App) Close() {
	a.logger.Info("shutting down services")
	a.histStore.Close()
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("error closing event publisher", zap.Error(err))
	}
	if a.headless != nil {
		a.headless.Close()
	}
	if a.remote != nil {
		if err := a.remote.Close(); err != nil {
			a.logger.Warn("error closing GCS client", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
