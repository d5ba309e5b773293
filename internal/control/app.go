// Package control wires configuration into a running placefinder service.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/placefinder/internal/analyzer"
	"github.com/vietddude/placefinder/internal/cache"
	"github.com/vietddude/placefinder/internal/core/config"
	"github.com/vietddude/placefinder/internal/core/worker"
	"github.com/vietddude/placefinder/internal/extraction"
	"github.com/vietddude/placefinder/internal/infra/content"
	"github.com/vietddude/placefinder/internal/infra/inference"
	redisclient "github.com/vietddude/placefinder/internal/infra/redis"
	"github.com/vietddude/placefinder/internal/infra/retry"
	"github.com/vietddude/placefinder/internal/infra/storage"
	"github.com/vietddude/placefinder/internal/infra/storage/memory"
	"github.com/vietddude/placefinder/internal/infra/storage/postgres"
	"github.com/vietddude/placefinder/internal/server"
)

const (
	healthInterval  = 10 * time.Second
	shutdownTimeout = 15 * time.Second
)

// App is the main application struct that manages the service lifecycle.
type App struct {
	cfg        config.AppConfig
	service    *analyzer.Service
	cache      *cache.Manager
	server     *server.Server
	pruner     *worker.Pruner
	db         *postgres.DB
	redisStore *redisclient.Store
	log        *slog.Logger
}

// Option customizes App construction.
type Option func(*options)

type options struct {
	completer inference.Completer
	fetcher   analyzer.Fetcher
}

// WithCompleter replaces the OpenAI completer.
func WithCompleter(c inference.Completer) Option {
	return func(o *options) { o.completer = c }
}

// WithFetcher replaces the HTTP content fetcher.
func WithFetcher(f analyzer.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// NewApp creates an App with all dependencies initialized.
func NewApp(ctx context.Context, cfg config.AppConfig, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{cfg: cfg, log: slog.Default()}

	// 1. Remote cache tier
	var remote cache.Store
	if cfg.Redis.Enabled() {
		store, err := redisclient.NewStore(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		app.redisStore = store
		remote = store
	}

	// 2. History storage
	history, err := app.initHistory(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	// 3. Cache
	app.cache = cache.NewManager(cfg.Cache, remote)
	if err := app.cache.Initialize(ctx); err != nil {
		app.log.Warn("Continuing with in-process cache only", "error", err)
	}

	// 4. Inference
	completer := o.completer
	if completer == nil {
		c, err := inference.NewOpenAICompleter(cfg.Inference)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to init inference: %w", err)
		}
		completer = c
	}
	inferenceClient := inference.NewClient(completer, retry.NewExecutor("inference", cfg.Retry.Inference))

	fetcher := o.fetcher
	if fetcher == nil {
		fetcher = content.NewFetcher(cfg.Fetcher)
	}

	// 5. Analyzer
	app.service = analyzer.New(cfg.Analyzer, analyzer.Deps{
		Fetcher:    fetcher,
		Inference:  inferenceClient,
		Extractor:  extraction.NewEngine(),
		Cache:      app.cache,
		History:    history,
		FetchRetry: retry.NewExecutor("fetch", cfg.Retry.Fetch),
	})

	// 6. HTTP server and workers
	monitor := server.NewMonitor(healthInterval)
	app.registerChecks(monitor)
	app.server = server.New(app.service, monitor, cfg.Server.Port)
	app.pruner = worker.NewPruner(cfg.History.Retention, history)

	return app, nil
}

func (a *App) initHistory(ctx context.Context) (storage.AnalysisRepository, error) {
	repo, db, err := openHistory(ctx, a.cfg, a.redisStore)
	a.db = db
	return repo, err
}

// OpenHistory opens the configured history backend on its own, for commands
// that only read records. The returned func releases its connections.
func OpenHistory(ctx context.Context, cfg config.AppConfig) (storage.AnalysisRepository, func(), error) {
	var store *redisclient.Store
	if cfg.History.Backend == config.HistoryRedis {
		s, err := redisclient.NewStore(cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init redis: %w", err)
		}
		store = s
	}

	repo, db, err := openHistory(ctx, cfg, store)
	closeFn := func() {
		if store != nil {
			_ = store.Close()
		}
		if db != nil {
			_ = db.Close()
		}
	}
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return repo, closeFn, nil
}

func openHistory(ctx context.Context, cfg config.AppConfig, store *redisclient.Store) (storage.AnalysisRepository, *postgres.DB, error) {
	switch cfg.History.Backend {
	case config.HistoryPostgres:
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			return nil, db, fmt.Errorf("failed to migrate db: %w", err)
		}
		slog.Info("Using PostgreSQL analysis history")
		return postgres.NewAnalysisRepo(db), db, nil

	case config.HistoryRedis:
		if store == nil {
			return nil, nil, errors.New("redis history requires redis.url")
		}
		slog.Info("Using Redis analysis history")
		return redisclient.NewAnalysisRepo(store), nil, nil

	default:
		slog.Info("Using in-memory analysis history")
		return memory.NewAnalysisRepo(memory.NewMemoryStorage()), nil, nil
	}
}

func (a *App) registerChecks(m *server.Monitor) {
	if a.redisStore != nil {
		m.Register("cache", false, func(ctx context.Context) error {
			if !a.cache.Stats().RemoteEnabled {
				return errors.New("remote tier disabled")
			}
			return nil
		})
	}
	if a.db != nil {
		m.Register("database", true, a.db.Health)
	}
}

// Service returns the analyzer.
func (a *App) Service() *analyzer.Service {
	return a.service
}

// Run serves HTTP and runs background workers until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.pruner.Start(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return a.server.Stop(shutdownCtx)
	})

	return g.Wait()
}

// Close releases the cache and database connections.
func (a *App) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("Failed to close cache", "error", err)
		}
	} else if a.redisStore != nil {
		if err := a.redisStore.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}
}
