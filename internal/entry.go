// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/mimir/internal/api"
	"github.com/starford/mimir/internal/gitsync"
	"github.com/starford/mimir/internal/knowledge"
	"github.com/starford/mimir/internal/mcpserver"
	"github.com/starford/mimir/internal/project"
	"github.com/starford/mimir/internal/sse"
	"github.com/starford/mimir/internal/storage"
	"github.com/starford/mimir/internal/todo"
	"github.com/starford/mimir/internal/watch"
)

// services bundles everything built on top of the storage root.
type services struct {
	store     *storage.FS
	publisher gitsync.Publisher
	knowledge *knowledge.Service
	todos     *todo.Manager
}

func buildServices(ctx context.Context, cfg *Config, logger *slog.Logger) (*services, error) {
	if err := os.MkdirAll(cfg.Storage.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	var publisher gitsync.Publisher = gitsync.Noop{}
	if cfg.Git.AutoCommit {
		g := gitsync.New(store.Root(), cfg.Git.Remote)
		if err := g.Init(ctx); err != nil {
			return nil, fmt.Errorf("init audit log: %w", err)
		}
		publisher = g
	}

	locks := storage.NewLocker()
	resolver := project.NewResolver(store, locks)

	return &services{
		store:     store,
		publisher: publisher,
		knowledge: knowledge.NewService(store, locks, resolver, publisher, logger),
		todos:     todo.NewManager(store, locks, resolver, publisher, logger),
	}, nil
}

// Run starts the HTTP server, the storage watcher and the SSE broker, and
// blocks until ctx is cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_path", cfg.Storage.Path),
		slog.Bool("git_auto_commit", cfg.Git.AutoCommit),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svcs, err := buildServices(ctx, cfg, logger)
	if err != nil {
		return err
	}

	broker := sse.NewBroker()
	defer broker.Close()

	apiRouter := api.NewRouter(svcs.knowledge, svcs.todos,
		cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := watch.Watch(gCtx, svcs.store.Root(), broker, svcs.publisher, logger); err != nil {
			logger.Warn("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP stdio transport. Logs go to stderr because stdout
// carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	svcs, err := buildServices(ctx, cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("Starting MCP server on stdio",
		slog.String("storage_path", cfg.Storage.Path))

	return mcpserver.New(svcs.knowledge, svcs.todos).ServeStdio()
}
