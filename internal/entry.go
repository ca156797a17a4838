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

	"github.com/starling/clipnote/internal/api"
	"github.com/starling/clipnote/internal/capture"
	"github.com/starling/clipnote/internal/indexstore"
	"github.com/starling/clipnote/internal/llm"
	"github.com/starling/clipnote/internal/models"
	"github.com/starling/clipnote/internal/noteservice"
	"github.com/starling/clipnote/internal/pipeline"
	"github.com/starling/clipnote/internal/sse"
	"github.com/starling/clipnote/internal/storage"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("notes_dir", cfg.Store.NotesPath()),
		slog.String("index_file", cfg.Store.IndexPath()),
		slog.String("llm_model", cfg.LLM.Model),
		slog.Bool("capture_enabled", cfg.Capture.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// The notes dir may live outside DataDir, so create both.
	if err := os.MkdirAll(cfg.Store.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.Store.NotesPath(), 0o755); err != nil {
		return fmt.Errorf("create notes dir: %w", err)
	}

	// Initialize note storage and index.
	store, err := storage.NewFS(cfg.Store.NotesPath())
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	index := indexstore.New(cfg.Store.IndexPath())
	svc := noteservice.NewService(store, index)

	// Chat backend and content pipeline.
	client := app.llmClient
	if client == nil {
		client = llm.NewOpenAI(llm.Config{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			TopP:        cfg.LLM.TopP,
			Timeout:     cfg.LLM.Timeout.Std(),
		})
	}
	pipe := pipeline.New(client, index)

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	// Clipboard capture history and monitor.
	var history *capture.History
	var monitor *capture.Monitor
	if cfg.Capture.Enabled {
		history, err = capture.OpenHistory(cfg.Capture.HistoryDBPath(&cfg.Store), cfg.Capture.HistoryLimit)
		if err != nil {
			return fmt.Errorf("init capture history: %w", err)
		}
		defer history.Close()

		clip := app.clipboard
		if clip == nil {
			clip = capture.NewSystemClipboard()
		}
		monitor = capture.NewMonitor(clip, pipe, history, cfg.Capture.Interval.Std(), logger, func(item models.CaptureItem) {
			broker.Publish(sse.Event{Type: "capture.classified", Data: item})
		})
	}

	// Build API router.
	apiRouter := api.NewRouter(api.NewHandler(svc, pipe, history, broker), broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	// errgroup only cancels gCtx on a non-nil error, and a clean
	// signal shutdown returns nil everywhere; the explicit cancel is
	// what unblocks the watcher and monitor goroutines.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(runCtx)

	// Reconcile the index when note files are removed out-of-band.
	g.Go(func() error {
		return noteservice.Watch(gCtx, svc, cfg.Store.NotesPath(), logger, func(kind, id string) {
			broker.PublishNoteEvent(kind, id)
		})
	})

	// Clipboard monitor.
	if monitor != nil {
		g.Go(func() error {
			monitor.Start(gCtx)
			<-gCtx.Done()
			monitor.Stop()
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Release the remaining goroutines.
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
