// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
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

	"github.com/starford/anota/internal/api"
	"github.com/starford/anota/internal/index"
	"github.com/starford/anota/internal/links"
	"github.com/starford/anota/internal/logging"
	"github.com/starford/anota/internal/models"
	"github.com/starford/anota/internal/noteservice"
	"github.com/starford/anota/internal/sse"
)

// Run serves the vault over HTTP until ctx is cancelled or a shutdown
// signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		var err error
		logger, err = logging.New(cfg.App.LogFormat, cfg.App.LogLevel, os.Stdout)
		if err != nil {
			return err
		}
	}
	slog.SetDefault(logger)

	root, err := ResolveVaultPath(cfg, app.session)
	if err != nil {
		return err
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", root),
		slog.Bool("index_enabled", cfg.Index.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	ws, err := OpenWorkspace(cfg, root, logger, noteservice.WithPublisher(broker))
	if err != nil {
		return fmt.Errorf("open vault: %w", err)
	}
	defer func() {
		if err := ws.Close(); err != nil {
			logger.Error("close vault failed", slog.String("error", err.Error()))
		}
	}()

	if app.session != nil {
		if err := app.session.Remember(ws.Service.Root(), time.Now()); err != nil {
			logger.Warn("remember vault failed", slog.String("error", err.Error()))
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, "ok", app.version)
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := os.Stat(root); err != nil {
			writeHealth(w, http.StatusServiceUnavailable, "vault unavailable", app.version)
			return
		}
		writeHealth(w, http.StatusOK, "ok", app.version)
	})

	r.Mount("/api", api.NewRouter(ws.Service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, links.NewOpener(logger)))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(runCtx)

	if ws.DB != nil {
		g.Go(func() error {
			err := index.Watch(gCtx, ws.DB, ws.Service.Store(), logger, func(kind, id, rel string) {
				broker.Notify(models.EventFileChanged, map[string]string{"kind": kind, "id": id, "path": rel})
			})
			if err != nil {
				logger.Warn("watcher disabled", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}
		cancel()

		logger.Info("Shutting down server...")

		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
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

func writeHealth(w http.ResponseWriter, status int, msg, version string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": msg, "version": version})
}
