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
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/chrisjgf/portfolio/internal/api"
	"github.com/chrisjgf/portfolio/internal/mcpserver"
	"github.com/chrisjgf/portfolio/internal/prices"
	"github.com/chrisjgf/portfolio/internal/vault"
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
		slog.String("vault_file", cfg.Vault.File),
		slog.String("cache_ttl", cfg.Prices.CacheTTL.String()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize the vault store. The encrypted file itself is only
	// created on first setup.
	store, err := vault.NewStore(cfg.Vault.File)
	if err != nil {
		return fmt.Errorf("init vault store: %w", err)
	}

	// Wire the quote providers. One shared client; per-request timeouts
	// are the transport's job and surface as ordinary fetch failures.
	client := &http.Client{Timeout: cfg.Prices.RequestTimeout}
	rates := prices.NewRateSource(client, cfg.Prices.CoinGeckoURL, cfg.Prices.CacheTTL,
		decimal.NewFromFloat(cfg.Prices.FallbackUSDGBP))
	batch := prices.NewCoinGeckoSource(client, cfg.Prices.CoinGeckoURL)
	relay := prices.NewQuoteSource(client, cfg.Prices.QuoteURL, cfg.Prices.Relays, rates)
	priceSvc := prices.NewService(batch, relay, cfg.Prices.CacheTTL)

	svc := api.NewService(store, priceSvc)

	if app.mcpMode {
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(svc).ServeStdio()
	}

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

	// Build chi router.
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

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the vault file for external mutation. A watcher failure is
	// logged but does not take the server down.
	g.Go(func() error {
		if watchErr := vault.Watch(gCtx, store, logger); watchErr != nil {
			logger.Warn("vault watcher unavailable", slog.String("error", watchErr.Error()))
		}
		return nil
	})

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Drop the session so the password does not outlive the process
		// any longer than it has to.
		store.Lock()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
