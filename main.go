// ABOUTME: Entry point for the church administration console server
// ABOUTME: Serves guarded console views and relays API calls to the backend with per-browser sessions

package main

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

	"github.com/redis/go-redis/v9"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/config"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/handlers"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/logger"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/services"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize structured logging
	logger.Init()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	slog.Info("Starting console server", "mode", cfg.Mode())
	slog.Info("Backend API configured", "url", cfg.APIURL(), "sanctum", cfg.SanctumURL())

	transport, err := services.NewTransport(cfg.APIAllProxy)
	if err != nil {
		return fmt.Errorf("failed to configure backend transport: %w", err)
	}
	if cfg.APIAllProxy != "" {
		slog.Info("Backend reached through SOCKS5 proxy")
	}

	api, err := services.NewAPIClient(services.APIConfig{
		APIURL:    cfg.APIURL(),
		RootURL:   cfg.SanctumURL(),
		Timeout:   cfg.RequestTimeout,
		Transport: transport,
	})
	if err != nil {
		return err
	}

	registry, err := newRegistry(cfg)
	if err != nil {
		return err
	}
	defer registry.Close()
	slog.Info("Session store initialized", "store", cfg.SessionStore, "ttl", cfg.SessionTTL)

	h := handlers.NewHandler(cfg, api, registry)
	defer h.Close()

	mux := http.NewServeMux()
	h.Register(mux)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newRegistry builds the session registry selected by SESSION_STORE.
func newRegistry(cfg *config.Config) (services.SessionRegistry, error) {
	if cfg.SessionStore != "redis" {
		return services.NewMemoryRegistry(cfg.Mode(), cfg.SessionTTL), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return services.NewRedisRegistry(client, "console", cfg.Mode(), cfg.SessionTTL, cfg.SanctumURL())
}
