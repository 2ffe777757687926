// cmd/service/serve.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"githop/internal/api"
	"githop/internal/jobs"
	"githop/internal/telemetry"
)

const shutdownTimeout = 30 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}

	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEnabled, cfg.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		flushCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("Failed to flush traces", "error", err)
		}
	}()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	runner := jobs.NewRunner(ctx, logger, jobs.DefaultHistory)

	if cfg.SyncDataOnStartup {
		needed, err := a.syncer.NeedsInitialSync(ctx)
		switch {
		case err != nil:
			logger.Warn("Failed to check for an initial sync", "error", err)
		case needed:
			if _, err := runner.Submit("sync_all", a.syncer.SyncAll); err != nil {
				logger.Warn("Failed to start initial sync", "error", err)
			} else {
				logger.Info("Repository table empty, initial sync started")
			}
		}
	}

	go a.syncer.Start(ctx, func(name string, fn func(context.Context) error) {
		if _, err := runner.Submit(name, fn); err != nil {
			logger.Warn("Scheduled job not started", "job", name, "error", err)
		}
	})

	router := api.NewRouter(api.Deps{
		Store:     a.store,
		Worker:    a.syncer,
		Runner:    runner,
		Assistant: a.assistant,
		Embedder:  a.embedder,
		Logger:    logger,
	}, api.Config{
		CacheTTL:       cfg.CacheTTL,
		CacheSize:      cfg.CacheSize,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		ServiceName:    cfg.ServiceName,
	})
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case serveErr = <-errCh:
		logger.Error("HTTP server failed", "error", serveErr)
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown incomplete", "error", err)
	}
	if err := runner.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Background jobs did not stop in time", "error", err)
	}
	logger.Info("Shutdown complete")

	if serveErr != nil {
		return fmt.Errorf("http server: %w", serveErr)
	}
	return nil
}
