// cmd/service/app.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"githop/internal/ai"
	"githop/internal/config"
	"githop/internal/database"
	custom_errors "githop/internal/errors"
	"githop/internal/gharchive"
	"githop/internal/github"
	"githop/internal/syncer"
)

// app holds the components shared by the serve and sync commands.
type app struct {
	pool      *pgxpool.Pool
	store     *database.PgStore
	syncer    *syncer.Syncer
	embedder  ai.Embedder
	assistant ai.Assistant
	closers   []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("Failed to close component", "error", err)
		}
	}
}

// newApp connects to the database, applies migrations and builds the adapters and the syncer.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{}

	dbpool, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.pool = dbpool
	a.closers = append(a.closers, func() error { dbpool.Close(); return nil })
	logger.Info("Database connection established")

	if err := database.MigrateUp(cfg.DBURL); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully")
	a.store = database.NewStore(dbpool)

	ghClient, err := github.NewClient(cfg.GithubToken, logger,
		github.WithBaseURL(cfg.GithubAPIURL),
		github.WithGraphQLURL(cfg.GithubGraphQLURL),
		github.WithRequestsPerSecond(cfg.GithubRequestsPerSecond),
		github.WithRateLimitPause(cfg.RateLimitPause),
		github.WithStatsRetryDelay(cfg.StatsRetryDelay),
		github.WithSearchDelay(cfg.SearchDelay),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create github client: %w", err)
	}

	aiConfig := ai.Config{
		OpenAIAPIKey:      cfg.OpenAIAPIKey,
		OpenAIBaseURL:     cfg.OpenAIBaseURL,
		ChatModel:         cfg.OpenAIChatModel,
		EmbeddingProvider: ai.Provider(cfg.EmbeddingProvider),
		EmbeddingModel:    cfg.EmbeddingModel,
		OllamaURL:         cfg.OllamaURL,
		HTTPClient:        &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	a.assistant = ai.NewAssistant(aiConfig, logger)
	embedder, err := ai.NewEmbedder(aiConfig, logger)
	switch {
	case errors.Is(err, custom_errors.ErrAIDisabled):
		logger.Info("Embeddings disabled")
	case err != nil:
		a.Close()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	default:
		a.embedder = embedder
		logger.Info("Embeddings enabled", "provider", cfg.EmbeddingProvider)
	}

	opts := syncer.DefaultOptions()
	opts.TopTarget = cfg.TopReposTarget
	opts.GrowingTarget = cfg.GrowingReposTarget
	opts.TrendingTarget = cfg.TrendingReposTarget
	opts.DevelopersTarget = cfg.DevelopersTarget
	opts.BackfillLimit = cfg.BackfillLimit
	opts.HydrateLimit = cfg.HydrateLimit
	opts.RequestDelay = cfg.RequestDelay
	opts.RateLimitPause = cfg.RateLimitPause
	opts.SyncInterval = cfg.SyncInterval

	var extra []syncer.Option
	if a.embedder != nil {
		extra = append(extra, syncer.WithEmbedder(a.embedder))
	}
	if trends := newTrends(ctx, cfg, logger); trends != nil {
		a.closers = append(a.closers, trends.Close)
		extra = append(extra, syncer.WithTrends(trends))
	}
	a.syncer = syncer.NewSyncer(a.store, ghClient, logger, opts, extra...)
	return a, nil
}

// newTrends returns the GH Archive client, or nil when no BigQuery project is available.
func newTrends(ctx context.Context, cfg *config.Config, logger *slog.Logger) *gharchive.Client {
	projectID, err := gharchive.ResolveProjectID(cfg.BigQueryProjectID)
	if err != nil {
		logger.Info("GH Archive trends disabled", "reason", err)
		return nil
	}
	client, err := gharchive.NewClient(ctx, projectID, logger)
	if err != nil {
		logger.Warn("GH Archive trends disabled", "project_id", projectID, "error", err)
		return nil
	}
	logger.Info("GH Archive trends enabled", "project_id", projectID)
	return client
}
