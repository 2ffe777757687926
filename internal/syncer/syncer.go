// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"githop/internal/ai"
	"githop/internal/database"
	custom_errors "githop/internal/errors"
	"githop/internal/gharchive"
	"githop/internal/model"
)

// GitHub is the subset of the GitHub adapter the worker jobs use.
type GitHub interface {
	SearchRepositories(ctx context.Context, query, sort string, target int) ([]*model.Repository, error)
	SearchUsers(ctx context.Context, query, sort string, target int) ([]string, error)
	GetRepositoryDetails(ctx context.Context, owner, name string) (*model.Repository, error)
	GetRepository(ctx context.Context, owner, name string) (*model.Repository, error)
	ListLanguages(ctx context.Context, owner, name string) ([]model.LanguageShare, error)
	GetDeveloperProfile(ctx context.Context, login string) (*model.DeveloperProfile, error)
	GetCommitActivity(ctx context.Context, owner, name string) ([]model.WeeklyActivity, error)
	ListRecentCommits(ctx context.Context, owner, name string, limit int) ([]model.Commit, error)
	FetchContributors(ctx context.Context, owner, name string, limit int) ([]model.Contributor, error)
}

// Trends ranks repositories by GH Archive star events.
type Trends interface {
	TopStarred(ctx context.Context, p gharchive.Period) ([]model.TrendingRepo, error)
}

// Options holds the targets and pacing of the worker jobs.
type Options struct {
	TopTarget          int
	GrowingTarget      int
	TrendingTarget     int
	DevelopersTarget   int
	BackfillLimit      int
	HydrateLimit       int
	EmbeddingLimit     int
	RecentCommitsLimit int
	ContributorsLimit  int
	RequestDelay       time.Duration
	RateLimitPause     time.Duration
	SyncInterval       time.Duration
}

// DefaultOptions returns the targets used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		TopTarget:          200,
		GrowingTarget:      100,
		TrendingTarget:     100,
		DevelopersTarget:   50,
		BackfillLimit:      50,
		HydrateLimit:       100,
		EmbeddingLimit:     100,
		RecentCommitsLimit: 30,
		ContributorsLimit:  30,
		RequestDelay:       time.Second,
		RateLimitPause:     time.Minute,
	}
}

// Syncer runs the worker jobs that fill the store from GitHub, GH Archive and the embedder.
type Syncer struct {
	store    database.Store
	gh       GitHub
	trends   Trends
	embedder ai.Embedder
	logger   *slog.Logger
	opts     Options
	now      func() time.Time
}

// Option customises a Syncer.
type Option func(*Syncer)

// WithTrends enables the GH Archive jobs.
func WithTrends(t Trends) Option {
	return func(s *Syncer) { s.trends = t }
}

// WithEmbedder enables embedding generation.
func WithEmbedder(e ai.Embedder) Option {
	return func(s *Syncer) { s.embedder = e }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) { s.now = now }
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(store database.Store, gh GitHub, logger *slog.Logger, opts Options, options ...Option) *Syncer {
	s := &Syncer{
		store:  store,
		gh:     gh,
		logger: logger,
		opts:   opts,
		now:    time.Now,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pace waits the request delay between external calls.
func (s *Syncer) pace(ctx context.Context) error {
	return sleep(ctx, s.opts.RequestDelay)
}

// withRateLimitRetry runs fn and, when it hits the GitHub rate limit, pauses and runs it once more.
func (s *Syncer) withRateLimitRetry(ctx context.Context, logger *slog.Logger, fn func() error) error {
	err := fn()
	if !custom_errors.IsRateLimited(err) {
		return err
	}
	logger.Warn("Rate limited, pausing", "pause", s.opts.RateLimitPause.String(), "error", err)
	if err := sleep(ctx, s.opts.RateLimitPause); err != nil {
		return err
	}
	return fn()
}

// forEach runs fn for every item, logging and skipping failures. It stops when ctx is done.
func forEach[T any](ctx context.Context, s *Syncer, job string, items []T, label func(T) string, fn func(context.Context, *slog.Logger, T) error) (ok int, err error) {
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return ok, err
		}
		logger := s.logger.With("job", job, "item", label(item))
		err := s.withRateLimitRetry(ctx, logger, func() error { return fn(ctx, logger, item) })
		switch {
		case err == nil:
			ok++
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return ok, err
		default:
			logger.Error("Failed to process item", "error", err)
		}
		if i < len(items)-1 {
			if err := s.pace(ctx); err != nil {
				return ok, err
			}
		}
	}
	return ok, nil
}

// SyncAll refreshes the top, growing and trending categories, then hydrates stubs.
func (s *Syncer) SyncAll(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"top", s.SyncTop},
		{"growing", s.SyncGrowing},
		{"trending", s.SyncTrending},
		{"hydrate", func(ctx context.Context) error { return s.HydrateStubs(ctx, s.opts.HydrateLimit) }},
	}
	var errs []error
	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error("Sync step failed", "step", step.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
		}
	}
	return errors.Join(errs...)
}

// Start runs SyncAll every SyncInterval until ctx is done. It returns immediately when the
// interval is not positive.
func (s *Syncer) Start(ctx context.Context, submit func(name string, fn func(context.Context) error)) {
	if s.opts.SyncInterval <= 0 {
		s.logger.Info("Scheduled sync disabled")
		return
	}
	s.logger.Info("Starting syncer", "interval", s.opts.SyncInterval.String())
	ticker := time.NewTicker(s.opts.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			submit("sync_all", s.SyncAll)
		case <-ctx.Done():
			s.logger.Info("Syncer shutting down", "reason", ctx.Err())
			return
		}
	}
}

// NeedsInitialSync reports whether the repository table is empty.
func (s *Syncer) NeedsInitialSync(ctx context.Context) (bool, error) {
	n, err := s.store.CountRepositories(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count repositories: %w", err)
	}
	return n == 0, nil
}
