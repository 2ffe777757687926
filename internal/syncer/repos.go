// internal/syncer/repos.go
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
	"githop/internal/scoring"
)

const searchDateLayout = "2006-01-02"

// CategoryQuery returns the Search API query of a category sync.
func CategoryQuery(category string, now time.Time) (string, error) {
	switch category {
	case model.CategoryTop:
		return "stars:>10000", nil
	case model.CategoryGrowing:
		return fmt.Sprintf("created:>%s stars:>100", now.AddDate(0, 0, -30).Format(searchDateLayout)), nil
	case model.CategoryTrending:
		return fmt.Sprintf("created:>%s", now.AddDate(0, 0, -7).Format(searchDateLayout)), nil
	}
	return "", &custom_errors.ErrInvalidFilter{Field: "category", Value: category}
}

// SyncTop refreshes the most starred repositories.
func (s *Syncer) SyncTop(ctx context.Context) error {
	return s.syncCategory(ctx, model.CategoryTop, s.opts.TopTarget)
}

// SyncGrowing refreshes popular repositories created in the last 30 days.
func (s *Syncer) SyncGrowing(ctx context.Context) error {
	return s.syncCategory(ctx, model.CategoryGrowing, s.opts.GrowingTarget)
}

// SyncTrending refreshes repositories created in the last 7 days.
func (s *Syncer) SyncTrending(ctx context.Context) error {
	return s.syncCategory(ctx, model.CategoryTrending, s.opts.TrendingTarget)
}

func (s *Syncer) syncCategory(ctx context.Context, category string, target int) error {
	query, err := CategoryQuery(category, s.now())
	if err != nil {
		return err
	}
	logger := s.logger.With("job", category)
	logger.Info("Searching repositories", "query", query, "target", target)

	var results []*model.Repository
	err = s.withRateLimitRetry(ctx, logger, func() error {
		var err error
		results, err = s.gh.SearchRepositories(ctx, query, "stars", target)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to search %s repositories: %w", category, err)
	}

	ids := make([]int64, 0, len(results))
	ok, err := forEach(ctx, s, category, results, (*model.Repository).FullName,
		func(ctx context.Context, logger *slog.Logger, found *model.Repository) error {
			repo, hydrated, err := s.fetchRepository(ctx, logger, found.Owner, found.Name)
			switch {
			case custom_errors.IsRateLimited(err):
				return err
			case err != nil:
				logger.Warn("Repository fetch failed, using search result", "error", err)
				repo, hydrated = found, false
			}
			if err := s.storeRepository(ctx, repo, []string{category}, s.repositoryStats(repo, hydrated)); err != nil {
				return err
			}
			ids = append(ids, repo.ID)
			return nil
		})
	if err != nil {
		return err
	}

	return s.reconcile(ctx, logger, category, ids, ok, len(results))
}

// reconcile moves the category tag to ids. An empty pass leaves the stored tags alone.
func (s *Syncer) reconcile(ctx context.Context, logger *slog.Logger, category string, ids []int64, ok, total int) error {
	if len(ids) == 0 {
		logger.Warn("No repositories stored, keeping previous category members", "category", category)
		return nil
	}
	if err := s.store.ReconcileCategory(ctx, category, ids); err != nil {
		return fmt.Errorf("failed to reconcile category %s: %w", category, err)
	}
	logger.Info("Category synced", "category", category, "stored", ok, "found", total)
	return nil
}

// fetchRepository loads full repository metadata over GraphQL and falls back to the REST
// repository and languages endpoints when GraphQL fails. hydrated is false for the REST path,
// which carries no commit counts.
func (s *Syncer) fetchRepository(ctx context.Context, logger *slog.Logger, owner, name string) (repo *model.Repository, hydrated bool, err error) {
	repo, err = s.gh.GetRepositoryDetails(ctx, owner, name)
	if err == nil {
		return repo, true, nil
	}
	if custom_errors.IsRateLimited(err) {
		return nil, false, err
	}
	logger.Warn("GraphQL hydration failed, falling back to REST", "error", err)

	repo, err = s.gh.GetRepository(ctx, owner, name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get repository over REST: %w", err)
	}
	langs, err := s.gh.ListLanguages(ctx, owner, name)
	switch {
	case custom_errors.IsRateLimited(err):
		return nil, false, err
	case err != nil:
		logger.Warn("Failed to list languages", "error", err)
	default:
		repo.Languages = langs
	}
	return repo, false, nil
}

// repositoryStats derives the stats row of a fetched repository. Commit counts are only known
// for GraphQL-hydrated repositories.
func (s *Syncer) repositoryStats(r *model.Repository, hydrated bool) database.UpsertRepositoryStatsParams {
	signals := scoring.SignalsFrom(r)
	now := s.now()
	p := database.UpsertRepositoryStatsParams{
		RepositoryID:  r.ID,
		ActivityScore: scoring.ActivityScore(signals, now),
		HealthScore:   scoring.HealthScore(signals, now),
	}
	if hydrated {
		month, year := r.CommitsLastMonth, r.CommitsLastYear
		p.CommitsLastMonth, p.CommitsLastYear = &month, &year
	}
	return p
}

// storeRepository writes the repository, its languages and its stats in one transaction.
func (s *Syncer) storeRepository(ctx context.Context, r *model.Repository, categories []string, stats database.UpsertRepositoryStatsParams) error {
	return s.store.ExecTx(ctx, func(q database.Querier) error {
		if _, err := q.UpsertRepository(ctx, upsertParams(r, categories)); err != nil {
			return fmt.Errorf("failed to upsert repository: %w", err)
		}
		if len(r.Languages) > 0 {
			if err := q.ReplaceRepositoryLanguages(ctx, r.ID, r.Languages); err != nil {
				return fmt.Errorf("failed to store languages: %w", err)
			}
		}
		if err := q.UpsertRepositoryStats(ctx, stats); err != nil {
			return fmt.Errorf("failed to store stats: %w", err)
		}
		return nil
	})
}

func upsertParams(r *model.Repository, categories []string) database.UpsertRepositoryParams {
	return database.UpsertRepositoryParams{
		ID:              r.ID,
		Owner:           r.Owner,
		OwnerType:       r.OwnerType,
		Name:            r.Name,
		Description:     r.Description,
		HTMLURL:         r.HTMLURL,
		Homepage:        r.Homepage,
		StarsCount:      r.StarsCount,
		ForksCount:      r.ForksCount,
		WatchersCount:   r.WatchersCount,
		OpenIssuesCount: r.OpenIssuesCount,
		Language:        r.Language,
		Topics:          r.Topics,
		License:         r.License,
		Readme:          r.Readme,
		DiskUsage:       r.DiskUsage,
		IsArchived:      r.IsArchived,
		IsFork:          r.IsFork,
		IsDisabled:      r.IsDisabled,
		IsTemplate:      r.IsTemplate,
		HasWiki:         r.HasWiki,
		HasPages:        r.HasPages,
		HasDiscussions:  r.HasDiscussions,
		Categories:      categories,
		RepoCreatedAt:   timePtr(r.RepoCreatedAt),
		RepoUpdatedAt:   timePtr(r.RepoUpdatedAt),
		PushedAt:        timePtr(r.PushedAt),
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// SyncTrends stores the repositories GH Archive ranks highest by star events over period.
func (s *Syncer) SyncTrends(ctx context.Context, period gharchive.Period) error {
	if s.trends == nil {
		return custom_errors.ErrTrendsDisabled
	}
	days, ok := period.Days()
	if !ok {
		return &custom_errors.ErrInvalidFilter{Field: "period", Value: string(period)}
	}
	category := period.Category()
	logger := s.logger.With("job", category)

	rows, err := s.trends.TopStarred(ctx, period)
	if err != nil {
		return fmt.Errorf("failed to query gh archive: %w", err)
	}
	logger.Info("Fetched GH Archive ranking", "rows", len(rows))

	ids := make([]int64, 0, len(rows))
	stored, err := forEach(ctx, s, category, rows, func(t model.TrendingRepo) string { return t.FullName },
		func(ctx context.Context, logger *slog.Logger, t model.TrendingRepo) error {
			owner, name, ok := model.SplitFullName(t.FullName)
			if !ok {
				return &custom_errors.ErrInvalidRepoFormat{Repo: t.FullName}
			}
			repo, hydrated, err := s.fetchRepository(ctx, logger, owner, name)
			if err != nil {
				return err
			}
			if err := s.storeRepository(ctx, repo, []string{category}, s.trendStats(repo, hydrated, days, t.Events)); err != nil {
				return err
			}
			ids = append(ids, repo.ID)
			return nil
		})
	if err != nil {
		return err
	}
	return s.reconcile(ctx, logger, category, ids, stored, len(rows))
}

// trendStats writes the period's WatchEvent count into the matching growth column.
func (s *Syncer) trendStats(r *model.Repository, hydrated bool, days int, events int64) database.UpsertRepositoryStatsParams {
	p := s.repositoryStats(r, hydrated)
	p.ActivityScore = scoring.SimpleActivityScore(scoring.SignalsFrom(r), s.now())
	growth := int(events)
	switch days {
	case 7:
		p.StarsGrowth7d = &growth
	case 30:
		p.StarsGrowth30d = &growth
	case 90:
		p.StarsGrowth90d = &growth
	}
	return p
}

// HydrateStubs upgrades up to limit stub repositories to complete rows.
func (s *Syncer) HydrateStubs(ctx context.Context, limit int) error {
	if limit <= 0 {
		limit = s.opts.HydrateLimit
	}
	stubs, err := s.store.ListStubRepositories(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list stubs: %w", err)
	}
	s.logger.Info("Hydrating stub repositories", "count", len(stubs))

	ok, err := forEach(ctx, s, "hydrate", stubs, refLabel,
		func(ctx context.Context, logger *slog.Logger, ref database.RepositoryRef) error {
			repo, hydrated, err := s.fetchRepository(ctx, logger, ref.Owner, ref.Name)
			if err != nil {
				return err
			}
			return s.storeRepository(ctx, repo, nil, s.repositoryStats(repo, hydrated))
		})
	s.logger.Info("Hydration finished", "hydrated", ok, "stubs", len(stubs))
	return err
}

func refLabel(ref database.RepositoryRef) string { return ref.FullName }

// ParseBackfillMode validates a backfill mode. An empty mode means missing.
func ParseBackfillMode(mode string) (database.BackfillMode, error) {
	switch database.BackfillMode(mode) {
	case "", database.BackfillMissing:
		return database.BackfillMissing, nil
	case database.BackfillAll:
		return database.BackfillAll, nil
	}
	return "", &custom_errors.ErrInvalidFilter{Field: "mode", Value: mode}
}

func (s *Syncer) backfill(ctx context.Context, kind database.BackfillKind, mode database.BackfillMode, limit int,
	fn func(context.Context, *slog.Logger, database.RepositoryRef) error) error {
	if limit <= 0 {
		limit = s.opts.BackfillLimit
	}
	refs, err := s.store.ListRepositoriesForBackfill(ctx, database.BackfillParams{Kind: kind, Mode: mode, Limit: limit})
	if err != nil {
		return fmt.Errorf("failed to list repositories for %s: %w", kind, err)
	}
	s.logger.Info("Starting backfill", "kind", kind, "mode", mode, "count", len(refs))

	ok, err := forEach(ctx, s, string(kind), refs, refLabel, fn)
	s.logger.Info("Backfill finished", "kind", kind, "processed", ok, "selected", len(refs))
	return err
}

// BackfillCommitActivity stores the weekly commit histogram. Repositories whose statistics are
// still being computed are skipped.
func (s *Syncer) BackfillCommitActivity(ctx context.Context, mode database.BackfillMode, limit int) error {
	return s.backfill(ctx, database.BackfillCommitActivity, mode, limit,
		func(ctx context.Context, logger *slog.Logger, ref database.RepositoryRef) error {
			weeks, err := s.gh.GetCommitActivity(ctx, ref.Owner, ref.Name)
			if errors.Is(err, custom_errors.ErrStatsPending) {
				logger.Debug("Commit activity still being computed, skipping")
				return nil
			}
			if err != nil {
				return err
			}
			return s.store.ExecTx(ctx, func(q database.Querier) error {
				return q.ReplaceCommitActivity(ctx, ref.ID, weeks)
			})
		})
}

// BackfillRecentCommits stores the latest commits of each repository.
func (s *Syncer) BackfillRecentCommits(ctx context.Context, mode database.BackfillMode, limit int) error {
	return s.backfill(ctx, database.BackfillRecentCommits, mode, limit,
		func(ctx context.Context, logger *slog.Logger, ref database.RepositoryRef) error {
			commits, err := s.gh.ListRecentCommits(ctx, ref.Owner, ref.Name, s.opts.RecentCommitsLimit)
			if err != nil {
				return err
			}
			return s.store.ExecTx(ctx, func(q database.Querier) error {
				return q.ReplaceRecentCommits(ctx, ref.ID, commits)
			})
		})
}

// BackfillContributors stores contributors using the REST, GraphQL and Search fallback chain.
func (s *Syncer) BackfillContributors(ctx context.Context, mode database.BackfillMode, limit int) error {
	return s.backfill(ctx, database.BackfillContributors, mode, limit,
		func(ctx context.Context, logger *slog.Logger, ref database.RepositoryRef) error {
			contributors, err := s.gh.FetchContributors(ctx, ref.Owner, ref.Name, s.opts.ContributorsLimit)
			if err != nil {
				return err
			}
			logger.Debug("Fetched contributors", "count", len(contributors))
			return s.store.ExecTx(ctx, func(q database.Querier) error {
				return q.ReplaceRepositoryContributors(ctx, ref.ID, contributors)
			})
		})
}

// GenerateEmbeddings embeds up to limit repositories that have no embedding yet.
func (s *Syncer) GenerateEmbeddings(ctx context.Context, limit int) error {
	if s.embedder == nil {
		return custom_errors.ErrAIDisabled
	}
	if limit <= 0 {
		limit = s.opts.EmbeddingLimit
	}
	candidates, err := s.store.ListRepositoriesMissingEmbedding(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list repositories without embedding: %w", err)
	}
	s.logger.Info("Generating embeddings", "count", len(candidates))

	ok, err := forEach(ctx, s, "embeddings", candidates,
		func(c database.EmbeddingCandidate) string { return c.FullName },
		func(ctx context.Context, logger *slog.Logger, c database.EmbeddingCandidate) error {
			text := ai.EmbeddingText(c.FullName, deref(c.Description), deref(c.Language), c.Topics, deref(c.Readme))
			vec, err := s.embedder.Embed(ctx, text)
			if err != nil {
				return err
			}
			if len(vec) != ai.EmbeddingDimensions {
				return fmt.Errorf("embedding has %d dimensions, want %d", len(vec), ai.EmbeddingDimensions)
			}
			return s.store.UpdateRepositoryEmbedding(ctx, c.ID, vec)
		})
	s.logger.Info("Embeddings finished", "stored", ok, "candidates", len(candidates))
	return err
}
