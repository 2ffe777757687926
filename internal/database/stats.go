// internal/database/stats.go
package database

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"

	"githop/internal/model"
)

const upsertRepositoryStats = `
INSERT INTO repository_stats (
    repository_id, commits_last_month, commits_last_year, stars_growth_7d, stars_growth_30d,
    stars_growth_90d, activity_score, health_score, updated_at
) VALUES ($1, COALESCE($2, 0), COALESCE($3, 0), $4, $5, $6, $7, $8, NOW())
ON CONFLICT (repository_id) DO UPDATE SET
    commits_last_month = COALESCE($2, repository_stats.commits_last_month),
    commits_last_year = COALESCE($3, repository_stats.commits_last_year),
    stars_growth_7d = COALESCE(EXCLUDED.stars_growth_7d, repository_stats.stars_growth_7d),
    stars_growth_30d = COALESCE(EXCLUDED.stars_growth_30d, repository_stats.stars_growth_30d),
    stars_growth_90d = COALESCE(EXCLUDED.stars_growth_90d, repository_stats.stars_growth_90d),
    activity_score = EXCLUDED.activity_score,
    health_score = EXCLUDED.health_score,
    updated_at = NOW()`

// UpsertRepositoryStats writes scores and counters. Fetched flags are never reset here.
func (q *Queries) UpsertRepositoryStats(ctx context.Context, arg UpsertRepositoryStatsParams) error {
	_, err := q.db.Exec(ctx, upsertRepositoryStats,
		arg.RepositoryID, arg.CommitsLastMonth, arg.CommitsLastYear, arg.StarsGrowth7d,
		arg.StarsGrowth30d, arg.StarsGrowth90d, arg.ActivityScore, arg.HealthScore)
	return err
}

const getRepositoryStats = `
SELECT repository_id, commits_last_month, commits_last_year, stars_growth_7d, stars_growth_30d,
       stars_growth_90d, activity_score, health_score, commit_activity_fetched,
       recent_commits_fetched, contributors_fetched, updated_at
FROM repository_stats WHERE repository_id = $1`

func (q *Queries) GetRepositoryStats(ctx context.Context, repositoryID int64) (RepositoryStats, error) {
	rows, err := q.db.Query(ctx, getRepositoryStats, repositoryID)
	if err != nil {
		return RepositoryStats{}, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[RepositoryStats])
}

// markFetched sets one fetched flag, creating the stats row when needed.
func (q *Queries) markFetched(ctx context.Context, repositoryID int64, flag string) error {
	sql := "INSERT INTO repository_stats (repository_id, " + flag + ") VALUES ($1, TRUE) " +
		"ON CONFLICT (repository_id) DO UPDATE SET " + flag + " = TRUE, updated_at = NOW()"
	_, err := q.db.Exec(ctx, sql, repositoryID)
	return err
}

func (q *Queries) sendBatch(ctx context.Context, b *pgx.Batch) error {
	if b.Len() == 0 {
		return nil
	}
	return q.db.SendBatch(ctx, b).Close()
}

// ReplaceRepositoryLanguages deletes and reinserts the language breakdown.
func (q *Queries) ReplaceRepositoryLanguages(ctx context.Context, repositoryID int64, languages []model.LanguageShare) error {
	if _, err := q.db.Exec(ctx, `DELETE FROM repository_languages WHERE repository_id = $1`, repositoryID); err != nil {
		return err
	}
	b := &pgx.Batch{}
	for _, l := range languages {
		b.Queue(`INSERT INTO repository_languages (repository_id, language, bytes, percentage) VALUES ($1, $2, $3, $4)
ON CONFLICT (repository_id, language) DO NOTHING`, repositoryID, l.Name, l.Bytes, l.Percentage)
	}
	return q.sendBatch(ctx, b)
}

const listRepositoryLanguages = `
SELECT language, bytes, percentage FROM repository_languages
WHERE repository_id = $1 ORDER BY bytes DESC, language`

func (q *Queries) ListRepositoryLanguages(ctx context.Context, repositoryID int64) ([]RepositoryLanguage, error) {
	rows, err := q.db.Query(ctx, listRepositoryLanguages, repositoryID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[RepositoryLanguage])
}

// ReplaceRepositoryContributors deletes and reinserts contributors, de-duplicated by id,
// and marks contributors as fetched.
func (q *Queries) ReplaceRepositoryContributors(ctx context.Context, repositoryID int64, contributors []model.Contributor) error {
	ctx, span := startSpan(ctx, "ReplaceRepositoryContributors", attribute.Int64("repository.id", repositoryID))
	var err error
	defer func() { endSpan(span, err) }()

	if _, err = q.db.Exec(ctx, `DELETE FROM repository_contributors WHERE repository_id = $1`, repositoryID); err != nil {
		return err
	}
	seen := make(map[int64]bool, len(contributors))
	b := &pgx.Batch{}
	for _, c := range contributors {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		source := c.Source
		if source == "" {
			source = model.DataSourceAllTime
		}
		b.Queue(`INSERT INTO repository_contributors (repository_id, contributor_id, login, avatar_url, contributions, data_source)
VALUES ($1, $2, $3, $4, $5, $6)`, repositoryID, c.ID, c.Login, c.AvatarURL, c.Contributions, string(source))
	}
	if err = q.sendBatch(ctx, b); err != nil {
		return err
	}
	err = q.markFetched(ctx, repositoryID, backfillFlags[BackfillContributors])
	return err
}

const listRepositoryContributors = `
SELECT contributor_id, login, avatar_url, contributions, data_source FROM repository_contributors
WHERE repository_id = $1 ORDER BY contributions DESC, login LIMIT $2`

func (q *Queries) ListRepositoryContributors(ctx context.Context, repositoryID int64, limit int) ([]RepositoryContributor, error) {
	rows, err := q.db.Query(ctx, listRepositoryContributors, repositoryID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[RepositoryContributor])
}

const setCommitCounts = `
UPDATE repository_stats SET commits_last_month = $2, commits_last_year = $3, updated_at = NOW()
WHERE repository_id = $1`

// ReplaceCommitActivity deletes and reinserts the weekly histogram, derives the monthly and yearly
// commit counts from it and marks commit activity as fetched.
func (q *Queries) ReplaceCommitActivity(ctx context.Context, repositoryID int64, weeks []model.WeeklyActivity) error {
	if _, err := q.db.Exec(ctx, `DELETE FROM repository_commit_activity WHERE repository_id = $1`, repositoryID); err != nil {
		return err
	}

	sorted := make([]model.WeeklyActivity, len(weeks))
	copy(sorted, weeks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].WeekStart.Before(sorted[j].WeekStart) })

	b := &pgx.Batch{}
	month, year := 0, 0
	for i, w := range sorted {
		days := make([]int32, len(w.Days))
		for d, n := range w.Days {
			days[d] = int32(n)
		}
		b.Queue(`INSERT INTO repository_commit_activity (repository_id, week_start, total, days) VALUES ($1, $2, $3, $4)
ON CONFLICT (repository_id, week_start) DO NOTHING`, repositoryID, w.WeekStart.UTC().Truncate(24*time.Hour), w.Total, days)
		year += w.Total
		if i >= len(sorted)-4 {
			month += w.Total
		}
	}
	if err := q.sendBatch(ctx, b); err != nil {
		return err
	}
	if err := q.markFetched(ctx, repositoryID, backfillFlags[BackfillCommitActivity]); err != nil {
		return err
	}
	_, err := q.db.Exec(ctx, setCommitCounts, repositoryID, month, year)
	return err
}

const listCommitActivity = `
SELECT week_start, total, days FROM repository_commit_activity
WHERE repository_id = $1 ORDER BY week_start`

func (q *Queries) ListCommitActivity(ctx context.Context, repositoryID int64) ([]CommitActivityWeek, error) {
	rows, err := q.db.Query(ctx, listCommitActivity, repositoryID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[CommitActivityWeek])
}

// ReplaceRecentCommits deletes and reinserts recent commits and marks them as fetched.
func (q *Queries) ReplaceRecentCommits(ctx context.Context, repositoryID int64, commits []model.Commit) error {
	if _, err := q.db.Exec(ctx, `DELETE FROM repository_commits WHERE repository_id = $1`, repositoryID); err != nil {
		return err
	}
	b := &pgx.Batch{}
	for _, c := range commits {
		var login *string
		if c.AuthorLogin != "" {
			login = &c.AuthorLogin
		}
		b.Queue(`INSERT INTO repository_commits (repository_id, sha, message, author_login, author_name, committed_at, html_url)
VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (repository_id, sha) DO NOTHING`,
			repositoryID, c.SHA, c.Message, login, c.AuthorName, c.CommittedAt, c.URL)
	}
	if err := q.sendBatch(ctx, b); err != nil {
		return err
	}
	return q.markFetched(ctx, repositoryID, backfillFlags[BackfillRecentCommits])
}

const listRecentCommits = `
SELECT sha, message, author_login, author_name, committed_at, html_url FROM repository_commits
WHERE repository_id = $1 ORDER BY committed_at DESC LIMIT $2`

func (q *Queries) ListRecentCommits(ctx context.Context, repositoryID int64, limit int) ([]RepositoryCommit, error) {
	rows, err := q.db.Query(ctx, listRecentCommits, repositoryID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[RepositoryCommit])
}

const repositoryOverview = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE sync_status = 'complete'),
       COUNT(*) FILTER (WHERE sync_status = 'stub'),
       COUNT(*) FILTER (WHERE 'top' = ANY(categories)),
       COUNT(*) FILTER (WHERE 'growing' = ANY(categories)),
       COUNT(*) FILTER (WHERE 'trending' = ANY(categories)),
       COUNT(*) FILTER (WHERE 'trending_weekly' = ANY(categories)),
       COUNT(*) FILTER (WHERE 'trending_monthly' = ANY(categories)),
       COUNT(*) FILTER (WHERE 'trending_quarterly' = ANY(categories)),
       MAX(last_fetched)
FROM repositories`

const developerOverview = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE is_hall_of_fame),
       COUNT(*) FILTER (WHERE is_trending_expert),
       COUNT(*) FILTER (WHERE is_rising_star),
       COUNT(*) FILTER (WHERE is_badge_holder)
FROM developers`

// GetOverview returns table-wide counters.
func (q *Queries) GetOverview(ctx context.Context) (Overview, error) {
	ctx, span := startSpan(ctx, "GetOverview")
	var err error
	defer func() { endSpan(span, err) }()

	var o Overview
	var top, growing, trending, weekly, monthly, quarterly int64
	err = q.db.QueryRow(ctx, repositoryOverview).Scan(
		&o.Repositories, &o.Complete, &o.Stubs, &top, &growing, &trending, &weekly, &monthly, &quarterly, &o.LastFetched)
	if err != nil {
		return Overview{}, err
	}
	o.Categories = map[string]int64{
		model.CategoryTop:               top,
		model.CategoryGrowing:           growing,
		model.CategoryTrending:          trending,
		model.CategoryTrendingWeekly:    weekly,
		model.CategoryTrendingMonthly:   monthly,
		model.CategoryTrendingQuarterly: quarterly,
	}

	var hof, expert, rising, badge int64
	err = q.db.QueryRow(ctx, developerOverview).Scan(&o.Developers, &hof, &expert, &rising, &badge)
	if err != nil {
		return Overview{}, err
	}
	o.DeveloperCategories = map[string]int64{
		string(model.MissionHallOfFame):     hof,
		string(model.MissionTrendingExpert): expert,
		string(model.MissionRisingStar):     rising,
		string(model.MissionBadgeHolder):    badge,
	}
	return o, nil
}
