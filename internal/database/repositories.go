// internal/database/repositories.go
package database

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"go.opentelemetry.io/otel/attribute"

	custom_errors "githop/internal/errors"
	"githop/internal/model"
)

var repositoryColumns = strings.Join([]string{
	"r.id", "r.full_name", "r.owner", "r.name", "r.description", "r.html_url", "r.homepage",
	"r.stars_count", "r.forks_count", "r.watchers_count", "r.open_issues_count", "r.language",
	"r.topics", "r.license", "r.disk_usage", "r.is_archived", "r.is_fork", "r.is_disabled",
	"r.is_template", "r.has_wiki", "r.has_pages", "r.has_discussions", "r.categories",
	"r.sync_status", "r.repo_created_at", "r.repo_updated_at", "r.pushed_at", "r.last_fetched",
	"r.created_at",
}, ", ")

var listStatsColumns = strings.Join([]string{
	"COALESCE(s.activity_score, 0)", "COALESCE(s.health_score, 0)", "s.stars_growth_7d",
	"s.stars_growth_30d", "s.stars_growth_90d", "COALESCE(s.commits_last_month, 0)",
}, ", ")

func repositoryScanTargets(r *Repository) []any {
	return []any{
		&r.ID, &r.FullName, &r.Owner, &r.Name, &r.Description, &r.HTMLURL, &r.Homepage,
		&r.StarsCount, &r.ForksCount, &r.WatchersCount, &r.OpenIssuesCount, &r.Language,
		&r.Topics, &r.License, &r.DiskUsage, &r.IsArchived, &r.IsFork, &r.IsDisabled,
		&r.IsTemplate, &r.HasWiki, &r.HasPages, &r.HasDiscussions, &r.Categories,
		&r.SyncStatus, &r.RepoCreatedAt, &r.RepoUpdatedAt, &r.PushedAt, &r.LastFetched,
		&r.CreatedAt,
	}
}

func listRowScanTargets(r *RepositoryListRow) []any {
	return append(repositoryScanTargets(&r.Repository),
		&r.ActivityScore, &r.HealthScore, &r.StarsGrowth7d, &r.StarsGrowth30d, &r.StarsGrowth90d,
		&r.CommitsLastMonth)
}

// NormalizeCategories returns the sorted, de-duplicated categories without the stub tag.
func NormalizeCategories(categories []string) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		if c == "" || c == model.CategoryStub {
			continue
		}
		out = append(out, c)
	}
	sort.Strings(out)
	return slices.Compact(out)
}

const deleteRenamedRepository = `DELETE FROM repositories WHERE full_name = $1 AND id <> $2`

var upsertRepository = `
INSERT INTO repositories (
    id, full_name, owner, name, description, html_url, homepage, stars_count, forks_count,
    watchers_count, open_issues_count, language, topics, license, readme, disk_usage,
    is_archived, is_fork, is_disabled, is_template, has_wiki, has_pages, has_discussions,
    categories, sync_status, repo_created_at, repo_updated_at, pushed_at, last_fetched, owner_type
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
    $21, $22, $23, $24, 'complete', $25, $26, $27, NOW(), NULLIF($28, '')
)
ON CONFLICT (id) DO UPDATE SET
    full_name = EXCLUDED.full_name,
    owner = EXCLUDED.owner,
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    html_url = EXCLUDED.html_url,
    homepage = EXCLUDED.homepage,
    stars_count = EXCLUDED.stars_count,
    forks_count = EXCLUDED.forks_count,
    watchers_count = EXCLUDED.watchers_count,
    open_issues_count = EXCLUDED.open_issues_count,
    language = EXCLUDED.language,
    topics = EXCLUDED.topics,
    license = EXCLUDED.license,
    readme = COALESCE(EXCLUDED.readme, repositories.readme),
    disk_usage = EXCLUDED.disk_usage,
    is_archived = EXCLUDED.is_archived,
    is_fork = EXCLUDED.is_fork,
    is_disabled = EXCLUDED.is_disabled,
    is_template = EXCLUDED.is_template,
    has_wiki = EXCLUDED.has_wiki,
    has_pages = EXCLUDED.has_pages,
    has_discussions = EXCLUDED.has_discussions,
    categories = ARRAY(
        SELECT DISTINCT c FROM unnest(repositories.categories || EXCLUDED.categories) AS c
        WHERE c <> 'stub' ORDER BY c
    ),
    sync_status = 'complete',
    repo_created_at = COALESCE(EXCLUDED.repo_created_at, repositories.repo_created_at),
    repo_updated_at = COALESCE(EXCLUDED.repo_updated_at, repositories.repo_updated_at),
    pushed_at = COALESCE(EXCLUDED.pushed_at, repositories.pushed_at),
    owner_type = COALESCE(EXCLUDED.owner_type, repositories.owner_type),
    last_fetched = NOW()
RETURNING ` + strings.ReplaceAll(repositoryColumns, "r.", "")

// UpsertRepository writes a fully hydrated repository. Categories are merged with the stored set,
// the stub tag is dropped and the row is marked complete.
func (q *Queries) UpsertRepository(ctx context.Context, arg UpsertRepositoryParams) (Repository, error) {
	ctx, span := startSpan(ctx, "UpsertRepository", attribute.Int64("repository.id", arg.ID))
	var err error
	defer func() { endSpan(span, err) }()

	fullName := arg.Owner + "/" + arg.Name
	if _, err = q.db.Exec(ctx, deleteRenamedRepository, fullName, arg.ID); err != nil {
		return Repository{}, err
	}

	topics := arg.Topics
	if topics == nil {
		topics = []string{}
	}

	var r Repository
	err = q.db.QueryRow(ctx, upsertRepository,
		arg.ID, fullName, arg.Owner, arg.Name, arg.Description, arg.HTMLURL, arg.Homepage,
		arg.StarsCount, arg.ForksCount, arg.WatchersCount, arg.OpenIssuesCount, arg.Language,
		topics, arg.License, arg.Readme, arg.DiskUsage, arg.IsArchived, arg.IsFork,
		arg.IsDisabled, arg.IsTemplate, arg.HasWiki, arg.HasPages, arg.HasDiscussions,
		NormalizeCategories(arg.Categories), arg.RepoCreatedAt, arg.RepoUpdatedAt, arg.PushedAt,
		arg.OwnerType,
	).Scan(repositoryScanTargets(&r)...)
	return r, err
}

const insertRepositoryStub = `
INSERT INTO repositories (id, full_name, owner, name, description, html_url, stars_count, language, categories, sync_status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, ARRAY['stub'], 'stub')
ON CONFLICT DO NOTHING`

// InsertRepositoryStub inserts a placeholder row unless the repository already exists.
// It reports whether a row was inserted.
func (q *Queries) InsertRepositoryStub(ctx context.Context, arg InsertRepositoryStubParams) (bool, error) {
	fullName := arg.Owner + "/" + arg.Name
	tag, err := q.db.Exec(ctx, insertRepositoryStub,
		arg.ID, fullName, arg.Owner, arg.Name, arg.Description, "https://github.com/"+fullName,
		arg.StarsCount, arg.Language)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

var getRepositoryByFullName = `SELECT ` + repositoryColumns + ` FROM repositories r WHERE lower(r.full_name) = lower($1)`

// GetRepositoryByFullName returns pgx.ErrNoRows when the repository is unknown.
func (q *Queries) GetRepositoryByFullName(ctx context.Context, fullName string) (Repository, error) {
	var r Repository
	err := q.db.QueryRow(ctx, getRepositoryByFullName, fullName).Scan(repositoryScanTargets(&r)...)
	return r, err
}

const getRepositoryReadme = `SELECT readme FROM repositories WHERE lower(full_name) = lower($1)`

func (q *Queries) GetRepositoryReadme(ctx context.Context, fullName string) (*string, error) {
	var readme *string
	err := q.db.QueryRow(ctx, getRepositoryReadme, fullName).Scan(&readme)
	return readme, err
}

const listStubRepositories = `
SELECT id, owner, name, full_name FROM repositories
WHERE sync_status = 'stub'
ORDER BY stars_count DESC, id DESC
LIMIT $1`

func (q *Queries) ListStubRepositories(ctx context.Context, limit int) ([]RepositoryRef, error) {
	return q.listRefs(ctx, listStubRepositories, limit)
}

func (q *Queries) listRefs(ctx context.Context, sql string, args ...any) ([]RepositoryRef, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (RepositoryRef, error) {
		var r RepositoryRef
		err := row.Scan(&r.ID, &r.Owner, &r.Name, &r.FullName)
		return r, err
	})
}

const removeCategory = `
UPDATE repositories SET categories = array_remove(categories, $1::text)
WHERE $1::text = ANY(categories) AND NOT (id = ANY($2::bigint[]))`

const addCategory = `
UPDATE repositories SET categories = array_append(categories, $1::text)
WHERE id = ANY($2::bigint[]) AND NOT ($1::text = ANY(categories))`

// ReconcileCategory makes ids the exact set of repositories tagged with category.
// Other tags are left untouched.
func (q *Queries) ReconcileCategory(ctx context.Context, category string, ids []int64) error {
	ctx, span := startSpan(ctx, "ReconcileCategory", attribute.String("category", category))
	var err error
	defer func() { endSpan(span, err) }()

	if ids == nil {
		ids = []int64{}
	}
	if _, err = q.db.Exec(ctx, removeCategory, category, ids); err != nil {
		return err
	}
	_, err = q.db.Exec(ctx, addCategory, category, ids)
	return err
}

const countRepositories = `SELECT COUNT(*) FROM repositories`

func (q *Queries) CountRepositories(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countRepositories).Scan(&n)
	return n, err
}

const listLanguages = `
SELECT language, COUNT(*) FROM repositories
WHERE language IS NOT NULL AND sync_status = 'complete'
GROUP BY language
ORDER BY COUNT(*) DESC, language
LIMIT $1`

func (q *Queries) ListLanguages(ctx context.Context, limit int) ([]LanguageCount, error) {
	rows, err := q.db.Query(ctx, listLanguages, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[LanguageCount])
}

var backfillFlags = map[BackfillKind]string{
	BackfillCommitActivity: "commit_activity_fetched",
	BackfillRecentCommits:  "recent_commits_fetched",
	BackfillContributors:   "contributors_fetched",
}

// ListRepositoriesForBackfill returns the work queue of a backfill job.
func (q *Queries) ListRepositoriesForBackfill(ctx context.Context, arg BackfillParams) ([]RepositoryRef, error) {
	flag, ok := backfillFlags[arg.Kind]
	if !ok {
		return nil, &custom_errors.ErrInvalidFilter{Field: "kind", Value: string(arg.Kind)}
	}

	where := "r.sync_status = 'complete'"
	switch arg.Mode {
	case BackfillMissing, "":
		where += " AND COALESCE(s." + flag + ", FALSE) = FALSE"
	case BackfillAll:
	default:
		return nil, &custom_errors.ErrInvalidFilter{Field: "mode", Value: string(arg.Mode)}
	}

	sql := strings.Join([]string{
		"SELECT r.id, r.owner, r.name, r.full_name FROM repositories r",
		"LEFT JOIN repository_stats s ON s.repository_id = r.id",
		"WHERE", where,
		"ORDER BY r.stars_count DESC, r.id DESC",
		"LIMIT $1",
	}, " ")
	return q.listRefs(ctx, sql, arg.Limit)
}

const listRepositoriesMissingEmbedding = `
SELECT id, full_name, description, topics, language, readme FROM repositories
WHERE embedding IS NULL AND sync_status = 'complete'
ORDER BY stars_count DESC, id DESC
LIMIT $1`

func (q *Queries) ListRepositoriesMissingEmbedding(ctx context.Context, limit int) ([]EmbeddingCandidate, error) {
	rows, err := q.db.Query(ctx, listRepositoriesMissingEmbedding, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[EmbeddingCandidate])
}

const updateRepositoryEmbedding = `UPDATE repositories SET embedding = $2 WHERE id = $1`

func (q *Queries) UpdateRepositoryEmbedding(ctx context.Context, id int64, embedding []float32) error {
	_, err := q.db.Exec(ctx, updateRepositoryEmbedding, id, pgvector.NewVector(embedding))
	return err
}

var searchRepositoriesByEmbedding = strings.Join([]string{
	"SELECT", repositoryColumns + ",", listStatsColumns + ",", "r.embedding <=> $1 AS distance",
	"FROM repositories r LEFT JOIN repository_stats s ON s.repository_id = r.id",
	"WHERE r.embedding IS NOT NULL",
	"ORDER BY r.embedding <=> $1",
	"LIMIT $2",
}, " ")

// SearchRepositoriesByEmbedding orders repositories by cosine distance to embedding.
func (q *Queries) SearchRepositoriesByEmbedding(ctx context.Context, embedding []float32, limit int) ([]RepositoryListRow, error) {
	ctx, span := startSpan(ctx, "SearchRepositoriesByEmbedding", attribute.Int("limit", limit))
	var err error
	defer func() { endSpan(span, err) }()

	rows, err := q.db.Query(ctx, searchRepositoriesByEmbedding, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, err
	}
	var out []RepositoryListRow
	out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (RepositoryListRow, error) {
		var r RepositoryListRow
		var distance float64
		err := row.Scan(append(listRowScanTargets(&r), &distance)...)
		r.Distance = &distance
		return r, err
	})
	return out, err
}
