// internal/database/developers.go
package database

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"

	"githop/internal/model"
)

var developerColumns = strings.Join([]string{
	"d.id", "d.login", "d.name", "d.avatar_url", "d.html_url", "d.bio", "d.company", "d.location",
	"d.blog", "d.followers", "d.following", "d.public_repos", "d.total_stars_earned",
	"d.dominant_language", "d.badges", "d.personas", "d.language_expertise", "d.current_work",
	"d.primary_work", "d.is_hall_of_fame", "d.is_trending_expert", "d.is_rising_star",
	"d.is_badge_holder", "d.account_created_at", "d.last_fetched", "d.created_at",
}, ", ")

func developerScanTargets(d *Developer) []any {
	return []any{
		&d.ID, &d.Login, &d.Name, &d.AvatarURL, &d.HTMLURL, &d.Bio, &d.Company, &d.Location,
		&d.Blog, &d.Followers, &d.Following, &d.PublicRepos, &d.TotalStarsEarned,
		&d.DominantLanguage, &d.Badges, &d.Personas, &d.LanguageExpertise, &d.CurrentWork,
		&d.PrimaryWork, &d.IsHallOfFame, &d.IsTrendingExpert, &d.IsRisingStar,
		&d.IsBadgeHolder, &d.AccountCreatedAt, &d.LastFetched, &d.CreatedAt,
	}
}

func scanDevelopers(rows pgx.Rows) ([]Developer, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Developer, error) {
		var d Developer
		err := row.Scan(developerScanTargets(&d)...)
		return d, err
	})
}

const deleteReassignedDeveloper = `DELETE FROM developers WHERE id = $1 AND login <> $2`

var upsertDeveloper = `
INSERT INTO developers (
    id, login, name, avatar_url, html_url, bio, company, location, blog, followers, following,
    public_repos, total_stars_earned, dominant_language, badges, personas, language_expertise,
    current_work, primary_work, is_hall_of_fame, is_trending_expert, is_rising_star,
    is_badge_holder, account_created_at, last_fetched
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
    $21, $22, $23, $24, NOW()
)
ON CONFLICT (login) DO UPDATE SET
    name = EXCLUDED.name,
    avatar_url = EXCLUDED.avatar_url,
    html_url = EXCLUDED.html_url,
    bio = EXCLUDED.bio,
    company = EXCLUDED.company,
    location = EXCLUDED.location,
    blog = EXCLUDED.blog,
    followers = EXCLUDED.followers,
    following = EXCLUDED.following,
    public_repos = EXCLUDED.public_repos,
    total_stars_earned = EXCLUDED.total_stars_earned,
    dominant_language = EXCLUDED.dominant_language,
    badges = EXCLUDED.badges,
    personas = EXCLUDED.personas,
    language_expertise = EXCLUDED.language_expertise,
    current_work = EXCLUDED.current_work,
    primary_work = EXCLUDED.primary_work,
    is_hall_of_fame = developers.is_hall_of_fame OR EXCLUDED.is_hall_of_fame,
    is_trending_expert = developers.is_trending_expert OR EXCLUDED.is_trending_expert,
    is_rising_star = EXCLUDED.is_rising_star,
    is_badge_holder = EXCLUDED.is_badge_holder,
    account_created_at = COALESCE(EXCLUDED.account_created_at, developers.account_created_at),
    last_fetched = NOW()
RETURNING ` + strings.ReplaceAll(developerColumns, "d.", "")

// UpsertDeveloper writes a scored developer keyed by login. Hall-of-fame and trending-expert
// flags are sticky; the other mission flags are recomputed on every write.
func (q *Queries) UpsertDeveloper(ctx context.Context, arg UpsertDeveloperParams) (Developer, error) {
	ctx, span := startSpan(ctx, "UpsertDeveloper", attribute.String("developer.login", arg.Login))
	var err error
	defer func() { endSpan(span, err) }()

	badges := arg.Badges
	if badges == nil {
		badges = []model.Badge{}
	}
	var badgesJSON, personasJSON, expertiseJSON, currentJSON, primaryJSON []byte
	if badgesJSON, err = model.EncodeJSON(ctx, model.SchemaBadges, badges); err != nil {
		return Developer{}, err
	}
	if personasJSON, err = model.EncodeJSON(ctx, model.SchemaPersonas, arg.Personas); err != nil {
		return Developer{}, err
	}
	if expertiseJSON, err = model.EncodeJSON(ctx, model.SchemaLanguageExpertise, arg.LanguageExpertise); err != nil {
		return Developer{}, err
	}
	if currentJSON, err = model.EncodeJSON(ctx, model.SchemaWorkSummary, arg.CurrentWork); err != nil {
		return Developer{}, err
	}
	if primaryJSON, err = model.EncodeJSON(ctx, model.SchemaWorkSummary, arg.PrimaryWork); err != nil {
		return Developer{}, err
	}

	// A login can move to a new account id; the stale row goes first.
	if _, err = q.db.Exec(ctx, deleteReassignedDeveloper, arg.ID, arg.Login); err != nil {
		return Developer{}, err
	}

	var d Developer
	err = q.db.QueryRow(ctx, upsertDeveloper,
		arg.ID, arg.Login, arg.Name, arg.AvatarURL, arg.HTMLURL, arg.Bio, arg.Company, arg.Location,
		arg.Blog, arg.Followers, arg.Following, arg.PublicRepos, arg.TotalStarsEarned,
		arg.DominantLanguage, string(badgesJSON), string(personasJSON), string(expertiseJSON),
		string(currentJSON), string(primaryJSON), arg.IsHallOfFame, arg.IsTrendingExpert,
		arg.IsRisingStar, arg.IsBadgeHolder, arg.AccountCreatedAt,
	).Scan(developerScanTargets(&d)...)
	return d, err
}

// ReplaceDeveloperTopRepos deletes and reinserts the ranked top repositories of a developer.
func (q *Queries) ReplaceDeveloperTopRepos(ctx context.Context, developerID int64, repos []DeveloperTopRepo) error {
	if _, err := q.db.Exec(ctx, `DELETE FROM developer_top_repos WHERE developer_id = $1`, developerID); err != nil {
		return err
	}
	b := &pgx.Batch{}
	for _, r := range repos {
		b.Queue(`INSERT INTO developer_top_repos
(developer_id, repository_id, full_name, description, language, stars, score, is_primary, rank)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) ON CONFLICT (developer_id, repository_id) DO NOTHING`,
			developerID, r.RepositoryID, r.FullName, r.Description, r.Language, r.Stars, r.Score, r.IsPrimary, r.Rank)
	}
	return q.sendBatch(ctx, b)
}

var getDeveloperByLogin = `SELECT ` + developerColumns + ` FROM developers d WHERE lower(d.login) = lower($1)`

// GetDeveloperByLogin returns pgx.ErrNoRows when the developer is unknown.
func (q *Queries) GetDeveloperByLogin(ctx context.Context, login string) (Developer, error) {
	var d Developer
	err := q.db.QueryRow(ctx, getDeveloperByLogin, login).Scan(developerScanTargets(&d)...)
	return d, err
}

const listDeveloperTopRepos = `
SELECT repository_id, full_name, description, language, stars, score, is_primary, rank
FROM developer_top_repos WHERE developer_id = $1 ORDER BY rank`

func (q *Queries) ListDeveloperTopRepos(ctx context.Context, developerID int64) ([]DeveloperTopRepo, error) {
	rows, err := q.db.Query(ctx, listDeveloperTopRepos, developerID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[DeveloperTopRepo])
}

const listTrendingOwners = `
SELECT owner FROM repositories
WHERE categories && ARRAY['trending', 'trending_weekly']::text[]
  AND owner_type IS DISTINCT FROM 'Organization'
GROUP BY owner
ORDER BY MAX(stars_count) DESC, owner
LIMIT $1`

// ListTrendingOwners returns the user owners of currently trending repositories, biggest first.
// Organization owners are left out since they have no developer profile.
func (q *Queries) ListTrendingOwners(ctx context.Context, limit int) ([]string, error) {
	rows, err := q.db.Query(ctx, listTrendingOwners, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
