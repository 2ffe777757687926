// internal/database/filters.go
package database

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"

	custom_errors "githop/internal/errors"
	"githop/internal/model"
)

const (
	DefaultLimit = 30
	MaxLimit     = 100

	// DefaultMinPersonaScore is the persona threshold used when a persona filter has no min_score.
	DefaultMinPersonaScore = 50
)

// args collects positional parameters for a dynamically built statement.
type args []any

func (a *args) add(v any) string {
	*a = append(*a, v)
	return "$" + strconv.Itoa(len(*a))
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	}
	return n
}

// RepositoryFilter selects repositories for the list endpoints.
type RepositoryFilter struct {
	Source       string
	Language     string
	Query        string
	Topic        string
	MinStars     int
	Sort         string
	Order        string
	Limit        int
	Offset       int
	Cursor       *RepoCursor
	IncludeStubs bool
}

var repositorySources = map[string]bool{
	"": true, "all": true,
	model.CategoryTop: true, model.CategoryGrowing: true, model.CategoryTrending: true,
	model.CategoryTrendingWeekly: true, model.CategoryTrendingMonthly: true, model.CategoryTrendingQuarterly: true,
}

var repositorySorts = map[string]string{
	"stars":      "r.stars_count",
	"forks":      "r.forks_count",
	"activity":   "COALESCE(s.activity_score, 0)",
	"health":     "COALESCE(s.health_score, 0)",
	"recent":     "r.pushed_at",
	"growth_7d":  "s.stars_growth_7d",
	"growth_30d": "s.stars_growth_30d",
	"growth_90d": "s.stars_growth_90d",
}

// trendSorts are the sources whose order is fixed to their growth window.
var trendSorts = map[string]string{
	model.CategoryTrendingWeekly:    "growth_7d",
	model.CategoryTrendingMonthly:   "growth_30d",
	model.CategoryTrendingQuarterly: "growth_90d",
}

// Normalize validates the filter and fills defaults.
func (f *RepositoryFilter) Normalize() error {
	f.Source = strings.ToLower(strings.TrimSpace(f.Source))
	if !repositorySources[f.Source] {
		return &custom_errors.ErrInvalidFilter{Field: "source", Value: f.Source}
	}
	if f.Source == "all" {
		f.Source = ""
	}
	if forced, ok := trendSorts[f.Source]; ok {
		f.Sort, f.Order = forced, "desc"
	}
	if f.Sort == "" {
		f.Sort = "stars"
	}
	if _, ok := repositorySorts[f.Sort]; !ok {
		return &custom_errors.ErrInvalidFilter{Field: "sort", Value: f.Sort}
	}
	switch strings.ToLower(f.Order) {
	case "", "desc":
		f.Order = "desc"
	case "asc":
		f.Order = "asc"
	default:
		return &custom_errors.ErrInvalidFilter{Field: "order", Value: f.Order}
	}
	if f.MinStars < 0 {
		return &custom_errors.ErrInvalidFilter{Field: "min_stars", Value: strconv.Itoa(f.MinStars)}
	}
	if f.Offset < 0 {
		return &custom_errors.ErrInvalidFilter{Field: "offset", Value: strconv.Itoa(f.Offset)}
	}
	f.Limit = clampLimit(f.Limit)
	if f.Cursor != nil && !f.UsesCursor() {
		return &custom_errors.ErrInvalidFilter{Field: "cursor", Value: "only supported with sort=stars&order=desc"}
	}
	return nil
}

// UsesCursor reports whether the filter's order supports keyset pagination.
func (f *RepositoryFilter) UsesCursor() bool {
	return f.Sort == "stars" && f.Order == "desc"
}

func (f *RepositoryFilter) where(a *args, withCursor bool) string {
	conds := []string{"TRUE"}
	if !f.IncludeStubs {
		conds = append(conds, "r.sync_status = 'complete'")
	}
	if f.Source != "" {
		conds = append(conds, a.add(f.Source)+"::text = ANY(r.categories)")
	}
	if f.Language != "" {
		conds = append(conds, "lower(r.language) = lower("+a.add(f.Language)+")")
	}
	if f.Topic != "" {
		conds = append(conds, a.add(strings.ToLower(f.Topic))+"::text = ANY(r.topics)")
	}
	if f.Query != "" {
		like := a.add(escapeLike(f.Query))
		raw := a.add(strings.ToLower(f.Query))
		conds = append(conds, "(r.full_name ILIKE "+like+" OR r.description ILIKE "+like+" OR "+raw+"::text = ANY(r.topics))")
	}
	if f.MinStars > 0 {
		conds = append(conds, "r.stars_count >= "+a.add(f.MinStars))
	}
	if withCursor && f.Cursor != nil {
		conds = append(conds, "(r.stars_count, r.id) < ("+a.add(f.Cursor.Stars)+"::int, "+a.add(f.Cursor.ID)+"::bigint)")
	}
	return strings.Join(conds, " AND ")
}

func (f *RepositoryFilter) orderBy() string {
	col := repositorySorts[f.Sort]
	dir := strings.ToUpper(f.Order)
	return "ORDER BY " + col + " " + dir + " NULLS LAST, r.id " + dir
}

// ListRepositories returns one page of repositories matching f. f must be normalized.
func (q *Queries) ListRepositories(ctx context.Context, f RepositoryFilter) ([]RepositoryListRow, error) {
	ctx, span := startSpan(ctx, "ListRepositories",
		attribute.String("filter.source", f.Source), attribute.String("filter.sort", f.Sort))
	var err error
	defer func() { endSpan(span, err) }()

	var a args
	parts := []string{
		"SELECT", repositoryColumns + ",", listStatsColumns,
		"FROM repositories r LEFT JOIN repository_stats s ON s.repository_id = r.id",
		"WHERE", f.where(&a, true),
		f.orderBy(),
		"LIMIT " + a.add(clampLimit(f.Limit)),
	}
	if f.Cursor == nil && f.Offset > 0 {
		parts = append(parts, "OFFSET "+a.add(f.Offset))
	}

	rows, err := q.db.Query(ctx, strings.Join(parts, " "), a...)
	if err != nil {
		return nil, err
	}
	var out []RepositoryListRow
	out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (RepositoryListRow, error) {
		var r RepositoryListRow
		err := row.Scan(listRowScanTargets(&r)...)
		return r, err
	})
	return out, err
}

// CountFilteredRepositories counts every repository matching f, ignoring pagination.
func (q *Queries) CountFilteredRepositories(ctx context.Context, f RepositoryFilter) (int64, error) {
	var a args
	sql := "SELECT COUNT(*) FROM repositories r WHERE " + f.where(&a, false)
	var n int64
	err := q.db.QueryRow(ctx, sql, a...).Scan(&n)
	return n, err
}

// DeveloperFilter selects developers for the list and search endpoints.
type DeveloperFilter struct {
	Query    string
	Persona  string
	MinScore *float64 // nil means DefaultMinPersonaScore when Persona is set
	Badge    string
	Language string
	Category string
	Sort     string
	Limit    int
	Offset   int
	Cursor   *DeveloperCursor
}

var developerCategories = map[string]string{
	string(model.MissionHallOfFame):     "d.is_hall_of_fame",
	string(model.MissionTrendingExpert): "d.is_trending_expert",
	string(model.MissionRisingStar):     "d.is_rising_star",
	string(model.MissionBadgeHolder):    "d.is_badge_holder",
}

var developerSorts = map[string]string{
	"followers": "d.followers",
	"stars":     "d.total_stars_earned",
	"repos":     "d.public_repos",
}

// Normalize validates the filter and fills defaults.
func (f *DeveloperFilter) Normalize() error {
	f.Persona = strings.ToLower(strings.TrimSpace(f.Persona))
	if f.Persona != "" && !model.ValidPersona(f.Persona) {
		return &custom_errors.ErrInvalidFilter{Field: "persona", Value: f.Persona}
	}
	if f.Persona != "" && f.MinScore == nil {
		def := float64(DefaultMinPersonaScore)
		f.MinScore = &def
	}
	if f.MinScore != nil && (*f.MinScore < 0 || *f.MinScore > 100) {
		return &custom_errors.ErrInvalidFilter{Field: "min_score", Value: strconv.FormatFloat(*f.MinScore, 'f', -1, 64)}
	}
	f.Badge = strings.ToUpper(strings.TrimSpace(f.Badge))
	if f.Badge != "" && !model.ValidBadgeType(f.Badge) {
		return &custom_errors.ErrInvalidFilter{Field: "badge", Value: f.Badge}
	}
	if _, ok := developerCategories[f.Category]; f.Category != "" && !ok {
		return &custom_errors.ErrInvalidFilter{Field: "category", Value: f.Category}
	}
	if f.Sort == "" {
		f.Sort = "followers"
		if f.Persona != "" {
			f.Sort = "persona"
		}
	}
	if _, ok := developerSorts[f.Sort]; !ok && !(f.Sort == "persona" && f.Persona != "") {
		return &custom_errors.ErrInvalidFilter{Field: "sort", Value: f.Sort}
	}
	if f.Offset < 0 {
		return &custom_errors.ErrInvalidFilter{Field: "offset", Value: strconv.Itoa(f.Offset)}
	}
	f.Limit = clampLimit(f.Limit)
	if f.Cursor != nil && !f.UsesCursor() {
		return &custom_errors.ErrInvalidFilter{Field: "cursor", Value: "only supported with sort=followers"}
	}
	return nil
}

// UsesCursor reports whether the filter's order supports keyset pagination.
func (f *DeveloperFilter) UsesCursor() bool {
	return f.Sort == "followers"
}

// where builds the WHERE clause for f and returns the persona score expression used by the
// persona sort.
func (f *DeveloperFilter) where(a *args) (where, personaExpr string) {
	conds := []string{"TRUE"}
	if f.Persona != "" {
		personaExpr = "COALESCE((d.personas->>" + a.add(f.Persona) + "::text)::float8, 0)"
		conds = append(conds, personaExpr+" >= "+a.add(*f.MinScore))
	}
	if f.Query != "" {
		like := a.add(escapeLike(f.Query))
		raw := a.add(f.Query)
		conds = append(conds, "(d.login ILIKE "+like+" OR d.name ILIKE "+like+" OR d.bio ILIKE "+like+
			" OR similarity(d.login, "+raw+"::text) > 0.3)")
	}
	if f.Badge != "" {
		containment, _ := json.Marshal([]map[string]string{{"type": f.Badge}})
		conds = append(conds, "d.badges @> "+a.add(string(containment))+"::jsonb")
	}
	if f.Language != "" {
		conds = append(conds, "lower(d.dominant_language) = lower("+a.add(f.Language)+")")
	}
	if col, ok := developerCategories[f.Category]; ok {
		conds = append(conds, col)
	}
	if f.Cursor != nil {
		conds = append(conds, "(d.followers, d.id) < ("+a.add(f.Cursor.Followers)+"::int, "+a.add(f.Cursor.ID)+"::bigint)")
	}
	return strings.Join(conds, " AND "), personaExpr
}

// ListDevelopers returns one page of developers matching f. f must be normalized.
func (q *Queries) ListDevelopers(ctx context.Context, f DeveloperFilter) ([]Developer, error) {
	ctx, span := startSpan(ctx, "ListDevelopers",
		attribute.String("filter.persona", f.Persona), attribute.String("filter.sort", f.Sort))
	var err error
	defer func() { endSpan(span, err) }()

	var a args
	where, personaExpr := f.where(&a)

	order := developerSorts[f.Sort]
	if f.Sort == "persona" {
		order = personaExpr
	}
	parts := []string{
		"SELECT", developerColumns, "FROM developers d",
		"WHERE", where,
		"ORDER BY", order, "DESC, d.id DESC",
		"LIMIT " + a.add(clampLimit(f.Limit)),
	}
	if f.Cursor == nil && f.Offset > 0 {
		parts = append(parts, "OFFSET "+a.add(f.Offset))
	}

	rows, err := q.db.Query(ctx, strings.Join(parts, " "), a...)
	if err != nil {
		return nil, err
	}
	var out []Developer
	out, err = scanDevelopers(rows)
	return out, err
}
