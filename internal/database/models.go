// internal/database/models.go
package database

import (
	"time"

	"githop/internal/model"
)

// Repository is a row of the repositories table without the README and embedding.
type Repository struct {
	ID              int64      `json:"id"`
	FullName        string     `json:"full_name"`
	Owner           string     `json:"owner"`
	Name            string     `json:"name"`
	Description     *string    `json:"description"`
	HTMLURL         string     `json:"html_url"`
	Homepage        *string    `json:"homepage"`
	StarsCount      int        `json:"stars_count"`
	ForksCount      int        `json:"forks_count"`
	WatchersCount   int        `json:"watchers_count"`
	OpenIssuesCount int        `json:"open_issues_count"`
	Language        *string    `json:"language"`
	Topics          []string   `json:"topics"`
	License         *string    `json:"license"`
	DiskUsage       int        `json:"disk_usage"`
	IsArchived      bool       `json:"is_archived"`
	IsFork          bool       `json:"is_fork"`
	IsDisabled      bool       `json:"is_disabled"`
	IsTemplate      bool       `json:"is_template"`
	HasWiki         bool       `json:"has_wiki"`
	HasPages        bool       `json:"has_pages"`
	HasDiscussions  bool       `json:"has_discussions"`
	Categories      []string   `json:"categories"`
	SyncStatus      string     `json:"sync_status"`
	RepoCreatedAt   *time.Time `json:"repo_created_at"`
	RepoUpdatedAt   *time.Time `json:"repo_updated_at"`
	PushedAt        *time.Time `json:"pushed_at"`
	LastFetched     time.Time  `json:"last_fetched"`
	CreatedAt       time.Time  `json:"created_at"`
}

// RepositoryListRow is a repository joined with its headline stats.
type RepositoryListRow struct {
	Repository
	ActivityScore    float64  `json:"activity_score"`
	HealthScore      float64  `json:"health_score"`
	StarsGrowth7d    *int     `json:"stars_growth_7d"`
	StarsGrowth30d   *int     `json:"stars_growth_30d"`
	StarsGrowth90d   *int     `json:"stars_growth_90d"`
	CommitsLastMonth int      `json:"commits_last_month"`
	Distance         *float64 `json:"distance,omitempty"`
}

// RepositoryRef identifies a repository for a worker job.
type RepositoryRef struct {
	ID       int64
	Owner    string
	Name     string
	FullName string
}

// RepositoryStats is a row of repository_stats.
type RepositoryStats struct {
	RepositoryID          int64     `json:"repository_id"`
	CommitsLastMonth      int       `json:"commits_last_month"`
	CommitsLastYear       int       `json:"commits_last_year"`
	StarsGrowth7d         *int      `json:"stars_growth_7d"`
	StarsGrowth30d        *int      `json:"stars_growth_30d"`
	StarsGrowth90d        *int      `json:"stars_growth_90d"`
	ActivityScore         float64   `json:"activity_score"`
	HealthScore           float64   `json:"health_score"`
	CommitActivityFetched bool      `json:"commit_activity_fetched"`
	RecentCommitsFetched  bool      `json:"recent_commits_fetched"`
	ContributorsFetched   bool      `json:"contributors_fetched"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// RepositoryLanguage is a row of repository_languages.
type RepositoryLanguage struct {
	Language   string  `json:"language"`
	Bytes      int64   `json:"bytes"`
	Percentage float64 `json:"percentage"`
}

// RepositoryContributor is a row of repository_contributors.
type RepositoryContributor struct {
	ContributorID int64  `json:"contributor_id"`
	Login         string `json:"login"`
	AvatarURL     string `json:"avatar_url"`
	Contributions int    `json:"contributions"`
	DataSource    string `json:"data_source"`
}

// CommitActivityWeek is a row of repository_commit_activity.
type CommitActivityWeek struct {
	WeekStart time.Time `json:"week_start"`
	Total     int       `json:"total"`
	Days      []int32   `json:"days"`
}

// RepositoryCommit is a row of repository_commits.
type RepositoryCommit struct {
	SHA         string    `json:"sha"`
	Message     string    `json:"message"`
	AuthorLogin *string   `json:"author_login"`
	AuthorName  string    `json:"author_name"`
	CommittedAt time.Time `json:"committed_at"`
	HTMLURL     string    `json:"html_url"`
}

// EmbeddingCandidate is a repository still lacking an embedding.
type EmbeddingCandidate struct {
	ID          int64
	FullName    string
	Description *string
	Topics      []string
	Language    *string
	Readme      *string
}

// LanguageCount is the number of stored repositories per primary language.
type LanguageCount struct {
	Language string `json:"language"`
	Count    int64  `json:"count"`
}

// Developer is a row of the developers table.
type Developer struct {
	ID                int64                   `json:"id"`
	Login             string                  `json:"login"`
	Name              *string                 `json:"name"`
	AvatarURL         string                  `json:"avatar_url"`
	HTMLURL           string                  `json:"html_url"`
	Bio               *string                 `json:"bio"`
	Company           *string                 `json:"company"`
	Location          *string                 `json:"location"`
	Blog              *string                 `json:"blog"`
	Followers         int                     `json:"followers"`
	Following         int                     `json:"following"`
	PublicRepos       int                     `json:"public_repos"`
	TotalStarsEarned  int                     `json:"total_stars_earned"`
	DominantLanguage  *string                 `json:"dominant_language"`
	Badges            []model.Badge           `json:"badges"`
	Personas          model.PersonaScores     `json:"personas"`
	LanguageExpertise model.LanguageExpertise `json:"language_expertise"`
	CurrentWork       *model.WorkSummary      `json:"current_work"`
	PrimaryWork       *model.WorkSummary      `json:"primary_work"`
	IsHallOfFame      bool                    `json:"is_hall_of_fame"`
	IsTrendingExpert  bool                    `json:"is_trending_expert"`
	IsRisingStar      bool                    `json:"is_rising_star"`
	IsBadgeHolder     bool                    `json:"is_badge_holder"`
	AccountCreatedAt  *time.Time              `json:"account_created_at"`
	LastFetched       time.Time               `json:"last_fetched"`
	CreatedAt         time.Time               `json:"created_at"`
}

// DeveloperTopRepo is a row of developer_top_repos.
type DeveloperTopRepo struct {
	RepositoryID int64   `json:"repository_id"`
	FullName     string  `json:"full_name"`
	Description  *string `json:"description"`
	Language     *string `json:"language"`
	Stars        int     `json:"stars"`
	Score        float64 `json:"score"`
	IsPrimary    bool    `json:"is_primary"`
	Rank         int     `json:"rank"`
}

// Overview holds the counters served by the stats endpoint.
type Overview struct {
	Repositories        int64            `json:"repositories"`
	Complete            int64            `json:"complete"`
	Stubs               int64            `json:"stubs"`
	Categories          map[string]int64 `json:"categories"`
	Developers          int64            `json:"developers"`
	DeveloperCategories map[string]int64 `json:"developer_categories"`
	LastFetched         *time.Time       `json:"last_fetched"`
}
