// internal/database/querier.go
package database

import (
	"context"
	"time"

	"githop/internal/model"
)

// Querier is the full set of queries used by the syncer and the API.
type Querier interface {
	// Repositories
	UpsertRepository(ctx context.Context, arg UpsertRepositoryParams) (Repository, error)
	InsertRepositoryStub(ctx context.Context, arg InsertRepositoryStubParams) (bool, error)
	GetRepositoryByFullName(ctx context.Context, fullName string) (Repository, error)
	GetRepositoryReadme(ctx context.Context, fullName string) (*string, error)
	ListStubRepositories(ctx context.Context, limit int) ([]RepositoryRef, error)
	ReconcileCategory(ctx context.Context, category string, ids []int64) error
	CountRepositories(ctx context.Context) (int64, error)
	ListRepositories(ctx context.Context, f RepositoryFilter) ([]RepositoryListRow, error)
	CountFilteredRepositories(ctx context.Context, f RepositoryFilter) (int64, error)
	ListLanguages(ctx context.Context, limit int) ([]LanguageCount, error)
	ListRepositoriesForBackfill(ctx context.Context, arg BackfillParams) ([]RepositoryRef, error)
	ListRepositoriesMissingEmbedding(ctx context.Context, limit int) ([]EmbeddingCandidate, error)
	UpdateRepositoryEmbedding(ctx context.Context, id int64, embedding []float32) error
	SearchRepositoriesByEmbedding(ctx context.Context, embedding []float32, limit int) ([]RepositoryListRow, error)

	// Stats and child tables
	UpsertRepositoryStats(ctx context.Context, arg UpsertRepositoryStatsParams) error
	GetRepositoryStats(ctx context.Context, repositoryID int64) (RepositoryStats, error)
	ReplaceRepositoryLanguages(ctx context.Context, repositoryID int64, languages []model.LanguageShare) error
	ListRepositoryLanguages(ctx context.Context, repositoryID int64) ([]RepositoryLanguage, error)
	ReplaceRepositoryContributors(ctx context.Context, repositoryID int64, contributors []model.Contributor) error
	ListRepositoryContributors(ctx context.Context, repositoryID int64, limit int) ([]RepositoryContributor, error)
	ReplaceCommitActivity(ctx context.Context, repositoryID int64, weeks []model.WeeklyActivity) error
	ListCommitActivity(ctx context.Context, repositoryID int64) ([]CommitActivityWeek, error)
	ReplaceRecentCommits(ctx context.Context, repositoryID int64, commits []model.Commit) error
	ListRecentCommits(ctx context.Context, repositoryID int64, limit int) ([]RepositoryCommit, error)
	GetOverview(ctx context.Context) (Overview, error)

	// Developers
	UpsertDeveloper(ctx context.Context, arg UpsertDeveloperParams) (Developer, error)
	ReplaceDeveloperTopRepos(ctx context.Context, developerID int64, repos []DeveloperTopRepo) error
	GetDeveloperByLogin(ctx context.Context, login string) (Developer, error)
	ListDeveloperTopRepos(ctx context.Context, developerID int64) ([]DeveloperTopRepo, error)
	ListDevelopers(ctx context.Context, f DeveloperFilter) ([]Developer, error)
	ListTrendingOwners(ctx context.Context, limit int) ([]string, error)
}

var _ Querier = (*Queries)(nil)

// UpsertRepositoryParams holds every column written when a repository is fully hydrated.
type UpsertRepositoryParams struct {
	ID              int64
	Owner           string
	OwnerType       string
	Name            string
	Description     *string
	HTMLURL         string
	Homepage        *string
	StarsCount      int
	ForksCount      int
	WatchersCount   int
	OpenIssuesCount int
	Language        *string
	Topics          []string
	License         *string
	Readme          *string
	DiskUsage       int
	IsArchived      bool
	IsFork          bool
	IsDisabled      bool
	IsTemplate      bool
	HasWiki         bool
	HasPages        bool
	HasDiscussions  bool
	Categories      []string
	RepoCreatedAt   *time.Time
	RepoUpdatedAt   *time.Time
	PushedAt        *time.Time
}

// InsertRepositoryStubParams holds the identity of a placeholder repository.
type InsertRepositoryStubParams struct {
	ID          int64
	Owner       string
	Name        string
	Description *string
	StarsCount  int
	Language    *string
}

// UpsertRepositoryStatsParams holds derived counters and scores. Nil pointers keep the stored value.
type UpsertRepositoryStatsParams struct {
	RepositoryID     int64
	CommitsLastMonth *int
	CommitsLastYear  *int
	StarsGrowth7d    *int
	StarsGrowth30d   *int
	StarsGrowth90d   *int
	ActivityScore    float64
	HealthScore      float64
}

// BackfillKind names the sub-resource a backfill job fetches.
type BackfillKind string

const (
	BackfillCommitActivity BackfillKind = "commit_activity"
	BackfillRecentCommits  BackfillKind = "recent_commits"
	BackfillContributors   BackfillKind = "contributors"
)

// BackfillMode selects which repositories a backfill job visits.
type BackfillMode string

const (
	// BackfillMissing visits rows whose fetched flag is still false.
	BackfillMissing BackfillMode = "missing"
	// BackfillAll visits the top rows by stars regardless of the flag.
	BackfillAll BackfillMode = "all"
)

// BackfillParams selects the work queue of a backfill job.
type BackfillParams struct {
	Kind  BackfillKind
	Mode  BackfillMode
	Limit int
}

// UpsertDeveloperParams holds a scored developer. JSON-valued fields are validated before writing.
type UpsertDeveloperParams struct {
	ID                int64
	Login             string
	Name              *string
	AvatarURL         string
	HTMLURL           string
	Bio               *string
	Company           *string
	Location          *string
	Blog              *string
	Followers         int
	Following         int
	PublicRepos       int
	TotalStarsEarned  int
	DominantLanguage  *string
	Badges            []model.Badge
	Personas          model.PersonaScores
	LanguageExpertise model.LanguageExpertise
	CurrentWork       model.WorkSummary
	PrimaryWork       model.WorkSummary
	IsHallOfFame      bool
	IsTrendingExpert  bool
	IsRisingStar      bool
	IsBadgeHolder     bool
	AccountCreatedAt  *time.Time
}
