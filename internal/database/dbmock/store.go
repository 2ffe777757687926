// internal/database/dbmock/store.go
package dbmock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"githop/internal/database"
	"githop/internal/model"
)

// Store is a mock of the database.Store interface. ExecTx runs fn against the mock itself.
type Store struct {
	mock.Mock
}

var _ database.Store = (*Store)(nil)

func get[T any](args mock.Arguments, i int) T {
	v, _ := args.Get(i).(T)
	return v
}

func (m *Store) ExecTx(ctx context.Context, fn func(database.Querier) error) error {
	return fn(m)
}

func (m *Store) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Store) UpsertRepository(ctx context.Context, arg database.UpsertRepositoryParams) (database.Repository, error) {
	args := m.Called(ctx, arg)
	return get[database.Repository](args, 0), args.Error(1)
}
func (m *Store) InsertRepositoryStub(ctx context.Context, arg database.InsertRepositoryStubParams) (bool, error) {
	args := m.Called(ctx, arg)
	return args.Bool(0), args.Error(1)
}
func (m *Store) GetRepositoryByFullName(ctx context.Context, fullName string) (database.Repository, error) {
	args := m.Called(ctx, fullName)
	return get[database.Repository](args, 0), args.Error(1)
}
func (m *Store) GetRepositoryReadme(ctx context.Context, fullName string) (*string, error) {
	args := m.Called(ctx, fullName)
	return get[*string](args, 0), args.Error(1)
}
func (m *Store) ListStubRepositories(ctx context.Context, limit int) ([]database.RepositoryRef, error) {
	args := m.Called(ctx, limit)
	return get[[]database.RepositoryRef](args, 0), args.Error(1)
}
func (m *Store) ReconcileCategory(ctx context.Context, category string, ids []int64) error {
	args := m.Called(ctx, category, ids)
	return args.Error(0)
}
func (m *Store) CountRepositories(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return get[int64](args, 0), args.Error(1)
}
func (m *Store) ListRepositories(ctx context.Context, f database.RepositoryFilter) ([]database.RepositoryListRow, error) {
	args := m.Called(ctx, f)
	return get[[]database.RepositoryListRow](args, 0), args.Error(1)
}
func (m *Store) CountFilteredRepositories(ctx context.Context, f database.RepositoryFilter) (int64, error) {
	args := m.Called(ctx, f)
	return get[int64](args, 0), args.Error(1)
}
func (m *Store) ListLanguages(ctx context.Context, limit int) ([]database.LanguageCount, error) {
	args := m.Called(ctx, limit)
	return get[[]database.LanguageCount](args, 0), args.Error(1)
}
func (m *Store) ListRepositoriesForBackfill(ctx context.Context, arg database.BackfillParams) ([]database.RepositoryRef, error) {
	args := m.Called(ctx, arg)
	return get[[]database.RepositoryRef](args, 0), args.Error(1)
}
func (m *Store) ListRepositoriesMissingEmbedding(ctx context.Context, limit int) ([]database.EmbeddingCandidate, error) {
	args := m.Called(ctx, limit)
	return get[[]database.EmbeddingCandidate](args, 0), args.Error(1)
}
func (m *Store) UpdateRepositoryEmbedding(ctx context.Context, id int64, embedding []float32) error {
	args := m.Called(ctx, id, embedding)
	return args.Error(0)
}
func (m *Store) SearchRepositoriesByEmbedding(ctx context.Context, embedding []float32, limit int) ([]database.RepositoryListRow, error) {
	args := m.Called(ctx, embedding, limit)
	return get[[]database.RepositoryListRow](args, 0), args.Error(1)
}

func (m *Store) UpsertRepositoryStats(ctx context.Context, arg database.UpsertRepositoryStatsParams) error {
	args := m.Called(ctx, arg)
	return args.Error(0)
}
func (m *Store) GetRepositoryStats(ctx context.Context, repositoryID int64) (database.RepositoryStats, error) {
	args := m.Called(ctx, repositoryID)
	return get[database.RepositoryStats](args, 0), args.Error(1)
}
func (m *Store) ReplaceRepositoryLanguages(ctx context.Context, repositoryID int64, languages []model.LanguageShare) error {
	args := m.Called(ctx, repositoryID, languages)
	return args.Error(0)
}
func (m *Store) ListRepositoryLanguages(ctx context.Context, repositoryID int64) ([]database.RepositoryLanguage, error) {
	args := m.Called(ctx, repositoryID)
	return get[[]database.RepositoryLanguage](args, 0), args.Error(1)
}
func (m *Store) ReplaceRepositoryContributors(ctx context.Context, repositoryID int64, contributors []model.Contributor) error {
	args := m.Called(ctx, repositoryID, contributors)
	return args.Error(0)
}
func (m *Store) ListRepositoryContributors(ctx context.Context, repositoryID int64, limit int) ([]database.RepositoryContributor, error) {
	args := m.Called(ctx, repositoryID, limit)
	return get[[]database.RepositoryContributor](args, 0), args.Error(1)
}
func (m *Store) ReplaceCommitActivity(ctx context.Context, repositoryID int64, weeks []model.WeeklyActivity) error {
	args := m.Called(ctx, repositoryID, weeks)
	return args.Error(0)
}
func (m *Store) ListCommitActivity(ctx context.Context, repositoryID int64) ([]database.CommitActivityWeek, error) {
	args := m.Called(ctx, repositoryID)
	return get[[]database.CommitActivityWeek](args, 0), args.Error(1)
}
func (m *Store) ReplaceRecentCommits(ctx context.Context, repositoryID int64, commits []model.Commit) error {
	args := m.Called(ctx, repositoryID, commits)
	return args.Error(0)
}
func (m *Store) ListRecentCommits(ctx context.Context, repositoryID int64, limit int) ([]database.RepositoryCommit, error) {
	args := m.Called(ctx, repositoryID, limit)
	return get[[]database.RepositoryCommit](args, 0), args.Error(1)
}
func (m *Store) GetOverview(ctx context.Context) (database.Overview, error) {
	args := m.Called(ctx)
	return get[database.Overview](args, 0), args.Error(1)
}

func (m *Store) UpsertDeveloper(ctx context.Context, arg database.UpsertDeveloperParams) (database.Developer, error) {
	args := m.Called(ctx, arg)
	return get[database.Developer](args, 0), args.Error(1)
}
func (m *Store) ReplaceDeveloperTopRepos(ctx context.Context, developerID int64, repos []database.DeveloperTopRepo) error {
	args := m.Called(ctx, developerID, repos)
	return args.Error(0)
}
func (m *Store) GetDeveloperByLogin(ctx context.Context, login string) (database.Developer, error) {
	args := m.Called(ctx, login)
	return get[database.Developer](args, 0), args.Error(1)
}
func (m *Store) ListDeveloperTopRepos(ctx context.Context, developerID int64) ([]database.DeveloperTopRepo, error) {
	args := m.Called(ctx, developerID)
	return get[[]database.DeveloperTopRepo](args, 0), args.Error(1)
}
func (m *Store) ListDevelopers(ctx context.Context, f database.DeveloperFilter) ([]database.Developer, error) {
	args := m.Called(ctx, f)
	return get[[]database.Developer](args, 0), args.Error(1)
}
func (m *Store) ListTrendingOwners(ctx context.Context, limit int) ([]string, error) {
	args := m.Called(ctx, limit)
	return get[[]string](args, 0), args.Error(1)
}
