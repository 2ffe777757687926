// internal/syncer/syncer_test.go
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"githop/internal/database"
	"githop/internal/database/dbmock"
	custom_errors "githop/internal/errors"
	"githop/internal/gharchive"
	"githop/internal/model"
)

// MockGitHub is a mock of the GitHub interface.
type MockGitHub struct {
	mock.Mock
}

func get[T any](args mock.Arguments, i int) T {
	v, _ := args.Get(i).(T)
	return v
}

func (m *MockGitHub) SearchRepositories(ctx context.Context, query, sort string, target int) ([]*model.Repository, error) {
	args := m.Called(ctx, query, sort, target)
	return get[[]*model.Repository](args, 0), args.Error(1)
}
func (m *MockGitHub) SearchUsers(ctx context.Context, query, sort string, target int) ([]string, error) {
	args := m.Called(ctx, query, sort, target)
	return get[[]string](args, 0), args.Error(1)
}
func (m *MockGitHub) GetRepositoryDetails(ctx context.Context, owner, name string) (*model.Repository, error) {
	args := m.Called(ctx, owner, name)
	return get[*model.Repository](args, 0), args.Error(1)
}
func (m *MockGitHub) GetRepository(ctx context.Context, owner, name string) (*model.Repository, error) {
	args := m.Called(ctx, owner, name)
	return get[*model.Repository](args, 0), args.Error(1)
}
func (m *MockGitHub) ListLanguages(ctx context.Context, owner, name string) ([]model.LanguageShare, error) {
	args := m.Called(ctx, owner, name)
	return get[[]model.LanguageShare](args, 0), args.Error(1)
}
func (m *MockGitHub) GetDeveloperProfile(ctx context.Context, login string) (*model.DeveloperProfile, error) {
	args := m.Called(ctx, login)
	return get[*model.DeveloperProfile](args, 0), args.Error(1)
}
func (m *MockGitHub) GetCommitActivity(ctx context.Context, owner, name string) ([]model.WeeklyActivity, error) {
	args := m.Called(ctx, owner, name)
	return get[[]model.WeeklyActivity](args, 0), args.Error(1)
}
func (m *MockGitHub) ListRecentCommits(ctx context.Context, owner, name string, limit int) ([]model.Commit, error) {
	args := m.Called(ctx, owner, name, limit)
	return get[[]model.Commit](args, 0), args.Error(1)
}
func (m *MockGitHub) FetchContributors(ctx context.Context, owner, name string, limit int) ([]model.Contributor, error) {
	args := m.Called(ctx, owner, name, limit)
	return get[[]model.Contributor](args, 0), args.Error(1)
}

type mockTrends struct {
	mock.Mock
}

func (m *mockTrends) TopStarred(ctx context.Context, p gharchive.Period) ([]model.TrendingRepo, error) {
	args := m.Called(ctx, p)
	return get[[]model.TrendingRepo](args, 0), args.Error(1)
}

type fakeEmbedder struct {
	dims int
	err  error
}

func (f fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return make([]float32, f.dims), nil
}

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestSyncer(store *dbmock.Store, gh *MockGitHub, options ...Option) *Syncer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	opts := DefaultOptions()
	opts.RequestDelay = 0
	opts.RateLimitPause = 0
	options = append([]Option{WithClock(func() time.Time { return testNow })}, options...)
	return NewSyncer(store, gh, logger, opts, options...)
}

func strPtr(s string) *string { return &s }

func TestCategoryQuery(t *testing.T) {
	q, err := CategoryQuery(model.CategoryTop, testNow)
	require.NoError(t, err)
	assert.Equal(t, "stars:>10000", q)

	q, err = CategoryQuery(model.CategoryGrowing, testNow)
	require.NoError(t, err)
	assert.Equal(t, "created:>2024-02-14 stars:>100", q)

	q, err = CategoryQuery(model.CategoryTrending, testNow)
	require.NoError(t, err)
	assert.Equal(t, "created:>2024-03-08", q)

	_, err = CategoryQuery("stub", testNow)
	var invalid *custom_errors.ErrInvalidFilter
	assert.ErrorAs(t, err, &invalid)
}

func TestSyncer_SyncTop(t *testing.T) {
	ctx := context.Background()

	t.Run("hydrates results, falls back to search payload and reconciles", func(t *testing.T) {
		store, gh := new(dbmock.Store), new(MockGitHub)
		s := newTestSyncer(store, gh)

		found := []*model.Repository{
			{ID: 1, Owner: "golang", Name: "go", StarsCount: 100},
			{ID: 2, Owner: "rust-lang", Name: "rust", StarsCount: 90},
		}
		gh.On("SearchRepositories", mock.Anything, "stars:>10000", "stars", 200).Return(found, nil).Once()
		details := &model.Repository{
			ID: 1, Owner: "golang", Name: "go", StarsCount: 101, CommitsLastMonth: 40, CommitsLastYear: 500,
			Languages: []model.LanguageShare{{Name: "Go", Bytes: 10, Percentage: 100}},
			PushedAt:  testNow.Add(-24 * time.Hour),
		}
		gh.On("GetRepositoryDetails", mock.Anything, "golang", "go").Return(details, nil).Once()
		gh.On("GetRepositoryDetails", mock.Anything, "rust-lang", "rust").Return(nil, errors.New("graphql down")).Once()
		gh.On("GetRepository", mock.Anything, "rust-lang", "rust").Return(nil, errors.New("rest down")).Once()

		store.On("UpsertRepository", mock.Anything, mock.MatchedBy(func(p database.UpsertRepositoryParams) bool {
			return p.ID == 1 && p.StarsCount == 101 && assert.ObjectsAreEqual([]string{"top"}, p.Categories)
		})).Return(database.Repository{ID: 1}, nil).Once()
		store.On("UpsertRepository", mock.Anything, mock.MatchedBy(func(p database.UpsertRepositoryParams) bool {
			return p.ID == 2 && p.StarsCount == 90
		})).Return(database.Repository{ID: 2}, nil).Once()
		store.On("ReplaceRepositoryLanguages", mock.Anything, int64(1), details.Languages).Return(nil).Once()
		store.On("UpsertRepositoryStats", mock.Anything, mock.MatchedBy(func(p database.UpsertRepositoryStatsParams) bool {
			return p.RepositoryID == 1 && p.CommitsLastMonth != nil && *p.CommitsLastMonth == 40 && p.HealthScore == 80
		})).Return(nil).Once()
		store.On("UpsertRepositoryStats", mock.Anything, mock.MatchedBy(func(p database.UpsertRepositoryStatsParams) bool {
			return p.RepositoryID == 2 && p.CommitsLastMonth == nil && p.CommitsLastYear == nil
		})).Return(nil).Once()
		store.On("ReconcileCategory", mock.Anything, "top", []int64{1, 2}).Return(nil).Once()

		err := s.SyncTop(ctx)

		require.NoError(t, err)
		gh.AssertExpectations(t)
		store.AssertExpectations(t)
		store.AssertNumberOfCalls(t, "ReplaceRepositoryLanguages", 1)
	})

	t.Run("REST fills the row and its languages when GraphQL fails", func(t *testing.T) {
		store, gh := new(dbmock.Store), new(MockGitHub)
		s := newTestSyncer(store, gh)

		gh.On("SearchRepositories", mock.Anything, "stars:>10000", "stars", 200).
			Return([]*model.Repository{{ID: 6, Owner: "e", Name: "f", StarsCount: 10}}, nil).Once()
		gh.On("GetRepositoryDetails", mock.Anything, "e", "f").Return(nil, errors.New("graphql down")).Once()
		rest := &model.Repository{ID: 6, Owner: "e", OwnerType: model.OwnerTypeOrganization, Name: "f", StarsCount: 12, License: strPtr("MIT")}
		gh.On("GetRepository", mock.Anything, "e", "f").Return(rest, nil).Once()
		langs := []model.LanguageShare{{Name: "Rust", Bytes: 30, Percentage: 75}, {Name: "C", Bytes: 10, Percentage: 25}}
		gh.On("ListLanguages", mock.Anything, "e", "f").Return(langs, nil).Once()

		store.On("UpsertRepository", mock.Anything, mock.MatchedBy(func(p database.UpsertRepositoryParams) bool {
			return p.ID == 6 && p.StarsCount == 12 && p.License != nil && *p.License == "MIT" &&
				p.OwnerType == model.OwnerTypeOrganization
		})).Return(database.Repository{ID: 6}, nil).Once()
		store.On("ReplaceRepositoryLanguages", mock.Anything, int64(6), langs).Return(nil).Once()
		store.On("UpsertRepositoryStats", mock.Anything, mock.MatchedBy(func(p database.UpsertRepositoryStatsParams) bool {
			return p.RepositoryID == 6 && p.CommitsLastMonth == nil
		})).Return(nil).Once()
		store.On("ReconcileCategory", mock.Anything, "top", []int64{6}).Return(nil).Once()

		require.NoError(t, s.SyncTop(ctx))
		gh.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("search failure does not reconcile", func(t *testing.T) {
		store, gh := new(dbmock.Store), new(MockGitHub)
		s := newTestSyncer(store, gh)
		gh.On("SearchRepositories", mock.Anything, mock.Anything, "stars", 200).Return(nil, errors.New("boom")).Once()

		err := s.SyncTop(ctx)

		assert.Error(t, err)
		store.AssertNotCalled(t, "ReconcileCategory", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("failed writes are skipped and empty passes keep tags", func(t *testing.T) {
		store, gh := new(dbmock.Store), new(MockGitHub)
		s := newTestSyncer(store, gh)
		gh.On("SearchRepositories", mock.Anything, mock.Anything, "stars", 200).
			Return([]*model.Repository{{ID: 3, Owner: "a", Name: "b"}}, nil).Once()
		gh.On("GetRepositoryDetails", mock.Anything, "a", "b").Return(&model.Repository{ID: 3, Owner: "a", Name: "b"}, nil).Once()
		store.On("UpsertRepository", mock.Anything, mock.Anything).Return(database.Repository{}, errors.New("db down")).Once()

		err := s.SyncTop(ctx)

		require.NoError(t, err)
		store.AssertNotCalled(t, "ReconcileCategory", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rate limited item is retried once", func(t *testing.T) {
		store, gh := new(dbmock.Store), new(MockGitHub)
		s := newTestSyncer(store, gh)
		gh.On("SearchRepositories", mock.Anything, mock.Anything, "stars", 200).
			Return([]*model.Repository{{ID: 4, Owner: "c", Name: "d"}}, nil).Once()
		gh.On("GetRepositoryDetails", mock.Anything, "c", "d").
			Return(nil, &custom_errors.ErrRateLimited{ResetAt: testNow}).Once()
		gh.On("GetRepositoryDetails", mock.Anything, "c", "d").
			Return(&model.Repository{ID: 4, Owner: "c", Name: "d"}, nil).Once()
		store.On("UpsertRepository", mock.Anything, mock.Anything).Return(database.Repository{ID: 4}, nil).Once()
		store.On("UpsertRepositoryStats", mock.Anything, mock.Anything).Return(nil).Once()
		store.On("ReconcileCategory", mock.Anything, "top", []int64{4}).Return(nil).Once()

		require.NoError(t, s.SyncTop(ctx))
		gh.AssertExpectations(t)
		store.AssertExpectations(t)
	})
}

func TestSyncer_SyncTrends(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled without a trends source", func(t *testing.T) {
		s := newTestSyncer(new(dbmock.Store), new(MockGitHub))
		assert.ErrorIs(t, s.SyncTrends(ctx, gharchive.Weekly), custom_errors.ErrTrendsDisabled)
	})

	t.Run("writes event counts into the growth column", func(t *testing.T) {
		store, gh, trends := new(dbmock.Store), new(MockGitHub), new(mockTrends)
		s := newTestSyncer(store, gh, WithTrends(trends))

		trends.On("TopStarred", mock.Anything, gharchive.Weekly).Return([]model.TrendingRepo{
			{FullName: "a/b", Events: 42},
			{FullName: "not-a-repo", Events: 7},
		}, nil).Once()
		gh.On("GetRepositoryDetails", mock.Anything, "a", "b").
			Return(&model.Repository{ID: 9, Owner: "a", Name: "b"}, nil).Once()
		store.On("UpsertRepository", mock.Anything, mock.MatchedBy(func(p database.UpsertRepositoryParams) bool {
			return assert.ObjectsAreEqual([]string{"trending_weekly"}, p.Categories)
		})).Return(database.Repository{ID: 9}, nil).Once()
		store.On("UpsertRepositoryStats", mock.Anything, mock.MatchedBy(func(p database.UpsertRepositoryStatsParams) bool {
			return p.StarsGrowth7d != nil && *p.StarsGrowth7d == 42 && p.StarsGrowth30d == nil && p.ActivityScore == 0
		})).Return(nil).Once()
		store.On("ReconcileCategory", mock.Anything, "trending_weekly", []int64{9}).Return(nil).Once()

		require.NoError(t, s.SyncTrends(ctx, gharchive.Weekly))
		store.AssertExpectations(t)
		gh.AssertExpectations(t)
	})
}

func TestSyncer_HydrateStubs(t *testing.T) {
	store, gh := new(dbmock.Store), new(MockGitHub)
	s := newTestSyncer(store, gh)

	store.On("ListStubRepositories", mock.Anything, 100).
		Return([]database.RepositoryRef{{ID: 5, Owner: "x", Name: "y", FullName: "x/y"}}, nil).Once()
	gh.On("GetRepositoryDetails", mock.Anything, "x", "y").Return(&model.Repository{ID: 5, Owner: "x", Name: "y"}, nil).Once()
	store.On("UpsertRepository", mock.Anything, mock.MatchedBy(func(p database.UpsertRepositoryParams) bool {
		return p.ID == 5 && p.Categories == nil
	})).Return(database.Repository{ID: 5}, nil).Once()
	store.On("UpsertRepositoryStats", mock.Anything, mock.Anything).Return(nil).Once()

	require.NoError(t, s.HydrateStubs(context.Background(), 0))
	store.AssertExpectations(t)
}

func TestSyncer_HydrateStubs_RESTFallback(t *testing.T) {
	store, gh := new(dbmock.Store), new(MockGitHub)
	s := newTestSyncer(store, gh)

	store.On("ListStubRepositories", mock.Anything, 100).
		Return([]database.RepositoryRef{{ID: 5, Owner: "x", Name: "y", FullName: "x/y"}}, nil).Once()
	gh.On("GetRepositoryDetails", mock.Anything, "x", "y").Return(nil, errors.New("graphql down")).Once()
	gh.On("GetRepository", mock.Anything, "x", "y").
		Return(&model.Repository{ID: 5, Owner: "x", Name: "y", StarsCount: 77}, nil).Once()
	langs := []model.LanguageShare{{Name: "Go", Bytes: 100, Percentage: 100}}
	gh.On("ListLanguages", mock.Anything, "x", "y").Return(langs, nil).Once()
	store.On("UpsertRepository", mock.Anything, mock.MatchedBy(func(p database.UpsertRepositoryParams) bool {
		return p.ID == 5 && p.StarsCount == 77
	})).Return(database.Repository{ID: 5}, nil).Once()
	store.On("ReplaceRepositoryLanguages", mock.Anything, int64(5), langs).Return(nil).Once()
	store.On("UpsertRepositoryStats", mock.Anything, mock.MatchedBy(func(p database.UpsertRepositoryStatsParams) bool {
		return p.RepositoryID == 5 && p.CommitsLastMonth == nil && p.CommitsLastYear == nil
	})).Return(nil).Once()

	require.NoError(t, s.HydrateStubs(context.Background(), 0))
	gh.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestSyncer_Backfills(t *testing.T) {
	ctx := context.Background()
	refs := []database.RepositoryRef{
		{ID: 1, Owner: "a", Name: "pending", FullName: "a/pending"},
		{ID: 2, Owner: "a", Name: "ready", FullName: "a/ready"},
	}

	t.Run("commit activity skips pending statistics", func(t *testing.T) {
		store, gh := new(dbmock.Store), new(MockGitHub)
		s := newTestSyncer(store, gh)
		weeks := []model.WeeklyActivity{{WeekStart: testNow, Total: 3, Days: []int{0, 1, 2, 0, 0, 0, 0}}}

		store.On("ListRepositoriesForBackfill", mock.Anything, database.BackfillParams{
			Kind: database.BackfillCommitActivity, Mode: database.BackfillMissing, Limit: 10,
		}).Return(refs, nil).Once()
		gh.On("GetCommitActivity", mock.Anything, "a", "pending").Return(nil, custom_errors.ErrStatsPending).Once()
		gh.On("GetCommitActivity", mock.Anything, "a", "ready").Return(weeks, nil).Once()
		store.On("ReplaceCommitActivity", mock.Anything, int64(2), weeks).Return(nil).Once()

		require.NoError(t, s.BackfillCommitActivity(ctx, database.BackfillMissing, 10))
		store.AssertExpectations(t)
		store.AssertNumberOfCalls(t, "ReplaceCommitActivity", 1)
	})

	t.Run("contributors in all mode", func(t *testing.T) {
		store, gh := new(dbmock.Store), new(MockGitHub)
		s := newTestSyncer(store, gh)
		contributors := []model.Contributor{{ID: 7, Login: "dev", Contributions: 9, Source: model.DataSourceAllTime}}

		store.On("ListRepositoriesForBackfill", mock.Anything, database.BackfillParams{
			Kind: database.BackfillContributors, Mode: database.BackfillAll, Limit: 50,
		}).Return(refs[1:], nil).Once()
		gh.On("FetchContributors", mock.Anything, "a", "ready", 30).Return(contributors, nil).Once()
		store.On("ReplaceRepositoryContributors", mock.Anything, int64(2), contributors).Return(nil).Once()

		require.NoError(t, s.BackfillContributors(ctx, database.BackfillAll, 0))
		store.AssertExpectations(t)
	})

	t.Run("recent commits", func(t *testing.T) {
		store, gh := new(dbmock.Store), new(MockGitHub)
		s := newTestSyncer(store, gh)
		commits := []model.Commit{{SHA: "abc", Message: "fix", CommittedAt: testNow}}

		store.On("ListRepositoriesForBackfill", mock.Anything, mock.Anything).Return(refs[1:], nil).Once()
		gh.On("ListRecentCommits", mock.Anything, "a", "ready", 30).Return(commits, nil).Once()
		store.On("ReplaceRecentCommits", mock.Anything, int64(2), commits).Return(nil).Once()

		require.NoError(t, s.BackfillRecentCommits(ctx, database.BackfillMissing, 5))
		store.AssertExpectations(t)
	})
}

func TestParseBackfillMode(t *testing.T) {
	mode, err := ParseBackfillMode("")
	require.NoError(t, err)
	assert.Equal(t, database.BackfillMissing, mode)

	mode, err = ParseBackfillMode("all")
	require.NoError(t, err)
	assert.Equal(t, database.BackfillAll, mode)

	_, err = ParseBackfillMode("some")
	assert.Error(t, err)
}

func TestSyncer_SyncDevelopers(t *testing.T) {
	ctx := context.Background()

	t.Run("hall of fame stores the developer, stubs and top repositories", func(t *testing.T) {
		store, gh := new(dbmock.Store), new(MockGitHub)
		s := newTestSyncer(store, gh)

		profile := &model.DeveloperProfile{
			ID: 11, Login: "alice", Bio: strPtr("Microsoft MVP building distributed systems"),
			Followers: 20000, AccountCreatedAt: testNow.AddDate(-10, 0, 0),
			OwnedRepos: []model.DeveloperRepo{
				{ID: 100, Owner: "alice", Name: "db", Stars: 5000, TotalCommits: 1000, Language: strPtr("Go"), IsOwner: true},
				{ID: 101, Owner: "alice", Name: "fork", Stars: 1, IsFork: true, IsOwner: true},
			},
		}
		gh.On("SearchUsers", mock.Anything, "followers:>10000", "followers", 5).Return([]string{"alice"}, nil).Once()
		gh.On("GetDeveloperProfile", mock.Anything, "alice").Return(profile, nil).Once()

		store.On("UpsertDeveloper", mock.Anything, mock.MatchedBy(func(p database.UpsertDeveloperParams) bool {
			return p.Login == "alice" && p.IsHallOfFame && !p.IsTrendingExpert && !p.IsRisingStar &&
				p.IsBadgeHolder && p.TotalStarsEarned == 5000 && p.DominantLanguage != nil && *p.DominantLanguage == "Go"
		})).Return(database.Developer{ID: 11, Login: "alice"}, nil).Once()
		store.On("InsertRepositoryStub", mock.Anything, database.InsertRepositoryStubParams{
			ID: 100, Owner: "alice", Name: "db", StarsCount: 5000, Language: profile.OwnedRepos[0].Language,
		}).Return(true, nil).Once()
		store.On("ReplaceDeveloperTopRepos", mock.Anything, int64(11), mock.MatchedBy(func(rows []database.DeveloperTopRepo) bool {
			return len(rows) == 1 && rows[0].RepositoryID == 100 && rows[0].IsPrimary && rows[0].Rank == 1
		})).Return(nil).Once()

		require.NoError(t, s.SyncDevelopers(ctx, model.MissionHallOfFame, 5))
		store.AssertExpectations(t)
		gh.AssertExpectations(t)
	})

	t.Run("trending experts come from the store", func(t *testing.T) {
		store, gh := new(dbmock.Store), new(MockGitHub)
		s := newTestSyncer(store, gh)
		store.On("ListTrendingOwners", mock.Anything, 50).Return([]string{}, nil).Once()

		require.NoError(t, s.SyncDevelopers(ctx, model.MissionTrendingExpert, 0))
		store.AssertExpectations(t)
	})

	t.Run("badge holders are deduplicated across searches", func(t *testing.T) {
		store, gh := new(dbmock.Store), new(MockGitHub)
		s := newTestSyncer(store, gh)
		gh.On("SearchUsers", mock.Anything, mock.Anything, "followers", 1).Return([]string{"Bob"}, nil)

		logins, err := s.discoverDevelopers(ctx, model.MissionBadgeHolder, 6)

		require.NoError(t, err)
		assert.Equal(t, []string{"Bob"}, logins)
		gh.AssertNumberOfCalls(t, "SearchUsers", len(badgeQueries))
	})

	t.Run("unknown mission", func(t *testing.T) {
		s := newTestSyncer(new(dbmock.Store), new(MockGitHub))
		var invalid *custom_errors.ErrInvalidFilter
		assert.ErrorAs(t, s.SyncDevelopers(ctx, "wizard", 1), &invalid)
	})
}

func TestScoreDeveloper_RisingStar(t *testing.T) {
	young := &model.DeveloperProfile{Login: "new", Followers: 800, AccountCreatedAt: testNow.AddDate(0, -6, 0)}
	p := ScoreDeveloper(young, model.MissionRisingStar, testNow)
	assert.True(t, p.IsRisingStar)
	assert.False(t, p.IsBadgeHolder)
	assert.Empty(t, p.Badges)
	assert.Nil(t, p.DominantLanguage)

	old := &model.DeveloperProfile{Login: "old", Followers: 800, AccountCreatedAt: testNow.AddDate(-3, 0, 0)}
	assert.False(t, ScoreDeveloper(old, model.MissionRisingStar, testNow).IsRisingStar)
}

func TestSyncer_GenerateEmbeddings(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled without embedder", func(t *testing.T) {
		s := newTestSyncer(new(dbmock.Store), new(MockGitHub))
		assert.ErrorIs(t, s.GenerateEmbeddings(ctx, 10), custom_errors.ErrAIDisabled)
	})

	t.Run("stores vectors of the right width", func(t *testing.T) {
		store := new(dbmock.Store)
		s := newTestSyncer(store, new(MockGitHub), WithEmbedder(fakeEmbedder{dims: 384}))
		store.On("ListRepositoriesMissingEmbedding", mock.Anything, 10).
			Return([]database.EmbeddingCandidate{{ID: 1, FullName: "a/b", Description: strPtr("desc")}}, nil).Once()
		store.On("UpdateRepositoryEmbedding", mock.Anything, int64(1), mock.MatchedBy(func(v []float32) bool {
			return len(v) == 384
		})).Return(nil).Once()

		require.NoError(t, s.GenerateEmbeddings(ctx, 10))
		store.AssertExpectations(t)
	})

	t.Run("wrong width is skipped", func(t *testing.T) {
		store := new(dbmock.Store)
		s := newTestSyncer(store, new(MockGitHub), WithEmbedder(fakeEmbedder{dims: 3}))
		store.On("ListRepositoriesMissingEmbedding", mock.Anything, 100).
			Return([]database.EmbeddingCandidate{{ID: 1, FullName: "a/b"}}, nil).Once()

		require.NoError(t, s.GenerateEmbeddings(ctx, 0))
		store.AssertNotCalled(t, "UpdateRepositoryEmbedding", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestSyncer_SyncAllAndStart(t *testing.T) {
	t.Run("sync all joins step errors", func(t *testing.T) {
		store, gh := new(dbmock.Store), new(MockGitHub)
		s := newTestSyncer(store, gh)
		gh.On("SearchRepositories", mock.Anything, mock.Anything, "stars", mock.Anything).Return(nil, errors.New("down"))
		store.On("ListStubRepositories", mock.Anything, 100).Return([]database.RepositoryRef{}, nil).Once()

		err := s.SyncAll(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "top")
		assert.Contains(t, err.Error(), "trending")
		gh.AssertNumberOfCalls(t, "SearchRepositories", 3)
	})

	t.Run("start submits on every tick until canceled", func(t *testing.T) {
		s := newTestSyncer(new(dbmock.Store), new(MockGitHub))
		s.opts.SyncInterval = 5 * time.Millisecond
		ctx, cancel := context.WithCancel(context.Background())
		submitted := make(chan string, 10)

		done := make(chan struct{})
		go func() {
			s.Start(ctx, func(name string, _ func(context.Context) error) {
				select {
				case submitted <- name:
				default:
				}
			})
			close(done)
		}()

		assert.Equal(t, "sync_all", <-submitted)
		cancel()
		<-done
	})

	t.Run("needs initial sync when empty", func(t *testing.T) {
		store := new(dbmock.Store)
		s := newTestSyncer(store, new(MockGitHub))
		store.On("CountRepositories", mock.Anything).Return(int64(0), nil).Once()

		need, err := s.NeedsInitialSync(context.Background())
		require.NoError(t, err)
		assert.True(t, need)
	})
}
