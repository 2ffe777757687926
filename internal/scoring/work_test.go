// internal/scoring/work_test.go
package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"githop/internal/model"
)

func TestLanguageExpertise(t *testing.T) {
	t.Run("no repositories", func(t *testing.T) {
		got := LanguageExpertise(nil)
		assert.Empty(t, got.Languages)
		assert.Empty(t, got.Primary)
		assert.NotNil(t, got.Favorites)
		assert.Zero(t, got.PolyglotScore)
	})

	t.Run("scores levels and primary", func(t *testing.T) {
		repos := []model.DeveloperRepo{
			{ID: 1, Language: strPtr("Go"), Stars: 9999, TotalCommits: 99999, IsOwner: true},
			{ID: 2, Language: strPtr("Go"), Stars: 0, IsOwner: true},
			{ID: 3, Language: strPtr("Python"), Stars: 9, TotalCommits: 9},
		}
		got := LanguageExpertise(repos)

		require.Contains(t, got.Languages, "Go")
		goScore := got.Languages["Go"]
		// 5 + 20 + 16 + 10 + 10
		assert.Equal(t, 61.0, goScore.Score)
		assert.Equal(t, model.LevelAdvanced, goScore.Level)
		assert.True(t, goScore.IsPrimary)
		assert.Equal(t, "Go", got.Primary)

		py := got.Languages["Python"]
		// 2.5 + 5 + 4 + 2
		assert.Equal(t, 13.5, py.Score)
		assert.Equal(t, model.LevelBeginner, py.Level)
		assert.False(t, py.IsPrimary)

		assert.Equal(t, []string{"Go", "Python"}, got.Favorites)
		// (min(2*10,50) + (61+13.5)/2) / 2
		assert.Equal(t, 28.63, got.PolyglotScore)
	})

	t.Run("owned copy wins over contributed duplicate", func(t *testing.T) {
		repos := []model.DeveloperRepo{
			{ID: 7, Language: strPtr("Rust"), Stars: 0},
			{ID: 7, Language: strPtr("Rust"), Stars: 0, IsOwner: true},
		}
		got := LanguageExpertise(repos)
		assert.Equal(t, 1, got.Languages["Rust"].RepoCount)
		assert.Equal(t, 12.5, got.Languages["Rust"].Score)
	})

	t.Run("favorites keep the top three", func(t *testing.T) {
		var repos []model.DeveloperRepo
		for i, lang := range []string{"A", "B", "C", "D"} {
			repos = append(repos, model.DeveloperRepo{ID: int64(i), Language: strPtr(lang), Stars: 10 * (i + 1)})
		}
		got := LanguageExpertise(repos)
		assert.Equal(t, []string{"D", "C", "B"}, got.Favorites)
	})
}

func TestExpertiseLevelFor(t *testing.T) {
	assert.Equal(t, model.LevelMaster, ExpertiseLevelFor(90))
	assert.Equal(t, model.LevelExpert, ExpertiseLevelFor(75))
	assert.Equal(t, model.LevelAdvanced, ExpertiseLevelFor(55))
	assert.Equal(t, model.LevelIntermediate, ExpertiseLevelFor(35))
	assert.Equal(t, model.LevelBeginner, ExpertiseLevelFor(34.99))
}

func TestPrimaryWork(t *testing.T) {
	t.Run("no repositories is dormant", func(t *testing.T) {
		got := PrimaryWork(nil)
		assert.Equal(t, model.WorkDormant, got.Mode)
		assert.NotNil(t, got.Repos)
	})

	t.Run("single masterpiece", func(t *testing.T) {
		owned := []model.DeveloperRepo{
			{ID: 1, Owner: "a", Name: "big", Stars: 1000, TotalCommits: 100},
			{ID: 2, Owner: "a", Name: "small", Stars: 10, TotalCommits: 10},
		}
		got := PrimaryWork(owned)
		assert.Equal(t, model.WorkSingleMasterpiece, got.Mode)
		require.Len(t, got.Repos, 1)
		assert.Equal(t, "a/big", got.Repos[0].FullName)
		assert.Equal(t, 460.0, got.Repos[0].Score)
	})

	t.Run("dual wielding when runner-up is within 90 percent", func(t *testing.T) {
		owned := []model.DeveloperRepo{
			{ID: 1, Owner: "a", Name: "one", Stars: 100},
			{ID: 2, Owner: "a", Name: "two", Stars: 95},
		}
		got := PrimaryWork(owned)
		assert.Equal(t, model.WorkDualWielding, got.Mode)
		assert.Len(t, got.Repos, 2)
	})

	t.Run("systems language bonus needs disk usage", func(t *testing.T) {
		big := model.DeveloperRepo{Stars: 100, Language: strPtr("Rust"), DiskUsage: 20000}
		small := model.DeveloperRepo{Stars: 100, Language: strPtr("Rust"), DiskUsage: 100}
		assert.Equal(t, 48.0, EffortScore(big))
		assert.Equal(t, 40.0, EffortScore(small))
	})

	t.Run("forks are ignored", func(t *testing.T) {
		owned := []model.DeveloperRepo{{ID: 1, Stars: 1000, IsFork: true}}
		assert.Equal(t, model.WorkDormant, PrimaryWork(owned).Mode)
		assert.Zero(t, TotalStarsEarned(owned))
	})
}

func TestCurrentWork(t *testing.T) {
	t.Run("nothing pushed recently is dormant", func(t *testing.T) {
		repos := []model.DeveloperRepo{{ID: 1, PushedAt: daysAgo(120), RecentCommits: 50}}
		got := CurrentWork(repos, now)
		assert.Equal(t, model.WorkDormant, got.Mode)
		assert.Empty(t, got.Repos)
	})

	t.Run("focused on one repository", func(t *testing.T) {
		repos := []model.DeveloperRepo{
			{ID: 1, Owner: "a", Name: "hot", PushedAt: daysAgo(1), RecentCommits: 30},
			{ID: 2, Owner: "a", Name: "warm", PushedAt: daysAgo(10), RecentCommits: 5},
		}
		got := CurrentWork(repos, now)
		assert.Equal(t, model.WorkFocused, got.Mode)
		require.Len(t, got.Repos, 1)
		assert.Equal(t, "a/hot", got.Repos[0].FullName)
		assert.Equal(t, 299.0, got.Repos[0].Score)
	})

	t.Run("multi tasking within 80 percent", func(t *testing.T) {
		repos := []model.DeveloperRepo{
			{ID: 1, Owner: "a", Name: "x", PushedAt: daysAgo(0), RecentCommits: 10},
			{ID: 2, Owner: "a", Name: "y", PushedAt: daysAgo(0), RecentCommits: 9},
		}
		got := CurrentWork(repos, now)
		assert.Equal(t, model.WorkMultiTasking, got.Mode)
		assert.Len(t, got.Repos, 2)
	})
}

func TestTopRepos(t *testing.T) {
	var owned []model.DeveloperRepo
	for i := 1; i <= 5; i++ {
		owned = append(owned, model.DeveloperRepo{ID: int64(i), Stars: i * 10})
	}
	top := TopRepos(owned)
	require.Len(t, top, 3)
	assert.Equal(t, int64(5), top[0].Repo.ID)
	assert.Equal(t, 150, TotalStarsEarned(owned))
}
