// internal/scoring/work.go
package scoring

import (
	"sort"
	"time"

	"githop/internal/model"
)

const (
	dualWieldingRatio   = 0.9
	multiTaskingRatio   = 0.8
	systemsDiskUsage    = 10000
	systemsMultiplier   = 1.2
	currentWorkWindow   = 90
	maxShowcaseRepos    = 2
	maxDeveloperTopRepo = 3
)

var systemsLanguages = map[string]bool{
	"C":        true,
	"C++":      true,
	"Rust":     true,
	"Go":       true,
	"Zig":      true,
	"Assembly": true,
}

// ScoredRepo pairs a repository with a heuristic score.
type ScoredRepo struct {
	Repo  model.DeveloperRepo
	Score float64
}

// EffortScore is the primary-work score of an owned repository.
func EffortScore(r model.DeveloperRepo) float64 {
	score := float64(r.Stars)*0.4 + float64(r.TotalCommits)*0.6
	if systemsLanguages[r.LanguageName()] && r.DiskUsage > systemsDiskUsage {
		score *= systemsMultiplier
	}
	return round2(score)
}

// PulseScore is the current-work score of a recently pushed repository.
func PulseScore(r model.DeveloperRepo, now time.Time) float64 {
	days, _ := daysSince(r.PushedAt, now)
	return round2(float64(r.RecentCommits)*10 - days)
}

// RankByEffort orders owned, non-fork repositories by effort score.
func RankByEffort(owned []model.DeveloperRepo) []ScoredRepo {
	ranked := make([]ScoredRepo, 0, len(owned))
	for _, r := range owned {
		if r.IsFork {
			continue
		}
		ranked = append(ranked, ScoredRepo{Repo: r, Score: EffortScore(r)})
	}
	sortScored(ranked)
	return ranked
}

// PrimaryWork picks the developer's showcase repositories by effort.
// The runner-up is included when it reaches 90% of the leader.
func PrimaryWork(owned []model.DeveloperRepo) model.WorkSummary {
	ranked := RankByEffort(owned)
	if len(ranked) == 0 {
		return model.WorkSummary{Mode: model.WorkDormant, Repos: []model.WorkRepo{}}
	}
	if nearTie(ranked, dualWieldingRatio) {
		return model.WorkSummary{Mode: model.WorkDualWielding, Repos: toWorkRepos(ranked[:maxShowcaseRepos])}
	}
	return model.WorkSummary{Mode: model.WorkSingleMasterpiece, Repos: toWorkRepos(ranked[:1])}
}

// CurrentWork picks what the developer is working on now among repositories pushed in the last 90 days.
func CurrentWork(repos []model.DeveloperRepo, now time.Time) model.WorkSummary {
	var ranked []ScoredRepo
	for _, r := range dedupeRepos(repos) {
		days, ok := daysSince(r.PushedAt, now)
		if !ok || days > currentWorkWindow {
			continue
		}
		ranked = append(ranked, ScoredRepo{Repo: r, Score: PulseScore(r, now)})
	}
	if len(ranked) == 0 {
		return model.WorkSummary{Mode: model.WorkDormant, Repos: []model.WorkRepo{}}
	}
	sortScored(ranked)
	if nearTie(ranked, multiTaskingRatio) {
		return model.WorkSummary{Mode: model.WorkMultiTasking, Repos: toWorkRepos(ranked[:maxShowcaseRepos])}
	}
	return model.WorkSummary{Mode: model.WorkFocused, Repos: toWorkRepos(ranked[:1])}
}

// TopRepos returns up to three owned repositories by effort; the first is the primary one.
func TopRepos(owned []model.DeveloperRepo) []ScoredRepo {
	ranked := RankByEffort(owned)
	return ranked[:min(maxDeveloperTopRepo, len(ranked))]
}

// TotalStarsEarned sums stars across owned, non-fork repositories.
func TotalStarsEarned(owned []model.DeveloperRepo) int {
	total := 0
	for _, r := range owned {
		if !r.IsFork {
			total += max(r.Stars, 0)
		}
	}
	return total
}

// nearTie reports whether the runner-up is within ratio of a positive leader.
func nearTie(ranked []ScoredRepo, ratio float64) bool {
	if len(ranked) < 2 || ranked[0].Score <= 0 {
		return false
	}
	return ranked[1].Score >= ranked[0].Score*ratio
}

func sortScored(ranked []ScoredRepo) {
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Repo.Stars > ranked[j].Repo.Stars
	})
}

func toWorkRepos(ranked []ScoredRepo) []model.WorkRepo {
	out := make([]model.WorkRepo, 0, len(ranked))
	for _, s := range ranked {
		wr := model.WorkRepo{
			FullName: s.Repo.FullName(),
			Language: s.Repo.LanguageName(),
			Stars:    s.Repo.Stars,
			Score:    s.Score,
		}
		if s.Repo.Description != nil {
			wr.Description = *s.Repo.Description
		}
		out = append(out, wr)
	}
	return out
}
