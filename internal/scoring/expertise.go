// internal/scoring/expertise.go
package scoring

import (
	"math"
	"sort"

	"githop/internal/model"
)

const favoriteLanguages = 3

type languageTally struct {
	repoCount    int
	totalStars   int
	largestStars int
	totalCommits int
	owns         bool
}

// LanguageExpertise scores each language the developer has worked in.
// Owned repositories take precedence over contributed ones with the same id.
func LanguageExpertise(repos []model.DeveloperRepo) model.LanguageExpertise {
	tallies := make(map[string]*languageTally)
	for _, repo := range dedupeRepos(repos) {
		lang := repo.LanguageName()
		if lang == "" {
			continue
		}
		t, ok := tallies[lang]
		if !ok {
			t = &languageTally{}
			tallies[lang] = t
		}
		t.repoCount++
		t.totalStars += max(repo.Stars, 0)
		t.largestStars = max(t.largestStars, repo.Stars)
		t.totalCommits += max(repo.TotalCommits, 0)
		if repo.IsOwner {
			t.owns = true
		}
	}

	out := model.LanguageExpertise{
		Languages: make(map[string]model.LanguageScore, len(tallies)),
		Favorites: []string{},
	}
	if len(tallies) == 0 {
		return out
	}

	names := make([]string, 0, len(tallies))
	var sum float64
	for lang, t := range tallies {
		score := math.Min(float64(t.repoCount)*2.5, 25) +
			math.Min(math.Log10(float64(t.totalStars)+1)*5, 30) +
			math.Min(math.Log10(float64(t.largestStars)+1)*4, 25) +
			math.Min(math.Log10(float64(t.totalCommits)+1)*2, 10)
		if t.owns {
			score += 10
		}
		score = round2(score)
		out.Languages[lang] = model.LanguageScore{
			Score:        score,
			Level:        ExpertiseLevelFor(score),
			RepoCount:    t.repoCount,
			TotalStars:   t.totalStars,
			TotalCommits: t.totalCommits,
		}
		names = append(names, lang)
		sum += score
	}

	sort.Slice(names, func(i, j int) bool {
		si, sj := out.Languages[names[i]].Score, out.Languages[names[j]].Score
		if si != sj {
			return si > sj
		}
		return names[i] < names[j]
	})

	out.Primary = names[0]
	primary := out.Languages[out.Primary]
	primary.IsPrimary = true
	out.Languages[out.Primary] = primary

	out.Favorites = append(out.Favorites, names[:min(favoriteLanguages, len(names))]...)

	diversity := math.Min(float64(len(names))*10, 50)
	mean := sum / float64(len(names))
	out.PolyglotScore = round2((diversity + mean) / 2)

	return out
}

// ExpertiseLevelFor maps a language score to its level.
func ExpertiseLevelFor(score float64) model.ExpertiseLevel {
	switch {
	case score >= 90:
		return model.LevelMaster
	case score >= 75:
		return model.LevelExpert
	case score >= 55:
		return model.LevelAdvanced
	case score >= 35:
		return model.LevelIntermediate
	default:
		return model.LevelBeginner
	}
}

func dedupeRepos(repos []model.DeveloperRepo) []model.DeveloperRepo {
	seen := make(map[int64]int, len(repos))
	out := make([]model.DeveloperRepo, 0, len(repos))
	for _, r := range repos {
		if i, ok := seen[r.ID]; ok {
			if r.IsOwner && !out[i].IsOwner {
				out[i] = r
			}
			continue
		}
		seen[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}
