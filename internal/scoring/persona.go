// internal/scoring/persona.go
package scoring

import (
	"math"
	"strings"

	"githop/internal/model"
)

const (
	bioPersonaWeight   = 50.0
	awesomeListPenalty = 0.1
)

// repoText is the text a repository contributes to persona matching.
func repoText(r model.DeveloperRepo) string {
	parts := []string{r.Name}
	if r.Description != nil {
		parts = append(parts, *r.Description)
	}
	parts = append(parts, r.LanguageName())
	parts = append(parts, r.Topics...)
	return strings.Join(parts, " ")
}

// Personas scores every persona from the bio and the developer's repositories.
// A matching bio adds 50 once per persona. Each matching repository adds
// 10 + log10(stars+1)*5, cut to 10% for curated link collections. Scores are clamped to [0,100].
func (r *Rules) Personas(bio string, repos []model.DeveloperRepo) model.PersonaScores {
	scores := model.NewPersonaScores()

	if strings.TrimSpace(bio) != "" {
		for _, p := range r.MatchPersonas(bio) {
			scores[p] += bioPersonaWeight
		}
	}

	for _, repo := range repos {
		weight := 10 + math.Log10(float64(max(repo.Stars, 0))+1)*5
		name := repo.Name
		if repo.Description != nil {
			name += " " + *repo.Description
		}
		if r.IsAwesomeList(name) {
			weight *= awesomeListPenalty
		}
		for _, p := range r.MatchPersonas(repoText(repo)) {
			scores[p] += weight
		}
	}

	for p, v := range scores {
		scores[p] = round2(clamp(v, 0, 100))
	}
	return scores
}

// Personas scores with the embedded rule set.
func Personas(bio string, repos []model.DeveloperRepo) model.PersonaScores {
	return DefaultRules().Personas(bio, repos)
}
