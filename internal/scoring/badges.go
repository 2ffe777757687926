// internal/scoring/badges.go
package scoring

import (
	"strings"

	"githop/internal/model"
)

const defaultGDECategory = "General"

// DetectBadges matches recognitions against the lowercased bio and company.
// It never returns nil.
func (r *Rules) DetectBadges(bio, company string) []model.Badge {
	text := strings.ToLower(bio + " " + company)
	badges := []model.Badge{}

	for _, rule := range r.badges {
		if rule.pattern == nil || !rule.pattern.MatchString(text) {
			continue
		}
		b := model.Badge{Type: rule.badgeType, Label: rule.label}
		if rule.badgeType == model.BadgeGDE {
			b.Category = r.gdeCategory(text)
		}
		badges = append(badges, b)
	}

	org := strings.TrimPrefix(strings.TrimSpace(strings.ToLower(company)), "@")
	if r.bigTech != nil && org != "" && r.bigTech.MatchString(org) {
		badges = append(badges, model.Badge{Type: model.BadgeBigTech, Label: r.bigTechLabel})
	}

	return badges
}

func (r *Rules) gdeCategory(text string) string {
	// Drop the title itself so "Google Developer Expert" does not count as a category hint.
	text = strings.ReplaceAll(text, "google developer expert", "")
	for _, c := range r.gdeCategories {
		if c.pattern != nil && c.pattern.MatchString(text) {
			return c.category
		}
	}
	return defaultGDECategory
}

// DetectBadges detects badges with the embedded rule set.
func DetectBadges(bio, company string) []model.Badge {
	return DefaultRules().DetectBadges(bio, company)
}
