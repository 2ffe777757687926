// internal/scoring/badges_test.go
package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"githop/internal/model"
)

func badgeTypes(badges []model.Badge) []model.BadgeType {
	out := make([]model.BadgeType, 0, len(badges))
	for _, b := range badges {
		out = append(out, b.Type)
	}
	return out
}

func TestDetectBadges(t *testing.T) {
	t.Run("microsoft mvp", func(t *testing.T) {
		badges := DetectBadges("Microsoft MVP | .NET enthusiast", "")
		assert.Contains(t, badgeTypes(badges), model.BadgeMVP)
	})

	t.Run("case insensitive", func(t *testing.T) {
		badges := DetectBadges("microsoft mvp", "")
		assert.Contains(t, badgeTypes(badges), model.BadgeMVP)
		badges = DetectBadges("MICROSOFT MVP", "")
		assert.Contains(t, badgeTypes(badges), model.BadgeMVP)
	})

	t.Run("no keywords yields an empty list", func(t *testing.T) {
		badges := DetectBadges("I write code", "Acme Corp")
		require.NotNil(t, badges)
		assert.Empty(t, badges)
	})

	t.Run("gde with inferred category", func(t *testing.T) {
		badges := DetectBadges("Google Developer Expert for Flutter and Dart", "")
		require.Len(t, badges, 1)
		assert.Equal(t, model.BadgeGDE, badges[0].Type)
		assert.Equal(t, "Flutter", badges[0].Category)
	})

	t.Run("gde without hint falls back to general", func(t *testing.T) {
		badges := DetectBadges("GDE", "")
		require.Len(t, badges, 1)
		assert.Equal(t, "General", badges[0].Category)
	})

	t.Run("certifications", func(t *testing.T) {
		badges := DetectBadges("Security engineer. CISSP, OSCP. CKA certified.", "")
		assert.ElementsMatch(t, []model.BadgeType{model.BadgeCISSP, model.BadgeOSCP, model.BadgeCKA}, badgeTypes(badges))
	})

	t.Run("big tech from company", func(t *testing.T) {
		badges := DetectBadges("", "@Google")
		assert.Equal(t, []model.BadgeType{model.BadgeBigTech}, badgeTypes(badges))
	})

	t.Run("company substring does not count", func(t *testing.T) {
		badges := DetectBadges("", "Metamorphic Labs")
		assert.Empty(t, badges)
	})

	t.Run("community titles", func(t *testing.T) {
		badges := DetectBadges("GitHub Star, AWS Community Hero, Docker Captain and CNCF Ambassador", "")
		assert.ElementsMatch(t,
			[]model.BadgeType{model.BadgeGitHubStar, model.BadgeAWSHero, model.BadgeDockerCaptain, model.BadgeCNCFAmbassador},
			badgeTypes(badges))
	})
}
