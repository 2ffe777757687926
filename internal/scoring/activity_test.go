// internal/scoring/activity_test.go
package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(d int) time.Time {
	return now.Add(-time.Duration(d) * 24 * time.Hour)
}

func TestActivityScore(t *testing.T) {
	t.Run("empty repository with unknown push date scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, ActivityScore(RepoSignals{}, now))
	})

	t.Run("recent push adds the top recency bonus", func(t *testing.T) {
		s := RepoSignals{Stars: 99, Forks: 9, PushedAt: daysAgo(3)}
		// log10(100)*100 + log10(10)*50 + 200
		assert.Equal(t, 450.0, ActivityScore(s, now))
	})

	t.Run("recency tiers", func(t *testing.T) {
		assert.Equal(t, 100.0, ActivityScore(RepoSignals{PushedAt: daysAgo(20)}, now))
		assert.Equal(t, 50.0, ActivityScore(RepoSignals{PushedAt: daysAgo(60)}, now))
		assert.Equal(t, 0.0, ActivityScore(RepoSignals{PushedAt: daysAgo(200)}, now))
	})

	t.Run("stale repository is halved", func(t *testing.T) {
		s := RepoSignals{Stars: 999, PushedAt: daysAgo(400)}
		assert.Equal(t, 150.0, ActivityScore(s, now))
	})

	t.Run("open issues are capped at 100", func(t *testing.T) {
		assert.Equal(t, 50.0, ActivityScore(RepoSignals{OpenIssues: 5000}, now))
		assert.Equal(t, 5.0, ActivityScore(RepoSignals{OpenIssues: 10}, now))
	})

	t.Run("rounds to two decimals", func(t *testing.T) {
		got := ActivityScore(RepoSignals{Stars: 1}, now)
		assert.Equal(t, 30.1, got)
	})
}

func TestSimpleActivityScore(t *testing.T) {
	assert.Equal(t, 0.0, SimpleActivityScore(RepoSignals{}, now))
	assert.Equal(t, 0.0, SimpleActivityScore(RepoSignals{PushedAt: daysAgo(45)}, now))
	assert.Equal(t, 70.0, SimpleActivityScore(RepoSignals{Stars: 99, PushedAt: daysAgo(10)}, now))
}

func TestHealthScore(t *testing.T) {
	release := daysAgo(30)
	oldRelease := daysAgo(300)

	tests := []struct {
		name string
		in   RepoSignals
		want float64
	}{
		{"empty repository is neutral", RepoSignals{}, 50},
		{"archived is always zero", RepoSignals{IsArchived: true, PushedAt: daysAgo(1), OpenIssues: 3}, 0},
		{"disabled is always zero", RepoSignals{IsDisabled: true, PushedAt: daysAgo(1)}, 0},
		{"fresh push", RepoSignals{PushedAt: daysAgo(2)}, 80},
		{"monthly push", RepoSignals{PushedAt: daysAgo(25)}, 70},
		{"quarterly push", RepoSignals{PushedAt: daysAgo(80)}, 60},
		{"stale push", RepoSignals{PushedAt: daysAgo(500)}, 30},
		{"everything good is clamped", RepoSignals{PushedAt: daysAgo(1), OpenIssues: 4, HasDiscussions: true, LastReleaseAt: &release}, 100},
		{"old release does not count", RepoSignals{LastReleaseAt: &oldRelease}, 50},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := HealthScore(tc.in, now)
			assert.Equal(t, tc.want, got)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		})
	}
}
