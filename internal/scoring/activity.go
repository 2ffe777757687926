// internal/scoring/activity.go
package scoring

import (
	"math"
	"time"

	"githop/internal/model"
)

// RepoSignals is the subset of repository data the activity and health scores read.
type RepoSignals struct {
	Stars          int
	Forks          int
	OpenIssues     int
	PushedAt       time.Time
	LastReleaseAt  *time.Time
	IsArchived     bool
	IsDisabled     bool
	HasDiscussions bool
}

// SignalsFrom extracts scoring signals from a fetched repository.
func SignalsFrom(r *model.Repository) RepoSignals {
	return RepoSignals{
		Stars:          r.StarsCount,
		Forks:          r.ForksCount,
		OpenIssues:     r.OpenIssuesCount,
		PushedAt:       r.PushedAt,
		LastReleaseAt:  r.LastReleaseAt,
		IsArchived:     r.IsArchived,
		IsDisabled:     r.IsDisabled,
		HasDiscussions: r.HasDiscussions,
	}
}

// daysSince returns the number of days between t and now. ok is false for an unknown time.
func daysSince(t, now time.Time) (float64, bool) {
	if t.IsZero() {
		return 0, false
	}
	d := now.Sub(t).Hours() / 24
	if d < 0 {
		d = 0
	}
	return d, true
}

// ActivityScore weighs popularity, push recency and open issues.
// An unknown push date contributes no recency term.
func ActivityScore(s RepoSignals, now time.Time) float64 {
	score := math.Log10(float64(max(s.Stars, 0))+1)*100 + math.Log10(float64(max(s.Forks, 0))+1)*50

	if days, ok := daysSince(s.PushedAt, now); ok {
		switch {
		case days <= 7:
			score += 200
		case days <= 30:
			score += 100
		case days <= 90:
			score += 50
		case days > 365:
			score *= 0.5
		}
	}

	score += float64(min(max(s.OpenIssues, 0), 100)) * 0.5
	return round2(score)
}

// SimpleActivityScore is the reduced variant used for GH Archive trend rows.
func SimpleActivityScore(s RepoSignals, now time.Time) float64 {
	score := math.Log10(float64(max(s.Stars, 0))+1) * 10
	if days, ok := daysSince(s.PushedAt, now); ok && days <= 30 {
		score += 50
	}
	return round2(score)
}

// HealthScore returns a maintenance score in [0,100]. Archived or disabled repositories score 0.
func HealthScore(s RepoSignals, now time.Time) float64 {
	if s.IsArchived || s.IsDisabled {
		return 0
	}

	score := 50.0
	if days, ok := daysSince(s.PushedAt, now); ok {
		switch {
		case days <= 7:
			score += 30
		case days <= 30:
			score += 20
		case days <= 90:
			score += 10
		case days > 365:
			score -= 20
		}
	}
	if s.OpenIssues > 0 {
		score += 10
	}
	if s.HasDiscussions {
		score += 5
	}
	if s.LastReleaseAt != nil {
		if days, ok := daysSince(*s.LastReleaseAt, now); ok && days <= 90 {
			score += 10
		}
	}

	return clamp(score, 0, 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
