// internal/syncer/developers.go
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"githop/internal/database"
	custom_errors "githop/internal/errors"
	"githop/internal/model"
	"githop/internal/scoring"
)

const (
	hallOfFameFollowers = 10000
	risingStarFollowers = 500
)

// badgeQueries are the user searches of the badge_holder mission.
var badgeQueries = []string{
	`"google developer expert" in:bio`,
	`"microsoft mvp" in:bio`,
	`"github star" in:bio`,
	`"aws hero" in:bio`,
	`"cncf ambassador" in:bio`,
	`"docker captain" in:bio`,
}

// SyncDevelopers discovers developers for mission and stores their scored profiles.
func (s *Syncer) SyncDevelopers(ctx context.Context, mission model.Mission, target int) error {
	if !mission.Valid() {
		return &custom_errors.ErrInvalidFilter{Field: "mission", Value: string(mission)}
	}
	if target <= 0 {
		target = s.opts.DevelopersTarget
	}
	job := "developers_" + string(mission)
	logger := s.logger.With("job", job)

	var logins []string
	err := s.withRateLimitRetry(ctx, logger, func() error {
		var err error
		logins, err = s.discoverDevelopers(ctx, mission, target)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to discover developers: %w", err)
	}
	logger.Info("Processing developers", "count", len(logins))

	ok, err := forEach(ctx, s, job, logins, func(l string) string { return l },
		func(ctx context.Context, logger *slog.Logger, login string) error {
			return s.processDeveloper(ctx, logger, login, mission)
		})
	logger.Info("Developer mission finished", "stored", ok, "found", len(logins))
	return err
}

func (s *Syncer) discoverDevelopers(ctx context.Context, mission model.Mission, target int) ([]string, error) {
	switch mission {
	case model.MissionHallOfFame:
		return s.gh.SearchUsers(ctx, fmt.Sprintf("followers:>%d", hallOfFameFollowers), "followers", target)
	case model.MissionRisingStar:
		since := s.now().AddDate(-1, 0, 0).Format(searchDateLayout)
		return s.gh.SearchUsers(ctx, fmt.Sprintf("created:>%s followers:>%d", since, risingStarFollowers), "followers", target)
	case model.MissionTrendingExpert:
		return s.store.ListTrendingOwners(ctx, target)
	case model.MissionBadgeHolder:
		per := (target + len(badgeQueries) - 1) / len(badgeQueries)
		seen := make(map[string]bool)
		var logins []string
		for i, q := range badgeQueries {
			found, err := s.gh.SearchUsers(ctx, q, "followers", per)
			if err != nil {
				return nil, err
			}
			for _, l := range found {
				key := strings.ToLower(l)
				if !seen[key] && len(logins) < target {
					seen[key] = true
					logins = append(logins, l)
				}
			}
			if i < len(badgeQueries)-1 {
				if err := s.pace(ctx); err != nil {
					return nil, err
				}
			}
		}
		return logins, nil
	}
	return nil, &custom_errors.ErrInvalidFilter{Field: "mission", Value: string(mission)}
}

// processDeveloper fetches, scores and stores one developer together with their top repositories
// and stubs for owned repositories not stored yet.
func (s *Syncer) processDeveloper(ctx context.Context, logger *slog.Logger, login string, mission model.Mission) error {
	profile, err := s.gh.GetDeveloperProfile(ctx, login)
	if err != nil {
		return err
	}
	params := ScoreDeveloper(profile, mission, s.now())
	top := TopRepoRows(profile.OwnedRepos)

	var stubs int
	err = s.store.ExecTx(ctx, func(q database.Querier) error {
		dev, err := q.UpsertDeveloper(ctx, params)
		if err != nil {
			return fmt.Errorf("failed to upsert developer: %w", err)
		}
		for _, r := range profile.OwnedRepos {
			if r.IsFork || r.ID == 0 {
				continue
			}
			inserted, err := q.InsertRepositoryStub(ctx, database.InsertRepositoryStubParams{
				ID:          r.ID,
				Owner:       r.Owner,
				Name:        r.Name,
				Description: r.Description,
				StarsCount:  r.Stars,
				Language:    r.Language,
			})
			if err != nil {
				return fmt.Errorf("failed to insert stub %s: %w", r.FullName(), err)
			}
			if inserted {
				stubs++
			}
		}
		if err := q.ReplaceDeveloperTopRepos(ctx, dev.ID, top); err != nil {
			return fmt.Errorf("failed to store top repositories: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info("Stored developer", "followers", profile.Followers, "top_repos", len(top), "new_stubs", stubs)
	return nil
}

// ScoreDeveloper derives the stored developer row from a fetched profile. The hall of fame and
// trending expert flags come from the mission; rising star and badge holder are recomputed.
func ScoreDeveloper(p *model.DeveloperProfile, mission model.Mission, now time.Time) database.UpsertDeveloperParams {
	bio, company := deref(p.Bio), deref(p.Company)
	all := make([]model.DeveloperRepo, 0, len(p.OwnedRepos)+len(p.ContributedRepos))
	all = append(all, p.OwnedRepos...)
	all = append(all, p.ContributedRepos...)

	badges := scoring.DetectBadges(bio, company)
	expertise := scoring.LanguageExpertise(all)

	var dominant *string
	if expertise.Primary != "" {
		primary := expertise.Primary
		dominant = &primary
	}

	return database.UpsertDeveloperParams{
		ID:                p.ID,
		Login:             p.Login,
		Name:              p.Name,
		AvatarURL:         p.AvatarURL,
		HTMLURL:           p.HTMLURL,
		Bio:               p.Bio,
		Company:           p.Company,
		Location:          p.Location,
		Blog:              p.Blog,
		Followers:         p.Followers,
		Following:         p.Following,
		PublicRepos:       p.PublicRepos,
		TotalStarsEarned:  scoring.TotalStarsEarned(p.OwnedRepos),
		DominantLanguage:  dominant,
		Badges:            badges,
		Personas:          scoring.Personas(bio, all),
		LanguageExpertise: expertise,
		CurrentWork:       scoring.CurrentWork(all, now),
		PrimaryWork:       scoring.PrimaryWork(p.OwnedRepos),
		IsHallOfFame:      mission == model.MissionHallOfFame,
		IsTrendingExpert:  mission == model.MissionTrendingExpert,
		IsRisingStar:      isRisingStar(p, now),
		IsBadgeHolder:     len(badges) > 0,
		AccountCreatedAt:  timePtr(p.AccountCreatedAt),
	}
}

func isRisingStar(p *model.DeveloperProfile, now time.Time) bool {
	if p.AccountCreatedAt.IsZero() || p.Followers <= risingStarFollowers {
		return false
	}
	return !p.AccountCreatedAt.Before(now.AddDate(-1, 0, 0))
}

// TopRepoRows returns up to three owned repositories by effort; the first is primary.
func TopRepoRows(owned []model.DeveloperRepo) []database.DeveloperTopRepo {
	top := scoring.TopRepos(owned)
	rows := make([]database.DeveloperTopRepo, len(top))
	for i, t := range top {
		rows[i] = database.DeveloperTopRepo{
			RepositoryID: t.Repo.ID,
			FullName:     t.Repo.FullName(),
			Description:  t.Repo.Description,
			Language:     t.Repo.Language,
			Stars:        t.Repo.Stars,
			Score:        t.Score,
			IsPrimary:    i == 0,
			Rank:         i + 1,
		}
	}
	return rows
}
