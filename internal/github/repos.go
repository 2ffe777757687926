// internal/github/repos.go
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/google/go-github/v62/github"

	custom_errors "githop/internal/errors"
	"githop/internal/model"
)

// GetRepository fetches repository details and translates them to our internal model.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*model.Repository, error) {
	repo, _, err := call(ctx, c, "get_repository", func() (*github.Repository, *github.Response, error) {
		return c.gh.Repositories.Get(ctx, owner, name)
	})
	if err != nil {
		return nil, err
	}
	return toInternalRepository(repo), nil
}

// ListLanguages returns the language breakdown of a repository, largest first.
func (c *Client) ListLanguages(ctx context.Context, owner, name string) ([]model.LanguageShare, error) {
	langs, _, err := call(ctx, c, "list_languages", func() (map[string]int, *github.Response, error) {
		return c.gh.Repositories.ListLanguages(ctx, owner, name)
	})
	if err != nil {
		return nil, err
	}
	sizes := make(map[string]int64, len(langs))
	for lang, n := range langs {
		sizes[lang] = int64(n)
	}
	return languageShares(sizes), nil
}

func languageShares(sizes map[string]int64) []model.LanguageShare {
	var total int64
	for _, n := range sizes {
		total += n
	}
	out := make([]model.LanguageShare, 0, len(sizes))
	for lang, n := range sizes {
		share := model.LanguageShare{Name: lang, Bytes: n}
		if total > 0 {
			share.Percentage = float64(int64(float64(n)*10000/float64(total))) / 100
		}
		out = append(out, share)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bytes != out[j].Bytes {
			return out[i].Bytes > out[j].Bytes
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ListContributors returns up to limit contributors ranked by all-time contributions.
func (c *Client) ListContributors(ctx context.Context, owner, name string, limit int) ([]model.Contributor, error) {
	opts := &github.ListContributorsOptions{ListOptions: github.ListOptions{PerPage: min(max(limit, 1), 100)}}
	users, _, err := call(ctx, c, "list_contributors", func() ([]*github.Contributor, *github.Response, error) {
		return c.gh.Repositories.ListContributors(ctx, owner, name, opts)
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.Contributor, 0, len(users))
	for _, u := range users {
		if u.GetLogin() == "" {
			continue
		}
		out = append(out, model.Contributor{
			ID:            u.GetID(),
			Login:         u.GetLogin(),
			AvatarURL:     u.GetAvatarURL(),
			Contributions: u.GetContributions(),
			Source:        model.DataSourceAllTime,
		})
	}
	if len(out) > limit && limit > 0 {
		out = out[:limit]
	}
	return out, nil
}

// statsPendingRetries is how many times a commit activity request answered with 202 is repeated
// after the first call, so at most 1+statsPendingRetries requests are made.
const statsPendingRetries = 3

// GetCommitActivity returns the last 52 weeks of commit activity. GitHub answers 202 while it
// computes the statistics; the call is repeated up to statsPendingRetries times before
// ErrStatsPending.
func (c *Client) GetCommitActivity(ctx context.Context, owner, name string) ([]model.WeeklyActivity, error) {
	for retry := 0; ; retry++ {
		weeks, _, err := call(ctx, c, "commit_activity", func() ([]*github.WeeklyCommitActivity, *github.Response, error) {
			return c.gh.Repositories.ListCommitActivity(ctx, owner, name)
		})
		var accepted *github.AcceptedError
		if errors.As(err, &accepted) {
			if retry >= statsPendingRetries {
				return nil, custom_errors.ErrStatsPending
			}
			c.logger.Debug("Commit activity is being computed, retrying", "repo", owner+"/"+name, "retry", retry+1)
			if err := sleep(ctx, c.statsRetryDelay); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		out := make([]model.WeeklyActivity, 0, len(weeks))
		for _, w := range weeks {
			days := make([]int, len(w.Days))
			copy(days, w.Days)
			out = append(out, model.WeeklyActivity{
				WeekStart: w.GetWeek().Time.UTC(),
				Total:     w.GetTotal(),
				Days:      days,
			})
		}
		return out, nil
	}
}

// ListRecentCommits returns the newest commits on the default branch.
func (c *Client) ListRecentCommits(ctx context.Context, owner, name string, limit int) ([]model.Commit, error) {
	opts := &github.CommitsListOptions{ListOptions: github.ListOptions{PerPage: min(max(limit, 1), 100)}}
	commits, _, err := call(ctx, c, "list_commits", func() ([]*github.RepositoryCommit, *github.Response, error) {
		return c.gh.Repositories.ListCommits(ctx, owner, name, opts)
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.Commit, 0, len(commits))
	for _, commit := range commits {
		out = append(out, toInternalCommit(commit))
	}
	return out, nil
}

// CountCommitsByAuthor returns the all-time number of commits login authored in the repository,
// as reported by the commit search API.
func (c *Client) CountCommitsByAuthor(ctx context.Context, fullName, login string) (int, error) {
	q := fmt.Sprintf("repo:%s author:%s", fullName, login)
	opts := &github.SearchOptions{ListOptions: github.ListOptions{PerPage: 1}}
	res, _, err := call(ctx, c, "search_commits", func() (*github.CommitsSearchResult, *github.Response, error) {
		return c.gh.Search.Commits(ctx, q, opts)
	})
	if err != nil {
		return 0, err
	}
	return res.GetTotal(), nil
}

// isStatus reports whether err is a GitHub error response with the given status code.
func isStatus(err error, status int) bool {
	var respErr *github.ErrorResponse
	return errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == status
}

func isForbidden(err error) bool { return isStatus(err, http.StatusForbidden) }

// toInternalRepository translates a github.Repository object to our internal model.Repository.
func toInternalRepository(r *github.Repository) *model.Repository {
	repo := &model.Repository{
		ID:              r.GetID(),
		Owner:           r.GetOwner().GetLogin(),
		OwnerType:       r.GetOwner().GetType(),
		Name:            r.GetName(),
		Description:     nonEmpty(r.Description),
		HTMLURL:         r.GetHTMLURL(),
		Homepage:        nonEmpty(r.Homepage),
		StarsCount:      r.GetStargazersCount(),
		ForksCount:      r.GetForksCount(),
		WatchersCount:   r.GetSubscribersCount(),
		OpenIssuesCount: r.GetOpenIssuesCount(),
		Language:        nonEmpty(r.Language),
		Topics:          r.Topics,
		DiskUsage:       r.GetSize(),
		IsArchived:      r.GetArchived(),
		IsFork:          r.GetFork(),
		IsDisabled:      r.GetDisabled(),
		IsTemplate:      r.GetIsTemplate(),
		HasWiki:         r.GetHasWiki(),
		HasPages:        r.GetHasPages(),
		HasDiscussions:  r.GetHasDiscussions(),
		RepoCreatedAt:   r.GetCreatedAt().Time,
		RepoUpdatedAt:   r.GetUpdatedAt().Time,
		PushedAt:        r.GetPushedAt().Time,
	}
	if repo.WatchersCount == 0 {
		repo.WatchersCount = r.GetWatchersCount()
	}
	if r.License != nil && r.License.GetSPDXID() != "" {
		spdx := r.License.GetSPDXID()
		repo.License = &spdx
	}
	return repo
}

// toInternalCommit translates a github.RepositoryCommit object to our internal model.Commit.
func toInternalCommit(c *github.RepositoryCommit) model.Commit {
	committed := c.GetCommit().GetAuthor().GetDate().Time
	if committed.IsZero() {
		committed = c.GetCommit().GetCommitter().GetDate().Time
	}
	return model.Commit{
		SHA:         c.GetSHA(),
		Message:     c.GetCommit().GetMessage(),
		AuthorLogin: c.GetAuthor().GetLogin(),
		AuthorName:  c.GetCommit().GetAuthor().GetName(),
		CommittedAt: committed.UTC(),
		URL:         c.GetHTMLURL(),
	}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
