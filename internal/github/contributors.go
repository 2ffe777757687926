// internal/github/contributors.go
package github

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-github/v62/github"

	custom_errors "githop/internal/errors"
	"githop/internal/model"
)

// FetchContributors returns the top limit contributors of a repository.
//
// The REST contributors endpoint is tried first. When it refuses (403, or the history is too
// large to list) or returns nothing, the default-branch history is scanned over GraphQL and each
// discovered author's all-time count is looked up with the commit search API, one call at a time.
// Counts from the fallback path are marked as recent.
func (c *Client) FetchContributors(ctx context.Context, owner, name string, limit int) ([]model.Contributor, error) {
	logger := c.logger.With("repo", owner+"/"+name)

	contributors, err := c.ListContributors(ctx, owner, name, limit)
	switch {
	case err == nil && len(contributors) > 0:
		return contributors, nil
	case err != nil && !needsContributorFallback(err):
		return nil, err
	case err != nil:
		logger.Info("Contributors endpoint unavailable, scanning commit history", "error", err)
	default:
		logger.Info("Contributors endpoint returned no data, scanning commit history")
	}

	authors, err := c.ListCommitHistoryAuthors(ctx, owner, name, maxHistoryPages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", custom_errors.ErrContributorsUnavailable, err)
	}
	if len(authors) == 0 {
		return nil, custom_errors.ErrContributorsUnavailable
	}
	if limit > 0 && len(authors) > limit {
		authors = authors[:limit]
	}

	fullName := owner + "/" + name
	for i := range authors {
		if i > 0 {
			if err := sleep(ctx, c.searchDelay); err != nil {
				return nil, err
			}
		}
		total, err := c.CountCommitsByAuthor(ctx, fullName, authors[i].Login)
		if err != nil {
			if custom_errors.IsRateLimited(err) {
				logger.Warn("Commit search rate limited, keeping history counts", "remaining", len(authors)-i)
				break
			}
			logger.Debug("Failed to count commits for author", "login", authors[i].Login, "error", err)
			continue
		}
		if total > authors[i].Contributions {
			authors[i].Contributions = total
		}
	}
	sortContributors(authors)
	return authors, nil
}

func needsContributorFallback(err error) bool {
	if isForbidden(err) {
		return true
	}
	var respErr *github.ErrorResponse
	return errors.As(err, &respErr) && strings.Contains(strings.ToLower(respErr.Message), "too large")
}
