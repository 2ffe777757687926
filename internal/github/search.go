// internal/github/search.go
package github

import (
	"context"

	"github.com/google/go-github/v62/github"

	"githop/internal/model"
)

const (
	searchPerPage = 100
	// searchResultCap is the maximum number of results the Search API will page through.
	searchResultCap = 1000
)

// SearchRepositories pages through the repository search API until target results are collected
// or the results run out.
func (c *Client) SearchRepositories(ctx context.Context, query, sort string, target int) ([]*model.Repository, error) {
	target = min(target, searchResultCap)
	opts := &github.SearchOptions{
		Sort:        sort,
		Order:       "desc",
		ListOptions: github.ListOptions{PerPage: searchPerPage, Page: 1},
	}

	var out []*model.Repository
	for len(out) < target {
		c.logger.Debug("Searching repositories", "query", query, "page", opts.Page)
		res, resp, err := call(ctx, c, "search_repositories", func() (*github.RepositoriesSearchResult, *github.Response, error) {
			return c.gh.Search.Repositories(ctx, query, opts)
		})
		if err != nil {
			return out, err
		}
		for _, r := range res.Repositories {
			out = append(out, toInternalRepository(r))
		}
		if len(res.Repositories) < searchPerPage || resp.NextPage == 0 || opts.Page*searchPerPage >= searchResultCap {
			break
		}
		opts.Page = resp.NextPage
		if err := sleep(ctx, c.searchDelay); err != nil {
			return out, err
		}
	}
	if len(out) > target {
		out = out[:target]
	}
	return out, nil
}

// SearchUsers pages through the user search API and returns logins in result order.
func (c *Client) SearchUsers(ctx context.Context, query, sort string, target int) ([]string, error) {
	target = min(target, searchResultCap)
	opts := &github.SearchOptions{
		Sort:        sort,
		Order:       "desc",
		ListOptions: github.ListOptions{PerPage: searchPerPage, Page: 1},
	}

	var out []string
	for len(out) < target {
		c.logger.Debug("Searching users", "query", query, "page", opts.Page)
		res, resp, err := call(ctx, c, "search_users", func() (*github.UsersSearchResult, *github.Response, error) {
			return c.gh.Search.Users(ctx, query, opts)
		})
		if err != nil {
			return out, err
		}
		for _, u := range res.Users {
			if u.GetType() == "Organization" {
				continue
			}
			out = append(out, u.GetLogin())
		}
		if len(res.Users) < searchPerPage || resp.NextPage == 0 || opts.Page*searchPerPage >= searchResultCap {
			break
		}
		opts.Page = resp.NextPage
		if err := sleep(ctx, c.searchDelay); err != nil {
			return out, err
		}
	}
	if len(out) > target {
		out = out[:target]
	}
	return out, nil
}
