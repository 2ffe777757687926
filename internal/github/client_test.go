// internal/github/client_test.go
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	custom_errors "githop/internal/errors"
	"githop/internal/model"
)

// setupTestClient creates a httptest server and a client pointing both its REST and GraphQL
// endpoints to it.
func setupTestClient(t *testing.T, handler http.Handler, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	base := []Option{
		WithHTTPClient(server.Client()),
		WithBaseURL(server.URL),
		WithGraphQLURL(server.URL + "/graphql"),
		WithRequestsPerSecond(0),
		WithBackoff(time.Millisecond, 5*time.Millisecond),
		WithStatsRetryDelay(time.Millisecond),
		WithSearchDelay(0),
	}
	client, err := NewClient("", logger, append(base, opts...)...)
	require.NoError(t, err)
	return client, server
}

const repoJSON = `{"id": 1, "name": "repo", "owner": {"login": "test", "type": "Organization"}, "stargazers_count": 42, "license": {"spdx_id": "MIT"}}`

func TestClient_GetRepository_Retry(t *testing.T) {
	t.Run("succeeds on first try", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			assert.Equal(t, "/repos/test/repo", r.URL.Path)
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, repoJSON)
		})
		client, _ := setupTestClient(t, handler)

		repo, err := client.GetRepository(context.Background(), "test", "repo")

		require.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&requestCount))
		assert.Equal(t, "repo", repo.Name)
		assert.Equal(t, "test/repo", repo.FullName())
		assert.Equal(t, 42, repo.StarsCount)
		assert.Equal(t, model.OwnerTypeOrganization, repo.OwnerType)
		require.NotNil(t, repo.License)
		assert.Equal(t, "MIT", *repo.License)
	})

	t.Run("retries on 503 server error and succeeds", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count := atomic.AddInt32(&requestCount, 1)
			if count == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, repoJSON)
		})
		client, _ := setupTestClient(t, handler)

		_, err := client.GetRepository(context.Background(), "test", "repo")

		require.NoError(t, err)
		assert.Equal(t, int32(2), atomic.LoadInt32(&requestCount), "should have made two requests")
	})

	t.Run("waits for a rate limit reset within the pause", func(t *testing.T) {
		var requestCount int32
		resetTime := time.Now().Add(1500 * time.Millisecond).Truncate(time.Second)
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count := atomic.AddInt32(&requestCount, 1)
			if count == 1 {
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetTime.Unix()))
				w.WriteHeader(http.StatusForbidden)
				fmt.Fprintln(w, `{"message": "API rate limit exceeded"}`)
				return
			}
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, repoJSON)
		})
		client, _ := setupTestClient(t, handler, WithRateLimitPause(5*time.Second))

		startTime := time.Now()
		_, err := client.GetRepository(context.Background(), "test", "repo")
		elapsed := time.Since(startTime)

		require.NoError(t, err)
		assert.GreaterOrEqual(t, elapsed, 400*time.Millisecond, "client should wait for rate limit reset")
		assert.Equal(t, int32(2), atomic.LoadInt32(&requestCount))
	})

	t.Run("returns ErrRateLimited when the reset is too far away", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(time.Hour).Unix()))
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprintln(w, `{"message": "API rate limit exceeded"}`)
		})
		client, _ := setupTestClient(t, handler, WithRateLimitPause(10*time.Millisecond))

		_, err := client.GetRepository(context.Background(), "test", "repo")

		require.Error(t, err)
		assert.True(t, custom_errors.IsRateLimited(err))
		assert.Equal(t, int32(1), atomic.LoadInt32(&requestCount))
	})

	t.Run("fails after max retries on persistent server error", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			w.WriteHeader(http.StatusInternalServerError)
		})
		client, _ := setupTestClient(t, handler)

		_, err := client.GetRepository(context.Background(), "test", "repo")

		require.Error(t, err)
		var ghErr *github.ErrorResponse
		assert.ErrorAs(t, err, &ghErr)
		assert.Equal(t, http.StatusInternalServerError, ghErr.Response.StatusCode)
		assert.Equal(t, int32(maxRetries), atomic.LoadInt32(&requestCount))
	})
}

func TestClient_GetCommitActivity(t *testing.T) {
	t.Run("returns ErrStatsPending after the first call and three retries", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			w.WriteHeader(http.StatusAccepted)
		})
		client, _ := setupTestClient(t, handler)

		_, err := client.GetCommitActivity(context.Background(), "test", "repo")

		assert.ErrorIs(t, err, custom_errors.ErrStatsPending)
		assert.Equal(t, int32(1+statsPendingRetries), atomic.LoadInt32(&requestCount))
	})

	t.Run("returns weeks once statistics are ready", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/repos/test/repo/stats/commit_activity", r.URL.Path)
			if atomic.AddInt32(&requestCount, 1) == 1 {
				w.WriteHeader(http.StatusAccepted)
				return
			}
			fmt.Fprintln(w, `[{"days": [0, 3, 2, 1, 4, 0, 0], "total": 10, "week": 1704585600}]`)
		})
		client, _ := setupTestClient(t, handler)

		weeks, err := client.GetCommitActivity(context.Background(), "test", "repo")

		require.NoError(t, err)
		require.Len(t, weeks, 1)
		assert.Equal(t, 10, weeks[0].Total)
		assert.Equal(t, []int{0, 3, 2, 1, 4, 0, 0}, weeks[0].Days)
		assert.Equal(t, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), weeks[0].WeekStart)
	})
}

func TestClient_ListLanguages(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"Shell": 100, "Go": 300}`)
	})
	client, _ := setupTestClient(t, handler)

	langs, err := client.ListLanguages(context.Background(), "test", "repo")

	require.NoError(t, err)
	assert.Equal(t, []model.LanguageShare{
		{Name: "Go", Bytes: 300, Percentage: 75},
		{Name: "Shell", Bytes: 100, Percentage: 25},
	}, langs)
}

func searchPage(server func() string, from, n int, next int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := make([]string, 0, n)
		for i := from; i < from+n; i++ {
			items = append(items, fmt.Sprintf(`{"id": %d, "name": "r%d", "owner": {"login": "o"}}`, i, i))
		}
		if next > 0 {
			w.Header().Set("Link", fmt.Sprintf(`<%s/search/repositories?page=%d>; rel="next"`, server(), next))
		}
		fmt.Fprintf(w, `{"total_count": 1000, "items": [%s]}`, strings.Join(items, ","))
	}
}

func TestClient_SearchRepositories(t *testing.T) {
	var url string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/repositories", r.URL.Path)
		assert.Equal(t, "stars:>10000", r.URL.Query().Get("q"))
		switch r.URL.Query().Get("page") {
		case "", "1":
			searchPage(func() string { return url }, 1, 100, 2)(w, r)
		default:
			searchPage(func() string { return url }, 101, 20, 0)(w, r)
		}
	})
	client, server := setupTestClient(t, handler)
	url = server.URL

	t.Run("pages until results run out", func(t *testing.T) {
		repos, err := client.SearchRepositories(context.Background(), "stars:>10000", "stars", 500)
		require.NoError(t, err)
		assert.Len(t, repos, 120)
		assert.Equal(t, int64(120), repos[119].ID)
	})

	t.Run("stops at the target", func(t *testing.T) {
		repos, err := client.SearchRepositories(context.Background(), "stars:>10000", "stars", 50)
		require.NoError(t, err)
		assert.Len(t, repos, 50)
	})
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func decodeGraphQL(t *testing.T, r *http.Request) graphqlRequest {
	t.Helper()
	body, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var req graphqlRequest
	require.NoError(t, json.Unmarshal(body, &req))
	return req
}

func TestClient_GetRepositoryDetails(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/graphql", r.URL.Path)
		req := decodeGraphQL(t, r)
		assert.Equal(t, "test", req.Variables["owner"])
		fmt.Fprintln(w, `{"data": {"repository": {
			"databaseId": 7, "name": "repo", "owner": {"login": "test", "__typename": "User"}, "description": "A tool",
			"url": "https://github.com/test/repo", "stargazerCount": 10, "forkCount": 2,
			"watchers": {"totalCount": 3}, "issues": {"totalCount": 4},
			"primaryLanguage": {"name": "Go"},
			"repositoryTopics": {"nodes": [{"topic": {"name": "cli"}}]},
			"licenseInfo": {"spdxId": "NOASSERTION", "name": "Custom"},
			"diskUsage": 100, "isArchived": false,
			"createdAt": "2020-01-01T00:00:00Z", "updatedAt": "2024-01-01T00:00:00Z",
			"pushedAt": "2024-01-02T00:00:00Z", "latestRelease": null,
			"languages": {"edges": [{"size": 300, "node": {"name": "Go"}}, {"size": 100, "node": {"name": "Shell"}}]},
			"readmeUpper": null, "readmeLower": {"text": "# hello"}, "readmeTitle": null, "readmePlain": null,
			"defaultBranchRef": {"target": {"month": {"totalCount": 5}, "year": {"totalCount": 50}}}
		}}}`)
	})
	client, _ := setupTestClient(t, handler)

	repo, err := client.GetRepositoryDetails(context.Background(), "test", "repo")

	require.NoError(t, err)
	assert.Equal(t, int64(7), repo.ID)
	assert.Equal(t, model.OwnerTypeUser, repo.OwnerType)
	assert.Equal(t, []string{"cli"}, repo.Topics)
	require.NotNil(t, repo.Readme)
	assert.Equal(t, "# hello", *repo.Readme)
	require.NotNil(t, repo.License)
	assert.Equal(t, "Custom", *repo.License)
	assert.Equal(t, 5, repo.CommitsLastMonth)
	assert.Equal(t, 50, repo.CommitsLastYear)
	assert.Equal(t, 75.0, repo.Languages[0].Percentage)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), repo.PushedAt.UTC())
}

func TestClient_FetchContributors(t *testing.T) {
	t.Run("uses the contributors endpoint when it answers", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/repos/test/repo/contributors", r.URL.Path)
			fmt.Fprintln(w, `[{"id": 1, "login": "alice", "contributions": 10}, {"id": 2, "login": "bob", "contributions": 4}]`)
		})
		client, _ := setupTestClient(t, handler)

		got, err := client.FetchContributors(context.Background(), "test", "repo", 10)

		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, model.DataSourceAllTime, got[0].Source)
	})

	t.Run("falls back to history and commit search when the list is too large", func(t *testing.T) {
		var searches int32
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/test/repo/contributors", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprintln(w, `{"message": "The history or contributor list is too large to list contributors for this repository via the API."}`)
		})
		mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
			req := decodeGraphQL(t, r)
			assert.Contains(t, req.Query, "history(first: 100, after: $cursor)")
			fmt.Fprintln(w, `{"data": {"repository": {"defaultBranchRef": {"target": {"history": {
				"pageInfo": {"hasNextPage": false, "endCursor": "abc"},
				"nodes": [
					{"author": {"user": {"databaseId": 1, "login": "alice", "avatarUrl": "a"}}},
					{"author": {"user": {"databaseId": 2, "login": "bob", "avatarUrl": "b"}}},
					{"author": {"user": {"databaseId": 2, "login": "bob", "avatarUrl": "b"}}},
					{"author": {"user": null}}
				]}}}}}}`)
		})
		mux.HandleFunc("/search/commits", func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&searches, 1)
			total := 3
			if strings.Contains(r.URL.Query().Get("q"), "author:alice") {
				total = 900
			}
			fmt.Fprintf(w, `{"total_count": %d, "items": []}`, total)
		})
		client, _ := setupTestClient(t, mux)

		got, err := client.FetchContributors(context.Background(), "test", "repo", 10)

		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "alice", got[0].Login)
		assert.Equal(t, 900, got[0].Contributions)
		assert.Equal(t, "bob", got[1].Login)
		assert.Equal(t, 3, got[1].Contributions)
		assert.Equal(t, model.DataSourceRecent, got[1].Source)
		assert.Equal(t, int32(2), atomic.LoadInt32(&searches))
	})

	t.Run("reports unavailable when every source is empty", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/test/repo/contributors", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, `{"data": {"repository": {"defaultBranchRef": null}}}`)
		})
		client, _ := setupTestClient(t, mux)

		_, err := client.FetchContributors(context.Background(), "test", "repo", 10)

		assert.ErrorIs(t, err, custom_errors.ErrContributorsUnavailable)
	})
}
