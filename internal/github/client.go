// internal/github/client.go
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/retry"
	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	custom_errors "githop/internal/errors"
)

// maxRetries is the total number of attempts made for a request failing with a 5xx status.
const maxRetries = 3

// Client wraps the go-github REST client and a githubv4 GraphQL client behind one rate limiter.
type Client struct {
	gh      *github.Client
	gql     *githubv4.Client
	limiter *rate.Limiter
	logger  *slog.Logger

	rateLimitPause  time.Duration
	statsRetryDelay time.Duration
	searchDelay     time.Duration
	backoffFloor    time.Duration
	backoffCeil     time.Duration
}

type options struct {
	baseURL         string
	graphqlURL      string
	httpClient      *http.Client
	requestsPerSec  float64
	rateLimitPause  time.Duration
	statsRetryDelay time.Duration
	searchDelay     time.Duration
	backoffFloor    time.Duration
	backoffCeil     time.Duration
}

// Option configures a Client.
type Option func(*options)

// WithBaseURL points the REST client at a different API root, such as GitHub Enterprise or a test server.
func WithBaseURL(u string) Option { return func(o *options) { o.baseURL = u } }

// WithGraphQLURL points the GraphQL client at a different endpoint.
func WithGraphQLURL(u string) Option { return func(o *options) { o.graphqlURL = u } }

// WithHTTPClient replaces the oauth2 transport. The token is ignored when set.
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.httpClient = c } }

// WithRequestsPerSecond sets the pacing of every REST and GraphQL call. Zero disables pacing.
func WithRequestsPerSecond(n float64) Option { return func(o *options) { o.requestsPerSec = n } }

// WithRateLimitPause caps how long a call may sleep waiting for a rate limit reset.
func WithRateLimitPause(d time.Duration) Option { return func(o *options) { o.rateLimitPause = d } }

// WithStatsRetryDelay sets the delay between polls of a statistics endpoint answering 202.
func WithStatsRetryDelay(d time.Duration) Option { return func(o *options) { o.statsRetryDelay = d } }

// WithSearchDelay sets the delay between consecutive Search API calls.
func WithSearchDelay(d time.Duration) Option { return func(o *options) { o.searchDelay = d } }

// WithBackoff sets the bounds of the exponential backoff used on server errors.
func WithBackoff(floor, ceil time.Duration) Option {
	return func(o *options) { o.backoffFloor, o.backoffCeil = floor, ceil }
}

// NewClient creates and configures a new Client instance.
// The provided token is used to create an authenticated http.Client.
func NewClient(token string, logger *slog.Logger, opts ...Option) (*Client, error) {
	o := options{
		requestsPerSec:  5,
		rateLimitPause:  time.Minute,
		statsRetryDelay: 2 * time.Second,
		searchDelay:     2 * time.Second,
		backoffFloor:    500 * time.Millisecond,
		backoffCeil:     10 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	gh := github.NewClient(httpClient)
	if o.baseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(o.baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid github api url %q: %w", o.baseURL, err)
		}
		gh.BaseURL = u
	}

	gql := githubv4.NewClient(httpClient)
	if o.graphqlURL != "" {
		gql = githubv4.NewEnterpriseClient(o.graphqlURL, httpClient)
	}

	limit := rate.Inf
	if o.requestsPerSec > 0 {
		limit = rate.Limit(o.requestsPerSec)
	}

	return &Client{
		gh:              gh,
		gql:             gql,
		limiter:         rate.NewLimiter(limit, 1),
		logger:          logger,
		rateLimitPause:  o.rateLimitPause,
		statsRetryDelay: o.statsRetryDelay,
		searchDelay:     o.searchDelay,
		backoffFloor:    o.backoffFloor,
		backoffCeil:     o.backoffCeil,
	}, nil
}

// call runs fn behind the rate limiter. Server errors are retried with backoff up to maxRetries
// attempts; primary and secondary rate limits are slept through when the reset is within the
// configured pause, otherwise ErrRateLimited is returned.
func call[T any](ctx context.Context, c *Client, op string, fn func() (T, *github.Response, error)) (T, *github.Response, error) {
	var zero T
	ret := retry.New(c.backoffFloor, c.backoffCeil)

	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return zero, nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		v, resp, err := fn()
		if err == nil {
			return v, resp, nil
		}

		var rateErr *github.RateLimitError
		var abuseErr *github.AbuseRateLimitError
		var respErr *github.ErrorResponse
		switch {
		case errors.As(err, &rateErr):
			resetAt := rateErr.Rate.Reset.Time
			if waitErr := c.waitForReset(ctx, op, resetAt, attempt); waitErr != nil {
				return zero, resp, waitErr
			}
			continue
		case errors.As(err, &abuseErr):
			resetAt := time.Now().Add(abuseErr.GetRetryAfter())
			if waitErr := c.waitForReset(ctx, op, resetAt, attempt); waitErr != nil {
				return zero, resp, waitErr
			}
			continue
		case errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode >= 500:
			if attempt < maxRetries && ret.Wait(ctx) {
				c.logger.Warn("Retrying GitHub request after server error",
					"op", op, "attempt", attempt, "status", respErr.Response.StatusCode)
				continue
			}
		}
		return zero, resp, err
	}
}

func (c *Client) waitForReset(ctx context.Context, op string, resetAt time.Time, attempt int) error {
	wait := time.Until(resetAt)
	if wait > c.rateLimitPause || attempt >= maxRetries {
		return &custom_errors.ErrRateLimited{ResetAt: resetAt}
	}
	if wait <= 0 {
		return nil
	}
	c.logger.Warn("GitHub rate limit hit, waiting for reset", "op", op, "wait", wait.String())
	return sleep(ctx, wait)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// query runs a GraphQL query behind the rate limiter with the same server error retries as call.
func (c *Client) query(ctx context.Context, op string, q any, vars map[string]any) error {
	ret := retry.New(c.backoffFloor, c.backoffCeil)
	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
		err := c.gql.Query(ctx, q, vars)
		if err == nil {
			return nil
		}
		if isRateLimitMessage(err) {
			return &custom_errors.ErrRateLimited{ResetAt: time.Now().Add(c.rateLimitPause)}
		}
		if isServerError(err) && attempt < maxRetries && ret.Wait(ctx) {
			c.logger.Warn("Retrying GitHub GraphQL query", "op", op, "attempt", attempt, "error", err)
			continue
		}
		return fmt.Errorf("graphql %s: %w", op, err)
	}
}

func isRateLimitMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit")
}

func isServerError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "non-200 OK status code: 5")
}
