// internal/gharchive/gharchive.go
package gharchive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/compute/metadata"
	"google.golang.org/api/iterator"

	custom_errors "githop/internal/errors"
	"githop/internal/model"
)

// Period is a trend window over GH Archive.
type Period string

const (
	Weekly    Period = "weekly"
	Monthly   Period = "monthly"
	Quarterly Period = "quarterly"
)

// Periods lists the supported trend windows.
var Periods = []Period{Weekly, Monthly, Quarterly}

// Days returns the length of the window. ok is false for an unknown period.
func (p Period) Days() (days int, ok bool) {
	switch p {
	case Weekly:
		return 7, true
	case Monthly:
		return 30, true
	case Quarterly:
		return 90, true
	}
	return 0, false
}

// Category returns the repository category tag of the period.
func (p Period) Category() string {
	switch p {
	case Weekly:
		return model.CategoryTrendingWeekly
	case Monthly:
		return model.CategoryTrendingMonthly
	case Quarterly:
		return model.CategoryTrendingQuarterly
	}
	return ""
}

// ResultLimit is the number of repositories returned per period.
const ResultLimit = 100

const topStarredSQL = "SELECT repo.name AS repo_name, COUNT(*) AS events\n" +
	"FROM `githubarchive.day.20*`\n" +
	"WHERE _TABLE_SUFFIX BETWEEN @start AND @end\n" +
	"  AND type = 'WatchEvent'\n" +
	"GROUP BY repo_name\n" +
	"ORDER BY events DESC\n" +
	"LIMIT @limit"

// Query is a parameterized BigQuery statement.
type Query struct {
	SQL    string
	Params []bigquery.QueryParameter
}

// BuildTopStarredQuery returns the statement ranking repositories by WatchEvent count over the
// days of p ending yesterday. Day tables are matched by their suffix after "20", e.g. "240131".
func BuildTopStarredQuery(p Period, now time.Time) (Query, error) {
	days, ok := p.Days()
	if !ok {
		return Query{}, fmt.Errorf("unknown trend period %q", p)
	}
	end := now.UTC().AddDate(0, 0, -1)
	start := end.AddDate(0, 0, -(days - 1))
	return Query{
		SQL: topStarredSQL,
		Params: []bigquery.QueryParameter{
			{Name: "start", Value: start.Format("060102")},
			{Name: "end", Value: end.Format("060102")},
			{Name: "limit", Value: ResultLimit},
		},
	}, nil
}

// Client ranks repositories by GH Archive star events.
type Client struct {
	bq     *bigquery.Client
	logger *slog.Logger
	now    func() time.Time
}

// ResolveProjectID returns configured when set, otherwise the project of the GCE metadata server.
// It returns ErrTrendsDisabled when neither is available.
func ResolveProjectID(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if !metadata.OnGCE() {
		return "", custom_errors.ErrTrendsDisabled
	}
	id, err := metadata.ProjectID()
	if err != nil || id == "" {
		return "", custom_errors.ErrTrendsDisabled
	}
	return id, nil
}

// NewClient connects to BigQuery under projectID using application default credentials.
func NewClient(ctx context.Context, projectID string, logger *slog.Logger) (*Client, error) {
	bq, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create bigquery client: %w", err)
	}
	return &Client{bq: bq, logger: logger, now: time.Now}, nil
}

// Close releases the BigQuery client.
func (c *Client) Close() error {
	return c.bq.Close()
}

// TopStarred returns the repositories with the most WatchEvents over period p, highest first.
func (c *Client) TopStarred(ctx context.Context, p Period) ([]model.TrendingRepo, error) {
	built, err := BuildTopStarredQuery(p, c.now())
	if err != nil {
		return nil, err
	}
	q := c.bq.Query(built.SQL)
	q.Parameters = built.Params

	c.logger.Info("Querying GH Archive", "period", p)
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run gh archive query: %w", err)
	}

	var out []model.TrendingRepo
	for {
		var row model.TrendingRepo
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read gh archive row: %w", err)
		}
		if _, _, ok := model.SplitFullName(row.FullName); !ok {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}
