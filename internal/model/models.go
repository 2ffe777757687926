// internal/model/models.go
package model

import (
	"strings"
	"time"
)

// Repository categories. A sync pass owns exactly one tag.
const (
	CategoryTop               = "top"
	CategoryGrowing           = "growing"
	CategoryTrending          = "trending"
	CategoryTrendingWeekly    = "trending_weekly"
	CategoryTrendingMonthly   = "trending_monthly"
	CategoryTrendingQuarterly = "trending_quarterly"
	CategoryStub              = "stub"
)

// SyncStatus describes how much of a repository row has been populated.
type SyncStatus string

const (
	SyncStatusStub     SyncStatus = "stub"
	SyncStatusComplete SyncStatus = "complete"
)

// DataSource marks where contributor counts came from.
type DataSource string

const (
	// DataSourceAllTime counts come from the REST contributors endpoint.
	DataSourceAllTime DataSource = "all_time"
	// DataSourceRecent counts are approximated from recent history and the commit search API.
	DataSourceRecent DataSource = "recent"
)

// Owner types as reported by GitHub.
const (
	OwnerTypeUser         = "User"
	OwnerTypeOrganization = "Organization"
)

// Repository is the full metadata of a GitHub repository as fetched from the API.
type Repository struct {
	ID               int64
	Owner            string
	OwnerType        string
	Name             string
	Description      *string
	HTMLURL          string
	Homepage         *string
	StarsCount       int
	ForksCount       int
	WatchersCount    int
	OpenIssuesCount  int
	Language         *string
	Topics           []string
	License          *string
	Readme           *string
	DiskUsage        int
	IsArchived       bool
	IsFork           bool
	IsDisabled       bool
	IsTemplate       bool
	HasWiki          bool
	HasPages         bool
	HasDiscussions   bool
	RepoCreatedAt    time.Time
	RepoUpdatedAt    time.Time
	PushedAt         time.Time
	LastReleaseAt    *time.Time
	CommitsLastMonth int
	CommitsLastYear  int
	Languages        []LanguageShare
}

// FullName returns the owner/name form of the repository.
func (r *Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// LanguageShare is one entry of a repository's language breakdown.
type LanguageShare struct {
	Name       string
	Bytes      int64
	Percentage float64
}

// Contributor is a contributor login with a contribution count.
type Contributor struct {
	ID            int64
	Login         string
	AvatarURL     string
	Contributions int
	Source        DataSource
}

// WeeklyActivity is one week of the commit activity histogram.
type WeeklyActivity struct {
	WeekStart time.Time
	Total     int
	Days      []int
}

// Commit holds the metadata of a single recent commit.
type Commit struct {
	SHA         string
	Message     string
	AuthorLogin string
	AuthorName  string
	CommittedAt time.Time
	URL         string
}

// TrendingRepo is a repository ranked by GH Archive WatchEvent count.
type TrendingRepo struct {
	FullName string `bigquery:"repo_name"`
	Events   int64  `bigquery:"events"`
}

// SplitFullName splits "owner/name". ok is false when the input is not in that form.
func SplitFullName(fullName string) (owner, name string, ok bool) {
	parts := strings.Split(fullName, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
