// internal/github/graphql.go
package github

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shurcooL/githubv4"

	"githop/internal/model"
)

type blobText struct {
	Blob struct {
		Text *string
	} `graphql:"... on Blob"`
}

type topicsConnection struct {
	Nodes []struct {
		Topic struct {
			Name string
		}
	}
}

func (t topicsConnection) names() []string {
	out := make([]string, 0, len(t.Nodes))
	for _, n := range t.Nodes {
		out = append(out, n.Topic.Name)
	}
	return out
}

type repositoryDetails struct {
	DatabaseID int64
	Name       string
	Owner      struct {
		Login    string
		Typename string `graphql:"__typename"`
	}
	Description    *string
	URL            string  `graphql:"url"`
	HomepageURL    *string `graphql:"homepageUrl"`
	StargazerCount int
	ForkCount      int
	Watchers       struct {
		TotalCount int
	}
	Issues struct {
		TotalCount int
	} `graphql:"issues(states: OPEN)"`
	PrimaryLanguage *struct {
		Name string
	}
	RepositoryTopics topicsConnection `graphql:"repositoryTopics(first: 20)"`
	LicenseInfo      *struct {
		SpdxID string `graphql:"spdxId"`
		Name   string
	}
	DiskUsage             int
	IsArchived            bool
	IsFork                bool
	IsDisabled            bool
	IsTemplate            bool
	HasWikiEnabled        bool
	HasDiscussionsEnabled bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
	PushedAt              *time.Time
	LatestRelease         *struct {
		PublishedAt *time.Time
	}
	Languages struct {
		Edges []struct {
			Size int64
			Node struct {
				Name string
			}
		}
	} `graphql:"languages(first: 10, orderBy: {field: SIZE, direction: DESC})"`
	ReadmeUpper      *blobText `graphql:"readmeUpper: object(expression: \"HEAD:README.md\")"`
	ReadmeLower      *blobText `graphql:"readmeLower: object(expression: \"HEAD:readme.md\")"`
	ReadmeTitle      *blobText `graphql:"readmeTitle: object(expression: \"HEAD:Readme.md\")"`
	ReadmePlain      *blobText `graphql:"readmePlain: object(expression: \"HEAD:README\")"`
	DefaultBranchRef *struct {
		Target struct {
			Commit struct {
				Month struct {
					TotalCount int
				} `graphql:"month: history(since: $monthSince)"`
				Year struct {
					TotalCount int
				} `graphql:"year: history(since: $yearSince)"`
			} `graphql:"... on Commit"`
		}
	}
}

// GetRepositoryDetails fetches a repository with its languages, README and commit counts in one
// GraphQL round trip.
func (c *Client) GetRepositoryDetails(ctx context.Context, owner, name string) (*model.Repository, error) {
	var q struct {
		Repository *repositoryDetails `graphql:"repository(owner: $owner, name: $name)"`
	}
	now := time.Now().UTC()
	vars := map[string]any{
		"owner":      githubv4.String(owner),
		"name":       githubv4.String(name),
		"monthSince": githubv4.GitTimestamp{Time: now.AddDate(0, 0, -30)},
		"yearSince":  githubv4.GitTimestamp{Time: now.AddDate(0, 0, -365)},
	}
	if err := c.query(ctx, "repository_details", &q, vars); err != nil {
		return nil, err
	}
	if q.Repository == nil {
		return nil, fmt.Errorf("repository %s/%s not found", owner, name)
	}
	return q.Repository.toModel(), nil
}

func (d *repositoryDetails) toModel() *model.Repository {
	r := &model.Repository{
		ID:              d.DatabaseID,
		Owner:           d.Owner.Login,
		OwnerType:       d.Owner.Typename,
		Name:            d.Name,
		Description:     nonEmpty(d.Description),
		HTMLURL:         d.URL,
		Homepage:        nonEmpty(d.HomepageURL),
		StarsCount:      d.StargazerCount,
		ForksCount:      d.ForkCount,
		WatchersCount:   d.Watchers.TotalCount,
		OpenIssuesCount: d.Issues.TotalCount,
		Topics:          d.RepositoryTopics.names(),
		DiskUsage:       d.DiskUsage,
		IsArchived:      d.IsArchived,
		IsFork:          d.IsFork,
		IsDisabled:      d.IsDisabled,
		IsTemplate:      d.IsTemplate,
		HasWiki:         d.HasWikiEnabled,
		HasDiscussions:  d.HasDiscussionsEnabled,
		RepoCreatedAt:   d.CreatedAt,
		RepoUpdatedAt:   d.UpdatedAt,
	}
	if d.PushedAt != nil {
		r.PushedAt = *d.PushedAt
	}
	if d.PrimaryLanguage != nil && d.PrimaryLanguage.Name != "" {
		lang := d.PrimaryLanguage.Name
		r.Language = &lang
	}
	if d.LicenseInfo != nil {
		license := d.LicenseInfo.SpdxID
		if license == "" || license == "NOASSERTION" {
			license = d.LicenseInfo.Name
		}
		if license != "" {
			r.License = &license
		}
	}
	if d.LatestRelease != nil {
		r.LastReleaseAt = d.LatestRelease.PublishedAt
	}
	if d.DefaultBranchRef != nil {
		r.CommitsLastMonth = d.DefaultBranchRef.Target.Commit.Month.TotalCount
		r.CommitsLastYear = d.DefaultBranchRef.Target.Commit.Year.TotalCount
	}

	sizes := make(map[string]int64, len(d.Languages.Edges))
	for _, e := range d.Languages.Edges {
		sizes[e.Node.Name] = e.Size
	}
	r.Languages = languageShares(sizes)

	for _, blob := range []*blobText{d.ReadmeUpper, d.ReadmeLower, d.ReadmeTitle, d.ReadmePlain} {
		if blob != nil && blob.Blob.Text != nil && strings.TrimSpace(*blob.Blob.Text) != "" {
			r.Readme = blob.Blob.Text
			break
		}
	}
	return r
}

type developerRepoNode struct {
	DatabaseID      int64
	Name            string
	Owner           struct{ Login string }
	Description     *string
	StargazerCount  int
	ForkCount       int
	PrimaryLanguage *struct {
		Name string
	}
	RepositoryTopics topicsConnection `graphql:"repositoryTopics(first: 10)"`
	PushedAt         *time.Time
	DiskUsage        int
	IsArchived       bool
	IsFork           bool
	DefaultBranchRef *struct {
		Target struct {
			Commit struct {
				History struct {
					TotalCount int
				}
			} `graphql:"... on Commit"`
		}
	}
}

func (n developerRepoNode) toModel(isOwner bool) model.DeveloperRepo {
	r := model.DeveloperRepo{
		ID:          n.DatabaseID,
		Owner:       n.Owner.Login,
		Name:        n.Name,
		Description: nonEmpty(n.Description),
		Stars:       n.StargazerCount,
		Forks:       n.ForkCount,
		Topics:      n.RepositoryTopics.names(),
		DiskUsage:   n.DiskUsage,
		IsArchived:  n.IsArchived,
		IsFork:      n.IsFork,
		IsOwner:     isOwner,
	}
	if n.PrimaryLanguage != nil && n.PrimaryLanguage.Name != "" {
		lang := n.PrimaryLanguage.Name
		r.Language = &lang
	}
	if n.PushedAt != nil {
		r.PushedAt = *n.PushedAt
	}
	if n.DefaultBranchRef != nil {
		r.TotalCommits = n.DefaultBranchRef.Target.Commit.History.TotalCount
	}
	return r
}

type developerQuery struct {
	User *struct {
		DatabaseID int64
		Login      string
		Name       *string
		AvatarURL  string `graphql:"avatarUrl"`
		URL        string `graphql:"url"`
		Bio        *string
		Company    *string
		Location   *string
		WebsiteURL *string `graphql:"websiteUrl"`
		CreatedAt  time.Time
		Followers  struct {
			TotalCount int
		}
		Following struct {
			TotalCount int
		}
		Repositories struct {
			TotalCount int
			Nodes      []developerRepoNode
		} `graphql:"repositories(first: 100, ownerAffiliations: OWNER, isFork: false, orderBy: {field: STARGAZERS, direction: DESC})"`
		RepositoriesContributedTo struct {
			Nodes []developerRepoNode
		} `graphql:"repositoriesContributedTo(first: 50, contributionTypes: [COMMIT, PULL_REQUEST], orderBy: {field: STARGAZERS, direction: DESC})"`
		ContributionsCollection struct {
			CommitContributionsByRepository []struct {
				Repository struct {
					DatabaseID int64
				}
				Contributions struct {
					TotalCount int
				}
			} `graphql:"commitContributionsByRepository(maxRepositories: 100)"`
		}
	} `graphql:"user(login: $login)"`
}

// GetDeveloperProfile fetches a user with their owned and contributed repositories. RecentCommits
// on each repository is the user's own commit count over the last year.
func (c *Client) GetDeveloperProfile(ctx context.Context, login string) (*model.DeveloperProfile, error) {
	var q developerQuery
	if err := c.query(ctx, "developer_profile", &q, map[string]any{"login": githubv4.String(login)}); err != nil {
		return nil, err
	}
	u := q.User
	if u == nil {
		return nil, fmt.Errorf("user %s not found", login)
	}

	recent := make(map[int64]int, len(u.ContributionsCollection.CommitContributionsByRepository))
	for _, cc := range u.ContributionsCollection.CommitContributionsByRepository {
		recent[cc.Repository.DatabaseID] = cc.Contributions.TotalCount
	}

	p := &model.DeveloperProfile{
		ID:               u.DatabaseID,
		Login:            u.Login,
		Name:             nonEmpty(u.Name),
		AvatarURL:        u.AvatarURL,
		HTMLURL:          u.URL,
		Bio:              nonEmpty(u.Bio),
		Company:          nonEmpty(u.Company),
		Location:         nonEmpty(u.Location),
		Blog:             nonEmpty(u.WebsiteURL),
		Followers:        u.Followers.TotalCount,
		Following:        u.Following.TotalCount,
		PublicRepos:      u.Repositories.TotalCount,
		AccountCreatedAt: u.CreatedAt,
	}
	for _, n := range u.Repositories.Nodes {
		r := n.toModel(true)
		r.RecentCommits = recent[r.ID]
		p.OwnedRepos = append(p.OwnedRepos, r)
	}
	for _, n := range u.RepositoriesContributedTo.Nodes {
		if strings.EqualFold(n.Owner.Login, u.Login) {
			continue
		}
		r := n.toModel(false)
		r.RecentCommits = recent[r.ID]
		p.ContributedRepos = append(p.ContributedRepos, r)
	}
	return p, nil
}

type historyQuery struct {
	Repository *struct {
		DefaultBranchRef *struct {
			Target struct {
				Commit struct {
					History struct {
						PageInfo struct {
							HasNextPage bool
							EndCursor   githubv4.String
						}
						Nodes []struct {
							Author struct {
								User *struct {
									DatabaseID int64
									Login      string
									AvatarURL  string `graphql:"avatarUrl"`
								}
							}
						}
					} `graphql:"history(first: 100, after: $cursor)"`
				} `graphql:"... on Commit"`
			}
		}
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// maxHistoryPages bounds ListCommitHistoryAuthors.
const maxHistoryPages = 5

// ListCommitHistoryAuthors scans up to pages of 100 default-branch commits and returns the
// distinct authors with a GitHub account, most commits first.
func (c *Client) ListCommitHistoryAuthors(ctx context.Context, owner, name string, pages int) ([]model.Contributor, error) {
	if pages <= 0 || pages > maxHistoryPages {
		pages = maxHistoryPages
	}
	byLogin := make(map[string]*model.Contributor)
	var cursor *githubv4.String

	for page := 0; page < pages; page++ {
		var q historyQuery
		vars := map[string]any{
			"owner":  githubv4.String(owner),
			"name":   githubv4.String(name),
			"cursor": cursor,
		}
		if err := c.query(ctx, "commit_history", &q, vars); err != nil {
			return nil, err
		}
		if q.Repository == nil || q.Repository.DefaultBranchRef == nil {
			break
		}
		history := q.Repository.DefaultBranchRef.Target.Commit.History
		for _, n := range history.Nodes {
			u := n.Author.User
			if u == nil || u.Login == "" {
				continue
			}
			key := strings.ToLower(u.Login)
			if existing, ok := byLogin[key]; ok {
				existing.Contributions++
				continue
			}
			byLogin[key] = &model.Contributor{
				ID:            u.DatabaseID,
				Login:         u.Login,
				AvatarURL:     u.AvatarURL,
				Contributions: 1,
				Source:        model.DataSourceRecent,
			}
		}
		if !history.PageInfo.HasNextPage {
			break
		}
		end := history.PageInfo.EndCursor
		cursor = &end
	}

	out := make([]model.Contributor, 0, len(byLogin))
	for _, c := range byLogin {
		out = append(out, *c)
	}
	sortContributors(out)
	return out, nil
}

func sortContributors(cs []model.Contributor) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Contributions != cs[j].Contributions {
			return cs[i].Contributions > cs[j].Contributions
		}
		return strings.ToLower(cs[i].Login) < strings.ToLower(cs[j].Login)
	})
}
