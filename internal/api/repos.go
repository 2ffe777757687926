// internal/api/repos.go
package api

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/sync/errgroup"

	"githop/internal/ai"
	"githop/internal/database"
	custom_errors "githop/internal/errors"
	"githop/internal/model"
)

const (
	detailContributorsLimit = 30
	detailCommitsLimit      = 30
	languagesLimit          = 100
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// repositoryDetail is a repository with every stored sub-resource.
type repositoryDetail struct {
	database.Repository
	Stats          *database.RepositoryStats        `json:"stats"`
	Languages      []database.RepositoryLanguage    `json:"languages"`
	Contributors   []database.RepositoryContributor `json:"contributors"`
	CommitActivity []database.CommitActivityWeek    `json:"commit_activity"`
	RecentCommits  []database.RepositoryCommit      `json:"recent_commits"`
}

type searchResponse struct {
	listResponse
	Mode string `json:"mode"`
}

func fullNameParam(r *http.Request) (string, error) {
	fullName := chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "name")
	if _, _, ok := model.SplitFullName(fullName); !ok {
		return "", &custom_errors.ErrInvalidRepoFormat{Repo: fullName}
	}
	return fullName, nil
}

func repoNextCursor(rows []database.RepositoryListRow, f *database.RepositoryFilter) string {
	if !f.UsesCursor() || len(rows) < f.Limit || len(rows) == 0 {
		return ""
	}
	last := rows[len(rows)-1]
	return database.EncodeCursor(database.RepoCursor{Stars: last.StarsCount, ID: last.ID})
}

// listCategory returns one category by stars descending.
// GET /api/repos?category=top&limit=30&cursor=...
func (h *Handler) listCategory(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		category = model.CategoryTop
	}
	limit, err := intParam(r, "limit", database.DefaultLimit)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	f := database.RepositoryFilter{Source: category, Limit: limit, Sort: "stars", Order: "desc"}
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		if f.Cursor, err = database.DecodeRepoCursor(raw); err != nil {
			h.handleError(w, r, err)
			return
		}
	}
	if err := f.Normalize(); err != nil {
		h.handleError(w, r, err)
		return
	}

	h.cached(w, r, func() (any, error) {
		rows, err := h.store.ListRepositories(r.Context(), f)
		if err != nil {
			return nil, err
		}
		return listResponse{Data: nonNil(rows), NextCursor: repoNextCursor(rows, &f)}, nil
	})
}

func repositoryFilterFromQuery(r *http.Request) (database.RepositoryFilter, error) {
	q := r.URL.Query()
	f := database.RepositoryFilter{
		Source:   q.Get("source"),
		Language: q.Get("language"),
		Query:    strings.TrimSpace(q.Get("q")),
		Topic:    q.Get("topic"),
		Sort:     q.Get("sort"),
		Order:    q.Get("order"),
	}
	if f.Source == "" {
		f.Source = q.Get("category")
	}
	var err error
	if f.MinStars, err = intParam(r, "min_stars", 0); err != nil {
		return f, err
	}
	if f.Limit, err = intParam(r, "limit", database.DefaultLimit); err != nil {
		return f, err
	}
	if f.Offset, err = intParam(r, "offset", 0); err != nil {
		return f, err
	}
	if f.IncludeStubs, err = boolParam(r, "include_stubs"); err != nil {
		return f, err
	}
	if raw := q.Get("cursor"); raw != "" {
		if f.Cursor, err = database.DecodeRepoCursor(raw); err != nil {
			return f, err
		}
	}
	return f, f.Normalize()
}

// filterRepositories serves the full repository filter with a total count.
// GET /api/repos/filter?source=&language=&q=&topic=&min_stars=&sort=&order=&limit=&offset=&cursor=
func (h *Handler) filterRepositories(w http.ResponseWriter, r *http.Request) {
	f, err := repositoryFilterFromQuery(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.cached(w, r, func() (any, error) {
		g, ctx := errgroup.WithContext(r.Context())
		var (
			rows  []database.RepositoryListRow
			total int64
		)
		g.Go(func() error {
			var err error
			rows, err = h.store.ListRepositories(ctx, f)
			return err
		})
		g.Go(func() error {
			var err error
			total, err = h.store.CountFilteredRepositories(ctx, f)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return listResponse{Data: nonNil(rows), NextCursor: repoNextCursor(rows, &f), Total: &total}, nil
	})
}

// listLanguages returns the primary languages of stored repositories with counts.
func (h *Handler) listLanguages(w http.ResponseWriter, r *http.Request) {
	h.cached(w, r, func() (any, error) {
		langs, err := h.store.ListLanguages(r.Context(), languagesLimit)
		if err != nil {
			return nil, err
		}
		return listResponse{Data: nonNil(langs)}, nil
	})
}

// searchRepositories ranks repositories by embedding distance to q. Without an embedder, or when
// embedding fails, it falls back to the text filter.
// GET /api/repos/search?q=...&limit=...
func (h *Handler) searchRepositories(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.handleError(w, r, &custom_errors.ErrInvalidFilter{Field: "q", Value: query})
		return
	}
	limit, err := intParam(r, "limit", database.DefaultLimit)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if limit <= 0 || limit > database.MaxLimit {
		limit = database.DefaultLimit
	}

	h.cached(w, r, func() (any, error) {
		ctx := r.Context()
		if h.embedder != nil {
			vec, err := h.embedder.Embed(ctx, query)
			if err == nil {
				rows, err := h.store.SearchRepositoriesByEmbedding(ctx, vec, limit)
				if err != nil {
					return nil, err
				}
				return searchResponse{listResponse: listResponse{Data: nonNil(rows)}, Mode: "semantic"}, nil
			}
			if !errors.Is(err, custom_errors.ErrAIDisabled) {
				h.logger.Warn("Embedding search query failed, using text search", "error", err)
			}
		}
		f := database.RepositoryFilter{Query: query, Limit: limit}
		if err := f.Normalize(); err != nil {
			return nil, err
		}
		rows, err := h.store.ListRepositories(ctx, f)
		if err != nil {
			return nil, err
		}
		return searchResponse{listResponse: listResponse{Data: nonNil(rows)}, Mode: "text"}, nil
	})
}

// getRepository returns a repository with its stats and child tables.
// GET /api/repos/{owner}/{name}
func (h *Handler) getRepository(w http.ResponseWriter, r *http.Request) {
	fullName, err := fullNameParam(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	ctx := r.Context()
	repo, err := h.store.GetRepositoryByFullName(ctx, fullName)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	detail := repositoryDetail{Repository: repo}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := h.store.GetRepositoryStats(gctx, repo.ID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		detail.Stats = &stats
		return nil
	})
	g.Go(func() error {
		var err error
		detail.Languages, err = h.store.ListRepositoryLanguages(gctx, repo.ID)
		return err
	})
	g.Go(func() error {
		var err error
		detail.Contributors, err = h.store.ListRepositoryContributors(gctx, repo.ID, detailContributorsLimit)
		return err
	})
	g.Go(func() error {
		var err error
		detail.CommitActivity, err = h.store.ListCommitActivity(gctx, repo.ID)
		return err
	})
	g.Go(func() error {
		var err error
		detail.RecentCommits, err = h.store.ListRecentCommits(gctx, repo.ID, detailCommitsLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		h.handleError(w, r, err)
		return
	}
	detail.Languages = nonNil(detail.Languages)
	detail.Contributors = nonNil(detail.Contributors)
	detail.CommitActivity = nonNil(detail.CommitActivity)
	detail.RecentCommits = nonNil(detail.RecentCommits)

	respondWithJSON(w, http.StatusOK, itemResponse{Data: detail})
}

// getReadme renders the stored README as HTML.
// GET /api/repos/{owner}/{name}/readme
func (h *Handler) getReadme(w http.ResponseWriter, r *http.Request) {
	fullName, err := fullNameParam(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	readme, err := h.store.GetRepositoryReadme(r.Context(), fullName)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if readme == nil {
		respondWithError(w, http.StatusNotFound, "README not available")
		return
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(*readme), &buf); err != nil {
		h.handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, itemResponse{Data: map[string]string{
		"full_name": fullName,
		"markdown":  *readme,
		"html":      buf.String(),
	}})
}

// getSummary returns a short AI summary of a repository. Summaries are cached per repository.
// GET /api/repos/{owner}/{name}/summary
func (h *Handler) getSummary(w http.ResponseWriter, r *http.Request) {
	fullName, err := fullNameParam(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	ctx := r.Context()
	summary, err := h.summaries.Do(strings.ToLower(fullName), func() (string, error) {
		repo, err := h.store.GetRepositoryByFullName(ctx, fullName)
		if err != nil {
			return "", err
		}
		readme, err := h.store.GetRepositoryReadme(ctx, fullName)
		if err != nil {
			return "", err
		}
		return h.assistant.Summarize(ctx, ai.SummaryInput{
			FullName:    repo.FullName,
			Description: deref(repo.Description),
			Language:    deref(repo.Language),
			Topics:      repo.Topics,
			Stars:       repo.StarsCount,
			Readme:      deref(readme),
		})
	}, summaryTTL)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, itemResponse{Data: map[string]string{
		"full_name": fullName,
		"summary":   summary,
	}})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// nonNil keeps empty lists encoded as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
