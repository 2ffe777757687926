// internal/api/developers.go
package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"githop/internal/ai"
	"githop/internal/database"
	custom_errors "githop/internal/errors"
)

type developerDetail struct {
	database.Developer
	TopRepos []database.DeveloperTopRepo `json:"top_repos"`
}

type developerSearchResponse struct {
	listResponse
	Intent ai.SearchIntent `json:"intent"`
}

func developerNextCursor(rows []database.Developer, f *database.DeveloperFilter) string {
	if !f.UsesCursor() || len(rows) == 0 || len(rows) < f.Limit {
		return ""
	}
	last := rows[len(rows)-1]
	return database.EncodeCursor(database.DeveloperCursor{Followers: last.Followers, ID: last.ID})
}

func developerFilterFromQuery(r *http.Request) (database.DeveloperFilter, error) {
	q := r.URL.Query()
	f := database.DeveloperFilter{
		Query:    strings.TrimSpace(q.Get("q")),
		Persona:  q.Get("persona"),
		Badge:    q.Get("badge"),
		Language: q.Get("language"),
		Category: q.Get("category"),
		Sort:     q.Get("sort"),
	}
	var err error
	if f.MinScore, err = floatParam(r, "min_score"); err != nil {
		return f, err
	}
	if f.Limit, err = intParam(r, "limit", database.DefaultLimit); err != nil {
		return f, err
	}
	if f.Offset, err = intParam(r, "offset", 0); err != nil {
		return f, err
	}
	if raw := q.Get("cursor"); raw != "" {
		if f.Cursor, err = database.DecodeDeveloperCursor(raw); err != nil {
			return f, err
		}
	}
	return f, f.Normalize()
}

// listDevelopers serves the developer filter. Followers order pages with a cursor.
// GET /api/developers?persona=&min_score=&badge=&language=&category=&sort=&limit=&offset=&cursor=
func (h *Handler) listDevelopers(w http.ResponseWriter, r *http.Request) {
	f, err := developerFilterFromQuery(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.cached(w, r, func() (any, error) {
		rows, err := h.store.ListDevelopers(r.Context(), f)
		if err != nil {
			return nil, err
		}
		return listResponse{Data: nonNil(rows), NextCursor: developerNextCursor(rows, &f)}, nil
	})
}

// searchDevelopers turns a free-text query into filters and lists the matching developers.
// GET /api/developers/search?q=rust+core+maintainers
func (h *Handler) searchDevelopers(w http.ResponseWriter, r *http.Request) {
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

	h.cached(w, r, func() (any, error) {
		intent, err := h.assistant.ParseIntent(r.Context(), query)
		if err != nil {
			h.logger.Warn("Intent parsing failed, using keyword rules", "error", err)
			intent = ai.ParseIntentHeuristic(query)
		}
		f := database.DeveloperFilter{
			Query:    intent.Text,
			Persona:  intent.Persona,
			Badge:    intent.Badge,
			Language: intent.Language,
			Sort:     intent.Sort,
			Limit:    limit,
		}
		if err := f.Normalize(); err != nil {
			return nil, err
		}
		rows, err := h.store.ListDevelopers(r.Context(), f)
		if err != nil {
			return nil, err
		}
		return developerSearchResponse{listResponse: listResponse{Data: nonNil(rows)}, Intent: intent}, nil
	})
}

// getDeveloper returns a developer with their top repositories.
// GET /api/developers/{login}
func (h *Handler) getDeveloper(w http.ResponseWriter, r *http.Request) {
	login := chi.URLParam(r, "login")
	dev, err := h.store.GetDeveloperByLogin(r.Context(), login)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	top, err := h.store.ListDeveloperTopRepos(r.Context(), dev.ID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, itemResponse{Data: developerDetail{Developer: dev, TopRepos: nonNil(top)}})
}
