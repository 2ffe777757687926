// internal/api/jobs.go
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"githop/internal/database"
	custom_errors "githop/internal/errors"
	"githop/internal/gharchive"
	"githop/internal/jobs"
	"githop/internal/model"
	"githop/internal/syncer"
)

type triggerResponse struct {
	Status string      `json:"status"`
	Job    jobs.Handle `json:"job"`
}

// submit starts fn as a background job and answers 202 with its handle.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request, name string, fn jobs.Func) {
	handle, err := h.runner.Submit(name, fn)
	var running *custom_errors.ErrJobRunning
	switch {
	case errors.As(err, &running):
		respondWithJSON(w, http.StatusAccepted, triggerResponse{Status: "already_running", Job: handle})
	case err != nil:
		h.handleError(w, r, err)
	default:
		h.logger.Info("Job accepted", "job", name, "job_id", handle.ID)
		respondWithJSON(w, http.StatusAccepted, triggerResponse{Status: "accepted", Job: handle})
	}
}

func (h *Handler) categoryJob(kind string) (jobs.Func, bool) {
	switch kind {
	case model.CategoryTop:
		return h.worker.SyncTop, true
	case model.CategoryGrowing:
		return h.worker.SyncGrowing, true
	case model.CategoryTrending:
		return h.worker.SyncTrending, true
	case "all":
		return h.worker.SyncAll, true
	}
	return nil, false
}

// triggerSync starts a category sync.
// POST /api/sync/{top|growing|trending|all}
func (h *Handler) triggerSync(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	fn, ok := h.categoryJob(kind)
	if !ok {
		h.handleError(w, r, &custom_errors.ErrInvalidFilter{Field: "kind", Value: kind})
		return
	}
	h.submit(w, r, "sync_"+kind, fn)
}

// legacyTrigger keeps the original fetch endpoints working.
func (h *Handler) legacyTrigger(category string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn, _ := h.categoryJob(category)
		h.submit(w, r, "sync_"+category, fn)
	}
}

// triggerTrends starts a GH Archive trend sync.
// POST /api/sync/trends/{weekly|monthly|quarterly}
func (h *Handler) triggerTrends(w http.ResponseWriter, r *http.Request) {
	period := gharchive.Period(chi.URLParam(r, "period"))
	if _, ok := period.Days(); !ok {
		h.handleError(w, r, &custom_errors.ErrInvalidFilter{Field: "period", Value: string(period)})
		return
	}
	h.submit(w, r, "trends_"+string(period), func(ctx context.Context) error {
		return h.worker.SyncTrends(ctx, period)
	})
}

// triggerHydrate completes stub repositories.
// POST /api/workers/hydrate?limit=100
func (h *Handler) triggerHydrate(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.submit(w, r, "hydrate", func(ctx context.Context) error {
		return h.worker.HydrateStubs(ctx, limit)
	})
}

// triggerBackfill starts one of the sub-resource backfills.
// POST /api/workers/{commit-activity|recent-commits|contributors}?mode=missing|all&limit=N
func (h *Handler) triggerBackfill(kind database.BackfillKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode, err := syncer.ParseBackfillMode(r.URL.Query().Get("mode"))
		if err != nil {
			h.handleError(w, r, err)
			return
		}
		limit, err := intParam(r, "limit", 0)
		if err != nil {
			h.handleError(w, r, err)
			return
		}

		var fn func(context.Context, database.BackfillMode, int) error
		switch kind {
		case database.BackfillCommitActivity:
			fn = h.worker.BackfillCommitActivity
		case database.BackfillRecentCommits:
			fn = h.worker.BackfillRecentCommits
		case database.BackfillContributors:
			fn = h.worker.BackfillContributors
		}
		h.submit(w, r, string(kind), func(ctx context.Context) error {
			return fn(ctx, mode, limit)
		})
	}
}

// triggerDevelopers runs a developer mission.
// POST /api/workers/developers/{mission}?target=50
func (h *Handler) triggerDevelopers(w http.ResponseWriter, r *http.Request) {
	mission := model.Mission(chi.URLParam(r, "mission"))
	if !mission.Valid() {
		h.handleError(w, r, &custom_errors.ErrInvalidFilter{Field: "mission", Value: string(mission)})
		return
	}
	target, err := intParam(r, "target", 0)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.submit(w, r, "developers_"+string(mission), func(ctx context.Context) error {
		return h.worker.SyncDevelopers(ctx, mission, target)
	})
}

// triggerEmbeddings embeds repositories that have none yet.
// POST /api/workers/embeddings?limit=100
func (h *Handler) triggerEmbeddings(w http.ResponseWriter, r *http.Request) {
	if h.embedder == nil {
		h.handleError(w, r, custom_errors.ErrAIDisabled)
		return
	}
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.submit(w, r, "embeddings", func(ctx context.Context) error {
		return h.worker.GenerateEmbeddings(ctx, limit)
	})
}

// GET /api/jobs
func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, listResponse{Data: nonNil(h.runner.List())})
}

// GET /api/jobs/{id}
func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	handle, err := h.runner.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, itemResponse{Data: handle})
}

// cancelJob cancels a running job. Finished jobs are returned unchanged.
// DELETE /api/jobs/{id}
func (h *Handler) cancelJob(w http.ResponseWriter, r *http.Request) {
	handle, err := h.runner.Cancel(chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, itemResponse{Data: handle})
}
