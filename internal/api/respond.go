// internal/api/respond.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5"

	custom_errors "githop/internal/errors"
	"githop/internal/jobs"
)

// listResponse is the envelope of every list endpoint.
type listResponse struct {
	Data       any    `json:"data"`
	NextCursor string `json:"next_cursor,omitempty"`
	Total      *int64 `json:"total,omitempty"`
}

// itemResponse is the envelope of single-object endpoints.
type itemResponse struct {
	Data any `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal server error"}`))
		return
	}
	respondWithRaw(w, code, response)
}

func respondWithRaw(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, errorResponse{Error: message})
}

// handleError maps domain errors to status codes. Unclassified errors are logged and hidden.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidFilter *custom_errors.ErrInvalidFilter
		invalidRepo   *custom_errors.ErrInvalidRepoFormat
		rateLimited   *custom_errors.ErrRateLimited
	)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		respondWithError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, jobs.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Job not found")
	case errors.Is(err, custom_errors.ErrInvalidCursor):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &invalidFilter), errors.As(err, &invalidRepo):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, custom_errors.ErrAIDisabled), errors.Is(err, custom_errors.ErrTrendsDisabled),
		errors.Is(err, jobs.ErrShuttingDown):
		respondWithError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &rateLimited):
		w.Header().Set("Retry-After", strconv.Itoa(max(1, int(rateLimited.ResetAt.Sub(h.now()).Seconds()))))
		respondWithError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// intParam parses an optional integer query parameter.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &custom_errors.ErrInvalidFilter{Field: name, Value: raw}
	}
	return v, nil
}

// floatParam returns nil when the parameter is absent.
func floatParam(r *http.Request, name string) (*float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &custom_errors.ErrInvalidFilter{Field: name, Value: raw}
	}
	return &v, nil
}

func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &custom_errors.ErrInvalidFilter{Field: name, Value: raw}
	}
	return v, nil
}
