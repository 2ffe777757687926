// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrStatsPending is returned when GitHub is still computing repository statistics (HTTP 202)
	// and the retry budget is exhausted.
	ErrStatsPending = errors.New("repository statistics are still being computed")

	// ErrContributorsUnavailable is returned when every contributor source failed for a repository.
	ErrContributorsUnavailable = errors.New("contributors unavailable from all sources")

	// ErrAIDisabled is returned by AI-backed operations when no provider is configured.
	ErrAIDisabled = errors.New("ai features are disabled")

	// ErrTrendsDisabled is returned when no BigQuery project is configured or discoverable.
	ErrTrendsDisabled = errors.New("gh archive trends are disabled")

	// ErrInvalidCursor is returned when a pagination cursor cannot be decoded.
	ErrInvalidCursor = errors.New("invalid pagination cursor")
)

// ErrInvalidRepoFormat is returned when a repository string is not in 'owner/name' format.
type ErrInvalidRepoFormat struct {
	Repo string
}

func (e *ErrInvalidRepoFormat) Error() string {
	return fmt.Sprintf("invalid repository format: %q, expected 'owner/name'", e.Repo)
}

// ErrRateLimited is returned when GitHub rate limiting would require waiting longer than allowed.
type ErrRateLimited struct {
	ResetAt time.Time
}

func (e *ErrRateLimited) Error() string {
	return fmt.Sprintf("github rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// ErrInvalidFilter is returned when a query parameter holds an unsupported value.
type ErrInvalidFilter struct {
	Field string
	Value string
}

func (e *ErrInvalidFilter) Error() string {
	return fmt.Sprintf("invalid value %q for %s", e.Value, e.Field)
}

// ErrSchemaViolation is returned when a JSON document does not satisfy its schema.
type ErrSchemaViolation struct {
	Kind     string
	Problems []string
}

func (e *ErrSchemaViolation) Error() string {
	return fmt.Sprintf("%s does not match schema: %s", e.Kind, strings.Join(e.Problems, "; "))
}

// ErrJobRunning is returned when a job with the same name is already in progress.
type ErrJobRunning struct {
	Name string
}

func (e *ErrJobRunning) Error() string {
	return fmt.Sprintf("job %q is already running", e.Name)
}

// IsRateLimited reports whether err is or wraps an ErrRateLimited.
func IsRateLimited(err error) bool {
	var rl *ErrRateLimited
	return errors.As(err, &rl)
}
