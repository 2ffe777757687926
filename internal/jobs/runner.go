// internal/jobs/runner.go
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	custom_errors "githop/internal/errors"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// DefaultHistory is how many finished jobs are kept for List and Get.
const DefaultHistory = 50

// ErrNotFound is returned for unknown job ids.
var ErrNotFound = errors.New("job not found")

// ErrShuttingDown is returned by Submit after Shutdown was called.
var ErrShuttingDown = errors.New("job runner is shutting down")

// Func is the body of a job.
type Func func(ctx context.Context) error

// Handle is a snapshot of a job.
type Handle struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Status     Status     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type job struct {
	handle Handle
	cancel context.CancelFunc
	done   chan struct{}
}

// Runner runs named background jobs. At most one job per name runs at a time.
type Runner struct {
	logger  *slog.Logger
	history int

	mu      sync.Mutex
	ctx     context.Context
	stop    context.CancelFunc
	jobs    map[string]*job
	running map[string]*job
	order   []string
	closed  bool
	wg      sync.WaitGroup
}

// NewRunner returns a runner whose jobs derive their context from ctx.
func NewRunner(ctx context.Context, logger *slog.Logger, history int) *Runner {
	if history <= 0 {
		history = DefaultHistory
	}
	ctx, stop := context.WithCancel(ctx)
	return &Runner{
		logger:  logger,
		history: history,
		ctx:     ctx,
		stop:    stop,
		jobs:    make(map[string]*job),
		running: make(map[string]*job),
	}
}

// Submit starts fn under name. If a job with that name is running, its handle is returned
// together with an ErrJobRunning error.
func (r *Runner) Submit(name string, fn Func) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return Handle{}, ErrShuttingDown
	}
	if j, ok := r.running[name]; ok {
		return j.handle, &custom_errors.ErrJobRunning{Name: name}
	}

	ctx, cancel := context.WithCancel(r.ctx)
	j := &job{
		handle: Handle{
			ID:        uuid.NewString(),
			Name:      name,
			Status:    StatusRunning,
			StartedAt: time.Now().UTC(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	r.jobs[j.handle.ID] = j
	r.running[name] = j
	r.order = append(r.order, j.handle.ID)
	r.prune()

	r.wg.Add(1)
	go r.run(ctx, j, fn)

	return j.handle, nil
}

func (r *Runner) run(ctx context.Context, j *job, fn Func) {
	defer r.wg.Done()
	defer close(j.done)
	defer j.cancel()

	logger := r.logger.With("job", j.handle.Name, "job_id", j.handle.ID)
	logger.Info("Job started")

	err := r.safeCall(ctx, fn)

	r.mu.Lock()
	now := time.Now().UTC()
	j.handle.FinishedAt = &now
	switch {
	case err == nil:
		j.handle.Status = StatusSucceeded
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		j.handle.Status = StatusCanceled
		j.handle.Error = err.Error()
	default:
		j.handle.Status = StatusFailed
		j.handle.Error = err.Error()
	}
	delete(r.running, j.handle.Name)
	status := j.handle.Status
	r.mu.Unlock()

	duration := now.Sub(j.handle.StartedAt).Round(time.Millisecond)
	if status == StatusFailed {
		logger.Error("Job failed", "duration", duration, "error", err)
		return
	}
	logger.Info("Job finished", "status", status, "duration", duration)
}

func (r *Runner) safeCall(ctx context.Context, fn Func) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job panicked: %v", p)
		}
	}()
	return fn(ctx)
}

// prune drops the oldest finished jobs beyond the history bound. Callers hold r.mu.
func (r *Runner) prune() {
	excess := len(r.order) - r.history
	if excess <= 0 {
		return
	}
	kept := r.order[:0]
	for _, id := range r.order {
		j := r.jobs[id]
		if excess > 0 && j.handle.Status != StatusRunning {
			delete(r.jobs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
}

// Get returns the handle of the job with id.
func (r *Runner) Get(id string) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return Handle{}, ErrNotFound
	}
	return j.handle, nil
}

// List returns known jobs, most recently started first.
func (r *Runner) List() []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Handle, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.jobs[id].handle)
	}
	sort.SliceStable(out, func(i, k int) bool { return out[i].StartedAt.After(out[k].StartedAt) })
	return out
}

// Cancel requests cancellation of a running job and returns its current handle.
func (r *Runner) Cancel(id string) (Handle, error) {
	r.mu.Lock()
	j, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return Handle{}, ErrNotFound
	}
	j.cancel()
	return r.Get(id)
}

// Wait blocks until the job with id finishes or ctx is done.
func (r *Runner) Wait(ctx context.Context, id string) (Handle, error) {
	r.mu.Lock()
	j, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return Handle{}, ErrNotFound
	}
	select {
	case <-j.done:
		return r.Get(id)
	case <-ctx.Done():
		return Handle{}, ctx.Err()
	}
}

// Shutdown cancels every running job and waits for them to return.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.stop()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("jobs still running at shutdown: %w", ctx.Err())
	}
}
