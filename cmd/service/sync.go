// cmd/service/sync.go
package main

import (
	"context"
	"fmt"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"githop/internal/api"
	"githop/internal/database"
	"githop/internal/gharchive"
	"githop/internal/model"
	"githop/internal/syncer"
)

type jobBuilder func(w api.Worker, mode database.BackfillMode, limit int) func(context.Context) error

var foregroundJobs = map[string]jobBuilder{
	"top":      func(w api.Worker, _ database.BackfillMode, _ int) func(context.Context) error { return w.SyncTop },
	"growing":  func(w api.Worker, _ database.BackfillMode, _ int) func(context.Context) error { return w.SyncGrowing },
	"trending": func(w api.Worker, _ database.BackfillMode, _ int) func(context.Context) error { return w.SyncTrending },
	"all":      func(w api.Worker, _ database.BackfillMode, _ int) func(context.Context) error { return w.SyncAll },
	"hydrate": func(w api.Worker, _ database.BackfillMode, limit int) func(context.Context) error {
		return func(ctx context.Context) error { return w.HydrateStubs(ctx, limit) }
	},
	"commit-activity": func(w api.Worker, mode database.BackfillMode, limit int) func(context.Context) error {
		return func(ctx context.Context) error { return w.BackfillCommitActivity(ctx, mode, limit) }
	},
	"recent-commits": func(w api.Worker, mode database.BackfillMode, limit int) func(context.Context) error {
		return func(ctx context.Context) error { return w.BackfillRecentCommits(ctx, mode, limit) }
	},
	"contributors": func(w api.Worker, mode database.BackfillMode, limit int) func(context.Context) error {
		return func(ctx context.Context) error { return w.BackfillContributors(ctx, mode, limit) }
	},
	"embeddings": func(w api.Worker, _ database.BackfillMode, limit int) func(context.Context) error {
		return func(ctx context.Context) error { return w.GenerateEmbeddings(ctx, limit) }
	},
}

func init() {
	for _, p := range gharchive.Periods {
		foregroundJobs["trends-"+string(p)] = func(w api.Worker, _ database.BackfillMode, _ int) func(context.Context) error {
			return func(ctx context.Context) error { return w.SyncTrends(ctx, p) }
		}
	}
	for _, m := range model.Missions {
		foregroundJobs["developers-"+string(m)] = func(w api.Worker, _ database.BackfillMode, limit int) func(context.Context) error {
			return func(ctx context.Context) error { return w.SyncDevelopers(ctx, m, limit) }
		}
	}
	syncCmd.Long = "Jobs: " + jobNames()
}

func jobNames() string {
	names := make([]string, 0, len(foregroundJobs))
	for name := range foregroundJobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// resolveJob returns the worker call named by name.
func resolveJob(w api.Worker, name, mode string, limit int) (func(context.Context) error, error) {
	build, ok := foregroundJobs[name]
	if !ok {
		return nil, fmt.Errorf("unknown job %q, expected one of: %s", name, jobNames())
	}
	m, err := syncer.ParseBackfillMode(mode)
	if err != nil {
		return nil, fmt.Errorf("unknown backfill mode %q, expected missing or all: %w", mode, err)
	}
	return build(w, m, limit), nil
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	job, err := resolveJob(a.syncer, args[0], syncMode, syncLimit)
	if err != nil {
		return err
	}

	start := time.Now()
	logger.Info("Running job", "job", args[0])
	if err := job(ctx); err != nil {
		return fmt.Errorf("job %s failed: %w", args[0], err)
	}
	logger.Info("Job finished", "job", args[0], "duration", time.Since(start).Round(time.Millisecond).String())
	return nil
}
