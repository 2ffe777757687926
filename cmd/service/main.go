// cmd/service/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"githop/internal/config"
	"githop/internal/database"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("Application error", "error", err)
		os.Exit(1)
	}
}

var (
	rootCmd = &cobra.Command{
		Use:           "githop",
		Short:         "GitHub repository and developer discovery service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled sync",
		RunE:  runServe,
	}
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}
	upCmd = &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  runMigrate(database.MigrateUp),
	}
	downCmd = &cobra.Command{
		Use:   "down",
		Short: "Revert all applied migrations",
		RunE:  runMigrate(database.MigrateDown),
	}
	syncCmd = &cobra.Command{
		Use:   "sync <job>",
		Short: "Run one worker job in the foreground",
		Args:  cobra.ExactArgs(1),
		RunE:  runSync,
	}

	// Flags
	syncLimit int
	syncMode  string
)

func init() {
	syncCmd.Flags().IntVar(&syncLimit, "limit", 0, "Item limit for hydrate, backfill, developer and embedding jobs (0 uses the configured default)")
	syncCmd.Flags().StringVar(&syncMode, "mode", string(database.BackfillMissing), "Backfill mode: missing or all")
	migrateCmd.AddCommand(upCmd, downCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd, syncCmd)
}

// bootstrap loads the configuration and builds the process logger with a hot-reloadable level.
func bootstrap() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logLevel := new(slog.LevelVar)
	logger := config.NewLogger(os.Stdout, cfg.LogFormat, logLevel)
	slog.SetDefault(logger)
	cfg.WatchLogLevel(logLevel, logger)
	logger.Info("Configuration loaded successfully", "log_level", logLevel.Level().String())
	return cfg, logger, nil
}

func runMigrate(apply func(dbURL string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		dbURL, err := config.LoadDatabaseURL()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := apply(dbURL); err != nil {
			return err
		}
		slog.Info("Migration finished", "command", cmd.Name())
		return nil
	}
}
