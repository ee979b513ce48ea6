package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/reyschwartz19/OpTracker/internal/config"
	"github.com/reyschwartz19/OpTracker/internal/db"
	"github.com/reyschwartz19/OpTracker/internal/logger"
	"github.com/spf13/cobra"
)

func MigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, cfg *config.Config, database *sqlx.DB) error {
				return db.RunMigrations(ctx, database.DB, cfg.DBDriver)
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, cfg *config.Config, database *sqlx.DB) error {
				return db.MigrateDown(ctx, database.DB, cfg.DBDriver)
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, cfg *config.Config, database *sqlx.DB) error {
				version, err := db.Version(ctx, database.DB, cfg.DBDriver)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), version)
				return nil
			})
		},
	})

	return migrateCmd
}

func withDB(ctx context.Context, fn func(context.Context, *config.Config, *sqlx.DB) error) error {
	cfg := config.Load()
	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)
	defer logger.Flush()

	database, err := db.Init(ctx, cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		closeErr := db.Close(database)
		if closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	return fn(ctx, cfg, database)
}
