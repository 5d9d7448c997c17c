package main

import (
	"context"
	"database/sql"

	"flower-shop/internal/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd.Context(), func(ctx context.Context, db *sql.DB) error {
			return database.RunMigrations(ctx, db, log)
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd.Context(), func(ctx context.Context, db *sql.DB) error {
			return database.RollbackMigration(ctx, db, log)
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which migrations are applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd.Context(), func(ctx context.Context, db *sql.DB) error {
			return database.GetMigrationStatus(ctx, db, log)
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

func withDatabase(ctx context.Context, fn func(ctx context.Context, db *sql.DB) error) error {
	dbService, err := database.New(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbService.Close(); err != nil {
			log.Warn("Failed to close database", zap.Error(err))
		}
	}()

	return fn(ctx, dbService.DB())
}
