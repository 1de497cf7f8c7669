// Package cmd provides command-line interface functionality for the ruleindex application.
/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"database/sql"

	"ruleindex/internal/application/common/slogger"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	_ "github.com/lib/pq" // database/sql driver for goose
)

var migrationsDir string

// newMigrateCmd creates and returns the migrate command.
func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate [up|down|status]",
		Short: "Run database migrations",
		Long: `Run database migrations to set up or update the database schema.

This command manages the schema for batch tracking, image processing state
and pgvector-backed vector storage. The pgvector extension is created by
the initial migration.

Configuration for database connection is loaded from config files and environment variables.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down", "status"},
		Run: func(_ *cobra.Command, args []string) {
			direction := "up"
			if len(args) > 0 {
				direction = args[0]
			}
			runMigrations(direction)
		},
	}
	migrateCmd.Flags().StringVar(&migrationsDir, "dir", "migrations", "directory with migration files")
	return migrateCmd
}

func runMigrations(direction string) {
	cfg := GetConfig()

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		slogger.ErrorNoCtx("Failed to open database", slogger.Fields{"error": err.Error()})
		return
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		slogger.ErrorNoCtx("Failed to set migration dialect", slogger.Fields{"error": err.Error()})
		return
	}

	switch direction {
	case "up":
		err = goose.Up(db, migrationsDir)
	case "down":
		err = goose.Down(db, migrationsDir)
	case "status":
		err = goose.Status(db, migrationsDir)
	}
	if err != nil {
		slogger.ErrorNoCtx("Migration failed", slogger.Fields{
			"direction": direction,
			"error":     err.Error(),
		})
		return
	}

	slogger.InfoNoCtx("Migrations applied", slogger.Fields{"direction": direction})
}

func init() { //nolint:gochecknoinits // Standard Cobra CLI pattern for command registration
	rootCmd.AddCommand(newMigrateCmd())
}
