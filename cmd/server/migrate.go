package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ecoroute/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(db *database.DB, path string) error {
			return runMigrations(db, path)
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(db *database.DB, path string) error {
			status, err := db.Migrator(path).Down()
			if err != nil {
				return err
			}
			zap.L().Info("rolled back one migration", zap.Stringer("schema", status))
			return nil
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current migration version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(db *database.DB, path string) error {
			status, err := db.Migrator(path).Status()
			if err != nil {
				return err
			}
			cmd.Println(status)
			return nil
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}

func withDB(cmd *cobra.Command, fn func(db *database.DB, path string) error) error {
	db, err := database.Open(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	return fn(db, migrationsPath(cfg.Database.MigrationsPath))
}

// runMigrations applies pending migrations and reports the resulting version.
func runMigrations(db *database.DB, path string) error {
	status, err := db.Migrator(path).Up()
	if err != nil {
		if errors.Is(err, database.ErrDirty) {
			zap.L().Error("database is in a dirty state; a previous migration failed and needs manual intervention",
				zap.Error(err))
		}
		return eris.Wrap(err, "failed to run migrations")
	}

	zap.L().Info("database migrations complete", zap.Stringer("schema", status))
	return nil
}

// migrationsPath resolves the migrations directory: the configured path,
// then ./migrations, then migrations next to the executable.
func migrationsPath(configured string) string {
	if configured != "" {
		return configured
	}

	if _, err := os.Stat("migrations"); err == nil {
		if abs, err := filepath.Abs("migrations"); err == nil {
			return abs
		}
	}

	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), "migrations")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "/app/migrations"
}
