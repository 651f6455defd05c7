package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"

	"github.com/inkpress/storybook-api/internal/config"
)

// migrationTableName is the table used by goose to track applied migrations.
const migrationTableName = "schema_migrations"

// migrationsDirName is the migrations directory at the repository root.
const migrationsDirName = "migrations"

// runMigrations executes the given goose command against the configured
// database.
func runMigrations(cfg *config.Config, command string) error {
	dir, err := findMigrationsDir()
	if err != nil {
		return err
	}

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Warn("failed to close migration database connection", "error", closeErr)
		}
	}()

	goose.SetLogger(&slogGooseLogger{})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	goose.SetTableName(migrationTableName)

	slog.Info("Executing migration command", "command", command, "dir", dir)

	switch command {
	case "up":
		err = goose.Up(db, dir)
	case "down":
		err = goose.Down(db, dir)
	case "reset":
		err = goose.Reset(db, dir)
	case "status":
		err = goose.Status(db, dir)
	case "version":
		err = goose.Version(db, dir)
	default:
		return fmt.Errorf(
			"unknown migration command: %s (expected up, down, reset, status, or version)",
			command,
		)
	}
	if err != nil {
		return fmt.Errorf("migration command %q failed: %w", command, err)
	}

	slog.Info("Migration command completed", "command", command)
	return nil
}

// findMigrationsDir locates the migrations directory by walking up from the
// working directory to the repository root.
func findMigrationsDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to determine working directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, migrationsDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("migrations directory %q not found", migrationsDirName)
		}
		dir = parent
	}
}

// slogGooseLogger adapts goose's logger interface to slog.
type slogGooseLogger struct{}

func (l *slogGooseLogger) Fatalf(format string, v ...any) {
	slog.Error(fmt.Sprintf(format, v...))
	os.Exit(1)
}

func (l *slogGooseLogger) Printf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...))
}
