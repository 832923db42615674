package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/pressly/goose/v3"

	"resume-pipeline/internal/shared/telemetry"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationsDir = "migrations"

// MigrateCommands lists the commands Migrate understands.
var MigrateCommands = []string{"up", "up-by-one", "down", "redo", "status", "version"}

// RunMigrations brings the submissions schema up to date. A nil database is a no-op
// so in-memory dev runs skip it.
func RunMigrations(ctx context.Context, database *sql.DB) error {
	return Migrate(ctx, database, "up")
}

// Migrate runs a goose command against the embedded submissions migrations.
func Migrate(ctx context.Context, database *sql.DB, command string) error {
	command = strings.ToLower(strings.TrimSpace(command))
	if command == "" {
		command = "up"
	}
	run, ok := gooseCommands[command]
	if !ok {
		return fmt.Errorf("unknown migrate command %q (want one of %s)", command, strings.Join(MigrateCommands, ", "))
	}
	if database == nil {
		return nil
	}
	goose.SetBaseFS(migrationFiles)
	goose.SetLogger(gooseLogger{command: command})
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return run(ctx, database)
}

var gooseCommands = map[string]func(context.Context, *sql.DB) error{
	"up": func(ctx context.Context, db *sql.DB) error {
		return goose.UpContext(ctx, db, migrationsDir)
	},
	"up-by-one": func(ctx context.Context, db *sql.DB) error {
		return goose.UpByOneContext(ctx, db, migrationsDir)
	},
	"down": func(ctx context.Context, db *sql.DB) error {
		return goose.DownContext(ctx, db, migrationsDir)
	},
	"redo": func(ctx context.Context, db *sql.DB) error {
		return goose.RedoContext(ctx, db, migrationsDir)
	},
	"status": func(ctx context.Context, db *sql.DB) error {
		return goose.StatusContext(ctx, db, migrationsDir)
	},
	"version": func(ctx context.Context, db *sql.DB) error {
		return goose.VersionContext(ctx, db, migrationsDir)
	},
}

// gooseLogger routes goose output through the structured logger.
type gooseLogger struct {
	command string
}

func (l gooseLogger) Print(v ...interface{})   { l.info(fmt.Sprint(v...)) }
func (l gooseLogger) Println(v ...interface{}) { l.info(fmt.Sprint(v...)) }
func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.info(fmt.Sprintf(format, v...))
}

func (l gooseLogger) Fatal(v ...interface{}) { l.fatal(fmt.Sprint(v...)) }
func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.fatal(fmt.Sprintf(format, v...))
}

func (l gooseLogger) info(msg string) {
	telemetry.Info("db.migrate", map[string]any{
		"command": l.command,
		"detail":  strings.TrimSpace(msg),
	})
}

func (l gooseLogger) fatal(msg string) {
	telemetry.Error("db.migrate.fatal", map[string]any{
		"command": l.command,
		"detail":  strings.TrimSpace(msg),
	})
	os.Exit(1)
}
