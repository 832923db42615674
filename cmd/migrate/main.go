package main

// Apply or inspect the submissions schema:
//   go run ./cmd/migrate                 # up
//   go run ./cmd/migrate -cmd status
//   go run ./cmd/migrate -cmd version
//   go run ./cmd/migrate -cmd down

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"resume-pipeline/internal/shared/config"
	"resume-pipeline/internal/shared/storage/db"
	"resume-pipeline/internal/shared/telemetry"
)

func main() {
	command := flag.String("cmd", "up", "goose command: "+strings.Join(db.MigrateCommands, ", "))
	attempts := flag.Int("attempts", 0, "connect attempts before giving up (0 keeps the default)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config.Load(), *command, *attempts); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"command": *command, "error": err.Error()})
		os.Exit(1)
	}
	telemetry.Info("migrate.complete", map[string]any{"command": *command})
}

func run(ctx context.Context, cfg config.Config, command string, attempts int) error {
	telemetry.SetLevel(cfg.LogLevel)
	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	if attempts > 0 {
		opts.ConnectAttempts = attempts
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer sqlDB.Close()
	return db.Migrate(ctx, sqlDB, command)
}
