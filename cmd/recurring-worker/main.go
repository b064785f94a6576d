// Command recurring-worker clones due recurring expenses on a fixed interval.
// Several workers may run against one database when REDIS_ADDR is set.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmynk/roomsync/internal/app"
	"github.com/mmynk/roomsync/internal/config"
	"github.com/mmynk/roomsync/internal/service"
	"github.com/mmynk/roomsync/pkg/logging"
)

func main() {
	cfg := config.Load()
	logging.SetupWith(logging.ParseLevel(cfg.LogLevel), logging.ParseFormat(cfg.LogFormat))

	slog.Info("Starting recurring-worker")

	if err := cfg.ValidateWorker(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			slog.Warn("Failed to close resources", "error", err)
		}
	}()

	engine := service.NewRecurrenceEngine(deps.Store, deps.ServiceOptions()...)
	engine.Run(ctx, cfg.RecurrenceInterval)

	slog.Info("Recurring-worker shutdown complete")
}
