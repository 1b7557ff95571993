package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/takuto-ai/takuto"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	seedProject := flag.String("seed", "", "seed sample records for the given project ID and exit")
	seedValue := flag.Int64("seed-value", 42, "RNG seed used with -seed")
	flag.Parse()

	level := slog.LevelInfo
	if os.Getenv("TAKUTO_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := takuto.New(
		takuto.WithLogger(logger),
		takuto.WithVersion(version),
	)
	if err != nil {
		slog.Error("startup failed", "error", err)
		return 1
	}

	if *seedProject != "" {
		if err := app.SeedSampleData(ctx, *seedProject, *seedValue); err != nil {
			slog.Error("seed failed", "project_id", *seedProject, "error", err)
			_ = app.Shutdown(context.Background())
			return 1
		}
		slog.Info("sample data seeded", "project_id", *seedProject, "seed", *seedValue)
		_ = app.Shutdown(context.Background())
		return 0
	}

	if err := app.Run(ctx); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}
