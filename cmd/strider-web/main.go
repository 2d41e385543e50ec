// Command strider-web serves the results viewer: a JSON API over the latest
// pipeline artifacts, a trigger endpoint for new runs, and a WebSocket
// stream of run snapshots.
package main

import (
	"flag"
	"log/slog"
	"os"

	"stockstrider/internal/app"
	"stockstrider/internal/config"
	"stockstrider/internal/infrastructure"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		logger.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
