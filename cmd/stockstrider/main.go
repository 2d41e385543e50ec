// Command stockstrider runs the momentum pipeline once: load the price
// files, optimize column types, preprocess into monthly returns, generate
// signals, backtest, and write the reports. It exits non-zero when any
// stage fails.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"stockstrider/internal/config"
	"stockstrider/internal/infrastructure"
	"stockstrider/internal/pipeline"
	"stockstrider/pkg/contracts"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := flag.NewFlagSet("stockstrider", flag.ContinueOnError)
	configFile := flags.String("config", "", "path to a YAML configuration file")
	dataDir := flags.String("data", "", "input directory holding the price files")
	resultsDir := flags.String("out", "", "output directory for reports and plots")
	showVersion := flags.Bool("version", false, "print version information and exit")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return 0
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return 1
	}
	applyOverrides(cfg, *dataDir, *resultsDir)

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := pipeline.NewRunner(cfg, logger, nil, nil)
	state, err := runner.Run(ctx)
	if err != nil {
		logger.Error("pipeline run failed", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("pipeline run complete",
		slog.Int("backtested_months", len(state.Result.Months)),
		slog.Int("outliers_corrected", len(state.Outliers)),
		slog.String("report", cfg.Paths.ResultsPath()),
		slog.String("plot", cfg.Paths.PlotPath()))

	fmt.Printf("Results written to %s\n", cfg.Paths.ResultsDir)
	return 0
}

// applyOverrides lets the data/results flags take precedence over the
// configured paths.
func applyOverrides(cfg *config.Config, dataDir, resultsDir string) {
	if dataDir != "" {
		cfg.Paths.DataDir = filepath.Clean(dataDir)
	}
	if resultsDir != "" {
		cfg.Paths.ResultsDir = filepath.Clean(resultsDir)
	}
}
