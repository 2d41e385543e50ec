package config

import (
	"fmt"
	"os"
	"path/filepath"

	apperrors "stockstrider/internal/errors"
)

// Output artifact names. Fixed by the report contract, not configurable.
const (
	OutliersFileName = "outliers.txt"
	ResultsFileName  = "results.txt"
	PlotFileName     = "w1_weekend_plot_pnl.png"

	MonthlyReturnsCSVName = "monthly_returns.csv"
	BenchmarkCSVName      = "benchmark.csv"
	SignalsCSVName        = "signals.csv"
	BacktestCSVName       = "backtest.csv"
)

// StockFileCandidates are the accepted stock-price input names, checked in
// order. The XLSX workbook is the fallback when no CSV candidate exists.
var StockFileCandidates = []string{"stock_prices.csv", "prices.csv", "stock_prices.xlsx"}

// PathsConfig locates the input files and the results tree.
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	ResultsDir string `yaml:"results_dir" envconfig:"RESULTS_DIR" default:"results"`
	StockFile  string `yaml:"stock_file" envconfig:"STOCK_FILE"`
	IndexFile  string `yaml:"index_file" envconfig:"INDEX_FILE" default:"sp500.csv"`
}

// normalize cleans the configured directories.
func (p *PathsConfig) normalize() error {
	if p.DataDir == "" || p.ResultsDir == "" {
		return apperrors.NewValidationError("data_dir and results_dir must not be empty")
	}
	p.DataDir = filepath.Clean(p.DataDir)
	p.ResultsDir = filepath.Clean(p.ResultsDir)
	return nil
}

// IndexPath returns the index CSV location.
func (p PathsConfig) IndexPath() string {
	return filepath.Join(p.DataDir, p.IndexFile)
}

// StockPath returns the configured stock-price file, or "" when the loader
// should resolve among StockFileCandidates.
func (p PathsConfig) StockPath() string {
	if p.StockFile == "" {
		return ""
	}
	return filepath.Join(p.DataDir, p.StockFile)
}

// PlotsDir returns the plots directory under the results tree.
func (p PathsConfig) PlotsDir() string {
	return filepath.Join(p.ResultsDir, "plots")
}

// OutliersPath returns the outliers report location.
func (p PathsConfig) OutliersPath() string {
	return filepath.Join(p.ResultsDir, OutliersFileName)
}

// ResultsPath returns the text report location.
func (p PathsConfig) ResultsPath() string {
	return filepath.Join(p.ResultsDir, ResultsFileName)
}

// PlotPath returns the cumulative PnL plot location.
func (p PathsConfig) PlotPath() string {
	return filepath.Join(p.PlotsDir(), PlotFileName)
}

// MonthlyReturnsCSV returns the intermediate ReturnRecord table location.
func (p PathsConfig) MonthlyReturnsCSV() string {
	return filepath.Join(p.ResultsDir, MonthlyReturnsCSVName)
}

// BenchmarkCSV returns the intermediate BenchmarkRecord table location.
func (p PathsConfig) BenchmarkCSV() string {
	return filepath.Join(p.ResultsDir, BenchmarkCSVName)
}

// SignalsCSV returns the intermediate SignalRecord table location.
func (p PathsConfig) SignalsCSV() string {
	return filepath.Join(p.ResultsDir, SignalsCSVName)
}

// BacktestCSV returns the backtest series location.
func (p PathsConfig) BacktestCSV() string {
	return filepath.Join(p.ResultsDir, BacktestCSVName)
}

// EnsureDirectories creates the results tree. The data directory is an
// input and is never created here; a missing one surfaces as an input error
// from the loader.
func (p PathsConfig) EnsureDirectories() error {
	for _, dir := range []string{p.ResultsDir, p.PlotsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("create directory %s", dir), err)
		}
	}
	return nil
}
