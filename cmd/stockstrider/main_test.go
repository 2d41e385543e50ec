package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockstrider/internal/config"
)

// writePriceFixture writes sixteen months of prices for two tickers plus the
// matching index series.
func writePriceFixture(t *testing.T, dataDir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dataDir, 0o755))

	var stock strings.Builder
	stock.WriteString("Date,Ticker,Price\n")
	var index strings.Builder
	index.WriteString("Date,Adjusted Close\n")

	for i := 0; i < 16; i++ {
		monthEnd := time.Date(2001, time.Month(i)+2, 0, 0, 0, 0, 0, time.UTC)
		date := monthEnd.Format("2006-01-02")
		fmt.Fprintf(&stock, "%s,AAA,%.2f\n", date, 10.0+0.1*float64(i))
		fmt.Fprintf(&stock, "%s,BBB,%.2f\n", date, 20.0-0.1*float64(i))
		fmt.Fprintf(&index, "%s,%.2f\n", date, 1000.0+5.0*float64(i))
	}

	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "stock_prices.csv"), []byte(stock.String()), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "sp500.csv"), []byte(index.String()), 0o644))
}

func quietLogs(t *testing.T) {
	t.Helper()
	t.Setenv("STRIDER_LOGGING_LEVEL", "error")
}

func TestRunEndToEnd(t *testing.T) {
	quietLogs(t)
	tmp := t.TempDir()
	dataDir := filepath.Join(tmp, "data")
	resultsDir := filepath.Join(tmp, "results")
	writePriceFixture(t, dataDir)

	code := run([]string{"-data", dataDir, "-out", resultsDir})
	require.Equal(t, 0, code)

	for _, name := range []string{
		config.ResultsFileName,
		config.OutliersFileName,
		config.BacktestCSVName,
	} {
		_, err := os.Stat(filepath.Join(resultsDir, name))
		assert.NoError(t, err, name)
	}
	_, err := os.Stat(filepath.Join(resultsDir, "plots", config.PlotFileName))
	assert.NoError(t, err)
}

func TestRunMissingInput(t *testing.T) {
	quietLogs(t)
	tmp := t.TempDir()
	dataDir := filepath.Join(tmp, "empty")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))

	code := run([]string{"-data", dataDir, "-out", filepath.Join(tmp, "results")})
	assert.Equal(t, 1, code)
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	quietLogs(t)
	assert.Equal(t, 2, run([]string{"-bogus"}))
}

func TestRunVersionFlag(t *testing.T) {
	assert.Equal(t, 0, run([]string{"-version"}))
}

func TestApplyOverrides(t *testing.T) {
	tests := []struct {
		name        string
		dataDir     string
		resultsDir  string
		wantData    string
		wantResults string
	}{
		{
			name:        "both overridden",
			dataDir:     "./custom/data/",
			resultsDir:  "./custom/out",
			wantData:    filepath.Clean("./custom/data/"),
			wantResults: filepath.Clean("./custom/out"),
		},
		{
			name:        "empty flags keep configuration",
			dataDir:     "",
			resultsDir:  "",
			wantData:    "data",
			wantResults: "results",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Load("")
			require.NoError(t, err)

			applyOverrides(cfg, tt.dataDir, tt.resultsDir)
			assert.Equal(t, tt.wantData, cfg.Paths.DataDir)
			assert.Equal(t, tt.wantResults, cfg.Paths.ResultsDir)
		})
	}
}
