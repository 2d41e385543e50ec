package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockstrider/internal/config"
	apperrors "stockstrider/internal/errors"
)

func testPaths(t *testing.T) config.PathsConfig {
	t.Helper()
	return config.PathsConfig{
		DataDir:    filepath.Join(t.TempDir(), "data"),
		ResultsDir: t.TempDir(),
		IndexFile:  "sp500.csv",
	}
}

func writeArtifact(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestResultsServiceBacktestSeries(t *testing.T) {
	paths := testPaths(t)
	svc := NewResultsService(paths, testLogger())

	t.Run("missing artifact is not found", func(t *testing.T) {
		_, err := svc.BacktestSeries(context.Background())
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.ErrKindNotFound))
	})

	writeArtifact(t, paths.BacktestCSV(),
		"month,selected_count,strategy_pnl,strategy_return,strategy_cumulative,benchmark_pnl,benchmark_return,benchmark_cumulative\n"+
			"2001-01-31,2,0.08,0.04,0.04,0.4,0.02,0.02\n"+
			"2001-02-28,2,0.1,0.05,0.092,0.6,0.03,0.0506\n")

	t.Run("parses the series", func(t *testing.T) {
		months, err := svc.BacktestSeries(context.Background())
		require.NoError(t, err)
		require.Len(t, months, 2)

		jan := months[0]
		assert.Equal(t, time.Date(2001, time.January, 31, 0, 0, 0, 0, time.UTC), jan.Month)
		assert.Equal(t, 2, jan.SelectedCount)
		assert.InDelta(t, 0.08, jan.StrategyPnL, 1e-12)
		assert.InDelta(t, 0.04, jan.StrategyReturn, 1e-12)
		assert.InDelta(t, 0.02, jan.BenchmarkReturn, 1e-12)

		feb := months[1]
		assert.InDelta(t, 0.092, feb.StrategyCumulative, 1e-12)
		assert.InDelta(t, 0.0506, feb.BenchmarkCumulative, 1e-12)
	})

	t.Run("summary totals the legs", func(t *testing.T) {
		summary, err := svc.Summary(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 2, summary.Months)
		assert.Equal(t, time.Date(2001, time.January, 31, 0, 0, 0, 0, time.UTC), summary.FirstMonth)
		assert.Equal(t, time.Date(2001, time.February, 28, 0, 0, 0, 0, time.UTC), summary.LastMonth)
		assert.InDelta(t, 0.18, summary.StrategyTotalPnL, 1e-12)
		assert.InDelta(t, 1.0, summary.BenchmarkTotalPnL, 1e-12)
		assert.InDelta(t, 0.092, summary.StrategyTotalReturn, 1e-12)
		assert.InDelta(t, 0.0506, summary.BenchmarkTotalReturn, 1e-12)
		assert.False(t, summary.GeneratedAt.IsZero())
	})
}

func TestResultsServiceBacktestSeriesMalformed(t *testing.T) {
	paths := testPaths(t)
	svc := NewResultsService(paths, testLogger())

	t.Run("header only is not found", func(t *testing.T) {
		writeArtifact(t, paths.BacktestCSV(),
			"month,selected_count,strategy_pnl,strategy_return,strategy_cumulative,benchmark_pnl,benchmark_return,benchmark_cumulative\n")
		_, err := svc.BacktestSeries(context.Background())
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.ErrKindNotFound))
	})

	t.Run("bad month is a parsing error", func(t *testing.T) {
		writeArtifact(t, paths.BacktestCSV(),
			"month,selected_count,strategy_pnl,strategy_return,strategy_cumulative,benchmark_pnl,benchmark_return,benchmark_cumulative\n"+
				"not-a-date,2,0.08,0.04,0.04,0.4,0.02,0.02\n")
		_, err := svc.BacktestSeries(context.Background())
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.ErrKindParsing))
	})

	t.Run("bad numeric cell is a parsing error", func(t *testing.T) {
		writeArtifact(t, paths.BacktestCSV(),
			"month,selected_count,strategy_pnl,strategy_return,strategy_cumulative,benchmark_pnl,benchmark_return,benchmark_cumulative\n"+
				"2001-01-31,2,oops,0.04,0.04,0.4,0.02,0.02\n")
		_, err := svc.BacktestSeries(context.Background())
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.ErrKindParsing))
	})
}

func TestResultsServiceOutliers(t *testing.T) {
	paths := testPaths(t)
	svc := NewResultsService(paths, testLogger())

	t.Run("missing report is not found", func(t *testing.T) {
		_, err := svc.Outliers(context.Background())
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.ErrKindNotFound))
	})

	t.Run("parses report lines in order", func(t *testing.T) {
		writeArtifact(t, paths.OutliersPath(),
			"B,2001-02-28,1000.00\nA,2001-03-31,12.50\n")

		entries, err := svc.Outliers(context.Background())
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, OutlierEntry{Ticker: "B", Date: "2001-02-28", Price: 1000.0}, entries[0])
		assert.Equal(t, OutlierEntry{Ticker: "A", Date: "2001-03-31", Price: 12.5}, entries[1])
	})

	t.Run("empty report yields no entries", func(t *testing.T) {
		writeArtifact(t, paths.OutliersPath(), "")

		entries, err := svc.Outliers(context.Background())
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestResultsServiceReportText(t *testing.T) {
	paths := testPaths(t)
	svc := NewResultsService(paths, testLogger())

	_, err := svc.ReportText(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.ErrKindNotFound))

	writeArtifact(t, paths.ResultsPath(), "Strategy (fixed notional per selected name)\nmonths: 2\n")

	text, err := svc.ReportText(context.Background())
	require.NoError(t, err)
	assert.Contains(t, text, "Strategy (fixed notional per selected name)")
}
