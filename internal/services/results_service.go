package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"stockstrider/internal/config"
	apperrors "stockstrider/internal/errors"
	"stockstrider/pkg/contracts/domain"
)

// OutlierEntry is one line of the outlier report.
type OutlierEntry struct {
	Ticker string  `json:"ticker"`
	Date   string  `json:"date"`
	Price  float64 `json:"price"`
}

// ResultsSummary condenses the backtest series for the summary endpoint.
type ResultsSummary struct {
	Months               int       `json:"months"`
	FirstMonth           time.Time `json:"first_month"`
	LastMonth            time.Time `json:"last_month"`
	StrategyTotalPnL     float64   `json:"strategy_total_pnl"`
	StrategyTotalReturn  float64   `json:"strategy_total_return"`
	BenchmarkTotalPnL    float64   `json:"benchmark_total_pnl"`
	BenchmarkTotalReturn float64   `json:"benchmark_total_return"`
	GeneratedAt          time.Time `json:"generated_at"`
}

// ResultsService reads the artifacts the most recent completed run left in
// the results directory.
type ResultsService struct {
	paths  config.PathsConfig
	logger *slog.Logger
}

// NewResultsService creates a results service over the configured paths.
func NewResultsService(paths config.PathsConfig, logger *slog.Logger) *ResultsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultsService{
		paths:  paths,
		logger: logger.With(slog.String("component", "services.results")),
	}
}

// BacktestSeries returns the monthly strategy/benchmark comparison parsed
// from the backtest artifact.
func (s *ResultsService) BacktestSeries(ctx context.Context) ([]domain.MonthlyResult, error) {
	path := s.paths.BacktestCSV()
	f, err := s.open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("read %s", path), err)
	}
	if len(rows) < 2 {
		return nil, apperrors.NewNotFoundError("backtest series is empty")
	}

	months := make([]domain.MonthlyResult, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) != 8 {
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("row %d of %s has %d columns, want 8", i+2, path, len(row)), nil)
		}

		month, err := time.Parse("2006-01-02", row[0])
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("row %d of %s: month", i+2, path), err)
		}
		count, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("row %d of %s: selected_count", i+2, path), err)
		}

		values := make([]float64, 6)
		for j, cell := range row[2:] {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, apperrors.NewParsingError(
					fmt.Sprintf("row %d of %s: column %d", i+2, path, j+3), err)
			}
			values[j] = v
		}

		months = append(months, domain.MonthlyResult{
			Month:               month,
			SelectedCount:       count,
			StrategyPnL:         values[0],
			StrategyReturn:      values[1],
			StrategyCumulative:  values[2],
			BenchmarkPnL:        values[3],
			BenchmarkReturn:     values[4],
			BenchmarkCumulative: values[5],
		})
	}

	s.logger.DebugContext(ctx, "backtest series loaded",
		slog.String("path", path),
		slog.Int("months", len(months)))
	return months, nil
}

// Summary condenses the backtest series into per-leg totals.
func (s *ResultsService) Summary(ctx context.Context) (*ResultsSummary, error) {
	months, err := s.BacktestSeries(ctx)
	if err != nil {
		return nil, err
	}

	summary := &ResultsSummary{
		Months:     len(months),
		FirstMonth: months[0].Month,
		LastMonth:  months[len(months)-1].Month,
	}
	for _, m := range months {
		summary.StrategyTotalPnL += m.StrategyPnL
		summary.BenchmarkTotalPnL += m.BenchmarkPnL
	}
	last := months[len(months)-1]
	summary.StrategyTotalReturn = last.StrategyCumulative
	summary.BenchmarkTotalReturn = last.BenchmarkCumulative

	if info, err := os.Stat(s.paths.BacktestCSV()); err == nil {
		summary.GeneratedAt = info.ModTime()
	}
	return summary, nil
}

// Outliers returns the corrected-outlier report.
func (s *ResultsService) Outliers(ctx context.Context) ([]OutlierEntry, error) {
	path := s.paths.OutliersPath()
	f, err := s.open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("read %s", path), err)
	}

	entries := make([]OutlierEntry, 0, 5)
	for i, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 3 {
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("line %d of %s has %d fields, want 3", i+1, path, len(parts)), nil)
		}
		price, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("line %d of %s: price", i+1, path), err)
		}
		entries = append(entries, OutlierEntry{
			Ticker: parts[0],
			Date:   parts[1],
			Price:  price,
		})
	}
	return entries, nil
}

// ReportText returns the plain-text results report verbatim.
func (s *ResultsService) ReportText(ctx context.Context) (string, error) {
	path := s.paths.ResultsPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.NewNotFoundError("results report not available; run the pipeline first")
		}
		return "", apperrors.NewStorageError(fmt.Sprintf("read %s", path), err)
	}
	return string(data), nil
}

// open opens an artifact, mapping a missing file to a not-found error.
func (s *ResultsService) open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError(
				fmt.Sprintf("%s not available; run the pipeline first", path))
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("open %s", path), err)
	}
	return f, nil
}
