package exporter

import (
	"context"
	"strconv"

	"stockstrider/pkg/contracts/domain"
)

// WriteMonthlyReturns writes the clean monthly return table.
func (e *Exporter) WriteMonthlyReturns(ctx context.Context, records []domain.ReturnRecord) error {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			r.Ticker,
			formatDate(r.Date),
			formatFloat(r.Price),
			formatFloat(r.TrailingReturn),
			formatFloat(r.ForwardReturn),
		}
	}
	return e.writeCSV(e.paths.MonthlyReturnsCSV(),
		[]string{"ticker", "date", "price", "trailing_return", "forward_return"}, rows)
}

// WriteBenchmark writes the monthly benchmark table.
func (e *Exporter) WriteBenchmark(ctx context.Context, records []domain.BenchmarkRecord) error {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			formatDate(r.Date),
			formatFloat(r.Level),
			formatFloat(r.TrailingReturn),
		}
	}
	return e.writeCSV(e.paths.BenchmarkCSV(),
		[]string{"date", "level", "trailing_return"}, rows)
}

// WriteSignals writes the signal table including the selection flags.
func (e *Exporter) WriteSignals(ctx context.Context, signals []domain.SignalRecord) error {
	rows := make([][]string, len(signals))
	for i, s := range signals {
		avg := ""
		if s.HasSignal {
			avg = formatFloat(s.AvgTrailingReturn12M)
		}
		rows[i] = []string{
			s.Ticker,
			formatDate(s.Date),
			formatFloat(s.Price),
			formatFloat(s.TrailingReturn),
			formatFloat(s.ForwardReturn),
			avg,
			strconv.FormatBool(s.Selected),
		}
	}
	return e.writeCSV(e.paths.SignalsCSV(),
		[]string{"ticker", "date", "price", "trailing_return", "forward_return", "avg_trailing_return_12m", "selected"}, rows)
}

// WriteBacktest writes the aligned monthly comparison series.
func (e *Exporter) WriteBacktest(ctx context.Context, result domain.BacktestResult) error {
	rows := make([][]string, len(result.Months))
	for i, m := range result.Months {
		rows[i] = []string{
			formatDate(m.Month),
			strconv.Itoa(m.SelectedCount),
			formatFloat(m.StrategyPnL),
			formatFloat(m.StrategyReturn),
			formatFloat(m.StrategyCumulative),
			formatFloat(m.BenchmarkPnL),
			formatFloat(m.BenchmarkReturn),
			formatFloat(m.BenchmarkCumulative),
		}
	}
	return e.writeCSV(e.paths.BacktestCSV(),
		[]string{
			"month", "selected_count",
			"strategy_pnl", "strategy_return", "strategy_cumulative",
			"benchmark_pnl", "benchmark_return", "benchmark_cumulative",
		}, rows)
}
