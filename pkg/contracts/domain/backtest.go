package domain

import (
	"time"
)

// MonthlyResult is one month of the strategy/benchmark comparison. Returns
// are simple monthly returns; the cumulative columns are the compounded
// growth of the leg since the first backtested month.
type MonthlyResult struct {
	Month               time.Time `json:"month"`
	SelectedCount       int       `json:"selected_count"`
	StrategyPnL         float64   `json:"strategy_pnl"`
	StrategyReturn      float64   `json:"strategy_return"`
	StrategyCumulative  float64   `json:"strategy_cumulative"`
	BenchmarkPnL        float64   `json:"benchmark_pnl"`
	BenchmarkReturn     float64   `json:"benchmark_return"`
	BenchmarkCumulative float64   `json:"benchmark_cumulative"`
}

// LegSummary is the compact per-leg summary written to the results report.
type LegSummary struct {
	Months      int       `json:"months"`
	TotalPnL    float64   `json:"total_pnl"`
	TotalReturn float64   `json:"total_return"`
	MeanReturn  float64   `json:"mean_return"`
	BestMonth   time.Time `json:"best_month"`
	BestReturn  float64   `json:"best_return"`
	WorstMonth  time.Time `json:"worst_month"`
	WorstReturn float64   `json:"worst_return"`
}

// BacktestResult is the full output of the backtest stage: the aligned
// monthly series plus the per-leg summaries. Computed once per run and never
// mutated afterwards.
type BacktestResult struct {
	Months    []MonthlyResult `json:"months"`
	Strategy  LegSummary      `json:"strategy"`
	Benchmark LegSummary      `json:"benchmark"`

	// MonthsSkipped counts signal months excluded because the following
	// month's benchmark level was unavailable.
	MonthsSkipped int `json:"months_skipped,omitempty"`
}

// FinalStrategyReturn returns the strategy leg's total compounded return.
func (r *BacktestResult) FinalStrategyReturn() float64 {
	return r.Strategy.TotalReturn
}

// FinalBenchmarkReturn returns the benchmark leg's total compounded return.
func (r *BacktestResult) FinalBenchmarkReturn() float64 {
	return r.Benchmark.TotalReturn
}
