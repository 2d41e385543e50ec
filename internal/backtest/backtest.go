// Package backtest compares the monthly selection strategy against a fixed
// notional invested in the benchmark index. The stage is pure arithmetic
// over already-cleaned tables; a NaN or infinite value reaching it is a
// contract violation by an upstream stage and fails the run loudly.
package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	apperrors "stockstrider/internal/errors"
	"stockstrider/pkg/contracts/domain"
)

// Options carries the notional conventions: a fixed amount per selected name
// on the strategy leg and a fixed total on the benchmark leg.
type Options struct {
	NotionalPerName   float64
	BenchmarkNotional float64
}

// Backtester computes the strategy/benchmark comparison.
type Backtester struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Backtester.
func New(opts Options, logger *slog.Logger) *Backtester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backtester{
		opts:   opts,
		logger: logger.With(slog.String("component", "backtest")),
	}
}

// monthPosition aggregates one month's selected names.
type monthPosition struct {
	count int
	pnl   float64
}

// Run backtests the selections against the benchmark. For each month with
// selected names, the strategy earns the selected forward returns on a fixed
// notional per name while the benchmark notional earns the following month's
// index return, so both legs realize the same forward-looking month. Months
// whose following benchmark month is unavailable are counted and skipped.
func (b *Backtester) Run(ctx context.Context, signals []domain.SignalRecord, benchmark []domain.BenchmarkRecord) (domain.BacktestResult, error) {
	start := time.Now()
	var result domain.BacktestResult

	if err := validateInputs(signals, benchmark); err != nil {
		return result, err
	}

	positions := make(map[int]*monthPosition)
	for i := range signals {
		if !signals[i].Selected {
			continue
		}
		key := signals[i].MonthKey()
		pos := positions[key]
		if pos == nil {
			pos = &monthPosition{}
			positions[key] = pos
		}
		pos.count++
		pos.pnl += b.opts.NotionalPerName * signals[i].ForwardReturn
	}

	benchByMonth := make(map[int]float64, len(benchmark))
	for _, rec := range benchmark {
		benchByMonth[rec.MonthKey()] = rec.TrailingReturn
	}

	keys := make([]int, 0, len(positions))
	for key := range positions {
		keys = append(keys, key)
	}
	sort.Ints(keys)

	cumStrategy, cumBenchmark := 0.0, 0.0
	for _, key := range keys {
		nextBench, ok := benchByMonth[key+1]
		if !ok {
			result.MonthsSkipped++
			b.logger.DebugContext(ctx, "skipping month without following benchmark return",
				"month", domain.MonthEndFromKey(key).Format("2006-01"))
			continue
		}

		pos := positions[key]
		strategyReturn := pos.pnl / (b.opts.NotionalPerName * float64(pos.count))
		benchmarkPnL := b.opts.BenchmarkNotional * nextBench

		cumStrategy = (1+cumStrategy)*(1+strategyReturn) - 1
		cumBenchmark = (1+cumBenchmark)*(1+nextBench) - 1

		result.Months = append(result.Months, domain.MonthlyResult{
			Month:               domain.MonthEndFromKey(key),
			SelectedCount:       pos.count,
			StrategyPnL:         pos.pnl,
			StrategyReturn:      strategyReturn,
			StrategyCumulative:  cumStrategy,
			BenchmarkPnL:        benchmarkPnL,
			BenchmarkReturn:     nextBench,
			BenchmarkCumulative: cumBenchmark,
		})
	}

	result.Strategy = summarizeLeg(result.Months, strategyLeg)
	result.Benchmark = summarizeLeg(result.Months, benchmarkLeg)

	b.logger.InfoContext(ctx, "backtest completed",
		"duration", time.Since(start),
		"months", len(result.Months),
		"months_skipped", result.MonthsSkipped,
		"strategy_total_return", result.Strategy.TotalReturn,
		"benchmark_total_return", result.Benchmark.TotalReturn,
	)

	return result, nil
}

// validateInputs rejects NaN or infinite values in anything the backtest
// consumes: forward returns of selected rows and benchmark returns.
func validateInputs(signals []domain.SignalRecord, benchmark []domain.BenchmarkRecord) error {
	for i := range signals {
		if !signals[i].Selected {
			continue
		}
		if !isFinite(signals[i].ForwardReturn) {
			return apperrors.NewContractError(fmt.Sprintf(
				"selected row %s %s carries a non-finite forward return",
				signals[i].Ticker, signals[i].Date.Format("2006-01")))
		}
	}
	for i := range benchmark {
		if !isFinite(benchmark[i].TrailingReturn) {
			return apperrors.NewContractError(fmt.Sprintf(
				"benchmark month %s carries a non-finite return",
				benchmark[i].Date.Format("2006-01")))
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

type legSelector func(m domain.MonthlyResult) (pnl, ret, cum float64)

func strategyLeg(m domain.MonthlyResult) (float64, float64, float64) {
	return m.StrategyPnL, m.StrategyReturn, m.StrategyCumulative
}

func benchmarkLeg(m domain.MonthlyResult) (float64, float64, float64) {
	return m.BenchmarkPnL, m.BenchmarkReturn, m.BenchmarkCumulative
}

// summarizeLeg reduces the monthly series to the compact per-leg summary.
func summarizeLeg(months []domain.MonthlyResult, leg legSelector) domain.LegSummary {
	summary := domain.LegSummary{Months: len(months)}
	if len(months) == 0 {
		return summary
	}

	sumReturns := 0.0
	for i, m := range months {
		pnl, ret, cum := leg(m)
		summary.TotalPnL += pnl
		sumReturns += ret
		if i == 0 || ret > summary.BestReturn {
			summary.BestMonth, summary.BestReturn = m.Month, ret
		}
		if i == 0 || ret < summary.WorstReturn {
			summary.WorstMonth, summary.WorstReturn = m.Month, ret
		}
		if i == len(months)-1 {
			summary.TotalReturn = cum
		}
	}
	summary.MeanReturn = sumReturns / float64(len(months))
	return summary
}
