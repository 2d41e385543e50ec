// Package signal computes the rolling momentum average and selects the
// monthly strategy basket. A ticker's average is defined only once it has a
// full window of consecutive monthly trailing returns ending at the current
// month, so the signal never sees anything but past data. Each month the
// defined averages are ranked descending and the top names are selected.
package signal

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"stockstrider/pkg/contracts/domain"
)

// Options carries the signal parameters: the rolling window length in
// months and the basket size.
type Options struct {
	WindowMonths int
	TopN         int
}

// Generator computes signal records from clean return records.
type Generator struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Generator.
func New(opts Options, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		opts:   opts,
		logger: logger.With(slog.String("component", "signal")),
	}
}

// Generate produces one signal record per input record, in input order.
// Input rows are expected sorted by ticker then date, the order the
// preprocessor emits; ties in the monthly ranking are broken by this
// original row order.
func (g *Generator) Generate(ctx context.Context, records []domain.ReturnRecord) ([]domain.SignalRecord, error) {
	start := time.Now()

	signals := make([]domain.SignalRecord, len(records))
	for i, r := range records {
		signals[i] = domain.SignalRecord{
			Ticker:         r.Ticker,
			Date:           r.Date,
			Price:          r.Price,
			TrailingReturn: r.TrailingReturn,
			ForwardReturn:  r.ForwardReturn,
		}
	}

	defined := g.computeAverages(signals)
	months, selected := g.selectMonthly(signals)

	g.logger.InfoContext(ctx, "signal generation completed",
		"duration", time.Since(start),
		"rows", len(signals),
		"defined_averages", defined,
		"months", months,
		"selections", selected,
	)

	return signals, nil
}

// computeAverages fills AvgTrailingReturn12M and HasSignal per ticker. The
// streak counter tracks how many consecutive months end at the current row;
// a gap resets it, so a full window is available only when the streak
// reaches the window length.
func (g *Generator) computeAverages(signals []domain.SignalRecord) int {
	window := g.opts.WindowMonths
	defined := 0

	groups := groupIndexes(signals)
	for _, idx := range groups {
		streak := 0
		for k, i := range idx {
			if k == 0 || signals[i].MonthKey() != signals[idx[k-1]].MonthKey()+1 {
				streak = 1
			} else {
				streak++
			}
			if streak < window {
				continue
			}
			sum := 0.0
			for _, j := range idx[k-window+1 : k+1] {
				sum += signals[j].TrailingReturn
			}
			signals[i].AvgTrailingReturn12M = sum / float64(window)
			signals[i].HasSignal = true
			defined++
		}
	}
	return defined
}

// selectMonthly ranks the defined averages of each month descending and
// marks the top names selected. Months with fewer defined averages than the
// basket size select all of them. The sort is stable and the comparator
// strict, so equal averages keep their original relative order.
func (g *Generator) selectMonthly(signals []domain.SignalRecord) (months, selected int) {
	byMonth := make(map[int][]int)
	for i := range signals {
		if !signals[i].HasSignal {
			continue
		}
		key := signals[i].MonthKey()
		byMonth[key] = append(byMonth[key], i)
	}

	keys := make([]int, 0, len(byMonth))
	for key := range byMonth {
		keys = append(keys, key)
	}
	sort.Ints(keys)

	for _, key := range keys {
		candidates := byMonth[key]
		sort.SliceStable(candidates, func(a, b int) bool {
			return signals[candidates[a]].AvgTrailingReturn12M > signals[candidates[b]].AvgTrailingReturn12M
		})
		n := g.opts.TopN
		if len(candidates) < n {
			n = len(candidates)
		}
		for _, i := range candidates[:n] {
			signals[i].Selected = true
		}
		selected += n
	}
	return len(byMonth), selected
}

// groupIndexes collects the row indexes of each ticker in input order. The
// iteration order of the result does not matter; every row is touched
// exactly once and rankings read the shared slice by index.
func groupIndexes(signals []domain.SignalRecord) map[string][]int {
	groups := make(map[string][]int)
	for i := range signals {
		groups[signals[i].Ticker] = append(groups[signals[i].Ticker], i)
	}
	return groups
}
