// Package preprocess turns raw price observations into clean monthly return
// tables. Per ticker it resamples to calendar months, drops out-of-bounds
// prices, corrects extreme non-crisis returns as bad ticks, forward-fills
// the remaining gaps and computes trailing and forward returns on the
// continuous series. The output carries no missing values; a residual gap is
// reported as a data-integrity defect instead of flowing downstream.
package preprocess

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	apperrors "stockstrider/internal/errors"
	"stockstrider/pkg/contracts/domain"
)

// Options carries the thresholds the preprocessor applies. The crisis window
// bounds are month-granular and inclusive on both ends.
type Options struct {
	PriceMin    float64
	PriceMax    float64
	ReturnUpper float64
	ReturnLower float64
	CrisisStart time.Time
	CrisisEnd   time.Time
}

// Preprocessor cleans raw price series into monthly return records.
type Preprocessor struct {
	opts           Options
	crisisStartKey int
	crisisEndKey   int
	logger         *slog.Logger
}

// New creates a Preprocessor.
func New(opts Options, logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preprocessor{
		opts:           opts,
		crisisStartKey: domain.MonthKey(opts.CrisisStart),
		crisisEndKey:   domain.MonthKey(opts.CrisisEnd),
		logger:         logger.With(slog.String("component", "preprocess")),
	}
}

// monthObs is one resampled month of one ticker before gap filling.
type monthObs struct {
	key   int
	price float64
}

// ProcessStocks produces the clean monthly return table for all tickers,
// sorted by ticker then date, plus the corrected outliers and the stage
// counters. Tickers with fewer than two in-bounds monthly observations are
// excluded entirely.
func (p *Preprocessor) ProcessStocks(ctx context.Context, records []domain.PriceRecord) ([]domain.ReturnRecord, []domain.Outlier, domain.PreprocessStats, error) {
	start := time.Now()
	stats := domain.PreprocessStats{RawRows: len(records)}

	byTicker := groupByTicker(records)
	stats.Tickers = len(byTicker)

	tickers := make([]string, 0, len(byTicker))
	for ticker := range byTicker {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	// First pass: resample and bounds-filter every ticker, establishing the
	// shared month grid from the tickers that survive.
	monthly := make(map[string][]monthObs, len(byTicker))
	gridMin, gridMax := 0, 0
	for _, ticker := range tickers {
		series := p.resampleMonthly(byTicker[ticker], &stats)
		if len(series) < 2 {
			p.logger.DebugContext(ctx, "excluding ticker with insufficient history",
				"ticker", ticker, "monthly_points", len(series))
			continue
		}
		stats.MonthlyPoints += len(series)
		first, last := series[0].key, series[len(series)-1].key
		if len(monthly) == 0 || first < gridMin {
			gridMin = first
		}
		if len(monthly) == 0 || last > gridMax {
			gridMax = last
		}
		monthly[ticker] = series
	}

	var (
		returns  []domain.ReturnRecord
		outliers []domain.Outlier
	)
	for _, ticker := range tickers {
		series, ok := monthly[ticker]
		if !ok {
			continue
		}
		corrected := p.correctOutliers(ticker, series, &outliers, &stats)
		filled := fillForward(corrected, gridMin, gridMax, &stats)
		returns = appendReturnRecords(returns, ticker, filled, &stats)
	}

	if missing := countMissing(returns); missing > 0 {
		stats.ResidualMissing = missing
		p.logger.ErrorContext(ctx, "preprocessed table carries missing values",
			"missing_values", missing)
		return nil, nil, stats, apperrors.NewIntegrityError(
			"preprocessed return table carries missing values", missing)
	}
	stats.OutputRows = len(returns)

	p.logger.InfoContext(ctx, "preprocessing completed",
		"duration", time.Since(start),
		"raw_rows", stats.RawRows,
		"tickers", stats.Tickers,
		"monthly_points", stats.MonthlyPoints,
		"prices_out_of_bounds", stats.PricesOutOfBounds,
		"outliers_detected", stats.OutliersDetected,
		"outliers_corrected", stats.OutliersCorrected,
		"months_filled", stats.MonthsFilled,
		"output_rows", stats.OutputRows,
	)

	return returns, outliers, stats, nil
}

// groupByTicker splits records per ticker preserving input order within each
// group, so equal-date observations resolve deterministically.
func groupByTicker(records []domain.PriceRecord) map[string][]domain.PriceRecord {
	byTicker := make(map[string][]domain.PriceRecord)
	for _, r := range records {
		byTicker[r.Ticker] = append(byTicker[r.Ticker], r)
	}
	return byTicker
}

// resampleMonthly reduces a ticker's observations to one per calendar month,
// keeping the last observation on or before month end, then drops months
// whose price falls outside the configured bounds.
func (p *Preprocessor) resampleMonthly(obs []domain.PriceRecord, stats *domain.PreprocessStats) []monthObs {
	sorted := make([]domain.PriceRecord, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var series []monthObs
	for _, r := range sorted {
		key := r.MonthKey()
		if n := len(series); n > 0 && series[n-1].key == key {
			series[n-1].price = r.Price
			continue
		}
		series = append(series, monthObs{key: key, price: r.Price})
	}

	inBounds := series[:0]
	for _, m := range series {
		if !p.priceInBounds(m.price) {
			stats.PricesOutOfBounds++
			continue
		}
		inBounds = append(inBounds, m)
	}
	return inBounds
}

// priceInBounds rejects NaN and infinities along with out-of-range prices.
func (p *Preprocessor) priceInBounds(price float64) bool {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return false
	}
	return price >= p.opts.PriceMin && price <= p.opts.PriceMax
}

// correctOutliers runs the two-pass bad-tick policy on one ticker's monthly
// series. Detection computes each month's trailing return against the
// previous observed pre-correction price; months breaching the thresholds
// outside the crisis window are removed so the forward fill replaces them
// with the last valid price. The first month has no trailing return and is
// never flagged.
func (p *Preprocessor) correctOutliers(ticker string, series []monthObs, outliers *[]domain.Outlier, stats *domain.PreprocessStats) []monthObs {
	flagged := make([]bool, len(series))
	for i := 1; i < len(series); i++ {
		trailing := (series[i].price - series[i-1].price) / series[i-1].price
		if trailing <= p.opts.ReturnUpper && trailing >= p.opts.ReturnLower {
			continue
		}
		stats.OutliersDetected++
		if p.inCrisisWindow(series[i].key) {
			continue
		}
		flagged[i] = true
		stats.OutliersCorrected++
		*outliers = append(*outliers, domain.Outlier{
			Ticker:         ticker,
			Date:           domain.MonthEndFromKey(series[i].key),
			Price:          series[i].price,
			TrailingReturn: trailing,
		})
	}

	corrected := make([]monthObs, 0, len(series))
	for i, m := range series {
		if flagged[i] {
			continue
		}
		corrected = append(corrected, m)
	}
	return corrected
}

// inCrisisWindow reports whether the keyed month falls inside the inclusive
// crisis window, where extreme returns are real moves and stay untouched.
func (p *Preprocessor) inCrisisWindow(key int) bool {
	return key >= p.crisisStartKey && key <= p.crisisEndKey
}

// fillForward expands a ticker's valid observations onto the continuous
// month grid, carrying the last known price across gaps. Grid months before
// the first observation have no prior history and are dropped.
func fillForward(series []monthObs, gridMin, gridMax int, stats *domain.PreprocessStats) []monthObs {
	if len(series) == 0 {
		return nil
	}
	first := series[0].key
	stats.LeadingGapMonths += first - gridMin

	filled := make([]monthObs, 0, gridMax-first+1)
	next := 0
	last := series[0].price
	for key := first; key <= gridMax; key++ {
		if next < len(series) && series[next].key == key {
			last = series[next].price
			next++
		} else {
			stats.MonthsFilled++
		}
		filled = append(filled, monthObs{key: key, price: last})
	}
	return filled
}

// appendReturnRecords computes trailing and forward returns on a continuous
// monthly series and emits records for the interior months where both are
// defined.
func appendReturnRecords(returns []domain.ReturnRecord, ticker string, filled []monthObs, stats *domain.PreprocessStats) []domain.ReturnRecord {
	if len(filled) < 2 {
		stats.BoundaryRows += len(filled)
		return returns
	}
	stats.BoundaryRows += 2
	for i := 1; i < len(filled)-1; i++ {
		returns = append(returns, domain.ReturnRecord{
			Ticker:         ticker,
			Date:           domain.MonthEndFromKey(filled[i].key),
			Price:          filled[i].price,
			TrailingReturn: (filled[i].price - filled[i-1].price) / filled[i-1].price,
			ForwardReturn:  (filled[i+1].price - filled[i].price) / filled[i].price,
		})
	}
	return returns
}

// countMissing scans the finished table for NaN or infinite values.
func countMissing(returns []domain.ReturnRecord) int {
	missing := 0
	for _, r := range returns {
		for _, v := range [...]float64{r.Price, r.TrailingReturn, r.ForwardReturn} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				missing++
			}
		}
	}
	return missing
}
