package preprocess

import (
	"context"
	"log/slog"
	"math"
	"sort"

	apperrors "stockstrider/internal/errors"
	"stockstrider/pkg/contracts/domain"
)

// ProcessIndex resamples the benchmark level series to monthly last values
// and computes the trailing return of each month against the previous
// observed one. The first month has no trailing return and is not emitted.
// The index is the reference series: no bounds filter and no bad-tick policy
// apply to it.
func (p *Preprocessor) ProcessIndex(ctx context.Context, points []domain.IndexPoint) ([]domain.BenchmarkRecord, error) {
	if len(points) < 2 {
		return nil, apperrors.NewInputError("index series has fewer than two observations", nil)
	}

	sorted := make([]domain.IndexPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var series []monthObs
	for _, pt := range sorted {
		key := domain.MonthKey(pt.Date)
		if n := len(series); n > 0 && series[n-1].key == key {
			series[n-1].price = pt.Level
			continue
		}
		series = append(series, monthObs{key: key, price: pt.Level})
	}
	if len(series) < 2 {
		return nil, apperrors.NewInputError("index series spans fewer than two months", nil)
	}

	records := make([]domain.BenchmarkRecord, 0, len(series)-1)
	missing := 0
	for i := 1; i < len(series); i++ {
		trailing := (series[i].price - series[i-1].price) / series[i-1].price
		if math.IsNaN(trailing) || math.IsInf(trailing, 0) {
			missing++
			continue
		}
		records = append(records, domain.BenchmarkRecord{
			Date:           domain.MonthEndFromKey(series[i].key),
			Level:          series[i].price,
			TrailingReturn: trailing,
		})
	}
	if missing > 0 {
		return nil, apperrors.NewIntegrityError("benchmark series carries missing values", missing)
	}

	p.logger.InfoContext(ctx, "benchmark preprocessing completed",
		"observations", len(points),
		"monthly_points", len(series),
		"records", len(records),
	)

	return records, nil
}
