package dataset

import (
	"context"
	"log/slog"
	"math"

	"stockstrider/pkg/contracts/domain"
)

// float32RelTolerance bounds the relative error a float64 value may take on
// a float32 round trip before narrowing is rejected. Round-tripping loses at
// most 2^-24 relative error for in-range values, so real price and return
// data narrows; values that genuinely need the extra bits stay float64.
const float32RelTolerance = 1e-7

// Optimizer narrows the numeric columns of a table to the smallest width
// that represents every observed value. Non-numeric columns pass through
// unchanged; columns with values the narrower type cannot represent keep
// their original width.
type Optimizer struct {
	logger *slog.Logger
}

// NewOptimizer creates an Optimizer.
func NewOptimizer(logger *slog.Logger) *Optimizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Optimizer{logger: logger.With(slog.String("component", "dataset.optimizer"))}
}

// Optimize returns a new table with narrowed numeric columns plus the size
// accounting. The input table is never mutated; pass-through columns share
// their backing slices with the input, which stays safe because tables are
// immutable once built.
func (o *Optimizer) Optimize(ctx context.Context, t *Table) (*Table, domain.OptimizeStats) {
	stats := domain.OptimizeStats{BytesBefore: t.SizeBytes()}

	narrowed := make([]*Column, 0, t.NumCols())
	for _, col := range t.Columns() {
		out := col
		switch {
		case col.kind.IsInteger():
			out = narrowIntColumn(col)
		case col.kind == KindFloat64:
			out = narrowFloatColumn(col)
		}
		if out.kind != col.kind {
			stats.ColumnsNarrowed++
			o.logger.DebugContext(ctx, "Narrowed column",
				slog.String("column", col.name),
				slog.String("from", col.kind.String()),
				slog.String("to", out.kind.String()))
		}
		narrowed = append(narrowed, out)
	}

	// Lengths and names are unchanged, so rebuilding cannot fail.
	result, err := NewTable(narrowed...)
	if err != nil {
		o.logger.ErrorContext(ctx, "Rebuild after narrowing failed, keeping original widths",
			slog.String("error", err.Error()))
		return t, domain.OptimizeStats{BytesBefore: stats.BytesBefore, BytesAfter: stats.BytesBefore}
	}

	stats.BytesAfter = result.SizeBytes()
	if stats.BytesBefore > 0 {
		stats.ReductionPct = 100 * float64(stats.BytesBefore-stats.BytesAfter) / float64(stats.BytesBefore)
	}

	o.logger.InfoContext(ctx, "Optimized table storage",
		slog.Int("columns", t.NumCols()),
		slog.Int("columns_narrowed", stats.ColumnsNarrowed),
		slog.Int64("bytes_before", stats.BytesBefore),
		slog.Int64("bytes_after", stats.BytesAfter),
		slog.Float64("reduction_pct", stats.ReductionPct))

	return result, stats
}

// narrowIntColumn picks the narrowest integer kind covering the observed
// range. Columns already at the narrowest fit are returned as-is.
func narrowIntColumn(col *Column) *Column {
	n := col.Len()
	if n == 0 {
		return col
	}

	min, max := col.Int(0), col.Int(0)
	for i := 1; i < n; i++ {
		v := col.Int(i)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	target := col.kind
	switch {
	case min >= math.MinInt8 && max <= math.MaxInt8:
		target = KindInt8
	case min >= math.MinInt16 && max <= math.MaxInt16:
		target = KindInt16
	case min >= math.MinInt32 && max <= math.MaxInt32:
		target = KindInt32
	}
	if target >= col.kind {
		return col
	}

	switch target {
	case KindInt8:
		out := make([]int8, n)
		for i := 0; i < n; i++ {
			out[i] = int8(col.Int(i))
		}
		return newInt8Column(col.name, out)
	case KindInt16:
		out := make([]int16, n)
		for i := 0; i < n; i++ {
			out[i] = int16(col.Int(i))
		}
		return newInt16Column(col.name, out)
	case KindInt32:
		out := make([]int32, n)
		for i := 0; i < n; i++ {
			out[i] = int32(col.Int(i))
		}
		return newInt32Column(col.name, out)
	default:
		return col
	}
}

// narrowFloatColumn converts float64 to float32 when every value survives
// the round trip within tolerance. NaN and Inf mark missing or broken data
// whose width must not change, and any out-of-range or precision-losing
// value keeps the whole column at float64.
func narrowFloatColumn(col *Column) *Column {
	n := col.Len()
	if n == 0 {
		return col
	}

	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := col.Float(i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return col
		}
		if math.Abs(v) > math.MaxFloat32 {
			return col
		}
		narrow := float32(v)
		if v != 0 {
			if rel := math.Abs(float64(narrow)-v) / math.Abs(v); rel > float32RelTolerance {
				return col
			}
		}
		out[i] = narrow
	}
	return newFloat32Column(col.name, out)
}
