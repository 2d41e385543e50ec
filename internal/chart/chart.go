// Package chart renders the cumulative PnL comparison image.
package chart

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	apperrors "stockstrider/internal/errors"
	"stockstrider/pkg/contracts/domain"
)

// Renderer draws backtest results into image files.
type Renderer struct {
	logger *slog.Logger
}

// New creates a Renderer.
func New(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{logger: logger.With(slog.String("component", "chart"))}
}

// RenderPnL draws both cumulative-return curves over time and saves the
// image to path; the extension selects the encoding.
func (r *Renderer) RenderPnL(ctx context.Context, result domain.BacktestResult, path string) error {
	p := plot.New()
	p.Title.Text = "Strategy vs benchmark, cumulative return"
	p.X.Label.Text = "Month"
	p.Y.Label.Text = "Cumulative return"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = true

	strategy := make(plotter.XYs, len(result.Months))
	benchmark := make(plotter.XYs, len(result.Months))
	for i, m := range result.Months {
		x := float64(m.Month.Unix())
		strategy[i] = plotter.XY{X: x, Y: m.StrategyCumulative}
		benchmark[i] = plotter.XY{X: x, Y: m.BenchmarkCumulative}
	}

	strategyLine, err := plotter.NewLine(strategy)
	if err != nil {
		return apperrors.NewStorageError("build strategy line", err)
	}
	strategyLine.Color = plotutil.Color(0)
	strategyLine.Width = vg.Points(1.5)

	benchmarkLine, err := plotter.NewLine(benchmark)
	if err != nil {
		return apperrors.NewStorageError("build benchmark line", err)
	}
	benchmarkLine.Color = plotutil.Color(1)
	benchmarkLine.Width = vg.Points(1.5)

	p.Add(strategyLine, benchmarkLine)
	p.Legend.Add("strategy", strategyLine)
	p.Legend.Add("benchmark", benchmarkLine)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("create directory for %s", path), err)
	}
	if err := p.Save(12*vg.Inch, 6*vg.Inch, path); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("save plot %s", path), err)
	}

	r.logger.InfoContext(ctx, "Wrote PnL plot",
		slog.String("path", path),
		slog.Int("months", len(result.Months)))

	return nil
}
