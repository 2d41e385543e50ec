package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "stockstrider/internal/errors"
	"stockstrider/pkg/contracts/domain"
)

// WriteResultsReport writes the plain-text report with the per-leg totals
// and the compact PnL summary for both legs.
func (e *Exporter) WriteResultsReport(ctx context.Context, result domain.BacktestResult) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "StockStrider backtest results\n")
	fmt.Fprintf(&sb, "=============================\n\n")

	writeLeg(&sb, "Strategy (fixed notional per selected name)", result.Strategy)
	sb.WriteString("\n")
	writeLeg(&sb, "Benchmark (fixed notional in the index)", result.Benchmark)

	if result.MonthsSkipped > 0 {
		fmt.Fprintf(&sb, "\nMonths skipped without a following benchmark return: %d\n",
			result.MonthsSkipped)
	}

	path := e.paths.ResultsPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("create directory for %s", path), err)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("write %s", path), err)
	}

	e.logger.InfoContext(ctx, "Wrote results report",
		slog.String("path", path),
		slog.Int("months", len(result.Months)))

	return nil
}

func writeLeg(sb *strings.Builder, title string, leg domain.LegSummary) {
	fmt.Fprintf(sb, "%s\n", title)
	fmt.Fprintf(sb, "  months:        %d\n", leg.Months)
	fmt.Fprintf(sb, "  total P&L:     $%.4f\n", leg.TotalPnL)
	fmt.Fprintf(sb, "  total return:  %.2f%%\n", leg.TotalReturn*100)
	if leg.Months == 0 {
		return
	}
	fmt.Fprintf(sb, "  mean monthly:  %.2f%%\n", leg.MeanReturn*100)
	fmt.Fprintf(sb, "  best month:    %s (%+.2f%%)\n", leg.BestMonth.Format("2006-01"), leg.BestReturn*100)
	fmt.Fprintf(sb, "  worst month:   %s (%+.2f%%)\n", leg.WorstMonth.Format("2006-01"), leg.WorstReturn*100)
}
