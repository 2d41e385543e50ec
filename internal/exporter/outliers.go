package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperrors "stockstrider/internal/errors"
	"stockstrider/pkg/contracts/domain"
)

// WriteOutliers writes the most extreme corrected outliers, ranked by the
// magnitude of their trailing return, one `ticker,date,price` line each.
// Equal magnitudes keep their original order. The file is written even when
// no outliers were corrected.
func (e *Exporter) WriteOutliers(ctx context.Context, outliers []domain.Outlier, limit int) error {
	ranked := make([]domain.Outlier, len(outliers))
	copy(ranked, outliers)
	sort.SliceStable(ranked, func(i, j int) bool {
		return math.Abs(ranked[i].TrailingReturn) > math.Abs(ranked[j].TrailingReturn)
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	var sb strings.Builder
	for _, o := range ranked {
		fmt.Fprintf(&sb, "%s,%s,%.2f\n", o.Ticker, formatDate(o.Date), o.Price)
	}

	path := e.paths.OutliersPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("create directory for %s", path), err)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("write %s", path), err)
	}

	e.logger.InfoContext(ctx, "Wrote outliers report",
		slog.String("path", path),
		slog.Int("corrected", len(outliers)),
		slog.Int("reported", len(ranked)))

	return nil
}
