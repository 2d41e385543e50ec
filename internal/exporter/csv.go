// Package exporter writes the run artifacts: the outliers report, the
// results text report, and the intermediate CSV tables the analysis
// notebook reads. Every writer creates the target directory and wraps
// failures as storage errors.
package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"stockstrider/internal/config"
	apperrors "stockstrider/internal/errors"
)

// dateLayout is the date format used in every artifact.
const dateLayout = "2006-01-02"

// Exporter writes run artifacts under the configured results tree.
type Exporter struct {
	paths  config.PathsConfig
	logger *slog.Logger
}

// New creates an Exporter.
func New(paths config.PathsConfig, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		paths:  paths,
		logger: logger.With(slog.String("component", "exporter")),
	}
}

// writeCSV writes a header row and records to path, creating the directory
// first.
func (e *Exporter) writeCSV(path string, headers []string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("create directory for %s", path), err)
	}

	file, err := os.Create(path)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("create %s", path), err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(headers); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("write header of %s", path), err)
	}
	for i, record := range records {
		if err := writer.Write(record); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("write record %d of %s", i, path), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("flush %s", path), err)
	}

	e.logger.Debug("Wrote CSV artifact",
		slog.String("path", path),
		slog.Int("records", len(records)))

	return nil
}

// formatFloat renders a value with full round-trip precision, the way the
// intermediate tables are consumed programmatically.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}
