// Package loader reads the input files into dataset tables. Columns are
// typed by sniffing: a column whose values all parse as dates becomes a time
// column, all-integer columns become int64, numeric columns with gaps become
// float64 with NaN for the gaps, and everything else stays text. Any
// unreadable file or missing required column is an input error that aborts
// the run.
package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"stockstrider/internal/dataset"
	apperrors "stockstrider/internal/errors"
	"stockstrider/pkg/contracts/domain"
)

// Header candidates for required columns, in preference order.
var (
	dateColumns   = []string{"Date"}
	tickerColumns = []string{"Ticker", "Symbol"}
	priceColumns  = []string{"Price", "Close", "Adj Close"}
	levelColumns  = []string{"Adjusted Close", "Adj Close", "Close"}
)

// dateFormats are tried in order when sniffing date cells.
var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"2006/01/02",
}

// Loader reads input files into tables.
type Loader struct {
	logger *slog.Logger
}

// New creates a Loader.
func New(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger.With(slog.String("component", "loader"))}
}

// ResolveStockPath returns the stock-price input file. With an explicit path
// configured it must exist; otherwise the candidates are checked in order
// under dataDir and the first hit wins.
func ResolveStockPath(dataDir, explicit string, candidates []string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", apperrors.NewInputError(fmt.Sprintf("stock price file %s", explicit), err)
		}
		return explicit, nil
	}
	for _, name := range candidates {
		path := filepath.Join(dataDir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", apperrors.NewInputError(
		fmt.Sprintf("no stock price file in %s (tried %s)", dataDir, strings.Join(candidates, ", ")), nil)
}

// LoadStockTable reads the stock-price file and verifies it carries the
// date, ticker and price columns the preprocessor needs.
func (l *Loader) LoadStockTable(ctx context.Context, path string) (*dataset.Table, error) {
	table, err := l.loadTable(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := requireTimeColumn(table, path, dateColumns); err != nil {
		return nil, err
	}
	tickerCol, ok := table.ColumnFold(tickerColumns...)
	if !ok {
		return nil, missingColumn(path, tickerColumns)
	}
	if tickerCol.Kind() != dataset.KindString {
		return nil, apperrors.NewInputError(
			fmt.Sprintf("%s column %q is not text", path, tickerCol.Name()), nil)
	}
	if err := requireNumericColumn(table, path, priceColumns); err != nil {
		return nil, err
	}
	return table, nil
}

// LoadIndexTable reads the index file and verifies the date and level
// columns exist.
func (l *Loader) LoadIndexTable(ctx context.Context, path string) (*dataset.Table, error) {
	table, err := l.loadTable(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := requireTimeColumn(table, path, dateColumns); err != nil {
		return nil, err
	}
	if err := requireNumericColumn(table, path, levelColumns); err != nil {
		return nil, err
	}
	return table, nil
}

// loadTable dispatches on the file extension.
func (l *Loader) loadTable(ctx context.Context, path string) (*dataset.Table, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readWorkbook(path)
	default:
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}

	table, err := buildTable(path, rows)
	if err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "Loaded input file",
		slog.String("path", path),
		slog.Int("rows", table.NumRows()),
		slog.Int("columns", table.NumCols()))

	return table, nil
}

// readCSV reads all records of a CSV file including the header row.
func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewInputError(fmt.Sprintf("open %s", path), err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("read %s", path), err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// buildTable turns header+data rows into a typed table.
func buildTable(path string, rows [][]string) (*dataset.Table, error) {
	if len(rows) == 0 {
		return nil, apperrors.NewInputError(fmt.Sprintf("%s is empty", path), nil)
	}
	header := rows[0]
	data := rows[1:]
	if len(data) == 0 {
		return nil, apperrors.NewInputError(fmt.Sprintf("%s has a header but no data rows", path), nil)
	}

	columns := make([]*dataset.Column, 0, len(header))
	for idx, rawName := range header {
		name := strings.TrimSpace(rawName)
		if name == "" {
			name = fmt.Sprintf("column_%d", idx)
		}
		cells := make([]string, len(data))
		for r, row := range data {
			if idx < len(row) {
				cells[r] = strings.TrimSpace(row[idx])
			}
		}
		columns = append(columns, sniffColumn(name, cells))
	}

	table, err := dataset.NewTable(columns...)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("assemble table from %s", path), err)
	}
	return table, nil
}

// sniffColumn classifies a column from its cells. Classification looks only
// at non-empty cells; empty cells demote dates and integers to weaker types
// so a later required-column check can reject holes where they matter.
func sniffColumn(name string, cells []string) *dataset.Column {
	hasEmpty := false
	isDate := true
	isInt := true
	isFloat := true
	for _, cell := range cells {
		if cell == "" {
			hasEmpty = true
			continue
		}
		if isDate {
			if _, ok := parseDate(cell); !ok {
				isDate = false
			}
		}
		if isInt {
			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				isFloat = false
			}
		}
	}

	switch {
	case isDate && !hasEmpty && len(cells) > 0:
		values := make([]time.Time, len(cells))
		for i, cell := range cells {
			values[i], _ = parseDate(cell)
		}
		return dataset.NewTimeColumn(name, values)
	case isInt && !hasEmpty:
		values := make([]int64, len(cells))
		for i, cell := range cells {
			values[i], _ = strconv.ParseInt(cell, 10, 64)
		}
		return dataset.NewInt64Column(name, values)
	case isFloat:
		values := make([]float64, len(cells))
		for i, cell := range cells {
			if cell == "" {
				values[i] = math.NaN()
				continue
			}
			values[i], _ = strconv.ParseFloat(cell, 64)
		}
		return dataset.NewFloat64Column(name, values)
	default:
		return dataset.NewStringColumn(name, cells)
	}
}

// parseDate tries the known formats in order.
func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func requireTimeColumn(table *dataset.Table, path string, candidates []string) error {
	col, ok := table.ColumnFold(candidates...)
	if !ok {
		return missingColumn(path, candidates)
	}
	if col.Kind() != dataset.KindTime {
		return apperrors.NewInputError(
			fmt.Sprintf("%s column %q does not parse as dates", path, col.Name()), nil)
	}
	return nil
}

func requireNumericColumn(table *dataset.Table, path string, candidates []string) error {
	col, ok := table.ColumnFold(candidates...)
	if !ok {
		return missingColumn(path, candidates)
	}
	if !col.Kind().IsNumeric() {
		return apperrors.NewInputError(
			fmt.Sprintf("%s column %q is not numeric", path, col.Name()), nil)
	}
	return nil
}

func missingColumn(path string, candidates []string) error {
	return apperrors.NewInputError(
		fmt.Sprintf("%s missing expected column (any of %s)", path, strings.Join(candidates, ", ")), nil)
}

// DateColumn returns the table's date column. Callers run after the load
// validation, so the column is known to exist and be time-typed.
func DateColumn(table *dataset.Table) *dataset.Column {
	col, _ := table.ColumnFold(dateColumns...)
	return col
}

// TickerColumn returns the stock table's ticker column.
func TickerColumn(table *dataset.Table) *dataset.Column {
	col, _ := table.ColumnFold(tickerColumns...)
	return col
}

// PriceColumn returns the stock table's price column.
func PriceColumn(table *dataset.Table) *dataset.Column {
	col, _ := table.ColumnFold(priceColumns...)
	return col
}

// LevelColumn returns the index table's level column, preferring the
// adjusted close when both are present.
func LevelColumn(table *dataset.Table) *dataset.Column {
	col, _ := table.ColumnFold(levelColumns...)
	return col
}

// StockRecords flattens a validated stock table into price records. Rows
// whose price cell was empty or not a number are non-observations and are
// skipped; the monthly resampler treats the months they leave behind as
// missing.
func StockRecords(table *dataset.Table) []domain.PriceRecord {
	dates := DateColumn(table)
	tickers := TickerColumn(table)
	prices := PriceColumn(table)

	records := make([]domain.PriceRecord, 0, table.NumRows())
	for i := 0; i < table.NumRows(); i++ {
		price := prices.Float(i)
		if math.IsNaN(price) {
			continue
		}
		records = append(records, domain.PriceRecord{
			Ticker: tickers.StringAt(i),
			Date:   dates.TimeAt(i),
			Price:  price,
		})
	}
	return records
}

// IndexPoints flattens a validated index table into level observations,
// skipping empty cells.
func IndexPoints(table *dataset.Table) []domain.IndexPoint {
	dates := DateColumn(table)
	levels := LevelColumn(table)

	points := make([]domain.IndexPoint, 0, table.NumRows())
	for i := 0; i < table.NumRows(); i++ {
		level := levels.Float(i)
		if math.IsNaN(level) {
			continue
		}
		points = append(points, domain.IndexPoint{Date: dates.TimeAt(i), Level: level})
	}
	return points
}
