// Package domain contains the core data contracts shared by the pipeline
// stages, the exporters, and the results viewer: monthly price and return
// records, selection signals, benchmark levels, and backtest results.
package domain

import (
	"time"
)

// PriceRecord is one dated price observation for one ticker. The loader
// emits one per input row; after resampling the date is the calendar month
// end and the price is the last observation on or before it.
type PriceRecord struct {
	Ticker string    `json:"ticker" validate:"required,min=1,max=10"`
	Date   time.Time `json:"date" validate:"required"`
	Price  float64   `json:"price" validate:"gt=0"`
}

// IndexPoint is one dated level observation of the benchmark index.
type IndexPoint struct {
	Date  time.Time `json:"date"`
	Level float64   `json:"level"`
}

// MonthKey returns the record's month as a sortable yyyy*12+mm integer.
// Consecutive calendar months differ by exactly one.
func (p PriceRecord) MonthKey() int {
	return MonthKey(p.Date)
}

// ReturnRecord extends PriceRecord with the month-over-month returns.
// TrailingReturn is the return from the prior month into this one;
// ForwardReturn is the return from this month into the next. Records are
// only emitted for months where both are defined, so a ReturnRecord table
// carries no missing values.
type ReturnRecord struct {
	Ticker         string    `json:"ticker"`
	Date           time.Time `json:"date"`
	Price          float64   `json:"price"`
	TrailingReturn float64   `json:"trailing_return"`
	ForwardReturn  float64   `json:"forward_return"`
}

// MonthKey returns the record's month as a sortable yyyy*12+mm integer.
func (r ReturnRecord) MonthKey() int {
	return MonthKey(r.Date)
}

// Outlier is one corrected data-quality defect: a return outside the
// configured bounds, detected outside the crisis window. Price is the
// offending pre-correction value.
type Outlier struct {
	Ticker         string    `json:"ticker"`
	Date           time.Time `json:"date"`
	Price          float64   `json:"price"`
	TrailingReturn float64   `json:"trailing_return"`
}

// MonthKey converts a date to a yyyy*12+mm integer so month arithmetic and
// consecutiveness checks reduce to integer comparison.
func MonthKey(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

// MonthEnd returns the last calendar day of t's month, at midnight UTC.
func MonthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

// MonthEndFromKey is the inverse of MonthKey, returning the month-end date
// of the keyed month.
func MonthEndFromKey(key int) time.Time {
	return time.Date(key/12, time.Month(key%12)+2, 0, 0, 0, 0, 0, time.UTC)
}
