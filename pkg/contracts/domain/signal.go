package domain

import (
	"time"
)

// SignalRecord extends ReturnRecord with the 12-month trailing average and
// the monthly selection flag. HasSignal reports whether the average is
// defined for this month; it is false until the ticker has a full window of
// consecutive monthly trailing returns ending at this month. Selected implies
// HasSignal.
type SignalRecord struct {
	Ticker               string    `json:"ticker"`
	Date                 time.Time `json:"date"`
	Price                float64   `json:"price"`
	TrailingReturn       float64   `json:"trailing_return"`
	ForwardReturn        float64   `json:"forward_return"`
	AvgTrailingReturn12M float64   `json:"avg_trailing_return_12m"`
	HasSignal            bool      `json:"has_signal"`
	Selected             bool      `json:"selected"`
}

// MonthKey returns the record's month as a sortable yyyy*12+mm integer.
func (s SignalRecord) MonthKey() int {
	return MonthKey(s.Date)
}

// BenchmarkRecord is one monthly observation of the index: the month-end
// level and the trailing month-over-month return. The first month of the
// series has no trailing return and is not emitted.
type BenchmarkRecord struct {
	Date           time.Time `json:"date"`
	Level          float64   `json:"level"`
	TrailingReturn float64   `json:"trailing_return"`
}

// MonthKey returns the record's month as a sortable yyyy*12+mm integer.
func (b BenchmarkRecord) MonthKey() int {
	return MonthKey(b.Date)
}
