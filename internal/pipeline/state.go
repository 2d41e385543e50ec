package pipeline

import (
	"stockstrider/internal/dataset"
	"stockstrider/pkg/contracts/domain"
)

// State carries the artifacts from one stage to the next. A run owns its
// State exclusively; stages read what upstream stages produced and attach
// their own output.
type State struct {
	StockPath string
	IndexPath string

	StockTable *dataset.Table
	IndexTable *dataset.Table

	OptimizeStats domain.OptimizeStats

	Returns         []domain.ReturnRecord
	Outliers        []domain.Outlier
	PreprocessStats domain.PreprocessStats
	Benchmark       []domain.BenchmarkRecord

	Signals []domain.SignalRecord

	Result domain.BacktestResult
}
