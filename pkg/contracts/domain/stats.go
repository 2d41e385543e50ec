package domain

// OptimizeStats reports the effect of narrowing a table's numeric columns.
type OptimizeStats struct {
	BytesBefore     int64   `json:"bytes_before"`
	BytesAfter      int64   `json:"bytes_after"`
	ColumnsNarrowed int     `json:"columns_narrowed"`
	ReductionPct    float64 `json:"reduction_pct"`
}

// PreprocessStats reports what the preprocessor did to the stock table.
// The counts feed the run log and the run snapshot; none of them is an
// error by itself.
type PreprocessStats struct {
	RawRows           int `json:"raw_rows"`
	Tickers           int `json:"tickers"`
	MonthlyPoints     int `json:"monthly_points"`
	PricesOutOfBounds int `json:"prices_out_of_bounds"`
	OutliersDetected  int `json:"outliers_detected"`
	OutliersCorrected int `json:"outliers_corrected"`
	MonthsFilled      int `json:"months_filled"`
	LeadingGapMonths  int `json:"leading_gap_months"`
	BoundaryRows      int `json:"boundary_rows"`
	OutputRows        int `json:"output_rows"`
	ResidualMissing   int `json:"residual_missing"`
}
