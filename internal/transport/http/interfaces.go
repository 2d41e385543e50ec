package http

import (
	"context"

	"stockstrider/internal/services"
	"stockstrider/pkg/contracts/domain"
	"stockstrider/pkg/contracts/events"
)

// RunService is the run-lifecycle surface the run handler needs.
type RunService interface {
	Trigger(ctx context.Context) (string, error)
	Status(ctx context.Context) events.RunSnapshot
}

// ResultsService is the artifact-reading surface the results handler needs.
type ResultsService interface {
	BacktestSeries(ctx context.Context) ([]domain.MonthlyResult, error)
	Summary(ctx context.Context) (*services.ResultsSummary, error)
	Outliers(ctx context.Context) ([]services.OutlierEntry, error)
	ReportText(ctx context.Context) (string, error)
}
