package services

import (
	"context"
	"log/slog"
	"sync"

	apperrors "stockstrider/internal/errors"
	"stockstrider/internal/infrastructure"
	"stockstrider/internal/pipeline"
	"stockstrider/pkg/contracts/events"
)

// PipelineRunner is the part of the pipeline the run service drives.
type PipelineRunner interface {
	Run(ctx context.Context) (*pipeline.State, error)
	Snapshot() events.RunSnapshot
}

// RunService triggers pipeline runs and reports their status. At most one
// run is active at a time; concurrent triggers are rejected with a conflict
// error rather than queued.
type RunService struct {
	runner PipelineRunner
	logger *slog.Logger

	mu     sync.Mutex
	active bool
}

// NewRunService creates a run service around the given runner.
func NewRunService(runner PipelineRunner, logger *slog.Logger) *RunService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunService{
		runner: runner,
		logger: logger.With(slog.String("component", "services.run")),
	}
}

// Trigger starts a pipeline run in the background and returns its run ID.
// The run outlives the triggering request; progress is observable through
// Status and the snapshot broadcasts.
func (s *RunService) Trigger(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return "", apperrors.NewConflictError("a pipeline run is already active")
	}
	s.active = true

	runCtx, runID := infrastructure.ContextWithRunID(context.Background())
	s.logger.InfoContext(ctx, "pipeline run triggered", slog.String("run_id", runID))

	go func() {
		defer func() {
			s.mu.Lock()
			s.active = false
			s.mu.Unlock()
		}()

		if _, err := s.runner.Run(runCtx); err != nil {
			s.logger.Error("pipeline run failed",
				slog.String("run_id", runID),
				slog.String("error", err.Error()))
		}
	}()

	return runID, nil
}

// Active reports whether a run is currently executing.
func (s *RunService) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Status returns the snapshot of the most recent run.
func (s *RunService) Status(ctx context.Context) events.RunSnapshot {
	return s.runner.Snapshot()
}
