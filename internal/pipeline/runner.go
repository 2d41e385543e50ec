package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"stockstrider/internal/backtest"
	"stockstrider/internal/chart"
	"stockstrider/internal/config"
	"stockstrider/internal/dataset"
	"stockstrider/internal/exporter"
	"stockstrider/internal/infrastructure"
	"stockstrider/internal/loader"
	"stockstrider/internal/preprocess"
	"stockstrider/internal/signal"
	"stockstrider/pkg/contracts/events"
)

// Broadcaster publishes run snapshots to connected clients. The runner
// tolerates a nil Broadcaster, which the batch CLI uses.
type Broadcaster interface {
	BroadcastSnapshot(snapshot events.RunSnapshot)
}

// Runner executes the pipeline stages sequentially and tracks the state of
// the active run.
type Runner struct {
	cfg         *config.Config
	logger      *slog.Logger
	metrics     *infrastructure.PipelineMetrics
	broadcaster Broadcaster
	stages      []Stage

	mu          sync.RWMutex
	runID       string
	status      string
	stageStates []*StageState
	current     string
	startedAt   time.Time
	completedAt *time.Time
	runErr      error
}

// NewRunner assembles the standard six-stage pipeline. Metrics and
// broadcaster may be nil.
func NewRunner(cfg *config.Config, logger *slog.Logger, metrics *infrastructure.PipelineMetrics, broadcaster Broadcaster) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	crisisStart, crisisEnd := cfg.CrisisWindow()
	stages := []Stage{
		&loadStage{loader: loader.New(logger), paths: cfg.Paths},
		&optimizeStage{optimizer: dataset.NewOptimizer(logger)},
		&preprocessStage{preprocessor: preprocess.New(preprocess.Options{
			PriceMin:    cfg.Pipeline.PriceMin,
			PriceMax:    cfg.Pipeline.PriceMax,
			ReturnUpper: cfg.Pipeline.ReturnUpper,
			ReturnLower: cfg.Pipeline.ReturnLower,
			CrisisStart: crisisStart,
			CrisisEnd:   crisisEnd,
		}, logger)},
		&signalStage{generator: signal.New(signal.Options{
			WindowMonths: cfg.Pipeline.WindowMonths,
			TopN:         cfg.Pipeline.TopN,
		}, logger)},
		&backtestStage{backtester: backtest.New(backtest.Options{
			NotionalPerName:   cfg.Pipeline.NotionalPerName,
			BenchmarkNotional: cfg.Pipeline.BenchmarkNotional,
		}, logger)},
		&reportStage{
			exporter:     exporter.New(cfg.Paths, logger),
			renderer:     chart.New(logger),
			paths:        cfg.Paths,
			outlierLimit: cfg.Pipeline.OutlierReportLimit,
		},
	}

	return &Runner{
		cfg:         cfg,
		logger:      logger.With(slog.String("component", "pipeline")),
		metrics:     metrics,
		broadcaster: broadcaster,
		stages:      stages,
		status:      events.StatusPending,
	}
}

// Stages returns the stage IDs in execution order.
func (r *Runner) Stages() []string {
	ids := make([]string, len(r.stages))
	for i, s := range r.stages {
		ids[i] = s.ID()
	}
	return ids
}

// Run executes all stages in order against a fresh State. It returns the
// final state on success; on failure the error of the failing stage is
// returned and no later stage runs.
func (r *Runner) Run(ctx context.Context) (*State, error) {
	runID := infrastructure.GetRunID(ctx)
	if runID == "" {
		ctx, runID = infrastructure.ContextWithRunID(ctx)
	}
	ctx = infrastructure.EnsureTraceID(ctx)
	start := time.Now()

	// With tracing disabled this is the no-op tracer and the spans cost
	// nothing.
	tracer := otel.Tracer(infrastructure.MeterName)
	ctx, runSpan := tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("run.id", runID)))
	defer runSpan.End()

	r.beginRun(runID, start)
	r.publishSnapshot()

	r.logger.InfoContext(ctx, "pipeline run started",
		slog.String("run_id", runID),
		slog.Int("stages", len(r.stages)))

	if err := r.cfg.Paths.EnsureDirectories(); err != nil {
		r.finishRun(err)
		r.publishSnapshot()
		return nil, err
	}

	state := &State{}
	for i, stage := range r.stages {
		if err := ctx.Err(); err != nil {
			err = fmt.Errorf("pipeline cancelled before %s: %w", stage.ID(), err)
			r.finishRun(err)
			r.publishSnapshot()
			return nil, err
		}

		stageState := r.stageStates[i]
		r.setCurrent(stage.ID())
		stageState.Start()
		r.publishSnapshot()

		r.logger.InfoContext(ctx, "stage started",
			slog.String("stage", stage.ID()),
			slog.String("name", stage.Name()))

		stageCtx, stageSpan := tracer.Start(ctx, "pipeline.stage."+stage.ID(),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(
				attribute.String("run.id", runID),
				attribute.String("stage.id", stage.ID())))

		err := stage.Run(stageCtx, state)
		infrastructure.RecordStageMetrics(ctx, r.metrics, stage.ID(), stageState.Duration(), err == nil)

		if err != nil {
			stageState.Fail(err)
			infrastructure.RecordError(stageCtx, err)
			stageSpan.End()
			r.logger.ErrorContext(ctx, "stage failed",
				slog.String("stage", stage.ID()),
				slog.String("error", err.Error()),
				slog.Duration("duration", stageState.Duration()))

			wrapped := fmt.Errorf("%s stage: %w", stage.ID(), err)
			infrastructure.RecordError(ctx, wrapped)
			r.finishRun(wrapped)
			r.publishSnapshot()
			infrastructure.RecordRunMetrics(ctx, r.metrics, runID, time.Since(start), false)
			return nil, wrapped
		}
		stageSpan.End()

		message, metadata := "", map[string]any(nil)
		if s, ok := stage.(summarizer); ok {
			message, metadata = s.Summary(state)
		}
		stageState.Complete(message, metadata)
		r.publishSnapshot()

		r.logger.InfoContext(ctx, "stage completed",
			slog.String("stage", stage.ID()),
			slog.Duration("duration", stageState.Duration()),
			slog.String("summary", message))
	}

	r.recordRunCounters(ctx, state)
	r.finishRun(nil)
	r.publishSnapshot()
	infrastructure.RecordRunMetrics(ctx, r.metrics, runID, time.Since(start), true)
	infrastructure.AddSpanEvent(ctx, "pipeline.completed", map[string]interface{}{
		"months_backtested":  len(state.Result.Months),
		"outliers_corrected": state.PreprocessStats.OutliersCorrected,
		"duration_seconds":   time.Since(start).Seconds(),
	})

	r.logger.InfoContext(ctx, "pipeline run completed",
		slog.String("run_id", runID),
		slog.Duration("duration", time.Since(start)))

	return state, nil
}

// recordRunCounters emits the per-run data volume and quality metrics.
func (r *Runner) recordRunCounters(ctx context.Context, state *State) {
	infrastructure.RecordRowsProcessed(ctx, r.metrics, StageIDPreprocess, int64(state.PreprocessStats.OutputRows))
	infrastructure.RecordRowsProcessed(ctx, r.metrics, StageIDSignal, int64(len(state.Signals)))
	infrastructure.RecordRowsProcessed(ctx, r.metrics, StageIDBacktest, int64(len(state.Result.Months)))
	infrastructure.RecordDataQuality(ctx, r.metrics,
		int64(state.PreprocessStats.OutliersCorrected),
		int64(state.PreprocessStats.MonthsFilled),
		state.OptimizeStats.BytesBefore-state.OptimizeStats.BytesAfter)
}

// beginRun resets the tracked run state.
func (r *Runner) beginRun(runID string, start time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runID = runID
	r.status = events.StatusRunning
	r.startedAt = start
	r.completedAt = nil
	r.runErr = nil
	r.current = ""
	r.stageStates = make([]*StageState, len(r.stages))
	for i, s := range r.stages {
		r.stageStates[i] = NewStageState(s.ID(), s.Name())
	}
}

// finishRun records the terminal status of the run.
func (r *Runner) finishRun(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.completedAt = &now
	r.current = ""
	r.runErr = err
	if err != nil {
		r.status = events.StatusFailed
	} else {
		r.status = events.StatusCompleted
	}
}

func (r *Runner) setCurrent(stageID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = stageID
}

// Snapshot renders the current run state for status queries and broadcasts.
func (r *Runner) Snapshot() events.RunSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := events.RunSnapshot{
		RunID:        r.runID,
		Status:       r.status,
		CurrentStage: r.current,
		StartedAt:    r.startedAt,
		UpdatedAt:    time.Now(),
		CompletedAt:  r.completedAt,
	}
	if r.runErr != nil {
		snap.Error = r.runErr.Error()
	}

	completed := 0
	snap.Stages = make([]events.StageSnapshot, len(r.stageStates))
	for i, s := range r.stageStates {
		snap.Stages[i] = s.Snapshot()
		if snap.Stages[i].Status == events.StatusCompleted {
			completed++
		}
	}
	if len(r.stageStates) > 0 {
		snap.Progress = 100 * completed / len(r.stageStates)
	}
	return snap
}

// publishSnapshot sends the current snapshot to the broadcaster, when one is
// attached.
func (r *Runner) publishSnapshot() {
	if r.broadcaster == nil {
		return
	}
	r.broadcaster.BroadcastSnapshot(r.Snapshot())
}
