package pipeline

import (
	"context"
	"fmt"

	"stockstrider/internal/backtest"
	"stockstrider/internal/chart"
	"stockstrider/internal/config"
	"stockstrider/internal/dataset"
	"stockstrider/internal/exporter"
	"stockstrider/internal/loader"
	"stockstrider/internal/preprocess"
	"stockstrider/internal/signal"
	"stockstrider/pkg/contracts/domain"
)

// Stage identifiers, in execution order.
const (
	StageIDLoad       = "load"
	StageIDOptimize   = "optimize"
	StageIDPreprocess = "preprocess"
	StageIDSignal     = "signal"
	StageIDBacktest   = "backtest"
	StageIDReport     = "report"
)

// summarizer lets a stage decorate its completed snapshot.
type summarizer interface {
	Summary(state *State) (string, map[string]any)
}

type loadStage struct {
	loader *loader.Loader
	paths  config.PathsConfig
}

func (s *loadStage) ID() string   { return StageIDLoad }
func (s *loadStage) Name() string { return "Load input files" }

func (s *loadStage) Run(ctx context.Context, state *State) error {
	stockPath, err := loader.ResolveStockPath(s.paths.DataDir, s.paths.StockPath(), config.StockFileCandidates)
	if err != nil {
		return err
	}
	state.StockPath = stockPath
	state.IndexPath = s.paths.IndexPath()

	if state.StockTable, err = s.loader.LoadStockTable(ctx, state.StockPath); err != nil {
		return err
	}
	if state.IndexTable, err = s.loader.LoadIndexTable(ctx, state.IndexPath); err != nil {
		return err
	}
	return nil
}

func (s *loadStage) Summary(state *State) (string, map[string]any) {
	return fmt.Sprintf("loaded %d stock rows and %d index rows",
			state.StockTable.NumRows(), state.IndexTable.NumRows()),
		map[string]any{
			"stock_path": state.StockPath,
			"stock_rows": state.StockTable.NumRows(),
			"index_rows": state.IndexTable.NumRows(),
		}
}

type optimizeStage struct {
	optimizer *dataset.Optimizer
}

func (s *optimizeStage) ID() string   { return StageIDOptimize }
func (s *optimizeStage) Name() string { return "Narrow column types" }

func (s *optimizeStage) Run(ctx context.Context, state *State) error {
	var stockStats, indexStats domain.OptimizeStats

	state.StockTable, stockStats = s.optimizer.Optimize(ctx, state.StockTable)
	state.IndexTable, indexStats = s.optimizer.Optimize(ctx, state.IndexTable)

	combined := stockStats
	combined.BytesBefore += indexStats.BytesBefore
	combined.BytesAfter += indexStats.BytesAfter
	combined.ColumnsNarrowed += indexStats.ColumnsNarrowed
	if combined.BytesBefore > 0 {
		combined.ReductionPct = 100 * float64(combined.BytesBefore-combined.BytesAfter) / float64(combined.BytesBefore)
	}
	state.OptimizeStats = combined
	return nil
}

func (s *optimizeStage) Summary(state *State) (string, map[string]any) {
	st := state.OptimizeStats
	return fmt.Sprintf("narrowed %d columns, %d -> %d bytes", st.ColumnsNarrowed, st.BytesBefore, st.BytesAfter),
		map[string]any{
			"bytes_before":     st.BytesBefore,
			"bytes_after":      st.BytesAfter,
			"columns_narrowed": st.ColumnsNarrowed,
			"reduction_pct":    st.ReductionPct,
		}
}

type preprocessStage struct {
	preprocessor *preprocess.Preprocessor
}

func (s *preprocessStage) ID() string   { return StageIDPreprocess }
func (s *preprocessStage) Name() string { return "Preprocess monthly returns" }

func (s *preprocessStage) Run(ctx context.Context, state *State) error {
	var err error
	records := loader.StockRecords(state.StockTable)
	if state.Returns, state.Outliers, state.PreprocessStats, err = s.preprocessor.ProcessStocks(ctx, records); err != nil {
		return err
	}

	points := loader.IndexPoints(state.IndexTable)
	if state.Benchmark, err = s.preprocessor.ProcessIndex(ctx, points); err != nil {
		return err
	}
	return nil
}

func (s *preprocessStage) Summary(state *State) (string, map[string]any) {
	st := state.PreprocessStats
	return fmt.Sprintf("%d clean monthly rows from %d tickers", st.OutputRows, st.Tickers),
		map[string]any{
			"output_rows":        st.OutputRows,
			"tickers":            st.Tickers,
			"outliers_corrected": st.OutliersCorrected,
			"months_filled":      st.MonthsFilled,
			"benchmark_months":   len(state.Benchmark),
		}
}

type signalStage struct {
	generator *signal.Generator
}

func (s *signalStage) ID() string   { return StageIDSignal }
func (s *signalStage) Name() string { return "Generate selection signals" }

func (s *signalStage) Run(ctx context.Context, state *State) error {
	var err error
	state.Signals, err = s.generator.Generate(ctx, state.Returns)
	return err
}

func (s *signalStage) Summary(state *State) (string, map[string]any) {
	selected := 0
	for i := range state.Signals {
		if state.Signals[i].Selected {
			selected++
		}
	}
	return fmt.Sprintf("%d selections across %d rows", selected, len(state.Signals)),
		map[string]any{"rows": len(state.Signals), "selections": selected}
}

type backtestStage struct {
	backtester *backtest.Backtester
}

func (s *backtestStage) ID() string   { return StageIDBacktest }
func (s *backtestStage) Name() string { return "Backtest against benchmark" }

func (s *backtestStage) Run(ctx context.Context, state *State) error {
	var err error
	state.Result, err = s.backtester.Run(ctx, state.Signals, state.Benchmark)
	return err
}

func (s *backtestStage) Summary(state *State) (string, map[string]any) {
	return fmt.Sprintf("%d months backtested, strategy %.2f%% vs benchmark %.2f%%",
			len(state.Result.Months),
			state.Result.FinalStrategyReturn()*100,
			state.Result.FinalBenchmarkReturn()*100),
		map[string]any{
			"months":                 len(state.Result.Months),
			"months_skipped":         state.Result.MonthsSkipped,
			"strategy_total_return":  state.Result.FinalStrategyReturn(),
			"benchmark_total_return": state.Result.FinalBenchmarkReturn(),
		}
}

type reportStage struct {
	exporter     *exporter.Exporter
	renderer     *chart.Renderer
	paths        config.PathsConfig
	outlierLimit int
}

func (s *reportStage) ID() string   { return StageIDReport }
func (s *reportStage) Name() string { return "Write reports" }

func (s *reportStage) Run(ctx context.Context, state *State) error {
	if err := s.exporter.WriteOutliers(ctx, state.Outliers, s.outlierLimit); err != nil {
		return err
	}
	if err := s.exporter.WriteResultsReport(ctx, state.Result); err != nil {
		return err
	}
	if err := s.exporter.WriteMonthlyReturns(ctx, state.Returns); err != nil {
		return err
	}
	if err := s.exporter.WriteBenchmark(ctx, state.Benchmark); err != nil {
		return err
	}
	if err := s.exporter.WriteSignals(ctx, state.Signals); err != nil {
		return err
	}
	if err := s.exporter.WriteBacktest(ctx, state.Result); err != nil {
		return err
	}
	return s.renderer.RenderPnL(ctx, state.Result, s.paths.PlotPath())
}

func (s *reportStage) Summary(state *State) (string, map[string]any) {
	return fmt.Sprintf("artifacts written to %s", s.paths.ResultsDir),
		map[string]any{"results_dir": s.paths.ResultsDir}
}
