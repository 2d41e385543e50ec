package infrastructure

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RegisterRuntimeMetrics exposes Go runtime health of the viewer process as
// observable gauges. Values are read lazily on each scrape rather than on a
// ticker, so an idle process costs nothing between scrapes.
func RegisterRuntimeMetrics(meter metric.Meter, startedAt time.Time) error {
	goroutines, err := meter.Int64ObservableGauge(
		"runtime_goroutines",
		metric.WithDescription("Number of live goroutines"),
	)
	if err != nil {
		return err
	}

	heapAlloc, err := meter.Int64ObservableGauge(
		"runtime_heap_alloc_bytes",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	heapSys, err := meter.Int64ObservableGauge(
		"runtime_heap_sys_bytes",
		metric.WithDescription("Bytes of heap memory obtained from the OS"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	gcCount, err := meter.Int64ObservableCounter(
		"runtime_gc_total",
		metric.WithDescription("Completed garbage collection cycles"),
	)
	if err != nil {
		return err
	}

	gcPause, err := meter.Float64ObservableGauge(
		"runtime_gc_last_pause_seconds",
		metric.WithDescription("Pause duration of the most recent garbage collection"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	uptime, err := meter.Float64ObservableGauge(
		"runtime_uptime_seconds",
		metric.WithDescription("Seconds since process start"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)

			o.ObserveInt64(goroutines, int64(runtime.NumGoroutine()))
			o.ObserveInt64(heapAlloc, int64(ms.HeapAlloc))
			o.ObserveInt64(heapSys, int64(ms.HeapSys))
			o.ObserveInt64(gcCount, int64(ms.NumGC))
			if ms.NumGC > 0 {
				o.ObserveFloat64(gcPause, time.Duration(ms.PauseNs[(ms.NumGC+255)%256]).Seconds())
			}
			o.ObserveFloat64(uptime, time.Since(startedAt).Seconds())
			return nil
		},
		goroutines, heapAlloc, heapSys, gcCount, gcPause, uptime,
	)
	return err
}
