package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockstrider/internal/config"
	"stockstrider/internal/infrastructure"
	"stockstrider/internal/middleware"
	"stockstrider/internal/pipeline"
	"stockstrider/internal/services"
	handlers "stockstrider/internal/transport/http"
	ws "stockstrider/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// Version is reported by the health endpoint and the startup log.
const Version = infrastructure.ServiceVersion

// Application holds the assembled results viewer.
type Application struct {
	Config         *config.Config
	Logger         *slog.Logger
	Router         *chi.Mux
	Server         *http.Server
	Hub            *ws.Hub
	Runner         *pipeline.Runner
	RunService     *services.RunService
	ResultsService *services.ResultsService
	Metrics        *infrastructure.PipelineMetrics
	OTelProviders  *infrastructure.OTelProviders
}

// New assembles the viewer from a loaded configuration: OpenTelemetry,
// the WebSocket hub, the pipeline runner, services, handlers, router, and
// the HTTP server. A nil logger falls back to slog.Default.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("initialize opentelemetry: %w", err)
	}

	var metrics *infrastructure.PipelineMetrics
	if otelProviders.Meter != nil {
		metrics, err = infrastructure.CreatePipelineMetrics(otelProviders.Meter)
		if err != nil {
			return nil, fmt.Errorf("create metric instruments: %w", err)
		}
		if err := infrastructure.RegisterRuntimeMetrics(otelProviders.Meter, time.Now()); err != nil {
			return nil, fmt.Errorf("register runtime metrics: %w", err)
		}
	}

	hub := ws.NewHub(logger)
	runner := pipeline.NewRunner(cfg, logger, metrics, hub)

	app := &Application{
		Config:         cfg,
		Logger:         logger,
		Hub:            hub,
		Runner:         runner,
		RunService:     services.NewRunService(runner, logger),
		ResultsService: services.NewResultsService(cfg.Paths, logger),
		Metrics:        metrics,
		OTelProviders:  otelProviders,
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// setupRouter configures the HTTP router with all routes.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Only middleware that leaves the ResponseWriter unwrapped may run
	// ahead of the WebSocket route; wrappers break the upgrade hijack.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	wsHandler := handlers.NewWebSocketHandler(a.Hub, a.Logger)
	r.Get("/ws", wsHandler.ServeHTTP)

	// Prometheus scrapes stay outside the middleware group.
	if a.OTelProviders != nil && a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.HTTPMetrics(a.Metrics))
		r.Use(middleware.StructuredLogger(a.Logger))
		r.Use(middleware.Recoverer(a.Logger))
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.Compress(5))
		r.Use(middleware.NewRateLimiter(a.Config.Server.RateLimit, a.Config.Server.RateBurst, a.Logger).Handler)

		a.setupAPIRoutes(r)
		a.setupResultsFiles(r)
	})

	a.Router = r
}

// setupAPIRoutes configures the JSON API endpoints.
func (a *Application) setupAPIRoutes(r chi.Router) {
	runHandler := handlers.NewRunHandler(a.RunService, a.Logger)
	resultsHandler := handlers.NewResultsHandler(a.ResultsService, a.Logger)
	healthHandler := handlers.NewHealthHandler(Version)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(middleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		r.Get("/healthz", healthHandler.Healthz)
		r.Get("/outliers", resultsHandler.Outliers)
		r.Mount("/run", runHandler.Routes())
		r.Mount("/results", resultsHandler.Routes())
	})
}

// setupResultsFiles serves the artifacts tree directly so the PnL plot and
// the intermediate CSV tables can be fetched as files.
func (a *Application) setupResultsFiles(r chi.Router) {
	fileServer := http.FileServer(http.Dir(a.Config.Paths.ResultsDir))
	r.Route("/results", func(r chi.Router) {
		r.Handle("/*", http.StripPrefix("/results", fileServer))
	})
}

// createServer creates the HTTP server.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
}

// Start launches the hub and the HTTP listener. A listener failure cancels
// the supplied context so Run can unwind.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "results viewer starting",
		slog.String("version", Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("data_dir", a.Config.Paths.DataDir),
		slog.String("results_dir", a.Config.Paths.ResultsDir))

	a.Hub.Start()

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "results viewer started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))

	return nil
}

// Stop gracefully stops the application.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down results viewer")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	a.Hub.Shutdown()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "opentelemetry shutdown", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "results viewer stopped")
	return nil
}

// Run starts the viewer and blocks until an interrupt arrives or the
// listener fails, then shuts down gracefully.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "interrupt received")
	case <-ctx.Done():
	}

	// The run context may already be cancelled; shutdown gets its own.
	return a.Stop(context.Background())
}
