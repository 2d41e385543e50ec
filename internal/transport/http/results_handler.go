package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// ResultsHandler serves the artifacts of the most recent completed run.
type ResultsHandler struct {
	service ResultsService
	logger  *slog.Logger
}

// NewResultsHandler creates a results handler.
func NewResultsHandler(service ResultsService, logger *slog.Logger) *ResultsHandler {
	return &ResultsHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "results")),
	}
}

// Routes returns the results routes.
func (h *ResultsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/", h.Series)
	r.Get("/summary", h.Summary)
	r.Get("/report", h.Report)
	return r
}

// Series handles GET /api/results.
func (h *ResultsHandler) Series(w http.ResponseWriter, r *http.Request) {
	months, err := h.service.BacktestSeries(r.Context())
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"months": months,
		"count":  len(months),
	})
}

// Summary handles GET /api/results/summary.
func (h *ResultsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, summary)
}

// Report handles GET /api/results/report, returning the plain-text report.
func (h *ResultsHandler) Report(w http.ResponseWriter, r *http.Request) {
	text, err := h.service.ReportText(r.Context())
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	render.PlainText(w, r, text)
}

// Outliers handles GET /api/outliers.
func (h *ResultsHandler) Outliers(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Outliers(r.Context())
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"outliers": entries,
		"count":    len(entries),
	})
}
