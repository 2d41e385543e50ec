package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// RunHandler exposes pipeline run control.
type RunHandler struct {
	service RunService
	logger  *slog.Logger
}

// NewRunHandler creates a run handler.
func NewRunHandler(service RunService, logger *slog.Logger) *RunHandler {
	return &RunHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "run")),
	}
}

// Routes returns the run routes.
func (h *RunHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Post("/", h.Trigger)
	r.Get("/status", h.Status)
	return r
}

// Trigger handles POST /api/run. The run executes in the background; the
// response carries the run ID to watch for in status polls and snapshots.
func (h *RunHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	runID, err := h.service.Trigger(r.Context())
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]interface{}{
		"run_id":   runID,
		"status":   "accepted",
		"poll_url": "/api/run/status",
	})
}

// Status handles GET /api/run/status.
func (h *RunHandler) Status(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Status(r.Context()))
}
