package http

import (
	"log/slog"
	"net/http"

	"stockstrider/internal/infrastructure"
	"stockstrider/internal/middleware"
)

// renderError logs a handler error and writes its RFC 7807 problem response.
func renderError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	ctx := r.Context()
	logger.ErrorContext(ctx, "request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()))

	problem := middleware.ProblemFromError(err, infrastructure.GetTraceID(ctx))
	problem.Render(w, r)
}
