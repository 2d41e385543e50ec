package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "stockstrider/internal/errors"
)

// Problem represents an RFC 7807 problem details object.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Trace  string `json:"trace_id,omitempty"`
}

// Render writes the problem as an application/problem+json response.
func (p Problem) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	return json.NewEncoder(w).Encode(p)
}

// ProblemFromError maps an application error to its problem response. Errors
// outside the known taxonomy become opaque 500s; pipeline internals never
// leak to clients through those.
func ProblemFromError(err error, traceID string) Problem {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return ProblemFromStatus(http.StatusInternalServerError, "An unexpected error occurred", traceID)
	}

	switch appErr.Kind {
	case apperrors.ErrKindInput, apperrors.ErrKindParsing, apperrors.ErrKindValidation:
		return ProblemFromStatus(http.StatusBadRequest, err.Error(), traceID)
	case apperrors.ErrKindNotFound:
		return ProblemFromStatus(http.StatusNotFound, err.Error(), traceID)
	case apperrors.ErrKindConflict:
		return ProblemFromStatus(http.StatusConflict, err.Error(), traceID)
	case apperrors.ErrKindIntegrity, apperrors.ErrKindContract:
		return ProblemFromStatus(http.StatusUnprocessableEntity, err.Error(), traceID)
	default:
		return ProblemFromStatus(http.StatusInternalServerError, "An unexpected error occurred", traceID)
	}
}

// ProblemFromStatus creates a Problem from an HTTP status code.
func ProblemFromStatus(status int, detail string, traceID string) Problem {
	var title, problemType string

	switch status {
	case http.StatusBadRequest:
		title = "Bad Request"
		problemType = "/errors/bad-request"
	case http.StatusNotFound:
		title = "Not Found"
		problemType = "/errors/not-found"
	case http.StatusMethodNotAllowed:
		title = "Method Not Allowed"
		problemType = "/errors/method-not-allowed"
	case http.StatusConflict:
		title = "Conflict"
		problemType = "/errors/conflict"
	case http.StatusUnprocessableEntity:
		title = "Unprocessable Entity"
		problemType = "/errors/unprocessable-entity"
	case http.StatusTooManyRequests:
		title = "Too Many Requests"
		problemType = "/errors/rate-limit-exceeded"
	case http.StatusInternalServerError:
		title = "Internal Server Error"
		problemType = "/errors/internal-server-error"
	case http.StatusServiceUnavailable:
		title = "Service Unavailable"
		problemType = "/errors/service-unavailable"
	case http.StatusGatewayTimeout:
		title = "Gateway Timeout"
		problemType = "/errors/gateway-timeout"
	default:
		title = http.StatusText(status)
		problemType = "/errors/unknown"
	}

	return Problem{
		Type:   problemType,
		Title:  title,
		Status: status,
		Detail: detail,
		Trace:  traceID,
	}
}
