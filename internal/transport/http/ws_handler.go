package http

import (
	"log/slog"
	"net/http"

	gws "github.com/gorilla/websocket"

	"stockstrider/internal/websocket"
)

// WebSocketHandler upgrades viewer connections and hands them to the hub.
type WebSocketHandler struct {
	hub      *websocket.Hub
	logger   *slog.Logger
	upgrader gws.Upgrader
}

// NewWebSocketHandler creates a websocket handler over the given hub.
func NewWebSocketHandler(hub *websocket.Hub, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		logger: logger.With(slog.String("handler", "websocket")),
		upgrader: gws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The viewer binds to localhost for a single operator.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP handles GET /ws.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its error response.
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()))
		return
	}

	websocket.ServeWS(h.hub, conn, h.logger)
}
