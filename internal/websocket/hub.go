// Package websocket pushes pipeline run snapshots to results-viewer clients.
// Every message is a full snapshot, so clients render statelessly and a
// late-joining client only needs the most recent one.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"stockstrider/pkg/contracts/events"
)

// Hub tracks connected clients and fans run snapshots out to them. Clients
// that cannot keep up are dropped rather than allowed to stall the pipeline.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	stopOnce   sync.Once

	mu           sync.RWMutex
	running      bool
	lastSnapshot []byte

	logger *slog.Logger
}

// NewHub creates a hub. Call Start before serving connections.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Start launches the hub loop. Calling Start twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

// Shutdown stops the hub loop and disconnects every client. Terminal; the
// hub cannot be restarted.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// BroadcastSnapshot publishes a run snapshot to every connected client. The
// latest snapshot is retained so clients that connect later still receive it.
func (h *Hub) BroadcastSnapshot(snapshot events.RunSnapshot) {
	message := events.WebSocketMessage{
		ID:        uuid.New().String(),
		Type:      events.MessageTypeRunSnapshot,
		Timestamp: time.Now().UTC(),
		Data:      snapshot,
	}
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("marshal run snapshot",
			slog.String("run_id", snapshot.RunID),
			slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	h.lastSnapshot = data
	h.mu.Unlock()

	// Each snapshot carries the full run state, so the next broadcast
	// supersedes a dropped one.
	select {
	case h.broadcast <- data:
	default:
		h.logger.Debug("broadcast buffer full, snapshot dropped",
			slog.String("run_id", snapshot.RunID))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) run() {
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			last := h.lastSnapshot
			h.mu.Unlock()

			if last != nil {
				select {
				case client.send <- last:
				default:
				}
			}
			h.logger.Info("client connected",
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("clients", count))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.Info("client disconnected",
				slog.String("client_id", client.id),
				slog.Duration("connected", time.Since(client.connectedAt)),
				slog.Int("clients", count))

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					delete(h.clients, client)
					close(client.send)
					h.logger.Warn("dropping slow client",
						slog.String("client_id", client.id))
				}
			}
			h.mu.Unlock()
		}
	}
}
