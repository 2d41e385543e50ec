// Package events contains the event contracts streamed to results-viewer
// clients over WebSocket while a pipeline run is in flight.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeRunSnapshot carries the full state of the active run and
	// is the primary event type; clients re-render from each snapshot.
	MessageTypeRunSnapshot MessageType = "run:snapshot"

	// Connection messages
	MessageTypeConnect    MessageType = "connect"
	MessageTypeDisconnect MessageType = "disconnect"
	MessageTypeError      MessageType = "error"
)

// Run and stage status values used in snapshots.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// WebSocketMessage is the envelope for every message sent to clients.
type WebSocketMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// RunSnapshot is the full state of one pipeline run. A snapshot is published
// after every stage transition, so a late-joining client needs no history.
type RunSnapshot struct {
	RunID        string          `json:"run_id"`
	Status       string          `json:"status"`
	Progress     int             `json:"progress"`
	CurrentStage string          `json:"current_stage,omitempty"`
	Stages       []StageSnapshot `json:"stages"`
	StartedAt    time.Time       `json:"started_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// StageSnapshot is the state of a single pipeline stage within a run.
type StageSnapshot struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Status   string         `json:"status"`
	Progress int            `json:"progress"`
	Message  string         `json:"message,omitempty"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
