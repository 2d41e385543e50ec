// Package pipeline wires the stages into the sequential batch run and
// publishes a snapshot of the run after every stage transition.
package pipeline

import (
	"context"
	"sync"
	"time"

	"stockstrider/pkg/contracts/events"
)

// Stage is one step of the pipeline.
type Stage interface {
	// ID returns the stage's stable identifier.
	ID() string

	// Name returns the human-readable stage name.
	Name() string

	// Run executes the stage against the shared run state.
	Run(ctx context.Context, state *State) error
}

// StageState tracks one stage's runtime status within a run.
type StageState struct {
	mu        sync.RWMutex
	id        string
	name      string
	status    string
	message   string
	err       error
	metadata  map[string]any
	startTime time.Time
	endTime   time.Time
}

// NewStageState creates a pending stage state.
func NewStageState(id, name string) *StageState {
	return &StageState{
		id:     id,
		name:   name,
		status: events.StatusPending,
	}
}

// Start marks the stage running.
func (s *StageState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = events.StatusRunning
	s.startTime = time.Now()
}

// Complete marks the stage completed with an optional summary message and
// metadata for the snapshot.
func (s *StageState) Complete(message string, metadata map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = events.StatusCompleted
	s.message = message
	s.metadata = metadata
	s.endTime = time.Now()
}

// Fail marks the stage failed.
func (s *StageState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = events.StatusFailed
	s.err = err
	s.endTime = time.Now()
}

// Status returns the current status.
func (s *StageState) Status() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Duration returns how long the stage ran, or has been running.
func (s *StageState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.startTime.IsZero() {
		return 0
	}
	if s.endTime.IsZero() {
		return time.Since(s.startTime)
	}
	return s.endTime.Sub(s.startTime)
}

// Snapshot renders the stage state for clients.
func (s *StageState) Snapshot() events.StageSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := events.StageSnapshot{
		ID:       s.id,
		Name:     s.name,
		Status:   s.status,
		Message:  s.message,
		Metadata: s.metadata,
	}
	switch s.status {
	case events.StatusCompleted:
		snap.Progress = 100
	case events.StatusRunning:
		snap.Progress = 50
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	return snap
}
