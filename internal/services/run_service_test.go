package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "stockstrider/internal/errors"
	"stockstrider/internal/infrastructure"
	"stockstrider/internal/pipeline"
	"stockstrider/pkg/contracts/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubRunner blocks in Run until released, standing in for a slow pipeline.
type stubRunner struct {
	release  chan struct{}
	err      error
	snapshot events.RunSnapshot

	mu       sync.Mutex
	calls    int
	gotRunID string
}

func (r *stubRunner) Run(ctx context.Context) (*pipeline.State, error) {
	r.mu.Lock()
	r.calls++
	r.gotRunID = infrastructure.GetRunID(ctx)
	r.mu.Unlock()

	if r.release != nil {
		<-r.release
	}
	if r.err != nil {
		return nil, r.err
	}
	return &pipeline.State{}, nil
}

func (r *stubRunner) Snapshot() events.RunSnapshot { return r.snapshot }

func (r *stubRunner) stats() (int, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls, r.gotRunID
}

func waitForActive(t *testing.T, svc *RunService, want bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if svc.Active() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("service never reached active=%v", want)
}

func TestRunServiceSingleFlight(t *testing.T) {
	runner := &stubRunner{release: make(chan struct{})}
	svc := NewRunService(runner, testLogger())

	runID, err := svc.Trigger(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, runID)
	assert.True(t, svc.Active())

	_, err = svc.Trigger(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.ErrKindConflict))

	close(runner.release)
	waitForActive(t, svc, false)

	calls, gotRunID := runner.stats()
	assert.Equal(t, 1, calls)
	assert.Equal(t, runID, gotRunID, "runner must see the run ID handed to the caller")

	secondID, err := svc.Trigger(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, runID, secondID)
	waitForActive(t, svc, false)
}

func TestRunServiceFailedRunReleasesSlot(t *testing.T) {
	runner := &stubRunner{err: errors.New("preprocess stage: boom")}
	svc := NewRunService(runner, testLogger())

	_, err := svc.Trigger(context.Background())
	require.NoError(t, err)
	waitForActive(t, svc, false)

	_, err = svc.Trigger(context.Background())
	require.NoError(t, err)
	waitForActive(t, svc, false)

	calls, _ := runner.stats()
	assert.Equal(t, 2, calls)
}

func TestRunServiceStatus(t *testing.T) {
	runner := &stubRunner{snapshot: events.RunSnapshot{
		RunID:    "run-42",
		Status:   events.StatusCompleted,
		Progress: 100,
	}}
	svc := NewRunService(runner, testLogger())

	snap := svc.Status(context.Background())
	assert.Equal(t, "run-42", snap.RunID)
	assert.Equal(t, events.StatusCompleted, snap.Status)
}
