package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockstrider/pkg/contracts/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		ServeWS(hub, conn, testLogger())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialTestServer(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("hub never reached %d clients, have %d", want, hub.ClientCount())
}

func readSnapshot(t *testing.T, conn *websocket.Conn) (events.WebSocketMessage, events.RunSnapshot) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg events.WebSocketMessage
	require.NoError(t, json.Unmarshal(data, &msg))

	payload, err := json.Marshal(msg.Data)
	require.NoError(t, err)
	var snap events.RunSnapshot
	require.NoError(t, json.Unmarshal(payload, &snap))
	return msg, snap
}

func TestHubBroadcastSnapshot(t *testing.T) {
	hub := NewHub(testLogger())
	hub.Start()
	defer hub.Shutdown()

	srv := startTestServer(t, hub)
	conn := dialTestServer(t, srv)
	waitForClients(t, hub, 1)

	hub.BroadcastSnapshot(events.RunSnapshot{
		RunID:    "run-1",
		Status:   events.StatusRunning,
		Progress: 33,
	})

	msg, snap := readSnapshot(t, conn)
	assert.Equal(t, events.MessageTypeRunSnapshot, msg.Type)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "run-1", snap.RunID)
	assert.Equal(t, events.StatusRunning, snap.Status)
	assert.Equal(t, 33, snap.Progress)
}

func TestHubReplaysLatestSnapshotOnConnect(t *testing.T) {
	hub := NewHub(testLogger())
	hub.Start()
	defer hub.Shutdown()

	hub.BroadcastSnapshot(events.RunSnapshot{RunID: "run-1", Status: events.StatusRunning, Progress: 50})
	hub.BroadcastSnapshot(events.RunSnapshot{RunID: "run-1", Status: events.StatusCompleted, Progress: 100})

	srv := startTestServer(t, hub)
	conn := dialTestServer(t, srv)
	waitForClients(t, hub, 1)

	_, snap := readSnapshot(t, conn)
	assert.Equal(t, "run-1", snap.RunID)
	assert.Equal(t, events.StatusCompleted, snap.Status)
	assert.Equal(t, 100, snap.Progress)
}

func TestHubTracksDisconnects(t *testing.T) {
	hub := NewHub(testLogger())
	hub.Start()
	defer hub.Shutdown()

	srv := startTestServer(t, hub)
	conn := dialTestServer(t, srv)
	waitForClients(t, hub, 1)

	second := dialTestServer(t, srv)
	waitForClients(t, hub, 2)

	require.NoError(t, conn.Close())
	waitForClients(t, hub, 1)

	require.NoError(t, second.Close())
	waitForClients(t, hub, 0)
}

func TestHubBroadcastWithoutStartDoesNotBlock(t *testing.T) {
	hub := NewHub(testLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			hub.BroadcastSnapshot(events.RunSnapshot{RunID: "nobody-listening"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked with no hub loop running")
	}
	assert.Zero(t, hub.ClientCount())
}

func TestHubShutdownDisconnectsClients(t *testing.T) {
	hub := NewHub(testLogger())
	hub.Start()

	srv := startTestServer(t, hub)
	dialTestServer(t, srv)
	waitForClients(t, hub, 1)

	hub.Shutdown()
	waitForClients(t, hub, 0)

	// A second Shutdown must not panic.
	hub.Shutdown()
}
