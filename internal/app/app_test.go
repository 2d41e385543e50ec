package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockstrider/internal/config"
	"stockstrider/pkg/contracts/domain"
	"stockstrider/pkg/contracts/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeRunFixture writes sixteen months of prices for two tickers plus the
// matching index series, enough for three backtested months.
func writeRunFixture(t *testing.T, dataDir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dataDir, 0o755))

	var stock strings.Builder
	stock.WriteString("Date,Ticker,Price\n")
	var index strings.Builder
	index.WriteString("Date,Adjusted Close\n")

	for i := 0; i < 16; i++ {
		monthEnd := time.Date(2001, time.Month(i)+2, 0, 0, 0, 0, 0, time.UTC)
		date := monthEnd.Format("2006-01-02")
		fmt.Fprintf(&stock, "%s,AAA,%.2f\n", date, 10.0+0.1*float64(i))
		fmt.Fprintf(&stock, "%s,BBB,%.2f\n", date, 20.0-0.1*float64(i))
		fmt.Fprintf(&index, "%s,%.2f\n", date, 1000.0+5.0*float64(i))
	}

	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "stock_prices.csv"), []byte(stock.String()), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "sp500.csv"), []byte(index.String()), 0o644))
}

// newTestApp assembles an application against the given directories with
// metric export disabled so the global prometheus registry stays untouched.
func newTestApp(t *testing.T, dataDir, resultsDir string) *Application {
	t.Helper()
	t.Setenv("STRIDER_PATHS_DATA_DIR", dataDir)
	t.Setenv("STRIDER_PATHS_RESULTS_DIR", resultsDir)
	t.Setenv("OTEL_METRICS_EXPORTER", "none")

	cfg, err := config.Load("")
	require.NoError(t, err)

	application, err := New(cfg, testLogger())
	require.NoError(t, err)
	return application
}

func tempDirs(t *testing.T) (string, string) {
	t.Helper()
	tmp := t.TempDir()
	return filepath.Join(tmp, "data"), filepath.Join(tmp, "results")
}

func TestNewWiresComponents(t *testing.T) {
	dataDir, resultsDir := tempDirs(t)
	application := newTestApp(t, dataDir, resultsDir)

	assert.NotNil(t, application.Router)
	assert.NotNil(t, application.Server)
	assert.NotNil(t, application.Hub)
	assert.NotNil(t, application.Runner)
	assert.NotNil(t, application.RunService)
	assert.NotNil(t, application.ResultsService)

	assert.Equal(t, fmt.Sprintf(":%d", application.Config.Server.Port), application.Server.Addr)
	assert.Equal(t, application.Config.Server.ReadTimeout, application.Server.ReadTimeout)
	assert.Equal(t, application.Config.Server.WriteTimeout, application.Server.WriteTimeout)
}

func TestNewRejectsNilConfig(t *testing.T) {
	_, err := New(nil, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration is nil")
}

func TestHealthzRoute(t *testing.T) {
	dataDir, resultsDir := tempDirs(t)
	application := newTestApp(t, dataDir, resultsDir)

	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, Version, body["version"])
	assert.Contains(t, body, "uptime")
}

func TestRunStatusRouteBeforeFirstRun(t *testing.T) {
	dataDir, resultsDir := tempDirs(t)
	application := newTestApp(t, dataDir, resultsDir)

	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/run/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot events.RunSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, events.StatusPending, snapshot.Status)
	assert.Len(t, snapshot.Stages, 6)
}

func TestResultsRouteBeforeFirstRun(t *testing.T) {
	dataDir, resultsDir := tempDirs(t)
	application := newTestApp(t, dataDir, resultsDir)

	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/results", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
	assert.Contains(t, rec.Body.String(), "/errors/not-found")
}

func TestOutliersRoute(t *testing.T) {
	dataDir, resultsDir := tempDirs(t)
	application := newTestApp(t, dataDir, resultsDir)

	require.NoError(t, os.MkdirAll(resultsDir, 0o755))
	outliers := "BBB,2001-02-28,1000.00\nAAA,2001-03-31,12.50\n"
	require.NoError(t, os.WriteFile(filepath.Join(resultsDir, "outliers.txt"), []byte(outliers), 0o644))

	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/outliers", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
}

func TestStaticResultsRoute(t *testing.T) {
	dataDir, resultsDir := tempDirs(t)
	application := newTestApp(t, dataDir, resultsDir)

	require.NoError(t, os.MkdirAll(resultsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(resultsDir, "backtest.csv"), []byte("month,count\n"), 0o644))

	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results/backtest.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "month,count")

	rec = httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results/missing.csv", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimiterGuardsRoutes(t *testing.T) {
	dataDir, resultsDir := tempDirs(t)
	application := newTestApp(t, dataDir, resultsDir)

	var ok, limited int
	for i := 0; i < application.Config.Server.RateBurst+5; i++ {
		rec := httptest.NewRecorder()
		application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
		switch rec.Code {
		case http.StatusOK:
			ok++
		case http.StatusTooManyRequests:
			limited++
		default:
			t.Fatalf("unexpected status %d", rec.Code)
		}
	}

	assert.GreaterOrEqual(t, ok, application.Config.Server.RateBurst)
	assert.Greater(t, limited, 0)
}

func TestMetricsRoute(t *testing.T) {
	dataDir, resultsDir := tempDirs(t)
	t.Setenv("STRIDER_PATHS_DATA_DIR", dataDir)
	t.Setenv("STRIDER_PATHS_RESULTS_DIR", resultsDir)
	t.Setenv("OTEL_METRICS_EXPORTER", "prometheus")

	cfg, err := config.Load("")
	require.NoError(t, err)

	application, err := New(cfg, testLogger())
	require.NoError(t, err)
	require.NotNil(t, application.Metrics)

	// One request through the instrumented group so the counters have data.
	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestApplicationStop(t *testing.T) {
	dataDir, resultsDir := tempDirs(t)
	application := newTestApp(t, dataDir, resultsDir)
	application.Hub.Start()

	require.NoError(t, application.Stop(context.Background()))
}

// TestFullRunOverHTTP drives a complete pipeline run through the public
// surface: trigger over the API, watch snapshots over the WebSocket, then
// read the results endpoints and the static artifacts.
func TestFullRunOverHTTP(t *testing.T) {
	dataDir, resultsDir := tempDirs(t)
	writeRunFixture(t, dataDir)
	application := newTestApp(t, dataDir, resultsDir)
	application.Hub.Start()
	defer application.Hub.Shutdown()

	srv := httptest.NewServer(application.Router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := gws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// The hub registers asynchronously; wait so no snapshot is missed.
	deadline := time.Now().Add(2 * time.Second)
	for application.Hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("websocket client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	triggerResp, err := srv.Client().Post(srv.URL+"/api/run", "application/json", nil)
	require.NoError(t, err)
	defer triggerResp.Body.Close()
	require.Equal(t, http.StatusAccepted, triggerResp.StatusCode)

	var triggerBody struct {
		RunID  string `json:"run_id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(triggerResp.Body).Decode(&triggerBody))
	assert.NotEmpty(t, triggerBody.RunID)
	assert.Equal(t, "accepted", triggerBody.Status)

	// Read snapshots until the run completes.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(15*time.Second)))
	var seen int
	var final events.RunSnapshot
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)

		var envelope struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &envelope))
		if envelope.Type != string(events.MessageTypeRunSnapshot) {
			continue
		}

		var snapshot events.RunSnapshot
		require.NoError(t, json.Unmarshal(envelope.Data, &snapshot))
		seen++

		if snapshot.Status == events.StatusCompleted || snapshot.Status == events.StatusFailed {
			final = snapshot
			break
		}
	}

	require.Equal(t, events.StatusCompleted, final.Status, "run error: %s", final.Error)
	assert.Equal(t, triggerBody.RunID, final.RunID)
	assert.Equal(t, 100, final.Progress)
	assert.GreaterOrEqual(t, seen, 2)

	t.Run("status endpoint reports completion", func(t *testing.T) {
		statusResp, err := srv.Client().Get(srv.URL + "/api/run/status")
		require.NoError(t, err)
		defer statusResp.Body.Close()
		require.Equal(t, http.StatusOK, statusResp.StatusCode)

		var snapshot events.RunSnapshot
		require.NoError(t, json.NewDecoder(statusResp.Body).Decode(&snapshot))
		assert.Equal(t, events.StatusCompleted, snapshot.Status)
	})

	t.Run("results endpoints serve the run output", func(t *testing.T) {
		seriesResp, err := srv.Client().Get(srv.URL + "/api/results")
		require.NoError(t, err)
		defer seriesResp.Body.Close()
		require.Equal(t, http.StatusOK, seriesResp.StatusCode)

		var series struct {
			Months []domain.MonthlyResult `json:"months"`
			Count  int                    `json:"count"`
		}
		require.NoError(t, json.NewDecoder(seriesResp.Body).Decode(&series))
		assert.Equal(t, 3, series.Count)
		assert.Len(t, series.Months, 3)

		summaryResp, err := srv.Client().Get(srv.URL + "/api/results/summary")
		require.NoError(t, err)
		defer summaryResp.Body.Close()
		assert.Equal(t, http.StatusOK, summaryResp.StatusCode)
	})

	t.Run("plot artifact served statically", func(t *testing.T) {
		plotResp, err := srv.Client().Get(srv.URL + "/results/plots/w1_weekend_plot_pnl.png")
		require.NoError(t, err)
		defer plotResp.Body.Close()
		assert.Equal(t, http.StatusOK, plotResp.StatusCode)
	})
}
