// v1
// internal/api/handlers_test.go
package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/riverbotics/aquafleet/internal/fleet"
	"github.com/riverbotics/aquafleet/internal/metrics"
	"github.com/riverbotics/aquafleet/internal/quality"
	"github.com/riverbotics/aquafleet/internal/report"
	"github.com/riverbotics/aquafleet/internal/robot"
	"github.com/riverbotics/aquafleet/internal/sensor"
	"github.com/riverbotics/aquafleet/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T) (*mux.Router, *fleet.Registry) {
	t.Helper()
	st, err := storage.New(t.TempDir(), 100, testLogger())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	model := quality.NewModel()
	factory := func(spec fleet.RiverSpec, nameFn func() string) *robot.Session {
		gen := sensor.NewGenerator(sensor.DefaultCalibration(), 1)
		return robot.NewSession(robot.Config{
			RobotID: spec.RobotID,
			RiverID: spec.ID,
			Tick:    10 * time.Millisecond,
		}, st, gen, model, nil, nil, nameFn, testLogger())
	}
	specs := []fleet.RiverSpec{
		{ID: "river1", RobotID: "robot-001", DefaultName: "River 1"},
		{ID: "river2", RobotID: "robot-002", DefaultName: "River 2"},
	}
	registry, err := fleet.NewRegistry(specs, "", factory, testLogger())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	h := NewHandlers(testLogger(), registry, report.NewFacade(registry), metrics.NewRegistry())
	return NewRouter(h), registry
}

func doJSON(t *testing.T, router *mux.Router, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var parsed map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
			t.Fatalf("%s %s: bad JSON body %q: %v", method, target, rec.Body.String(), err)
		}
	}
	return rec, parsed
}

func TestUnknownRiverIs404(t *testing.T) {
	router, _ := newTestRouter(t)
	for _, target := range []string{
		"/robot/status?river=riverX",
		"/water-quality/latest?river=riverX",
		"/dashboard/summary?river=riverX",
		"/download-report?river=riverX",
		"/download-report-pdf?river=riverX",
		"/data/export?river=riverX",
	} {
		rec, body := doJSON(t, router, http.MethodGet, target, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: code = %d, want 404", target, rec.Code)
		}
		if body["error"] != "River not found" {
			t.Fatalf("%s: body = %v", target, body)
		}
	}
}

func TestLatestEmptyShape(t *testing.T) {
	router, _ := newTestRouter(t)
	rec, body := doJSON(t, router, http.MethodGet, "/water-quality/latest?river=river1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if body["status"] != "ok" || body["count"] != float64(0) || body["total"] != float64(0) {
		t.Fatalf("body = %v", body)
	}
	if _, ok := body["data"].([]any); !ok {
		t.Fatalf("data is not an array: %T", body["data"])
	}
}

func TestAverageEmptyIs404(t *testing.T) {
	router, _ := newTestRouter(t)
	rec, body := doJSON(t, router, http.MethodGet, "/water-quality/average?river=river1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", rec.Code)
	}
	if body["error"] != "No data available" {
		t.Fatalf("body = %v", body)
	}
}

func TestStatusShape(t *testing.T) {
	router, _ := newTestRouter(t)
	rec, body := doJSON(t, router, http.MethodGet, "/robot/status?river=river1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if body["robot_id"] != "robot-001" || body["river_name"] != "River 1" {
		t.Fatalf("identity wrong: %v", body)
	}
	if body["is_running"] != false || body["state"] != robot.StateIdle {
		t.Fatalf("fresh session not idle: %v", body)
	}
}

func TestMissionFlow(t *testing.T) {
	router, registry := newTestRouter(t)

	rec, body := doJSON(t, router, http.MethodPost, "/robot/start?river=river1&duration=60", "")
	if rec.Code != http.StatusOK || body["status"] != robot.StartStarted {
		t.Fatalf("start: code=%d body=%v", rec.Code, body)
	}

	_, body = doJSON(t, router, http.MethodPost, "/robot/start?river=river1", "")
	if body["status"] != robot.StartAlreadyRunning {
		t.Fatalf("second start: %v", body)
	}

	// The other river is untouched.
	_, body = doJSON(t, router, http.MethodGet, "/robot/status?river=river2", "")
	if body["is_running"] != false {
		t.Fatalf("river2 running: %v", body)
	}

	// Give the acquisition loop a few ticks.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, body = doJSON(t, router, http.MethodGet, "/robot/status?river=river1", "")
		if body["data_points"].(float64) >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if body["data_points"].(float64) < 2 {
		t.Fatalf("no data acquired: %v", body)
	}

	rec, body = doJSON(t, router, http.MethodPost, "/robot/stop?river=river1", "")
	if rec.Code != http.StatusOK || body["status"] != robot.StopStopped {
		t.Fatalf("stop: code=%d body=%v", rec.Code, body)
	}

	s, _ := registry.Session("river1")
	waitIdle(t, s)

	_, body = doJSON(t, router, http.MethodPost, "/robot/stop?river=river1", "")
	if body["status"] != robot.StopNotRunning {
		t.Fatalf("stop when idle: %v", body)
	}

	_, body = doJSON(t, router, http.MethodGet, "/water-quality/latest?river=river1", "")
	if body["count"].(float64) < 2 {
		t.Fatalf("latest after mission: %v", body)
	}

	rec, body = doJSON(t, router, http.MethodPost, "/reset-river?river=river1", "")
	if rec.Code != http.StatusOK || body["status"] != "reset" {
		t.Fatalf("reset: code=%d body=%v", rec.Code, body)
	}
	_, body = doJSON(t, router, http.MethodGet, "/robot/status?river=river1", "")
	if body["data_points"] != float64(0) {
		t.Fatalf("data not cleared: %v", body)
	}
}

func waitIdle(t *testing.T, s *robot.Session) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !s.Status().IsRunning {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("session never idled")
}

func TestStartRejectsBadDuration(t *testing.T) {
	router, _ := newTestRouter(t)
	rec, _ := doJSON(t, router, http.MethodPost, "/robot/start?river=river1&duration=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}
	rec, _ = doJSON(t, router, http.MethodPost, "/robot/start?river=river1&duration=-5", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("negative duration: code = %d, want 400", rec.Code)
	}
}

func TestRenameFlow(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, body := doJSON(t, router, http.MethodPost, "/rename-river", `{"river":"river1","name":"Clearwater"}`)
	if rec.Code != http.StatusOK || body["status"] != "renamed" {
		t.Fatalf("rename: code=%d body=%v", rec.Code, body)
	}

	_, body = doJSON(t, router, http.MethodGet, "/river-names", "")
	rivers := body["rivers"].(map[string]any)
	if rivers["river1"] != "Clearwater" || rivers["river2"] != "River 2" {
		t.Fatalf("names = %v", rivers)
	}

	rec, _ = doJSON(t, router, http.MethodPost, "/rename-river", `{"river":"riverX","name":"Nope"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown river rename: code = %d", rec.Code)
	}
	rec, _ = doJSON(t, router, http.MethodPost, "/rename-river", `{"river":"river1","name":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank name rename: code = %d", rec.Code)
	}
	rec, _ = doJSON(t, router, http.MethodPost, "/rename-river", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad body rename: code = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)
	rec, body := doJSON(t, router, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if body["status"] != "healthy" || body["rivers"] != float64(2) {
		t.Fatalf("body = %v", body)
	}
}

func TestMetricsExposition(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "aquafleet_") {
		t.Fatalf("exposition missing counters: %q", rec.Body.String())
	}
}

func TestUnknownEndpointIsJSON404(t *testing.T) {
	router, _ := newTestRouter(t)
	rec, body := doJSON(t, router, http.MethodGet, "/no-such-endpoint", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d", rec.Code)
	}
	if body["error"] == nil {
		t.Fatalf("body = %v", body)
	}
}

func TestDashboardServed(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "AquaFleet Monitor") {
		t.Fatal("dashboard markup not served")
	}
}

func TestCORSHeaders(t *testing.T) {
	router, _ := newTestRouter(t)
	rec, _ := doJSON(t, router, http.MethodGet, "/health", "")
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}
}

func TestDownloadReports(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/download-report?river=river1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("csv code = %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("csv content type = %q", rec.Header().Get("Content-Type"))
	}
	if !strings.HasPrefix(rec.Body.String(), "timestamp,") {
		t.Fatalf("csv body = %q", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/download-report-pdf?river=river1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("pdf code = %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF-") {
		t.Fatal("pdf body missing magic")
	}
}
