// v2
// internal/api/handlers.go

// Package api exposes the fleet over HTTP: mission commands, water
// quality queries, report downloads and the embedded dashboard.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/riverbotics/aquafleet/internal/fleet"
	"github.com/riverbotics/aquafleet/internal/metrics"
	"github.com/riverbotics/aquafleet/internal/report"
	"github.com/riverbotics/aquafleet/internal/robot"
	"github.com/riverbotics/aquafleet/internal/storage"
)

// Handlers binds the HTTP surface to the fleet and reporting layers.
type Handlers struct {
	Log     *slog.Logger
	Fleet   *fleet.Registry
	Reports *report.Facade
	Metrics *metrics.Registry
}

// NewHandlers wires the handler set.
func NewHandlers(log *slog.Logger, fl *fleet.Registry, rep *report.Facade, met *metrics.Registry) *Handlers {
	return &Handlers{Log: log, Fleet: fl, Reports: rep, Metrics: met}
}

// riverParam resolves the river query parameter, defaulting to the first
// configured river so single-river deployments can omit it.
func (h *Handlers) riverParam(r *http.Request) string {
	river := strings.TrimSpace(r.URL.Query().Get("river"))
	if river == "" {
		if ids := h.Fleet.Rivers(); len(ids) > 0 {
			river = ids[0]
		}
	}
	return river
}

func (h *Handlers) session(w http.ResponseWriter, r *http.Request) (*robot.Session, string, bool) {
	river := h.riverParam(r)
	s, err := h.Fleet.Session(river)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "River not found"})
		return nil, river, false
	}
	return s, river, true
}

// Health reports liveness plus a coarse fleet overview.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	points := 0
	running := 0
	for _, id := range h.Fleet.Rivers() {
		s, err := h.Fleet.Session(id)
		if err != nil {
			continue
		}
		st := s.Status()
		points += st.DataPoints
		if st.IsRunning {
			running++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "healthy",
		"rivers":           len(h.Fleet.Rivers()),
		"running_missions": running,
		"data_points":      points,
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	})
}

// StartRobot launches a mission. Duration is given in seconds; absent or
// invalid values fall back to the session default.
func (h *Handlers) StartRobot(w http.ResponseWriter, r *http.Request) {
	s, river, ok := h.session(w, r)
	if !ok {
		return
	}
	var duration time.Duration
	if v := r.URL.Query().Get("duration"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "duration must be a positive number of seconds"})
			return
		}
		duration = time.Duration(secs) * time.Second
	}
	result := s.Start(duration)
	if result == robot.StartAlreadyRunning {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  result,
			"message": "Mission already in progress for " + h.Fleet.DisplayName(river),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  result,
		"message": "Mission started for " + h.Fleet.DisplayName(river),
	})
}

// StopRobot requests a mission stop.
func (h *Handlers) StopRobot(w http.ResponseWriter, r *http.Request) {
	s, river, ok := h.session(w, r)
	if !ok {
		return
	}
	result := s.Stop()
	msg := "Mission stopped for " + h.Fleet.DisplayName(river)
	if result == robot.StopNotRunning {
		msg = "No mission running for " + h.Fleet.DisplayName(river)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": result, "message": msg})
}

// RobotStatus returns the session snapshot.
func (h *Handlers) RobotStatus(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Status())
}

// ResetRiver clears a river's history, durable file included.
func (h *Handlers) ResetRiver(w http.ResponseWriter, r *http.Request) {
	s, river, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Reset(); err != nil {
		h.Log.Error("reset failed", "river", river, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "reset failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "reset",
		"message": "Data cleared for " + h.Fleet.DisplayName(river),
	})
}

// LatestReadings returns the most recent records for a river.
func (h *Handlers) LatestReadings(w http.ResponseWriter, r *http.Request) {
	river := h.riverParam(r)
	n := report.DefaultLatestCount
	if v := r.URL.Query().Get("count"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			n = parsed
		}
	}
	recs, total, err := h.Reports.Latest(river, n)
	if err != nil {
		h.notFoundOrError(w, river, err)
		return
	}
	if recs == nil {
		recs = []storage.Record{} // empty array, not null
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"count":  len(recs),
		"total":  total,
		"data":   recs,
	})
}

// AverageReadings returns rolling averages for a river.
func (h *Handlers) AverageReadings(w http.ResponseWriter, r *http.Request) {
	river := h.riverParam(r)
	avg, err := h.Reports.Average(river, report.AverageWindow)
	if err != nil {
		if errors.Is(err, report.ErrNoData) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "No data available"})
			return
		}
		h.notFoundOrError(w, river, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"samples":  avg.Samples,
		"averages": avg,
	})
}

// DashboardSummary returns the per-river dashboard view.
func (h *Handlers) DashboardSummary(w http.ResponseWriter, r *http.Request) {
	river := h.riverParam(r)
	summary, err := h.Reports.Summary(river)
	if err != nil {
		h.notFoundOrError(w, river, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// DownloadReportCSV streams the full history as a CSV attachment.
func (h *Handlers) DownloadReportCSV(w http.ResponseWriter, r *http.Request) {
	river := h.riverParam(r)
	if _, err := h.Fleet.Session(river); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "River not found"})
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_report.csv", river))
	if err := h.Reports.WriteCSV(w, river); err != nil {
		h.Log.Error("csv export failed", "river", river, "err", err)
	}
}

// DownloadReportPDF streams the mission report as a PDF attachment.
func (h *Handlers) DownloadReportPDF(w http.ResponseWriter, r *http.Request) {
	river := h.riverParam(r)
	if _, err := h.Fleet.Session(river); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "River not found"})
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_report.pdf", river))
	if err := h.Reports.WritePDF(w, river); err != nil {
		h.Log.Error("pdf export failed", "river", river, "err", err)
	}
}

// RiverNames lists the effective display name per river.
func (h *Handlers) RiverNames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"rivers": h.Fleet.Names(),
	})
}

// RenameRiver assigns a display name; body: {"river": "...", "name": "..."}.
func (h *Handlers) RenameRiver(w http.ResponseWriter, r *http.Request) {
	var body struct {
		River string `json:"river"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if err := h.Fleet.Rename(body.River, body.Name); err != nil {
		if errors.Is(err, fleet.ErrRiverNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "River not found"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "renamed",
		"message": body.River + " is now " + strings.TrimSpace(body.Name),
	})
}

// ExportData returns the full stored history for a river as JSON.
func (h *Handlers) ExportData(w http.ResponseWriter, r *http.Request) {
	river := h.riverParam(r)
	recs, err := h.Fleet.History(river)
	if err != nil {
		h.notFoundOrError(w, river, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"river":      river,
		"river_name": h.Fleet.DisplayName(river),
		"count":      len(recs),
		"readings":   recs,
	})
}

// MetricsText serves the counter exposition.
func (h *Handlers) MetricsText(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	h.Metrics.WriteText(w)
}

func (h *Handlers) notFoundOrError(w http.ResponseWriter, river string, err error) {
	if errors.Is(err, fleet.ErrRiverNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "River not found"})
		return
	}
	h.Log.Error("request failed", "river", river, "err", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
