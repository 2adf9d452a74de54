// v2
// internal/api/router.go
package api

import (
	"embed"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

//go:embed dashboard.html
var dashboardFS embed.FS

// NewRouter assembles the route table with CORS and panic recovery.
func NewRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware)
	r.Use(recoveryMiddleware(h.Log))

	r.HandleFunc("/", serveDashboard).Methods("GET")
	r.HandleFunc("/dashboard.html", serveDashboard).Methods("GET")
	r.HandleFunc("/health", h.Health).Methods("GET")

	r.HandleFunc("/robot/start", h.StartRobot).Methods("POST")
	r.HandleFunc("/robot/stop", h.StopRobot).Methods("POST")
	r.HandleFunc("/robot/status", h.RobotStatus).Methods("GET")
	r.HandleFunc("/reset-river", h.ResetRiver).Methods("POST")

	r.HandleFunc("/water-quality/latest", h.LatestReadings).Methods("GET")
	r.HandleFunc("/water-quality/average", h.AverageReadings).Methods("GET")
	r.HandleFunc("/dashboard/summary", h.DashboardSummary).Methods("GET")

	r.HandleFunc("/download-report", h.DownloadReportCSV).Methods("GET")
	r.HandleFunc("/download-report-pdf", h.DownloadReportPDF).Methods("GET")
	r.HandleFunc("/data/export", h.ExportData).Methods("GET")

	r.HandleFunc("/river-names", h.RiverNames).Methods("GET")
	r.HandleFunc("/rename-river", h.RenameRiver).Methods("POST")

	r.HandleFunc("/metrics", h.MetricsText).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "endpoint not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})
	return r
}

func serveDashboard(w http.ResponseWriter, r *http.Request) {
	b, err := dashboardFS.ReadFile("dashboard.html")
	if err != nil {
		http.Error(w, "dashboard unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(b)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func recoveryMiddleware(log *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("handler panic", "path", r.URL.Path, "panic", rec)
					writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
