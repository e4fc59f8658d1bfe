// Package dashboard implements the stubbed, read-only operator view (spec
// §4.10): a fixed-size table of recent audit rows and a health check. It
// carries no authentication of its own — deployments front it with a
// reverse proxy or bind it to loopback (see DASHBOARD_HOST default).
package dashboard

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/Microck/bansho/internal/domain/audit"
)

const recentLimit = 100

// AuditReader is the narrow read port the dashboard depends on, satisfied
// by internal/adapter/outbound/sqlstore.AuditWriter.
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]audit.Event, error)
}

var pageTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head><title>banshogate</title></head>
<body>
<h1>Recent audit events</h1>
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Time</th><th>Role</th><th>Tool</th><th>Status</th><th>Latency (ms)</th></tr>
{{range .}}<tr><td>{{.Timestamp}}</td><td>{{.Role}}</td><td>{{.ToolName}}</td><td>{{.StatusCode}}</td><td>{{.LatencyMillis}}</td></tr>
{{end}}</table>
</body>
</html>`))

// Handler serves the dashboard's HTTP routes.
type Handler struct {
	reader AuditReader
	logger *slog.Logger
}

// New creates a Handler backed by reader.
func New(reader AuditReader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{reader: reader, logger: logger}
}

// Mux builds the http.ServeMux the dashboard listens on.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.serveIndex)
	mux.HandleFunc("/healthz", h.serveHealthz)
	return mux
}

func (h *Handler) serveIndex(w http.ResponseWriter, r *http.Request) {
	rows, err := h.reader.Recent(r.Context(), recentLimit)
	if err != nil {
		h.logger.Error("dashboard: recent audit query failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, rows); err != nil {
		h.logger.Error("dashboard: template render failed", "error", err)
	}
}

func (h *Handler) serveHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
