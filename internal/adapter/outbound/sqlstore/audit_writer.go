package sqlstore

import (
	"context"
	"encoding/json"

	"github.com/Microck/bansho/internal/domain/audit"
)

// AuditWriter implements audit.Writer over the audit_events table.
type AuditWriter struct {
	db *DB
}

// NewAuditWriter creates an AuditWriter backed by db.
func NewAuditWriter(db *DB) *AuditWriter {
	return &AuditWriter{db: db}
}

// Write inserts one audit row. api_key_id is parsed to a nullable column: a
// nil ApiKeyID (e.g. a failed AUTHENTICATE) is stored as NULL.
func (w *AuditWriter) Write(ctx context.Context, ev audit.Event) error {
	decisionJSON, err := json.Marshal(ev.Decision)
	if err != nil {
		return err
	}

	var apiKeyID interface{}
	if ev.ApiKeyID != nil {
		apiKeyID = *ev.ApiKeyID
	}

	requestJSON := ev.RequestJSON
	if len(requestJSON) == 0 {
		requestJSON = []byte("{}")
	}
	responseJSON := ev.ResponseJSON
	if len(responseJSON) == 0 {
		responseJSON = []byte("{}")
	}

	_, err = w.db.conn.ExecContext(ctx,
		`INSERT INTO audit_events
			(id, ts, api_key_id, role, method, tool_name, request_json, response_json, decision, status_code, latency_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Timestamp.UTC(), apiKeyID, ev.Role, ev.Method, ev.ToolName,
		string(requestJSON), string(responseJSON), string(decisionJSON), ev.StatusCode, ev.LatencyMillis,
	)
	return err
}

// Recent returns up to limit audit rows, newest first. Used only by the
// read-only dashboard (spec §4.10); only the row metadata is read, and the
// decision/request/response JSON columns are not selected.
func (w *AuditWriter) Recent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := w.db.conn.QueryContext(ctx,
		`SELECT id, ts, api_key_id, role, method, tool_name, status_code, latency_ms
		 FROM audit_events ORDER BY ts DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var ev audit.Event
		var apiKeyID *string
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &apiKeyID, &ev.Role, &ev.Method, &ev.ToolName, &ev.StatusCode, &ev.LatencyMillis); err != nil {
			return nil, err
		}
		ev.ApiKeyID = apiKeyID
		out = append(out, ev)
	}
	return out, rows.Err()
}
