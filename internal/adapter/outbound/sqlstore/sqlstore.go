// Package sqlstore implements the persistence adapters for C1 (credential
// store) and C6 (audit writer) over database/sql, using the pure-Go
// modernc.org/sqlite driver so the module runs without CGO or an external
// Postgres server. The schema mirrors spec §6's relational tables.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS api_keys (
	id         TEXT PRIMARY KEY,
	key_hash   TEXT NOT NULL UNIQUE,
	role       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	revoked_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS audit_events (
	id             TEXT PRIMARY KEY,
	ts             TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	api_key_id     TEXT REFERENCES api_keys(id) ON DELETE SET NULL,
	role           TEXT NOT NULL DEFAULT 'unknown',
	method         TEXT NOT NULL,
	tool_name      TEXT NOT NULL,
	request_json   TEXT NOT NULL DEFAULT '{}',
	response_json  TEXT NOT NULL DEFAULT '{}',
	decision       TEXT NOT NULL DEFAULT '{}',
	status_code    INTEGER NOT NULL,
	latency_ms     INTEGER NOT NULL CHECK (latency_ms >= 0)
);

CREATE INDEX IF NOT EXISTS idx_audit_events_ts ON audit_events(ts DESC);
`

// DB wraps a single *sql.DB, opened and migrated by Open. Open is called
// eagerly at startup (internal/service.New, or the keys command); there is
// no lazy first-use initialization and no mutex around it.
type DB struct {
	conn *sql.DB
}

// Open opens dsn (a sqlite file path, or ":memory:") and applies the schema.
// dsn is typically sourced from POSTGRES_DSN for env-var parity with spec
// §6, but is interpreted here as a sqlite DSN — see DESIGN.md.
func Open(ctx context.Context, dsn string) (*DB, error) {
	if dsn == "" {
		dsn = "bansho.db"
	}
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}
	conn.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; avoid SQLITE_BUSY

	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn exposes the underlying *sql.DB for adapters in this package.
func (d *DB) Conn() *sql.DB {
	return d.conn
}
