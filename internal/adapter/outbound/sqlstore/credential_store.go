package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/Microck/bansho/internal/domain/auth"
)

// CredentialStore implements auth.Store over the api_keys table.
type CredentialStore struct {
	db *DB
}

// NewCredentialStore creates a CredentialStore backed by db.
func NewCredentialStore(db *DB) *CredentialStore {
	return &CredentialStore{db: db}
}

func (s *CredentialStore) Insert(ctx context.Context, key auth.ApiKey) error {
	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO api_keys (id, key_hash, role, created_at) VALUES (?, ?, ?, ?)`,
		key.ID, key.KeyHash, string(key.Role), nowOrDefault(key.CreatedAt),
	)
	return err
}

func (s *CredentialStore) ActiveKeys(ctx context.Context) ([]auth.ApiKey, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, key_hash, role, created_at, revoked_at FROM api_keys WHERE revoked_at IS NULL`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanApiKeys(rows)
}

func (s *CredentialStore) Revoke(ctx context.Context, id string) (bool, error) {
	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE api_keys SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *CredentialStore) List(ctx context.Context) ([]auth.ApiKey, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, key_hash, role, created_at, revoked_at FROM api_keys ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanApiKeys(rows)
}

func scanApiKeys(rows *sql.Rows) ([]auth.ApiKey, error) {
	var out []auth.ApiKey
	for rows.Next() {
		var (
			k         auth.ApiKey
			role      string
			createdAt time.Time
			revokedAt sql.NullTime
		)
		if err := rows.Scan(&k.ID, &k.KeyHash, &role, &createdAt, &revokedAt); err != nil {
			return nil, err
		}
		k.Role = auth.Role(role)
		k.CreatedAt = createdAt
		if revokedAt.Valid {
			t := revokedAt.Time
			k.RevokedAt = &t
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nowOrDefault(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
