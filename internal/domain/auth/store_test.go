package auth

import (
	"context"
	"sync"
	"testing"
	"time"
)

// memStore is a minimal in-memory Store fake for exercising Service.
type memStore struct {
	mu   sync.Mutex
	rows map[string]ApiKey
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]ApiKey)}
}

func (m *memStore) Insert(ctx context.Context, key ApiKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key.CreatedAt = time.Now()
	m.rows[key.ID] = key
	return nil
}

func (m *memStore) ActiveKeys(ctx context.Context) ([]ApiKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ApiKey
	for _, k := range m.rows {
		if k.Active() {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *memStore) Revoke(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok || !row.Active() {
		return false, nil
	}
	now := time.Now()
	row.RevokedAt = &now
	m.rows[id] = row
	return true, nil
}

func (m *memStore) List(ctx context.Context) ([]ApiKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ApiKey
	for _, k := range m.rows {
		out = append(out, k)
	}
	return out, nil
}

func TestServiceCreateResolve(t *testing.T) {
	svc := NewService(newMemStore())
	plaintext, err := svc.Create(context.Background(), "key-1", RoleUser)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	key, ok, err := svc.Resolve(context.Background(), plaintext)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !ok {
		t.Fatalf("Resolve: ok = false, want true")
	}
	if key.ID != "key-1" || key.Role != RoleUser {
		t.Fatalf("Resolve returned %+v, want ID=key-1 Role=user", key)
	}
}

func TestServiceCreateDefaultsInvalidRole(t *testing.T) {
	svc := NewService(newMemStore())
	if _, err := svc.Create(context.Background(), "key-1", Role("bogus")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	keys, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 1 || keys[0].Role != RoleReadonly {
		t.Fatalf("Create with invalid role: got %+v, want a single readonly key", keys)
	}
}

func TestServiceResolveUnknownKeyFails(t *testing.T) {
	svc := NewService(newMemStore())
	if _, err := svc.Create(context.Background(), "key-1", RoleAdmin); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, ok, err := svc.Resolve(context.Background(), "bgt_not-a-real-key")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ok {
		t.Fatalf("Resolve(unknown) = ok:true, want false")
	}
}

func TestServiceResolveRevokedKeyFails(t *testing.T) {
	svc := NewService(newMemStore())
	plaintext, err := svc.Create(context.Background(), "key-1", RoleAdmin)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	revoked, err := svc.Revoke(context.Background(), "key-1")
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if !revoked {
		t.Fatalf("Revoke = false, want true")
	}

	_, ok, err := svc.Resolve(context.Background(), plaintext)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ok {
		t.Fatalf("Resolve(revoked key) = ok:true, want false")
	}
}

func TestServiceRevokeTwiceReturnsFalse(t *testing.T) {
	svc := NewService(newMemStore())
	if _, err := svc.Create(context.Background(), "key-1", RoleAdmin); err != nil {
		t.Fatalf("Create: %v", err)
	}
	first, err := svc.Revoke(context.Background(), "key-1")
	if err != nil || !first {
		t.Fatalf("first Revoke = %v, %v, want true, nil", first, err)
	}
	second, err := svc.Revoke(context.Background(), "key-1")
	if err != nil {
		t.Fatalf("second Revoke: %v", err)
	}
	if second {
		t.Fatalf("second Revoke = true, want false (already revoked)")
	}
}
