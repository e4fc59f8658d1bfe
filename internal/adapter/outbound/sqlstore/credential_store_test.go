package sqlstore

import (
	"context"
	"testing"

	"github.com/Microck/bansho/internal/domain/auth"
)

func TestCredentialStoreInsertAndActiveKeys(t *testing.T) {
	db := openTestDB(t)
	store := NewCredentialStore(db)

	if err := store.Insert(context.Background(), auth.ApiKey{ID: "k1", KeyHash: "hash1", Role: auth.RoleAdmin}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	active, err := store.ActiveKeys(context.Background())
	if err != nil {
		t.Fatalf("ActiveKeys: %v", err)
	}
	if len(active) != 1 || active[0].ID != "k1" || active[0].Role != auth.RoleAdmin {
		t.Fatalf("ActiveKeys = %+v, want one admin key k1", active)
	}
}

func TestCredentialStoreRevoke(t *testing.T) {
	db := openTestDB(t)
	store := NewCredentialStore(db)
	if err := store.Insert(context.Background(), auth.ApiKey{ID: "k1", KeyHash: "hash1", Role: auth.RoleUser}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	ok, err := store.Revoke(context.Background(), "k1")
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if !ok {
		t.Fatalf("Revoke = false, want true")
	}

	active, err := store.ActiveKeys(context.Background())
	if err != nil {
		t.Fatalf("ActiveKeys: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("ActiveKeys after revoke = %+v, want empty", active)
	}

	again, err := store.Revoke(context.Background(), "k1")
	if err != nil {
		t.Fatalf("Revoke (second): %v", err)
	}
	if again {
		t.Fatalf("second Revoke = true, want false (already revoked)")
	}
}

func TestCredentialStoreRevokeUnknownID(t *testing.T) {
	db := openTestDB(t)
	store := NewCredentialStore(db)
	ok, err := store.Revoke(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if ok {
		t.Fatalf("Revoke(unknown id) = true, want false")
	}
}

func TestCredentialStoreList(t *testing.T) {
	db := openTestDB(t)
	store := NewCredentialStore(db)
	if err := store.Insert(context.Background(), auth.ApiKey{ID: "k1", KeyHash: "h1", Role: auth.RoleAdmin}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := store.Insert(context.Background(), auth.ApiKey{ID: "k2", KeyHash: "h2", Role: auth.RoleUser}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := store.Revoke(context.Background(), "k2"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	all, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("List = %d rows, want 2 (including revoked)", len(all))
	}
}
