package auth

import "context"

// Store is the persistence port C1 depends on. Implementations persist
// ApiKey rows in a relational table (see internal/adapter/outbound/sqlstore).
type Store interface {
	// Insert persists a newly created key.
	Insert(ctx context.Context, key ApiKey) error
	// ActiveKeys returns every non-revoked row. Resolve must scan all of
	// them so verification timing does not leak which row matched.
	ActiveKeys(ctx context.Context) ([]ApiKey, error)
	// Revoke sets revoked_at = now() where id matches and the row is not
	// already revoked. Returns true iff exactly one row was updated.
	Revoke(ctx context.Context, id string) (bool, error)
	// List returns every key, revoked or not, newest first — used by the
	// `keys list` CLI surface.
	List(ctx context.Context) ([]ApiKey, error)
}

// Service implements C1's operations over a Store.
type Service struct {
	store Store
}

// NewService creates a credential Service backed by store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create generates a plaintext key, hashes and persists it under role
// (defaulting to readonly when role is empty or invalid) under the caller's
// id, and returns its plaintext — the only place the plaintext appears.
func (s *Service) Create(ctx context.Context, id string, role Role) (plaintext string, err error) {
	if !ValidRole(role) {
		role = RoleReadonly
	}
	plaintext, err = Generate()
	if err != nil {
		return "", err
	}
	hash, err := Hash(plaintext)
	if err != nil {
		return "", err
	}
	if err := s.store.Insert(ctx, ApiKey{ID: id, KeyHash: hash, Role: role}); err != nil {
		return "", err
	}
	return plaintext, nil
}

// Resolve fetches all non-revoked keys and returns the one whose stored hash
// verifies presented, or ok=false if none matches. It always iterates the
// full active set (per spec §4.1 / §9) rather than short-circuiting, so
// timing does not leak a presented key's position among stored hashes.
func (s *Service) Resolve(ctx context.Context, presented string) (key ApiKey, ok bool, err error) {
	active, err := s.store.ActiveKeys(ctx)
	if err != nil {
		return ApiKey{}, false, err
	}
	var found ApiKey
	var matched bool
	for _, candidate := range active {
		if Verify(presented, candidate.KeyHash) {
			found = candidate
			matched = true
		}
	}
	if !matched || found.ID == "" {
		return ApiKey{}, false, nil
	}
	return found, true, nil
}

// Revoke marks id revoked. Returns true iff a row was actually updated.
func (s *Service) Revoke(ctx context.Context, id string) (bool, error) {
	return s.store.Revoke(ctx, id)
}

// List returns every key, newest first.
func (s *Service) List(ctx context.Context) ([]ApiKey, error) {
	return s.store.List(ctx)
}
