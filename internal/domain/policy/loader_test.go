package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Microck/bansho/internal/domain/auth"
)

func writeTempPolicy(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "policies.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp policy: %v", err)
	}
	return path
}

func TestLoadValidPolicy(t *testing.T) {
	path := writeTempPolicy(t, `
roles:
  admin:
    allow:
      - "*"
  user:
    allow:
      - search
      - read_file
rate_limits:
  per_api_key:
    requests: 120
    window_seconds: 60
  per_tool:
    default:
      requests: 30
      window_seconds: 60
    overrides:
      search:
        requests: 60
        window_seconds: 60
`)
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !p.IsAllowed(auth.RoleAdmin, "anything") {
		t.Fatalf("admin should be allowed anything")
	}
	if !p.IsAllowed(auth.RoleUser, "search") {
		t.Fatalf("user should be allowed search")
	}
	if p.IsAllowed(auth.RoleUser, "delete_file") {
		t.Fatalf("user should not be allowed delete_file")
	}
	if got := p.RateLimits.LimitFor("search"); got.Requests != 60 {
		t.Fatalf("LimitFor(search) = %+v, want 60", got)
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeTempPolicy(t, `
roles:
  admin:
    allow:
      - "*"
    extra_field: true
`)
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load: want error for unknown field, got nil")
	}
	var loadErr *LoadError
	if !asLoadError(err, &loadErr) {
		t.Fatalf("Load error = %T, want *LoadError", err)
	}
}

func TestLoadRejectsNonPositiveLimit(t *testing.T) {
	path := writeTempPolicy(t, `
rate_limits:
  per_api_key:
    requests: 0
    window_seconds: 60
`)
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load: want error for non-positive requests, got nil")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("Load: want error for missing file, got nil")
	}
}

func TestDefaultRateLimitsPerAPIKey(t *testing.T) {
	p := Default()
	if p.RateLimits.PerAPIKey.Requests != 120 {
		t.Fatalf("Default() per-api-key requests = %d, want 120", p.RateLimits.PerAPIKey.Requests)
	}
}

func TestNormalizeAllowCollapsesWildcard(t *testing.T) {
	got := normalizeAllow([]string{"search", "*", "read_file"})
	if len(got) != 1 || got[0] != Wildcard {
		t.Fatalf("normalizeAllow with wildcard = %v, want [\"*\"]", got)
	}
}

func TestNormalizeAllowDedupes(t *testing.T) {
	got := normalizeAllow([]string{"search", "search", "read_file"})
	if len(got) != 2 {
		t.Fatalf("normalizeAllow dedupe = %v, want 2 entries", got)
	}
}

func asLoadError(err error, target **LoadError) bool {
	le, ok := err.(*LoadError)
	if ok {
		*target = le
	}
	return ok
}
