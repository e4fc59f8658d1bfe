package policy

import (
	"testing"

	"github.com/Microck/bansho/internal/domain/auth"
)

func TestRoleRulesAllowsWildcard(t *testing.T) {
	r := RoleRules{Allow: []string{Wildcard}}
	if !r.Allows("anything") {
		t.Fatalf("wildcard rule must allow any tool")
	}
}

func TestRoleRulesAllowsExactMatch(t *testing.T) {
	r := RoleRules{Allow: []string{"search", "read_file"}}
	if !r.Allows("search") {
		t.Fatalf("expected search to be allowed")
	}
	if r.Allows("delete_file") {
		t.Fatalf("delete_file must not be allowed")
	}
}

func TestRateLimitsLimitForOverride(t *testing.T) {
	rl := RateLimits{
		PerToolDefault:  Limit{Requests: 30, WindowSeconds: 60},
		PerToolOverride: map[string]Limit{"search": {Requests: 60, WindowSeconds: 60}},
	}
	if got := rl.LimitFor("search"); got.Requests != 60 {
		t.Fatalf("LimitFor(search) = %+v, want override of 60", got)
	}
	if got := rl.LimitFor("other"); got.Requests != 30 {
		t.Fatalf("LimitFor(other) = %+v, want default of 30", got)
	}
}

func TestDefaultPolicyAdminWildcardOnly(t *testing.T) {
	p := Default()
	if !p.IsAllowed(auth.RoleAdmin, "anything") {
		t.Fatalf("default policy must allow admin everything")
	}
	if p.IsAllowed(auth.RoleUser, "anything") {
		t.Fatalf("default policy must not allow user anything")
	}
	if p.IsAllowed(auth.Role("nonexistent"), "anything") {
		t.Fatalf("unknown role must never be allowed")
	}
}

func TestKnownTool(t *testing.T) {
	p := Policy{
		Roles: map[auth.Role]RoleRules{
			auth.RoleAdmin: {Allow: []string{Wildcard}},
			auth.RoleUser:  {Allow: []string{"search"}},
		},
	}
	if !p.KnownTool("search") {
		t.Fatalf("search should be a known tool")
	}
	if p.KnownTool("nonexistent") {
		t.Fatalf("nonexistent must not be a known tool")
	}
	if p.KnownTool(Wildcard) {
		t.Fatalf("the wildcard entry itself must never count as a known tool")
	}
}
