// Package policy implements the declarative role/tool authorization model
// (C2): typed records loaded once from YAML, and the pure matching rules
// the authorizer (C5) consults.
package policy

import "github.com/Microck/bansho/internal/domain/auth"

// Wildcard is the allow-list entry meaning "any tool".
const Wildcard = "*"

// RoleRules is the set of tools a role may invoke.
type RoleRules struct {
	Allow []string
}

// Allows reports whether tool is permitted for this role, honoring the "*"
// wildcard.
func (r RoleRules) Allows(tool string) bool {
	for _, t := range r.Allow {
		if t == Wildcard || t == tool {
			return true
		}
	}
	return false
}

// Limit is a (requests, window) rate-limit pair.
type Limit struct {
	Requests      int
	WindowSeconds int
}

// RateLimits is the full rate-limit section: one limit per api key, one
// default per tool, and per-tool overrides.
type RateLimits struct {
	PerAPIKey      Limit
	PerToolDefault Limit
	PerToolOverride map[string]Limit
}

// LimitFor returns the limit that applies to tool: its override if present,
// otherwise the per-tool default.
func (r RateLimits) LimitFor(tool string) Limit {
	if l, ok := r.PerToolOverride[tool]; ok {
		return l
	}
	return r.PerToolDefault
}

// Policy is the immutable, process-wide authorization policy loaded once at
// startup. Safe for concurrent read-only use by every request.
type Policy struct {
	Roles      map[auth.Role]RoleRules
	RateLimits RateLimits
}

// defaultRateLimits matches spec §3's defaults when the rate_limits section
// (or a subsection of it) is absent from the policy file.
func defaultRateLimits() RateLimits {
	return RateLimits{
		PerAPIKey:       Limit{Requests: 120, WindowSeconds: 60},
		PerToolDefault:  Limit{Requests: 30, WindowSeconds: 60},
		PerToolOverride: map[string]Limit{},
	}
}

// Default returns the policy used when no sections are present in the
// loaded file: admin may call any tool, user and readonly may call none,
// and default rate limits apply.
func Default() Policy {
	return Policy{
		Roles: map[auth.Role]RoleRules{
			auth.RoleAdmin:    {Allow: []string{Wildcard}},
			auth.RoleUser:     {Allow: []string{}},
			auth.RoleReadonly: {Allow: []string{}},
		},
		RateLimits: defaultRateLimits(),
	}
}

// IsAllowed reports whether role may invoke tool. An unknown role always
// denies.
func (p Policy) IsAllowed(role auth.Role, tool string) bool {
	rules, ok := p.Roles[role]
	if !ok {
		return false
	}
	return rules.Allows(tool)
}

// KnownTool reports whether tool appears in any role's allow list
// (excluding the "*" wildcard entry itself). Used to distinguish
// "tool does not exist" from "tool exists but not for this role".
func (p Policy) KnownTool(tool string) bool {
	for _, rules := range p.Roles {
		for _, t := range rules.Allow {
			if t != Wildcard && t == tool {
				return true
			}
		}
	}
	return false
}
