package pipeline

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/Microck/bansho/internal/domain/auth"
	"github.com/Microck/bansho/internal/domain/policy"
)

// Decision reasons, per spec §3/§4.5.
const (
	ReasonAllowed               = "allowed"
	ReasonEmptyToolName         = "empty_tool_name"
	ReasonUnknownRole           = "unknown_role"
	ReasonUnknownTool           = "unknown_tool"
	ReasonToolNotAllowedForRole = "tool_not_allowed_for_role"
)

// AuthorizationDecision is C5's output: whether the call is admitted, and a
// human-readable trace of why.
type AuthorizationDecision struct {
	Allowed     bool
	Role        auth.Role
	ToolName    string
	Reason      string
	MatchedRule string
}

// Authorizer implements C5, evaluating (role, tool) against a loaded Policy.
// Decisions for a given (role, tool) pair never change once the policy is
// loaded (the policy is immutable for the process lifetime), so results are
// memoized behind a fast xxhash cache key to avoid re-walking allow lists
// on every call for hot tools.
type Authorizer struct {
	policy policy.Policy

	mu    sync.RWMutex
	cache map[uint64]AuthorizationDecision
}

// NewAuthorizer creates an Authorizer evaluating against p.
func NewAuthorizer(p policy.Policy) *Authorizer {
	return &Authorizer{policy: p, cache: make(map[uint64]AuthorizationDecision)}
}

func cacheKey(role auth.Role, tool string) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(string(role))
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(tool)
	return h.Sum64()
}

// Authorize evaluates whether role may invoke rawToolName, per the decision
// table in spec §4.5.
func (a *Authorizer) Authorize(role auth.Role, rawToolName string) AuthorizationDecision {
	normRole := auth.Role(strings.ToLower(strings.TrimSpace(string(role))))
	tool := strings.TrimSpace(rawToolName)

	key := cacheKey(normRole, tool)
	a.mu.RLock()
	if d, ok := a.cache[key]; ok {
		a.mu.RUnlock()
		return d
	}
	a.mu.RUnlock()

	d := a.evaluate(normRole, tool)

	a.mu.Lock()
	a.cache[key] = d
	a.mu.Unlock()

	return d
}

func (a *Authorizer) evaluate(role auth.Role, tool string) AuthorizationDecision {
	base := AuthorizationDecision{Role: role, ToolName: tool}

	if tool == "" {
		base.Reason = ReasonEmptyToolName
		base.MatchedRule = "deny:empty_tool_name"
		return base
	}

	if !auth.ValidRole(role) {
		base.Reason = ReasonUnknownRole
		base.MatchedRule = "deny:unknown_role"
		return base
	}

	rules := a.policy.Roles[role]
	for _, t := range rules.Allow {
		if t == policy.Wildcard {
			base.Allowed = true
			base.Reason = ReasonAllowed
			base.MatchedRule = fmt.Sprintf("roles.%s.allow:*", role)
			return base
		}
	}
	for _, t := range rules.Allow {
		if t == tool {
			base.Allowed = true
			base.Reason = ReasonAllowed
			base.MatchedRule = fmt.Sprintf("roles.%s.allow:%s", role, tool)
			return base
		}
	}

	if !a.policy.KnownTool(tool) {
		base.Reason = ReasonUnknownTool
		base.MatchedRule = "deny:unknown_tool"
		return base
	}

	base.Reason = ReasonToolNotAllowedForRole
	base.MatchedRule = fmt.Sprintf("roles.%s.allow", role)
	return base
}

// LimitFor returns the rate limit that applies to tool.
func (a *Authorizer) LimitFor(tool string) policy.Limit {
	return a.policy.RateLimits.LimitFor(strings.TrimSpace(tool))
}

// PerAPIKeyLimit returns the policy's per-api-key rate limit.
func (a *Authorizer) PerAPIKeyLimit() policy.Limit {
	return a.policy.RateLimits.PerAPIKey
}

// FilterTools returns the subset of toolNames that role is allowed to call,
// used by the tools/list handler (spec §4.8).
func (a *Authorizer) FilterTools(role auth.Role, toolNames []string) []string {
	out := make([]string, 0, len(toolNames))
	for _, name := range toolNames {
		if a.Authorize(role, name).Allowed {
			out = append(out, name)
		}
	}
	return out
}
