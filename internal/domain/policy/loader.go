package policy

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Microck/bansho/internal/domain/auth"
)

// DefaultPolicyPath is used when BANSHO_POLICY_PATH is unset.
const DefaultPolicyPath = "config/policies.yaml"

// LoadError is the typed failure raised when the policy file cannot be
// loaded or fails schema validation: missing, unreadable, not valid YAML,
// not a mapping, unknown fields, or non-positive rate-limit values.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("policy: load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// rawRoleRules and rawPolicy mirror the YAML shape exactly so yaml.v3's
// strict decoder (KnownFields) can reject unrecognized keys — the "extra =
// forbid" semantics spec.md §4.2 requires.
type rawRoleRules struct {
	Allow []string `yaml:"allow"`
}

type rawLimit struct {
	Requests      int `yaml:"requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

type rawPerTool struct {
	Default   *rawLimit           `yaml:"default"`
	Overrides map[string]rawLimit `yaml:"overrides"`
}

type rawRateLimits struct {
	PerAPIKey *rawLimit   `yaml:"per_api_key"`
	PerTool   *rawPerTool `yaml:"per_tool"`
}

type rawPolicy struct {
	Roles      map[string]rawRoleRules `yaml:"roles"`
	RateLimits *rawRateLimits          `yaml:"rate_limits"`
}

// Load reads and parses the policy file at path (or DefaultPolicyPath when
// path is empty), returning a *LoadError on any failure.
func Load(path string) (Policy, error) {
	if path == "" {
		path = DefaultPolicyPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, &LoadError{Path: path, Err: err}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var raw rawPolicy
	if err := dec.Decode(&raw); err != nil {
		return Policy{}, &LoadError{Path: path, Err: err}
	}

	return fromRaw(raw, path)
}

// fromRaw validates and normalizes the parsed YAML into an immutable Policy.
func fromRaw(raw rawPolicy, path string) (Policy, error) {
	p := Default()

	if raw.Roles != nil {
		roles := make(map[auth.Role]RoleRules, len(raw.Roles))
		for name, rules := range raw.Roles {
			roles[auth.Role(name)] = RoleRules{Allow: normalizeAllow(rules.Allow)}
		}
		// Roles absent from the file fall back to the Default's empty
		// allow list rather than disappearing, so every role that exists in
		// auth.Role has an entry even when it wasn't configured.
		for _, role := range []auth.Role{auth.RoleAdmin, auth.RoleUser, auth.RoleReadonly} {
			if _, ok := roles[role]; !ok {
				roles[role] = RoleRules{Allow: []string{}}
			}
		}
		p.Roles = roles
	}

	if raw.RateLimits != nil {
		if raw.RateLimits.PerAPIKey != nil {
			lim, err := toLimit(*raw.RateLimits.PerAPIKey, "rate_limits.per_api_key")
			if err != nil {
				return Policy{}, &LoadError{Path: path, Err: err}
			}
			p.RateLimits.PerAPIKey = lim
		}
		if raw.RateLimits.PerTool != nil {
			if raw.RateLimits.PerTool.Default != nil {
				lim, err := toLimit(*raw.RateLimits.PerTool.Default, "rate_limits.per_tool.default")
				if err != nil {
					return Policy{}, &LoadError{Path: path, Err: err}
				}
				p.RateLimits.PerToolDefault = lim
			}
			overrides := make(map[string]Limit, len(raw.RateLimits.PerTool.Overrides))
			for tool, rl := range raw.RateLimits.PerTool.Overrides {
				lim, err := toLimit(rl, fmt.Sprintf("rate_limits.per_tool.overrides.%s", tool))
				if err != nil {
					return Policy{}, &LoadError{Path: path, Err: err}
				}
				overrides[tool] = lim
			}
			p.RateLimits.PerToolOverride = overrides
		}
	}

	return p, nil
}

func toLimit(rl rawLimit, field string) (Limit, error) {
	if rl.Requests <= 0 || rl.WindowSeconds <= 0 {
		return Limit{}, fmt.Errorf("%s: requests and window_seconds must be positive integers", field)
	}
	return Limit{Requests: rl.Requests, WindowSeconds: rl.WindowSeconds}, nil
}

// normalizeAllow de-duplicates an allow list; if the "*" wildcard appears
// anywhere, the list collapses to exactly ["*"] per spec §3.
func normalizeAllow(allow []string) []string {
	for _, t := range allow {
		if t == Wildcard {
			return []string{Wildcard}
		}
	}
	seen := make(map[string]struct{}, len(allow))
	out := make([]string, 0, len(allow))
	for _, t := range allow {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
