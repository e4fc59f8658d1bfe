// Package audit implements the audit payload sanitizer and the AuditEvent
// type persisted by C6 for every tools/call, regardless of outcome.
package audit

import "time"

// sensitiveKeys are the lower-cased key names whose values are always
// redacted, wherever they appear in a sanitized payload.
var sensitiveKeys = map[string]struct{}{
	"api_key":       {},
	"authorization": {},
	"password":      {},
	"secret":        {},
	"token":         {},
	"x-api-key":     {},
}

func isSensitiveKey(key string) bool {
	_, ok := sensitiveKeys[key]
	return ok
}

// Redacted is the fixed replacement value for a sensitive key's value.
const Redacted = "[REDACTED]"

// AuthDecision, AuthzDecision, and RateDecision are the structured trace
// attached to every AuditEvent describing what happened at each pipeline
// stage, even stages that never ran ("not_evaluated").
type AuthDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

type AuthzDecision struct {
	Allowed     bool   `json:"allowed"`
	Reason      string `json:"reason"`
	MatchedRule string `json:"matched_rule,omitempty"`
}

type RateDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// Decision is the full structured decision trace for one tools/call.
type Decision struct {
	Auth  AuthDecision  `json:"auth"`
	Authz AuthzDecision `json:"authz"`
	Rate  RateDecision  `json:"rate"`
}

// NotEvaluated is the reason recorded for a stage that never ran because an
// earlier stage already failed the request.
const NotEvaluated = "not_evaluated"

// Event is one audit row: a single immutable record of one tool
// invocation's inputs, outputs, and decision trace.
type Event struct {
	ID            string
	Timestamp     time.Time
	ApiKeyID      *string
	Role          string
	Method        string
	ToolName      string
	RequestJSON   []byte
	ResponseJSON  []byte
	Decision      Decision
	StatusCode    int
	LatencyMillis int64
}
