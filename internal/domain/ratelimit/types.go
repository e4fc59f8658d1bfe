// Package ratelimit implements the fixed-window rate limit primitive (C3):
// an atomic INCR-with-EXPIRE-on-first-increment against a shared store,
// keyed by (api_key, bucket) and (api_key, tool, bucket).
package ratelimit

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidArgument is the typed failure raised when requests or
// windowSeconds is zero or negative.
var ErrInvalidArgument = errors.New("ratelimit: requests and window_seconds must be positive")

// unknownKeySegment and unknownToolSegment are the sentinel key segments
// substituted for a blank api key or tool name, so an unauthenticated
// caller never causes a limiter call with an empty key component.
const (
	unknownKeySegment  = "__unknown_key__"
	unknownToolSegment = "__unknown_tool__"
)

// Result is the outcome of a single fixed-window check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetS    int
}

// Decision bundles both checks made for a single tools/call: the caller's
// overall rate and the per-tool rate, plus the normalized tool name used.
type Decision struct {
	PerAPIKey Result
	PerTool   Result
	ToolName  string
}

// Store is the port a fixed-window limiter is built on: a single atomic
// "increment, and set a TTL only on the increment that created the key"
// operation against a shared in-memory store (Redis-compatible in
// production; see internal/adapter/outbound/memory for the in-process
// implementation used here).
type Store interface {
	// IncrementWithExpire atomically increments key's counter, and — only
	// on the increment that creates the key (i.e. the resulting count is 1)
	// — attaches a TTL of ttlSeconds. Returns the post-increment count.
	IncrementWithExpire(ctx context.Context, key string, ttlSeconds int, now int64) (count int64, err error)
}

// Limiter checks fixed-window rate limits backed by a Store.
type Limiter struct {
	store Store
}

// New creates a Limiter backed by store.
func New(store Store) *Limiter {
	return &Limiter{store: store}
}

func bucketKey(prefix string, windowSeconds int, now int64) (key string, ttl int) {
	bucket := now / int64(windowSeconds)
	rem := int(now % int64(windowSeconds))
	ttl = windowSeconds - rem
	if rem == 0 {
		ttl = windowSeconds
	}
	return fmt.Sprintf("%s:%d", prefix, bucket), ttl
}

func normalize(s, sentinel string) string {
	if s == "" {
		return sentinel
	}
	return s
}

// CheckAPIKeyLimit enforces the (api_key, bucket) counter against requests/windowSeconds.
func (l *Limiter) CheckAPIKeyLimit(ctx context.Context, apiKeyID string, requests, windowSeconds int, now int64) (Result, error) {
	if requests <= 0 || windowSeconds <= 0 {
		return Result{}, ErrInvalidArgument
	}
	apiKeyID = normalize(apiKeyID, unknownKeySegment)
	prefix := fmt.Sprintf("rl:%s", apiKeyID)
	return l.check(ctx, prefix, requests, windowSeconds, now)
}

// CheckToolLimit enforces the (api_key, tool, bucket) counter.
func (l *Limiter) CheckToolLimit(ctx context.Context, apiKeyID, toolName string, requests, windowSeconds int, now int64) (Result, error) {
	if requests <= 0 || windowSeconds <= 0 {
		return Result{}, ErrInvalidArgument
	}
	apiKeyID = normalize(apiKeyID, unknownKeySegment)
	toolName = normalize(toolName, unknownToolSegment)
	prefix := fmt.Sprintf("rl:%s:%s", apiKeyID, toolName)
	return l.check(ctx, prefix, requests, windowSeconds, now)
}

func (l *Limiter) check(ctx context.Context, prefix string, requests, windowSeconds int, now int64) (Result, error) {
	key, ttl := bucketKey(prefix, windowSeconds, now)
	count, err := l.store.IncrementWithExpire(ctx, key, ttl, now)
	if err != nil {
		return Result{}, err
	}
	remaining := requests - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= int64(requests),
		Remaining: remaining,
		ResetS:    ttl,
	}, nil
}
