// Package outbound defines the outbound ports the request pipeline and
// listener depend on: the upstream MCP connector (C7).
package outbound

import (
	"context"
	"encoding/json"
)

// ServerInfo mirrors the "serverInfo" object an MCP server returns from
// initialize, re-advertised verbatim by the listener (C9).
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Capabilities mirrors the "capabilities" object an MCP server returns from
// initialize.
type Capabilities map[string]interface{}

// ToolInfo is one entry of a tools/list result, enough for the authorizer to
// filter by name and for the listener to pass the full descriptor through.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// RPCError mirrors a JSON-RPC error object returned by the upstream.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string { return e.Message }

// UpstreamClient is the outbound port for C7: a single MCP session to one
// upstream tool server, over whatever transport the adapter implements
// (stdio subprocess, streaming HTTP). One listener owns exactly one
// UpstreamClient for its lifetime.
type UpstreamClient interface {
	// Initialize performs the MCP initialize handshake and returns the
	// upstream's own identity, so the listener can re-advertise it.
	Initialize(ctx context.Context) (ServerInfo, Capabilities, error)

	// ListTools returns the upstream's full tool catalog, unfiltered.
	ListTools(ctx context.Context) ([]ToolInfo, error)

	// CallTool forwards a tools/call to the upstream and waits for its
	// result. A non-nil *RPCError means the upstream itself returned a
	// JSON-RPC error object (not a transport failure); result is the raw
	// "result" payload on success.
	CallTool(ctx context.Context, name string, arguments json.RawMessage, meta json.RawMessage) (result json.RawMessage, rpcErr *RPCError, err error)

	// ListResources and ReadResource forward resources/list and
	// resources/read, used by passthrough routing only (no authz/audit).
	ListResources(ctx context.Context, params json.RawMessage) (result json.RawMessage, rpcErr *RPCError, err error)
	ReadResource(ctx context.Context, params json.RawMessage) (result json.RawMessage, rpcErr *RPCError, err error)

	// ListPrompts and GetPrompt forward prompts/list and prompts/get, same
	// passthrough routing as resources.
	ListPrompts(ctx context.Context, params json.RawMessage) (result json.RawMessage, rpcErr *RPCError, err error)
	GetPrompt(ctx context.Context, params json.RawMessage) (result json.RawMessage, rpcErr *RPCError, err error)

	// CallCount reports the number of upstream calls issued so far, the
	// observable used by the "pipeline ordering" invariant's tests.
	CallCount() int64

	// Close tears down the upstream session. Must not be called more than
	// once; must not be used after Close returns.
	Close() error
}
