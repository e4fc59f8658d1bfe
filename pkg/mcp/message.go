// Package mcp provides the JSON-RPC message types and codec used to speak
// the Model Context Protocol on a bidirectional byte stream.
package mcp

import (
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

// Direction indicates which way a message is flowing through the proxy.
type Direction int

const (
	// ClientToServer indicates a message flowing from the agent client to banshogate.
	ClientToServer Direction = iota
	// ServerToClient indicates a message flowing from banshogate back to the client.
	ServerToClient
)

func (d Direction) String() string {
	switch d {
	case ClientToServer:
		return "client->server"
	case ServerToClient:
		return "server->client"
	default:
		return "unknown"
	}
}

// Meta mirrors the MCP "_meta" object carried on requests. Transports that
// are not HTTP (stdio) populate Headers/Query from whatever side-channel
// they have available so the authenticator can stay transport-agnostic.
type Meta struct {
	Headers     map[string]string `json:"headers,omitempty"`
	Query       map[string]string `json:"query,omitempty"`
	QueryParams map[string]string `json:"query_params,omitempty"`
}

// Message wraps a decoded JSON-RPC message with proxy-level metadata.
type Message struct {
	// Raw holds the original wire bytes as received. Passthrough methods
	// (resources/prompts) forward the decoded request's params, not Raw.
	Raw []byte

	Direction Direction

	// Decoded is either *jsonrpc.Request or *jsonrpc.Response, or nil if
	// decoding failed.
	Decoded jsonrpc.Message

	Timestamp time.Time
}

// IsRequest reports whether the message is a JSON-RPC request.
func (m *Message) IsRequest() bool {
	if m.Decoded == nil {
		return false
	}
	_, ok := m.Decoded.(*jsonrpc.Request)
	return ok
}

// Request returns the underlying request, or nil if this message is not one.
func (m *Message) Request() *jsonrpc.Request {
	if m.Decoded == nil {
		return nil
	}
	req, _ := m.Decoded.(*jsonrpc.Request)
	return req
}

// Response returns the underlying response, or nil if this message is not one.
func (m *Message) Response() *jsonrpc.Response {
	if m.Decoded == nil {
		return nil
	}
	resp, _ := m.Decoded.(*jsonrpc.Response)
	return resp
}

// Method returns the JSON-RPC method name, or "" if this is not a request.
func (m *Message) Method() string {
	req := m.Request()
	if req == nil {
		return ""
	}
	return req.Method
}

// toolCallParams is the JSON-RPC params shape for a tools/call request.
type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolCallName extracts the "name" field from a tools/call request's params.
// Returns "" if the message is not a tools/call request or parsing fails.
func (m *Message) ToolCallName() string {
	req := m.Request()
	if req == nil || req.Params == nil {
		return ""
	}
	var p toolCallParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return ""
	}
	return p.Name
}

// ToolCallArguments extracts the raw "arguments" field from a tools/call
// request's params, unparsed, so callers can forward it upstream unchanged
// and sanitize it into an audit record without a lossy round trip through a
// generic map. Returns nil if the message is not a tools/call request or
// parsing fails.
func (m *Message) ToolCallArguments() json.RawMessage {
	req := m.Request()
	if req == nil || req.Params == nil {
		return nil
	}
	var p toolCallParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return nil
	}
	return p.Arguments
}

// MetaFromParams extracts the "_meta" object carried on a request's params,
// if present. Used by the authenticator to find headers/query mirrored by
// transport-agnostic callers.
func (m *Message) MetaFromParams() *Meta {
	req := m.Request()
	if req == nil || req.Params == nil {
		return nil
	}
	var wrapper struct {
		Meta *Meta `json:"_meta"`
	}
	if err := json.Unmarshal(req.Params, &wrapper); err != nil {
		return nil
	}
	return wrapper.Meta
}

// RawMeta returns the verbatim "_meta" bytes carried on a request's params,
// or nil if absent. Unlike MetaFromParams, it preserves fields banshogate
// doesn't know about so they survive being forwarded upstream unchanged.
func (m *Message) RawMeta() json.RawMessage {
	req := m.Request()
	if req == nil || req.Params == nil {
		return nil
	}
	var wrapper struct {
		Meta json.RawMessage `json:"_meta"`
	}
	if err := json.Unmarshal(req.Params, &wrapper); err != nil {
		return nil
	}
	return wrapper.Meta
}

// RequestID returns a string form of the JSON-RPC request ID for correlation,
// or "" if this is not a request or has no ID (a notification).
func (m *Message) RequestID() string {
	req := m.Request()
	if req == nil || !req.ID.IsValid() {
		return ""
	}
	raw := req.ID.Raw()
	if raw == nil {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return v
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}
