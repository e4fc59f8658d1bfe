package mcp

import (
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

// EncodeMessage serializes a JSON-RPC message to its wire format. Delegates
// to the MCP SDK so banshogate never hand-rolls JSON-RPC framing rules.
func EncodeMessage(msg jsonrpc.Message) ([]byte, error) {
	return jsonrpc.EncodeMessage(msg)
}

// DecodeMessage deserializes wire bytes into a *jsonrpc.Request or *jsonrpc.Response.
func DecodeMessage(data []byte) (jsonrpc.Message, error) {
	return jsonrpc.DecodeMessage(data)
}

// WrapMessage decodes raw bytes and wraps them in a Message carrying
// direction and receipt timestamp. On decode failure it still returns a
// Message with Decoded == nil and the raw bytes kept in Raw.
func WrapMessage(raw []byte, dir Direction) *Message {
	decoded, err := jsonrpc.DecodeMessage(raw)
	if err != nil {
		return &Message{Raw: raw, Direction: dir, Timestamp: time.Now()}
	}
	return &Message{Raw: raw, Direction: dir, Decoded: decoded, Timestamp: time.Now()}
}
