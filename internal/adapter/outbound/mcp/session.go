// Package mcp provides the outbound C7 adapters that speak MCP to an
// upstream tool server: a subprocess over stdio, or a streaming HTTP
// connection, both framed as newline-delimited JSON-RPC. Both adapters
// share the correlation layer in this file, which turns a raw
// request/response byte stream into the typed outbound.UpstreamClient port.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"

	"github.com/Microck/bansho/internal/port/outbound"
)

const (
	scannerInitialBufSize = 256 * 1024
	scannerMaxBufSize     = 4 * 1024 * 1024
)

// pendingRequest is the bookkeeping for one in-flight request awaiting its
// correlated response, keyed by JSON-RPC request ID.
type pendingRequest struct {
	resultCh chan *jsonrpc.Response
}

// Session implements request/response correlation over a raw bidirectional
// byte stream (stdin/stdout of a subprocess, or an HTTP request/response
// pipe pair). It satisfies outbound.UpstreamClient.
type Session struct {
	writer io.Writer
	closer io.Closer

	mu      sync.Mutex
	wmu     sync.Mutex // serializes writes to writer
	pending map[string]*pendingRequest

	nextID    int64
	callCount int64

	readDone chan struct{}
	readErr  error
}

// NewSession wraps w (for sending) and r (for receiving) as a correlated MCP
// session. It starts a background goroutine reading r until EOF or a read
// error; that goroutine fails every still-pending request when it exits.
func NewSession(w io.Writer, r io.Reader, closer io.Closer) *Session {
	s := &Session{
		writer:   w,
		closer:   closer,
		pending:  make(map[string]*pendingRequest),
		readDone: make(chan struct{}),
	}
	go s.readLoop(r)
	return s
}

func (s *Session) readLoop(r io.Reader) {
	defer close(s.readDone)

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, scannerInitialBufSize)
	scanner.Buffer(buf, scannerMaxBufSize)

	for scanner.Scan() {
		raw := scanner.Bytes()
		msg, err := jsonrpc.DecodeMessage(append([]byte(nil), raw...))
		if err != nil {
			continue
		}
		resp, ok := msg.(*jsonrpc.Response)
		if !ok || !resp.ID.IsValid() {
			continue
		}
		s.deliver(resp)
	}
	if err := scanner.Err(); err != nil {
		s.readErr = err
	}
	s.failAllPending(fmt.Errorf("mcp: upstream connection closed"))
}

func (s *Session) deliver(resp *jsonrpc.Response) {
	key := idKey(resp.ID)
	s.mu.Lock()
	p, ok := s.pending[key]
	if ok {
		delete(s.pending, key)
	}
	s.mu.Unlock()
	if ok {
		p.resultCh <- resp
	}
}

func (s *Session) failAllPending(err error) {
	s.mu.Lock()
	pending := s.pending
	s.pending = make(map[string]*pendingRequest)
	s.mu.Unlock()

	for _, p := range pending {
		p.resultCh <- &jsonrpc.Response{
			Error: &jsonrpc.Error{Code: -32000, Message: err.Error()},
		}
	}
}

func idKey(id jsonrpc.ID) string {
	raw := id.Raw()
	b, _ := json.Marshal(raw)
	return string(b)
}

// call sends a JSON-RPC request with the given method and params, and
// blocks until its matching response arrives, ctx is done, or the read loop
// exits.
func (s *Session) call(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, *outbound.RPCError, error) {
	id, err := jsonrpc.MakeID(float64(atomic.AddInt64(&s.nextID, 1)))
	if err != nil {
		return nil, nil, err
	}
	req := &jsonrpc.Request{Method: method, ID: id, Params: params}

	resultCh := make(chan *jsonrpc.Response, 1)
	key := idKey(id)
	s.mu.Lock()
	s.pending[key] = &pendingRequest{resultCh: resultCh}
	s.mu.Unlock()

	raw, err := jsonrpc.EncodeMessage(req)
	if err != nil {
		s.mu.Lock()
		delete(s.pending, key)
		s.mu.Unlock()
		return nil, nil, err
	}

	atomic.AddInt64(&s.callCount, 1)

	s.wmu.Lock()
	_, writeErr := s.writer.Write(append(raw, '\n'))
	s.wmu.Unlock()
	if writeErr != nil {
		s.mu.Lock()
		delete(s.pending, key)
		s.mu.Unlock()
		return nil, nil, writeErr
	}

	select {
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.pending, key)
		s.mu.Unlock()
		return nil, nil, ctx.Err()
	case resp := <-resultCh:
		if resp.Error != nil {
			return nil, &outbound.RPCError{Code: resp.Error.Code, Message: resp.Error.Message}, nil
		}
		return resp.Result, nil, nil
	}
}

// Initialize performs the MCP initialize handshake.
func (s *Session) Initialize(ctx context.Context) (outbound.ServerInfo, outbound.Capabilities, error) {
	params, _ := json.Marshal(map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"clientInfo":      map[string]string{"name": "banshogate", "version": "1"},
		"capabilities":    map[string]interface{}{},
	})
	result, rpcErr, err := s.call(ctx, "initialize", params)
	if err != nil {
		return outbound.ServerInfo{}, nil, err
	}
	if rpcErr != nil {
		return outbound.ServerInfo{}, nil, rpcErr
	}
	var parsed struct {
		ServerInfo   outbound.ServerInfo    `json:"serverInfo"`
		Capabilities map[string]interface{} `json:"capabilities"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return outbound.ServerInfo{}, nil, err
	}
	return parsed.ServerInfo, outbound.Capabilities(parsed.Capabilities), nil
}

// ListTools forwards tools/list.
func (s *Session) ListTools(ctx context.Context) ([]outbound.ToolInfo, error) {
	result, rpcErr, err := s.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}
	if rpcErr != nil {
		return nil, rpcErr
	}
	var parsed struct {
		Tools []outbound.ToolInfo `json:"tools"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, err
	}
	return parsed.Tools, nil
}

// CallTool forwards tools/call.
func (s *Session) CallTool(ctx context.Context, name string, arguments json.RawMessage, meta json.RawMessage) (json.RawMessage, *outbound.RPCError, error) {
	payload := map[string]json.RawMessage{}
	nameJSON, _ := json.Marshal(name)
	payload["name"] = nameJSON
	if len(arguments) > 0 {
		payload["arguments"] = arguments
	}
	if len(meta) > 0 {
		payload["_meta"] = meta
	}
	params, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	return s.call(ctx, "tools/call", params)
}

func (s *Session) ListResources(ctx context.Context, params json.RawMessage) (json.RawMessage, *outbound.RPCError, error) {
	return s.call(ctx, "resources/list", params)
}

func (s *Session) ReadResource(ctx context.Context, params json.RawMessage) (json.RawMessage, *outbound.RPCError, error) {
	return s.call(ctx, "resources/read", params)
}

func (s *Session) ListPrompts(ctx context.Context, params json.RawMessage) (json.RawMessage, *outbound.RPCError, error) {
	return s.call(ctx, "prompts/list", params)
}

func (s *Session) GetPrompt(ctx context.Context, params json.RawMessage) (json.RawMessage, *outbound.RPCError, error) {
	return s.call(ctx, "prompts/get", params)
}

// CallCount reports the number of requests issued so far.
func (s *Session) CallCount() int64 {
	return atomic.LoadInt64(&s.callCount)
}

// Close closes the underlying transport. Pending calls are failed by the
// read loop observing EOF.
func (s *Session) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

var _ outbound.UpstreamClient = (*Session)(nil)
