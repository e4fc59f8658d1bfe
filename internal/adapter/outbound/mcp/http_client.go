package mcp

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/Microck/bansho/internal/port/outbound"
)

const maxResponseBodySize = 10 * 1024 * 1024

// HTTPUpstream speaks MCP to an upstream server over a streaming HTTP
// connection (UPSTREAM_URL): each JSON-RPC message is POSTed, and the
// Mcp-Session-Id response header is carried on subsequent requests. It
// bridges the request/response cycle into an io.Pipe pair, wrapped by the
// same correlation Session the stdio adapter uses.
type HTTPUpstream struct {
	endpoint   string
	httpClient *http.Client

	mu        sync.Mutex
	sessionID string

	reqR *io.PipeReader
	reqW *io.PipeWriter
	resR *io.PipeReader
	resW *io.PipeWriter

	session *Session
	wg      sync.WaitGroup
}

// NewHTTPUpstream builds an upstream client for endpoint (UPSTREAM_URL). An
// empty endpoint is a fatal config error.
func NewHTTPUpstream(endpoint string) (*HTTPUpstream, error) {
	if endpoint == "" {
		return nil, errors.New("mcp: UPSTREAM_URL must not be empty")
	}
	return &HTTPUpstream{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Start begins the request/response bridge and its correlation session.
func (c *HTTPUpstream) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return errors.New("mcp: http upstream already started")
	}

	c.reqR, c.reqW = io.Pipe()
	c.resR, c.resW = io.Pipe()

	c.wg.Add(1)
	go c.pump(ctx)

	c.session = NewSession(c.reqW, c.resR, c.reqW)
	return nil
}

// pump reads newline-delimited JSON-RPC requests off reqR, POSTs each to the
// endpoint, and writes the response body (plus one newline) to resW.
func (c *HTTPUpstream) pump(ctx context.Context) {
	defer c.wg.Done()
	defer func() { _ = c.resW.Close() }()

	scanner := bufio.NewScanner(c.reqR)
	buf := make([]byte, 0, scannerInitialBufSize)
	scanner.Buffer(buf, scannerMaxBufSize)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		raw := append([]byte(nil), scanner.Bytes()...)
		if len(raw) == 0 {
			continue
		}
		resp, err := c.send(ctx, raw)
		if err != nil {
			if _, werr := c.resW.Write([]byte("\n")); werr != nil {
				return
			}
			continue
		}
		resp = bytes.TrimRight(resp, "\n")
		if _, err := c.resW.Write(resp); err != nil {
			return
		}
		if _, err := c.resW.Write([]byte("\n")); err != nil {
			return
		}
	}
}

func (c *HTTPUpstream) send(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("mcp: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.mu.Lock()
	sessionID := c.sessionID
	c.mu.Unlock()
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mcp: http request: %w", err)
	}
	defer resp.Body.Close()

	if sid := resp.Header.Get("Mcp-Session-Id"); sid != "" {
		c.mu.Lock()
		c.sessionID = sid
		c.mu.Unlock()
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("mcp: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("mcp: http status %d", resp.StatusCode)
	}
	return respBody, nil
}

func (c *HTTPUpstream) activeSession() (*Session, error) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return nil, errors.New("mcp: http upstream not started")
	}
	return s, nil
}

func (c *HTTPUpstream) Initialize(ctx context.Context) (outbound.ServerInfo, outbound.Capabilities, error) {
	s, err := c.activeSession()
	if err != nil {
		return outbound.ServerInfo{}, nil, err
	}
	return s.Initialize(ctx)
}

func (c *HTTPUpstream) ListTools(ctx context.Context) ([]outbound.ToolInfo, error) {
	s, err := c.activeSession()
	if err != nil {
		return nil, err
	}
	return s.ListTools(ctx)
}

func (c *HTTPUpstream) CallTool(ctx context.Context, name string, arguments, meta json.RawMessage) (json.RawMessage, *outbound.RPCError, error) {
	s, err := c.activeSession()
	if err != nil {
		return nil, nil, err
	}
	return s.CallTool(ctx, name, arguments, meta)
}

func (c *HTTPUpstream) ListResources(ctx context.Context, params json.RawMessage) (json.RawMessage, *outbound.RPCError, error) {
	s, err := c.activeSession()
	if err != nil {
		return nil, nil, err
	}
	return s.ListResources(ctx, params)
}

func (c *HTTPUpstream) ReadResource(ctx context.Context, params json.RawMessage) (json.RawMessage, *outbound.RPCError, error) {
	s, err := c.activeSession()
	if err != nil {
		return nil, nil, err
	}
	return s.ReadResource(ctx, params)
}

func (c *HTTPUpstream) ListPrompts(ctx context.Context, params json.RawMessage) (json.RawMessage, *outbound.RPCError, error) {
	s, err := c.activeSession()
	if err != nil {
		return nil, nil, err
	}
	return s.ListPrompts(ctx, params)
}

func (c *HTTPUpstream) GetPrompt(ctx context.Context, params json.RawMessage) (json.RawMessage, *outbound.RPCError, error) {
	s, err := c.activeSession()
	if err != nil {
		return nil, nil, err
	}
	return s.GetPrompt(ctx, params)
}

func (c *HTTPUpstream) CallCount() int64 {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return 0
	}
	return s.CallCount()
}

// Close tears down the HTTP bridge and its pipes.
func (c *HTTPUpstream) Close() error {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()

	var err error
	if session != nil {
		err = session.Close() // closes reqW, which ends pump() and closes resW
	}
	c.wg.Wait()
	return err
}

var _ outbound.UpstreamClient = (*HTTPUpstream)(nil)
