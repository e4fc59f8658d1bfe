package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/Microck/bansho/internal/port/outbound"
)

// StdioUpstream spawns UPSTREAM_CMD as a subprocess and speaks MCP over its
// stdin/stdout, wrapped in a correlated Session. One StdioUpstream owns
// exactly one subprocess for its lifetime.
type StdioUpstream struct {
	command string
	args    []string

	mu      sync.Mutex
	cmd     *exec.Cmd
	session *Session
}

// NewStdioUpstream builds an upstream client for rawCmd, split on whitespace
// into argv[0] plus args; quotes and backslash escapes are not interpreted,
// so an argument cannot contain a space. An empty rawCmd is a fatal config
// error.
func NewStdioUpstream(rawCmd string) (*StdioUpstream, error) {
	fields := strings.Fields(rawCmd)
	if len(fields) == 0 {
		return nil, errors.New("mcp: UPSTREAM_CMD must not be empty")
	}
	return &StdioUpstream{command: fields[0], args: fields[1:]}, nil
}

// Start launches the subprocess and begins the correlation session.
func (u *StdioUpstream) Start(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.cmd != nil {
		return errors.New("mcp: stdio upstream already started")
	}

	cmd := exec.CommandContext(ctx, u.command, u.args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("mcp: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return fmt.Errorf("mcp: stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = stdout.Close()
		return fmt.Errorf("mcp: start upstream: %w", err)
	}

	u.cmd = cmd
	u.session = NewSession(stdin, stdout, stdin)
	return nil
}

func (u *StdioUpstream) activeSession() (*Session, error) {
	u.mu.Lock()
	s := u.session
	u.mu.Unlock()
	if s == nil {
		return nil, errors.New("mcp: stdio upstream not started")
	}
	return s, nil
}

func (u *StdioUpstream) Initialize(ctx context.Context) (outbound.ServerInfo, outbound.Capabilities, error) {
	s, err := u.activeSession()
	if err != nil {
		return outbound.ServerInfo{}, nil, err
	}
	return s.Initialize(ctx)
}

func (u *StdioUpstream) ListTools(ctx context.Context) ([]outbound.ToolInfo, error) {
	s, err := u.activeSession()
	if err != nil {
		return nil, err
	}
	return s.ListTools(ctx)
}

func (u *StdioUpstream) CallTool(ctx context.Context, name string, arguments, meta json.RawMessage) (json.RawMessage, *outbound.RPCError, error) {
	s, err := u.activeSession()
	if err != nil {
		return nil, nil, err
	}
	return s.CallTool(ctx, name, arguments, meta)
}

func (u *StdioUpstream) ListResources(ctx context.Context, params json.RawMessage) (json.RawMessage, *outbound.RPCError, error) {
	s, err := u.activeSession()
	if err != nil {
		return nil, nil, err
	}
	return s.ListResources(ctx, params)
}

func (u *StdioUpstream) ReadResource(ctx context.Context, params json.RawMessage) (json.RawMessage, *outbound.RPCError, error) {
	s, err := u.activeSession()
	if err != nil {
		return nil, nil, err
	}
	return s.ReadResource(ctx, params)
}

func (u *StdioUpstream) ListPrompts(ctx context.Context, params json.RawMessage) (json.RawMessage, *outbound.RPCError, error) {
	s, err := u.activeSession()
	if err != nil {
		return nil, nil, err
	}
	return s.ListPrompts(ctx, params)
}

func (u *StdioUpstream) GetPrompt(ctx context.Context, params json.RawMessage) (json.RawMessage, *outbound.RPCError, error) {
	s, err := u.activeSession()
	if err != nil {
		return nil, nil, err
	}
	return s.GetPrompt(ctx, params)
}

func (u *StdioUpstream) CallCount() int64 {
	u.mu.Lock()
	s := u.session
	u.mu.Unlock()
	if s == nil {
		return 0
	}
	return s.CallCount()
}

// Close terminates the subprocess and its session.
func (u *StdioUpstream) Close() error {
	u.mu.Lock()
	cmd := u.cmd
	session := u.session
	u.cmd = nil
	u.session = nil
	u.mu.Unlock()

	var errs []error
	if session != nil {
		if err := session.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if cmd != nil && cmd.Process != nil {
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			errs = append(errs, err)
		}
		_ = cmd.Wait()
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

var _ outbound.UpstreamClient = (*StdioUpstream)(nil)
