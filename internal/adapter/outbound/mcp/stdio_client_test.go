package mcp

import (
	"context"
	"testing"
)

func TestNewStdioUpstreamRejectsEmptyCommand(t *testing.T) {
	if _, err := NewStdioUpstream(""); err == nil {
		t.Fatalf("NewStdioUpstream(\"\") = nil error, want rejection")
	}
	if _, err := NewStdioUpstream("   "); err == nil {
		t.Fatalf("NewStdioUpstream(whitespace) = nil error, want rejection")
	}
}

func TestNewStdioUpstreamSplitsArgs(t *testing.T) {
	u, err := NewStdioUpstream("mcp-server --flag value")
	if err != nil {
		t.Fatalf("NewStdioUpstream: %v", err)
	}
	if u.command != "mcp-server" {
		t.Fatalf("command = %q, want mcp-server", u.command)
	}
	if len(u.args) != 2 || u.args[0] != "--flag" || u.args[1] != "value" {
		t.Fatalf("args = %v, want [--flag value]", u.args)
	}
}

func TestStdioUpstreamMethodsFailBeforeStart(t *testing.T) {
	u, err := NewStdioUpstream("true")
	if err != nil {
		t.Fatalf("NewStdioUpstream: %v", err)
	}
	if _, _, err := u.Initialize(context.Background()); err == nil {
		t.Fatalf("Initialize before Start should fail")
	}
	if _, err := u.ListTools(context.Background()); err == nil {
		t.Fatalf("ListTools before Start should fail")
	}
	if u.CallCount() != 0 {
		t.Fatalf("CallCount before Start = %d, want 0", u.CallCount())
	}
}

func TestStdioUpstreamCloseWithoutStartIsNoop(t *testing.T) {
	u, err := NewStdioUpstream("true")
	if err != nil {
		t.Fatalf("NewStdioUpstream: %v", err)
	}
	if err := u.Close(); err != nil {
		t.Fatalf("Close before Start: %v", err)
	}
}

func TestStdioUpstreamStartAndClose(t *testing.T) {
	u, err := NewStdioUpstream("cat")
	if err != nil {
		t.Fatalf("NewStdioUpstream: %v", err)
	}
	if err := u.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := u.Start(context.Background()); err == nil {
		t.Fatalf("second Start should fail: upstream already started")
	}
	if err := u.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
