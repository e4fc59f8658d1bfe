package config

import (
	"log/slog"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerBuildsNonNilLogger(t *testing.T) {
	s := &Settings{LogLevel: "debug", LogFormat: "text"}
	if logger := s.NewLogger(); logger == nil {
		t.Fatalf("NewLogger() = nil")
	}
	s.LogFormat = "json"
	if logger := s.NewLogger(); logger == nil {
		t.Fatalf("NewLogger() = nil for json format")
	}
}
