package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestContextHelpers(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "DEBUG")

	log.WithRequestID("req-1").
		WithDestination("script.google.com").
		WithError(errors.New("boom")).
		Info("relay finished")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["request_id"] != "req-1" {
		t.Errorf("request_id: got %v", entry["request_id"])
	}
	if entry["destination"] != "script.google.com" {
		t.Errorf("destination: got %v", entry["destination"])
	}
	if entry["error"] != "boom" {
		t.Errorf("error: got %v", entry["error"])
	}
	if entry["msg"] != "relay finished" {
		t.Errorf("msg: got %v", entry["msg"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "WARN")

	log.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info line written at WARN level: %q", buf.String())
	}
	log.Warn("shown")
	if buf.Len() == 0 {
		t.Fatal("warn line not written at WARN level")
	}
}
