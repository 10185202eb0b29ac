package client

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("WARN", &buf)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("messages below WARN were logged: %s", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("WARN and ERROR messages missing: %s", out)
	}
}

func TestLoggerJSONShape(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("INFO", &buf)

	logger.Info("query completed",
		String("trace_id", "abc"),
		Int("status", 200),
		Duration("duration", 150*time.Millisecond))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, buf.String())
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %v, want INFO", entry["level"])
	}
	if entry["message"] != "query completed" {
		t.Errorf("message = %v, want the log message", entry["message"])
	}
	if entry["trace_id"] != "abc" {
		t.Errorf("trace_id = %v, want abc", entry["trace_id"])
	}
	if entry["status"] != float64(200) {
		t.Errorf("status = %v, want 200", entry["status"])
	}
	if entry["duration"] != "150ms" {
		t.Errorf("duration = %v, want 150ms", entry["duration"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("timestamp field missing")
	}
}

func TestLoggerRedactsSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("INFO", &buf)

	logger.Info("connecting",
		String("password", "hunter2"),
		String("Authorization", "Bearer tok"),
		String("endpoint", "http://localhost:8080"))

	out := buf.String()
	if strings.Contains(out, "hunter2") || strings.Contains(out, "Bearer tok") {
		t.Errorf("sensitive values leaked: %s", out)
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Errorf("redaction marker missing: %s", out)
	}
	if !strings.Contains(out, "http://localhost:8080") {
		t.Errorf("non-sensitive field dropped: %s", out)
	}
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger("INFO", &buf)
	logger := base.WithFields(String("component", "pool"))

	logger.Info("handle retired")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["component"] != "pool" {
		t.Errorf("component = %v, want pool", entry["component"])
	}

	// The base logger is unchanged.
	buf.Reset()
	base.Info("plain")
	if strings.Contains(buf.String(), "component") {
		t.Error("WithFields mutated the base logger")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"DEBUG", DEBUG},
		{"debug", DEBUG},
		{"Info", INFO},
		{"WARN", WARN},
		{"ERROR", ERROR},
		{"bogus", INFO},
		{"", INFO},
	}

	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNoopLoggerDiscards(t *testing.T) {
	logger := NewNoopLogger()

	// Must accept any field shape without panicking or writing output.
	logger.Debug("a")
	logger.Info("b", Int64("n", 1), Float64("f", 0.5), Bool("ok", true))
	logger.Warn("c", Error("err", nil))
	logger.Error("d")

	if l := logger.WithFields(String("k", "v")); l == nil {
		t.Fatal("WithFields returned nil")
	}
}

func TestTraceIDField(t *testing.T) {
	ctx := ContextWithTraceID(context.Background(), "trace-123")

	field := TraceIDField(ctx)
	if field.Key != "trace_id" || field.Value != "trace-123" {
		t.Errorf("TraceIDField = %+v, want trace_id=trace-123", field)
	}
}
