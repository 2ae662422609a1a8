package logctx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

// TestTraceHandler_NoSpanContext verifies that logs without span context
// do NOT include trace_id or span_id fields.
func TestTraceHandler_NoSpanContext(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(NewTraceHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{})))

	logger.InfoContext(context.Background(), "test message", "key", "value")

	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse JSON log output: %v", err)
	}

	if _, exists := logEntry["trace_id"]; exists {
		t.Errorf("trace_id should not be present without span context, got: %v", logEntry["trace_id"])
	}

	if _, exists := logEntry["span_id"]; exists {
		t.Errorf("span_id should not be present without span context, got: %v", logEntry["span_id"])
	}

	if logEntry["msg"] != "test message" {
		t.Errorf("expected msg='test message', got: %v", logEntry["msg"])
	}

	if logEntry["key"] != "value" {
		t.Errorf("expected key='value', got: %v", logEntry["key"])
	}
}

// TestTraceHandler_NilHandler verifies the constructor rejects nil handlers.
func TestTraceHandler_NilHandler(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for nil handler")
		}
	}()

	NewTraceHandler(nil)
}

// TestLoggerFromContext verifies fallback to the default logger.
func TestLoggerFromContext(t *testing.T) {
	ctx := context.Background()

	if LoggerFromContext(ctx) != slog.Default() {
		t.Error("expected default logger for bare context")
	}

	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	ctx = WithLogger(ctx, logger)

	if LoggerFromContext(ctx) != logger {
		t.Error("expected logger stored in context")
	}
}
