package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func newJSONLogger(buf *bytes.Buffer, level string) *Logger {
	return NewWithWriter(&Config{Level: level, Format: "json"}, "scribe", buf)
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("invalid json log line %q: %v", buf.String(), err)
	}
	return m
}

func TestLogger_FieldsAndComponent(t *testing.T) {
	var buf bytes.Buffer
	log := newJSONLogger(&buf, "info").WithComponent("recording")

	log.Info("chunk recorded", Fields(FieldSessionID, "s1", FieldChunkNumber, 3))

	m := decode(t, &buf)
	if m["message"] != "chunk recorded" {
		t.Errorf("message = %v", m["message"])
	}
	if m[FieldComponent] != "recording" {
		t.Errorf("component = %v", m[FieldComponent])
	}
	if m[FieldSessionID] != "s1" {
		t.Errorf("session_id = %v", m[FieldSessionID])
	}
	if m["service"] != "scribe" {
		t.Errorf("service = %v", m["service"])
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := newJSONLogger(&buf, "warn")

	log.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
	log.Warn("kept")
	if buf.Len() == 0 {
		t.Fatal("warn should be written")
	}
}

func TestLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithUserID(ContextWithRequestID(context.Background(), "req-1"), "u1")

	newJSONLogger(&buf, "info").WithContext(ctx).Info("hello")

	m := decode(t, &buf)
	if m[FieldRequestID] != "req-1" || m[FieldUserID] != "u1" {
		t.Errorf("context fields missing: %v", m)
	}
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("RequestIDFromContext = %q", got)
	}
}

func TestFields_OddArgs(t *testing.T) {
	m := Fields("a", 1, "b")
	if len(m) != 1 || m["a"] != 1 {
		t.Errorf("Fields() = %v", m)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cfg.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid level")
	}
}
