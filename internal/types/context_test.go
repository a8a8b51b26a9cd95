package types

import (
	"context"
	"testing"
)

// mockLogger implements the Logger interface for testing purposes.
type mockLogger struct {
	messages []string
}

func (m *mockLogger) Info(msg string, args ...any)  { m.messages = append(m.messages, "info:"+msg) }
func (m *mockLogger) Error(msg string, args ...any) { m.messages = append(m.messages, "error:"+msg) }
func (m *mockLogger) Warn(msg string, args ...any)  { m.messages = append(m.messages, "warn:"+msg) }
func (m *mockLogger) With(args ...any) Logger       { return m }

func TestTraceID(t *testing.T) {
	t.Run("round-trip", func(t *testing.T) {
		ctx := WithTraceID(context.Background(), "trace-123")
		if got := GetTraceID(ctx); got != "trace-123" {
			t.Errorf("GetTraceID() = %q, want trace-123", got)
		}
	})

	t.Run("empty context", func(t *testing.T) {
		if got := GetTraceID(context.Background()); got != "" {
			t.Errorf("GetTraceID() = %q, want empty", got)
		}
	})

	t.Run("inner value wins", func(t *testing.T) {
		ctx := WithTraceID(WithTraceID(context.Background(), "outer"), "inner")
		if got := GetTraceID(ctx); got != "inner" {
			t.Errorf("GetTraceID() = %q, want inner", got)
		}
	})
}

func TestLoggerFromContext(t *testing.T) {
	fallback := &mockLogger{}

	t.Run("returns stored logger", func(t *testing.T) {
		stored := &mockLogger{}
		ctx := WithLogger(context.Background(), stored)

		got := LoggerFromContext(ctx, fallback)
		got.Info("hello")

		if len(stored.messages) != 1 || stored.messages[0] != "info:hello" {
			t.Errorf("stored logger messages = %v", stored.messages)
		}
		if len(fallback.messages) != 0 {
			t.Errorf("fallback should not be used, got %v", fallback.messages)
		}
	})

	t.Run("falls back when unset", func(t *testing.T) {
		got := LoggerFromContext(context.Background(), fallback)
		if got != Logger(fallback) {
			t.Error("expected the fallback logger")
		}
	})
}

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	l.Info("a")
	l.Warn("b")
	l.Error("c")
	if _, ok := l.With("k", "v").(NopLogger); !ok {
		t.Error("With() should return a NopLogger")
	}
}
