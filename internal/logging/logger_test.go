package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   zapcore.Level
		wantOK bool
	}{
		{"debug", zapcore.DebugLevel, true},
		{"INFO", zapcore.InfoLevel, true},
		{"", zapcore.InfoLevel, true},
		{" warn ", zapcore.WarnLevel, true},
		{"warning", zapcore.WarnLevel, true},
		{"error", zapcore.ErrorLevel, true},
		{"verbose", zapcore.InfoLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestZapAdapter_WithCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := Wrap(zap.New(core).Sugar())

	l.With("alarm_id", "a-1").Info("alarm handled", "outcome", "dispatched")
	l.Warn("resource lookup failed")
	l.Error("dispatch failed", "error", "boom")

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "alarm handled", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "a-1", fields["alarm_id"])
	assert.Equal(t, "dispatched", fields["outcome"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}

func TestNew_ReturnsUsableLogger(t *testing.T) {
	l := New(Options{Level: "error", Console: true, Service: "test"})
	require.NotNil(t, l)
	l.Info("suppressed below threshold")
	Sync(l)
}
