// Package logging builds the zap-backed types.Logger used by every entry point.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"safirnotify/internal/types"
)

// zapAdapter wraps *zap.SugaredLogger to implement types.Logger. The sugared
// logger's *w methods already take alternating key/value pairs, so only With
// needs adapting to return the interface type.
type zapAdapter struct {
	logger *zap.SugaredLogger
}

func (a *zapAdapter) Info(msg string, args ...any)  { a.logger.Infow(msg, args...) }
func (a *zapAdapter) Error(msg string, args ...any) { a.logger.Errorw(msg, args...) }
func (a *zapAdapter) Warn(msg string, args ...any)  { a.logger.Warnw(msg, args...) }
func (a *zapAdapter) With(args ...any) types.Logger {
	return &zapAdapter{logger: a.logger.With(args...)}
}

// Sync flushes buffered log entries. Safe to call on any types.Logger.
func Sync(l types.Logger) {
	if a, ok := l.(*zapAdapter); ok {
		//nolint:errcheck // Sync on stdout returns EINVAL on some platforms.
		_ = a.logger.Sync()
	}
}

// Options controls the encoder and threshold of a new logger.
type Options struct {
	// Level is one of debug, info, warn, error. Unknown values fall back to info.
	Level string
	// Console selects the human-readable encoder (local development).
	Console bool
	// Service is attached to every record.
	Service string
}

// New creates a types.Logger writing to stdout.
func New(opts Options) types.Logger {
	return Wrap(zap.New(newCore(opts, zapcore.AddSync(os.Stdout))).Sugar().With("service", opts.Service))
}

// Wrap adapts an existing sugared logger. Used by tests with zaptest/observer.
func Wrap(l *zap.SugaredLogger) types.Logger {
	return &zapAdapter{logger: l}
}

func newCore(opts Options, sink zapcore.WriteSyncer) zapcore.Core {
	level, _ := ParseLevel(opts.Level)

	encCfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var enc zapcore.Encoder
	if opts.Console {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	return zapcore.NewCore(enc, sink, zap.NewAtomicLevelAt(level))
}

// ParseLevel converts a LOG_LEVEL string to a zap level. The boolean is false
// when the input was not recognized and the info default was used.
func ParseLevel(s string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel, true
	case "info", "":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

var _ types.Logger = (*zapAdapter)(nil)
