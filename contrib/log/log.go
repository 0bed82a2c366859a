// Package log is the relay's structured logging facade: a small
// leveled key/value interface backed by go.uber.org/zap, with package
// level helpers so call sites never need to thread a logger through
// function signatures explicitly.
package log

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is a logging severity.
type Level int8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	default:
		return "info"
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// DefaultMessageKey is the keyvals key carrying the formatted message
// text, as opposed to a structured field.
const DefaultMessageKey = "msg"

// Logger is a leveled, key/value structured log sink. keyvals is an
// alternating key, value, key, value, ... sequence.
type Logger interface {
	Log(level Level, keyvals ...any) error
}

// Valuer is a deferred keyval value, re-evaluated on every Log call —
// used for things like a fresh timestamp on every line.
type Valuer func() any

// Timestamp returns a Valuer formatting time.Now with layout.
func Timestamp(layout string) Valuer {
	return func() any { return time.Now().Format(layout) }
}

type zapLogger struct {
	l *zap.Logger
}

// NewZapLogger adapts a *zap.Logger to Logger.
func NewZapLogger(l *zap.Logger) Logger {
	return &zapLogger{l: l}
}

func (z *zapLogger) Log(level Level, keyvals ...any) error {
	if len(keyvals) == 0 {
		return nil
	}
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "MISSING_VALUE")
	}

	msg := ""
	fields := make([]zap.Field, 0, len(keyvals)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key, _ := keyvals[i].(string)
		val := keyvals[i+1]
		if v, ok := val.(Valuer); ok {
			val = v()
		}
		if key == DefaultMessageKey {
			msg = fmt.Sprint(val)
			continue
		}
		fields = append(fields, zap.Any(key, val))
	}

	ce := z.l.Check(level.zapLevel(), msg)
	if ce == nil {
		return nil
	}
	ce.Write(fields...)
	return nil
}

// withLogger prepends a fixed set of keyvals — e.g. "ts", "pid" — to
// every entry logged through it before delegating to the wrapped
// Logger.
type withLogger struct {
	logger Logger
	prefix []any
}

// With returns a Logger that logs prefix ahead of every call's own
// keyvals. Valuer values in prefix are re-evaluated on each call.
func With(l Logger, prefix ...any) Logger {
	return &withLogger{logger: l, prefix: prefix}
}

func (w *withLogger) Log(level Level, keyvals ...any) error {
	kvs := make([]any, 0, len(w.prefix)+len(keyvals))
	kvs = append(kvs, w.prefix...)
	kvs = append(kvs, keyvals...)
	return w.logger.Log(level, kvs...)
}
