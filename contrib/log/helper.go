package log

import (
	"context"
	"fmt"
)

// Helper wraps a Logger with printf-style convenience methods at each
// level, plus a structured Errorw for callers that already have
// key/value pairs in hand.
type Helper struct {
	logger Logger
}

// NewHelper returns a Helper backed by logger.
func NewHelper(logger Logger) *Helper {
	return &Helper{logger: logger}
}

func (h *Helper) Debug(a ...any) { h.log(LevelDebug, fmt.Sprint(a...)) }
func (h *Helper) Debugf(format string, a ...any) { h.log(LevelDebug, fmt.Sprintf(format, a...)) }
func (h *Helper) Info(a ...any)  { h.log(LevelInfo, fmt.Sprint(a...)) }
func (h *Helper) Infof(format string, a ...any)  { h.log(LevelInfo, fmt.Sprintf(format, a...)) }
func (h *Helper) Warn(a ...any)  { h.log(LevelWarn, fmt.Sprint(a...)) }
func (h *Helper) Warnf(format string, a ...any)  { h.log(LevelWarn, fmt.Sprintf(format, a...)) }
func (h *Helper) Error(a ...any) { h.log(LevelError, fmt.Sprint(a...)) }
func (h *Helper) Errorf(format string, a ...any) { h.log(LevelError, fmt.Sprintf(format, a...)) }
func (h *Helper) Fatal(a ...any) { h.log(LevelFatal, fmt.Sprint(a...)) }
func (h *Helper) Fatalf(format string, a ...any) { h.log(LevelFatal, fmt.Sprintf(format, a...)) }

// Errorw logs a structured error entry from explicit keyvals, e.g.
// h.Errorw(log.DefaultMessageKey, "upstream failed", "mirror", url).
func (h *Helper) Errorw(keyvals ...any) {
	_ = h.logger.Log(LevelError, keyvals...)
}

func (h *Helper) log(level Level, msg string) {
	_ = h.logger.Log(level, DefaultMessageKey, msg)
}

type helperContextKey struct{}

// Context returns a Helper bound to ctx's logger, falling back to the
// process-wide default when none was attached.
func Context(ctx context.Context) *Helper {
	if h, ok := ctx.Value(helperContextKey{}).(*Helper); ok {
		return h
	}
	return NewHelper(GetLogger())
}

// WithContext attaches logger to ctx for later retrieval via Context.
func WithContext(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, helperContextKey{}, NewHelper(logger))
}
