package log

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
)

// DefaultLogger is a process-wide zap-backed Logger writing to stderr
// at info level, used as the base before SetLogger installs an
// operator-configured one.
var DefaultLogger Logger = NewZapLogger(zap.Must(zap.NewProduction()))

var global atomic.Pointer[Logger]

func init() {
	global.Store(&DefaultLogger)
}

// SetLogger installs l as the process-wide default logger used by the
// package-level helpers below.
func SetLogger(l Logger) {
	global.Store(&l)
}

// GetLogger returns the current process-wide default logger.
func GetLogger() Logger {
	return *global.Load()
}

func defaultHelper() *Helper {
	return NewHelper(GetLogger())
}

func Debug(a ...any)                 { defaultHelper().Debug(a...) }
func Debugf(format string, a ...any) { defaultHelper().Debugf(format, a...) }
func Info(a ...any)                  { defaultHelper().Info(a...) }
func Infof(format string, a ...any)  { defaultHelper().Infof(format, a...) }
func Warn(a ...any)                  { defaultHelper().Warn(a...) }
func Warnf(format string, a ...any)  { defaultHelper().Warnf(format, a...) }
func Error(a ...any)                 { defaultHelper().Error(a...) }
func Errorf(format string, a ...any) { defaultHelper().Errorf(format, a...) }

// Fatal logs at fatal level then exits the process, matching the
// standard library log.Fatal contract callers expect.
func Fatal(a ...any) {
	defaultHelper().Fatal(a...)
	os.Exit(1)
}

// Fatalf is Fatal with printf-style formatting.
func Fatalf(format string, a ...any) {
	defaultHelper().Fatalf(format, a...)
	os.Exit(1)
}
