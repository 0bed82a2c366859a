package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingLogger struct {
	calls [][]any
}

func (r *recordingLogger) Log(level Level, keyvals ...any) error {
	r.calls = append(r.calls, append([]any{level}, keyvals...))
	return nil
}

func TestHelperFormatsMessage(t *testing.T) {
	rl := &recordingLogger{}
	h := NewHelper(rl)
	h.Infof("hello %s", "world")

	require := rl.calls[0]
	assert.Equal(t, LevelInfo, require[0])
	assert.Equal(t, DefaultMessageKey, require[1])
	assert.Equal(t, "hello world", require[2])
}

func TestWithPrependsFixedKeyvals(t *testing.T) {
	rl := &recordingLogger{}
	l := With(rl, "service", "tcrelay")
	_ = l.Log(LevelWarn, DefaultMessageKey, "uh oh")

	assert.Equal(t, []any{LevelWarn, "service", "tcrelay", DefaultMessageKey, "uh oh"}, rl.calls[0])
}

func TestContextFallsBackToDefault(t *testing.T) {
	h := Context(context.Background())
	assert.NotNil(t, h)
}

func TestContextReturnsAttachedLogger(t *testing.T) {
	rl := &recordingLogger{}
	ctx := WithContext(context.Background(), rl)
	h := Context(ctx)
	h.Errorf("boom")

	assert.Len(t, rl.calls, 1)
	assert.Equal(t, LevelError, rl.calls[0][0])
}

func TestSetLoggerAndGetLogger(t *testing.T) {
	rl := &recordingLogger{}
	old := GetLogger()
	defer SetLogger(old)

	SetLogger(rl)
	Infof("test %d", 1)

	assert.Len(t, rl.calls, 1)
}
