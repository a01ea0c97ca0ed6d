package log

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(level Level) (*Logger, *observer.ObservedLogs) {
	atomicLevel := zap.NewAtomicLevelAt(toZapLevel(level))
	core, logs := observer.New(atomicLevel)
	return &Logger{zapLogger: zap.New(core), level: atomicLevel}, logs
}

func TestLevelFiltering(t *testing.T) {
	l, logs := newObserved(LevelInfo)
	l.Debug("hidden")
	l.Info("shown")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "shown", logs.All()[0].Message)

	l.SetLevel(LevelDebug)
	assert.Equal(t, LevelDebug, l.GetLevel())
	l.Debug("now shown")
	assert.Equal(t, 2, logs.Len())

	l.SetLevel(LevelError)
	l.Warn("dropped")
	assert.Equal(t, 2, logs.Len())
}

func TestFieldsAndWith(t *testing.T) {
	l, logs := newObserved(LevelDebug)
	child := l.With(String("component", "renderer"))
	child.Info("frame",
		Int("draws", 3),
		Float32("delta", 0.5),
		Duration("took", time.Millisecond),
		Bool("vsync", true),
		Uint64("frames", 9),
		Error(errors.New("device lost")),
		Error(nil),
	)
	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "renderer", ctx["component"])
	assert.Equal(t, int64(3), ctx["draws"])
	assert.Equal(t, true, ctx["vsync"])
	assert.Equal(t, uint64(9), ctx["frames"])
	assert.Equal(t, "device lost", ctx["error"])

	child.SetLevel(LevelWarn)
	assert.Equal(t, LevelWarn, l.GetLevel(), "children share the parent's level")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"":         LevelInfo,
		"DEBUG":    LevelDebug,
		" warning": LevelWarn,
		"error":    LevelError,
		"fatal":    LevelFatal,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNopAndProvide(t *testing.T) {
	nop := NewNop()
	assert.NotPanics(t, func() { nop.Error("ignored", Error(errors.New("x"))) })
	assert.NotNil(t, Provide())
}
