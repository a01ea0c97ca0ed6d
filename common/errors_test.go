package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	cfg := ConfigurationError("DrawFrame", "contextCreated not called")
	assert.Equal(t, KindFatal, KindOf(cfg))
	assert.ErrorIs(t, cfg, ErrConfiguration)
	assert.Contains(t, cfg.Error(), "DrawFrame")

	dangling := DanglingReferenceError("GetTexture", "no texture %q", "missing")
	assert.Equal(t, KindFatal, KindOf(dangling))
	assert.ErrorIs(t, dangling, ErrDanglingReference)

	res := ResourceError("GetPipeline", errors.New("link failed"))
	assert.True(t, IsRetryable(res))
	assert.ErrorIs(t, res, ErrBackend)

	skip := SkippableError("renderMesh", res)
	assert.Equal(t, KindSkippable, KindOf(skip))
	assert.ErrorIs(t, skip, ErrBackend)
}

func TestResourceErrorKeepsNotFound(t *testing.T) {
	err := ResourceError("GetTexture", fmt.Errorf("%w: tex.png", ErrNotFound))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrBackend)
	assert.NoError(t, ResourceError("noop", nil))
}

func TestKindOfPlainErrorIsFatal(t *testing.T) {
	assert.Equal(t, KindFatal, KindOf(errors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestSeverestKind(t *testing.T) {
	skip := SkippableError("renderMesh", errors.New("draw failed"))
	retry := ResourceError("BeginFrame", errors.New("surface lost"))

	assert.Equal(t, KindSkippable, SeverestKind(errors.Join(skip, skip)))
	assert.Equal(t, KindRetryable, SeverestKind(errors.Join(skip, retry)))
	assert.Equal(t, KindFatal, SeverestKind(errors.Join(skip, errors.New("plain"))))
	assert.Equal(t, KindSkippable, SeverestKind(SkippableError("Render", errors.Join(retry, retry))))
}
