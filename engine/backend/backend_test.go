package backend_test

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend/backendtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveCount(t *testing.T) {
	cases := map[backend.DrawMode]int{
		backend.DrawModeTriangles:     3,
		backend.DrawModeTriangleFan:   7,
		backend.DrawModeTriangleStrip: 7,
		backend.DrawModeLines:         18,
		backend.DrawModeLineStrip:     8,
		backend.DrawModeLineLoop:      9,
		backend.DrawModePoints:        9,
	}
	for mode, want := range cases {
		got, err := mode.PrimitiveCount(9)
		require.NoError(t, err, mode.String())
		assert.Equal(t, want, got, mode.String())
	}

	_, err := backend.DrawMode(42).PrimitiveCount(9)
	assert.Error(t, err)
}

func TestParseVersion(t *testing.T) {
	v, err := backend.ParseVersion("gles30")
	require.NoError(t, err)
	assert.Equal(t, backend.VersionGLES30, v)
	assert.True(t, v.IsGLES())
	assert.False(t, v.IsVulkan())

	v, err = backend.ParseVersion("VULKAN10")
	require.NoError(t, err)
	assert.True(t, v.IsVulkan())

	_, err = backend.ParseVersion("DX12")
	assert.Error(t, err)
}

func TestRegistryFirstBackendStaysActive(t *testing.T) {
	first, second := backendtest.New(), backendtest.New()
	r := backend.NewRegistry()
	r.RegisterFactory(first.Factory(), backend.VersionGLES30)
	r.RegisterFactory(second.Factory(), backend.VersionVulkan10)

	assert.Nil(t, r.Active())

	a, err := r.Create(backend.VersionGLES30)
	require.NoError(t, err)
	b, err := r.Create(backend.VersionVulkan10)
	require.NoError(t, err)

	assert.Same(t, a, r.Active())
	assert.NotSame(t, b, r.Active())
	assert.Equal(t, backend.VersionVulkan10, b.Version())
}

func TestRegistryUnknownVersion(t *testing.T) {
	r := backend.NewRegistry()
	_, err := r.Create(backend.VersionGLES20)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConfiguration)
	assert.Nil(t, r.Active())
}

func TestRegistryFactoryError(t *testing.T) {
	r := backend.NewRegistry(backend.WithFactory(func(backend.Version) (backend.DrawAPI, error) {
		return nil, errors.New("no display")
	}, backend.VersionGLES30))

	_, err := r.Create(backend.VersionGLES30)
	require.Error(t, err)
	assert.True(t, common.IsRetryable(err))
}

func TestDestroyTwice(t *testing.T) {
	fake := backendtest.New()
	b := backend.NewBackend(backend.VersionGLES30, fake, nil)

	require.NoError(t, b.Destroy())
	require.NoError(t, b.Destroy())
	assert.True(t, b.Destroyed())
	assert.Len(t, fake.CallsWithPrefix("Release"), 1)
}

func TestNewOptionsDefaults(t *testing.T) {
	o := backend.NewOptions(backend.WithMSAA(backend.MSAA4x))
	assert.Equal(t, backend.PresentModeVSync, o.PresentMode)
	assert.Equal(t, backend.MSAA4x, o.MSAA)
	assert.NotNil(t, o.Logger)
}
