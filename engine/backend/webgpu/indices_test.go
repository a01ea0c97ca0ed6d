package webgpu

import (
	"testing"

	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandIndices(t *testing.T) {
	fan := expandIndices(backend.DrawModeTriangleFan, []uint32{0, 1, 2, 3, 4})
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3, 0, 3, 4}, fan)

	loop := expandIndices(backend.DrawModeLineLoop, []uint32{5, 6, 7})
	assert.Equal(t, []uint32{5, 6, 7, 5}, loop)

	tri := []uint32{0, 1, 2}
	assert.Equal(t, tri, expandIndices(backend.DrawModeTriangles, tri))

	assert.Nil(t, expandIndices(backend.DrawModeTriangleFan, []uint32{0, 1}))
}

func TestFanPrimitiveCountMatchesExpansion(t *testing.T) {
	want, err := backend.DrawModeTriangleFan.PrimitiveCount(9)
	require.NoError(t, err)
	assert.Len(t, expandIndices(backend.DrawModeTriangleFan, sequence(0, 9)), want*3)
}

func TestDecodeIndices(t *testing.T) {
	out, err := decodeIndices([]byte{9, 1, 2, 3}, backend.IndexUnsignedByte, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3}, out)

	out, err = decodeIndices([]byte{1, 0, 0, 1}, backend.IndexUnsignedShort, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 256}, out)

	_, err = decodeIndices([]byte{1, 0}, backend.IndexUnsignedInt, 0, 1)
	assert.Error(t, err)

	assert.Equal(t, []byte{1, 0, 0, 0, 2, 0, 0, 0}, encodeIndices([]uint32{1, 2}))
}

func TestEveryDrawModeHasTopology(t *testing.T) {
	for m := backend.DrawModePoints; m <= backend.DrawModeTriangleFan; m++ {
		_, ok := topologies[m]
		assert.True(t, ok, m.String())
	}
}
