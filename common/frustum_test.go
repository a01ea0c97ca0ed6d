package common

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestFrustumIdentityIsClipCube(t *testing.T) {
	f := FrustumFromMatrix(mgl32.Ident4())
	assert.InDelta(t, 1, f[FrustumLeft].Normal.X(), 1e-6)
	assert.InDelta(t, 1, f[FrustumLeft].Distance, 1e-6)

	assert.True(t, f.IntersectsAABB(mgl32.Vec3{-0.5, -0.5, -0.5}, mgl32.Vec3{0.5, 0.5, 0.5}))
	assert.True(t, f.IntersectsAABB(mgl32.Vec3{0.9, 0.9, 0.9}, mgl32.Vec3{3, 3, 3}), "partly inside")
	assert.False(t, f.IntersectsAABB(mgl32.Vec3{2, 0, 0}, mgl32.Vec3{3, 1, 1}))
}

func TestFrustumPerspective(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(90), 1, 1, 10)
	view := mgl32.LookAtV(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	f := FrustumFromMatrix(proj.Mul4(view))

	tests := []struct {
		name     string
		min, max mgl32.Vec3
		inside   bool
	}{
		{"ahead", mgl32.Vec3{-1, -1, -6}, mgl32.Vec3{1, 1, -4}, true},
		{"behind", mgl32.Vec3{-1, -1, 4}, mgl32.Vec3{1, 1, 6}, false},
		{"beyond far", mgl32.Vec3{-1, -1, -20}, mgl32.Vec3{1, 1, -12}, false},
		{"off to the side", mgl32.Vec3{50, -1, -6}, mgl32.Vec3{52, 1, -4}, false},
		{"crossing near", mgl32.Vec3{-0.1, -0.1, -2}, mgl32.Vec3{0.1, 0.1, -0.5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.inside, f.IntersectsAABB(tt.min, tt.max))
		})
	}

	model := mgl32.Translate3D(0, 0, 10)
	moved := FrustumFromMatrix(proj.Mul4(view).Mul4(model))
	assert.False(t, moved.IntersectsAABB(mgl32.Vec3{-1, -1, -6}, mgl32.Vec3{1, 1, -4}), "planes follow the model matrix")
	assert.True(t, moved.IntersectsAABB(mgl32.Vec3{-1, -1, -16}, mgl32.Vec3{1, 1, -14}))
}
