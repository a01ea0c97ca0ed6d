package common

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Plane is the plane dot(Normal, p) + Distance = 0. The positive half-space is inside.
type Plane struct {
	Normal   mgl32.Vec3
	Distance float32
}

// Frustum holds the six clip planes of a view volume.
type Frustum [6]Plane

// Frustum plane indices.
const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
	FrustumFar
)

// FrustumFromMatrix extracts the clip planes of a GL style clip matrix with the Gribb/Hartmann method.
// Passed a model-view-projection matrix the planes are in model space, so object bounds can be tested
// without transforming them.
//
// Parameters:
//   - m: the combined clip matrix
//
// Returns:
//   - Frustum: the normalized planes
func FrustumFromMatrix(m mgl32.Mat4) Frustum {
	r0, r1, r2, r3 := m.Row(0), m.Row(1), m.Row(2), m.Row(3)
	rows := [6]mgl32.Vec4{
		FrustumLeft:   r3.Add(r0),
		FrustumRight:  r3.Sub(r0),
		FrustumBottom: r3.Add(r1),
		FrustumTop:    r3.Sub(r1),
		FrustumNear:   r3.Add(r2),
		FrustumFar:    r3.Sub(r2),
	}

	var f Frustum
	for i, r := range rows {
		p := Plane{Normal: r.Vec3(), Distance: r[3]}
		if l := p.Normal.Len(); l > 0 {
			p.Normal = p.Normal.Mul(1 / l)
			p.Distance /= l
		}
		f[i] = p
	}
	return f
}

// IntersectsAABB reports whether the box [min, max] is at least partly inside f. Boxes close to a
// frustum corner may be reported inside although they are not.
func (f Frustum) IntersectsAABB(min, max mgl32.Vec3) bool {
	for _, p := range f {
		// the box corner furthest along the plane normal
		var v mgl32.Vec3
		for i := range 3 {
			if p.Normal[i] >= 0 {
				v[i] = max[i]
			} else {
				v[i] = min[i]
			}
		}
		if p.Normal.Dot(v)+p.Distance < 0 {
			return false
		}
	}
	return true
}
