package common

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(size)*len(data))
}

// BytesToFloat32s reinterprets a little-endian float buffer. The input length must be a multiple of 4.
func BytesToFloat32s(data []byte) []float32 {
	if len(data) < 4 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), len(data)/4)
}

// ModelMatrix builds a translate * rotate(Y, X, Z) * scale matrix.
//
// Parameters:
//   - position: translation in world space
//   - rotation: Euler angles in radians around X, Y and Z
//   - scale: scale factors along each axis
//
// Returns:
//   - mgl32.Mat4: the column-major model matrix
func ModelMatrix(position, rotation, scale mgl32.Vec3) mgl32.Mat4 {
	r := mgl32.HomogRotate3DY(rotation.Y()).
		Mul4(mgl32.HomogRotate3DX(rotation.X())).
		Mul4(mgl32.HomogRotate3DZ(rotation.Z()))
	return mgl32.Translate3D(position.X(), position.Y(), position.Z()).
		Mul4(r).
		Mul4(mgl32.Scale3D(scale.X(), scale.Y(), scale.Z()))
}

// MatrixStack is a LIFO of matrices used while walking a node hierarchy.
type MatrixStack struct {
	items []mgl32.Mat4
}

// Push saves m on top of the stack.
func (s *MatrixStack) Push(m mgl32.Mat4) {
	s.items = append(s.items, m)
}

// Pop removes and returns the top matrix, or identity when the stack is empty.
func (s *MatrixStack) Pop() mgl32.Mat4 {
	if len(s.items) == 0 {
		return mgl32.Ident4()
	}
	m := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return m
}

// Len returns the stack depth.
func (s *MatrixStack) Len() int {
	return len(s.items)
}

// Reset empties the stack while keeping its storage.
func (s *MatrixStack) Reset() {
	s.items = s.items[:0]
}

// Coalesce returns value unless it is the zero value, in which case fallback is returned.
func Coalesce[T comparable](value, fallback T) T {
	var zero T
	if value == zero {
		return fallback
	}
	return value
}
