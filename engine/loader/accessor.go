package loader

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/nucleus-go/common"
)

// ReadAccessorData copies the elements of a into a tightly packed byte slice, removing any buffer view stride.
//
// Parameters:
//   - a: a resolved accessor whose buffer is loaded
//
// Returns:
//   - []byte: Count * ElementSize bytes
//   - error: an argument error for sparse or unbacked accessors, or data outside the buffer
func ReadAccessorData(a *Accessor) ([]byte, error) {
	const op = "loader.ReadAccessorData"
	if a.Sparse != nil {
		return nil, common.ArgumentError(op, "sparse accessors are not supported")
	}
	if a.View == nil || a.View.Buf == nil {
		return nil, common.ArgumentError(op, "accessor %q has no resolved bufferView", a.Name)
	}
	if !a.View.Buf.Loaded() {
		return nil, common.ArgumentError(op, "accessor %q buffer is not loaded", a.Name)
	}

	elementSize := a.ElementSize()
	if elementSize == 0 {
		return nil, common.ArgumentError(op, "accessor %q has unknown type %s/%d", a.Name, a.Type, a.ComponentType)
	}
	stride := elementSize
	if s := a.View.Stride(); s > 0 {
		stride = s
	}

	data := a.View.Buf.Data
	base := a.View.ByteOffset + a.ByteOffset
	if a.Count > 0 && base+(a.Count-1)*stride+elementSize > len(data) {
		return nil, common.ArgumentError(op, "accessor %q reads past its buffer", a.Name)
	}

	result := make([]byte, a.Count*elementSize)
	for i := 0; i < a.Count; i++ {
		src := base + i*stride
		copy(result[i*elementSize:(i+1)*elementSize], data[src:src+elementSize])
	}
	return result, nil
}

// ReadFloats reads a as float32 values, Count * Components long. Integer components are converted, and
// normalized to [0,1] or [-1,1] when the accessor says so.
func ReadFloats(a *Accessor) ([]float32, error) {
	raw, err := ReadAccessorData(a)
	if err != nil {
		return nil, err
	}
	n := a.Count * a.Components()
	out := make([]float32, n)
	size := componentTypeSize(a.ComponentType)
	for i := 0; i < n; i++ {
		b := raw[i*size:]
		switch a.ComponentType {
		case ComponentFloat:
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b))
		case ComponentUnsignedByte:
			out[i] = normalize(float32(b[0]), 255, a.Normalized)
		case ComponentByte:
			out[i] = normalize(float32(int8(b[0])), 127, a.Normalized)
		case ComponentUnsignedShort:
			out[i] = normalize(float32(binary.LittleEndian.Uint16(b)), 65535, a.Normalized)
		case ComponentShort:
			out[i] = normalize(float32(int16(binary.LittleEndian.Uint16(b))), 32767, a.Normalized)
		case ComponentUnsignedInt:
			out[i] = float32(binary.LittleEndian.Uint32(b))
		}
	}
	return out, nil
}

// ReadIndices reads a scalar index accessor as uint32 values.
func ReadIndices(a *Accessor) ([]uint32, error) {
	if a.Type != TypeScalar {
		return nil, common.ArgumentError("loader.ReadIndices", "index accessor is not SCALAR: %s", a.Type)
	}
	raw, err := ReadAccessorData(a)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, a.Count)
	for i := range out {
		switch a.ComponentType {
		case ComponentUnsignedByte:
			out[i] = uint32(raw[i])
		case ComponentUnsignedShort:
			out[i] = uint32(binary.LittleEndian.Uint16(raw[i*2:]))
		case ComponentUnsignedInt:
			out[i] = binary.LittleEndian.Uint32(raw[i*4:])
		default:
			return nil, common.ArgumentError("loader.ReadIndices", "unsupported index component type: %d", a.ComponentType)
		}
	}
	return out, nil
}

// Interleave packs the float data of accessors with equal counts into one vertex stream.
//
// Parameters:
//   - accessors: the accessors to pack, in stream order
//
// Returns:
//   - []float32: the interleaved data
//   - []int: the float offset of each accessor inside one vertex
//   - int: the vertex stride in floats
//   - error: an argument error if the counts differ or an accessor cannot be read
func Interleave(accessors ...*Accessor) ([]float32, []int, int, error) {
	if len(accessors) == 0 {
		return nil, nil, 0, nil
	}
	count := accessors[0].Count
	offsets := make([]int, len(accessors))
	columns := make([][]float32, len(accessors))
	stride := 0
	for i, a := range accessors {
		if a.Count != count {
			return nil, nil, 0, common.ArgumentError("loader.Interleave", "accessor %q has %d elements, want %d", a.Name, a.Count, count)
		}
		vals, err := ReadFloats(a)
		if err != nil {
			return nil, nil, 0, err
		}
		columns[i] = vals
		offsets[i] = stride
		stride += a.Components()
	}

	out := make([]float32, count*stride)
	for i, a := range accessors {
		n := a.Components()
		for v := 0; v < count; v++ {
			copy(out[v*stride+offsets[i]:v*stride+offsets[i]+n], columns[i][v*n:(v+1)*n])
		}
	}
	return out, offsets, stride, nil
}

func normalize(v, maxValue float32, normalized bool) float32 {
	if !normalized {
		return v
	}
	return max(v/maxValue, -1)
}
