package webgpu

import (
	"encoding/binary"
	"fmt"

	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/cogentcore/webgpu/wgpu"
)

var topologies = map[backend.DrawMode]wgpu.PrimitiveTopology{
	backend.DrawModePoints:        wgpu.PrimitiveTopologyPointList,
	backend.DrawModeLines:         wgpu.PrimitiveTopologyLineList,
	backend.DrawModeLineStrip:     wgpu.PrimitiveTopologyLineStrip,
	backend.DrawModeLineLoop:      wgpu.PrimitiveTopologyLineStrip,
	backend.DrawModeTriangles:     wgpu.PrimitiveTopologyTriangleList,
	backend.DrawModeTriangleStrip: wgpu.PrimitiveTopologyTriangleStrip,
	backend.DrawModeTriangleFan:   wgpu.PrimitiveTopologyTriangleList,
}

// needsExpansion reports whether the mode has no native topology and is drawn through rewritten indices.
func needsExpansion(mode backend.DrawMode) bool {
	return mode == backend.DrawModeTriangleFan || mode == backend.DrawModeLineLoop
}

// decodeIndices widens count indices of type t starting at offset into uint32.
func decodeIndices(data []byte, t backend.IndexType, offset, count int) ([]uint32, error) {
	size := t.Size()
	if offset < 0 || offset+count*size > len(data) {
		return nil, fmt.Errorf("index range %d+%d*%d exceeds %d bytes", offset, count, size, len(data))
	}
	out := make([]uint32, count)
	for i := range out {
		p := offset + i*size
		switch t {
		case backend.IndexUnsignedByte:
			out[i] = uint32(data[p])
		case backend.IndexUnsignedShort:
			out[i] = uint32(binary.LittleEndian.Uint16(data[p:]))
		default:
			out[i] = binary.LittleEndian.Uint32(data[p:])
		}
	}
	return out, nil
}

// sequence returns first, first+1, ... count indices.
func sequence(first, count int) []uint32 {
	out := make([]uint32, count)
	for i := range out {
		out[i] = uint32(first + i)
	}
	return out
}

// expandIndices rewrites fan and loop index lists as triangle lists and closed line strips.
// Other modes are returned unchanged.
func expandIndices(mode backend.DrawMode, indices []uint32) []uint32 {
	switch mode {
	case backend.DrawModeTriangleFan:
		if len(indices) < 3 {
			return nil
		}
		out := make([]uint32, 0, (len(indices)-2)*3)
		for i := 1; i+1 < len(indices); i++ {
			out = append(out, indices[0], indices[i], indices[i+1])
		}
		return out
	case backend.DrawModeLineLoop:
		if len(indices) < 2 {
			return indices
		}
		return append(append([]uint32(nil), indices...), indices[0])
	default:
		return indices
	}
}

func encodeIndices(indices []uint32) []byte {
	out := make([]byte, len(indices)*4)
	for i, v := range indices {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}
