package backend

import "fmt"

// DrawMode is the primitive topology of a draw call.
type DrawMode int

const (
	DrawModePoints DrawMode = iota
	DrawModeLines
	DrawModeLineLoop
	DrawModeLineStrip
	DrawModeTriangles
	DrawModeTriangleStrip
	DrawModeTriangleFan
)

var drawModeNames = map[DrawMode]string{
	DrawModePoints:        "POINTS",
	DrawModeLines:         "LINES",
	DrawModeLineLoop:      "LINE_LOOP",
	DrawModeLineStrip:     "LINE_STRIP",
	DrawModeTriangles:     "TRIANGLES",
	DrawModeTriangleStrip: "TRIANGLE_STRIP",
	DrawModeTriangleFan:   "TRIANGLE_FAN",
}

func (m DrawMode) String() string {
	if n, ok := drawModeNames[m]; ok {
		return n
	}
	return fmt.Sprintf("DrawMode(%d)", int(m))
}

// ParseDrawMode maps a topology name such as "TRIANGLE_STRIP" to its DrawMode.
func ParseDrawMode(name string) (DrawMode, error) {
	for m, n := range drawModeNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown draw mode %q", name)
}

// PrimitiveCount converts an index count into the number of primitives the mode produces.
//
// Parameters:
//   - indexCount: the number of indices (or vertices for non-indexed draws)
//
// Returns:
//   - int: the primitive count
//   - error: an error if the mode is unknown
func (m DrawMode) PrimitiveCount(indexCount int) (int, error) {
	switch m {
	case DrawModePoints:
		return indexCount, nil
	case DrawModeLineStrip:
		return indexCount - 1, nil
	case DrawModeLineLoop:
		return indexCount, nil
	case DrawModeLines:
		return indexCount * 2, nil
	case DrawModeTriangles:
		return indexCount / 3, nil
	case DrawModeTriangleStrip, DrawModeTriangleFan:
		return indexCount - 2, nil
	default:
		return 0, fmt.Errorf("no primitive count for %s", m)
	}
}
