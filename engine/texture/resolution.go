package texture

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Resolution is the window height, in lines, a texture image was authored for. Images are scaled down when
// the window is noticeably smaller than that.
type Resolution int

const (
	Resolution240 Resolution = 240
	Resolution320 Resolution = 320
	Resolution480 Resolution = 480
	Resolution540 Resolution = 540
	Resolution720 Resolution = 720
	ResolutionHD  Resolution = 1080
	ResolutionUHD Resolution = 2160
)

const resolutionBias = 0.9

var resolutions = []Resolution{Resolution240, Resolution320, Resolution480, Resolution540, Resolution720, ResolutionHD, ResolutionUHD}

var resolutionNames = map[string]Resolution{
	"TWO_FORTY":    Resolution240,
	"THREE_TWENTY": Resolution320,
	"FOUR_EIGHTY":  Resolution480,
	"FIVE_FORTY":   Resolution540,
	"SEVEN_TWENTY": Resolution720,
	"HD":           ResolutionHD,
	"ULTRA_HD":     ResolutionUHD,
}

// Lines returns the authored window height.
func (r Resolution) Lines() int {
	return int(r)
}

func (r Resolution) String() string {
	for name, v := range resolutionNames {
		if v == r {
			return name
		}
	}
	return strconv.Itoa(int(r))
}

// ParseResolution accepts a bucket name such as "HD" or a line count such as "1080".
func ParseResolution(s string) (Resolution, error) {
	if r, ok := resolutionNames[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return r, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("unknown resolution %q", s)
	}
	for _, r := range resolutions {
		if int(r) == n {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unsupported resolution %d", n)
}

// ResolutionFor returns the largest bucket not taller than height, or the smallest bucket.
func ResolutionFor(height int) Resolution {
	best := resolutions[0]
	for _, r := range resolutions {
		if int(r) <= height {
			best = r
		}
	}
	return best
}

// ScaleFor returns the factor an image authored for r is scaled by in a window of the given height, and
// whether scaling applies. Scaling only kicks in below the bias so small mismatches keep full detail.
//
// Parameters:
//   - windowHeight: the current window height in pixels
//
// Returns:
//   - float32: windowHeight / r.Lines()
//   - bool: true if the image should be scaled down
func (r Resolution) ScaleFor(windowHeight int) (float32, bool) {
	if r <= 0 || windowHeight <= 0 {
		return 1, false
	}
	scale := float32(windowHeight) / float32(r)
	return scale, scale < resolutionBias
}

func (r *Resolution) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseResolution(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*r = parsed
	return nil
}
