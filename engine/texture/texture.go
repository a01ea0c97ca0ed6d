// Package texture holds the CPU-side description of textures: the tagged texture kinds, sampling parameters,
// external references, .tex descriptors, image loading and render-target attachments. GPU names are filled in
// by the asset cache when a texture is uploaded.
package texture

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/nucleus-go/common"
)

// Kind is the variant tag of a Texture.
type Kind int

const (
	KindTexture2D Kind = iota
	KindTiled
	KindUV
	KindDynamic
	KindUntextured
)

var kindNames = map[Kind]string{
	KindTexture2D:  "texture2d",
	KindTiled:      "tiled",
	KindUV:         "uv",
	KindDynamic:    "dynamic",
	KindUntextured: "untextured",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Payload is the kind-specific part of a Texture. The set of payloads is closed.
type Payload interface {
	Kind() Kind
	payload()
}

// Tiled splits the image into equally sized frames, row by row.
type Tiled struct {
	Columns int
	Rows    int

	// Frames may be less than Columns*Rows when the last row is partial. Zero means every cell.
	Frames int
}

// Region is a rectangle in normalized texture coordinates.
type Region struct {
	X      float32 `json:"x" yaml:"x"`
	Y      float32 `json:"y" yaml:"y"`
	Width  float32 `json:"width" yaml:"width"`
	Height float32 `json:"height" yaml:"height"`
}

// UVAtlas addresses frames by explicit regions.
type UVAtlas struct {
	Regions []Region
}

// Dynamic is a texture rendered into at runtime, backed by a render-target attachment.
type Dynamic struct {
	RenderTargetID string
	Attachment     AttachmentPoint
	InitColor      [4]float32
}

// Untextured marks a material that samples no image.
type Untextured struct{}

func (Tiled) Kind() Kind      { return KindTiled }
func (UVAtlas) Kind() Kind    { return KindUV }
func (Dynamic) Kind() Kind    { return KindDynamic }
func (Untextured) Kind() Kind { return KindUntextured }

func (Tiled) payload()      {}
func (UVAtlas) payload()    {}
func (Dynamic) payload()    {}
func (Untextured) payload() {}

// Texture is the descriptor of one texture plus the GPU state assigned on upload.
// A nil Payload is a plain 2D texture.
type Texture struct {
	ID         string
	Reference  ExternalReference
	Resolution Resolution
	Parameters Parameters
	Levels     int

	// Format is nil when the descriptor leaves it to the image or to an id-reference.
	Format     *common.ImageFormat
	ColorModel common.ColorModel
	FlipV      bool
	Payload    Payload

	// Name is the GPU texture name, 0 until uploaded.
	Name   uint32
	Width  int
	Height int
}

// New creates a texture with default parameters, one level and the HD target resolution.
//
// Parameters:
//   - id: the texture id
//   - ref: the image source or an id-reference
//   - payload: the kind-specific payload, nil for a plain 2D texture
//
// Returns:
//   - *Texture: the new texture
func New(id string, ref ExternalReference, payload Payload) *Texture {
	return &Texture{
		ID:         id,
		Reference:  ref,
		Resolution: ResolutionHD,
		Parameters: DefaultParameters(),
		Levels:     1,
		Payload:    payload,
	}
}

// Kind returns the variant tag of the texture.
func (t *Texture) Kind() Kind {
	if t.Payload == nil {
		return KindTexture2D
	}
	return t.Payload.Kind()
}

// ImageFormat returns the format images are loaded in, RGBA when none is set.
func (t *Texture) ImageFormat() common.ImageFormat {
	if t.Format == nil {
		return common.ImageFormatRGBA
	}
	return *t.Format
}

// Uploaded reports whether the texture has a GPU name.
func (t *Texture) Uploaded() bool {
	return t.Name != 0
}

// FrameCount returns the number of addressable frames.
func (t *Texture) FrameCount() int {
	switch p := t.Payload.(type) {
	case Tiled:
		if p.Frames > 0 {
			return p.Frames
		}
		return p.Columns * p.Rows
	case UVAtlas:
		return len(p.Regions)
	default:
		return 1
	}
}

// Frame returns the texture coordinates of one frame.
//
// Parameters:
//   - index: the frame index
//
// Returns:
//   - Region: the frame rectangle in normalized coordinates
//   - error: an argument error if index is outside [0, FrameCount())
func (t *Texture) Frame(index int) (Region, error) {
	if index < 0 || index >= t.FrameCount() {
		return Region{}, common.ArgumentError("texture.Frame", "frame %d outside [0,%d) of %s", index, t.FrameCount(), t.ID)
	}
	switch p := t.Payload.(type) {
	case Tiled:
		w, h := 1/float32(p.Columns), 1/float32(p.Rows)
		return Region{X: float32(index%p.Columns) * w, Y: float32(index/p.Columns) * h, Width: w, Height: h}, nil
	case UVAtlas:
		return p.Regions[index], nil
	default:
		return Region{Width: 1, Height: 1}, nil
	}
}

// CopyInstance takes the GPU name and storage description of source. Id-reference stubs use it to share
// an already uploaded texture.
func (t *Texture) CopyInstance(source *Texture) {
	t.Name = source.Name
	t.Width = source.Width
	t.Height = source.Height
	t.Format = nil
	if source.Format != nil {
		f := *source.Format
		t.Format = &f
	}
	t.ColorModel = source.ColorModel
}

// Clone returns a copy that shares no mutable state with t.
func (t *Texture) Clone() *Texture {
	c := *t
	if t.Format != nil {
		f := *t.Format
		c.Format = &f
	}
	if atlas, ok := t.Payload.(UVAtlas); ok {
		c.Payload = UVAtlas{Regions: append([]Region(nil), atlas.Regions...)}
	}
	return &c
}

func (t *Texture) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s : %dx%d : %s", t.Kind(), t.ID, t.Width, t.Height, t.ImageFormat())
	fmt.Fprintf(&b, ", %d levels", t.Levels)
	return b.String()
}
