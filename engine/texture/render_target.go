package texture

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// AttachmentPoint is the framebuffer slot a render-target texture is bound to.
type AttachmentPoint int

const (
	AttachmentColor AttachmentPoint = iota
	AttachmentDepth
	AttachmentStencil
)

var attachmentNames = map[AttachmentPoint]string{
	AttachmentColor:   "COLOR",
	AttachmentDepth:   "DEPTH",
	AttachmentStencil: "STENCIL",
}

func (a AttachmentPoint) String() string {
	if n, ok := attachmentNames[a]; ok {
		return n
	}
	return fmt.Sprintf("AttachmentPoint(%d)", int(a))
}

// ParseAttachmentPoint maps "COLOR", "DEPTH" or "STENCIL" to its point.
func ParseAttachmentPoint(s string) (AttachmentPoint, error) {
	for a, n := range attachmentNames {
		if strings.EqualFold(n, s) {
			return a, nil
		}
	}
	return AttachmentColor, fmt.Errorf("unknown attachment %q", s)
}

func (a *AttachmentPoint) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseAttachmentPoint(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*a = parsed
	return nil
}

// Attachment is one texture of a render target. Scale is relative to the window size.
type Attachment struct {
	Point  AttachmentPoint
	Scale  [2]float32
	Format common.ImageFormat
}

// Size returns the attachment size for a window, never below 1x1.
func (a Attachment) Size(windowWidth, windowHeight int) (int, int) {
	sx, sy := a.Scale[0], a.Scale[1]
	if sx <= 0 {
		sx = 1
	}
	if sy <= 0 {
		sy = 1
	}
	return max(int(float32(windowWidth)*sx), 1), max(int(float32(windowHeight)*sy), 1)
}

// RenderTarget is an offscreen surface made of attachments. Its textures are created by the asset cache and
// keyed by AttachmentID.
type RenderTarget struct {
	ID          string
	Attachments []Attachment
}

// NewRenderTarget creates a render target with a generated id.
func NewRenderTarget(attachments ...Attachment) *RenderTarget {
	return &RenderTarget{ID: uuid.NewString(), Attachments: attachments}
}

// Attachment returns the attachment bound at point.
func (r *RenderTarget) Attachment(point AttachmentPoint) (Attachment, bool) {
	for _, a := range r.Attachments {
		if a.Point == point {
			return a, true
		}
	}
	return Attachment{}, false
}

// AttachmentID returns the texture id of the attachment at point.
func (r *RenderTarget) AttachmentID(point AttachmentPoint) string {
	return r.ID + ":" + strings.ToLower(point.String())
}

// AttachmentTexture returns the texture descriptor backing the attachment at point. Render-target textures
// always sample nearest with clamped coordinates.
//
// Parameters:
//   - point: the attachment point
//
// Returns:
//   - *Texture: a Dynamic texture keyed by AttachmentID
//   - error: an argument error if the target has no id or no attachment at point
func (r *RenderTarget) AttachmentTexture(point AttachmentPoint) (*Texture, error) {
	if r.ID == "" {
		return nil, common.ArgumentError("texture.AttachmentTexture", "render target has no id")
	}
	a, ok := r.Attachment(point)
	if !ok {
		return nil, common.ArgumentError("texture.AttachmentTexture", "render target %s has no %s attachment", r.ID, point)
	}
	t := New(r.AttachmentID(point), "", Dynamic{RenderTargetID: r.ID, Attachment: point})
	format := a.Format
	t.Format = &format
	t.Parameters = DefaultParameters()
	return t, nil
}
