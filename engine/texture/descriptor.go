package texture

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"gopkg.in/yaml.v3"
)

// Descriptor is the on-disk form of a texture, read from .tex files. JSON descriptors decode too since
// YAML is a superset.
type Descriptor struct {
	ID                string            `yaml:"id"`
	Type              string            `yaml:"type"`
	ExternalReference ExternalReference `yaml:"externalReference"`
	Resolution        Resolution        `yaml:"resolution"`
	Parameters        *Parameters       `yaml:"texParameters"`
	Levels            int               `yaml:"mipmap"`
	Format            string            `yaml:"format"`
	SRGB              bool              `yaml:"srgb"`
	FlipV             bool              `yaml:"flipV"`

	FramesX int      `yaml:"framesX"`
	FramesY int      `yaml:"framesY"`
	Frames  int      `yaml:"frames"`
	Regions []Region `yaml:"regions"`

	RenderTarget string          `yaml:"renderTarget"`
	Attachment   AttachmentPoint `yaml:"attachment"`
	InitColor    []float32       `yaml:"initColor"`
}

// KindFactory builds the payload of one texture kind from a descriptor. A nil payload is a plain 2D texture.
type KindFactory func(d *Descriptor) (Payload, error)

// Registry maps descriptor type tags to kind factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]KindFactory
}

// NewRegistry returns a registry holding the built-in kinds.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]KindFactory)}
	r.Register(KindTexture2D.String(), func(*Descriptor) (Payload, error) { return nil, nil })
	r.Register(KindUntextured.String(), func(*Descriptor) (Payload, error) { return Untextured{}, nil })
	r.Register(KindTiled.String(), tiledPayload)
	r.Register(KindUV.String(), uvPayload)
	r.Register(KindDynamic.String(), dynamicPayload)
	return r
}

// Register adds or replaces the factory for tag. Tags are case-insensitive.
func (r *Registry) Register(tag string, factory KindFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(tag)] = factory
}

// Tags returns the registered tags in sorted order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Build validates d and creates its texture.
//
// Parameters:
//   - d: the decoded descriptor
//
// Returns:
//   - *Texture: the texture, not yet uploaded
//   - error: an argument error if the descriptor is incomplete or inconsistent
func (r *Registry) Build(d *Descriptor) (*Texture, error) {
	const op = "texture.Build"
	if d == nil || strings.TrimSpace(d.ID) == "" {
		return nil, common.ArgumentError(op, "texture descriptor has no id")
	}
	tag := strings.ToLower(d.Type)
	if tag == "" {
		tag = KindTexture2D.String()
	}
	r.mu.RLock()
	factory, ok := r.factories[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, common.ArgumentError(op, "texture %s has unknown type %q", d.ID, d.Type)
	}
	payload, err := factory(d)
	if err != nil {
		return nil, common.ArgumentError(op, "texture %s: %v", d.ID, err)
	}

	t := New(d.ID, d.ExternalReference, payload)
	if d.Resolution != 0 {
		t.Resolution = d.Resolution
	}
	if d.Parameters != nil {
		t.Parameters = *d.Parameters
	}
	if d.Levels > 0 {
		t.Levels = d.Levels
	}
	if d.SRGB {
		t.ColorModel = common.ColorModelSRGB
	}
	t.FlipV = d.FlipV
	if d.Format != "" {
		f, err := common.ParseImageFormat(strings.ToUpper(d.Format))
		if err != nil {
			return nil, common.ArgumentError(op, "texture %s: %v", d.ID, err)
		}
		t.Format = &f
	}
	if err := Validate(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the fields every texture kind shares.
//
// Parameters:
//   - t: the texture to check
//
// Returns:
//   - error: an argument error if t has no id, invalid parameters, a missing image reference, or an
//     id-reference that also sets a format
func Validate(t *Texture) error {
	const op = "texture.Validate"
	if t == nil || t.ID == "" {
		return common.ArgumentError(op, "texture has no id")
	}
	if err := t.Parameters.Validate(); err != nil {
		return err
	}
	switch t.Kind() {
	case KindUntextured, KindDynamic:
		return nil
	}
	if t.Reference.Empty() {
		return common.ArgumentError(op, "texture %s of kind %s has no external reference", t.ID, t.Kind())
	}
	if t.Reference.IsIDReference() && t.Format != nil {
		return common.ArgumentError(op, "texture %s references %s and must not define a format", t.ID, t.Reference)
	}
	return nil
}

// DecodeDescriptor reads one descriptor.
func DecodeDescriptor(r io.Reader) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.NewDecoder(r).Decode(&d); err != nil {
		return nil, common.ArgumentError("texture.DecodeDescriptor", "%v", err)
	}
	return &d, nil
}

// LoadDescriptor reads a descriptor file, defaulting the id to the file name.
func LoadDescriptor(path string) (*Descriptor, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrNotFound, err)
	}
	defer file.Close()

	d, err := DecodeDescriptor(file)
	if err != nil {
		return nil, err
	}
	if d.ID == "" {
		base := path[strings.LastIndexAny(path, `/\`)+1:]
		d.ID = strings.TrimSuffix(base, ".tex")
	}
	return d, nil
}

func tiledPayload(d *Descriptor) (Payload, error) {
	if d.FramesX <= 0 || d.FramesY <= 0 {
		return nil, fmt.Errorf("tiled texture needs positive framesX and framesY, got %dx%d", d.FramesX, d.FramesY)
	}
	if d.Frames > d.FramesX*d.FramesY {
		return nil, fmt.Errorf("%d frames do not fit %dx%d tiles", d.Frames, d.FramesX, d.FramesY)
	}
	return Tiled{Columns: d.FramesX, Rows: d.FramesY, Frames: d.Frames}, nil
}

func uvPayload(d *Descriptor) (Payload, error) {
	if len(d.Regions) == 0 {
		return nil, fmt.Errorf("uv texture needs at least one region")
	}
	for i, r := range d.Regions {
		if r.Width <= 0 || r.Height <= 0 || r.X < 0 || r.Y < 0 || r.X+r.Width > 1 || r.Y+r.Height > 1 {
			return nil, fmt.Errorf("region %d %+v is outside the unit square", i, r)
		}
	}
	return UVAtlas{Regions: append([]Region(nil), d.Regions...)}, nil
}

func dynamicPayload(d *Descriptor) (Payload, error) {
	p := Dynamic{RenderTargetID: d.RenderTarget, Attachment: d.Attachment}
	switch len(d.InitColor) {
	case 0:
	case 4:
		copy(p.InitColor[:], d.InitColor)
	default:
		return nil, fmt.Errorf("initColor needs 4 components, got %d", len(d.InitColor))
	}
	return p, nil
}
