package model

import (
	"sync"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/Carmen-Shannon/nucleus-go/engine/loader"
	"github.com/Carmen-Shannon/nucleus-go/engine/pipeline"
	"github.com/go-gl/mathgl/mgl32"
)

// semantics maps glTF attribute semantics to pipeline attribute names.
var semantics = map[string]string{
	loader.AttributePosition:  pipeline.AttributePosition,
	loader.AttributeNormal:    pipeline.AttributeNormal,
	loader.AttributeTangent:   pipeline.AttributeTangent,
	loader.AttributeBitangent: pipeline.AttributeBitangent,
	loader.AttributeTexCoord0: pipeline.AttributeTexCoord0,
	loader.AttributeTexCoord1: pipeline.AttributeTexCoord1,
	loader.AttributeColor0:    pipeline.AttributeColor0,
}

// samplers maps material texture slots to sampler uniform names.
var samplers = map[loader.Slot]string{
	loader.SlotBaseColor:         pipeline.SamplerBaseColor,
	loader.SlotNormal:            pipeline.SamplerNormal,
	loader.SlotMetallicRoughness: pipeline.SamplerMetallicRoughness,
	loader.SlotOcclusion:         pipeline.SamplerOcclusion,
	loader.SlotEmissive:          pipeline.SamplerEmissive,
}

// AttributeName returns the pipeline attribute a glTF semantic binds to, and false for semantics the
// pipelines do not consume.
func AttributeName(semantic string) (string, bool) {
	name, ok := semantics[semantic]
	return name, ok
}

// SamplerName returns the sampler uniform a material slot binds to.
func SamplerName(slot loader.Slot) string {
	return samplers[slot]
}

// Attribute is float vertex data with its component count.
type Attribute struct {
	Components int
	Data       []float32
}

// Geometry is procedurally built vertex data.
type Geometry struct {
	Mode       backend.DrawMode
	Attributes map[string]Attribute
	Indices    []uint32
}

// primitive is the implementation of the Primitive interface.
type primitive struct {
	mode        backend.DrawMode
	vertexCount int
	indexCount  int
	indexType   backend.IndexType

	source *loader.Primitive
	slots  []loader.TextureSlot
	useVBO bool

	clientOnce    sync.Once
	clientErr     error
	clientSources map[string]backend.VertexSource
	clientIndices []byte

	material pipeline.Material
	textures map[string]uint32

	bounds    [2]mgl32.Vec3
	hasBounds bool
}

// Primitive is one draw of a mesh: vertex data, optional indices and a material.
type Primitive interface {
	pipeline.Drawable

	// Mode returns the primitive topology.
	Mode() backend.DrawMode

	// VertexCount returns the number of vertices.
	VertexCount() int

	// IndexCount returns the number of indices, 0 for non-indexed primitives.
	IndexCount() int

	// Indexed reports whether the primitive is drawn with an index buffer.
	Indexed() bool

	// PrimitiveCount returns the number of points, lines or triangles one draw produces.
	PrimitiveCount() (int, error)

	// Bounds returns the model space box of the positions. ok is false when the source carries no bounds.
	Bounds() (min, max mgl32.Vec3, ok bool)

	// Source returns the glTF primitive the draw was built from, nil for procedural geometry.
	Source() *loader.Primitive

	// TextureSlots returns the material textures of a glTF primitive.
	TextureSlots() []loader.TextureSlot

	// SetTexture binds a texture name to a sampler uniform, overriding material textures.
	//
	// Parameters:
	//   - sampler: the sampler uniform name
	//   - name: the texture name, 0 to remove the override
	SetTexture(sampler string, name uint32)

	// SetUniform sets a value for a custom uniform of the pipeline.
	SetUniform(name string, values []float32)

	// Draw submits the draw call. The pipeline must have been enabled and updated for this primitive.
	//
	// Parameters:
	//   - api: the draw API
	//
	// Returns:
	//   - error: the draw API's error
	Draw(api backend.DrawAPI) error
}

var _ Primitive = &primitive{}

// NewPrimitive builds a draw unit from a resolved glTF primitive. When useVBO is set, float attributes
// whose buffer has a VBO are read from it; everything else is drawn from client memory.
//
// Parameters:
//   - src: a resolved glTF primitive
//   - useVBO: prefer buffer objects over client memory
//
// Returns:
//   - Primitive: the draw unit
//   - error: an argument error if the primitive has no usable positions or indices
func NewPrimitive(src *loader.Primitive, useVBO bool) (Primitive, error) {
	pos := src.Accessors[loader.AttributePosition]
	if pos == nil {
		return nil, common.ArgumentError("model.NewPrimitive", "primitive has no POSITION accessor")
	}
	p := &primitive{
		mode:        src.DrawMode(),
		vertexCount: pos.Count,
		source:      src,
		useVBO:      useVBO,
		textures:    make(map[string]uint32),
	}
	if len(pos.Min) == 3 && len(pos.Max) == 3 {
		p.bounds = [2]mgl32.Vec3{{pos.Min[0], pos.Min[1], pos.Min[2]}, {pos.Max[0], pos.Max[1], pos.Max[2]}}
		p.hasBounds = true
	}
	if src.IndexData != nil {
		t, err := indexType(src.IndexData.ComponentType)
		if err != nil {
			return nil, err
		}
		p.indexType = t
		p.indexCount = src.IndexData.Count
	}
	if m := src.MaterialRef; m != nil {
		p.slots = loader.TextureSlots(m)
		p.material.BaseColor = m.BaseColor()
		p.material.MetallicRoughness = m.MetallicRoughness()
	} else {
		p.material.BaseColor = mgl32.Vec4{1, 1, 1, 1}
		p.material.MetallicRoughness = mgl32.Vec2{1, 1}
	}
	p.material.Textures = make(map[string]uint32)
	return p, nil
}

// NewGeometryPrimitive builds a client memory draw unit from procedural geometry. Attribute keys are
// pipeline attribute names; a position attribute is required.
//
// Parameters:
//   - g: the geometry
//   - material: the material values of the draw
//
// Returns:
//   - Primitive: the draw unit
//   - error: an argument error if positions are missing or attribute lengths disagree
func NewGeometryPrimitive(g Geometry, material pipeline.Material) (Primitive, error) {
	const op = "model.NewGeometryPrimitive"
	pos, ok := g.Attributes[pipeline.AttributePosition]
	if !ok || pos.Components <= 0 {
		return nil, common.ArgumentError(op, "geometry has no %s attribute", pipeline.AttributePosition)
	}
	vertexCount := len(pos.Data) / pos.Components

	p := &primitive{
		mode:          g.Mode,
		vertexCount:   vertexCount,
		clientSources: make(map[string]backend.VertexSource, len(g.Attributes)),
		material:      material,
		textures:      make(map[string]uint32),
	}
	for sampler, name := range material.Textures {
		p.textures[sampler] = name
	}
	p.material.Textures = make(map[string]uint32)
	for name, a := range g.Attributes {
		if a.Components <= 0 || len(a.Data) != vertexCount*a.Components {
			return nil, common.ArgumentError(op, "attribute %s has %d floats, want %d", name, len(a.Data), vertexCount*a.Components)
		}
		p.clientSources[name] = backend.VertexSource{Data: common.SliceToBytes(a.Data), Components: a.Components}
	}
	if len(g.Indices) > 0 {
		for _, i := range g.Indices {
			if int(i) >= vertexCount {
				return nil, common.ArgumentError(op, "index %d out of range for %d vertices", i, vertexCount)
			}
		}
		p.indexType = backend.IndexUnsignedInt
		p.indexCount = len(g.Indices)
		p.clientIndices = common.SliceToBytes(g.Indices)
	}
	if pos.Components == 3 && vertexCount > 0 {
		p.bounds, p.hasBounds = positionBounds(pos.Data), true
	}
	p.clientOnce.Do(func() {})
	return p, nil
}

// positionBounds returns the box around tightly packed xyz positions.
func positionBounds(data []float32) [2]mgl32.Vec3 {
	lo := mgl32.Vec3{data[0], data[1], data[2]}
	hi := lo
	for i := 3; i+2 < len(data); i += 3 {
		for c := range 3 {
			lo[c] = min(lo[c], data[i+c])
			hi[c] = max(hi[c], data[i+c])
		}
	}
	return [2]mgl32.Vec3{lo, hi}
}

func (p *primitive) Mode() backend.DrawMode {
	return p.mode
}

func (p *primitive) VertexCount() int {
	return p.vertexCount
}

func (p *primitive) IndexCount() int {
	return p.indexCount
}

func (p *primitive) Indexed() bool {
	return p.indexCount > 0
}

func (p *primitive) PrimitiveCount() (int, error) {
	if p.Indexed() {
		return p.mode.PrimitiveCount(p.indexCount)
	}
	return p.mode.PrimitiveCount(p.vertexCount)
}

func (p *primitive) Bounds() (mgl32.Vec3, mgl32.Vec3, bool) {
	return p.bounds[0], p.bounds[1], p.hasBounds
}

func (p *primitive) Source() *loader.Primitive {
	return p.source
}

func (p *primitive) TextureSlots() []loader.TextureSlot {
	return p.slots
}

func (p *primitive) SetTexture(sampler string, name uint32) {
	if name == 0 {
		delete(p.textures, sampler)
		return
	}
	p.textures[sampler] = name
}

func (p *primitive) SetUniform(name string, values []float32) {
	if p.material.Uniforms == nil {
		p.material.Uniforms = make(map[string][]float32)
	}
	p.material.Uniforms[name] = values
}

func (p *primitive) Material() pipeline.Material {
	clear(p.material.Textures)
	for _, slot := range p.slots {
		if tex := slot.Image().Texture; tex != nil && tex.Uploaded() {
			p.material.Textures[SamplerName(slot.Slot)] = tex.Name
		}
	}
	for sampler, name := range p.textures {
		p.material.Textures[sampler] = name
	}
	return p.material
}

func (p *primitive) VertexSources() map[string]backend.VertexSource {
	p.buildClient()
	if p.source == nil {
		return p.clientSources
	}

	sources := make(map[string]backend.VertexSource, len(p.source.Accessors))
	for semantic, a := range p.source.Accessors {
		name, ok := AttributeName(semantic)
		if !ok {
			continue
		}
		if src, ok := p.vboSource(a); ok {
			sources[name] = src
		} else if src, ok := p.clientSources[name]; ok {
			sources[name] = src
		}
	}
	return sources
}

func (p *primitive) Draw(api backend.DrawAPI) error {
	if !p.Indexed() {
		return api.DrawArrays(p.mode, 0, p.vertexCount)
	}
	idx, err := p.indexSource()
	if err != nil {
		return err
	}
	return api.DrawElements(p.mode, p.indexCount, idx)
}

// vboSource points a float attribute at its buffer object.
func (p *primitive) vboSource(a *loader.Accessor) (backend.VertexSource, bool) {
	if !p.useVBO || a.ComponentType != loader.ComponentFloat || a.View == nil || a.View.Buf.VBO == 0 {
		return backend.VertexSource{}, false
	}
	return backend.VertexSource{
		Buffer:     a.View.Buf.VBO,
		Components: a.Components(),
		Stride:     a.View.Stride(),
		Offset:     a.View.ByteOffset + a.ByteOffset,
	}, true
}

func (p *primitive) indexSource() (backend.IndexSource, error) {
	if a := p.sourceIndices(); a != nil && p.useVBO && a.View != nil && a.View.Buf.VBO != 0 {
		return backend.IndexSource{
			Buffer: a.View.Buf.VBO,
			Type:   p.indexType,
			Offset: a.View.ByteOffset + a.ByteOffset,
		}, nil
	}
	p.buildClient()
	if p.clientErr != nil {
		return backend.IndexSource{}, p.clientErr
	}
	return backend.IndexSource{Data: p.clientIndices, Type: p.indexType}, nil
}

func (p *primitive) sourceIndices() *loader.Accessor {
	if p.source == nil {
		return nil
	}
	return p.source.IndexData
}

// buildClient reads the glTF accessors into client memory once: positions packed alone and every other
// attribute interleaved into one static stream.
func (p *primitive) buildClient() {
	p.clientOnce.Do(func() {
		src := p.source
		p.clientSources = make(map[string]backend.VertexSource, len(src.Accessors))

		positions, err := loader.ReadFloats(src.Accessors[loader.AttributePosition])
		if err != nil {
			p.clientErr = err
			return
		}
		posAccessor := src.Accessors[loader.AttributePosition]
		p.clientSources[pipeline.AttributePosition] = backend.VertexSource{
			Data:       common.SliceToBytes(positions),
			Components: posAccessor.Components(),
		}

		var names []string
		var static []*loader.Accessor
		for semantic, a := range src.Accessors {
			name, ok := AttributeName(semantic)
			if !ok || semantic == loader.AttributePosition {
				continue
			}
			names = append(names, name)
			static = append(static, a)
		}
		data, offsets, stride, err := loader.Interleave(static...)
		if err != nil {
			p.clientErr = err
			return
		}
		bytes := common.SliceToBytes(data)
		for i, name := range names {
			p.clientSources[name] = backend.VertexSource{
				Data:       bytes,
				Components: static[i].Components(),
				Stride:     stride * 4,
				Offset:     offsets[i] * 4,
			}
		}

		if src.IndexData != nil {
			raw, err := loader.ReadAccessorData(src.IndexData)
			if err != nil {
				p.clientErr = err
				return
			}
			p.clientIndices = raw
		}
	})
}

func indexType(componentType int) (backend.IndexType, error) {
	switch componentType {
	case loader.ComponentUnsignedByte:
		return backend.IndexUnsignedByte, nil
	case loader.ComponentUnsignedShort:
		return backend.IndexUnsignedShort, nil
	case loader.ComponentUnsignedInt:
		return backend.IndexUnsignedInt, nil
	default:
		return 0, common.ArgumentError("model.NewPrimitive", "unsupported index component type %d", componentType)
	}
}
