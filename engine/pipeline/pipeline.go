package pipeline

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/common/log"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/Carmen-Shannon/nucleus-go/engine/shader"
	"github.com/go-gl/mathgl/mgl32"
)

// Uniform names filled by Update.
const (
	UniformMVPMatrix         = "uMVPMatrix"
	UniformModelMatrix       = "uModelMatrix"
	UniformViewMatrix        = "uViewMatrix"
	UniformProjectionMatrix  = "uProjectionMatrix"
	UniformModelViewMatrix   = "uModelViewMatrix"
	UniformNormalMatrix      = "uNormalMatrix"
	UniformBaseColor         = "uBaseColor"
	UniformMetallicRoughness = "uMetallicRoughness"
)

// Sampler uniform names for material textures.
const (
	SamplerBaseColor         = "uBaseColorTexture"
	SamplerNormal            = "uNormalTexture"
	SamplerMetallicRoughness = "uMetallicRoughnessTexture"
	SamplerOcclusion         = "uOcclusionTexture"
	SamplerEmissive          = "uEmissiveTexture"
)

// Attribute names matched against drawable vertex sources.
const (
	AttributePosition  = "aPosition"
	AttributeNormal    = "aNormal"
	AttributeTangent   = "aTangent"
	AttributeBitangent = "aBitangent"
	AttributeTexCoord0 = "aTexCoord0"
	AttributeTexCoord1 = "aTexCoord1"
	AttributeColor0    = "aColor0"
)

// Attribute buffer indexes. Positions live in their own buffer so they can be rewritten without touching
// the static attributes.
const (
	BufferPositions = iota
	BufferStatic
	attributeBufferCount
)

// BufferIndexOf returns the attribute buffer an attribute is stored in.
func BufferIndexOf(attribute string) int {
	if attribute == AttributePosition {
		return BufferPositions
	}
	return BufferStatic
}

// Matrices are the transforms of one draw.
type Matrices struct {
	Model      mgl32.Mat4
	View       mgl32.Mat4
	Projection mgl32.Mat4
}

// IdentityMatrices returns matrices that leave vertices untouched.
func IdentityMatrices() Matrices {
	return Matrices{Model: mgl32.Ident4(), View: mgl32.Ident4(), Projection: mgl32.Ident4()}
}

// Material is the per-draw material input of a pipeline.
type Material struct {
	BaseColor         mgl32.Vec4
	MetallicRoughness mgl32.Vec2

	// Textures maps sampler uniform names to texture names. Missing samplers bind texture 0.
	Textures map[string]uint32

	// Uniforms holds values for uniforms the pipeline does not fill itself.
	Uniforms map[string][]float32
}

// Drawable is one draw unit as seen by a pipeline.
type Drawable interface {
	// VertexSources returns the vertex data keyed by attribute name.
	VertexSources() map[string]backend.VertexSource

	// Material returns the material values of the draw.
	Material() Material
}

// graphicsPipeline is the implementation of the GraphicsPipeline interface.
type graphicsPipeline struct {
	key     string
	mode    backend.DrawMode
	program backend.Program

	attributes map[string]backend.Variable
	ordered    []backend.Variable
	uniforms   map[string]backend.Variable
	samplers   []backend.Variable
	sizes      []int

	log       log.Log
	destroyed bool
	once      sync.Once
}

// GraphicsPipeline is one linked program plus the variable metadata derived from it.
// Pipelines are created and owned by the asset cache.
type GraphicsPipeline interface {
	// Key returns the shader key the pipeline was compiled from.
	//
	// Returns:
	//   - string: the cache key
	Key() string

	// Mode returns the primitive topology the pipeline was built for.
	//
	// Returns:
	//   - backend.DrawMode: the draw mode
	Mode() backend.DrawMode

	// Program returns the linked backend program.
	//
	// Returns:
	//   - backend.Program: the program handle
	Program() backend.Program

	// Enable makes this pipeline the target of the following draw calls.
	//
	// Parameters:
	//   - api: the draw API the pipeline was created on
	//
	// Returns:
	//   - error: a retryable backend error if the program is no longer valid or cannot be bound
	Enable(api backend.DrawAPI) error

	// Update pushes the transform and material uniforms of one draw, binds its textures and
	// points the attributes at its vertex data. It must follow Enable and precede the draw call.
	//
	// Parameters:
	//   - api: the draw API the pipeline was created on
	//   - d: the drawable being submitted
	//   - m: the transforms of the draw
	//
	// Returns:
	//   - error: a skippable error if the drawable lacks an attribute, or a backend error from the API
	Update(api backend.DrawAPI, d Drawable, m Matrices) error

	// UniformByName looks up an active uniform. Compilers drop unused variables, so absence is not an error.
	//
	// Parameters:
	//   - name: the uniform name
	//
	// Returns:
	//   - backend.Variable: the uniform
	//   - bool: false if the uniform is not active
	UniformByName(name string) (backend.Variable, bool)

	// AttributeByName looks up an active attribute.
	//
	// Parameters:
	//   - name: the attribute name
	//
	// Returns:
	//   - backend.Variable: the attribute
	//   - bool: false if the attribute is not active
	AttributeByName(name string) (backend.Variable, bool)

	// AttributeSizes returns the floats per vertex the program consumes from each attribute buffer,
	// indexed by BufferPositions and BufferStatic.
	//
	// Returns:
	//   - []int: floats per vertex per buffer index
	AttributeSizes() []int

	// Samplers returns the active sampler uniforms. A sampler's index in the slice is its texture unit.
	//
	// Returns:
	//   - []backend.Variable: sampler uniforms in unit order
	Samplers() []backend.Variable

	// Destroy deletes the program. Calls after the first are ignored.
	//
	// Parameters:
	//   - api: the draw API the pipeline was created on
	Destroy(api backend.DrawAPI)

	// Destroyed reports whether Destroy has run.
	//
	// Returns:
	//   - bool: true after Destroy
	Destroyed() bool
}

var _ GraphicsPipeline = &graphicsPipeline{}

// New compiles and links the shader on api and indexes the program's active variables.
//
// Parameters:
//   - api: the draw API to compile on
//   - s: the shader to compile
//   - options: functional options for the pipeline
//
// Returns:
//   - GraphicsPipeline: the linked pipeline
//   - error: a retryable backend error if compilation or linking fails
func New(api backend.DrawAPI, s shader.Shader, options ...PipelineBuilderOption) (GraphicsPipeline, error) {
	if api == nil || s == nil {
		return nil, common.ArgumentError("pipeline.New", "draw API and shader are required")
	}
	p := &graphicsPipeline{
		key:  s.Key(),
		mode: s.Mode(),
		log:  log.Provide(),
	}
	for _, option := range options {
		option(p)
	}

	program, err := api.CreateProgram(s.ProgramSources())
	if err != nil {
		return nil, common.ResourceError("pipeline.New", fmt.Errorf("compile %s: %w", s.Key(), err))
	}
	p.program = program
	p.index()
	p.log.Debug("pipeline created",
		log.String("key", p.key),
		log.Int("attributes", len(p.attributes)),
		log.Int("uniforms", len(p.uniforms)),
		log.Int("samplers", len(p.samplers)))
	return p, nil
}

func (p *graphicsPipeline) index() {
	p.attributes = make(map[string]backend.Variable)
	p.uniforms = make(map[string]backend.Variable)
	p.sizes = make([]int, attributeBufferCount)

	p.ordered = append([]backend.Variable(nil), p.program.Attributes()...)
	sort.Slice(p.ordered, func(i, j int) bool { return p.ordered[i].Location < p.ordered[j].Location })
	for _, v := range p.ordered {
		p.attributes[v.Name] = v
		p.sizes[BufferIndexOf(v.Name)] += v.Type.Components() * int(max(v.Size, 1))
	}
	for _, v := range p.program.Uniforms() {
		p.uniforms[v.Name] = v
		if v.Kind == backend.VariableSampler {
			p.samplers = append(p.samplers, v)
		}
	}
}

func (p *graphicsPipeline) Key() string {
	return p.key
}

func (p *graphicsPipeline) Mode() backend.DrawMode {
	return p.mode
}

func (p *graphicsPipeline) Program() backend.Program {
	return p.program
}

func (p *graphicsPipeline) Enable(api backend.DrawAPI) error {
	if p.destroyed || !api.IsProgram(p.program) {
		return common.ResourceError("pipeline.Enable", fmt.Errorf("program %d for %s is not valid", p.program.Name(), p.key))
	}
	if err := api.UseProgram(p.program); err != nil {
		return common.ResourceError("pipeline.Enable", err)
	}
	return nil
}

func (p *graphicsPipeline) Update(api backend.DrawAPI, d Drawable, m Matrices) error {
	material := d.Material()
	modelView := m.View.Mul4(m.Model)

	for _, v := range p.program.Uniforms() {
		if v.Kind == backend.VariableSampler {
			continue
		}
		var values []float32
		switch v.Name {
		case UniformMVPMatrix:
			mvp := m.Projection.Mul4(modelView)
			values = mvp[:]
		case UniformModelMatrix:
			values = m.Model[:]
		case UniformViewMatrix:
			values = m.View[:]
		case UniformProjectionMatrix:
			values = m.Projection[:]
		case UniformModelViewMatrix:
			values = modelView[:]
		case UniformNormalMatrix:
			normal := modelView.Mat3().Inv().Transpose()
			values = normal[:]
		case UniformBaseColor:
			values = material.BaseColor[:]
		case UniformMetallicRoughness:
			values = material.MetallicRoughness[:]
		default:
			custom, ok := material.Uniforms[v.Name]
			if !ok {
				continue
			}
			values = custom
		}
		if err := api.SetUniform(p.program, v, values); err != nil {
			return common.ResourceError("pipeline.Update", fmt.Errorf("uniform %s: %w", v.Name, err))
		}
	}

	for unit, v := range p.samplers {
		if err := api.BindTexture(unit, material.Textures[v.Name]); err != nil {
			return common.ResourceError("pipeline.Update", fmt.Errorf("sampler %s: %w", v.Name, err))
		}
		if err := api.SetUniform(p.program, v, []float32{float32(unit)}); err != nil {
			return common.ResourceError("pipeline.Update", fmt.Errorf("sampler %s: %w", v.Name, err))
		}
	}

	sources := d.VertexSources()
	for _, v := range p.ordered {
		src, ok := sources[v.Name]
		if !ok {
			return common.SkippableError("pipeline.Update", fmt.Errorf("%s needs attribute %s", p.key, v.Name))
		}
		if src.Components == 0 {
			src.Components = v.Type.Components()
		}
		if err := api.SetVertexAttribute(p.program, v, src); err != nil {
			return common.ResourceError("pipeline.Update", fmt.Errorf("attribute %s: %w", v.Name, err))
		}
	}
	return nil
}

func (p *graphicsPipeline) UniformByName(name string) (backend.Variable, bool) {
	v, ok := p.uniforms[name]
	return v, ok
}

func (p *graphicsPipeline) AttributeByName(name string) (backend.Variable, bool) {
	v, ok := p.attributes[name]
	return v, ok
}

func (p *graphicsPipeline) AttributeSizes() []int {
	return append([]int(nil), p.sizes...)
}

func (p *graphicsPipeline) Samplers() []backend.Variable {
	return p.samplers
}

func (p *graphicsPipeline) Destroy(api backend.DrawAPI) {
	p.once.Do(func() {
		api.DeleteProgram(p.program)
		p.destroyed = true
		p.log.Debug("pipeline destroyed", log.String("key", p.key))
	})
}

func (p *graphicsPipeline) Destroyed() bool {
	return p.destroyed
}
