// Package backendtest provides a recording DrawAPI for tests that exercise the engine without a GPU.
package backendtest

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
)

var (
	attributePattern = regexp.MustCompile(`(?m)^\s*(?:attribute|in)\s+(\w+)\s+(\w+)\s*;`)
	uniformPattern   = regexp.MustCompile(`(?m)^\s*uniform\s+(\w+)\s+(\w+)\s*;`)
)

var glslTypes = map[string]backend.DataType{
	"float":     backend.TypeFloat,
	"vec2":      backend.TypeVec2,
	"vec3":      backend.TypeVec3,
	"vec4":      backend.TypeVec4,
	"mat3":      backend.TypeMat3,
	"mat4":      backend.TypeMat4,
	"int":       backend.TypeInt,
	"sampler2D": backend.TypeSampler2D,
}

// Program is the program handle returned by Fake.
type Program struct {
	ID            uint32
	Key           string
	AttributeVars []backend.Variable
	UniformVars   []backend.Variable
}

var _ backend.Program = &Program{}

func (p *Program) Name() uint32                   { return p.ID }
func (p *Program) Attributes() []backend.Variable { return p.AttributeVars }
func (p *Program) Uniforms() []backend.Variable   { return p.UniformVars }

// Draw is one recorded draw call.
type Draw struct {
	Mode    backend.DrawMode
	Count   int
	Indexed bool
	Program uint32
}

// Fake records every call. The zero value is not usable; use New.
type Fake struct {
	mu sync.Mutex

	// CompileErr, when set, is returned by CreateProgram.
	CompileErr error
	// DrawErr, when set, is returned by DrawArrays and DrawElements.
	DrawErr error
	// BeginFrameErr, when set, is returned by BeginFrame.
	BeginFrameErr error
	// BufferErr, when set, is returned by BufferData.
	BufferErr error

	Calls       []string
	Compiles    int
	Draws       []Draw
	Uniforms    map[string][]float32
	Textures    map[uint32]backend.TextureImage
	Parameters  map[uint32]backend.TexParameters
	Buffers     map[uint32][]byte
	Programs    map[uint32]*Program
	ViewportBox [4]int
	State       backend.RenderState
	Released    bool

	nextName uint32
	current  *Program
}

var _ backend.DrawAPI = &Fake{}

// New creates an empty Fake.
func New() *Fake {
	return &Fake{
		Uniforms:   make(map[string][]float32),
		Textures:   make(map[uint32]backend.TextureImage),
		Parameters: make(map[uint32]backend.TexParameters),
		Buffers:    make(map[uint32][]byte),
		Programs:   make(map[uint32]*Program),
	}
}

// Factory returns a backend.Factory that always hands out f.
func (f *Fake) Factory() backend.Factory {
	return func(backend.Version) (backend.DrawAPI, error) {
		return f, nil
	}
}

func (f *Fake) record(format string, args ...any) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

// CallsWithPrefix returns the recorded calls starting with prefix, in order.
func (f *Fake) CallsWithPrefix(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// CompileCount returns the number of CreateProgram calls.
func (f *Fake) CompileCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Compiles
}

func (f *Fake) names(n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		f.nextName++
		out[i] = f.nextName
	}
	return out
}

func (f *Fake) Name() string {
	return "fake"
}

func (f *Fake) CreateTextureNames(n int) ([]uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.names(n)
	f.record("CreateTextureNames:%d", n)
	return out, nil
}

func (f *Fake) UploadTexture(name uint32, image backend.TextureImage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Textures[name] = image
	f.record("UploadTexture:%d", name)
	return nil
}

func (f *Fake) SetTextureParameters(name uint32, params backend.TexParameters) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Parameters[name] = params
	return nil
}

func (f *Fake) BindTexture(unit int, name uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("BindTexture:%d:%d", unit, name)
	return nil
}

func (f *Fake) DeleteTextures(names []uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range names {
		delete(f.Textures, n)
	}
	f.record("DeleteTextures:%v", names)
}

func (f *Fake) CreateBufferNames(n int) ([]uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.names(n)
	f.record("CreateBufferNames:%d", n)
	return out, nil
}

func (f *Fake) BufferData(name uint32, target backend.BufferTarget, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.BufferErr != nil {
		return f.BufferErr
	}
	f.Buffers[name] = append([]byte(nil), data...)
	f.record("BufferData:%d:%d", name, len(data))
	return nil
}

func (f *Fake) DeleteBuffers(names []uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range names {
		delete(f.Buffers, n)
	}
	f.record("DeleteBuffers:%v", names)
}

// CreateProgram reflects GLSL-style attribute/in and uniform declarations from the vertex and fragment sources.
func (f *Fake) CreateProgram(sources backend.ProgramSources) (backend.Program, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Compiles++
	if f.CompileErr != nil {
		f.record("CreateProgram:%s:error", sources.Key)
		return nil, f.CompileErr
	}

	p := &Program{ID: f.names(1)[0], Key: sources.Key}
	var loc int32
	for _, m := range attributePattern.FindAllStringSubmatch(sources.Stages[backend.StageVertex], -1) {
		p.AttributeVars = append(p.AttributeVars, backend.Variable{
			Name: m[2], Kind: backend.VariableAttribute, Type: glslTypes[m[1]], Location: loc, Size: 1,
		})
		loc++
	}
	seen := make(map[string]bool)
	loc = 0
	for _, stage := range []backend.Stage{backend.StageVertex, backend.StageFragment} {
		for _, m := range uniformPattern.FindAllStringSubmatch(sources.Stages[stage], -1) {
			if seen[m[2]] {
				continue
			}
			seen[m[2]] = true
			kind := backend.VariableUniform
			if m[1] == "sampler2D" {
				kind = backend.VariableSampler
			}
			p.UniformVars = append(p.UniformVars, backend.Variable{
				Name: m[2], Kind: kind, Type: glslTypes[m[1]], Location: loc, Size: 1,
			})
			loc++
		}
	}
	f.Programs[p.ID] = p
	f.record("CreateProgram:%s", sources.Key)
	return p, nil
}

func (f *Fake) IsProgram(p backend.Program) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p == nil {
		return false
	}
	_, ok := f.Programs[p.Name()]
	return ok
}

func (f *Fake) DeleteProgram(p backend.Program) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Programs, p.Name())
	f.record("DeleteProgram:%d", p.Name())
}

func (f *Fake) UseProgram(p backend.Program) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fp, ok := f.Programs[p.Name()]
	if !ok {
		return fmt.Errorf("program %d is not linked", p.Name())
	}
	f.current = fp
	f.record("UseProgram:%d", p.Name())
	return nil
}

func (f *Fake) SetUniform(p backend.Program, v backend.Variable, values []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Uniforms[v.Name] = append([]float32(nil), values...)
	return nil
}

func (f *Fake) SetVertexAttribute(p backend.Program, v backend.Variable, source backend.VertexSource) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetVertexAttribute:%s:%d", v.Name, source.Buffer)
	return nil
}

func (f *Fake) Viewport(x, y, width, height int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ViewportBox = [4]int{x, y, width, height}
	f.record("Viewport:%dx%d", width, height)
}

func (f *Fake) SetRenderState(state backend.RenderState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.State = state
	f.record("SetRenderState")
}

func (f *Fake) BeginFrame() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.BeginFrameErr != nil {
		return f.BeginFrameErr
	}
	f.record("BeginFrame")
	return nil
}

func (f *Fake) DrawArrays(mode backend.DrawMode, first, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DrawErr != nil {
		return f.DrawErr
	}
	f.Draws = append(f.Draws, Draw{Mode: mode, Count: count, Program: f.currentName()})
	f.record("DrawArrays:%s:%d", mode, count)
	return nil
}

func (f *Fake) DrawElements(mode backend.DrawMode, count int, indices backend.IndexSource) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DrawErr != nil {
		return f.DrawErr
	}
	f.Draws = append(f.Draws, Draw{Mode: mode, Count: count, Indexed: true, Program: f.currentName()})
	f.record("DrawElements:%s:%d", mode, count)
	return nil
}

func (f *Fake) currentName() uint32 {
	if f.current == nil {
		return 0
	}
	return f.current.ID
}

func (f *Fake) EndFrame() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("EndFrame")
	return nil
}

func (f *Fake) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Released = true
	f.record("Release")
}
