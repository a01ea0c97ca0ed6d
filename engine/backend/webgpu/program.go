package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/common/log"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/cogentcore/webgpu/wgpu"
)

type program struct {
	name     uint32
	key      string
	mode     backend.DrawMode
	refl     reflection
	pipeline *wgpu.RenderPipeline
	layout   *wgpu.BindGroupLayout
	vs, fs   *wgpu.ShaderModule

	// uniform block contents by binding, written into a per-draw buffer.
	blocks map[uint32][]byte
}

var _ backend.Program = &program{}

func (p *program) Name() uint32                   { return p.name }
func (p *program) Attributes() []backend.Variable { return p.refl.attributes }
func (p *program) Uniforms() []backend.Variable   { return p.refl.uniforms }

func (p *program) release() {
	if p.pipeline != nil {
		p.pipeline.Release()
	}
	if p.layout != nil {
		p.layout.Release()
	}
	if p.vs != nil {
		p.vs.Release()
	}
	if p.fs != nil {
		p.fs.Release()
	}
}

func (a *api) CreateProgram(sources backend.ProgramSources) (backend.Program, error) {
	if sources.Language != backend.LanguageWGSL {
		return nil, common.ConfigurationError("webgpu.CreateProgram", "program %s is not WGSL", sources.Key)
	}
	vertex, fragment := sources.Stages[backend.StageVertex], sources.Stages[backend.StageFragment]
	if vertex == "" || fragment == "" {
		return nil, common.ConfigurationError("webgpu.CreateProgram", "program %s needs vertex and fragment stages", sources.Key)
	}
	refl, err := reflectProgram(vertex, fragment)
	if err != nil {
		return nil, common.ConfigurationError("webgpu.CreateProgram", "program %s: %v", sources.Key, err)
	}
	if ep := sources.EntryPoints[backend.StageVertex]; ep != "" {
		refl.vertexEntry = ep
	}
	if ep := sources.EntryPoints[backend.StageFragment]; ep != "" {
		refl.fragmentEntry = ep
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	p := &program{
		key:    sources.Key,
		mode:   sources.Mode,
		refl:   refl,
		blocks: make(map[uint32][]byte, len(refl.blocks)),
	}
	for _, b := range refl.blocks {
		p.blocks[b.binding] = make([]byte, b.size)
	}

	if err := a.buildPipeline(p, sources, vertex, fragment); err != nil {
		p.release()
		return nil, common.ResourceError("webgpu.CreateProgram", fmt.Errorf("program %s: %w", sources.Key, err))
	}
	p.name = a.name()
	a.programs[p.name] = p

	a.log.Debug("program created",
		log.String("key", sources.Key),
		log.Int("attributes", len(refl.attributes)),
		log.Int("uniforms", len(refl.uniforms)),
	)
	return p, nil
}

func (a *api) buildPipeline(p *program, sources backend.ProgramSources, vertex, fragment string) error {
	var err error
	if p.vs, err = a.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          sources.Key + " vertex",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: vertex},
	}); err != nil {
		return err
	}
	if p.fs, err = a.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          sources.Key + " fragment",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: fragment},
	}); err != nil {
		return err
	}

	visibility := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	var entries []wgpu.BindGroupLayoutEntry
	for _, b := range p.refl.blocks {
		entry := wgpu.BindGroupLayoutEntry{Binding: b.binding, Visibility: visibility}
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		entry.Buffer.MinBindingSize = b.size
		entries = append(entries, entry)
	}
	for _, t := range p.refl.textures {
		entry := wgpu.BindGroupLayoutEntry{Binding: t.textureBinding, Visibility: visibility}
		entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
		entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
		entries = append(entries, entry)
		if t.hasSampler {
			s := wgpu.BindGroupLayoutEntry{Binding: t.samplerBinding, Visibility: visibility}
			s.Sampler.Type = wgpu.SamplerBindingTypeFiltering
			entries = append(entries, s)
		}
	}
	if p.layout, err = a.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   sources.Key,
		Entries: entries,
	}); err != nil {
		return err
	}
	pipelineLayout, err := a.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            sources.Key,
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.layout},
	})
	if err != nil {
		return err
	}
	defer pipelineLayout.Release()

	// One buffer slot per vertex input so each attribute can come from its own buffer and offset.
	buffers := make([]wgpu.VertexBufferLayout, len(p.refl.inputs))
	for i, in := range p.refl.inputs {
		buffers[i] = wgpu.VertexBufferLayout{
			ArrayStride: uint64(in.components * 4),
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{{
				Format:         in.format,
				Offset:         0,
				ShaderLocation: in.location,
			}},
		}
	}

	target := wgpu.ColorTargetState{Format: a.surfaceFormat, WriteMask: wgpu.ColorWriteMaskAll}
	if sources.Blend {
		target.Blend = &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	}

	depthCompare := wgpu.CompareFunctionAlways
	if sources.Depth {
		depthCompare = wgpu.CompareFunctionLess
		if a.state.Depth == backend.DepthLessEqual {
			depthCompare = wgpu.CompareFunctionLessEqual
		}
	}
	cull := wgpu.CullModeNone
	switch a.state.Cull {
	case backend.CullBack:
		cull = wgpu.CullModeBack
	case backend.CullFront:
		cull = wgpu.CullModeFront
	}

	p.pipeline, err = a.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  sources.Key,
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     p.vs,
			EntryPoint: p.refl.vertexEntry,
			Buffers:    buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     p.fs,
			EntryPoint: p.refl.fragmentEntry,
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  topologies[sources.Mode],
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  cull,
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(a.opts.MSAA),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: sources.Depth,
			DepthCompare:      depthCompare,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
	})
	return err
}

func (a *api) IsProgram(p backend.Program) bool {
	if p == nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.programs[p.Name()]
	return ok
}

func (a *api) DeleteProgram(p backend.Program) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if wp, ok := a.programs[p.Name()]; ok {
		wp.release()
		delete(a.programs, p.Name())
		if a.current == wp {
			a.current = nil
		}
	}
}

func (a *api) UseProgram(p backend.Program) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	wp, ok := a.programs[p.Name()]
	if !ok {
		return common.ArgumentError("webgpu.UseProgram", "program %d is not linked", p.Name())
	}
	a.current = wp
	clear(a.vertices)
	return nil
}

// SetUniform writes values into the CPU copy of the variable's uniform block using WGSL layout rules.
func (a *api) SetUniform(p backend.Program, v backend.Variable, values []float32) error {
	if v.Kind == backend.VariableSampler {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	wp, ok := a.programs[p.Name()]
	if !ok {
		return common.ArgumentError("webgpu.SetUniform", "program %d is not linked", p.Name())
	}
	block, ok := wp.blocks[v.Binding]
	if !ok {
		return common.ArgumentError("webgpu.SetUniform", "no uniform block at binding %d for %s", v.Binding, v.Name)
	}

	put := func(offset uint64, f float32) {
		if offset+4 <= uint64(len(block)) {
			binary.LittleEndian.PutUint32(block[offset:], math.Float32bits(f))
		}
	}
	switch v.Type {
	case backend.TypeMat3:
		// Columns of a mat3x3 are padded to 16 bytes.
		for col := 0; col < 3; col++ {
			for row := 0; row < 3 && col*3+row < len(values); row++ {
				put(v.Offset+uint64(col*16+row*4), values[col*3+row])
			}
		}
	case backend.TypeInt:
		if len(values) > 0 {
			binary.LittleEndian.PutUint32(block[v.Offset:], uint32(int32(values[0])))
		}
	default:
		n := min(len(values), v.Type.Components())
		for i := 0; i < n; i++ {
			put(v.Offset+uint64(i*4), values[i])
		}
	}
	return nil
}

func (a *api) SetVertexAttribute(p backend.Program, v backend.Variable, source backend.VertexSource) error {
	if v.Location < 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.vertices[uint32(v.Location)] = source
	return nil
}

func (a *api) DrawArrays(mode backend.DrawMode, first, count int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.prepareDraw(); err != nil {
		return err
	}
	if needsExpansion(mode) {
		return a.drawIndexed(expandIndices(mode, sequence(first, count)))
	}
	a.pass.Draw(uint32(count), 1, uint32(first), 0)
	return nil
}

func (a *api) DrawElements(mode backend.DrawMode, count int, indices backend.IndexSource) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.prepareDraw(); err != nil {
		return err
	}

	data := indices.Data
	if indices.Buffer != 0 {
		b, ok := a.buffers[indices.Buffer]
		if !ok {
			return common.ArgumentError("webgpu.DrawElements", "buffer %d was not created", indices.Buffer)
		}
		if indices.Type == backend.IndexUnsignedInt && !needsExpansion(mode) && b.gpu != nil {
			a.pass.SetIndexBuffer(b.gpu, wgpu.IndexFormatUint32, uint64(indices.Offset), uint64(count*4))
			a.pass.DrawIndexed(uint32(count), 1, 0, 0, 0)
			return nil
		}
		data = b.data
	}

	decoded, err := decodeIndices(data, indices.Type, indices.Offset, count)
	if err != nil {
		return common.ArgumentError("webgpu.DrawElements", "%v", err)
	}
	return a.drawIndexed(expandIndices(mode, decoded))
}

func (a *api) drawIndexed(indices []uint32) error {
	if len(indices) == 0 {
		return nil
	}
	buf, err := a.upload("indices", encodeIndices(indices))
	if err != nil {
		return err
	}
	a.transient = append(a.transient, buf)
	a.pass.SetIndexBuffer(buf, wgpu.IndexFormatUint32, 0, uint64(len(indices)*4))
	a.pass.DrawIndexed(uint32(len(indices)), 1, 0, 0, 0)
	return nil
}

// prepareDraw binds the current program's pipeline, a fresh bind group and every vertex input.
func (a *api) prepareDraw() error {
	if a.pass == nil {
		return common.ConfigurationError("webgpu.draw", "draw outside of a frame")
	}
	p := a.current
	if p == nil {
		return common.ConfigurationError("webgpu.draw", "no program in use")
	}
	a.pass.SetPipeline(p.pipeline)

	var entries []wgpu.BindGroupEntry
	for binding, data := range p.blocks {
		buf, err := a.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: p.key + " uniforms",
			Size:  uint64(len(data)),
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return common.ResourceError("webgpu.draw", err)
		}
		a.queue.WriteBuffer(buf, 0, data)
		a.transient = append(a.transient, buf)
		entries = append(entries, wgpu.BindGroupEntry{Binding: binding, Buffer: buf, Offset: 0, Size: wgpu.WholeSize})
	}
	for _, slot := range p.refl.textures {
		t, ok := a.textures[a.bound[slot.unit]]
		if !ok || t.view == nil {
			var err error
			if t, err = a.fallbackTexture(); err != nil {
				return err
			}
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: slot.textureBinding, TextureView: t.view})
		if slot.hasSampler {
			entries = append(entries, wgpu.BindGroupEntry{Binding: slot.samplerBinding, Sampler: t.sampler})
		}
	}
	if len(entries) > 0 {
		bg, err := a.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   p.key,
			Layout:  p.layout,
			Entries: entries,
		})
		if err != nil {
			return common.ResourceError("webgpu.draw", err)
		}
		a.bindGroups = append(a.bindGroups, bg)
		a.pass.SetBindGroup(0, bg, nil)
	}

	for slot, in := range p.refl.inputs {
		src, ok := a.vertices[in.location]
		if !ok {
			return common.ArgumentError("webgpu.draw", "no source for vertex location %d", in.location)
		}
		buf, offset, err := a.vertexBuffer(src, in.components)
		if err != nil {
			return err
		}
		a.pass.SetVertexBuffer(uint32(slot), buf, offset, wgpu.WholeSize)
	}
	return nil
}

// vertexBuffer returns a buffer whose elements are tightly packed at offset.
// Interleaved or client-side sources are repacked into a transient buffer.
func (a *api) vertexBuffer(src backend.VertexSource, components int) (*wgpu.Buffer, uint64, error) {
	tight := components * 4
	if src.Buffer != 0 {
		b, ok := a.buffers[src.Buffer]
		if !ok || b.gpu == nil {
			return nil, 0, common.ArgumentError("webgpu.draw", "buffer %d has no data", src.Buffer)
		}
		if src.Stride == 0 || src.Stride == tight {
			return b.gpu, uint64(src.Offset), nil
		}
		return a.repack(b.data, src.Offset, src.Stride, tight)
	}
	if src.Stride == 0 || src.Stride == tight {
		buf, err := a.upload("vertices", src.Data[src.Offset:])
		if err != nil {
			return nil, 0, err
		}
		a.transient = append(a.transient, buf)
		return buf, 0, nil
	}
	return a.repack(src.Data, src.Offset, src.Stride, tight)
}

func (a *api) repack(data []byte, offset, stride, size int) (*wgpu.Buffer, uint64, error) {
	var packed []byte
	for p := offset; p+size <= len(data); p += stride {
		packed = append(packed, data[p:p+size]...)
	}
	if len(packed) == 0 {
		return nil, 0, common.ArgumentError("webgpu.draw", "vertex source is empty")
	}
	buf, err := a.upload("vertices", packed)
	if err != nil {
		return nil, 0, err
	}
	a.transient = append(a.transient, buf)
	return buf, 0, nil
}
