package webgpu

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	locationRegex    = regexp.MustCompile(`@location\((\d+)\)`)
	builtinRegex     = regexp.MustCompile(`@builtin\(\w+\)`)
	fieldRegex       = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	vertexEntryRegex   = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)\s*\(((?:[^()]|\([^()]*\))*)\)`)
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// @group(0) @binding(1) var<uniform> scene: SceneUniforms;
	// @group(0) @binding(2) var albedo: texture_2d<f32>;
	bindingDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

type wgslType struct {
	dataType backend.DataType
	format   wgpu.VertexFormat
	size     uint64
	align    uint64
}

var wgslTypes = map[string]wgslType{
	"f32":         {backend.TypeFloat, wgpu.VertexFormatFloat32, 4, 4},
	"i32":         {backend.TypeInt, wgpu.VertexFormatSint32, 4, 4},
	"u32":         {backend.TypeInt, wgpu.VertexFormatUint32, 4, 4},
	"vec2<f32>":   {backend.TypeVec2, wgpu.VertexFormatFloat32x2, 8, 8},
	"vec2f":       {backend.TypeVec2, wgpu.VertexFormatFloat32x2, 8, 8},
	"vec3<f32>":   {backend.TypeVec3, wgpu.VertexFormatFloat32x3, 12, 16},
	"vec3f":       {backend.TypeVec3, wgpu.VertexFormatFloat32x3, 12, 16},
	"vec4<f32>":   {backend.TypeVec4, wgpu.VertexFormatFloat32x4, 16, 16},
	"vec4f":       {backend.TypeVec4, wgpu.VertexFormatFloat32x4, 16, 16},
	"mat3x3<f32>": {backend.TypeMat3, 0, 48, 16},
	"mat3x3f":     {backend.TypeMat3, 0, 48, 16},
	"mat4x4<f32>": {backend.TypeMat4, 0, 64, 16},
	"mat4x4f":     {backend.TypeMat4, 0, 64, 16},
}

type parsedField struct {
	name     string
	typeName string
	location int
	builtin  bool
}

type parsedStruct struct {
	name   string
	fields []parsedField
}

// uniformBlock is one var<uniform> binding and its byte size.
type uniformBlock struct {
	binding uint32
	size    uint64
}

// textureSlot pairs a texture binding with the sampler declared after it.
type textureSlot struct {
	unit           int
	name           string
	textureBinding uint32
	samplerBinding uint32
	hasSampler     bool
}

// vertexInput is one vertex attribute location and its format.
type vertexInput struct {
	location   uint32
	format     wgpu.VertexFormat
	components int
}

// reflection is what the backend learns from a program's WGSL sources.
type reflection struct {
	vertexEntry   string
	fragmentEntry string
	attributes    []backend.Variable
	inputs        []vertexInput
	uniforms      []backend.Variable
	blocks        []uniformBlock
	textures      []textureSlot
}

// reflectProgram parses the vertex and fragment WGSL sources. Only bind group 0 is supported.
//
// Parameters:
//   - vertex: the vertex stage source
//   - fragment: the fragment stage source
//
// Returns:
//   - reflection: attributes, uniforms, uniform blocks and texture slots
//   - error: an error if an entry point is missing or a resource sits outside group 0
func reflectProgram(vertex, fragment string) (reflection, error) {
	var r reflection
	vs, fs := stripComments(vertex), stripComments(fragment)

	m := vertexEntryRegex.FindStringSubmatch(vs)
	if m == nil {
		return r, fmt.Errorf("no @vertex entry point")
	}
	r.vertexEntry = m[1]
	if fm := fragmentEntryRegex.FindStringSubmatch(fs); fm != nil {
		r.fragmentEntry = fm[1]
	} else {
		return r, fmt.Errorf("no @fragment entry point")
	}

	vsStructs := parseStructBlocks(vs)
	r.reflectVertexInputs(m[2], vsStructs)

	structs := append(vsStructs, parseStructBlocks(fs)...)
	layouts := computeStructSizes(structs)
	byName := make(map[string]parsedStruct, len(structs))
	for _, ps := range structs {
		byName[ps.name] = ps
	}

	seen := make(map[uint32]bool)
	var samplers []uint32
	for _, src := range []string{vs, fs} {
		for _, d := range bindingDeclRegex.FindAllStringSubmatch(src, -1) {
			group, _ := strconv.Atoi(d[1])
			binding64, _ := strconv.ParseUint(d[2], 10, 32)
			binding := uint32(binding64)
			if group != 0 {
				return r, fmt.Errorf("resource %s uses group %d, only group 0 is supported", d[4], group)
			}
			if seen[binding] {
				continue
			}
			seen[binding] = true

			space, name, typeName := strings.TrimSpace(d[3]), d[4], strings.TrimSpace(d[5])
			switch {
			case space == "uniform":
				r.reflectUniformBlock(binding, name, typeName, byName, layouts)
			case typeName == "sampler":
				samplers = append(samplers, binding)
			case strings.HasPrefix(typeName, "texture_2d"):
				r.textures = append(r.textures, textureSlot{name: name, textureBinding: binding})
			}
		}
	}

	sort.Slice(r.textures, func(i, j int) bool { return r.textures[i].textureBinding < r.textures[j].textureBinding })
	sort.Slice(samplers, func(i, j int) bool { return samplers[i] < samplers[j] })
	for i := range r.textures {
		t := &r.textures[i]
		t.unit = i
		for _, s := range samplers {
			if s > t.textureBinding {
				t.samplerBinding, t.hasSampler = s, true
				break
			}
		}
		r.uniforms = append(r.uniforms, backend.Variable{
			Name:     t.name,
			Kind:     backend.VariableSampler,
			Type:     backend.TypeSampler2D,
			Location: int32(i),
			Size:     1,
			Binding:  t.textureBinding,
		})
	}
	return r, nil
}

func (r *reflection) reflectVertexInputs(params string, structs []parsedStruct) {
	var fields []parsedField
	for _, p := range splitAtTopLevelCommas(params) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, ok := parseField(p)
		if !ok {
			continue
		}
		if f.location >= 0 {
			fields = append(fields, f)
			continue
		}
		for _, ps := range structs {
			if ps.name == f.typeName && isVertexInputStruct(ps) {
				fields = append(fields, ps.fields...)
			}
		}
	}

	sort.Slice(fields, func(i, j int) bool { return fields[i].location < fields[j].location })
	for _, f := range fields {
		t, ok := wgslTypes[f.typeName]
		if !ok || t.format == 0 {
			continue
		}
		r.attributes = append(r.attributes, backend.Variable{
			Name:     f.name,
			Kind:     backend.VariableAttribute,
			Type:     t.dataType,
			Location: int32(f.location),
			Size:     1,
		})
		r.inputs = append(r.inputs, vertexInput{
			location:   uint32(f.location),
			format:     t.format,
			components: t.dataType.Components(),
		})
	}
}

func (r *reflection) reflectUniformBlock(binding uint32, name, typeName string, structs map[string]parsedStruct, layouts map[string]typeLayout) {
	if t, ok := wgslTypes[typeName]; ok {
		r.blocks = append(r.blocks, uniformBlock{binding: binding, size: roundUpAlign(16, t.size)})
		r.uniforms = append(r.uniforms, backend.Variable{
			Name: name, Kind: backend.VariableUniform, Type: t.dataType, Location: -1, Size: 1, Binding: binding,
		})
		return
	}

	ps, ok := structs[typeName]
	if !ok {
		return
	}
	layout := layouts[typeName]
	r.blocks = append(r.blocks, uniformBlock{binding: binding, size: roundUpAlign(16, layout.size)})

	var offset uint64
	for _, f := range ps.fields {
		t, ok := wgslTypes[f.typeName]
		if !ok {
			// Nested or array members are laid out but not addressable as variables.
			if fl, known := resolveTypeLayout(f.typeName, layouts); known {
				offset = roundUpAlign(fl.align, offset) + fl.size
			}
			continue
		}
		offset = roundUpAlign(t.align, offset)
		r.uniforms = append(r.uniforms, backend.Variable{
			Name:     f.name,
			Kind:     backend.VariableUniform,
			Type:     t.dataType,
			Location: -1,
			Size:     1,
			Binding:  binding,
			Offset:   offset,
		})
		offset += t.size
	}
}

func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, match := range matches {
		var fields []parsedField
		for _, line := range splitAtTopLevelCommas(match[2]) {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if f, ok := parseField(line); ok {
				fields = append(fields, f)
			}
		}
		structs = append(structs, parsedStruct{name: match[1], fields: fields})
	}
	return structs
}

func parseField(line string) (parsedField, bool) {
	f := parsedField{location: -1, builtin: builtinRegex.MatchString(line)}
	if m := locationRegex.FindStringSubmatch(line); m != nil {
		f.location, _ = strconv.Atoi(m[1])
	}
	fm := fieldRegex.FindStringSubmatch(line)
	if fm == nil {
		return f, false
	}
	f.name = fm[1]
	f.typeName = strings.TrimSpace(fm[2])
	return f, true
}

func isVertexInputStruct(ps parsedStruct) bool {
	hasLocation := false
	for _, f := range ps.fields {
		if f.builtin {
			return false
		}
		if f.location >= 0 {
			hasLocation = true
		}
	}
	return hasLocation
}

type typeLayout struct {
	size  uint64
	align uint64
}

func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

func resolveTypeLayout(typeName string, known map[string]typeLayout) (typeLayout, bool) {
	if t, ok := wgslTypes[typeName]; ok {
		return typeLayout{t.size, t.align}, true
	}
	if l, ok := known[typeName]; ok {
		return l, true
	}
	if strings.HasPrefix(typeName, "array<") && strings.HasSuffix(typeName, ">") {
		parts := strings.SplitN(typeName[6:len(typeName)-1], ",", 2)
		elem, ok := resolveTypeLayout(strings.TrimSpace(parts[0]), known)
		if !ok || len(parts) != 2 {
			return typeLayout{}, false
		}
		count, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			return typeLayout{}, false
		}
		// Uniform arrays have a 16 byte element stride.
		stride := roundUpAlign(max(elem.align, 16), elem.size)
		return typeLayout{count * stride, max(elem.align, 16)}, true
	}
	return typeLayout{}, false
}

// computeStructSizes resolves struct layouts iteratively so structs can nest other structs.
func computeStructSizes(structs []parsedStruct) map[string]typeLayout {
	resolved := make(map[string]typeLayout, len(structs))
	remaining := append([]parsedStruct(nil), structs...)
	for len(remaining) > 0 {
		progress := false
		next := remaining[:0]
		for _, ps := range remaining {
			if l, ok := computeStructLayout(ps, resolved); ok {
				resolved[ps.name] = l
				progress = true
			} else {
				next = append(next, ps)
			}
		}
		remaining = next
		if !progress {
			break
		}
	}
	return resolved
}

func computeStructLayout(ps parsedStruct, known map[string]typeLayout) (typeLayout, bool) {
	var offset uint64
	maxAlign := uint64(1)
	for _, f := range ps.fields {
		if f.builtin {
			continue
		}
		l, ok := resolveTypeLayout(f.typeName, known)
		if !ok {
			return typeLayout{}, false
		}
		offset = roundUpAlign(l.align, offset) + l.size
		maxAlign = max(maxAlign, l.align)
	}
	return typeLayout{roundUpAlign(maxAlign, offset), maxAlign}, true
}

func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(':
			depth++
		case '>', ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			switch {
			case source[i] == '/' && source[i+1] == '*':
				depth++
				i++
				continue
			case source[i] == '*' && source[i+1] == '/' && depth > 0:
				depth--
				i++
				continue
			case depth == 0 && source[i] == '/' && source[i+1] == '/':
				for i < len(source) && source[i] != '\n' {
					i++
				}
				if i < len(source) {
					sb.WriteByte('\n')
				}
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}
