package gles

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/common/log"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/go-gl/gl/v3.3-core/gl"
)

type program struct {
	name       uint32
	attributes []backend.Variable
	uniforms   []backend.Variable
}

var _ backend.Program = &program{}

func (p *program) Name() uint32                   { return p.name }
func (p *program) Attributes() []backend.Variable { return p.attributes }
func (p *program) Uniforms() []backend.Variable   { return p.uniforms }

var stageKinds = map[backend.Stage]uint32{
	backend.StageVertex:   gl.VERTEX_SHADER,
	backend.StageFragment: gl.FRAGMENT_SHADER,
}

var dataTypes = map[uint32]backend.DataType{
	gl.FLOAT:      backend.TypeFloat,
	gl.FLOAT_VEC2: backend.TypeVec2,
	gl.FLOAT_VEC3: backend.TypeVec3,
	gl.FLOAT_VEC4: backend.TypeVec4,
	gl.FLOAT_MAT3: backend.TypeMat3,
	gl.FLOAT_MAT4: backend.TypeMat4,
	gl.INT:        backend.TypeInt,
	gl.SAMPLER_2D: backend.TypeSampler2D,
}

func (a *api) CreateProgram(sources backend.ProgramSources) (backend.Program, error) {
	if sources.Language != backend.LanguageGLSL {
		return nil, common.ConfigurationError("gles.CreateProgram", "program %s is not GLSL", sources.Key)
	}

	name := gl.CreateProgram()
	var shaders []uint32
	defer func() {
		for _, s := range shaders {
			gl.DeleteShader(s)
		}
	}()

	for stage, src := range sources.Stages {
		kind, ok := stageKinds[stage]
		if !ok {
			gl.DeleteProgram(name)
			return nil, common.ConfigurationError("gles.CreateProgram", "stage %s is not supported", stage)
		}
		shader, err := compileShader(withVersion(src), kind)
		if err != nil {
			gl.DeleteProgram(name)
			return nil, fmt.Errorf("program %s %s stage: %w", sources.Key, stage, err)
		}
		gl.AttachShader(name, shader)
		shaders = append(shaders, shader)
	}

	gl.LinkProgram(name)
	var status int32
	gl.GetProgramiv(name, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var length int32
		gl.GetProgramiv(name, gl.INFO_LOG_LENGTH, &length)
		info := strings.Repeat("\x00", int(length+1))
		gl.GetProgramInfoLog(name, length, nil, gl.Str(info))
		gl.DeleteProgram(name)
		return nil, common.ResourceError("gles.CreateProgram", fmt.Errorf("failed to link %s: %s", sources.Key, strings.TrimRight(info, "\x00")))
	}

	p := &program{
		name:       name,
		attributes: reflectAttributes(name),
		uniforms:   reflectUniforms(name),
	}
	a.log.Debug("program linked",
		log.String("key", sources.Key),
		log.Int("attributes", len(p.attributes)),
		log.Int("uniforms", len(p.uniforms)),
	)
	return p, nil
}

func (a *api) IsProgram(p backend.Program) bool {
	return p != nil && gl.IsProgram(p.Name())
}

func (a *api) DeleteProgram(p backend.Program) {
	gl.DeleteProgram(p.Name())
}

func (a *api) UseProgram(p backend.Program) error {
	gl.UseProgram(p.Name())
	return glError("UseProgram")
}

func (a *api) SetUniform(p backend.Program, v backend.Variable, values []float32) error {
	if len(values) == 0 {
		return nil
	}
	size := max(v.Size, 1)
	switch v.Type {
	case backend.TypeFloat:
		gl.Uniform1fv(v.Location, size, &values[0])
	case backend.TypeVec2:
		gl.Uniform2fv(v.Location, size, &values[0])
	case backend.TypeVec3:
		gl.Uniform3fv(v.Location, size, &values[0])
	case backend.TypeVec4:
		gl.Uniform4fv(v.Location, size, &values[0])
	case backend.TypeMat3:
		gl.UniformMatrix3fv(v.Location, size, false, &values[0])
	case backend.TypeMat4:
		gl.UniformMatrix4fv(v.Location, size, false, &values[0])
	case backend.TypeInt, backend.TypeSampler2D:
		gl.Uniform1i(v.Location, int32(values[0]))
	default:
		return common.ArgumentError("gles.SetUniform", "unsupported uniform type for %s", v.Name)
	}
	return nil
}

func (a *api) SetVertexAttribute(p backend.Program, v backend.Variable, source backend.VertexSource) error {
	if v.Location < 0 {
		return nil
	}
	if source.Buffer != 0 {
		gl.BindBuffer(gl.ARRAY_BUFFER, source.Buffer)
	} else {
		if len(source.Data) == 0 {
			return common.ArgumentError("gles.SetVertexAttribute", "no buffer or data for %s", v.Name)
		}
		stream, ok := a.streams[v.Location]
		if !ok {
			gl.GenBuffers(1, &stream)
			a.streams[v.Location] = stream
		}
		gl.BindBuffer(gl.ARRAY_BUFFER, stream)
		gl.BufferData(gl.ARRAY_BUFFER, len(source.Data), gl.Ptr(source.Data), gl.STREAM_DRAW)
	}
	components := source.Components
	if components == 0 {
		components = v.Type.Components()
	}
	loc := uint32(v.Location)
	gl.EnableVertexAttribArray(loc)
	gl.VertexAttribPointer(loc, int32(components), gl.FLOAT, false, int32(source.Stride), gl.PtrOffset(source.Offset))
	return glError("SetVertexAttribute")
}

func compileShader(source string, kind uint32) (uint32, error) {
	shader := gl.CreateShader(kind)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var length int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &length)
		info := strings.Repeat("\x00", int(length+1))
		gl.GetShaderInfoLog(shader, length, nil, gl.Str(info))
		gl.DeleteShader(shader)
		return 0, common.ResourceError("gles.compileShader", fmt.Errorf("failed to compile: %s", strings.TrimRight(info, "\x00")))
	}
	return shader, nil
}

func reflectAttributes(name uint32) []backend.Variable {
	var count, maxLength int32
	gl.GetProgramiv(name, gl.ACTIVE_ATTRIBUTES, &count)
	gl.GetProgramiv(name, gl.ACTIVE_ATTRIBUTE_MAX_LENGTH, &maxLength)

	out := make([]backend.Variable, 0, count)
	buf := make([]uint8, maxLength+1)
	for i := int32(0); i < count; i++ {
		var length, size int32
		var xtype uint32
		gl.GetActiveAttrib(name, uint32(i), maxLength+1, &length, &size, &xtype, &buf[0])
		varName := string(buf[:length])
		out = append(out, backend.Variable{
			Name:     varName,
			Kind:     backend.VariableAttribute,
			Type:     dataTypes[xtype],
			Location: gl.GetAttribLocation(name, gl.Str(varName+"\x00")),
			Size:     size,
		})
	}
	return out
}

func reflectUniforms(name uint32) []backend.Variable {
	var count, maxLength int32
	gl.GetProgramiv(name, gl.ACTIVE_UNIFORMS, &count)
	gl.GetProgramiv(name, gl.ACTIVE_UNIFORM_MAX_LENGTH, &maxLength)

	out := make([]backend.Variable, 0, count)
	buf := make([]uint8, maxLength+1)
	for i := int32(0); i < count; i++ {
		var length, size int32
		var xtype uint32
		gl.GetActiveUniform(name, uint32(i), maxLength+1, &length, &size, &xtype, &buf[0])
		varName := strings.TrimSuffix(string(buf[:length]), "[0]")
		kind := backend.VariableUniform
		if xtype == gl.SAMPLER_2D {
			kind = backend.VariableSampler
		}
		out = append(out, backend.Variable{
			Name:     varName,
			Kind:     kind,
			Type:     dataTypes[xtype],
			Location: gl.GetUniformLocation(name, gl.Str(varName+"\x00")),
			Size:     size,
		})
	}
	return out
}
