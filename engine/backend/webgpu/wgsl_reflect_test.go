package webgpu

import (
	"testing"

	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const litVertex = `
struct Uniforms {
    uMVPMatrix: mat4x4<f32>,
    uNormalMatrix: mat3x3<f32>,
    uColor: vec4<f32>,
    uTime: f32,
}

@group(0) @binding(0) var<uniform> u: Uniforms;

struct VertexInput {
    @location(0) aPosition: vec3<f32>,
    @location(1) aTexCoord0: vec2<f32>,
    // @location(7) aIgnored: vec4<f32>,
}

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.position = u.uMVPMatrix * vec4<f32>(in.aPosition, 1.0);
    out.uv = in.aTexCoord0;
    return out;
}
`

const litFragment = `
@group(0) @binding(1) var uTexture0: texture_2d<f32>;
@group(0) @binding(2) var uSampler0: sampler;

/* block comment with @group(1) @binding(0) var hidden: sampler; */
@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return textureSample(uTexture0, uSampler0, uv);
}
`

func TestReflectProgram(t *testing.T) {
	r, err := reflectProgram(litVertex, litFragment)
	require.NoError(t, err)

	assert.Equal(t, "vs_main", r.vertexEntry)
	assert.Equal(t, "fs_main", r.fragmentEntry)

	require.Len(t, r.attributes, 2)
	assert.Equal(t, "aPosition", r.attributes[0].Name)
	assert.Equal(t, backend.TypeVec3, r.attributes[0].Type)
	assert.Equal(t, int32(1), r.attributes[1].Location)
	require.Len(t, r.inputs, 2)
	assert.Equal(t, 2, r.inputs[1].components)

	require.Len(t, r.blocks, 1)
	// mat4 64 + mat3 48 + vec4 16 + f32 4, rounded to 16
	assert.Equal(t, uint64(144), r.blocks[0].size)

	byName := make(map[string]backend.Variable)
	for _, v := range r.uniforms {
		byName[v.Name] = v
	}
	assert.Equal(t, uint64(0), byName["uMVPMatrix"].Offset)
	assert.Equal(t, uint64(64), byName["uNormalMatrix"].Offset)
	assert.Equal(t, uint64(112), byName["uColor"].Offset)
	assert.Equal(t, uint64(128), byName["uTime"].Offset)

	tex := byName["uTexture0"]
	assert.Equal(t, backend.VariableSampler, tex.Kind)
	assert.Equal(t, int32(0), tex.Location)
	require.Len(t, r.textures, 1)
	assert.True(t, r.textures[0].hasSampler)
	assert.Equal(t, uint32(2), r.textures[0].samplerBinding)
}

func TestReflectProgramParameterInputs(t *testing.T) {
	vs := `
@vertex
fn main(@location(0) aPosition: vec3f, @location(2) aColor: vec4f) -> @builtin(position) vec4f {
    return vec4f(aPosition, 1.0);
}
`
	fs := `
@fragment
fn main() -> @location(0) vec4f { return vec4f(1.0); }
`
	r, err := reflectProgram(vs, fs)
	require.NoError(t, err)
	require.Len(t, r.attributes, 2)
	assert.Equal(t, "aColor", r.attributes[1].Name)
	assert.Equal(t, int32(2), r.attributes[1].Location)
	assert.Empty(t, r.blocks)
}

func TestReflectProgramRejects(t *testing.T) {
	_, err := reflectProgram("fn main() {}", litFragment)
	assert.Error(t, err)

	_, err = reflectProgram(litVertex, "fn main() {}")
	assert.Error(t, err)

	fs := `
@group(1) @binding(0) var t: texture_2d<f32>;
@fragment fn fs() -> @location(0) vec4f { return vec4f(1.0); }
`
	_, err = reflectProgram(litVertex, fs)
	assert.Error(t, err)
}

func TestStripComments(t *testing.T) {
	src := "a // line\nb /* x /* nested */ y */ c"
	assert.Equal(t, "a \nb  c", stripComments(src))
}
