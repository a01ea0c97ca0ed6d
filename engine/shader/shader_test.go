package shader_test

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/Carmen-Shannon/nucleus-go/engine/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const glslVertex = `#version 330 core
#include "transform.glsl"
in vec3 aPosition;
void main() {
#ifdef SKINNED
    gl_Position = skin(aPosition);
#else
    gl_Position = transform(aPosition);
#endif
}`

const transformGLSL = `uniform mat4 uMVPMatrix;
vec4 transform(vec3 p) { return uMVPMatrix * vec4(p, 1.0); }`

func TestPreProcessorGLSL(t *testing.T) {
	pp := shader.NewPreProcessor(map[string]string{"transform.glsl": transformGLSL})
	out, err := pp.Process(glslVertex, backend.LanguageGLSL, []shader.Define{{Name: "LIGHTS", Value: "4"}})
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	assert.Equal(t, "#version 330 core", lines[0])
	assert.Equal(t, "#define LIGHTS 4", lines[1])
	assert.Contains(t, out, "uniform mat4 uMVPMatrix;")
	assert.Contains(t, out, "transform(aPosition)")
	assert.NotContains(t, out, "skin(")
	assert.NotContains(t, out, "#ifdef")
	assert.Equal(t, []string{"transform.glsl"}, pp.Includes())
}

func TestPreProcessorWGSL(t *testing.T) {
	src := `#define LIGHT_COUNT 4
#ifndef NO_FOG
const fog: bool = true;
#endif
var<private> lights: array<vec4f, LIGHT_COUNT>;
const LIGHT_COUNT_X: u32 = 1u;`
	out, err := shader.NewPreProcessor(nil).Process(src, backend.LanguageWGSL, []shader.Define{{Name: "NO_FOG"}})
	require.NoError(t, err)

	assert.NotContains(t, out, "#define")
	assert.NotContains(t, out, "fog")
	assert.Contains(t, out, "array<vec4f, 4>")
	assert.Contains(t, out, "LIGHT_COUNT_X", "substitution is whole-word only")
}

func TestPreProcessorNestedConditionals(t *testing.T) {
	src := `#ifdef A
a
#ifdef B
ab
#else
a-not-b
#endif
#endif
tail`
	pp := shader.NewPreProcessor(nil)

	out, err := pp.Process(src, backend.LanguageWGSL, []shader.Define{{Name: "A"}})
	require.NoError(t, err)
	assert.Equal(t, "a\na-not-b\ntail", out)

	out, err = pp.Process(src, backend.LanguageWGSL, []shader.Define{{Name: "B"}})
	require.NoError(t, err)
	assert.Equal(t, "tail", out)
}

func TestPreProcessorErrors(t *testing.T) {
	pp := shader.NewPreProcessor(map[string]string{
		"self.wgsl": `#include "self.wgsl"`,
	})
	cases := map[string]string{
		"unknown include":  `#include "missing.wgsl"`,
		"unquoted include": `#include missing.wgsl`,
		"recursive":        `#include "self.wgsl"`,
		"stray else":       `#else`,
		"stray endif":      `#endif`,
		"unclosed":         "#ifdef A\nx",
		"double else":      "#ifdef A\n#else\n#else\n#endif",
		"nameless define":  `#define`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := pp.Process(src, backend.LanguageWGSL, nil)
			assert.Error(t, err)
		})
	}
}

func TestPreProcessorPassesForeignDirectives(t *testing.T) {
	src := "#version 300 es\n#extension GL_OES_standard_derivatives : enable\nvoid main() {}"
	out, err := shader.NewPreProcessor(nil).Process(src, backend.LanguageGLSL, nil)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestNewShaderKey(t *testing.T) {
	build := func(options ...shader.ShaderBuilderOption) shader.Shader {
		s, err := shader.NewShader(backend.LanguageGLSL, append([]shader.ShaderBuilderOption{
			shader.WithStage(backend.StageVertex, glslVertex),
			shader.WithStage(backend.StageFragment, "void main() {}"),
			shader.WithInclude("transform.glsl", transformGLSL),
		}, options...)...)
		require.NoError(t, err)
		return s
	}

	a, b := build(), build()
	assert.Equal(t, a.Key(), b.Key())
	assert.True(t, strings.HasPrefix(a.Key(), "shader-"))

	assert.NotEqual(t, a.Key(), build(shader.WithDefine("SKINNED", "")).Key())
	assert.NotEqual(t, a.Key(), build(shader.WithBlend(true)).Key())
	assert.NotEqual(t, a.Key(), build(shader.WithMode(backend.DrawModeLines)).Key())
	assert.Equal(t, "explicit", build(shader.WithKey("explicit")).Key())
}

func TestNewShaderProgramSources(t *testing.T) {
	s, err := shader.NewShader(backend.LanguageWGSL,
		shader.WithKey("sprite"),
		shader.WithIncludeFS(fstest.MapFS{
			"common/uniforms.wgsl": {Data: []byte("struct U { m: mat4x4f, }")},
		}, "common/*.wgsl"),
		shader.WithStage(backend.StageVertex, "#include \"common/uniforms.wgsl\"\n@vertex fn vs() {}"),
		shader.WithStage(backend.StageFragment, "@fragment fn fs() {}"),
		shader.WithEntryPoint(backend.StageVertex, "vs"),
		shader.WithEntryPoint(backend.StageFragment, "fs"),
		shader.WithDepth(false),
		shader.WithMode(backend.DrawModeTriangleStrip),
	)
	require.NoError(t, err)

	ps := s.ProgramSources()
	assert.Equal(t, "sprite", ps.Key)
	assert.Equal(t, backend.LanguageWGSL, ps.Language)
	assert.Equal(t, "vs", ps.EntryPoints[backend.StageVertex])
	assert.Contains(t, ps.Stages[backend.StageVertex], "struct U")
	assert.False(t, ps.Depth)
	assert.Equal(t, backend.DrawModeTriangleStrip, ps.Mode)
	assert.Equal(t, []backend.Stage{backend.StageVertex, backend.StageFragment}, s.Stages())
	assert.Equal(t, []string{"common/uniforms.wgsl"}, s.Includes())
}

func TestNewShaderErrors(t *testing.T) {
	_, err := shader.NewShader(backend.LanguageGLSL, shader.WithStage(backend.StageFragment, "void main() {}"))
	assert.Error(t, err)

	_, err = shader.NewShader(backend.LanguageGLSL, shader.WithStageFile(backend.StageVertex, "/does/not/exist.vert"))
	assert.Error(t, err)

	_, err = shader.NewShader(backend.LanguageGLSL, shader.WithStage(backend.StageVertex, "#ifdef A"))
	assert.Error(t, err)
}

func TestCompileStagesRequiresWGSL(t *testing.T) {
	s, err := shader.NewShader(backend.LanguageGLSL, shader.WithStage(backend.StageVertex, "void main() {}"))
	require.NoError(t, err)
	_, err = shader.CompileStages(s)
	assert.Error(t, err)
}
