package main

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/common/log"
	"github.com/Carmen-Shannon/nucleus-go/engine/assets"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend/backendtest"
	"github.com/Carmen-Shannon/nucleus-go/engine/component"
	"github.com/Carmen-Shannon/nucleus-go/engine/loader"
	"github.com/Carmen-Shannon/nucleus-go/engine/model"
	"github.com/Carmen-Shannon/nucleus-go/engine/pipeline"
	"github.com/Carmen-Shannon/nucleus-go/engine/scene"
	"github.com/Carmen-Shannon/nucleus-go/engine/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCubeGeometry(t *testing.T) {
	g := cubeGeometry()
	assert.Len(t, g.Attributes[pipeline.AttributePosition].Data, 24*3)
	assert.Len(t, g.Attributes[pipeline.AttributeNormal].Data, 24*3)
	assert.Len(t, g.Indices, 36)

	p, err := model.NewGeometryPrimitive(g, pipeline.Material{})
	require.NoError(t, err)
	assert.Equal(t, 24, p.VertexCount())
	assert.Equal(t, 36, p.IndexCount())

	pos := g.Attributes[pipeline.AttributePosition].Data
	for i, v := range pos {
		assert.InDelta(t, 0.5, abs(v), 1e-6, "coordinate %d lies on a face", i)
	}
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func TestNewShader(t *testing.T) {
	glsl, err := newShader(backend.VersionGLES30)
	require.NoError(t, err)
	assert.Equal(t, backend.LanguageGLSL, glsl.Language())
	assert.Contains(t, glsl.Source(backend.StageFragment), "#define AMBIENT 0.25")
	assert.Contains(t, glsl.Source(backend.StageVertex), pipeline.UniformMVPMatrix)

	wgsl, err := newShader(backend.VersionVulkan10)
	require.NoError(t, err)
	assert.Equal(t, backend.LanguageWGSL, wgsl.Language())
	frag := wgsl.Source(backend.StageFragment)
	assert.Contains(t, frag, "struct Uniforms")
	assert.Contains(t, frag, "(0.25 + (1.0 - 0.25) * lambert)")
	assert.NotContains(t, frag, "#include")
	assert.NotEqual(t, glsl.Key(), "")
}

func TestSpinSystem(t *testing.T) {
	systems := component.NewSystems(spinSystem())
	n := component.NewComponentNode([]*component.Component{{
		ID:         "spin",
		System:     spinSystemName,
		Properties: map[string]any{"speed": 2.0},
	}}, scene.WithTransform(scene.IdentityTransform()))

	_, err := n.Init(systems)
	require.NoError(t, err)
	require.NoError(t, n.ProcessComponents(systems, 0.25))
	assert.InDelta(t, 0.5, n.Transform().Rotate[1], 1e-6)

	require.NoError(t, n.ProcessComponents(systems, 3))
	assert.InDelta(t, 6.5-2*3.14159265, n.Transform().Rotate[1], 1e-5, "rotation wraps at a full turn")
}

func TestOrbitInput(t *testing.T) {
	s, err := newShader(backend.VersionGLES30)
	require.NoError(t, err)
	cube, err := cubeMesh(s)
	require.NoError(t, err)
	root, orbit := defaultScene(cube)

	cam, found := firstOrbit(root)
	require.Same(t, orbit, found)
	handle := orbitInput(root, cam, orbit, log.NewNop())

	before := cam.Position()
	handle(window.InputEvent{Action: window.ActionMove, Pointer: window.PointerPrimary, X: 50})
	assert.Equal(t, before, cam.Position(), "moves without a press do not orbit")

	handle(window.InputEvent{Action: window.ActionDown, Pointer: window.PointerPrimary, X: 10, Y: 10})
	handle(window.InputEvent{Action: window.ActionMove, Pointer: window.PointerPrimary, X: 60, Y: 10})
	handle(window.InputEvent{Action: window.ActionUp, Pointer: window.PointerPrimary, X: 60, Y: 10})
	assert.NotEqual(t, before, cam.Position())
	assert.InDelta(t, 4, cam.Position().Len(), 1e-4, "orbiting keeps the radius")

	handle(window.InputEvent{Action: window.ActionZoom, Delta: 1})
	assert.Less(t, orbit.Radius(), float32(4))

	spinner, ok := root.NodeByID(spinNodeID).(component.Node)
	require.True(t, ok)
	_, err = spinner.Init(component.NewSystems(spinSystem()))
	require.NoError(t, err)
	require.Equal(t, component.StatePlay, spinner.ControllerState())

	handle(window.InputEvent{Action: window.ActionKeyDown, Key: common.KeySpace, Pointer: -1})
	assert.Equal(t, component.StatePause, spinner.ControllerState())
	handle(window.InputEvent{Action: window.ActionKeyDown, Key: common.KeySpace, Pointer: -1})
	assert.Equal(t, component.StatePlay, spinner.ControllerState())
}

const demoScene = `
type: rootnode
children:
  - id: view
    camera:
      position: [0, 1, 6]
      fov: 45
    children:
      - id: spinner
        type: actornode
        properties:
          autoplay: "true"
        components:
          - id: spin
            system: spin
            properties:
              speed: 1.5
        children:
          - id: fox
            type: meshnode
            source: missing.gltf
`

func TestLoadSceneAndMeshes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(demoScene), 0o644))

	root, err := loadScene(path)
	require.NoError(t, err)
	spinner, ok := root.NodeByID("spinner").(*component.ActorNode)
	require.True(t, ok)
	require.Len(t, spinner.Components(), 1)
	assert.InDelta(t, 1.5, spinner.Components()[0].Float("speed", 0), 1e-6)

	cam, orbit := firstOrbit(root)
	assert.Nil(t, cam, "document cameras have no orbit controller")
	assert.Nil(t, orbit)

	a, err := assets.New(backend.NewBackend(backend.VersionGLES30, backendtest.New(), log.NewNop()),
		assets.WithLogger(log.NewNop()),
		assets.WithLoader(loader.NewLoader(loader.WithFS(fstest.MapFS{}))),
	)
	require.NoError(t, err)
	defer a.Destroy()

	s, err := newShader(backend.VersionGLES30)
	require.NoError(t, err)
	err = loadMeshes(root, a, s, false, log.NewNop())
	require.Error(t, err)
	assert.Equal(t, common.KindSkippable, common.KindOf(err))
	assert.Contains(t, err.Error(), "missing.gltf")

	fox := root.NodeByID("fox").(*scene.MeshNode)
	assert.Empty(t, fox.Meshes())
}

func TestParseFlags(t *testing.T) {
	o, err := parseFlags([]string{"-config", "a.yaml", "-scene", "b.yaml"}, os.Stderr)
	require.NoError(t, err)
	assert.Equal(t, options{configPath: "a.yaml", scenePath: "b.yaml"}, o)

	_, err = parseFlags([]string{"extra"}, os.Stderr)
	assert.Error(t, err)

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "GLES30", cfg.Backend)
}
