package scene_test

import (
	"strings"
	"testing"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/engine/model"
	"github.com/Carmen-Shannon/nucleus-go/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateFilters(t *testing.T) {
	tests := []struct {
		state     scene.State
		renders   bool
		processes bool
	}{
		{scene.StateUnset, true, true},
		{scene.StateOn, true, true},
		{scene.StateOff, false, false},
		{scene.StateRender, true, false},
		{scene.StateActor, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			assert.Equal(t, tt.renders, tt.state.Renders())
			assert.Equal(t, tt.processes, tt.state.Processes())
		})
	}
}

func TestSetStateRecurses(t *testing.T) {
	leaf := scene.NewNode(scene.WithID("leaf"))
	mid := scene.NewNode(scene.WithID("mid"), scene.WithChildren(leaf))
	root := scene.NewRootNode(scene.WithChildren(mid))

	root.SetState(scene.StateOff)
	assert.Equal(t, scene.StateOff, mid.State())
	assert.Equal(t, scene.StateOff, leaf.State())

	assert.Same(t, root, mid.Parent(), "children see the outer root type as parent")
	assert.Equal(t, mid, root.NodeByID("leaf").Parent())
	assert.Nil(t, root.NodeByID("missing"))
}

func TestWorldMatrix(t *testing.T) {
	child := scene.NewMeshNode("", []model.Mesh{model.NewMesh(model.WithName("m"))},
		scene.WithTransform(scene.Transform{Translate: mgl32.Vec3{0, 1, 0}, Scale: mgl32.Vec3{1, 1, 1}}))
	parent := scene.NewNode(scene.WithTransform(scene.Transform{Translate: mgl32.Vec3{2, 0, 0}, Scale: mgl32.Vec3{1, 1, 1}}))
	parent.AddChild(child)

	p := child.WorldMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.Equal(t, mgl32.Vec4{2, 1, 0, 1}, p)
	assert.Len(t, child.Meshes(), 1)

	assert.True(t, parent.RemoveChild(child))
	assert.Nil(t, child.Parent())
	assert.False(t, parent.RemoveChild(child))
}

func TestWalkSkipsSubtree(t *testing.T) {
	hidden := scene.NewNode(scene.WithID("hidden"), scene.WithState(scene.StateOff),
		scene.WithChildren(scene.NewNode(scene.WithID("below-hidden"))))
	root := scene.NewRootNode(scene.WithID("root"), scene.WithChildren(
		scene.NewNode(scene.WithID("a"), scene.WithChildren(scene.NewNode(scene.WithID("a1")))),
		hidden,
		scene.NewNode(scene.WithID("b")),
	))

	var visited []string
	scene.Walk(root, func(n scene.Node) bool {
		visited = append(visited, n.ID())
		return n.State().Renders()
	})
	assert.Equal(t, []string{"root", "a", "a1", "hidden", "b"}, visited)
}

const sceneYAML = `
type: rootnode
id: root
children:
  - id: view
    camera:
      position: [0, 0, 10]
      fov: 60
    children:
      - id: fox
        type: meshnode
        source: fox.gltf
        state: render
        transform:
          translate: [1, 2, 3]
        properties:
          shader: pbr
  - id: logic
    state: ACTOR
    projection: [1,0,0,0, 0,1,0,0, 0,0,1,0, 0,0,0,1]
`

func TestRegistryBuild(t *testing.T) {
	doc, err := scene.DecodeDocument(strings.NewReader(sceneYAML))
	require.NoError(t, err)

	root, err := scene.NewRegistry().BuildRoot(doc)
	require.NoError(t, err)
	assert.Equal(t, "root", root.ID())

	fox, ok := root.NodeByID("fox").(*scene.MeshNode)
	require.True(t, ok)
	assert.Equal(t, "fox.gltf", fox.Source())
	assert.Equal(t, scene.StateRender, fox.State())
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, fox.Transform().Scale, "omitted scale defaults to one")
	shader, ok := fox.Property("shader")
	assert.True(t, ok)
	assert.Equal(t, "pbr", shader)
	assert.Equal(t, []*scene.MeshNode{fox}, root.MeshNodes())

	view := root.NodeByID("view")
	require.NotNil(t, view.Camera())
	assert.InDelta(t, 60*3.14159265/180, view.Camera().Fov(), 1e-5)
	_, hasView := view.View()
	assert.True(t, hasView)
	assert.Len(t, root.CameraNodes(), 1)

	logic := root.NodeByID("logic")
	proj, ok := logic.Projection()
	assert.True(t, ok)
	assert.Equal(t, mgl32.Ident4(), proj)
	_, hasView = logic.View()
	assert.False(t, hasView)
}

func TestRegistryRejects(t *testing.T) {
	tests := map[string]string{
		"unknown type":  "type: widget",
		"duplicate id":  "id: a\nchildren: [{id: a}]",
		"short matrix":  "view: [1, 2, 3]",
		"unknown state": "state: sleeping",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			doc, err := scene.DecodeDocument(strings.NewReader(src))
			if err == nil {
				_, err = scene.NewRegistry().Build(doc)
			}
			assert.ErrorIs(t, err, common.ErrInvalidArgument)
		})
	}
}

func TestRegistryCustomType(t *testing.T) {
	r := scene.NewRegistry()
	r.Register("Marker", func(doc *scene.Document, options ...scene.NodeBuilderOption) (scene.Node, error) {
		return scene.NewBaseNode("marker", options...), nil
	})
	assert.Contains(t, r.Tags(), "marker")

	n, err := r.Build(&scene.Document{Type: "MARKER"})
	require.NoError(t, err)
	assert.Equal(t, "marker", n.Type())
	assert.NotEmpty(t, n.ID(), "a missing id is generated")

	root, err := r.BuildRoot(&scene.Document{Type: "marker"})
	require.NoError(t, err)
	assert.Len(t, root.Children(), 1)
}
