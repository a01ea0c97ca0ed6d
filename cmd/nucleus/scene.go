package main

import (
	"embed"
	"fmt"
	"math"
	"strings"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/common/log"
	"github.com/Carmen-Shannon/nucleus-go/engine/assets"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/Carmen-Shannon/nucleus-go/engine/camera"
	"github.com/Carmen-Shannon/nucleus-go/engine/component"
	"github.com/Carmen-Shannon/nucleus-go/engine/model"
	"github.com/Carmen-Shannon/nucleus-go/engine/pipeline"
	"github.com/Carmen-Shannon/nucleus-go/engine/scene"
	"github.com/Carmen-Shannon/nucleus-go/engine/shader"
	"github.com/Carmen-Shannon/nucleus-go/engine/window"
	"github.com/go-gl/mathgl/mgl32"
)

//go:embed shaders
var shaderFS embed.FS

const (
	spinSystemName = "spin"
	spinNodeID     = "spinner"

	// radians per pixel of pointer travel
	orbitSensitivity = 0.01
)

// newShader builds the flat shaded program in the source language of version.
func newShader(version backend.Version) (shader.Shader, error) {
	vert, frag, lang := "shaders/flat.vert", "shaders/flat.frag", backend.LanguageGLSL
	if version.IsVulkan() {
		vert, frag, lang = "shaders/flat.vert.wgsl", "shaders/flat.frag.wgsl", backend.LanguageWGSL
	}
	vs, err := shaderFS.ReadFile(vert)
	if err != nil {
		return nil, err
	}
	fs, err := shaderFS.ReadFile(frag)
	if err != nil {
		return nil, err
	}
	return shader.NewShader(lang,
		shader.WithKey("flat"),
		shader.WithStage(backend.StageVertex, string(vs)),
		shader.WithStage(backend.StageFragment, string(fs)),
		shader.WithIncludeFS(shaderFS, "shaders/*.wgsl"),
		shader.WithDefine("AMBIENT", "0.25"),
	)
}

// cubeGeometry returns a unit cube centered on the origin with one normal per face.
func cubeGeometry() model.Geometry {
	faces := [6]struct{ normal, u, v mgl32.Vec3 }{
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
	}
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

	positions := make([]float32, 0, 6*4*3)
	normals := make([]float32, 0, 6*4*3)
	indices := make([]uint32, 0, 6*6)
	for i, f := range faces {
		for _, c := range corners {
			p := f.normal.Add(f.u.Mul(c[0])).Add(f.v.Mul(c[1])).Mul(0.5)
			positions = append(positions, p[0], p[1], p[2])
			normals = append(normals, f.normal[0], f.normal[1], f.normal[2])
		}
		base := uint32(i * 4)
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return model.Geometry{
		Mode: backend.DrawModeTriangles,
		Attributes: map[string]model.Attribute{
			pipeline.AttributePosition: {Components: 3, Data: positions},
			pipeline.AttributeNormal:   {Components: 3, Data: normals},
		},
		Indices: indices,
	}
}

// cubeMesh wraps cubeGeometry in a single primitive mesh.
func cubeMesh(s shader.Shader) (model.Mesh, error) {
	p, err := model.NewGeometryPrimitive(cubeGeometry(), pipeline.Material{
		BaseColor:         mgl32.Vec4{0.85, 0.45, 0.2, 1},
		MetallicRoughness: mgl32.Vec2{0, 1},
	})
	if err != nil {
		return nil, err
	}
	return model.NewMesh(model.WithName("cube"), model.WithShader(s), model.WithPrimitives(p)), nil
}

// spinSystem turns its node around the y axis by the "speed" property in radians per second.
func spinSystem() component.System {
	return component.SystemFunc(spinSystemName, func(node component.Node, c *component.Component, delta float32) error {
		t := node.Transform()
		t.Rotate[1] += c.Float("speed", 1) * delta
		if t.Rotate[1] > 2*math.Pi {
			t.Rotate[1] -= 2 * math.Pi
		}
		node.SetTransform(t)
		return nil
	})
}

// defaultScene builds a root with an orbiting camera and a spinning actor node holding the cube mesh.
func defaultScene(cube model.Mesh) (*scene.RootNode, *camera.Orbit) {
	orbit := camera.NewOrbit(mgl32.Vec3{}, 4)
	cam := camera.NewCamera(
		camera.WithController(orbit),
		camera.WithFov(mgl32.DegToRad(60)),
		camera.WithClipPlanes(0.1, 100),
	)
	spinner := component.NewActorNode(
		[]*component.Component{{
			ID:         "spin",
			System:     spinSystemName,
			Properties: map[string]any{"speed": 0.8},
		}},
		true,
		scene.WithID(spinNodeID),
		scene.WithTransform(scene.IdentityTransform()),
		scene.WithChildren(scene.NewMeshNode("cube", []model.Mesh{cube})),
	)
	root := scene.NewRootNode(
		scene.WithChildren(
			scene.NewNode(scene.WithID("camera"), scene.WithCamera(cam), scene.WithChildren(spinner)),
		),
	)
	return root, orbit
}

// loadScene builds the root described by the document at path. Component and actor node types are
// registered alongside the built-in ones.
func loadScene(path string) (*scene.RootNode, error) {
	doc, err := scene.LoadDocument(path)
	if err != nil {
		return nil, err
	}
	registry := scene.NewRegistry()
	component.Register(registry)
	return registry.BuildRoot(doc)
}

// loadMeshes fills every mesh node that names a glTF source and holds no meshes yet. Failures are
// collected so one broken model does not keep the rest of the scene from rendering.
func loadMeshes(root *scene.RootNode, a assets.Assets, s shader.Shader, useVBO bool, l log.Log) error {
	var failed []string
	for _, n := range root.MeshNodes() {
		if n.Source() == "" || len(n.Meshes()) > 0 {
			continue
		}
		if err := loadMesh(n, a, s, useVBO); err != nil {
			l.Warn("model not loaded", log.String("source", n.Source()), log.Error(err))
			failed = append(failed, n.Source())
			continue
		}
		l.Info("model loaded", log.String("source", n.Source()), log.Int("meshes", len(n.Meshes())))
	}
	if len(failed) > 0 {
		return common.SkippableError("nucleus.loadMeshes", fmt.Errorf("failed sources: %s", strings.Join(failed, ", ")))
	}
	return nil
}

func loadMesh(n *scene.MeshNode, a assets.Assets, s shader.Shader, useVBO bool) error {
	doc, err := a.LoadGLTF(nil, n.Source())
	if err != nil {
		return err
	}
	meshes, err := model.FromDocument(doc, s, useVBO)
	if err != nil {
		return err
	}
	n.AddMesh(meshes...)
	return nil
}

// firstOrbit returns the first camera in root driven by an orbit controller, and nils when there is none.
func firstOrbit(root *scene.RootNode) (camera.Camera, *camera.Orbit) {
	for _, n := range root.CameraNodes() {
		cam := n.Camera()
		if orbit, ok := cam.Controller().(*camera.Orbit); ok {
			return cam, orbit
		}
	}
	return nil, nil
}

// orbitInput returns an input handler rotating the orbit while the primary pointer drags and zooming on
// scroll. Space pauses and resumes the node with id spinNodeID.
func orbitInput(root *scene.RootNode, cam camera.Camera, orbit *camera.Orbit, l log.Log) func(window.InputEvent) {
	var (
		dragging bool
		lastX    float32
		lastY    float32
	)
	return func(ev window.InputEvent) {
		switch ev.Action {
		case window.ActionDown:
			if ev.Pointer == window.PointerPrimary {
				dragging, lastX, lastY = true, ev.X, ev.Y
			}
		case window.ActionUp:
			if ev.Pointer == window.PointerPrimary {
				dragging = false
			}
		case window.ActionMove:
			if !dragging || orbit == nil {
				return
			}
			orbit.Rotate(-(ev.X-lastX)*orbitSensitivity, (ev.Y-lastY)*orbitSensitivity)
			lastX, lastY = ev.X, ev.Y
			cam.Update()
		case window.ActionZoom:
			if orbit == nil {
				return
			}
			orbit.Zoom(ev.Delta * 0.25 * orbit.Radius())
			cam.Update()
		case window.ActionKeyDown:
			if ev.Key == common.KeySpace {
				togglePause(root, l)
			}
		}
	}
}

func togglePause(root *scene.RootNode, l log.Log) {
	n, ok := root.NodeByID(spinNodeID).(component.Node)
	if !ok {
		return
	}
	var err error
	if n.ControllerState() == component.StatePause {
		err = n.Play()
	} else {
		err = n.Pause()
	}
	if err != nil {
		l.Debug("spin state not changed", log.Error(err))
		return
	}
	l.Info("spin state changed", log.String("state", n.ControllerState().String()))
}
