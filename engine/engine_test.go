package engine_test

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/common/log"
	"github.com/Carmen-Shannon/nucleus-go/engine"
	"github.com/Carmen-Shannon/nucleus-go/engine/assets"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend/backendtest"
	"github.com/Carmen-Shannon/nucleus-go/engine/camera"
	"github.com/Carmen-Shannon/nucleus-go/engine/component"
	"github.com/Carmen-Shannon/nucleus-go/engine/model"
	"github.com/Carmen-Shannon/nucleus-go/engine/pipeline"
	"github.com/Carmen-Shannon/nucleus-go/engine/renderer"
	"github.com/Carmen-Shannon/nucleus-go/engine/scene"
	"github.com/Carmen-Shannon/nucleus-go/engine/shader"
	"github.com/Carmen-Shannon/nucleus-go/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWindow runs a fixed number of message loop iterations.
type fakeWindow struct {
	width, height int
	iterations    int
	input         window.InputQueue

	onUpdate func()
	onResize func(int, int)
	closing  bool
	closed   bool
	ran      int
}

func (w *fakeWindow) SetUpdateCallback(cb func())                { w.onUpdate = cb }
func (w *fakeWindow) SetResizeCallback(cb func(int, int))        { w.onResize = cb }
func (w *fakeWindow) Input() *window.InputQueue                  { return &w.input }
func (w *fakeWindow) ClientAPI() window.ClientAPI                { return window.ClientAPIOpenGL }
func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }
func (w *fakeWindow) SwapBuffers()                               {}
func (w *fakeWindow) IsRunning() bool                            { return !w.closing && !w.closed }
func (w *fakeWindow) RequestClose()                              { w.closing = true }
func (w *fakeWindow) Width() int                                 { return w.width }
func (w *fakeWindow) Height() int                                { return w.height }

func (w *fakeWindow) Close() error {
	w.closed = true
	return nil
}

func (w *fakeWindow) ProcessMessages() {
	for w.IsRunning() && w.ran < w.iterations {
		w.ran++
		if w.ran == 2 && w.onResize != nil {
			w.onResize(w.width*2, w.height*2)
		}
		if w.onUpdate != nil {
			w.onUpdate()
		}
	}
}

var _ window.Window = &fakeWindow{}

type failingListener struct{}

func (failingListener) ContextCreated(renderer.Renderer, int, int) error {
	return errors.New("listener failed")
}

const vertexSource = `#version 330 core
in vec3 aPosition;
uniform mat4 uMVPMatrix;
void main() {}`

func newRenderer(t *testing.T, api *backendtest.Fake, options ...renderer.RendererBuilderOption) renderer.Renderer {
	t.Helper()
	a, err := assets.New(backend.NewBackend(backend.VersionGLES30, api, log.NewNop()))
	require.NoError(t, err)
	r, err := renderer.NewRenderer(api, a, options...)
	require.NoError(t, err)
	return r
}

func newEngine(t *testing.T, api *backendtest.Fake, options ...engine.EngineBuilderOption) engine.Engine {
	t.Helper()
	e, err := engine.NewEngine(newRenderer(t, api), options...)
	require.NoError(t, err)
	t.Cleanup(e.Destroy)
	return e
}

func meshNode(t *testing.T) *scene.MeshNode {
	t.Helper()
	s, err := shader.NewShader(backend.LanguageGLSL,
		shader.WithKey("flat"),
		shader.WithStage(backend.StageVertex, vertexSource),
		shader.WithStage(backend.StageFragment, "void main() {}"),
	)
	require.NoError(t, err)
	prim, err := model.NewGeometryPrimitive(model.Geometry{
		Mode: backend.DrawModeTriangles,
		Attributes: map[string]model.Attribute{
			pipeline.AttributePosition: {Components: 3, Data: make([]float32, 9)},
		},
	}, pipeline.Material{BaseColor: mgl32.Vec4{1, 1, 1, 1}})
	require.NoError(t, err)
	return scene.NewMeshNode("triangle", []model.Mesh{model.NewMesh(model.WithShader(s), model.WithPrimitives(prim))})
}

func TestNewEngineRequiresRenderer(t *testing.T) {
	_, err := engine.NewEngine(nil)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestDrawFrameBeforeContextCreated(t *testing.T) {
	api := backendtest.New()
	e := newEngine(t, api, engine.WithRootNode(scene.NewRootNode(scene.WithChildren(meshNode(t)))))

	err := e.DrawFrame()
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConfiguration)
	assert.Equal(t, common.KindFatal, common.KindOf(err))
	assert.Empty(t, api.CallsWithPrefix("BeginFrame"))
	assert.Empty(t, api.Draws)
	assert.Zero(t, e.Frames())
}

func TestContextCreationIsDeferredToDrawFrame(t *testing.T) {
	api := backendtest.New()
	cam := camera.NewCamera()
	root := scene.NewRootNode(scene.WithChildren(
		scene.NewNode(scene.WithCamera(cam)),
		meshNode(t),
	))
	e := newEngine(t, api, engine.WithRootNode(root))

	e.ContextCreated(800, 400)
	assert.Empty(t, api.CallsWithPrefix("Viewport"), "no GPU calls from the platform callback")
	assert.Equal(t, renderer.StateContextPending, e.Renderer().State())

	require.NoError(t, e.DrawFrame())
	assert.Equal(t, renderer.StateContextReady, e.Renderer().State())
	assert.Equal(t, []string{"Viewport:800x400"}, api.CallsWithPrefix("Viewport"))
	assert.InDelta(t, 2.0, cam.Aspect(), 1e-6)
	assert.Len(t, api.Draws, 1)

	viewport := slices.Index(api.Calls, "Viewport:800x400")
	begin := slices.Index(api.Calls, "BeginFrame")
	end := slices.Index(api.Calls, "EndFrame")
	assert.True(t, viewport < begin && begin < end, "calls out of order: %v", api.Calls)

	require.NoError(t, e.DrawFrame())
	assert.Len(t, api.CallsWithPrefix("Viewport"), 1)
	assert.Equal(t, uint64(2), e.Frames())
}

func TestDrawFrameEndsFrameOnDrawError(t *testing.T) {
	api := backendtest.New()
	api.DrawErr = errors.New("draw rejected")
	e := newEngine(t, api, engine.WithRootNode(scene.NewRootNode(scene.WithChildren(meshNode(t)))))
	e.ContextCreated(640, 480)

	err := e.DrawFrame()
	require.Error(t, err)
	assert.Equal(t, common.KindSkippable, common.SeverestKind(err))
	assert.Len(t, api.CallsWithPrefix("EndFrame"), 1)
	assert.Equal(t, renderer.StateContextReady, e.Renderer().State())
}

func TestDrawFrameWithoutRoot(t *testing.T) {
	api := backendtest.New()
	e := newEngine(t, api)
	e.ContextCreated(640, 480)

	require.NoError(t, e.DrawFrame())
	assert.Len(t, api.CallsWithPrefix("BeginFrame"), 1)
	assert.Len(t, api.CallsWithPrefix("EndFrame"), 1)
}

func TestDrawFrameProcessesComponentsInline(t *testing.T) {
	var processed atomic.Int32
	systems := component.NewSystems(component.SystemFunc("spin", func(component.Node, *component.Component, float32) error {
		processed.Add(1)
		return nil
	}))
	worker := component.NewWorker(component.NewProcessor(systems, nil))
	node := component.NewComponentNode([]*component.Component{{ID: "c", System: "spin"}})

	api := backendtest.New()
	e := newEngine(t, api,
		engine.WithWorker(worker),
		engine.WithRootNode(scene.NewRootNode(scene.WithChildren(node))),
	)
	e.ContextCreated(640, 480)
	for range 3 {
		require.NoError(t, e.DrawFrame())
	}
	assert.Equal(t, int32(3), processed.Load())
	assert.Equal(t, component.StateInitialized, node.ControllerState())
}

func TestDrawFrameDoesNotWaitForWorker(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	systems := component.NewSystems(component.SystemFunc("slow", func(component.Node, *component.Component, float32) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	}))
	worker := component.NewWorker(component.NewProcessor(systems, nil), component.WithMultiThread(true))
	node := component.NewComponentNode([]*component.Component{{ID: "c", System: "slow"}})

	api := backendtest.New()
	e := newEngine(t, api,
		engine.WithWorker(worker),
		engine.WithRootNode(scene.NewRootNode(scene.WithChildren(node))),
	)
	e.ContextCreated(640, 480)
	require.NoError(t, e.DrawFrame())
	<-started

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 5 {
			_ = e.DrawFrame()
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("DrawFrame blocked on a busy worker")
	}
	close(release)
	worker.Stop()
	assert.Equal(t, uint64(6), e.Frames())
}

func TestRunDrivesWindow(t *testing.T) {
	api := backendtest.New()
	win := &fakeWindow{width: 320, height: 240, iterations: 4}
	var events []window.InputEvent
	e := newEngine(t, api,
		engine.WithWindow(win),
		engine.WithRootNode(scene.NewRootNode(scene.WithChildren(meshNode(t)))),
		engine.WithInputHandler(func(ev window.InputEvent) { events = append(events, ev) }),
	)
	win.input.Push(window.InputEvent{Action: window.ActionDown, Pointer: window.PointerPrimary})
	win.input.Push(window.InputEvent{Action: window.ActionUp, Pointer: window.PointerPrimary})

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, uint64(4), e.Frames())
	assert.Equal(t, []string{"Viewport:320x240", "Viewport:640x480"}, api.CallsWithPrefix("Viewport"))
	require.Len(t, events, 2)
	assert.Equal(t, window.ActionDown, events[0].Action)

	e.Destroy()
	assert.True(t, win.closed)
	assert.True(t, api.Released)
}

func TestRunStopsOnCancel(t *testing.T) {
	api := backendtest.New()
	win := &fakeWindow{width: 320, height: 240, iterations: 100}
	e := newEngine(t, api, engine.WithWindow(win))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, e.Run(ctx))
	assert.Zero(t, e.Frames())
	assert.Equal(t, 1, win.ran)
}

func TestRunReturnsFatalFrameError(t *testing.T) {
	api := backendtest.New()
	win := &fakeWindow{width: 320, height: 240, iterations: 10}
	a, err := assets.New(backend.NewBackend(backend.VersionGLES30, api, log.NewNop()))
	require.NoError(t, err)
	r, err := renderer.NewRenderer(api, a, renderer.WithContextListener(failingListener{}))
	require.NoError(t, err)
	e, err := engine.NewEngine(r, engine.WithWindow(win))
	require.NoError(t, err)
	defer e.Destroy()

	err = e.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listener failed")
	assert.Equal(t, 1, win.ran)
	assert.Len(t, api.CallsWithPrefix("EndFrame"), 1, "the failed frame still ends")
}

func TestRunWithoutWindow(t *testing.T) {
	e := newEngine(t, backendtest.New())
	assert.ErrorIs(t, e.Run(context.Background()), common.ErrConfiguration)
}
