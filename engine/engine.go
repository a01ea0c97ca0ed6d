package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/common/log"
	"github.com/Carmen-Shannon/nucleus-go/engine/component"
	"github.com/Carmen-Shannon/nucleus-go/engine/renderer"
	"github.com/Carmen-Shannon/nucleus-go/engine/scene"
	"github.com/Carmen-Shannon/nucleus-go/engine/window"
)

// engine implements the Engine interface.
// Drives one frame per DrawFrame call on the render thread and hands component processing to the worker.
type engine struct {
	mu sync.Mutex

	renderer renderer.Renderer
	worker   component.Worker
	window   window.Window
	log      log.Log

	root *scene.RootNode

	contextRequested atomic.Bool
	frames           atomic.Uint64

	inputHandlers []func(window.InputEvent)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	destroyOnce sync.Once
}

// Engine is the frame driver. Platform glue reports context creation and calls DrawFrame once per frame,
// either directly or through Run.
type Engine interface {
	// ContextCreated records that a render context of the given size exists. The renderer transition is
	// deferred to the next DrawFrame so it never runs inside a platform callback.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	ContextCreated(width, height int)

	// Resize updates the viewport and camera aspect ratios for a new surface size.
	Resize(width, height int) error

	// DrawFrame renders one frame: pending context creation, BeginFrame, component processing, the scene
	// walk and EndFrame. EndFrame runs whenever BeginFrame succeeded, even if rendering failed.
	//
	// Returns:
	//   - error: a configuration error if ContextCreated was never called, otherwise the joined frame errors
	DrawFrame() error

	// SetRootNode replaces the scene drawn by DrawFrame. A nil root draws an empty frame.
	SetRootNode(root *scene.RootNode)

	// RootNode returns the current scene root.
	RootNode() *scene.RootNode

	// Renderer returns the renderer frames are drawn with.
	Renderer() renderer.Renderer

	// Worker returns the component worker.
	Worker() component.Worker

	// Window returns the platform window, or nil when the engine is driven externally.
	Window() window.Window

	// SetRenderFrameLimit sets an optional frame rate cap for Run.
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Frames returns the number of frames begun.
	Frames() uint64

	// Run creates the context from the window size and draws frames from the window's message loop until
	// the window closes, ctx is cancelled or a frame fails fatally. Skippable and retryable frame errors are
	// logged and the loop continues. It must be called on the thread that created the window.
	//
	// Returns:
	//   - error: the fatal frame error, or nil
	Run(ctx context.Context) error

	// Destroy stops the worker, releases every GPU object and closes the window. Safe to call more than once.
	Destroy()
}

// NewEngine creates an Engine around a renderer.
//
// Parameters:
//   - r: the renderer
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: an argument error if r is nil
func NewEngine(r renderer.Renderer, options ...EngineBuilderOption) (Engine, error) {
	if r == nil {
		return nil, common.ArgumentError("engine.New", "renderer is nil")
	}
	e := &engine{
		renderer: r,
		log:      log.NewNop(),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.worker == nil {
		e.worker = component.NewWorker(
			component.NewProcessor(component.NewSystems(), e.log),
			component.WithLogger(e.log),
			component.WithSampler(r.Sampler()),
		)
	}
	return e, nil
}

func (e *engine) ContextCreated(width, height int) {
	e.contextRequested.Store(true)
	e.renderer.RequestContext(width, height)
	e.log.Debug("context creation requested", log.Int("width", width), log.Int("height", height))
}

func (e *engine) Resize(width, height int) error {
	if err := e.renderer.Resize(width, height); err != nil {
		return err
	}
	e.updateCameras(e.RootNode(), width, height)
	return nil
}

func (e *engine) DrawFrame() (err error) {
	const op = "engine.DrawFrame"
	if !e.contextRequested.Load() {
		return common.ConfigurationError(op, "DrawFrame called before ContextCreated")
	}
	root := e.RootNode()

	created, ctxErr := e.renderer.ApplyPendingContext()
	if created {
		w, h := e.renderer.Size()
		e.updateCameras(root, w, h)
	}
	e.dispatchInput()

	delta, err := e.renderer.BeginFrame()
	if err != nil {
		return errors.Join(ctxErr, err)
	}
	e.frames.Add(1)
	defer func() {
		err = errors.Join(ctxErr, err, e.renderer.EndFrame())
	}()

	if root == nil {
		return nil
	}
	e.worker.Process(root, delta)
	return e.renderer.Render(root)
}

func (e *engine) SetRootNode(root *scene.RootNode) {
	e.mu.Lock()
	e.root = root
	e.mu.Unlock()

	if w, h := e.renderer.Size(); w > 0 && h > 0 {
		e.updateCameras(root, w, h)
	}
}

func (e *engine) RootNode() *scene.RootNode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.root
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Worker() component.Worker {
	return e.worker
}

func (e *engine) Window() window.Window {
	return e.window
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderFrameLimit = frameDuration(fps)
}

func (e *engine) Frames() uint64 {
	return e.frames.Load()
}

func (e *engine) Run(ctx context.Context) error {
	if e.window == nil {
		return common.ConfigurationError("engine.Run", "no window to run against")
	}
	e.window.SetResizeCallback(func(width, height int) {
		if err := e.Resize(width, height); err != nil {
			e.log.Warn("resize ignored", log.Int("width", width), log.Int("height", height), log.Error(err))
		}
	})
	e.ContextCreated(e.window.Width(), e.window.Height())

	var runErr error
	e.window.SetUpdateCallback(func() {
		if ctx.Err() != nil {
			e.window.RequestClose()
			return
		}
		if err := e.frame(); err != nil {
			runErr = err
			e.window.RequestClose()
		}
	})
	e.log.Info("engine running")
	e.window.ProcessMessages()
	e.log.Info("engine stopped", log.Uint64("frames", e.Frames()))
	return runErr
}

// frame draws one frame for Run, applies the frame limit and returns only fatal errors.
// Recovers from panics so the window can close cleanly.
func (e *engine) frame() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render loop recovered from panic: %v", r)
			e.log.Error("render loop panic", log.Error(err))
		}
	}()

	start := time.Now()
	if err := e.DrawFrame(); err != nil {
		if kind := common.SeverestKind(err); kind != common.KindFatal {
			e.log.Warn("frame completed with errors", log.String("kind", kind.String()), log.Error(err))
		} else {
			e.log.Error("frame failed", log.Error(err))
			return err
		}
	}

	e.mu.Lock()
	limit := e.renderFrameLimit
	e.mu.Unlock()
	if limit > 0 {
		if remaining := limit - time.Since(start); remaining > 0 {
			time.Sleep(remaining)
		}
	}
	return nil
}

func (e *engine) Destroy() {
	e.destroyOnce.Do(func() {
		e.worker.Stop()
		e.renderer.Destroy()
		if e.window != nil {
			if err := e.window.Close(); err != nil {
				e.log.Warn("window close failed", log.Error(err))
			}
		}
		e.log.Info("engine destroyed")
	})
}

// updateCameras sets the aspect ratio of every camera in the graph.
func (e *engine) updateCameras(root *scene.RootNode, width, height int) {
	if root == nil || height <= 0 {
		return
	}
	aspect := float32(width) / float32(height)
	for _, n := range root.CameraNodes() {
		n.Camera().SetAspect(aspect)
	}
}

// dispatchInput hands the queued window events to the input handlers in arrival order.
func (e *engine) dispatchInput() {
	if e.window == nil {
		return
	}
	events := e.window.Input().Drain()
	if len(events) == 0 {
		return
	}
	e.mu.Lock()
	handlers := e.inputHandlers
	e.mu.Unlock()
	for _, ev := range events {
		for _, h := range handlers {
			h(ev)
		}
	}
}

// frameDuration converts a frame rate into the minimum frame duration, 0 for uncapped.
func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
