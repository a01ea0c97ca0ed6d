package renderer

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/common/log"
	"github.com/Carmen-Shannon/nucleus-go/engine/assets"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/Carmen-Shannon/nucleus-go/engine/model"
	"github.com/Carmen-Shannon/nucleus-go/engine/pipeline"
	"github.com/Carmen-Shannon/nucleus-go/engine/profiler"
	"github.com/Carmen-Shannon/nucleus-go/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// State is the frame lifecycle state of a renderer.
type State int

const (
	StateUninitialized State = iota
	StateContextPending
	StateContextReady
	StateRendering
)

var stateNames = map[State]string{
	StateUninitialized:  "UNINITIALIZED",
	StateContextPending: "CONTEXT_PENDING",
	StateContextReady:   "CONTEXT_READY",
	StateRendering:      "RENDERING",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ContextListener is notified every time the render context is created. GPU objects owned by the
// listener must be (re)created in ContextCreated. Listeners are compared by identity.
type ContextListener interface {
	ContextCreated(r Renderer, width, height int) error
}

// FrameListener updates per-frame GPU data once per BeginFrame, before any draw.
type FrameListener interface {
	UpdateFrameData(r Renderer, delta float32)
}

// meshCarrier is a node that holds drawable meshes.
type meshCarrier interface {
	Meshes() []model.Mesh
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	api      backend.DrawAPI
	assets   assets.Assets
	sampler  *profiler.FrameSampler
	settings *RenderSettings
	log      log.Log
	culling  bool

	state          State
	pending        bool
	width, height  int
	pendingWidth   int
	pendingHeight  int
	contextCount   int
	contextHandler []ContextListener
	frameHandler   []FrameListener

	// walk state, only touched from the render goroutine between BeginFrame and EndFrame
	model       mgl32.Mat4
	view        mgl32.Mat4
	projection  mgl32.Mat4
	models      common.MatrixStack
	views       common.MatrixStack
	projections common.MatrixStack
}

// Renderer drives one frame at a time against a DrawAPI: BeginFrame, Render, EndFrame. A render context
// must have been created before the first frame.
type Renderer interface {
	// State returns the frame lifecycle state.
	State() State

	// RequestContext records that the render surface exists with the given size. The context is created
	// by the next ApplyPendingContext, so platform callbacks never program the GPU themselves. A request
	// made during a frame takes effect after EndFrame.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	RequestContext(width, height int)

	// ApplyPendingContext performs a requested context creation, if any.
	//
	// Returns:
	//   - bool: true if a context was created
	//   - error: the ContextCreated error
	ApplyPendingContext() (bool, error)

	// ContextCreated (re)initializes the viewport and notifies every ContextListener. It may be called more
	// than once; on a re-creation every cached GPU object is marked stale.
	//
	// Parameters:
	//   - width: the surface width in pixels, > 0
	//   - height: the surface height in pixels, > 0
	//
	// Returns:
	//   - error: an argument error for a non-positive size, or the joined listener errors
	ContextCreated(width, height int) error

	// Resize changes the viewport of the current context without touching cached GPU objects. The new
	// viewport is applied by the next BeginFrame.
	Resize(width, height int) error

	// Size returns the size of the current render context.
	Size() (int, int)

	// AddContextListener adds l unless it is already registered.
	AddContextListener(l ContextListener)

	// RemoveContextListener removes l.
	RemoveContextListener(l ContextListener)

	// AddFrameListener adds l unless it is already registered.
	AddFrameListener(l FrameListener)

	// RemoveFrameListener removes l.
	RemoveFrameListener(l FrameListener)

	// Settings returns the fixed-function settings applied at frame start.
	Settings() *RenderSettings

	// Assets returns the resource cache pipelines are resolved through.
	Assets() assets.Assets

	// API returns the draw API.
	API() backend.DrawAPI

	// Sampler returns the frame sampler.
	Sampler() *profiler.FrameSampler

	// BeginFrame advances the frame sampler, applies changed settings, starts the backend frame and runs
	// the frame listeners.
	//
	// Returns:
	//   - float32: seconds since the previous frame, never above 1/minFPS
	//   - error: a configuration error if no context exists or a frame is already open, or the backend error
	BeginFrame() (float32, error)

	// Render draws every mesh of root whose node, and every ancestor, renders. Draw failures do not stop
	// the walk.
	//
	// Parameters:
	//   - root: the scene root, nil draws nothing
	//
	// Returns:
	//   - error: a configuration error outside a frame, else the skippable draw errors joined
	Render(root scene.Node) error

	// RenderMesh draws every primitive of mesh with the pipeline its shader resolves to. With frustum
	// culling enabled primitives whose bounds lie outside the view volume are counted and skipped.
	//
	// Parameters:
	//   - mesh: the mesh to draw
	//   - m: the transform matrices of the draw
	//
	// Returns:
	//   - error: a skippable error if the mesh cannot be drawn
	RenderMesh(mesh model.Mesh, m pipeline.Matrices) error

	// EndFrame presents the frame. It must close every frame BeginFrame opened, even one whose draws
	// failed.
	//
	// Returns:
	//   - error: a configuration error if no frame is open, or the backend error
	EndFrame() error

	// Destroy destroys the asset cache, then the backend the cache was created on.
	Destroy()
}

var _ Renderer = &renderer{}

// NewRenderer creates a renderer drawing with api and resolving pipelines through a.
//
// Parameters:
//   - api: the draw API
//   - a: the resource cache
//   - options: a variadic list of RendererBuilderOption functions to configure the renderer
//
// Returns:
//   - Renderer: the new renderer in the Uninitialized state
//   - error: an argument error if api or a is nil
func NewRenderer(api backend.DrawAPI, a assets.Assets, options ...RendererBuilderOption) (Renderer, error) {
	if api == nil || a == nil {
		return nil, common.ArgumentError("renderer.NewRenderer", "draw API and assets are required")
	}
	r := &renderer{
		mu:         &sync.Mutex{},
		api:        api,
		assets:     a,
		settings:   NewRenderSettings(),
		log:        log.NewNop(),
		model:      mgl32.Ident4(),
		view:       mgl32.Ident4(),
		projection: mgl32.Ident4(),
	}
	for _, option := range options {
		option(r)
	}
	if r.sampler == nil {
		r.sampler = profiler.NewFrameSampler(profiler.WithLogger(r.log))
	}
	return r, nil
}

func (r *renderer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *renderer) RequestContext(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingWidth, r.pendingHeight = width, height
	r.pending = true
	if r.state != StateRendering {
		r.state = StateContextPending
	}
}

func (r *renderer) ApplyPendingContext() (bool, error) {
	r.mu.Lock()
	if !r.pending || r.state == StateRendering {
		r.mu.Unlock()
		return false, nil
	}
	w, h := r.pendingWidth, r.pendingHeight
	r.mu.Unlock()
	return true, r.ContextCreated(w, h)
}

func (r *renderer) ContextCreated(width, height int) error {
	const op = "renderer.ContextCreated"
	if width <= 0 || height <= 0 {
		return common.ArgumentError(op, "invalid surface size %dx%d", width, height)
	}

	r.mu.Lock()
	if r.state == StateRendering {
		r.mu.Unlock()
		return common.ConfigurationError(op, "context created inside a frame")
	}
	recreated := r.contextCount > 0
	r.contextCount++
	r.pending = false
	r.width, r.height = width, height
	r.state = StateContextReady
	listeners := slices.Clone(r.contextHandler)
	r.mu.Unlock()

	if recreated {
		r.assets.MarkStale()
	}
	r.assets.SetWindowHeight(height)
	r.settings.SetViewport(0, 0, width, height)
	r.settings.apply(r.api)
	r.log.Info("render context created",
		log.String("api", r.api.Name()),
		log.Int("width", width),
		log.Int("height", height),
		log.Bool("recreated", recreated))

	var errs []error
	for _, l := range listeners {
		if err := l.ContextCreated(r, width, height); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *renderer) Resize(width, height int) error {
	const op = "renderer.Resize"
	if width <= 0 || height <= 0 {
		return common.ArgumentError(op, "invalid surface size %dx%d", width, height)
	}
	r.mu.Lock()
	if r.state == StateUninitialized {
		r.mu.Unlock()
		return common.ConfigurationError(op, "no render context")
	}
	r.width, r.height = width, height
	if r.pending {
		r.pendingWidth, r.pendingHeight = width, height
	}
	r.mu.Unlock()

	r.assets.SetWindowHeight(height)
	r.settings.SetViewport(0, 0, width, height)
	r.log.Debug("render surface resized", log.Int("width", width), log.Int("height", height))
	return nil
}

func (r *renderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *renderer) AddContextListener(l ContextListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l == nil || slices.Contains(r.contextHandler, l) {
		return
	}
	r.contextHandler = append(r.contextHandler, l)
}

func (r *renderer) RemoveContextListener(l ContextListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contextHandler = slices.DeleteFunc(r.contextHandler, func(c ContextListener) bool { return c == l })
}

func (r *renderer) AddFrameListener(l FrameListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l == nil || slices.Contains(r.frameHandler, l) {
		return
	}
	r.frameHandler = append(r.frameHandler, l)
}

func (r *renderer) RemoveFrameListener(l FrameListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frameHandler = slices.DeleteFunc(r.frameHandler, func(c FrameListener) bool { return c == l })
}

func (r *renderer) Settings() *RenderSettings {
	return r.settings
}

func (r *renderer) Assets() assets.Assets {
	return r.assets
}

func (r *renderer) API() backend.DrawAPI {
	return r.api
}

func (r *renderer) Sampler() *profiler.FrameSampler {
	return r.sampler
}

func (r *renderer) BeginFrame() (float32, error) {
	const op = "renderer.BeginFrame"
	r.mu.Lock()
	switch r.state {
	case StateContextReady:
	case StateRendering:
		r.mu.Unlock()
		return 0, common.ConfigurationError(op, "frame already begun")
	default:
		state := r.state
		r.mu.Unlock()
		return 0, common.ConfigurationError(op, "no render context, state %s", state)
	}
	r.state = StateRendering
	listeners := slices.Clone(r.frameHandler)
	r.mu.Unlock()

	delta := r.sampler.Update()
	r.settings.apply(r.api)
	if err := r.api.BeginFrame(); err != nil {
		// no frame was opened, so the next BeginFrame may try again
		r.mu.Lock()
		r.state = StateContextReady
		if r.pending {
			r.state = StateContextPending
		}
		r.mu.Unlock()
		return delta, common.ResourceError(op, err)
	}
	for _, l := range listeners {
		l.UpdateFrameData(r, delta)
	}
	return delta, nil
}

func (r *renderer) Render(root scene.Node) error {
	if state := r.State(); state != StateRendering {
		return common.ConfigurationError("renderer.Render", "render outside a frame, state %s", state)
	}
	if root == nil {
		return nil
	}
	r.model, r.view, r.projection = mgl32.Ident4(), mgl32.Ident4(), mgl32.Ident4()
	r.models.Reset()
	r.views.Reset()
	r.projections.Reset()

	var errs []error
	r.renderNode(root, &errs)
	return errors.Join(errs...)
}

// renderNode draws n and its children, pushing the matrices n changes and popping them afterwards.
func (r *renderer) renderNode(n scene.Node, errs *[]error) {
	if !n.State().Renders() {
		return
	}
	r.models.Push(r.model)
	r.model = r.model.Mul4(n.Matrix())
	view, hasView := n.View()
	if hasView {
		r.views.Push(r.view)
		r.view = view
	}
	projection, hasProjection := n.Projection()
	if hasProjection {
		r.projections.Push(r.projection)
		r.projection = projection
	}

	if mc, ok := n.(meshCarrier); ok {
		m := pipeline.Matrices{Model: r.model, View: r.view, Projection: r.projection}
		for _, mesh := range mc.Meshes() {
			if err := r.RenderMesh(mesh, m); err != nil {
				r.log.Debug("mesh skipped", log.String("node", n.ID()), log.String("mesh", mesh.Name()), log.Error(err))
				*errs = append(*errs, err)
			}
		}
	}
	for _, child := range n.Children() {
		r.renderNode(child, errs)
	}

	if hasProjection {
		r.projection = r.projections.Pop()
	}
	if hasView {
		r.view = r.views.Pop()
	}
	r.model = r.models.Pop()
}

func (r *renderer) RenderMesh(mesh model.Mesh, m pipeline.Matrices) error {
	const op = "renderer.RenderMesh"
	s := mesh.Shader()
	if s == nil {
		return common.SkippableError(op, common.ArgumentError(op, "mesh %q has no shader", mesh.Name()))
	}
	p, err := r.assets.GetPipeline(s)
	if err != nil {
		return common.SkippableError(op, err)
	}
	if err := p.Enable(r.api); err != nil {
		return common.SkippableError(op, err)
	}

	var frustum *common.Frustum
	if r.culling {
		f := common.FrustumFromMatrix(m.Projection.Mul4(m.View).Mul4(m.Model))
		frustum = &f
	}

	var errs []error
	for i, prim := range mesh.Primitives() {
		if frustum != nil {
			if lo, hi, ok := prim.Bounds(); ok && !frustum.IntersectsAABB(lo, hi) {
				r.sampler.AddCulled()
				continue
			}
		}
		if err := r.renderPrimitive(p, prim, m); err != nil {
			errs = append(errs, fmt.Errorf("mesh %q primitive %d: %w", mesh.Name(), i, err))
		}
	}
	if len(errs) > 0 {
		return common.SkippableError(op, errors.Join(errs...))
	}
	return nil
}

// renderPrimitive pushes the uniforms of prim and submits its draw.
func (r *renderer) renderPrimitive(p pipeline.GraphicsPipeline, prim model.Primitive, m pipeline.Matrices) error {
	if err := p.Update(r.api, prim, m); err != nil {
		return err
	}
	if err := prim.Draw(r.api); err != nil {
		return common.ResourceError("renderer.renderPrimitive", err)
	}
	if prim.Indexed() {
		r.sampler.AddDrawElements(prim.IndexCount())
	} else {
		r.sampler.AddDrawArrays(prim.VertexCount())
	}
	return nil
}

func (r *renderer) EndFrame() error {
	const op = "renderer.EndFrame"
	r.mu.Lock()
	if r.state != StateRendering {
		state := r.state
		r.mu.Unlock()
		return common.ConfigurationError(op, "no frame to end, state %s", state)
	}
	r.state = StateContextReady
	if r.pending {
		r.state = StateContextPending
	}
	r.mu.Unlock()

	if err := r.api.EndFrame(); err != nil {
		return common.ResourceError(op, err)
	}
	return nil
}

func (r *renderer) Destroy() {
	r.assets.Destroy()
	if err := r.assets.Backend().Destroy(); err != nil {
		r.log.Warn("backend destroy failed", log.Error(err))
	}
	r.mu.Lock()
	r.state = StateUninitialized
	r.mu.Unlock()
	r.log.Info("renderer destroyed", log.String("api", r.api.Name()))
}
