package renderer

import (
	"sync"

	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
)

// RenderSettings holds the fixed-function state applied at frame start. Changes are recorded and only
// pushed to the backend by the next BeginFrame.
type RenderSettings struct {
	mu *sync.Mutex

	state    backend.RenderState
	viewport [4]int

	stateChanged    bool
	viewportChanged bool
}

// NewRenderSettings returns settings that clear color and depth to opaque black and far, test depth with
// LESS and cull back faces.
func NewRenderSettings() *RenderSettings {
	return &RenderSettings{
		mu: &sync.Mutex{},
		state: backend.RenderState{
			ClearColor: [4]float32{0, 0, 0, 1},
			ClearDepth: 1,
			Clear:      backend.ClearColor | backend.ClearDepth,
			Depth:      backend.DepthLess,
			Cull:       backend.CullBack,
		},
		stateChanged: true,
	}
}

// SetClearColor sets the color buffer clear value.
func (s *RenderSettings) SetClearColor(r, g, b, a float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ClearColor = [4]float32{r, g, b, a}
	s.stateChanged = true
}

// SetClearDepth sets the depth buffer clear value.
func (s *RenderSettings) SetClearDepth(depth float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ClearDepth = depth
	s.stateChanged = true
}

// SetClearFlags selects the buffers cleared at frame start.
func (s *RenderSettings) SetClearFlags(flags backend.ClearFlags) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Clear = flags
	s.stateChanged = true
}

// SetDepthFunc sets the depth comparison, backend.DepthNone to disable depth testing.
func (s *RenderSettings) SetDepthFunc(f backend.DepthFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Depth = f
	s.stateChanged = true
}

// SetCullFace sets the culled face, backend.CullNone to disable culling.
func (s *RenderSettings) SetCullFace(c backend.CullFace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Cull = c
	s.stateChanged = true
}

// SetViewport sets the viewport rectangle in pixels.
func (s *RenderSettings) SetViewport(x, y, width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = [4]int{x, y, width, height}
	s.viewportChanged = true
}

// State returns the current fixed-function state.
func (s *RenderSettings) State() backend.RenderState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Viewport returns the viewport rectangle as x, y, width, height.
func (s *RenderSettings) Viewport() [4]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

// Changed reports whether any setting is waiting to be applied.
func (s *RenderSettings) Changed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateChanged || s.viewportChanged
}

// apply pushes the changed settings to api and clears the change flags.
func (s *RenderSettings) apply(api backend.DrawAPI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.viewportChanged {
		api.Viewport(s.viewport[0], s.viewport[1], s.viewport[2], s.viewport[3])
		s.viewportChanged = false
	}
	if s.stateChanged {
		api.SetRenderState(s.state)
		s.stateChanged = false
	}
}
