package renderer

import (
	"github.com/Carmen-Shannon/nucleus-go/common/log"
	"github.com/Carmen-Shannon/nucleus-go/engine/profiler"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithLogger sets the logger of the renderer.
//
// Parameters:
//   - logger: the logger frame events are written to
//
// Returns:
//   - RendererBuilderOption: a function that applies the logger option to a renderer
func WithLogger(logger log.Log) RendererBuilderOption {
	return func(r *renderer) {
		r.log = logger
	}
}

// WithSampler sets the frame sampler BeginFrame advances. The renderer creates one with the default
// minimum FPS when none is given.
//
// Parameters:
//   - sampler: the frame sampler
//
// Returns:
//   - RendererBuilderOption: a function that applies the sampler option to a renderer
func WithSampler(sampler *profiler.FrameSampler) RendererBuilderOption {
	return func(r *renderer) {
		r.sampler = sampler
	}
}

// WithFrustumCulling skips primitives whose bounds lie outside the view volume of their model-view-projection
// matrix. Primitives without bounds are always drawn.
func WithFrustumCulling(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.culling = enabled
	}
}

// WithSettings replaces the default render settings.
func WithSettings(settings *RenderSettings) RendererBuilderOption {
	return func(r *renderer) {
		if settings != nil {
			r.settings = settings
		}
	}
}

// WithContextListener registers listeners notified on every context creation.
func WithContextListener(listeners ...ContextListener) RendererBuilderOption {
	return func(r *renderer) {
		for _, l := range listeners {
			r.AddContextListener(l)
		}
	}
}

// WithFrameListener registers listeners run at the start of every frame.
func WithFrameListener(listeners ...FrameListener) RendererBuilderOption {
	return func(r *renderer) {
		for _, l := range listeners {
			r.AddFrameListener(l)
		}
	}
}
