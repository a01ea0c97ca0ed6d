package engine

import (
	"github.com/Carmen-Shannon/nucleus-go/common/log"
	"github.com/Carmen-Shannon/nucleus-go/engine/component"
	"github.com/Carmen-Shannon/nucleus-go/engine/scene"
	"github.com/Carmen-Shannon/nucleus-go/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithLogger sets the logger for frame loop events.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(l log.Log) EngineBuilderOption {
	return func(e *engine) {
		e.log = l
	}
}

// WithWindow sets the window Run drives. Without a window the engine is driven by calling ContextCreated
// and DrawFrame directly.
//
// Parameters:
//   - w: a created Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithWorker sets the component worker. The default processes inline with no systems registered.
//
// Parameters:
//   - w: the worker
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWorker(w component.Worker) EngineBuilderOption {
	return func(e *engine) {
		e.worker = w
	}
}

// WithRootNode sets the initial scene root.
func WithRootNode(root *scene.RootNode) EngineBuilderOption {
	return func(e *engine) {
		e.root = root
	}
}

// WithInputHandler registers a handler that receives every window input event at the start of a frame.
func WithInputHandler(handler func(window.InputEvent)) EngineBuilderOption {
	return func(e *engine) {
		if handler != nil {
			e.inputHandlers = append(e.inputHandlers, handler)
		}
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameDuration(fps)
	}
}
