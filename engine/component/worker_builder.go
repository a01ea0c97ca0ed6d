package component

import (
	"github.com/Carmen-Shannon/nucleus-go/common/log"
	"github.com/Carmen-Shannon/nucleus-go/engine/profiler"
)

// WorkerBuilderOption is a functional option for configuring a Worker.
type WorkerBuilderOption func(*worker)

// WithMultiThread runs processing on a dedicated goroutine. Without it Process runs inline.
//
// Parameters:
//   - enabled: whether to use the goroutine
//
// Returns:
//   - WorkerBuilderOption: option function to apply
func WithMultiThread(enabled bool) WorkerBuilderOption {
	return func(w *worker) {
		w.multiThread = enabled
	}
}

// WithLogger sets the logger for worker lifecycle and processing failures.
func WithLogger(l log.Log) WorkerBuilderOption {
	return func(w *worker) {
		w.log = l
	}
}

// WithSampler records the duration of every pass under profiler.TagComponentProcessor.
func WithSampler(s *profiler.FrameSampler) WorkerBuilderOption {
	return func(w *worker) {
		w.sampler = s
	}
}

// WithErrorHandler receives the errors of every pass and recovered panics. It runs on the worker goroutine.
func WithErrorHandler(fn func(error)) WorkerBuilderOption {
	return func(w *worker) {
		w.onError = fn
	}
}
