package assets

import (
	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/nucleus-go/common/log"
	"github.com/Carmen-Shannon/nucleus-go/engine/loader"
	"github.com/Carmen-Shannon/nucleus-go/engine/profiler"
	"github.com/Carmen-Shannon/nucleus-go/engine/texture"
)

// AssetsBuilderOption is a functional option for configuring Assets via New.
type AssetsBuilderOption func(*assets)

// WithLogger is an option builder that sets the logger of the cache.
//
// Parameters:
//   - logger: the logger cache events are written to
//
// Returns:
//   - AssetsBuilderOption: a function that applies the logger option to the cache
func WithLogger(logger log.Log) AssetsBuilderOption {
	return func(a *assets) {
		a.log = logger
	}
}

// WithSampler is an option builder that records load timings on sampler.
func WithSampler(sampler *profiler.FrameSampler) AssetsBuilderOption {
	return func(a *assets) {
		a.sampler = sampler
	}
}

// WithLoader is an option builder that sets the glTF document cache LoadGLTF reads through.
func WithLoader(l loader.Loader) AssetsBuilderOption {
	return func(a *assets) {
		a.loader = l
	}
}

// WithImageFactory is an option builder that sets the factory external glTF images are loaded with when
// LoadGLTFAssets is given none.
func WithImageFactory(f texture.ImageFactory) AssetsBuilderOption {
	return func(a *assets) {
		a.factory = f
	}
}

// WithWorkerPool is an option builder that sets the pool tangent space computation runs on. Image decoding
// uses as many goroutines as the pool has workers. The cache does not stop a pool it did not create.
func WithWorkerPool(pool worker.DynamicWorkerPool) AssetsBuilderOption {
	return func(a *assets) {
		if pool == nil {
			return
		}
		a.pool = pool
		a.workers = max(pool.GetMaxWorkers(), 1)
	}
}

// WithVBO is an option builder that controls whether glTF buffers are uploaded as buffer objects.
//
// Parameters:
//   - enabled: true to create VBOs in LoadGLTFAssets
//
// Returns:
//   - AssetsBuilderOption: a function that applies the VBO option to the cache
func WithVBO(enabled bool) AssetsBuilderOption {
	return func(a *assets) {
		a.useVBO = enabled
	}
}

// WithWindowHeight is an option builder that sets the initial window height used for texture
// resolution bias.
func WithWindowHeight(height int) AssetsBuilderOption {
	return func(a *assets) {
		a.windowHeight.Store(int64(height))
	}
}
