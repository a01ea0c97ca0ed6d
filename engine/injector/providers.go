// Package injector assembles the engine object graph from a configuration. ProviderSet feeds the wire
// injector; Build constructs the same graph by hand for binaries built without wire.
package injector

import (
	"os"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/nucleus-go/common/log"
	"github.com/Carmen-Shannon/nucleus-go/engine"
	"github.com/Carmen-Shannon/nucleus-go/engine/assets"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend/gles"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend/webgpu"
	"github.com/Carmen-Shannon/nucleus-go/engine/component"
	"github.com/Carmen-Shannon/nucleus-go/engine/config"
	"github.com/Carmen-Shannon/nucleus-go/engine/loader"
	"github.com/Carmen-Shannon/nucleus-go/engine/profiler"
	"github.com/Carmen-Shannon/nucleus-go/engine/renderer"
	"github.com/Carmen-Shannon/nucleus-go/engine/texture"
	"github.com/Carmen-Shannon/nucleus-go/engine/window"
	"github.com/google/wire"
)

// ProviderSet provides every engine dependency given a *config.Config and the component *component.Systems.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideVersion,
	ProvideWindow,
	ProvideRegistry,
	ProvideBackend,
	ProvideSampler,
	ProvidePool,
	ProvideLoader,
	ProvideImageFactory,
	ProvideAssets,
	ProvideRenderer,
	ProvideWorker,
	ProvideEngine,
)

// ProvideLogger creates the process logger at the configured level.
func ProvideLogger(cfg *config.Config) log.Log {
	return log.New(cfg.Level())
}

// ProvideVersion parses the configured backend version.
func ProvideVersion(cfg *config.Config) (backend.Version, error) {
	return backend.ParseVersion(cfg.Backend)
}

// ProvideWindow opens the platform window with a GL context for GLES versions and a bare surface for
// Vulkan-class versions.
func ProvideWindow(cfg *config.Config, version backend.Version, l log.Log) (window.Window, error) {
	api := window.ClientAPIOpenGL
	if version.IsVulkan() {
		api = window.ClientAPINone
	}
	return window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
		window.WithVSync(cfg.Window.VSync),
		window.WithClientAPI(api),
		window.WithLogger(l),
	)
}

// ProvideRegistry registers the GL factory for every GLES version and the WebGPU factory for every
// Vulkan-class version, both bound to win.
func ProvideRegistry(cfg *config.Config, win window.Window, l log.Log) *backend.Registry {
	options := []backend.BuilderOption{backend.WithLogger(l)}
	if !cfg.Window.VSync {
		options = append(options, backend.WithPresentMode(backend.PresentModeUncapped))
	}
	return backend.NewRegistry(
		backend.WithRegistryLogger(l),
		backend.WithFactory(gles.Factory(win.SwapBuffers, options...),
			backend.VersionGLES20, backend.VersionGLES30, backend.VersionGLES31, backend.VersionGLES32),
		backend.WithFactory(webgpu.Factory(win.SurfaceDescriptor, options...),
			backend.VersionVulkan10, backend.VersionVulkan11, backend.VersionVulkan12),
	)
}

// ProvideBackend creates the backend for version; the first one created becomes the registry's active backend.
func ProvideBackend(registry *backend.Registry, version backend.Version) (backend.Backend, error) {
	return registry.Create(version)
}

// ProvideSampler creates the frame sampler from the min-FPS and profiling settings.
func ProvideSampler(cfg *config.Config, l log.Log) *profiler.FrameSampler {
	return profiler.NewFrameSampler(
		profiler.WithMinFPS(cfg.MinFPS),
		profiler.WithLogging(cfg.Profiling.Enabled),
		profiler.WithSampleInterval(time.Duration(cfg.Profiling.SampleSeconds)*time.Second),
		profiler.WithLogger(l),
	)
}

// ProvidePool creates the CPU worker pool sized by worker_count. The cleanup stops it.
func ProvidePool(cfg *config.Config) (worker.DynamicWorkerPool, func()) {
	pool := worker.NewDynamicWorkerPool(cfg.WorkerCount, 256, time.Second)
	return pool, pool.Stop
}

// ProvideLoader creates the glTF loader rooted at asset_root.
func ProvideLoader(cfg *config.Config, l log.Log) loader.Loader {
	return loader.NewLoader(loader.WithFS(os.DirFS(cfg.AssetRoot)), loader.WithLogger(l))
}

// ProvideImageFactory creates the image factory reading from the loader's file system.
func ProvideImageFactory(ld loader.Loader, l log.Log) texture.ImageFactory {
	return texture.NewImageFactory(texture.WithFS(ld.FS()), texture.WithImageLogger(l))
}

// ProvideAssets creates the resource cache for b.
func ProvideAssets(
	cfg *config.Config,
	b backend.Backend,
	l log.Log,
	sampler *profiler.FrameSampler,
	pool worker.DynamicWorkerPool,
	ld loader.Loader,
	factory texture.ImageFactory,
) (assets.Assets, error) {
	return assets.New(b,
		assets.WithLogger(l),
		assets.WithSampler(sampler),
		assets.WithWorkerPool(pool),
		assets.WithLoader(ld),
		assets.WithImageFactory(factory),
		assets.WithVBO(cfg.UseVBO),
		assets.WithWindowHeight(cfg.Window.Height),
	)
}

// ProvideRenderer creates the renderer drawing through b.
func ProvideRenderer(cfg *config.Config, b backend.Backend, a assets.Assets, sampler *profiler.FrameSampler, l log.Log) (renderer.Renderer, error) {
	return renderer.NewRenderer(b.API(), a,
		renderer.WithLogger(l),
		renderer.WithSampler(sampler),
		renderer.WithFrustumCulling(cfg.FrustumCulling),
	)
}

// ProvideWorker creates the component worker, on its own goroutine when multi-threading is enabled and more
// than one CPU is available.
func ProvideWorker(cfg *config.Config, systems *component.Systems, sampler *profiler.FrameSampler, l log.Log) component.Worker {
	return component.NewWorker(component.NewProcessor(systems, l),
		component.WithMultiThread(cfg.UseMultiThread()),
		component.WithLogger(l),
		component.WithSampler(sampler),
		component.WithErrorHandler(func(err error) {
			l.Debug("component pass reported errors", log.Error(err))
		}),
	)
}

// ProvideEngine creates the frame driver bound to the window.
func ProvideEngine(r renderer.Renderer, w component.Worker, win window.Window, l log.Log) (engine.Engine, error) {
	return newEngine(r, w, win, l)
}

func newEngine(r renderer.Renderer, w component.Worker, win window.Window, l log.Log, extra ...engine.EngineBuilderOption) (engine.Engine, error) {
	options := []engine.EngineBuilderOption{
		engine.WithWorker(w),
		engine.WithWindow(win),
		engine.WithLogger(l),
	}
	return engine.NewEngine(r, append(options, extra...)...)
}

// Build constructs the engine graph in the order ProviderSet resolves it. The returned cleanup stops the
// worker pool and must run after Engine.Destroy.
//
// Parameters:
//   - cfg: the validated configuration
//   - systems: the component systems the worker runs
//   - options: extra engine options such as input handlers, applied after the provided ones
//
// Returns:
//   - engine.Engine: the engine, bound to a newly opened window
//   - func(): releases what the engine does not own
//   - error: the first provider error
func Build(cfg *config.Config, systems *component.Systems, options ...engine.EngineBuilderOption) (engine.Engine, func(), error) {
	l := ProvideLogger(cfg)
	version, err := ProvideVersion(cfg)
	if err != nil {
		return nil, nil, err
	}
	win, err := ProvideWindow(cfg, version, l)
	if err != nil {
		return nil, nil, err
	}
	closeWindow := func() {
		if err := win.Close(); err != nil {
			l.Warn("window close failed", log.Error(err))
		}
	}
	b, err := ProvideBackend(ProvideRegistry(cfg, win, l), version)
	if err != nil {
		closeWindow()
		return nil, nil, err
	}
	sampler := ProvideSampler(cfg, l)
	pool, stopPool := ProvidePool(cfg)
	ld := ProvideLoader(cfg, l)
	a, err := ProvideAssets(cfg, b, l, sampler, pool, ld, ProvideImageFactory(ld, l))
	if err != nil {
		stopPool()
		closeWindow()
		return nil, nil, err
	}
	r, err := ProvideRenderer(cfg, b, a, sampler, l)
	if err != nil {
		stopPool()
		closeWindow()
		return nil, nil, err
	}
	e, err := newEngine(r, ProvideWorker(cfg, systems, sampler, l), win, l, options...)
	if err != nil {
		stopPool()
		closeWindow()
		return nil, nil, err
	}
	return e, stopPool, nil
}
