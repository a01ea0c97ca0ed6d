// Package webgpu implements the Vulkan-class DrawAPI on top of wgpu-native through cogentcore/webgpu.
// Programs are WGSL and bake their topology, depth and blend state into a render pipeline at creation.
package webgpu

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/common/log"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/cogentcore/webgpu/wgpu"
)

// Versions lists the backend versions this package serves.
var Versions = []backend.Version{
	backend.VersionVulkan10,
	backend.VersionVulkan11,
	backend.VersionVulkan12,
}

type texture struct {
	image   backend.TextureImage
	tex     *wgpu.Texture
	view    *wgpu.TextureView
	sampler *wgpu.Sampler
	params  backend.TexParameters
}

type buffer struct {
	data []byte
	gpu  *wgpu.Buffer
}

type api struct {
	mu      sync.Mutex
	opts    backend.Options
	log     log.Log
	version backend.Version

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode
	width, height int
	msaaTexture   *wgpu.Texture
	msaaView      *wgpu.TextureView
	depthTexture  *wgpu.Texture
	depthView     *wgpu.TextureView

	nextName uint32
	textures map[uint32]*texture
	buffers  map[uint32]*buffer
	programs map[uint32]*program
	fallback *texture

	state    backend.RenderState
	current  *program
	bound    map[int]uint32
	vertices map[uint32]backend.VertexSource

	encoder      *wgpu.CommandEncoder
	pass         *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
	transient    []*wgpu.Buffer
	bindGroups   []*wgpu.BindGroup
}

var _ backend.DrawAPI = &api{}

// Factory returns a backend.Factory that creates the instance, surface, adapter and device.
// The surface is configured on the first Viewport call.
//
// Parameters:
//   - surface: returns the platform surface descriptor, normally the window's SurfaceDescriptor
//   - options: shared backend options
//
// Returns:
//   - backend.Factory: the factory to register for Versions
func Factory(surface func() *wgpu.SurfaceDescriptor, options ...backend.BuilderOption) backend.Factory {
	return func(version backend.Version) (backend.DrawAPI, error) {
		if !version.IsVulkan() {
			return nil, common.ConfigurationError("webgpu.Factory", "%s is not a Vulkan-class version", version)
		}
		desc := surface()
		if desc == nil {
			return nil, common.ConfigurationError("webgpu.Factory", "window has no surface")
		}

		opts := backend.NewOptions(options...)
		a := &api{
			opts:        opts,
			log:         opts.Logger.With(log.String("api", "webgpu")),
			version:     version,
			instance:    wgpu.CreateInstance(nil),
			presentMode: wgpu.PresentModeFifo,
			textures:    make(map[uint32]*texture),
			buffers:     make(map[uint32]*buffer),
			programs:    make(map[uint32]*program),
			bound:       make(map[int]uint32),
			vertices:    make(map[uint32]backend.VertexSource),
		}
		if opts.PresentMode == backend.PresentModeUncapped {
			a.presentMode = wgpu.PresentModeImmediate
		}
		a.surface = a.instance.CreateSurface(desc)

		adapter, err := a.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
			ForceFallbackAdapter: opts.ForceFallbackAdapter,
			CompatibleSurface:    a.surface,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to request adapter: %w", err)
		}
		a.adapter = adapter

		device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
			Label: "nucleus device",
			RequiredLimits: &wgpu.RequiredLimits{
				Limits: wgpu.DefaultLimits(),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to request device: %w", err)
		}
		a.device = device
		a.queue = device.GetQueue()

		caps := a.surface.GetCapabilities(a.adapter)
		if len(caps.Formats) == 0 {
			return nil, common.ConfigurationError("webgpu.Factory", "surface reports no formats")
		}
		a.surfaceFormat = caps.Formats[0]

		a.log.Info("device ready", log.String("version", version.String()))
		return a, nil
	}
}

func (a *api) Name() string {
	return "webgpu:" + a.version.String()
}

// Viewport configures the surface and the depth/MSAA attachments when the size changes.
// The x and y origin is ignored: a render pass always covers the whole surface.
func (a *api) Viewport(x, y, width, height int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if width <= 0 || height <= 0 || (width == a.width && height == a.height) {
		return
	}
	a.width, a.height = width, height
	if err := a.configureSurface(); err != nil {
		a.log.Error("failed to configure surface", log.Error(err))
	}
}

func (a *api) configureSurface() error {
	caps := a.surface.GetCapabilities(a.adapter)
	a.surface.Configure(a.adapter, a.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      a.surfaceFormat,
		Width:       uint32(a.width),
		Height:      uint32(a.height),
		PresentMode: a.presentMode,
		AlphaMode:   caps.AlphaModes[0],
	})

	a.releaseAttachments()
	count := uint32(a.opts.MSAA)
	size := wgpu.Extent3D{Width: uint32(a.width), Height: uint32(a.height), DepthOrArrayLayers: 1}

	if count > 1 {
		tex, err := a.device.CreateTexture(&wgpu.TextureDescriptor{
			Label:         "msaa",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        a.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			return err
		}
		a.msaaTexture = tex
		if a.msaaView, err = tex.CreateView(nil); err != nil {
			return err
		}
	}

	depth, err := a.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "depth",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return err
	}
	a.depthTexture = depth
	a.depthView, err = depth.CreateView(nil)
	return err
}

func (a *api) releaseAttachments() {
	if a.msaaView != nil {
		a.msaaView.Release()
		a.msaaView = nil
	}
	if a.msaaTexture != nil {
		a.msaaTexture.Release()
		a.msaaTexture = nil
	}
	if a.depthView != nil {
		a.depthView.Release()
		a.depthView = nil
	}
	if a.depthTexture != nil {
		a.depthTexture.Release()
		a.depthTexture = nil
	}
}

func (a *api) SetRenderState(state backend.RenderState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = state
}

func (a *api) BeginFrame() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.frameSurface != nil {
		return common.ResourceError("webgpu.BeginFrame", fmt.Errorf("previous frame surface not yet presented"))
	}
	if a.depthView == nil {
		return common.ConfigurationError("webgpu.BeginFrame", "surface not configured, call Viewport first")
	}

	surfaceTexture, err := a.surface.GetCurrentTexture()
	if err != nil {
		return common.ResourceError("webgpu.BeginFrame", err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return common.ResourceError("webgpu.BeginFrame", err)
	}
	encoder, err := a.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return common.ResourceError("webgpu.BeginFrame", err)
	}

	load := wgpu.LoadOpLoad
	if a.state.Clear&backend.ClearColor != 0 {
		load = wgpu.LoadOpClear
	}
	depthLoad := wgpu.LoadOpLoad
	if a.state.Clear&backend.ClearDepth != 0 {
		depthLoad = wgpu.LoadOpClear
	}
	c := a.state.ClearColor
	color := wgpu.RenderPassColorAttachment{
		View:       view,
		LoadOp:     load,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: wgpu.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])},
	}
	if a.msaaView != nil {
		color.View = a.msaaView
		color.ResolveTarget = view
		color.StoreOp = wgpu.StoreOpDiscard
	}

	a.pass = encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{color},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            a.depthView,
			DepthLoadOp:     depthLoad,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: a.state.ClearDepth,
		},
	})
	a.encoder = encoder
	a.frameSurface = surfaceTexture
	a.frameView = view
	return nil
}

func (a *api) EndFrame() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pass == nil {
		return nil
	}
	a.pass.End()
	a.pass = nil

	cmd, err := a.encoder.Finish(nil)
	a.encoder.Release()
	a.encoder = nil
	if err == nil {
		a.queue.Submit(cmd)
		cmd.Release()
		a.surface.Present()
	}

	a.frameView.Release()
	a.frameSurface.Release()
	a.frameView, a.frameSurface = nil, nil
	for _, bg := range a.bindGroups {
		bg.Release()
	}
	for _, b := range a.transient {
		b.Release()
	}
	a.bindGroups, a.transient = a.bindGroups[:0], a.transient[:0]

	if err != nil {
		return common.ResourceError("webgpu.EndFrame", err)
	}
	return nil
}

func (a *api) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for name, p := range a.programs {
		p.release()
		delete(a.programs, name)
	}
	for name, t := range a.textures {
		t.release()
		delete(a.textures, name)
	}
	if a.fallback != nil {
		a.fallback.release()
		a.fallback = nil
	}
	for name, b := range a.buffers {
		if b.gpu != nil {
			b.gpu.Release()
		}
		delete(a.buffers, name)
	}
	a.releaseAttachments()
	if a.queue != nil {
		a.queue.Release()
	}
	if a.device != nil {
		a.device.Release()
	}
	if a.adapter != nil {
		a.adapter.Release()
	}
	if a.surface != nil {
		a.surface.Release()
	}
	if a.instance != nil {
		a.instance.Release()
	}
	// a second Release finds nothing left to free
	a.queue, a.device, a.adapter, a.surface, a.instance = nil, nil, nil, nil, nil
}

func (a *api) name() uint32 {
	a.nextName++
	return a.nextName
}
