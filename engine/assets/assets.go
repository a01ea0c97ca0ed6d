// Package assets caches the GPU resources of a render context: compiled pipelines, textures and the
// buffer objects of loaded glTF documents. At most one resource exists per cache key; concurrent requests
// for a missing key share one creation.
package assets

import (
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/common/log"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/Carmen-Shannon/nucleus-go/engine/loader"
	"github.com/Carmen-Shannon/nucleus-go/engine/pipeline"
	"github.com/Carmen-Shannon/nucleus-go/engine/profiler"
	"github.com/Carmen-Shannon/nucleus-go/engine/shader"
	"github.com/Carmen-Shannon/nucleus-go/engine/texture"
	"golang.org/x/sync/singleflight"
)

// Stats are the cache counters.
type Stats struct {
	PipelineHits   uint64
	PipelineMisses uint64
	TextureHits    uint64
	TextureMisses  uint64
	Pipelines      int
	Textures       int
	Documents      int
}

// assets is the implementation of the Assets interface.
type assets struct {
	version backend.Version
	backend backend.Backend
	api     backend.DrawAPI
	log     log.Log
	sampler *profiler.FrameSampler
	loader  loader.Loader
	factory texture.ImageFactory

	pool     worker.DynamicWorkerPool
	ownsPool bool
	workers  int
	useVBO   bool

	windowHeight atomic.Int64

	mu        sync.RWMutex
	group     singleflight.Group
	pipelines map[string]pipeline.GraphicsPipeline
	textures  map[string]*texture.Texture

	// imageRefs counts the documents sharing each glTF image texture. Textures cached through
	// GetTexture have no entry and are never deleted by DeleteGLTFAssets.
	imageRefs map[string]int
	documents map[*loader.Document]struct{}
	destroyed bool

	pipelineHits   atomic.Uint64
	pipelineMisses atomic.Uint64
	textureHits    atomic.Uint64
	textureMisses  atomic.Uint64
}

// Assets is the resource cache of one render context.
type Assets interface {
	// Version returns the backend version the cache creates resources for.
	Version() backend.Version

	// Backend returns the backend the cache was created on.
	Backend() backend.Backend

	// GetPipeline returns the pipeline compiled from s, compiling it on the first request for s.Key().
	// Failed compiles are not cached, so a later request compiles again.
	//
	// Parameters:
	//   - s: the shader to compile
	//
	// Returns:
	//   - pipeline.GraphicsPipeline: the cached or new pipeline
	//   - error: a retryable backend error if compilation fails
	GetPipeline(s shader.Shader) (pipeline.GraphicsPipeline, error)

	// DeletePipeline destroys the pipeline cached under key.
	//
	// Parameters:
	//   - key: the shader key
	//
	// Returns:
	//   - bool: true if a pipeline was cached under key
	DeletePipeline(key string) bool

	// GetTexture returns the texture for ref. An id-reference ("@id") resolves to an already registered
	// texture and fails if there is none; any other reference is a source path loaded through factory on
	// the first request.
	//
	// Parameters:
	//   - factory: the image factory source paths are loaded with, nil for the cache default
	//   - ref: the external reference
	//
	// Returns:
	//   - *texture.Texture: the uploaded texture
	//   - error: an argument error for an empty or dangling reference, or a retryable error if the image
	//     cannot be loaded or uploaded
	GetTexture(factory texture.ImageFactory, ref texture.ExternalReference) (*texture.Texture, error)

	// GetTextureFromDescriptor returns the texture registered under t.ID, uploading t on the first
	// request. Descriptors whose reference is an id-reference are resolved with IDReference.
	//
	// Parameters:
	//   - factory: the image factory t's source is loaded with, nil for the cache default
	//   - t: the texture descriptor
	//
	// Returns:
	//   - *texture.Texture: the registered texture, t itself on a miss
	//   - error: an argument error if t is invalid, or a retryable error if loading fails
	GetTextureFromDescriptor(factory texture.ImageFactory, t *texture.Texture) (*texture.Texture, error)

	// IDReference fills the stub t from the registered texture its reference names. The stub must not
	// define a format; the storage description comes solely from the referenced texture.
	//
	// Parameters:
	//   - t: a texture whose Reference is an id-reference
	//
	// Returns:
	//   - *texture.Texture: t, sharing the GPU name of the referenced texture
	//   - error: an argument error if t defines a format or the reference is dangling
	IDReference(t *texture.Texture) (*texture.Texture, error)

	// CreateRenderTargetTexture returns the texture backing one attachment of a render target, allocating
	// it on the first request. Render target textures sample nearest with clamped coordinates.
	//
	// Parameters:
	//   - target: the render target, which must have an id
	//   - point: the attachment point
	//   - width: the window width the attachment scale applies to
	//   - height: the window height the attachment scale applies to
	//
	// Returns:
	//   - *texture.Texture: the texture keyed by target.AttachmentID(point)
	//   - error: an argument error if the target has no id or no such attachment
	CreateRenderTargetTexture(target *texture.RenderTarget, point texture.AttachmentPoint, width, height int) (*texture.Texture, error)

	// Texture returns the texture registered under id, nil if there is none.
	Texture(id string) *texture.Texture

	// DeleteTexture deletes the texture registered under id.
	DeleteTexture(id string) bool

	// LoadGLTF loads filename through the document cache and then its GPU assets.
	//
	// Parameters:
	//   - factory: the image factory external images are loaded with, nil for the cache default
	//   - filename: the document path
	//
	// Returns:
	//   - *loader.Document: the loaded document
	//   - error: the first load error
	LoadGLTF(factory texture.ImageFactory, filename string) (*loader.Document, error)

	// LoadGLTFAssets loads the buffers of doc, uploads its material textures, computes tangent space data
	// for normal mapped primitives and finally creates buffer objects. The steps run strictly in this
	// order. Loading a document twice is a no-op.
	//
	// Parameters:
	//   - factory: the image factory external images are loaded with, nil for the cache default
	//   - doc: a resolved document
	//
	// Returns:
	//   - error: the first failing step's error
	LoadGLTFAssets(factory texture.ImageFactory, doc *loader.Document) error

	// DeleteGLTFAssets deletes the buffer objects of doc, then the textures no other loaded document
	// uses, and drops doc from the document cache.
	DeleteGLTFAssets(doc *loader.Document)

	// SetWindowHeight sets the height texture resolution bias is computed against.
	SetWindowHeight(height int)

	// MarkStale drops every cached resource without deleting it on the GPU. It is called when the render
	// context was re-created and the old objects no longer exist; resources are recreated on their next
	// request.
	MarkStale()

	// Stats returns the cache counters.
	Stats() Stats

	// Destroy deletes every pipeline, then every texture, then every buffer object. No other method may
	// be called afterwards.
	Destroy()
}

var _ Assets = &assets{}

// New creates the resource cache for b. Only GLES and Vulkan class versions have an asset manager.
//
// Parameters:
//   - b: the active backend
//   - options: a variadic list of AssetsBuilderOption functions to configure the cache
//
// Returns:
//   - Assets: the new cache
//   - error: a configuration error if b is nil or its version is not supported
func New(b backend.Backend, options ...AssetsBuilderOption) (Assets, error) {
	const op = "assets.New"
	if b == nil {
		return nil, common.ConfigurationError(op, "no backend")
	}
	if v := b.Version(); !v.IsGLES() && !v.IsVulkan() {
		return nil, common.ConfigurationError(op, "no asset manager for backend version %s", v)
	}

	a := &assets{
		version:   b.Version(),
		backend:   b,
		api:       b.API(),
		log:       log.NewNop(),
		workers:   max(runtime.NumCPU()-1, 1),
		useVBO:    true,
		pipelines: make(map[string]pipeline.GraphicsPipeline),
		textures:  make(map[string]*texture.Texture),
		imageRefs: make(map[string]int),
		documents: make(map[*loader.Document]struct{}),
	}
	for _, option := range options {
		option(a)
	}
	if a.sampler == nil {
		a.sampler = profiler.NewFrameSampler(profiler.WithLogging(false))
	}
	if a.loader == nil {
		a.loader = loader.NewLoader(loader.WithLogger(a.log))
	}
	if a.factory == nil {
		a.factory = texture.NewImageFactory(texture.WithFS(a.loader.FS()), texture.WithImageLogger(a.log))
	}
	if a.pool == nil {
		a.pool = worker.NewDynamicWorkerPool(a.workers, 256, time.Second)
		a.ownsPool = true
	}
	return a, nil
}

func (a *assets) Version() backend.Version {
	return a.version
}

func (a *assets) Backend() backend.Backend {
	return a.backend
}

func (a *assets) GetPipeline(s shader.Shader) (pipeline.GraphicsPipeline, error) {
	const op = "assets.GetPipeline"
	if s == nil {
		return nil, common.ArgumentError(op, "shader is nil")
	}
	key := s.Key()

	a.mu.RLock()
	if a.destroyed {
		a.mu.RUnlock()
		return nil, common.DestroyedError(op)
	}
	p, ok := a.pipelines[key]
	a.mu.RUnlock()
	if ok {
		a.pipelineHits.Add(1)
		return p, nil
	}

	v, err, _ := a.group.Do("pipeline:"+key, func() (any, error) {
		a.mu.RLock()
		p, ok := a.pipelines[key]
		a.mu.RUnlock()
		if ok {
			a.pipelineHits.Add(1)
			return p, nil
		}

		a.pipelineMisses.Add(1)
		start := a.sampler.Now()
		p, err := pipeline.New(a.api, s, pipeline.WithLogger(a.log))
		a.sampler.TagSince(profiler.TagCompileProgram, start)
		if err != nil {
			a.log.Warn("pipeline compile failed", log.String("key", key), log.Error(err))
			return nil, err
		}

		a.mu.Lock()
		defer a.mu.Unlock()
		if a.destroyed {
			p.Destroy(a.api)
			return nil, common.DestroyedError(op)
		}
		a.pipelines[key] = p
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(pipeline.GraphicsPipeline), nil
}

func (a *assets) DeletePipeline(key string) bool {
	a.mu.Lock()
	p, ok := a.pipelines[key]
	delete(a.pipelines, key)
	a.mu.Unlock()
	if ok {
		p.Destroy(a.api)
	}
	return ok
}

func (a *assets) GetTexture(factory texture.ImageFactory, ref texture.ExternalReference) (*texture.Texture, error) {
	const op = "assets.GetTexture"
	if ref.Empty() {
		return nil, common.ArgumentError(op, "texture reference is empty")
	}
	if ref.IsIDReference() {
		t := a.Texture(ref.ID())
		if t == nil {
			a.log.Debug("dangling texture reference", log.String("reference", string(ref)))
			return nil, danglingTexture(op, ref)
		}
		a.textureHits.Add(1)
		return t, nil
	}
	return a.GetTextureFromDescriptor(factory, texture.New(ref.Source(), ref, nil))
}

func (a *assets) GetTextureFromDescriptor(factory texture.ImageFactory, t *texture.Texture) (*texture.Texture, error) {
	const op = "assets.GetTextureFromDescriptor"
	if t == nil {
		return nil, common.ArgumentError(op, "texture is nil")
	}
	if t.Reference.IsIDReference() {
		return a.IDReference(t)
	}
	if err := texture.Validate(t); err != nil {
		return nil, err
	}
	if factory == nil {
		factory = a.factory
	}

	if cached, err := a.cachedTexture(op, t.ID); cached != nil || err != nil {
		return cached, err
	}
	v, err, _ := a.group.Do("texture:"+t.ID, func() (any, error) {
		if cached, err := a.cachedTexture(op, t.ID); cached != nil || err != nil {
			return cached, err
		}
		a.textureMisses.Add(1)

		switch t.Kind() {
		case texture.KindUntextured:
		case texture.KindDynamic:
			if t.Width <= 0 || t.Height <= 0 {
				return nil, common.ArgumentError(op, "dynamic texture %s has no size", t.ID)
			}
			if err := a.allocate(t, t.ImageFormat(), false); err != nil {
				return nil, err
			}
		default:
			start := a.sampler.Now()
			levels, err := factory.LoadLevels(t, int(a.windowHeight.Load()))
			a.sampler.TagSince(profiler.TagCreateImage, start)
			if err != nil {
				return nil, common.ResourceError(op, err)
			}
			if err := a.upload(t, levels); err != nil {
				return nil, err
			}
		}
		return a.register(op, t)
	})
	if err != nil {
		return nil, err
	}
	return v.(*texture.Texture), nil
}

func (a *assets) IDReference(t *texture.Texture) (*texture.Texture, error) {
	const op = "assets.IDReference"
	if t == nil || !t.Reference.IsIDReference() {
		return nil, common.ArgumentError(op, "texture is not an id-reference")
	}
	if t.Format != nil {
		return nil, common.ArgumentError(op, "texture %s references %s and must not define a format", t.ID, t.Reference)
	}
	ref := a.Texture(t.Reference.ID())
	if ref == nil {
		return nil, danglingTexture(op, t.Reference)
	}
	t.CopyInstance(ref)
	return t, nil
}

func (a *assets) CreateRenderTargetTexture(target *texture.RenderTarget, point texture.AttachmentPoint, width, height int) (*texture.Texture, error) {
	const op = "assets.CreateRenderTargetTexture"
	if target == nil {
		return nil, common.ArgumentError(op, "render target is nil")
	}
	t, err := target.AttachmentTexture(point)
	if err != nil {
		return nil, err
	}
	if cached, err := a.cachedTexture(op, t.ID); cached != nil || err != nil {
		return cached, err
	}

	v, err, _ := a.group.Do("texture:"+t.ID, func() (any, error) {
		if cached, err := a.cachedTexture(op, t.ID); cached != nil || err != nil {
			return cached, err
		}
		a.textureMisses.Add(1)

		attachment, _ := target.Attachment(point)
		t.Width, t.Height = attachment.Size(width, height)
		if err := a.allocate(t, attachment.Format, point == texture.AttachmentDepth); err != nil {
			return nil, err
		}
		return a.register(op, t)
	})
	if err != nil {
		return nil, err
	}
	return v.(*texture.Texture), nil
}

func (a *assets) Texture(id string) *texture.Texture {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.textures[id]
}

func (a *assets) DeleteTexture(id string) bool {
	a.mu.Lock()
	t, ok := a.textures[id]
	delete(a.textures, id)
	delete(a.imageRefs, id)
	a.mu.Unlock()
	if !ok {
		return false
	}
	if t.Uploaded() {
		a.api.DeleteTextures([]uint32{t.Name})
		t.Name = 0
	}
	return true
}

func (a *assets) SetWindowHeight(height int) {
	a.windowHeight.Store(int64(height))
}

func (a *assets) MarkStale() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, t := range a.textures {
		t.Name = 0
	}
	for doc := range a.documents {
		for _, b := range doc.AllBuffers() {
			b.VBO = 0
		}
		for i := range doc.Images {
			doc.Images[i].Texture = nil
		}
	}
	a.log.Info("assets marked stale",
		log.Int("pipelines", len(a.pipelines)),
		log.Int("textures", len(a.textures)),
		log.Int("documents", len(a.documents)))
	clear(a.pipelines)
	clear(a.textures)
	clear(a.imageRefs)
	clear(a.documents)
}

func (a *assets) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Stats{
		PipelineHits:   a.pipelineHits.Load(),
		PipelineMisses: a.pipelineMisses.Load(),
		TextureHits:    a.textureHits.Load(),
		TextureMisses:  a.textureMisses.Load(),
		Pipelines:      len(a.pipelines),
		Textures:       len(a.textures),
		Documents:      len(a.documents),
	}
}

func (a *assets) Destroy() {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return
	}
	a.destroyed = true
	pipelines := a.pipelines
	textures := a.textures
	documents := a.documents
	a.pipelines = make(map[string]pipeline.GraphicsPipeline)
	a.textures = make(map[string]*texture.Texture)
	a.documents = make(map[*loader.Document]struct{})
	clear(a.imageRefs)
	a.mu.Unlock()

	keys := make([]string, 0, len(pipelines))
	for k := range pipelines {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		pipelines[k].Destroy(a.api)
	}

	var names []uint32
	for _, t := range textures {
		if t.Uploaded() {
			names = append(names, t.Name)
			t.Name = 0
		}
	}
	if len(names) > 0 {
		slices.Sort(names)
		a.api.DeleteTextures(names)
	}

	for doc := range documents {
		a.deleteVBOs(doc)
	}
	if a.ownsPool {
		a.pool.Stop()
	}
	a.log.Info("assets destroyed",
		log.Int("pipelines", len(keys)),
		log.Int("textures", len(names)),
		log.Int("documents", len(documents)))
}

// cachedTexture returns the texture registered under id, counting a hit.
func (a *assets) cachedTexture(op, id string) (*texture.Texture, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.destroyed {
		return nil, common.DestroyedError(op)
	}
	t, ok := a.textures[id]
	if !ok {
		return nil, nil
	}
	a.textureHits.Add(1)
	return t, nil
}

// register stores t under its id. A texture created while the cache was destroyed is deleted again.
func (a *assets) register(op string, t *texture.Texture) (*texture.Texture, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.destroyed {
		if t.Uploaded() {
			a.api.DeleteTextures([]uint32{t.Name})
			t.Name = 0
		}
		return nil, common.DestroyedError(op)
	}
	a.textures[t.ID] = t
	a.log.Debug("texture registered", log.String("texture", t.String()))
	return t, nil
}

// upload creates a GPU texture for t from levels. A single level with mipmapped filtering leaves mip
// generation to the backend.
func (a *assets) upload(t *texture.Texture, levels []*common.BufferImage) error {
	const op = "assets.upload"
	if len(levels) == 0 {
		return common.ResourceError(op, fmt.Errorf("%w: texture %s has no image data", common.ErrNotFound, t.ID))
	}
	start := a.sampler.Now()
	defer a.sampler.TagSince(profiler.TagCreateTexture, start)

	base := levels[0]
	image := backend.TextureImage{
		Width:           base.Width,
		Height:          base.Height,
		Format:          base.Format,
		ColorModel:      base.ColorModel,
		Levels:          make([][]byte, len(levels)),
		GenerateMipmaps: t.Parameters.UsesMipmaps() && len(levels) == 1,
	}
	for i, l := range levels {
		image.Levels[i] = l.Pixels
	}
	name, err := a.create(t, image)
	if err != nil {
		return err
	}

	format := base.Format
	t.Name = name
	t.Width, t.Height = base.Width, base.Height
	t.Format = &format
	t.ColorModel = base.ColorModel
	t.Levels = len(levels)
	return nil
}

// allocate creates GPU storage for t without pixel data.
func (a *assets) allocate(t *texture.Texture, format common.ImageFormat, depth bool) error {
	name, err := a.create(t, backend.TextureImage{
		Width:      t.Width,
		Height:     t.Height,
		Format:     format,
		ColorModel: t.ColorModel,
		Depth:      depth,
	})
	if err != nil {
		return err
	}
	t.Name = name
	t.Format = &format
	return nil
}

func (a *assets) create(t *texture.Texture, image backend.TextureImage) (uint32, error) {
	const op = "assets.createTexture"
	names, err := a.api.CreateTextureNames(1)
	if err != nil {
		return 0, common.ResourceError(op, err)
	}
	if err := a.api.UploadTexture(names[0], image); err != nil {
		a.api.DeleteTextures(names)
		return 0, common.ResourceError(op, fmt.Errorf("upload %s: %w", t.ID, err))
	}
	if err := a.api.SetTextureParameters(names[0], t.Parameters.TexParameters()); err != nil {
		a.api.DeleteTextures(names)
		return 0, common.ResourceError(op, fmt.Errorf("parameters of %s: %w", t.ID, err))
	}
	return names[0], nil
}

// danglingTexture is both an argument error and a dangling reference error.
func danglingTexture(op string, ref texture.ExternalReference) error {
	return &common.Error{
		Kind: common.KindFatal,
		Op:   op,
		Err:  fmt.Errorf("%w: %w: no texture registered as %s", common.ErrInvalidArgument, common.ErrDanglingReference, ref),
	}
}
