package assets

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/common/log"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/Carmen-Shannon/nucleus-go/engine/loader"
	"github.com/Carmen-Shannon/nucleus-go/engine/profiler"
	"github.com/Carmen-Shannon/nucleus-go/engine/texture"
	"golang.org/x/sync/errgroup"
)

// glTF buffer view targets.
const (
	viewTargetArrayBuffer        = 34962
	viewTargetElementArrayBuffer = 34963
)

// decodedImage is one glTF image decoded off the render thread, waiting for upload.
type decodedImage struct {
	key    string
	slot   loader.TextureSlot
	desc   *texture.Texture
	levels []*common.BufferImage
}

func (a *assets) LoadGLTF(factory texture.ImageFactory, filename string) (*loader.Document, error) {
	doc, err := a.loader.Load(filename)
	if err != nil {
		return nil, err
	}
	if err := a.LoadGLTFAssets(factory, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (a *assets) LoadGLTFAssets(factory texture.ImageFactory, doc *loader.Document) error {
	const op = "assets.LoadGLTFAssets"
	if doc == nil || !doc.Resolved() {
		return common.ArgumentError(op, "document is nil or not resolved")
	}
	if factory == nil {
		factory = a.factory
	}

	// concurrent loads of one document share a single pass
	_, err, _ := a.group.Do(fmt.Sprintf("gltf:%s:%p", doc.Filename, doc), func() (any, error) {
		a.mu.RLock()
		destroyed := a.destroyed
		_, loaded := a.documents[doc]
		a.mu.RUnlock()
		if destroyed {
			return nil, common.DestroyedError(op)
		}
		if loaded {
			return nil, nil
		}

		if err := a.loadDocument(op, factory, doc); err != nil {
			a.releaseImages(doc)
			a.deleteVBOs(doc)
			return nil, err
		}

		a.mu.Lock()
		a.documents[doc] = struct{}{}
		a.mu.Unlock()
		a.log.Info("gltf assets loaded",
			log.String("document", doc.Filename),
			log.Int("buffers", len(doc.AllBuffers())),
			log.Int("images", len(doc.Images)),
			log.Bool("vbo", a.useVBO))
		return nil, nil
	})
	return err
}

// loadDocument runs the load steps of doc in order. On error the caller releases the GPU objects the
// finished steps created; loaded buffers and tangent space data are kept for the next attempt.
func (a *assets) loadDocument(op string, factory texture.ImageFactory, doc *loader.Document) error {
	start := a.sampler.Now()
	if err := loader.LoadBuffers(a.loader.FS(), doc); err != nil {
		return common.ResourceError(op, err)
	}
	a.sampler.TagSince(profiler.TagLoadBuffers, start)

	if err := a.loadImages(factory, doc); err != nil {
		return err
	}

	start = a.sampler.Now()
	if err := loader.CalculateTBN(doc, a.pool); err != nil {
		return common.ResourceError(op, err)
	}
	a.sampler.TagSince(profiler.TagBuildTBN, start)

	if a.useVBO {
		start = a.sampler.Now()
		if err := a.createVBOs(doc); err != nil {
			return err
		}
		a.sampler.TagSince(profiler.TagCreateVBO, start)
	}
	return nil
}

// loadImages uploads the material textures of doc. Images are decoded concurrently and uploaded on the
// calling goroutine; an image already cached is shared. Every texture bound to doc that is owned by
// glTF documents gains one reference; textures cached through GetTexture are bound without one.
func (a *assets) loadImages(factory texture.ImageFactory, doc *loader.Document) error {
	const op = "assets.loadImages"

	var pending []*decodedImage
	seen := make(map[string]bool)
	for i := range doc.Materials {
		for _, slot := range loader.TextureSlots(&doc.Materials[i]) {
			img := slot.Image()
			if seen[img.Key] {
				continue
			}
			seen[img.Key] = true
			if t := a.shareImage(img.Key); t != nil {
				a.textureHits.Add(1)
				setImageTexture(doc, img.Key, t)
				continue
			}

			desc := texture.New(img.Key, texture.ExternalReference(img.Key), nil)
			format := slot.Format
			desc.Format = &format
			desc.ColorModel = slot.ColorModel
			desc.Parameters = slot.Parameters
			pending = append(pending, &decodedImage{key: img.Key, slot: slot, desc: desc})
		}
	}

	var g errgroup.Group
	g.SetLimit(a.workers)
	for _, p := range pending {
		g.Go(func() error {
			start := a.sampler.Now()
			defer a.sampler.TagSince(profiler.TagCreateImage, start)

			data, err := loader.ImageData(p.slot.Image())
			if err != nil {
				return err
			}
			if data == nil {
				p.levels, err = factory.LoadLevels(p.desc, int(a.windowHeight.Load()))
				return err
			}
			base, err := common.DecodeImageBytes(data, p.key, p.slot.Format)
			if err != nil {
				return err
			}
			base.ColorModel = p.slot.ColorModel
			levels := 1
			if p.slot.Parameters.UsesMipmaps() {
				levels = 0
			}
			p.levels = texture.MipChain(base, levels)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return common.ResourceError(op, fmt.Errorf("%s: %w", doc.Filename, err))
	}

	for _, p := range pending {
		a.textureMisses.Add(1)
		if err := a.upload(p.desc, p.levels); err != nil {
			return err
		}
		t, err := a.registerImage(op, p.desc)
		if err != nil {
			return err
		}
		setImageTexture(doc, p.key, t)
	}
	return nil
}

// shareImage returns the texture cached under key, or nil. A texture owned by glTF documents gains a
// reference.
func (a *assets) shareImage(key string) *texture.Texture {
	a.mu.Lock()
	defer a.mu.Unlock()
	t := a.textures[key]
	if t == nil {
		return nil
	}
	if n, owned := a.imageRefs[key]; owned {
		a.imageRefs[key] = n + 1
	}
	return t
}

// registerImage stores the freshly uploaded glTF texture t with one reference. When another load
// registered the same key first, t is deleted and the cached texture is shared instead.
func (a *assets) registerImage(op string, t *texture.Texture) (*texture.Texture, error) {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		a.deleteUploaded(t)
		return nil, common.DestroyedError(op)
	}
	if cached := a.textures[t.ID]; cached != nil {
		if n, owned := a.imageRefs[t.ID]; owned {
			a.imageRefs[t.ID] = n + 1
		}
		a.mu.Unlock()
		a.deleteUploaded(t)
		return cached, nil
	}
	a.textures[t.ID] = t
	a.imageRefs[t.ID] = 1
	a.mu.Unlock()
	a.log.Debug("texture registered", log.String("texture", t.String()))
	return t, nil
}

func (a *assets) deleteUploaded(t *texture.Texture) {
	if t.Uploaded() {
		a.api.DeleteTextures([]uint32{t.Name})
		t.Name = 0
	}
}

// releaseImages unbinds the textures of doc and drops the reference doc holds on each glTF owned one.
// Textures left without references are deleted.
func (a *assets) releaseImages(doc *loader.Document) int {
	var names []uint32
	released := make(map[string]bool)
	a.mu.Lock()
	for i := range doc.Images {
		img := &doc.Images[i]
		t := img.Texture
		img.Texture = nil
		if t == nil || released[img.Key] || a.textures[img.Key] != t {
			continue
		}
		released[img.Key] = true
		n, owned := a.imageRefs[img.Key]
		if !owned {
			continue
		}
		if n > 1 {
			a.imageRefs[img.Key] = n - 1
			continue
		}
		delete(a.imageRefs, img.Key)
		delete(a.textures, img.Key)
		if t.Uploaded() {
			names = append(names, t.Name)
			t.Name = 0
		}
	}
	a.mu.Unlock()

	if len(names) > 0 {
		slices.Sort(names)
		a.api.DeleteTextures(names)
	}
	return len(names)
}

func setImageTexture(doc *loader.Document, key string, t *texture.Texture) {
	for i := range doc.Images {
		if doc.Images[i].Key == key {
			doc.Images[i].Texture = t
		}
	}
}

// createVBOs uploads every buffer of doc, including generated tangent space buffers, as a buffer object.
func (a *assets) createVBOs(doc *loader.Document) error {
	const op = "assets.createVBOs"
	var buffers []*loader.Buffer
	for _, b := range doc.AllBuffers() {
		if b.VBO == 0 && b.Loaded() {
			buffers = append(buffers, b)
		}
	}
	if len(buffers) == 0 {
		return nil
	}

	names, err := a.api.CreateBufferNames(len(buffers))
	if err != nil {
		return common.ResourceError(op, err)
	}
	targets := bufferTargets(doc)
	for i, b := range buffers {
		b.Target = targets[b]
		if err := a.api.BufferData(names[i], b.Target, b.Data); err != nil {
			a.api.DeleteBuffers(names)
			for _, done := range buffers[:i] {
				done.VBO = 0
			}
			return common.ResourceError(op, fmt.Errorf("buffer %d of %s: %w", i, doc.Filename, err))
		}
		b.VBO = names[i]
	}
	a.log.Debug("vbos created", log.String("document", doc.Filename), log.Int("count", len(names)))
	return nil
}

// bufferTargets picks the binding point of each buffer: element array for buffers only indices are read
// from, array otherwise.
func bufferTargets(doc *loader.Document) map[*loader.Buffer]backend.BufferTarget {
	indices := make(map[*loader.Buffer]bool)
	vertices := make(map[*loader.Buffer]bool)
	for i := range doc.BufferViews {
		v := &doc.BufferViews[i]
		if v.Target == nil || v.Buf == nil {
			continue
		}
		switch *v.Target {
		case viewTargetElementArrayBuffer:
			indices[v.Buf] = true
		case viewTargetArrayBuffer:
			vertices[v.Buf] = true
		}
	}
	for _, p := range doc.Primitives() {
		if p.IndexData != nil && p.IndexData.View != nil {
			indices[p.IndexData.View.Buf] = true
		}
		for _, acc := range p.Accessors {
			if acc != nil && acc.View != nil {
				vertices[acc.View.Buf] = true
			}
		}
	}

	out := make(map[*loader.Buffer]backend.BufferTarget)
	for b := range indices {
		if !vertices[b] {
			out[b] = backend.TargetElementArrayBuffer
		}
	}
	return out
}

func (a *assets) DeleteGLTFAssets(doc *loader.Document) {
	if doc == nil {
		return
	}
	a.deleteVBOs(doc)

	a.mu.Lock()
	delete(a.documents, doc)
	a.mu.Unlock()
	deleted := a.releaseImages(doc)

	loader.UnloadBuffers(doc)
	a.loader.Remove(doc.Filename)
	a.log.Info("gltf assets deleted", log.String("document", doc.Filename), log.Int("textures", deleted))
}

func (a *assets) deleteVBOs(doc *loader.Document) {
	var names []uint32
	for _, b := range doc.AllBuffers() {
		if b.VBO != 0 {
			names = append(names, b.VBO)
			b.VBO = 0
		}
	}
	if len(names) > 0 {
		a.api.DeleteBuffers(names)
	}
}
