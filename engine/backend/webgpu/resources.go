package webgpu

import (
	"fmt"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/cogentcore/webgpu/wgpu"
)

func (t *texture) release() {
	if t.sampler != nil {
		t.sampler.Release()
	}
	if t.view != nil {
		t.view.Release()
	}
	if t.tex != nil {
		t.tex.Release()
	}
}

func (a *api) CreateTextureNames(n int) ([]uint32, error) {
	if n <= 0 {
		return nil, common.ArgumentError("webgpu.CreateTextureNames", "count must be positive, got %d", n)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	names := make([]uint32, n)
	for i := range names {
		names[i] = a.name()
		a.textures[names[i]] = &texture{}
	}
	return names, nil
}

// textureFormat picks the GPU format and returns level pixels converted to it.
// wgpu has no three channel or luminance formats, so those are widened to RGBA.
func textureFormat(image backend.TextureImage) (wgpu.TextureFormat, int) {
	switch {
	case image.Depth:
		return wgpu.TextureFormatDepth24Plus, 0
	case image.Format == common.ImageFormatRG:
		return wgpu.TextureFormatRG8Unorm, 2
	case image.Format == common.ImageFormatR:
		return wgpu.TextureFormatR8Unorm, 1
	case image.ColorModel == common.ColorModelSRGB:
		return wgpu.TextureFormatRGBA8UnormSrgb, 4
	default:
		return wgpu.TextureFormatRGBA8Unorm, 4
	}
}

func levelPixels(image backend.TextureImage, level int, pixels []byte) []byte {
	if image.Format == common.ImageFormatRGBA || image.Format == common.ImageFormatRG || image.Format == common.ImageFormatR {
		return pixels
	}
	b := common.BufferImage{
		Width:  max(image.Width>>level, 1),
		Height: max(image.Height>>level, 1),
		Format: image.Format,
		Pixels: pixels,
	}
	return b.UnpackRGBA().Pix
}

func (a *api) UploadTexture(name uint32, image backend.TextureImage) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	t, ok := a.textures[name]
	if !ok {
		return common.ArgumentError("webgpu.UploadTexture", "texture %d was not created", name)
	}
	t.release()
	t.image = image

	format, bpp := textureFormat(image)
	usage := wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst
	if len(image.Levels) == 0 {
		usage |= wgpu.TextureUsageRenderAttachment
	}
	levels := uint32(max(len(image.Levels), 1))
	if image.GenerateMipmaps && len(image.Levels) <= 1 {
		a.log.Debug("mipmap generation is not available on this backend, using level 0 only")
	}

	tex, err := a.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     fmt.Sprintf("texture %d", name),
		Usage:     usage,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(image.Width),
			Height:             uint32(image.Height),
			DepthOrArrayLayers: 1,
		},
		Format:        format,
		MipLevelCount: levels,
		SampleCount:   1,
	})
	if err != nil {
		return common.ResourceError("webgpu.UploadTexture", err)
	}
	t.tex = tex

	for level, pixels := range image.Levels {
		if len(pixels) == 0 {
			continue
		}
		w, h := uint32(max(image.Width>>level, 1)), uint32(max(image.Height>>level, 1))
		a.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: uint32(level),
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			levelPixels(image, level, pixels),
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  w * uint32(bpp),
				RowsPerImage: h,
			},
			&wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		)
	}

	if t.view, err = tex.CreateView(nil); err != nil {
		return common.ResourceError("webgpu.UploadTexture", err)
	}
	return a.createSampler(t)
}

func (a *api) SetTextureParameters(name uint32, params backend.TexParameters) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	t, ok := a.textures[name]
	if !ok {
		return common.ArgumentError("webgpu.SetTextureParameters", "texture %d was not created", name)
	}
	t.params = params
	if t.tex == nil {
		return nil
	}
	if t.sampler != nil {
		t.sampler.Release()
		t.sampler = nil
	}
	return a.createSampler(t)
}

func (a *api) createSampler(t *texture) error {
	if t.image.Depth {
		return nil
	}
	mip := wgpu.MipmapFilterModeNearest
	if t.params.MinFilter == backend.FilterNearestMipmapLinear || t.params.MinFilter == backend.FilterLinearMipmapLinear {
		mip = wgpu.MipmapFilterModeLinear
	}
	lodMax := float32(0)
	if t.params.MinFilter.UsesMipmaps() {
		lodMax = float32(max(len(t.image.Levels)-1, 0))
	}
	s, err := a.device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  addressModes[t.params.WrapS],
		AddressModeV:  addressModes[t.params.WrapT],
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     filterMode(t.params.MagFilter),
		MinFilter:     filterMode(t.params.MinFilter),
		MipmapFilter:  mip,
		LodMinClamp:   0,
		LodMaxClamp:   lodMax,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return common.ResourceError("webgpu.createSampler", err)
	}
	t.sampler = s
	return nil
}

func (a *api) BindTexture(unit int, name uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.textures[name]; !ok && name != 0 {
		return common.ArgumentError("webgpu.BindTexture", "texture %d was not created", name)
	}
	a.bound[unit] = name
	return nil
}

func (a *api) DeleteTextures(names []uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, n := range names {
		if t, ok := a.textures[n]; ok {
			t.release()
			delete(a.textures, n)
		}
	}
}

func (a *api) CreateBufferNames(n int) ([]uint32, error) {
	if n <= 0 {
		return nil, common.ArgumentError("webgpu.CreateBufferNames", "count must be positive, got %d", n)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	names := make([]uint32, n)
	for i := range names {
		names[i] = a.name()
		a.buffers[names[i]] = &buffer{}
	}
	return names, nil
}

// BufferData keeps a CPU copy next to the GPU buffer so fan/loop expansion and attribute repacking can read it.
func (a *api) BufferData(name uint32, target backend.BufferTarget, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.buffers[name]
	if !ok {
		return common.ArgumentError("webgpu.BufferData", "buffer %d was not created", name)
	}
	if b.gpu != nil {
		b.gpu.Release()
		b.gpu = nil
	}
	b.data = append([]byte(nil), data...)
	if len(data) == 0 {
		return nil
	}
	gpu, err := a.upload(fmt.Sprintf("buffer %d", name), data)
	if err != nil {
		return err
	}
	b.gpu = gpu
	return nil
}

func (a *api) upload(label string, data []byte) (*wgpu.Buffer, error) {
	size := roundUpAlign(4, uint64(len(data)))
	gpu, err := a.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, common.ResourceError("webgpu.upload", err)
	}
	if uint64(len(data)) != size {
		data = append(append([]byte(nil), data...), make([]byte, size-uint64(len(data)))...)
	}
	a.queue.WriteBuffer(gpu, 0, data)
	return gpu, nil
}

func (a *api) DeleteBuffers(names []uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, n := range names {
		if b, ok := a.buffers[n]; ok {
			if b.gpu != nil {
				b.gpu.Release()
			}
			delete(a.buffers, n)
		}
	}
}

// fallbackTexture is a 1x1 white texture bound to units nothing was bound to.
func (a *api) fallbackTexture() (*texture, error) {
	if a.fallback != nil {
		return a.fallback, nil
	}
	t := &texture{image: backend.TextureImage{Width: 1, Height: 1, Levels: [][]byte{{0xff, 0xff, 0xff, 0xff}}}}
	tex, err := a.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "fallback",
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		Size:          wgpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
		Format:        wgpu.TextureFormatRGBA8Unorm,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, common.ResourceError("webgpu.fallbackTexture", err)
	}
	t.tex = tex
	a.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: tex, Aspect: wgpu.TextureAspectAll},
		t.image.Levels[0],
		&wgpu.TextureDataLayout{BytesPerRow: 4, RowsPerImage: 1},
		&wgpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
	)
	if t.view, err = tex.CreateView(nil); err != nil {
		return nil, common.ResourceError("webgpu.fallbackTexture", err)
	}
	if err := a.createSampler(t); err != nil {
		return nil, err
	}
	a.fallback = t
	return t, nil
}

var addressModes = map[backend.TexWrap]wgpu.AddressMode{
	backend.WrapClamp:          wgpu.AddressModeClampToEdge,
	backend.WrapRepeat:         wgpu.AddressModeRepeat,
	backend.WrapMirroredRepeat: wgpu.AddressModeMirrorRepeat,
}

func filterMode(f backend.TexFilter) wgpu.FilterMode {
	switch f {
	case backend.FilterLinear, backend.FilterLinearMipmapNearest, backend.FilterLinearMipmapLinear:
		return wgpu.FilterModeLinear
	default:
		return wgpu.FilterModeNearest
	}
}
