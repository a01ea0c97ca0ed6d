// Package gles implements the GLES-class DrawAPI on top of OpenGL 3.3 core through go-gl.
// The window must have made its GL context current on the calling OS thread before Factory is invoked,
// and every method must be called from that thread.
package gles

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/common/log"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/go-gl/gl/v3.3-core/gl"
)

// Versions lists the backend versions this package serves.
var Versions = []backend.Version{
	backend.VersionGLES20,
	backend.VersionGLES30,
	backend.VersionGLES31,
	backend.VersionGLES32,
}

const desktopVersionDirective = "#version 330 core\n"

type api struct {
	opts    backend.Options
	log     log.Log
	version backend.Version
	swap    func()

	vao         uint32
	streams     map[int32]uint32
	indexStream uint32
	clearMask   uint32
}

var _ backend.DrawAPI = &api{}

// Factory returns a backend.Factory that initializes the GL function pointers on the current context.
//
// Parameters:
//   - swap: presents the back buffer, normally the window's SwapBuffers
//   - options: shared backend options
//
// Returns:
//   - backend.Factory: the factory to register for Versions
func Factory(swap func(), options ...backend.BuilderOption) backend.Factory {
	return func(version backend.Version) (backend.DrawAPI, error) {
		if !version.IsGLES() {
			return nil, common.ConfigurationError("gles.Factory", "%s is not a GLES version", version)
		}
		if err := gl.Init(); err != nil {
			return nil, fmt.Errorf("failed to initialize GL: %w", err)
		}
		opts := backend.NewOptions(options...)
		a := &api{
			opts:    opts,
			log:     opts.Logger.With(log.String("api", "gles")),
			version: version,
			swap:    swap,
			streams: make(map[int32]uint32),
		}

		gl.GenVertexArrays(1, &a.vao)
		gl.BindVertexArray(a.vao)
		gl.GenBuffers(1, &a.indexStream)
		gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
		if opts.MSAA > backend.MSAAOff {
			gl.Enable(gl.MULTISAMPLE)
		}

		a.log.Info("GL context ready",
			log.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
			log.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		)
		return a, nil
	}
}

func (a *api) Name() string {
	return "gles:" + a.version.String()
}

func (a *api) CreateTextureNames(n int) ([]uint32, error) {
	if n <= 0 {
		return nil, common.ArgumentError("gles.CreateTextureNames", "count must be positive, got %d", n)
	}
	names := make([]uint32, n)
	gl.GenTextures(int32(n), &names[0])
	return names, nil
}

func (a *api) UploadTexture(name uint32, image backend.TextureImage) error {
	internal, format, xtype := textureFormat(image)
	gl.BindTexture(gl.TEXTURE_2D, name)

	if len(image.Levels) == 0 {
		gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(image.Width), int32(image.Height), 0, format, xtype, nil)
	}
	for level, pixels := range image.Levels {
		w, h := max(image.Width>>level, 1), max(image.Height>>level, 1)
		var ptr unsafe.Pointer
		if len(pixels) > 0 {
			ptr = gl.Ptr(pixels)
		}
		gl.TexImage2D(gl.TEXTURE_2D, int32(level), internal, int32(w), int32(h), 0, format, xtype, ptr)
	}
	if len(image.Levels) > 1 {
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAX_LEVEL, int32(len(image.Levels)-1))
	}
	if image.GenerateMipmaps {
		gl.GenerateMipmap(gl.TEXTURE_2D)
	}

	switch image.Format {
	case common.ImageFormatLuminance:
		setSwizzle([4]int32{gl.RED, gl.RED, gl.RED, gl.ONE})
	case common.ImageFormatLuminanceAlpha:
		setSwizzle([4]int32{gl.RED, gl.RED, gl.RED, gl.GREEN})
	}
	return glError("UploadTexture")
}

func (a *api) SetTextureParameters(name uint32, params backend.TexParameters) error {
	gl.BindTexture(gl.TEXTURE_2D, name)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filters[params.MinFilter])
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filters[params.MagFilter])
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wraps[params.WrapS])
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wraps[params.WrapT])
	if params.Swizzle != [4]backend.Channel{} {
		var swizzle [4]int32
		for i, c := range params.Swizzle {
			swizzle[i] = channel(c, i)
		}
		setSwizzle(swizzle)
	}
	return glError("SetTextureParameters")
}

func (a *api) BindTexture(unit int, name uint32) error {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, name)
	return nil
}

func (a *api) DeleteTextures(names []uint32) {
	if len(names) == 0 {
		return
	}
	gl.DeleteTextures(int32(len(names)), &names[0])
}

func (a *api) CreateBufferNames(n int) ([]uint32, error) {
	if n <= 0 {
		return nil, common.ArgumentError("gles.CreateBufferNames", "count must be positive, got %d", n)
	}
	names := make([]uint32, n)
	gl.GenBuffers(int32(n), &names[0])
	return names, nil
}

func (a *api) BufferData(name uint32, target backend.BufferTarget, data []byte) error {
	t := uint32(gl.ARRAY_BUFFER)
	if target == backend.TargetElementArrayBuffer {
		t = gl.ELEMENT_ARRAY_BUFFER
	}
	gl.BindBuffer(t, name)
	if len(data) == 0 {
		gl.BufferData(t, 0, nil, gl.STATIC_DRAW)
	} else {
		gl.BufferData(t, len(data), gl.Ptr(data), gl.STATIC_DRAW)
	}
	return glError("BufferData")
}

func (a *api) DeleteBuffers(names []uint32) {
	if len(names) == 0 {
		return
	}
	gl.DeleteBuffers(int32(len(names)), &names[0])
}

func (a *api) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (a *api) SetRenderState(state backend.RenderState) {
	c := state.ClearColor
	gl.ClearColor(c[0], c[1], c[2], c[3])
	gl.ClearDepth(float64(state.ClearDepth))

	a.clearMask = 0
	if state.Clear&backend.ClearColor != 0 {
		a.clearMask |= gl.COLOR_BUFFER_BIT
	}
	if state.Clear&backend.ClearDepth != 0 {
		a.clearMask |= gl.DEPTH_BUFFER_BIT
	}
	if state.Clear&backend.ClearStencil != 0 {
		a.clearMask |= gl.STENCIL_BUFFER_BIT
	}

	switch state.Depth {
	case backend.DepthNone:
		gl.Disable(gl.DEPTH_TEST)
	case backend.DepthLess:
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(gl.LESS)
	case backend.DepthLessEqual:
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(gl.LEQUAL)
	case backend.DepthAlways:
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(gl.ALWAYS)
	}

	switch state.Cull {
	case backend.CullNone:
		gl.Disable(gl.CULL_FACE)
	case backend.CullBack:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	case backend.CullFront:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	}
}

func (a *api) BeginFrame() error {
	if a.clearMask != 0 {
		gl.Clear(a.clearMask)
	}
	return nil
}

func (a *api) DrawArrays(mode backend.DrawMode, first, count int) error {
	gl.DrawArrays(modes[mode], int32(first), int32(count))
	return glError("DrawArrays")
}

func (a *api) DrawElements(mode backend.DrawMode, count int, indices backend.IndexSource) error {
	if indices.Buffer != 0 {
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, indices.Buffer)
	} else {
		if len(indices.Data) == 0 {
			return common.ArgumentError("gles.DrawElements", "no index buffer or data")
		}
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, a.indexStream)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices.Data), gl.Ptr(indices.Data), gl.STREAM_DRAW)
	}
	gl.DrawElements(modes[mode], int32(count), indexTypes[indices.Type], gl.PtrOffset(indices.Offset))
	return glError("DrawElements")
}

func (a *api) EndFrame() error {
	if a.swap != nil {
		a.swap()
	}
	return nil
}

func (a *api) Release() {
	for _, b := range a.streams {
		gl.DeleteBuffers(1, &b)
	}
	a.streams = make(map[int32]uint32)
	gl.DeleteBuffers(1, &a.indexStream)
	gl.DeleteVertexArrays(1, &a.vao)
}

func glError(op string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return common.ResourceError("gles."+op, fmt.Errorf("GL error 0x%04X", code))
	}
	return nil
}

func setSwizzle(s [4]int32) {
	gl.TexParameteriv(gl.TEXTURE_2D, gl.TEXTURE_SWIZZLE_RGBA, &s[0])
}

func channel(c backend.Channel, index int) int32 {
	switch c {
	case backend.ChannelRed:
		return gl.RED
	case backend.ChannelGreen:
		return gl.GREEN
	case backend.ChannelBlue:
		return gl.BLUE
	case backend.ChannelAlpha:
		return gl.ALPHA
	case backend.ChannelZero:
		return gl.ZERO
	case backend.ChannelOne:
		return gl.ONE
	default:
		return [4]int32{gl.RED, gl.GREEN, gl.BLUE, gl.ALPHA}[index]
	}
}

func textureFormat(image backend.TextureImage) (internal int32, format, xtype uint32) {
	if image.Depth {
		return gl.DEPTH_COMPONENT24, gl.DEPTH_COMPONENT, gl.UNSIGNED_INT
	}
	srgb := image.ColorModel == common.ColorModelSRGB
	switch image.Format {
	case common.ImageFormatRGB:
		if srgb {
			return gl.SRGB8, gl.RGB, gl.UNSIGNED_BYTE
		}
		return gl.RGB8, gl.RGB, gl.UNSIGNED_BYTE
	case common.ImageFormatRG, common.ImageFormatLuminanceAlpha:
		return gl.RG8, gl.RG, gl.UNSIGNED_BYTE
	case common.ImageFormatR, common.ImageFormatLuminance:
		return gl.R8, gl.RED, gl.UNSIGNED_BYTE
	default:
		if srgb {
			return gl.SRGB8_ALPHA8, gl.RGBA, gl.UNSIGNED_BYTE
		}
		return gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE
	}
}

// withVersion prefixes a desktop version directive when the source carries none.
func withVersion(source string) string {
	if strings.HasPrefix(strings.TrimSpace(source), "#version") {
		return source
	}
	return desktopVersionDirective + source
}

var modes = map[backend.DrawMode]uint32{
	backend.DrawModePoints:        gl.POINTS,
	backend.DrawModeLines:         gl.LINES,
	backend.DrawModeLineLoop:      gl.LINE_LOOP,
	backend.DrawModeLineStrip:     gl.LINE_STRIP,
	backend.DrawModeTriangles:     gl.TRIANGLES,
	backend.DrawModeTriangleStrip: gl.TRIANGLE_STRIP,
	backend.DrawModeTriangleFan:   gl.TRIANGLE_FAN,
}

var indexTypes = map[backend.IndexType]uint32{
	backend.IndexUnsignedByte:  gl.UNSIGNED_BYTE,
	backend.IndexUnsignedShort: gl.UNSIGNED_SHORT,
	backend.IndexUnsignedInt:   gl.UNSIGNED_INT,
}

var filters = map[backend.TexFilter]int32{
	backend.FilterNearest:              gl.NEAREST,
	backend.FilterLinear:               gl.LINEAR,
	backend.FilterNearestMipmapNearest: gl.NEAREST_MIPMAP_NEAREST,
	backend.FilterLinearMipmapNearest:  gl.LINEAR_MIPMAP_NEAREST,
	backend.FilterNearestMipmapLinear:  gl.NEAREST_MIPMAP_LINEAR,
	backend.FilterLinearMipmapLinear:   gl.LINEAR_MIPMAP_LINEAR,
}

var wraps = map[backend.TexWrap]int32{
	backend.WrapClamp:          gl.CLAMP_TO_EDGE,
	backend.WrapRepeat:         gl.REPEAT,
	backend.WrapMirroredRepeat: gl.MIRRORED_REPEAT,
}
