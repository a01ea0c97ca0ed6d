package texture_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/common/log"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/Carmen-Shannon/nucleus-go/engine/texture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(y), G: 0x80, B: 0, A: 0xff})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestKindAndFrames(t *testing.T) {
	plain := texture.New("plain", "plain.png", nil)
	assert.Equal(t, texture.KindTexture2D, plain.Kind())
	assert.Equal(t, 1, plain.FrameCount())

	tiled := texture.New("tiles", "tiles.png", texture.Tiled{Columns: 4, Rows: 2, Frames: 7})
	assert.Equal(t, texture.KindTiled, tiled.Kind())
	assert.Equal(t, 7, tiled.FrameCount())
	r, err := tiled.Frame(5)
	require.NoError(t, err)
	assert.Equal(t, texture.Region{X: 0.25, Y: 0.5, Width: 0.25, Height: 0.5}, r)
	_, err = tiled.Frame(7)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	atlas := texture.New("atlas", "atlas.png", texture.UVAtlas{Regions: []texture.Region{{Width: 0.5, Height: 1}}})
	assert.Equal(t, texture.KindUV, atlas.Kind())
	clone := atlas.Clone()
	clone.Payload.(texture.UVAtlas).Regions[0].Width = 1
	r, err = atlas.Frame(0)
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), r.Width)

	assert.Equal(t, "untextured", texture.New("none", "", texture.Untextured{}).Kind().String())
}

func TestCopyInstance(t *testing.T) {
	source := texture.New("brick", "brick.png", nil)
	format := common.ImageFormatRGBA
	source.Name, source.Width, source.Height, source.Format = 7, 64, 32, &format

	stub := texture.New("wall", "@brick", nil)
	stub.CopyInstance(source)
	assert.Equal(t, uint32(7), stub.Name)
	assert.Equal(t, 64, stub.Width)
	assert.Equal(t, 32, stub.Height)
	require.NotNil(t, stub.Format)
	assert.Equal(t, common.ImageFormatRGBA, *stub.Format)

	*stub.Format = common.ImageFormatR
	assert.Equal(t, common.ImageFormatRGBA, *source.Format, "the stub owns its format")

	stub.CopyInstance(texture.New("plain", "plain.png", nil))
	assert.Nil(t, stub.Format)
}

func TestExternalReference(t *testing.T) {
	ref := texture.ExternalReference("@brick")
	assert.True(t, ref.IsIDReference())
	assert.Equal(t, "brick", ref.ID())
	assert.Equal(t, "", ref.Source())

	src := texture.ExternalReference("assets/../images/brick.png")
	assert.False(t, src.IsIDReference())
	assert.Equal(t, "images/brick.png", src.Source())
	assert.True(t, strings.HasSuffix(src.Resolve("/game"), "brick.png"))
	assert.True(t, texture.ExternalReference("  ").Empty())
}

func TestParameters(t *testing.T) {
	p, err := texture.NewParameters("linear_mipmap_linear", "LINEAR", "REPEAT", "MIRRORED_REPEAT")
	require.NoError(t, err)
	assert.True(t, p.UsesMipmaps())
	assert.Equal(t, backend.WrapMirroredRepeat, p.TexParameters().WrapT)

	_, err = texture.NewParameters("LINEAR", "LINEAR_MIPMAP_LINEAR", "CLAMP", "CLAMP")
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
	_, err = texture.NewParameters("BICUBIC", "LINEAR", "CLAMP", "CLAMP")
	assert.Error(t, err)

	swizzled := texture.DefaultParameters().WithSwizzle(backend.ChannelRed, backend.ChannelRed, backend.ChannelGreen, backend.ChannelAlpha)
	assert.NoError(t, swizzled.Validate())
}

func TestResolution(t *testing.T) {
	r, err := texture.ParseResolution("SEVEN_TWENTY")
	require.NoError(t, err)
	assert.Equal(t, 720, r.Lines())
	r, err = texture.ParseResolution("1080")
	require.NoError(t, err)
	assert.Equal(t, texture.ResolutionHD, r)
	_, err = texture.ParseResolution("1000")
	assert.Error(t, err)

	assert.Equal(t, texture.Resolution720, texture.ResolutionFor(900))
	assert.Equal(t, texture.Resolution240, texture.ResolutionFor(100))

	scale, ok := texture.ResolutionHD.ScaleFor(1000)
	assert.False(t, ok, "within the bias")
	assert.InDelta(t, 0.926, scale, 0.001)
	scale, ok = texture.ResolutionHD.ScaleFor(540)
	assert.True(t, ok)
	assert.InDelta(t, 0.5, scale, 0.001)
}

func TestRegistryBuild(t *testing.T) {
	reg := texture.NewRegistry()
	assert.Equal(t, []string{"dynamic", "texture2d", "tiled", "untextured", "uv"}, reg.Tags())

	d, err := texture.DecodeDescriptor(strings.NewReader(`
id: font
type: tiled
externalReference: fonts/mono.png
resolution: SEVEN_TWENTY
texParameters: [LINEAR_MIPMAP_LINEAR, LINEAR, REPEAT, REPEAT]
mipmap: 4
format: RGBA
framesX: 16
framesY: 8
`))
	require.NoError(t, err)
	tex, err := reg.Build(d)
	require.NoError(t, err)
	assert.Equal(t, texture.KindTiled, tex.Kind())
	assert.Equal(t, 128, tex.FrameCount())
	assert.Equal(t, texture.Resolution720, tex.Resolution)
	assert.Equal(t, 4, tex.Levels)
	assert.Equal(t, backend.FilterLinearMipmapLinear, tex.Parameters.MinFilter)
	require.NotNil(t, tex.Format)
	assert.Equal(t, common.ImageFormatRGBA, *tex.Format)

	d, err = texture.DecodeDescriptor(strings.NewReader(`{"id": "sky", "externalReference": "sky.png", "texParameters": {"min": "LINEAR", "swizzle": ["R", "R", "G", "A"]}}`))
	require.NoError(t, err)
	tex, err = reg.Build(d)
	require.NoError(t, err)
	assert.Equal(t, texture.KindTexture2D, tex.Kind())
	assert.Equal(t, backend.FilterLinear, tex.Parameters.MinFilter)
	assert.Equal(t, backend.FilterNearest, tex.Parameters.MagFilter)
	assert.Equal(t, backend.ChannelGreen, tex.Parameters.Swizzle[2])
}

func TestRegistryBuildRejects(t *testing.T) {
	reg := texture.NewRegistry()
	cases := map[string]*texture.Descriptor{
		"no id":            {ExternalReference: "a.png"},
		"unknown type":     {ID: "a", Type: "cube", ExternalReference: "a.png"},
		"no reference":     {ID: "a"},
		"ref with format":  {ID: "a", ExternalReference: "@b", Format: "RGB"},
		"bad tiles":        {ID: "a", Type: "tiled", ExternalReference: "a.png", FramesX: 2},
		"too many frames":  {ID: "a", Type: "tiled", ExternalReference: "a.png", FramesX: 2, FramesY: 2, Frames: 5},
		"region outside":   {ID: "a", Type: "uv", ExternalReference: "a.png", Regions: []texture.Region{{X: 0.5, Width: 0.6, Height: 1}}},
		"bad format":       {ID: "a", ExternalReference: "a.png", Format: "CMYK"},
		"short init color": {ID: "a", Type: "dynamic", InitColor: []float32{1}},
	}
	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Build(d)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidArgument)
		})
	}

	tex, err := reg.Build(&texture.Descriptor{ID: "blank", Type: "UNTEXTURED"})
	require.NoError(t, err)
	assert.Equal(t, texture.KindUntextured, tex.Kind())
}

func TestRegistryCustomKind(t *testing.T) {
	reg := texture.NewRegistry()
	reg.Register("strip", func(d *texture.Descriptor) (texture.Payload, error) {
		return texture.Tiled{Columns: d.Frames, Rows: 1}, nil
	})
	tex, err := reg.Build(&texture.Descriptor{ID: "walk", Type: "Strip", ExternalReference: "walk.png", Frames: 6})
	require.NoError(t, err)
	assert.Equal(t, 6, tex.FrameCount())
}

func TestRenderTarget(t *testing.T) {
	rt := texture.NewRenderTarget(
		texture.Attachment{Point: texture.AttachmentColor, Scale: [2]float32{0.5, 0.5}},
		texture.Attachment{Point: texture.AttachmentDepth, Format: common.ImageFormatR},
	)
	require.NotEmpty(t, rt.ID)
	assert.NotEqual(t, rt.ID, texture.NewRenderTarget().ID)

	c, ok := rt.Attachment(texture.AttachmentColor)
	require.True(t, ok)
	w, h := c.Size(1280, 720)
	assert.Equal(t, 640, w)
	assert.Equal(t, 360, h)

	tex, err := rt.AttachmentTexture(texture.AttachmentDepth)
	require.NoError(t, err)
	assert.Equal(t, rt.ID+":depth", tex.ID)
	assert.Equal(t, texture.KindDynamic, tex.Kind())
	assert.Equal(t, texture.DefaultParameters(), tex.Parameters)
	assert.Equal(t, common.ImageFormatR, tex.ImageFormat())

	_, err = rt.AttachmentTexture(texture.AttachmentStencil)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
	_, err = (&texture.RenderTarget{}).AttachmentTexture(texture.AttachmentColor)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestImageFactoryLoadLevels(t *testing.T) {
	fsys := fstest.MapFS{"images/brick.png": {Data: pngBytes(t, 64, 32)}}
	f := texture.NewImageFactory(texture.WithFS(fsys), texture.WithImageLogger(log.NewNop()))

	tex := texture.New("brick", "images/brick.png", nil)
	levels, err := f.LoadLevels(tex, 1080)
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, 64, levels[0].Width)
	assert.Equal(t, 64*32*4, levels[0].SizeInBytes())

	levels, err = f.LoadLevels(tex, 540)
	require.NoError(t, err)
	assert.Equal(t, 32, levels[0].Width, "half window height halves the image")
	assert.Equal(t, 16, levels[0].Height)

	tex.Parameters.MinFilter = backend.FilterLinearMipmapNearest
	levels, err = f.LoadLevels(tex, 1080)
	require.NoError(t, err)
	assert.Len(t, levels, 7)
	assert.Equal(t, 1, levels[6].Width)
	assert.Equal(t, 1, levels[6].Height)

	_, err = f.LoadLevels(texture.New("ref", "@brick", nil), 1080)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
	_, err = f.CreateImage("missing.png", common.ImageFormatRGB)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestFlipVertical(t *testing.T) {
	img := &common.BufferImage{Width: 1, Height: 3, Format: common.ImageFormatR, Pixels: []byte{1, 2, 3}}
	texture.FlipVertical(img)
	assert.Equal(t, []byte{3, 2, 1}, img.Pixels)
}

func TestMipChainLimit(t *testing.T) {
	img := &common.BufferImage{Width: 8, Height: 2, Format: common.ImageFormatRGBA, Pixels: make([]byte, 8*2*4)}
	assert.Len(t, texture.MipChain(img, 0), 4)
	assert.Len(t, texture.MipChain(img, 2), 2)
}
