package assets_test

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/common/log"
	"github.com/Carmen-Shannon/nucleus-go/engine/assets"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend/backendtest"
	"github.com/Carmen-Shannon/nucleus-go/engine/loader"
	"github.com/Carmen-Shannon/nucleus-go/engine/shader"
	"github.com/Carmen-Shannon/nucleus-go/engine/texture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vertexSource = `#version 330 core
in vec3 aPosition;
uniform mat4 uMVPMatrix;
void main() {}`

const fragmentSource = `#version 330 core
uniform vec4 uBaseColor;
void main() {}`

const quadTemplate = `{
  "asset": {"version": "2.0"},
  "meshes": [{"primitives": [{
    "attributes": {"POSITION": 0, "NORMAL": 1, "TEXCOORD_0": 2},
    "indices": 3,
    "material": 0
  }]}],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 4, "type": "VEC3"},
    {"bufferView": 1, "componentType": 5126, "count": 4, "type": "VEC3"},
    {"bufferView": 2, "componentType": 5126, "count": 4, "type": "VEC2"},
    {"bufferView": 3, "componentType": 5123, "count": 6, "type": "SCALAR"}
  ],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 48},
    {"buffer": 0, "byteOffset": 48, "byteLength": 48},
    {"buffer": 0, "byteOffset": 96, "byteLength": 32},
    {"buffer": 0, "byteOffset": 128, "byteLength": 12}
  ],
  "buffers": [{"byteLength": 140, "uri": %q}],
  "materials": [{
    "pbrMetallicRoughness": {"baseColorTexture": {"index": 0}},
    "normalTexture": {"index": 1}
  }],
  "textures": [{"source": 0}, {"source": 1}],
  "images": [{"uri": "textures/base.png"}, {"uri": %q}]
}`

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x * 40), G: uint8(y * 40), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func quadBuffer() []byte {
	var buf bytes.Buffer
	write := func(vals ...float32) {
		for _, v := range vals {
			_ = binary.Write(&buf, binary.LittleEndian, math.Float32bits(v))
		}
	}
	write(0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0)
	write(0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1)
	write(0, 0, 1, 0, 1, 1, 0, 1)
	for _, i := range []uint16{0, 1, 2, 0, 2, 3} {
		_ = binary.Write(&buf, binary.LittleEndian, i)
	}
	return buf.Bytes()
}

func testFS(t *testing.T) fstest.MapFS {
	t.Helper()
	bufferURI := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(quadBuffer())
	normalURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 2, 2))
	return fstest.MapFS{
		"models/quad.gltf":         {Data: []byte(fmt.Sprintf(quadTemplate, bufferURI, normalURI))},
		"models/textures/base.png": {Data: pngBytes(t, 4, 4)},
		"textures/wood.png":        {Data: pngBytes(t, 8, 4)},
	}
}

func newAssets(t *testing.T, api *backendtest.Fake, options ...assets.AssetsBuilderOption) assets.Assets {
	t.Helper()
	fsys := testFS(t)
	options = append([]assets.AssetsBuilderOption{
		assets.WithLogger(log.NewNop()),
		assets.WithLoader(loader.NewLoader(loader.WithFS(fsys))),
	}, options...)
	a, err := assets.New(backend.NewBackend(backend.VersionGLES30, api, log.NewNop()), options...)
	require.NoError(t, err)
	t.Cleanup(a.Destroy)
	return a
}

func newShader(t *testing.T, key string) shader.Shader {
	t.Helper()
	s, err := shader.NewShader(backend.LanguageGLSL,
		shader.WithKey(key),
		shader.WithStage(backend.StageVertex, vertexSource),
		shader.WithStage(backend.StageFragment, fragmentSource),
	)
	require.NoError(t, err)
	return s
}

func TestNewRejectsUnknownVersion(t *testing.T) {
	_, err := assets.New(backend.NewBackend(backend.VersionUnknown, backendtest.New(), log.NewNop()))
	assert.ErrorIs(t, err, common.ErrConfiguration)

	_, err = assets.New(nil)
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestGetPipelineIsIdempotent(t *testing.T) {
	api := backendtest.New()
	a := newAssets(t, api)
	s := newShader(t, "flat")

	first, err := a.GetPipeline(s)
	require.NoError(t, err)
	for range 5 {
		again, err := a.GetPipeline(s)
		require.NoError(t, err)
		assert.Same(t, first, again)
	}
	assert.Equal(t, 1, api.CompileCount())

	stats := a.Stats()
	assert.Equal(t, uint64(1), stats.PipelineMisses)
	assert.Equal(t, uint64(5), stats.PipelineHits)
	assert.Equal(t, 1, stats.Pipelines)
}

func TestGetPipelineConcurrent(t *testing.T) {
	api := backendtest.New()
	a := newAssets(t, api)
	s := newShader(t, "flat")

	const n = 32
	results := make([]any, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := a.GetPipeline(s)
			assert.NoError(t, err)
			results[i] = p
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, api.CompileCount())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestFailedCompileIsNotCached(t *testing.T) {
	api := backendtest.New()
	a := newAssets(t, api)
	s := newShader(t, "broken")

	api.CompileErr = errors.New("link failed")
	_, err := a.GetPipeline(s)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrBackend)
	assert.True(t, common.IsRetryable(err))

	api.CompileErr = nil
	p, err := a.GetPipeline(s)
	require.NoError(t, err)
	assert.NotNil(t, p)
	assert.Equal(t, 2, api.CompileCount())
}

func TestDeletePipeline(t *testing.T) {
	api := backendtest.New()
	a := newAssets(t, api)
	p, err := a.GetPipeline(newShader(t, "flat"))
	require.NoError(t, err)

	assert.True(t, a.DeletePipeline("flat"))
	assert.False(t, a.DeletePipeline("flat"))
	assert.True(t, p.Destroyed())
	assert.Len(t, api.CallsWithPrefix("DeleteProgram"), 1)
}

func TestGetTextureFromSource(t *testing.T) {
	api := backendtest.New()
	a := newAssets(t, api)

	tex, err := a.GetTexture(nil, "textures/wood.png")
	require.NoError(t, err)
	assert.True(t, tex.Uploaded())
	assert.Equal(t, 8, tex.Width)
	assert.Equal(t, 4, tex.Height)

	again, err := a.GetTexture(nil, "textures/wood.png")
	require.NoError(t, err)
	assert.Same(t, tex, again)
	assert.Len(t, api.CallsWithPrefix("UploadTexture"), 1)

	byID, err := a.GetTexture(nil, "@textures/wood.png")
	require.NoError(t, err)
	assert.Same(t, tex, byID)

	uploaded := api.Textures[tex.Name]
	assert.Equal(t, common.ImageFormatRGBA, uploaded.Format)
	require.Len(t, uploaded.Levels, 1)
	assert.Len(t, uploaded.Levels[0], 8*4*4)
}

func TestGetTextureErrors(t *testing.T) {
	a := newAssets(t, backendtest.New())

	_, err := a.GetTexture(nil, "@missing")
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
	assert.ErrorIs(t, err, common.ErrDanglingReference)

	_, err = a.GetTexture(nil, "")
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	_, err = a.GetTexture(nil, "textures/none.png")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.True(t, common.IsRetryable(err))
	assert.Nil(t, a.Texture("textures/none.png"), "failed loads are not cached")
}

func TestIDReference(t *testing.T) {
	a := newAssets(t, backendtest.New())
	src, err := a.GetTexture(nil, "textures/wood.png")
	require.NoError(t, err)

	stub := texture.New("wood-copy", "@textures/wood.png", texture.Dynamic{})
	got, err := a.GetTextureFromDescriptor(nil, stub)
	require.NoError(t, err)
	assert.Same(t, stub, got)
	assert.Equal(t, src.Name, stub.Name)
	assert.Equal(t, src.Width, stub.Width)
	assert.Equal(t, src.ImageFormat(), stub.ImageFormat())

	format := common.ImageFormatRGB
	bad := texture.New("bad", "@textures/wood.png", nil)
	bad.Format = &format
	_, err = a.IDReference(bad)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	_, err = a.IDReference(texture.New("dangling", "@nothing", nil))
	assert.ErrorIs(t, err, common.ErrDanglingReference)
}

func TestRenderTargetTexture(t *testing.T) {
	api := backendtest.New()
	a := newAssets(t, api)
	target := &texture.RenderTarget{
		ID: "shadow",
		Attachments: []texture.Attachment{
			{Point: texture.AttachmentColor, Scale: [2]float32{0.5, 0.5}, Format: common.ImageFormatRGBA},
			{Point: texture.AttachmentDepth, Format: common.ImageFormatR},
		},
	}

	colorTex, err := a.CreateRenderTargetTexture(target, texture.AttachmentColor, 800, 600)
	require.NoError(t, err)
	assert.Equal(t, 400, colorTex.Width)
	assert.Equal(t, 300, colorTex.Height)
	assert.Equal(t, texture.KindDynamic, colorTex.Kind())

	params := api.Parameters[colorTex.Name]
	assert.Equal(t, backend.FilterNearest, params.MinFilter)
	assert.Equal(t, backend.WrapClamp, params.WrapS)
	assert.Nil(t, api.Textures[colorTex.Name].Levels)

	again, err := a.CreateRenderTargetTexture(target, texture.AttachmentColor, 1024, 768)
	require.NoError(t, err)
	assert.Same(t, colorTex, again)

	depth, err := a.CreateRenderTargetTexture(target, texture.AttachmentDepth, 800, 600)
	require.NoError(t, err)
	assert.True(t, api.Textures[depth.Name].Depth)
	assert.Same(t, depth, a.Texture(target.AttachmentID(texture.AttachmentDepth)))

	_, err = a.CreateRenderTargetTexture(&texture.RenderTarget{}, texture.AttachmentColor, 800, 600)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
	_, err = a.CreateRenderTargetTexture(target, texture.AttachmentStencil, 800, 600)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestLoadGLTFAssets(t *testing.T) {
	api := backendtest.New()
	a := newAssets(t, api)

	doc, err := a.LoadGLTF(nil, "models/quad.gltf")
	require.NoError(t, err)

	prim := doc.Primitives()[0]
	require.NotNil(t, prim.Accessors[loader.AttributeTangent])
	require.NotNil(t, prim.Accessors[loader.AttributeBitangent])

	all := doc.AllBuffers()
	require.Len(t, all, 2, "source buffer plus generated tangent space")
	var attributeBytes, vboBytes int
	for _, b := range all {
		require.NotZero(t, b.VBO)
		assert.Equal(t, backend.TargetArrayBuffer, b.Target)
		attributeBytes += b.ByteLength
		vboBytes += len(api.Buffers[b.VBO])
	}
	assert.GreaterOrEqual(t, vboBytes, attributeBytes)
	assert.Equal(t, 140+96, vboBytes)

	base, normal := doc.Images[0].Texture, doc.Images[1].Texture
	require.NotNil(t, base)
	require.NotNil(t, normal)
	assert.Equal(t, common.ColorModelSRGB, base.ColorModel)
	assert.Equal(t, common.ImageFormatRGB, normal.ImageFormat())
	assert.Same(t, base, a.Texture("models/textures/base.png"))

	require.NoError(t, a.LoadGLTFAssets(nil, doc))
	assert.Len(t, api.CallsWithPrefix("BufferData"), 2, "second load is a no-op")
	assert.Equal(t, 1, a.Stats().Documents)
}

func TestDeleteGLTFAssets(t *testing.T) {
	api := backendtest.New()
	l := loader.NewLoader(loader.WithFS(testFS(t)))
	a := newAssets(t, api, assets.WithLoader(l))

	doc, err := a.LoadGLTF(nil, "models/quad.gltf")
	require.NoError(t, err)
	vbos := []uint32{doc.AllBuffers()[0].VBO, doc.AllBuffers()[1].VBO}

	a.DeleteGLTFAssets(doc)
	assert.Equal(t, []string{fmt.Sprintf("DeleteBuffers:%v", vbos)}, api.CallsWithPrefix("DeleteBuffers"))
	assert.Len(t, api.CallsWithPrefix("DeleteTextures"), 1)
	assert.Empty(t, api.Textures)
	assert.Nil(t, doc.Images[0].Texture)
	assert.Nil(t, a.Texture("models/textures/base.png"))
	assert.Nil(t, l.Get("models/quad.gltf"))
	assert.False(t, doc.Buffers[0].Loaded())
}

func TestFailedGLTFLoadReleasesTextures(t *testing.T) {
	api := backendtest.New()
	l := loader.NewLoader(loader.WithFS(testFS(t)))
	a := newAssets(t, api, assets.WithLoader(l))
	doc, err := l.Load("models/quad.gltf")
	require.NoError(t, err)

	api.BufferErr = errors.New("out of memory")
	require.Error(t, a.LoadGLTFAssets(nil, doc))
	assert.Zero(t, a.Stats().Textures)
	assert.Zero(t, a.Stats().Documents)
	assert.Empty(t, api.Textures)
	assert.Nil(t, doc.Images[0].Texture)

	api.BufferErr = nil
	require.NoError(t, a.LoadGLTFAssets(nil, doc))
	assert.Equal(t, 2, a.Stats().Textures)
	assert.Len(t, doc.Generated, 1, "tangent space is computed once")

	a.DeleteGLTFAssets(doc)
	assert.Zero(t, a.Stats().Textures)
	assert.Empty(t, api.Textures)
	assert.Empty(t, api.Buffers)
}

func TestLoadGLTFAssetsConcurrent(t *testing.T) {
	api := backendtest.New()
	l := loader.NewLoader(loader.WithFS(testFS(t)))
	a := newAssets(t, api, assets.WithLoader(l))
	doc, err := l.Load("models/quad.gltf")
	require.NoError(t, err)

	errs := make([]error, 8)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = a.LoadGLTFAssets(nil, doc)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	assert.Len(t, api.CallsWithPrefix("BufferData"), 2, "one VBO per buffer")
	assert.Len(t, doc.Generated, 1)
	assert.Len(t, api.CallsWithPrefix("UploadTexture"), 2)
	assert.Equal(t, 1, a.Stats().Documents)

	a.DeleteGLTFAssets(doc)
	assert.Empty(t, api.Textures)
}

func TestGLTFKeepsTexturesLoadedElsewhere(t *testing.T) {
	api := backendtest.New()
	a := newAssets(t, api)

	tex, err := a.GetTexture(nil, "models/textures/base.png")
	require.NoError(t, err)
	doc, err := a.LoadGLTF(nil, "models/quad.gltf")
	require.NoError(t, err)
	assert.Same(t, tex, doc.Images[0].Texture)
	assert.Len(t, api.CallsWithPrefix("UploadTexture"), 2)

	a.DeleteGLTFAssets(doc)
	assert.Same(t, tex, a.Texture("models/textures/base.png"))
	assert.True(t, tex.Uploaded())
	assert.Len(t, api.Textures, 1)
	assert.Contains(t, api.Textures, tex.Name)
}

func TestDestroyOrder(t *testing.T) {
	api := backendtest.New()
	a := newAssets(t, api)
	_, err := a.GetPipeline(newShader(t, "flat"))
	require.NoError(t, err)
	_, err = a.GetTexture(nil, "textures/wood.png")
	require.NoError(t, err)

	a.Destroy()
	a.Destroy()

	var order []string
	for _, c := range api.Calls {
		if len(c) > 6 && c[:6] == "Delete" {
			order = append(order, c)
		}
	}
	require.Len(t, order, 2)
	assert.Contains(t, order[0], "DeleteProgram")
	assert.Contains(t, order[1], "DeleteTextures")

	_, err = a.GetPipeline(newShader(t, "flat"))
	assert.ErrorIs(t, err, common.ErrDestroyed)
}

func TestMarkStale(t *testing.T) {
	api := backendtest.New()
	a := newAssets(t, api)
	s := newShader(t, "flat")
	first, err := a.GetPipeline(s)
	require.NoError(t, err)
	tex, err := a.GetTexture(nil, "textures/wood.png")
	require.NoError(t, err)

	a.MarkStale()
	assert.Empty(t, api.CallsWithPrefix("Delete"), "stale objects are not deleted")
	assert.False(t, tex.Uploaded())
	assert.Zero(t, a.Stats().Textures)

	second, err := a.GetPipeline(s)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, 2, api.CompileCount())

	reloaded, err := a.GetTexture(nil, "textures/wood.png")
	require.NoError(t, err)
	assert.True(t, reloaded.Uploaded())
}
