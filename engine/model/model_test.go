package model_test

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend/backendtest"
	"github.com/Carmen-Shannon/nucleus-go/engine/loader"
	"github.com/Carmen-Shannon/nucleus-go/engine/model"
	"github.com/Carmen-Shannon/nucleus-go/engine/pipeline"
	"github.com/Carmen-Shannon/nucleus-go/engine/texture"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quadGLTF = `{
  "asset": {"version": "2.0"},
  "meshes": [{"name": "quad", "primitives": [{
    "attributes": {"POSITION": 0, "NORMAL": 1, "TEXCOORD_0": 2, "_CUSTOM": 2},
    "indices": 3,
    "material": 0
  }]}],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 4, "type": "VEC3", "min": [0, 0, 0], "max": [1, 1, 0]},
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
  "materials": [{"pbrMetallicRoughness": {"baseColorFactor": [1, 0, 0, 1], "baseColorTexture": {"index": 0}}}],
  "textures": [{"source": 0}],
  "images": [{"uri": "base.png"}]
}`

func quadDocument(t *testing.T) *loader.Document {
	t.Helper()
	var buf bytes.Buffer
	for _, v := range []float32{
		0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0,
		0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1,
		0, 0, 1, 0, 1, 1, 0, 1,
	} {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, []uint16{0, 1, 2, 0, 2, 3}))
	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	doc, err := loader.Parse([]byte(fmt.Sprintf(quadGLTF, uri)), "quad.gltf")
	require.NoError(t, err)
	require.NoError(t, loader.Resolve(doc))
	require.NoError(t, loader.LoadBuffers(nil, doc))
	return doc
}

func TestFromDocument(t *testing.T) {
	doc := quadDocument(t)
	meshes, err := model.FromDocument(doc, nil, false)
	require.NoError(t, err)
	require.Len(t, meshes, 1)
	assert.Equal(t, "quad", meshes[0].Name())
	assert.Same(t, doc, meshes[0].Document())

	prims := meshes[0].Primitives()
	require.Len(t, prims, 1)
	p := prims[0]
	assert.True(t, p.Indexed())
	assert.Equal(t, 6, p.IndexCount())
	assert.Equal(t, 4, p.VertexCount())
	count, err := p.PrimitiveCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	m := p.Material()
	assert.Equal(t, float32(1), m.BaseColor[0])
	assert.Equal(t, float32(0), m.BaseColor[1])
	assert.Empty(t, m.Textures)
}

func TestClientVertexSources(t *testing.T) {
	doc := quadDocument(t)
	p, err := model.NewPrimitive(doc.Primitives()[0], false)
	require.NoError(t, err)

	sources := p.VertexSources()
	require.Len(t, sources, 3)

	pos := sources[pipeline.AttributePosition]
	assert.Zero(t, pos.Buffer)
	assert.Len(t, pos.Data, 48)
	assert.Equal(t, 3, pos.Components)

	normal, uv := sources[pipeline.AttributeNormal], sources[pipeline.AttributeTexCoord0]
	assert.Equal(t, 20, normal.Stride)
	assert.Equal(t, 20, uv.Stride)
	assert.ElementsMatch(t, []int{0, 12}, []int{normal.Offset, uv.Offset})
	assert.Len(t, uv.Data, 80)

	api := backendtest.New()
	require.NoError(t, p.Draw(api))
	require.Len(t, api.Draws, 1)
	assert.True(t, api.Draws[0].Indexed)
	assert.Equal(t, 6, api.Draws[0].Count)
}

func TestVBOVertexSources(t *testing.T) {
	doc := quadDocument(t)
	p, err := model.NewPrimitive(doc.Primitives()[0], true)
	require.NoError(t, err)

	// without a VBO the client data is used
	assert.Zero(t, p.VertexSources()[pipeline.AttributePosition].Buffer)

	doc.Buffers[0].VBO = 7
	sources := p.VertexSources()
	assert.Equal(t, backend.VertexSource{Buffer: 7, Components: 3, Offset: 0}, sources[pipeline.AttributePosition])
	assert.Equal(t, backend.VertexSource{Buffer: 7, Components: 3, Offset: 48}, sources[pipeline.AttributeNormal])
	assert.Equal(t, backend.VertexSource{Buffer: 7, Components: 2, Offset: 96}, sources[pipeline.AttributeTexCoord0])
}

func TestMaterialTextures(t *testing.T) {
	doc := quadDocument(t)
	p, err := model.NewPrimitive(doc.Primitives()[0], false)
	require.NoError(t, err)
	require.Len(t, p.TextureSlots(), 1)

	tex := texture.New(doc.Images[0].Key, "base.png", nil)
	doc.Images[0].Texture = tex
	assert.Empty(t, p.Material().Textures, "texture without a GPU name is not bound")

	tex.Name = 5
	assert.Equal(t, uint32(5), p.Material().Textures[pipeline.SamplerBaseColor])

	p.SetTexture(pipeline.SamplerBaseColor, 9)
	assert.Equal(t, uint32(9), p.Material().Textures[pipeline.SamplerBaseColor])
	p.SetTexture(pipeline.SamplerBaseColor, 0)
	assert.Equal(t, uint32(5), p.Material().Textures[pipeline.SamplerBaseColor])
}

func TestGeometryPrimitive(t *testing.T) {
	p, err := model.NewGeometryPrimitive(model.Geometry{
		Mode: backend.DrawModeTriangles,
		Attributes: map[string]model.Attribute{
			pipeline.AttributePosition: {Components: 3, Data: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}},
			pipeline.AttributeColor0:   {Components: 4, Data: make([]float32, 12)},
		},
	}, pipeline.Material{Textures: map[string]uint32{"uMask": 3}})
	require.NoError(t, err)
	assert.False(t, p.Indexed())
	assert.Nil(t, p.Source())
	assert.Len(t, p.VertexSources(), 2)
	assert.Equal(t, uint32(3), p.Material().Textures["uMask"])
	lo, hi, ok := p.Bounds()
	assert.True(t, ok)
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, lo)
	assert.Equal(t, mgl32.Vec3{1, 1, 0}, hi)

	api := backendtest.New()
	require.NoError(t, p.Draw(api))
	require.Len(t, api.Draws, 1)
	assert.False(t, api.Draws[0].Indexed)
	assert.Equal(t, 3, api.Draws[0].Count)
}

func TestPrimitiveBoundsFromAccessor(t *testing.T) {
	doc := quadDocument(t)
	src := doc.Meshes[0].Primitives[0]
	p, err := model.NewPrimitive(&src, false)
	require.NoError(t, err)
	lo, hi, ok := p.Bounds()
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, lo)
	assert.Equal(t, mgl32.Vec3{1, 1, 0}, hi)

	src.Accessors[loader.AttributePosition].Min = nil
	p, err = model.NewPrimitive(&src, false)
	require.NoError(t, err)
	_, _, ok = p.Bounds()
	assert.False(t, ok, "accessors without min and max give no bounds")
}

func TestGeometryPrimitiveRejects(t *testing.T) {
	_, err := model.NewGeometryPrimitive(model.Geometry{Mode: backend.DrawModePoints}, pipeline.Material{})
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	_, err = model.NewGeometryPrimitive(model.Geometry{
		Mode: backend.DrawModeTriangles,
		Attributes: map[string]model.Attribute{
			pipeline.AttributePosition: {Components: 3, Data: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}},
		},
		Indices: []uint32{0, 1, 3},
	}, pipeline.Material{})
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestAttributeName(t *testing.T) {
	name, ok := model.AttributeName(loader.AttributeTexCoord0)
	assert.True(t, ok)
	assert.Equal(t, pipeline.AttributeTexCoord0, name)

	_, ok = model.AttributeName("_CUSTOM")
	assert.False(t, ok)
	assert.Equal(t, pipeline.SamplerNormal, model.SamplerName(loader.SlotNormal))
}
