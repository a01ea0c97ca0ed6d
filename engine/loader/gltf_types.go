// gltf_types.go contains the glTF 2.0 document structures. JSON fields map directly to the glTF schema;
// fields tagged `json:"-"` are filled by Resolve, LoadBuffers and the asset cache.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html
package loader

import (
	"github.com/Carmen-Shannon/nucleus-go/engine/backend"
	"github.com/Carmen-Shannon/nucleus-go/engine/texture"
)

// Document is the root of a glTF document.
type Document struct {
	Asset       Asset        `json:"asset"`
	Scene       *int         `json:"scene,omitempty"`
	Scenes      []Scene      `json:"scenes,omitempty"`
	Nodes       []Node       `json:"nodes,omitempty"`
	Meshes      []Mesh       `json:"meshes,omitempty"`
	Accessors   []Accessor   `json:"accessors,omitempty"`
	BufferViews []BufferView `json:"bufferViews,omitempty"`
	Buffers     []Buffer     `json:"buffers,omitempty"`
	Materials   []Material   `json:"materials,omitempty"`
	Textures    []Texture    `json:"textures,omitempty"`
	Images      []Image      `json:"images,omitempty"`
	Samplers    []Sampler    `json:"samplers,omitempty"`

	ExtensionsUsed     []string `json:"extensionsUsed,omitempty"`
	ExtensionsRequired []string `json:"extensionsRequired,omitempty"`

	// Filename is the cache key of the document.
	Filename string `json:"-"`

	// Dir is the directory relative URIs are resolved against, "" for the source root.
	Dir string `json:"-"`

	// Generated holds buffers created after parsing, such as tangent space data. They are kept apart from
	// Buffers so resolved pointers into Buffers stay valid.
	Generated []*Buffer `json:"-"`

	glbChunk []byte
	resolved bool
}

// AllBuffers returns the parsed buffers followed by the generated ones.
func (d *Document) AllBuffers() []*Buffer {
	all := make([]*Buffer, 0, len(d.Buffers)+len(d.Generated))
	for i := range d.Buffers {
		all = append(all, &d.Buffers[i])
	}
	return append(all, d.Generated...)
}

// Resolved reports whether Resolve has run.
func (d *Document) Resolved() bool {
	return d.resolved
}

// Asset holds document metadata.
type Asset struct {
	Version    string `json:"version"`
	MinVersion string `json:"minVersion,omitempty"`
	Generator  string `json:"generator,omitempty"`
	Copyright  string `json:"copyright,omitempty"`
}

// Scene is a set of root nodes.
type Scene struct {
	Name  string `json:"name,omitempty"`
	Nodes []int  `json:"nodes,omitempty"`

	Roots []*Node `json:"-"`
}

// Node is one element of the node hierarchy.
type Node struct {
	Name        string       `json:"name,omitempty"`
	Children    []int        `json:"children,omitempty"`
	Mesh        *int         `json:"mesh,omitempty"`
	Matrix      *[16]float32 `json:"matrix,omitempty"`
	Translation *[3]float32  `json:"translation,omitempty"`
	Rotation    *[4]float32  `json:"rotation,omitempty"`
	Scale       *[3]float32  `json:"scale,omitempty"`

	ChildNodes []*Node `json:"-"`
	MeshRef    *Mesh   `json:"-"`
}

// Mesh is a set of primitives.
type Mesh struct {
	Name       string      `json:"name,omitempty"`
	Primitives []Primitive `json:"primitives"`
}

// Attribute semantics.
const (
	AttributePosition  = "POSITION"
	AttributeNormal    = "NORMAL"
	AttributeTangent   = "TANGENT"
	AttributeBitangent = "BITANGENT"
	AttributeTexCoord0 = "TEXCOORD_0"
	AttributeTexCoord1 = "TEXCOORD_1"
	AttributeColor0    = "COLOR_0"
)

// Primitive modes.
const (
	ModePoints = iota
	ModeLines
	ModeLineLoop
	ModeLineStrip
	ModeTriangles
	ModeTriangleStrip
	ModeTriangleFan
)

// Primitive is one draw of a mesh.
type Primitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    *int           `json:"indices,omitempty"`
	Material   *int           `json:"material,omitempty"`
	Mode       *int           `json:"mode,omitempty"`

	// Accessors maps attribute semantics to resolved accessors.
	Accessors   map[string]*Accessor `json:"-"`
	IndexData   *Accessor            `json:"-"`
	MaterialRef *Material            `json:"-"`
}

// DrawMode returns the primitive topology, triangles when unset.
func (p *Primitive) DrawMode() backend.DrawMode {
	mode := ModeTriangles
	if p.Mode != nil {
		mode = *p.Mode
	}
	switch mode {
	case ModePoints:
		return backend.DrawModePoints
	case ModeLines:
		return backend.DrawModeLines
	case ModeLineLoop:
		return backend.DrawModeLineLoop
	case ModeLineStrip:
		return backend.DrawModeLineStrip
	case ModeTriangleStrip:
		return backend.DrawModeTriangleStrip
	case ModeTriangleFan:
		return backend.DrawModeTriangleFan
	default:
		return backend.DrawModeTriangles
	}
}

// NeedsTBN reports whether the primitive samples a normal map and so needs tangent space vectors.
func (p *Primitive) NeedsTBN() bool {
	if p.MaterialRef == nil || p.MaterialRef.NormalTexture == nil {
		return false
	}
	_, hasNormal := p.Attributes[AttributeNormal]
	return hasNormal && p.DrawMode() == backend.DrawModeTriangles
}

// Component types.
const (
	ComponentByte          = 5120
	ComponentUnsignedByte  = 5121
	ComponentShort         = 5122
	ComponentUnsignedShort = 5123
	ComponentUnsignedInt   = 5125
	ComponentFloat         = 5126
)

// Accessor types.
const (
	TypeScalar = "SCALAR"
	TypeVec2   = "VEC2"
	TypeVec3   = "VEC3"
	TypeVec4   = "VEC4"
	TypeMat2   = "MAT2"
	TypeMat3   = "MAT3"
	TypeMat4   = "MAT4"
)

// Accessor describes typed data inside a buffer view.
type Accessor struct {
	Name          string    `json:"name,omitempty"`
	BufferView    *int      `json:"bufferView,omitempty"`
	ByteOffset    int       `json:"byteOffset,omitempty"`
	ComponentType int       `json:"componentType"`
	Normalized    bool      `json:"normalized,omitempty"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	Max           []float32 `json:"max,omitempty"`
	Min           []float32 `json:"min,omitempty"`
	Sparse        *struct {
		Count int `json:"count"`
	} `json:"sparse,omitempty"`

	View *BufferView `json:"-"`
}

// Components returns the component count of one element.
func (a *Accessor) Components() int {
	return typeComponentCount(a.Type)
}

// ElementSize returns the packed byte size of one element.
func (a *Accessor) ElementSize() int {
	return componentTypeSize(a.ComponentType) * a.Components()
}

// Buffer view targets.
const (
	TargetArrayBuffer        = 34962
	TargetElementArrayBuffer = 34963
)

// BufferView is a byte range of a buffer.
type BufferView struct {
	Name       string `json:"name,omitempty"`
	Buffer     int    `json:"buffer"`
	ByteOffset int    `json:"byteOffset,omitempty"`
	ByteLength int    `json:"byteLength"`
	ByteStride *int   `json:"byteStride,omitempty"`
	Target     *int   `json:"target,omitempty"`

	Buf *Buffer `json:"-"`
}

// Stride returns the byte stride, 0 when tightly packed.
func (v *BufferView) Stride() int {
	if v.ByteStride == nil {
		return 0
	}
	return *v.ByteStride
}

// Buffer is a binary payload. Data is nil until LoadBuffers runs.
type Buffer struct {
	Name       string `json:"name,omitempty"`
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`

	Data []byte `json:"-"`

	// VBO is the GPU buffer name, 0 when the buffer is used from client memory.
	VBO uint32 `json:"-"`

	// Target is the GPU binding point the buffer is uploaded to.
	Target backend.BufferTarget `json:"-"`
}

// Loaded reports whether the payload is present.
func (b *Buffer) Loaded() bool {
	return len(b.Data) >= b.ByteLength && b.Data != nil
}

// Material is a PBR metallic-roughness material.
type Material struct {
	Name                 string                `json:"name,omitempty"`
	PbrMetallicRoughness *PbrMetallicRoughness `json:"pbrMetallicRoughness,omitempty"`
	NormalTexture        *NormalTextureInfo    `json:"normalTexture,omitempty"`
	OcclusionTexture     *OcclusionTextureInfo `json:"occlusionTexture,omitempty"`
	EmissiveTexture      *TextureInfo          `json:"emissiveTexture,omitempty"`
	EmissiveFactor       *[3]float32           `json:"emissiveFactor,omitempty"`
	AlphaMode            string                `json:"alphaMode,omitempty"`
	AlphaCutoff          *float32              `json:"alphaCutoff,omitempty"`
	DoubleSided          bool                  `json:"doubleSided,omitempty"`
}

// BaseColor returns the base color factor, white when unset.
func (m *Material) BaseColor() [4]float32 {
	if m.PbrMetallicRoughness != nil && m.PbrMetallicRoughness.BaseColorFactor != nil {
		return *m.PbrMetallicRoughness.BaseColorFactor
	}
	return [4]float32{1, 1, 1, 1}
}

// MetallicRoughness returns the metallic and roughness factors, both 1 when unset.
func (m *Material) MetallicRoughness() [2]float32 {
	mr := [2]float32{1, 1}
	if pbr := m.PbrMetallicRoughness; pbr != nil {
		if pbr.MetallicFactor != nil {
			mr[0] = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			mr[1] = *pbr.RoughnessFactor
		}
	}
	return mr
}

// PbrMetallicRoughness is the metallic-roughness material model.
type PbrMetallicRoughness struct {
	BaseColorFactor          *[4]float32  `json:"baseColorFactor,omitempty"`
	BaseColorTexture         *TextureInfo `json:"baseColorTexture,omitempty"`
	MetallicFactor           *float32     `json:"metallicFactor,omitempty"`
	RoughnessFactor          *float32     `json:"roughnessFactor,omitempty"`
	MetallicRoughnessTexture *TextureInfo `json:"metallicRoughnessTexture,omitempty"`
}

// TextureInfo references a texture.
type TextureInfo struct {
	Index    int `json:"index"`
	TexCoord int `json:"texCoord,omitempty"`

	Ref *Texture `json:"-"`
}

// NormalTextureInfo references a normal map.
type NormalTextureInfo struct {
	TextureInfo
	Scale *float32 `json:"scale,omitempty"`
}

// OcclusionTextureInfo references an occlusion map.
type OcclusionTextureInfo struct {
	TextureInfo
	Strength *float32 `json:"strength,omitempty"`
}

// Texture pairs an image with a sampler.
type Texture struct {
	Name    string `json:"name,omitempty"`
	Sampler *int   `json:"sampler,omitempty"`
	Source  *int   `json:"source,omitempty"`

	Image      *Image   `json:"-"`
	SamplerRef *Sampler `json:"-"`
}

// Image is a texture image, either external, a data URI or a buffer view.
type Image struct {
	Name       string `json:"name,omitempty"`
	URI        string `json:"uri,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	BufferView *int   `json:"bufferView,omitempty"`

	View *BufferView `json:"-"`

	// Key identifies the image in the shared image cache: the resolved path, or the document name plus the
	// image index for embedded images.
	Key string `json:"-"`

	// Texture is the uploaded texture, set by the asset cache when the document's assets are loaded.
	Texture *texture.Texture `json:"-"`
}

// Sampler filter and wrap constants.
const (
	FilterNearest              = 9728
	FilterLinear               = 9729
	FilterNearestMipmapNearest = 9984
	FilterLinearMipmapNearest  = 9985
	FilterNearestMipmapLinear  = 9986
	FilterLinearMipmapLinear   = 9987

	WrapClampToEdge    = 33071
	WrapMirroredRepeat = 33648
	WrapRepeat         = 10497
)

// Sampler holds texture sampling parameters.
type Sampler struct {
	Name      string `json:"name,omitempty"`
	MagFilter *int   `json:"magFilter,omitempty"`
	MinFilter *int   `json:"minFilter,omitempty"`
	WrapS     *int   `json:"wrapS,omitempty"`
	WrapT     *int   `json:"wrapT,omitempty"`
}

// GLB container constants.
const (
	glbMagic     = 0x46546C67
	glbVersion   = 2
	glbChunkJSON = 0x4E4F534A
	glbChunkBIN  = 0x004E4942
)

type glbHeader struct {
	Magic   uint32
	Version uint32
	Length  uint32
}

type glbChunkHeader struct {
	ChunkLength uint32
	ChunkType   uint32
}

func componentTypeSize(componentType int) int {
	switch componentType {
	case ComponentByte, ComponentUnsignedByte:
		return 1
	case ComponentShort, ComponentUnsignedShort:
		return 2
	case ComponentUnsignedInt, ComponentFloat:
		return 4
	default:
		return 0
	}
}

func typeComponentCount(accessorType string) int {
	switch accessorType {
	case TypeScalar:
		return 1
	case TypeVec2:
		return 2
	case TypeVec3:
		return 3
	case TypeVec4, TypeMat2:
		return 4
	case TypeMat3:
		return 9
	case TypeMat4:
		return 16
	default:
		return 0
	}
}
