package backend

import (
	"github.com/Carmen-Shannon/nucleus-go/common"
)

// Stage is a programmable pipeline stage.
type Stage int

const (
	StageVertex Stage = iota
	StageFragment
	StageCompute
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return "unknown"
	}
}

// Language is the source language of a program's stages.
type Language int

const (
	LanguageGLSL Language = iota
	LanguageWGSL
)

// ProgramSources is everything a backend needs to compile and link one program.
type ProgramSources struct {
	Key         string
	Language    Language
	Stages      map[Stage]string
	EntryPoints map[Stage]string

	// Topology, depth and blending are baked into the program on explicit APIs.
	Mode  DrawMode
	Depth bool
	Blend bool
}

// VariableKind separates vertex inputs from uniforms.
type VariableKind int

const (
	VariableAttribute VariableKind = iota
	VariableUniform
	VariableSampler
)

// DataType is the element type of a shader variable.
type DataType int

const (
	TypeFloat DataType = iota
	TypeVec2
	TypeVec3
	TypeVec4
	TypeMat3
	TypeMat4
	TypeInt
	TypeSampler2D
)

// Components returns the float count of one element of the type.
func (t DataType) Components() int {
	switch t {
	case TypeFloat, TypeInt, TypeSampler2D:
		return 1
	case TypeVec2:
		return 2
	case TypeVec3:
		return 3
	case TypeVec4:
		return 4
	case TypeMat3:
		return 9
	case TypeMat4:
		return 16
	default:
		return 0
	}
}

// Variable is a reflected shader input.
type Variable struct {
	Name     string
	Kind     VariableKind
	Type     DataType
	Location int32

	// Size is the array length, 1 for scalars.
	Size int32

	// Binding and Offset locate uniforms inside a bound uniform block on explicit APIs.
	Binding uint32
	Offset  uint64
}

// Program is a linked GPU program.
type Program interface {
	Name() uint32
	Attributes() []Variable
	Uniforms() []Variable
}

// TexFilter is a texture sampling filter.
type TexFilter int

const (
	FilterNearest TexFilter = iota
	FilterLinear
	FilterNearestMipmapNearest
	FilterLinearMipmapNearest
	FilterNearestMipmapLinear
	FilterLinearMipmapLinear
)

// UsesMipmaps reports whether the filter samples from a mip chain.
func (f TexFilter) UsesMipmaps() bool {
	return f >= FilterNearestMipmapNearest
}

// TexWrap is a texture coordinate wrap mode.
type TexWrap int

const (
	WrapClamp TexWrap = iota
	WrapRepeat
	WrapMirroredRepeat
)

// Channel is a swizzle source channel. ChannelIdentity keeps the channel in place.
type Channel int

const (
	ChannelIdentity Channel = iota
	ChannelRed
	ChannelGreen
	ChannelBlue
	ChannelAlpha
	ChannelZero
	ChannelOne
)

// TexParameters are the sampling parameters of a texture.
type TexParameters struct {
	MinFilter TexFilter
	MagFilter TexFilter
	WrapS     TexWrap
	WrapT     TexWrap
	Swizzle   [4]Channel
}

// TextureImage describes the storage of one texture. Levels holds the pixel data of each mip level,
// level 0 first; a nil Levels allocates storage only, as for render targets.
type TextureImage struct {
	Width      int
	Height     int
	Format     common.ImageFormat
	ColorModel common.ColorModel
	Levels     [][]byte

	// Depth marks a depth attachment texture.
	Depth bool

	// GenerateMipmaps asks the backend to build the mip chain from level 0.
	GenerateMipmaps bool
}

// BufferTarget is the binding point of a buffer.
type BufferTarget int

const (
	TargetArrayBuffer BufferTarget = iota
	TargetElementArrayBuffer
)

// IndexType is the element type of an index buffer.
type IndexType int

const (
	IndexUnsignedByte IndexType = iota
	IndexUnsignedShort
	IndexUnsignedInt
)

// Size returns the byte size of one index.
func (t IndexType) Size() int {
	switch t {
	case IndexUnsignedByte:
		return 1
	case IndexUnsignedShort:
		return 2
	default:
		return 4
	}
}

// VertexSource points an attribute at its data: a buffer object when Buffer is non-zero,
// otherwise the client-side bytes in Data.
type VertexSource struct {
	Buffer     uint32
	Data       []byte
	Components int
	Stride     int
	Offset     int
}

// IndexSource points a draw at its indices, using the same buffer/client rule as VertexSource.
type IndexSource struct {
	Buffer uint32
	Data   []byte
	Type   IndexType
	Offset int
}

// ClearFlags selects the buffers cleared at frame start.
type ClearFlags int

const (
	ClearColor ClearFlags = 1 << iota
	ClearDepth
	ClearStencil
)

// DepthFunc is the depth comparison. DepthNone disables depth testing.
type DepthFunc int

const (
	DepthNone DepthFunc = iota
	DepthLess
	DepthLessEqual
	DepthAlways
)

// CullFace selects the culled face. CullNone disables culling.
type CullFace int

const (
	CullNone CullFace = iota
	CullBack
	CullFront
)

// RenderState is the fixed-function state applied at frame start.
type RenderState struct {
	ClearColor [4]float32
	ClearDepth float32
	Clear      ClearFlags
	Depth      DepthFunc
	Cull       CullFace
}

// DrawAPI is the contract every concrete GPU backend implements. Methods are called from the render goroutine only.
type DrawAPI interface {
	// Name identifies the implementation in logs.
	Name() string

	CreateTextureNames(n int) ([]uint32, error)
	UploadTexture(name uint32, image TextureImage) error
	SetTextureParameters(name uint32, params TexParameters) error
	BindTexture(unit int, name uint32) error
	DeleteTextures(names []uint32)

	CreateBufferNames(n int) ([]uint32, error)
	BufferData(name uint32, target BufferTarget, data []byte) error
	DeleteBuffers(names []uint32)

	// CreateProgram compiles and links sources and reflects the active variables.
	CreateProgram(sources ProgramSources) (Program, error)
	IsProgram(p Program) bool
	DeleteProgram(p Program)
	UseProgram(p Program) error
	SetUniform(p Program, v Variable, values []float32) error
	SetVertexAttribute(p Program, v Variable, source VertexSource) error

	Viewport(x, y, width, height int)
	SetRenderState(state RenderState)
	BeginFrame() error
	DrawArrays(mode DrawMode, first, count int) error
	DrawElements(mode DrawMode, count int, indices IndexSource) error
	EndFrame() error

	// Release frees the API context. Called once by Backend.Destroy.
	Release()
}
