package model

import (
	"github.com/Carmen-Shannon/nucleus-go/engine/loader"
	"github.com/Carmen-Shannon/nucleus-go/engine/shader"
)

// mesh is the implementation of the Mesh interface.
type mesh struct {
	name       string
	shader     shader.Shader
	primitives []Primitive
	document   *loader.Document
}

// Mesh is a named group of primitives drawn with one shader.
type Mesh interface {
	// Name retrieves the mesh identifier.
	//
	// Returns:
	//   - string: the mesh name
	Name() string

	// Shader returns the shader the mesh is drawn with. The renderer resolves it to a pipeline through
	// the asset cache.
	//
	// Returns:
	//   - shader.Shader: the shader, nil if the mesh is not drawable yet
	Shader() shader.Shader

	// SetShader replaces the shader of the mesh.
	//
	// Parameters:
	//   - s: the shader to draw with
	SetShader(s shader.Shader)

	// Primitives returns the draw units of the mesh.
	//
	// Returns:
	//   - []Primitive: the primitives in draw order
	Primitives() []Primitive

	// Document returns the glTF document the mesh was built from, nil for procedural meshes.
	//
	// Returns:
	//   - *loader.Document: the source document
	Document() *loader.Document
}

var _ Mesh = &mesh{}

// NewMesh creates a new Mesh instance with the specified options applied.
//
// Parameters:
//   - options: a variadic list of MeshBuilderOption functions to configure the Mesh
//
// Returns:
//   - Mesh: a new instance of Mesh configured with the provided options
func NewMesh(options ...MeshBuilderOption) Mesh {
	m := &mesh{}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// FromDocument builds one Mesh per glTF mesh of doc, in document order.
//
// Parameters:
//   - doc: a resolved document
//   - s: the shader every mesh is drawn with
//   - useVBO: prefer buffer objects over client memory
//
// Returns:
//   - []Mesh: the meshes
//   - error: an argument error from the first primitive that cannot be built
func FromDocument(doc *loader.Document, s shader.Shader, useVBO bool) ([]Mesh, error) {
	meshes := make([]Mesh, 0, len(doc.Meshes))
	for i := range doc.Meshes {
		src := &doc.Meshes[i]
		prims := make([]Primitive, 0, len(src.Primitives))
		for j := range src.Primitives {
			p, err := NewPrimitive(&src.Primitives[j], useVBO)
			if err != nil {
				return nil, err
			}
			prims = append(prims, p)
		}
		meshes = append(meshes, NewMesh(
			WithName(src.Name),
			WithShader(s),
			WithPrimitives(prims...),
			WithDocument(doc),
		))
	}
	return meshes, nil
}

func (m *mesh) Name() string {
	return m.name
}

func (m *mesh) Shader() shader.Shader {
	return m.shader
}

func (m *mesh) SetShader(s shader.Shader) {
	m.shader = s
}

func (m *mesh) Primitives() []Primitive {
	return m.primitives
}

func (m *mesh) Document() *loader.Document {
	return m.document
}
