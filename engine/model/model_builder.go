package model

import (
	"github.com/Carmen-Shannon/nucleus-go/engine/loader"
	"github.com/Carmen-Shannon/nucleus-go/engine/shader"
)

// MeshBuilderOption is a functional option for configuring a Mesh via NewMesh.
type MeshBuilderOption func(*mesh)

// WithName is an option builder that sets the name of the Mesh.
//
// Parameters:
//   - name: the mesh identifier
//
// Returns:
//   - MeshBuilderOption: a function that applies the name option to a mesh
func WithName(name string) MeshBuilderOption {
	return func(m *mesh) {
		m.name = name
	}
}

// WithShader is an option builder that sets the shader the Mesh is drawn with.
//
// Parameters:
//   - s: the shader
//
// Returns:
//   - MeshBuilderOption: a function that applies the shader option to a mesh
func WithShader(s shader.Shader) MeshBuilderOption {
	return func(m *mesh) {
		m.shader = s
	}
}

// WithPrimitives is an option builder that appends draw units to the Mesh.
func WithPrimitives(primitives ...Primitive) MeshBuilderOption {
	return func(m *mesh) {
		m.primitives = append(m.primitives, primitives...)
	}
}

// WithDocument is an option builder that records the glTF document the Mesh was built from.
func WithDocument(doc *loader.Document) MeshBuilderOption {
	return func(m *mesh) {
		m.document = doc
	}
}
