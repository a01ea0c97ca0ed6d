package scene

import (
	"sync"

	"github.com/Carmen-Shannon/nucleus-go/engine/model"
)

// TypeMeshNode is the registry tag of a node that draws meshes.
const TypeMeshNode = "meshnode"

// MeshNode draws its meshes with its world matrix. Source optionally names a glTF document the meshes
// are created from when the scene is loaded.
type MeshNode struct {
	*BaseNode

	meshMu *sync.RWMutex
	meshes []model.Mesh
	source string
}

var _ Node = &MeshNode{}

// NewMeshNode creates a mesh node.
//
// Parameters:
//   - source: the glTF file the meshes come from, empty for procedural meshes
//   - meshes: initial meshes
//   - options: functional options for the shared node part
//
// Returns:
//   - *MeshNode: the node
func NewMeshNode(source string, meshes []model.Mesh, options ...NodeBuilderOption) *MeshNode {
	m := &MeshNode{
		BaseNode: NewBaseNode(TypeMeshNode, options...),
		meshMu:   &sync.RWMutex{},
		meshes:   meshes,
		source:   source,
	}
	m.Bind(m)
	return m
}

// Source returns the glTF file name, empty for procedural meshes.
func (m *MeshNode) Source() string {
	return m.source
}

// Meshes returns a snapshot of the meshes in draw order.
func (m *MeshNode) Meshes() []model.Mesh {
	m.meshMu.RLock()
	defer m.meshMu.RUnlock()
	return append([]model.Mesh(nil), m.meshes...)
}

// AddMesh appends meshes.
func (m *MeshNode) AddMesh(meshes ...model.Mesh) {
	m.meshMu.Lock()
	defer m.meshMu.Unlock()
	m.meshes = append(m.meshes, meshes...)
}

// ClearMeshes drops all meshes, typically before their glTF document is deleted.
func (m *MeshNode) ClearMeshes() {
	m.meshMu.Lock()
	defer m.meshMu.Unlock()
	m.meshes = nil
}
