package scene

// TypeRootNode is the registry tag of a scene root.
const TypeRootNode = "rootnode"

// RootNode is the top of a scene graph. Rendering and component processing start from its children.
type RootNode struct {
	*BaseNode
}

var _ Node = &RootNode{}

// NewRootNode creates an empty root.
func NewRootNode(options ...NodeBuilderOption) *RootNode {
	r := &RootNode{BaseNode: NewBaseNode(TypeRootNode, options...)}
	r.Bind(r)
	return r
}

// NodeByID searches the graph in pre-order and returns the first node with id, or nil.
func (r *RootNode) NodeByID(id string) Node {
	var found Node
	Walk(r, func(n Node) bool {
		if found != nil {
			return false
		}
		if n.ID() == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// MeshNodes returns every mesh node of the graph in pre-order, regardless of state.
func (r *RootNode) MeshNodes() []*MeshNode {
	var nodes []*MeshNode
	Walk(r, func(n Node) bool {
		if m, ok := n.(*MeshNode); ok {
			nodes = append(nodes, m)
		}
		return true
	})
	return nodes
}

// CameraNodes returns every node of the graph that carries a camera.
func (r *RootNode) CameraNodes() []Node {
	var nodes []Node
	Walk(r, func(n Node) bool {
		if n.Camera() != nil {
			nodes = append(nodes, n)
		}
		return true
	})
	return nodes
}
