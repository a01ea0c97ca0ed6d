package scene

import (
	"sync"

	"github.com/Carmen-Shannon/nucleus-go/engine/camera"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// TypeNode is the registry tag of a plain grouping node.
const TypeNode = "node"

// Node is one element of the scene graph. The set of implementations is closed to types that embed
// *BaseNode, which supplies every method.
type Node interface {
	// ID returns the node identifier, unique within one graph.
	ID() string

	// Type returns the registry tag the node was created for.
	Type() string

	// State returns the render/process state of the node.
	State() State

	// SetState sets the state of the node and of every descendant.
	//
	// Parameters:
	//   - s: the new state
	SetState(s State)

	// Parent returns the node this node was added to, nil for a root.
	Parent() Node

	// Children returns a snapshot of the child list in insertion order.
	//
	// Returns:
	//   - []Node: the children
	Children() []Node

	// AddChild appends children and sets this node as their parent.
	//
	// Parameters:
	//   - children: the nodes to append
	AddChild(children ...Node)

	// RemoveChild detaches child from this node.
	//
	// Returns:
	//   - bool: true if child was a direct child
	RemoveChild(child Node) bool

	// Transform returns the local transform.
	Transform() Transform

	// SetTransform replaces the local transform.
	SetTransform(t Transform)

	// Matrix returns the local model matrix.
	Matrix() mgl32.Mat4

	// WorldMatrix returns the product of every ancestor's local matrix and this node's.
	WorldMatrix() mgl32.Mat4

	// View returns the view matrix this node sets for its subtree.
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	//   - bool: false if the node does not set a view
	View() (mgl32.Mat4, bool)

	// Projection returns the projection matrix this node sets for its subtree.
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	//   - bool: false if the node does not set a projection
	Projection() (mgl32.Mat4, bool)

	// Camera returns the camera attached to this node, nil if none.
	Camera() camera.Camera

	// Property returns a free-form property from the node document.
	Property(key string) (string, bool)

	node() *BaseNode
}

// BaseNode carries the state shared by every node type. Node types embed *BaseNode and call Bind with
// themselves so that children see the outer type as their parent.
type BaseNode struct {
	mu *sync.RWMutex

	self       Node
	id         string
	nodeType   string
	state      State
	parent     Node
	children   []Node
	transform  Transform
	view       *mgl32.Mat4
	projection *mgl32.Mat4
	camera     camera.Camera
	properties map[string]string
}

var _ Node = &BaseNode{}

// NewBaseNode creates the shared part of a node of the given type. A missing id is replaced by a random UUID.
//
// Parameters:
//   - nodeType: the registry tag of the outer node type
//   - options: functional options to configure the node
//
// Returns:
//   - *BaseNode: the node, bound to itself until Bind is called
func NewBaseNode(nodeType string, options ...NodeBuilderOption) *BaseNode {
	b := &BaseNode{
		mu:         &sync.RWMutex{},
		nodeType:   nodeType,
		transform:  IdentityTransform(),
		properties: make(map[string]string),
	}
	for _, opt := range options {
		opt(b)
	}
	if b.id == "" {
		b.id = uuid.NewString()
	}
	return b
}

// NewNode creates a plain grouping node.
func NewNode(options ...NodeBuilderOption) Node {
	return NewBaseNode(TypeNode, options...)
}

// Bind records the outer node embedding b. Children added afterwards get self as their parent.
func (b *BaseNode) Bind(self Node) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.self = self
	for _, c := range b.children {
		c.node().setParent(self)
	}
}

func (b *BaseNode) node() *BaseNode {
	return b
}

func (b *BaseNode) owner() Node {
	if b.self != nil {
		return b.self
	}
	return b
}

func (b *BaseNode) setParent(p Node) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parent = p
}

func (b *BaseNode) ID() string {
	return b.id
}

func (b *BaseNode) Type() string {
	return b.nodeType
}

func (b *BaseNode) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *BaseNode) SetState(s State) {
	b.mu.Lock()
	b.state = s
	children := append([]Node(nil), b.children...)
	b.mu.Unlock()

	for _, c := range children {
		c.SetState(s)
	}
}

func (b *BaseNode) Parent() Node {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.parent
}

func (b *BaseNode) Children() []Node {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Node(nil), b.children...)
}

func (b *BaseNode) AddChild(children ...Node) {
	b.mu.Lock()
	owner := b.owner()
	for _, c := range children {
		if c == nil {
			continue
		}
		b.children = append(b.children, c)
	}
	b.mu.Unlock()

	for _, c := range children {
		if c != nil {
			c.node().setParent(owner)
		}
	}
}

func (b *BaseNode) RemoveChild(child Node) bool {
	if child == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, c := range b.children {
		if c.node() == child.node() {
			b.children = append(b.children[:i], b.children[i+1:]...)
			c.node().setParent(nil)
			return true
		}
	}
	return false
}

func (b *BaseNode) Transform() Transform {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.transform
}

func (b *BaseNode) SetTransform(t Transform) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transform = t
}

func (b *BaseNode) Matrix() mgl32.Mat4 {
	return b.Transform().Matrix()
}

func (b *BaseNode) WorldMatrix() mgl32.Mat4 {
	m := b.Matrix()
	for p := b.Parent(); p != nil; p = p.Parent() {
		m = p.Matrix().Mul4(m)
	}
	return m
}

func (b *BaseNode) View() (mgl32.Mat4, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.camera != nil {
		return b.camera.View(), true
	}
	if b.view != nil {
		return *b.view, true
	}
	return mgl32.Ident4(), false
}

func (b *BaseNode) Projection() (mgl32.Mat4, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.camera != nil {
		return b.camera.Projection(), true
	}
	if b.projection != nil {
		return *b.projection, true
	}
	return mgl32.Ident4(), false
}

// SetView makes the node set m as the view matrix of its subtree.
func (b *BaseNode) SetView(m mgl32.Mat4) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.view = &m
}

// SetProjection makes the node set m as the projection matrix of its subtree.
func (b *BaseNode) SetProjection(m mgl32.Mat4) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.projection = &m
}

func (b *BaseNode) Camera() camera.Camera {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.camera
}

// SetCamera attaches c. While attached, the camera supplies both the view and the projection.
func (b *BaseNode) SetCamera(c camera.Camera) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.camera = c
}

func (b *BaseNode) Property(key string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.properties[key]
	return v, ok
}

// Walk visits n and its descendants in pre-order. When visit returns false the subtree below the visited
// node is skipped.
//
// Parameters:
//   - n: the first node to visit
//   - visit: called once per reached node
func Walk(n Node, visit func(Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	for _, c := range n.Children() {
		Walk(c, visit)
	}
}
