package scene

import (
	"maps"

	"github.com/Carmen-Shannon/nucleus-go/engine/camera"
	"github.com/go-gl/mathgl/mgl32"
)

// NodeBuilderOption is a functional option for configuring the BaseNode of any node type.
type NodeBuilderOption func(*BaseNode)

// WithID sets the node identifier.
//
// Parameters:
//   - id: the identifier, unique within one graph
//
// Returns:
//   - NodeBuilderOption: a function that applies the id option
func WithID(id string) NodeBuilderOption {
	return func(b *BaseNode) {
		b.id = id
	}
}

// WithState sets the initial state of the node. Unlike SetState it does not touch children.
func WithState(s State) NodeBuilderOption {
	return func(b *BaseNode) {
		b.state = s
	}
}

// WithTransform sets the local transform.
//
// Parameters:
//   - t: the transform
//
// Returns:
//   - NodeBuilderOption: a function that applies the transform option
func WithTransform(t Transform) NodeBuilderOption {
	return func(b *BaseNode) {
		b.transform = t
	}
}

// WithView makes the node set m as the view matrix of its subtree.
func WithView(m mgl32.Mat4) NodeBuilderOption {
	return func(b *BaseNode) {
		b.view = &m
	}
}

// WithProjection makes the node set m as the projection matrix of its subtree.
func WithProjection(m mgl32.Mat4) NodeBuilderOption {
	return func(b *BaseNode) {
		b.projection = &m
	}
}

// WithCamera attaches a camera that supplies the view and projection of the subtree.
func WithCamera(c camera.Camera) NodeBuilderOption {
	return func(b *BaseNode) {
		b.camera = c
	}
}

// WithProperties merges free-form properties into the node.
func WithProperties(props map[string]string) NodeBuilderOption {
	return func(b *BaseNode) {
		maps.Copy(b.properties, props)
	}
}

// WithChildren appends children. Their parent is the BaseNode until the outer type calls Bind.
func WithChildren(children ...Node) NodeBuilderOption {
	return func(b *BaseNode) {
		for _, c := range children {
			if c == nil {
				continue
			}
			b.children = append(b.children, c)
			c.node().parent = b
		}
	}
}
