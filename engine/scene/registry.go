package scene

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/engine/camera"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// Document is the serialized form of a node and its subtree. JSON documents decode too since YAML is a
// superset.
type Document struct {
	ID         string              `yaml:"id"`
	Type       string              `yaml:"type"`
	State      State               `yaml:"state"`
	Transform  *Transform          `yaml:"transform"`
	Camera     *CameraDocument     `yaml:"camera"`
	View       []float32           `yaml:"view"`
	Projection []float32           `yaml:"projection"`
	Properties map[string]string   `yaml:"properties"`
	Source     string              `yaml:"source"`
	Components []ComponentDocument `yaml:"components"`
	Children   []*Document         `yaml:"children"`
}

// CameraDocument describes a perspective camera. Fov is in degrees.
type CameraDocument struct {
	Position mgl32.Vec3  `yaml:"position"`
	Target   mgl32.Vec3  `yaml:"target"`
	Up       *mgl32.Vec3 `yaml:"up"`
	Fov      float32     `yaml:"fov"`
	Near     float32     `yaml:"near"`
	Far      float32     `yaml:"far"`
}

// ComponentDocument describes one component of a component or actor node. System names the handler
// that processes it.
type ComponentDocument struct {
	ID         string         `yaml:"id"`
	Type       string         `yaml:"type"`
	System     string         `yaml:"system"`
	Properties map[string]any `yaml:"properties"`
}

// Constructor builds a node from its document. Children are built and attached by the registry.
type Constructor func(doc *Document, options ...NodeBuilderOption) (Node, error)

// Registry maps node type tags to constructors.
type Registry struct {
	mu           *sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry returns a registry holding the built-in node types: node, meshnode and rootnode.
func NewRegistry() *Registry {
	r := &Registry{
		mu:           &sync.RWMutex{},
		constructors: make(map[string]Constructor),
	}
	r.Register(TypeNode, func(_ *Document, options ...NodeBuilderOption) (Node, error) {
		return NewNode(options...), nil
	})
	r.Register(TypeMeshNode, func(doc *Document, options ...NodeBuilderOption) (Node, error) {
		return NewMeshNode(doc.Source, nil, options...), nil
	})
	r.Register(TypeRootNode, func(_ *Document, options ...NodeBuilderOption) (Node, error) {
		return NewRootNode(options...), nil
	})
	return r
}

// Register adds or replaces the constructor for tag. Tags are case-insensitive.
func (r *Registry) Register(tag string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[strings.ToLower(tag)] = c
}

// Tags returns the registered tags in sorted order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.constructors))
	for tag := range r.constructors {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Build instantiates doc and its subtree through the registered constructors.
//
// Parameters:
//   - doc: the node document
//
// Returns:
//   - Node: the built node
//   - error: an argument error for an unknown type, malformed matrices, or a duplicate id
func (r *Registry) Build(doc *Document) (Node, error) {
	return r.build(doc, make(map[string]struct{}))
}

// BuildRoot builds doc as the root of a scene. A document of any other type is wrapped in a new root.
func (r *Registry) BuildRoot(doc *Document) (*RootNode, error) {
	n, err := r.Build(doc)
	if err != nil {
		return nil, err
	}
	if root, ok := n.(*RootNode); ok {
		return root, nil
	}
	root := NewRootNode()
	root.AddChild(n)
	return root, nil
}

func (r *Registry) build(doc *Document, ids map[string]struct{}) (Node, error) {
	const op = "scene.Build"
	if doc == nil {
		return nil, common.ArgumentError(op, "nil node document")
	}
	tag := strings.ToLower(doc.Type)
	if tag == "" {
		tag = TypeNode
	}
	r.mu.RLock()
	ctor, ok := r.constructors[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, common.ArgumentError(op, "node %q has unknown type %q", doc.ID, doc.Type)
	}
	if doc.ID != "" {
		if _, dup := ids[doc.ID]; dup {
			return nil, common.ArgumentError(op, "duplicate node id %q", doc.ID)
		}
		ids[doc.ID] = struct{}{}
	}

	options, err := documentOptions(doc)
	if err != nil {
		return nil, common.ArgumentError(op, "node %q: %v", doc.ID, err)
	}
	n, err := ctor(doc, options...)
	if err != nil {
		return nil, fmt.Errorf("%s: node %q: %w", op, doc.ID, err)
	}

	for _, childDoc := range doc.Children {
		child, err := r.build(childDoc, ids)
		if err != nil {
			return nil, err
		}
		n.AddChild(child)
	}
	return n, nil
}

func documentOptions(doc *Document) ([]NodeBuilderOption, error) {
	options := []NodeBuilderOption{
		WithID(doc.ID),
		WithState(doc.State),
		WithProperties(doc.Properties),
	}
	if doc.Transform != nil {
		options = append(options, WithTransform(*doc.Transform))
	}
	if doc.View != nil {
		m, err := matrix(doc.View)
		if err != nil {
			return nil, fmt.Errorf("view: %w", err)
		}
		options = append(options, WithView(m))
	}
	if doc.Projection != nil {
		m, err := matrix(doc.Projection)
		if err != nil {
			return nil, fmt.Errorf("projection: %w", err)
		}
		options = append(options, WithProjection(m))
	}
	if doc.Camera != nil {
		options = append(options, WithCamera(doc.Camera.build()))
	}
	return options, nil
}

func (d *CameraDocument) build() camera.Camera {
	options := []camera.CameraBuilderOption{
		camera.WithPosition(d.Position),
		camera.WithTarget(d.Target),
	}
	if d.Up != nil {
		options = append(options, camera.WithUp(*d.Up))
	}
	if d.Fov > 0 {
		options = append(options, camera.WithFov(d.Fov*math.Pi/180))
	}
	if d.Near > 0 && d.Far > d.Near {
		options = append(options, camera.WithClipPlanes(d.Near, d.Far))
	}
	return camera.NewCamera(options...)
}

func matrix(values []float32) (mgl32.Mat4, error) {
	var m mgl32.Mat4
	if len(values) != len(m) {
		return m, fmt.Errorf("matrix needs %d values, got %d", len(m), len(values))
	}
	copy(m[:], values)
	return m, nil
}

// DecodeDocument reads one node document.
func DecodeDocument(r io.Reader) (*Document, error) {
	var d Document
	if err := yaml.NewDecoder(r).Decode(&d); err != nil {
		return nil, common.ArgumentError("scene.DecodeDocument", "%v", err)
	}
	return &d, nil
}

// LoadDocument reads a node document file.
func LoadDocument(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrNotFound, err)
	}
	defer file.Close()

	return DecodeDocument(file)
}
