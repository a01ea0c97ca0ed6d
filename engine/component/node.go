package component

import (
	"errors"
	"sync"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/engine/scene"
)

// Node type tags registered by Register.
const (
	TypeComponentNode = "componentnode"
	TypeActorNode     = "actornode"
)

// Node is a scene node that holds components and a controller state machine.
type Node interface {
	scene.Node
	Controller

	// Components returns a snapshot of the components in processing order.
	Components() []*Component

	// AddComponent appends components.
	AddComponent(components ...*Component)

	// Init moves a CREATED node to INITIALIZED and runs the Initializer of every component's system.
	// It does nothing in any other state.
	//
	// Parameters:
	//   - systems: the system registry
	//
	// Returns:
	//   - bool: true if the node was initialized by this call
	//   - error: the joined errors of the component initializers
	Init(systems *Systems) (bool, error)

	// ProcessComponents runs each component through its system if the controller state allows it.
	//
	// Parameters:
	//   - systems: the system registry
	//   - delta: seconds since the previous frame
	//
	// Returns:
	//   - error: the joined skippable errors of the components that failed
	ProcessComponents(systems *Systems, delta float32) error
}

// ComponentNode processes its components while INITIALIZED or PLAY.
type ComponentNode struct {
	*scene.BaseNode
	controller

	self       Node
	runs       func(ControllerState) bool
	compMu     *sync.RWMutex
	components []*Component
}

var _ Node = &ComponentNode{}

// NewComponentNode creates a component node in the CREATED state.
//
// Parameters:
//   - components: the initial components
//   - options: functional options for the shared node part
//
// Returns:
//   - *ComponentNode: the node
func NewComponentNode(components []*Component, options ...scene.NodeBuilderOption) *ComponentNode {
	n := newComponentNode(TypeComponentNode, components, options...)
	n.runs = func(s ControllerState) bool {
		return s == StateInitialized || s == StatePlay
	}
	n.bind(n)
	return n
}

func newComponentNode(nodeType string, components []*Component, options ...scene.NodeBuilderOption) *ComponentNode {
	return &ComponentNode{
		BaseNode:   scene.NewBaseNode(nodeType, options...),
		controller: newController(),
		compMu:     &sync.RWMutex{},
		components: components,
	}
}

func (n *ComponentNode) bind(self Node) {
	n.self = self
	n.Bind(self)
}

func (n *ComponentNode) Components() []*Component {
	n.compMu.RLock()
	defer n.compMu.RUnlock()
	return append([]*Component(nil), n.components...)
}

func (n *ComponentNode) AddComponent(components ...*Component) {
	n.compMu.Lock()
	defer n.compMu.Unlock()
	n.components = append(n.components, components...)
}

func (n *ComponentNode) Init(systems *Systems) (bool, error) {
	if !n.initialize() {
		return false, nil
	}
	var errs []error
	for _, c := range n.Components() {
		sys, ok := systems.Get(c.System)
		if !ok {
			continue
		}
		if initializer, ok := sys.(Initializer); ok {
			if err := initializer.Init(n.self, c); err != nil {
				errs = append(errs, common.SkippableError("component.Init", err))
			}
		}
	}
	return true, errors.Join(errs...)
}

func (n *ComponentNode) ProcessComponents(systems *Systems, delta float32) error {
	if !n.runs(n.ControllerState()) {
		return nil
	}
	const op = "component.Process"
	var errs []error
	for _, c := range n.Components() {
		sys, ok := systems.Get(c.System)
		if !ok {
			errs = append(errs, common.SkippableError(op, common.DanglingReferenceError(op,
				"component %q of node %q names unregistered system %q", c.ID, n.ID(), c.System)))
			continue
		}
		if err := sys.Process(n.self, c, delta); err != nil {
			errs = append(errs, common.SkippableError(op, err))
		}
	}
	return errors.Join(errs...)
}

// ActorNode holds actors: components that only advance while the node is in PLAY. After initialization
// the node waits in INITIALIZED until Play is called, unless it was created with autoplay.
type ActorNode struct {
	*ComponentNode

	autoplay bool
}

var _ Node = &ActorNode{}

// NewActorNode creates an actor node in the CREATED state.
//
// Parameters:
//   - actors: the initial actors
//   - autoplay: start playing as soon as the node is initialized
//   - options: functional options for the shared node part
//
// Returns:
//   - *ActorNode: the node
func NewActorNode(actors []*Component, autoplay bool, options ...scene.NodeBuilderOption) *ActorNode {
	a := &ActorNode{
		ComponentNode: newComponentNode(TypeActorNode, actors, options...),
		autoplay:      autoplay,
	}
	a.runs = func(s ControllerState) bool {
		return s == StatePlay
	}
	a.bind(a)
	return a
}

func (a *ActorNode) Init(systems *Systems) (bool, error) {
	initialized, err := a.ComponentNode.Init(systems)
	if initialized && a.autoplay {
		if playErr := a.Play(); playErr != nil {
			err = errors.Join(err, playErr)
		}
	}
	return initialized, err
}

// Register adds the componentnode and actornode types to a scene registry. Actor nodes read the
// "autoplay" property.
func Register(r *scene.Registry) {
	r.Register(TypeComponentNode, func(doc *scene.Document, options ...scene.NodeBuilderOption) (scene.Node, error) {
		return NewComponentNode(fromDocuments(doc.Components), options...), nil
	})
	r.Register(TypeActorNode, func(doc *scene.Document, options ...scene.NodeBuilderOption) (scene.Node, error) {
		return NewActorNode(fromDocuments(doc.Components), doc.Properties["autoplay"] == "true", options...), nil
	})
}

func fromDocuments(docs []scene.ComponentDocument) []*Component {
	components := make([]*Component, 0, len(docs))
	for _, d := range docs {
		components = append(components, &Component{
			ID:         d.ID,
			Type:       d.Type,
			System:     d.System,
			Properties: d.Properties,
		})
	}
	return components
}
