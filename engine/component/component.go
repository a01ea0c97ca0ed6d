// Package component advances behaviour state once per frame: component and actor nodes, the systems that
// process their components, the scene traversal and the worker goroutine that runs it off the render loop.
package component

import (
	"sort"
	"sync"
)

// Component is one unit of behaviour data attached to a node. System names the handler that processes it.
type Component struct {
	ID         string
	Type       string
	System     string
	Properties map[string]any
}

// Float returns a numeric property as float32.
//
// Parameters:
//   - key: the property name
//   - fallback: the value returned when the property is missing or not numeric
//
// Returns:
//   - float32: the property value or fallback
func (c *Component) Float(key string, fallback float32) float32 {
	switch v := c.Properties[key].(type) {
	case int:
		return float32(v)
	case float64:
		return float32(v)
	case float32:
		return v
	default:
		return fallback
	}
}

// System processes the components that name it.
type System interface {
	// Name returns the name components refer to.
	Name() string

	// Process advances one component of node by delta seconds.
	//
	// Parameters:
	//   - node: the node holding c
	//   - c: the component
	//   - delta: seconds since the previous frame
	//
	// Returns:
	//   - error: a failure limited to this component; processing continues with the next one
	Process(node Node, c *Component, delta float32) error
}

// Initializer is implemented by systems that prepare their components when the node is initialized.
type Initializer interface {
	Init(node Node, c *Component) error
}

type funcSystem struct {
	name string
	fn   func(Node, *Component, float32) error
}

func (s funcSystem) Name() string {
	return s.name
}

func (s funcSystem) Process(node Node, c *Component, delta float32) error {
	return s.fn(node, c, delta)
}

// SystemFunc adapts a function to the System interface.
func SystemFunc(name string, fn func(node Node, c *Component, delta float32) error) System {
	return funcSystem{name: name, fn: fn}
}

// Systems maps system names to handlers.
type Systems struct {
	mu      *sync.RWMutex
	systems map[string]System
}

// NewSystems creates a system registry holding systems.
func NewSystems(systems ...System) *Systems {
	s := &Systems{
		mu:      &sync.RWMutex{},
		systems: make(map[string]System),
	}
	for _, sys := range systems {
		s.Register(sys)
	}
	return s
}

// Register adds or replaces a system under its name.
func (s *Systems) Register(sys System) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.systems[sys.Name()] = sys
}

// Get returns the system registered under name.
func (s *Systems) Get(name string) (System, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sys, ok := s.systems[name]
	return sys, ok
}

// Names returns the registered names in sorted order.
func (s *Systems) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.systems))
	for name := range s.systems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
