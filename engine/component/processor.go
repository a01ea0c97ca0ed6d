package component

import (
	"errors"

	"github.com/Carmen-Shannon/nucleus-go/common/log"
	"github.com/Carmen-Shannon/nucleus-go/engine/scene"
)

// Processor walks a scene graph in pre-order and advances every component node it reaches.
type Processor struct {
	systems *Systems
	log     log.Log
}

// NewProcessor creates a processor dispatching components to systems.
//
// Parameters:
//   - systems: the system registry, nil for an empty one
//   - logger: logger for node initialization, nil for a nop logger
//
// Returns:
//   - *Processor: the processor
func NewProcessor(systems *Systems, logger log.Log) *Processor {
	if systems == nil {
		systems = NewSystems()
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Processor{systems: systems, log: logger}
}

// Systems returns the system registry.
func (p *Processor) Systems() *Systems {
	return p.systems
}

// ProcessRoot processes the children of root and their subtrees. A node whose state excludes processing
// is skipped together with its subtree. A component node still in CREATED is initialized before its
// components are processed.
//
// Parameters:
//   - root: the scene root, nil is a no-op
//   - delta: seconds since the previous frame
//
// Returns:
//   - error: the joined errors of every failed initializer and component; traversal never stops early
func (p *Processor) ProcessRoot(root scene.Node, delta float32) error {
	if root == nil {
		return nil
	}
	var errs []error
	for _, child := range root.Children() {
		errs = p.processNode(child, delta, errs)
	}
	return errors.Join(errs...)
}

func (p *Processor) processNode(n scene.Node, delta float32, errs []error) []error {
	if !n.State().Processes() {
		return errs
	}
	if cn, ok := n.(Node); ok {
		initialized, err := cn.Init(p.systems)
		if initialized {
			p.log.Debug("component node initialized", log.String("node", n.ID()), log.String("type", n.Type()))
		}
		if err != nil {
			errs = append(errs, err)
		}
		if err := cn.ProcessComponents(p.systems, delta); err != nil {
			errs = append(errs, err)
		}
	}
	for _, child := range n.Children() {
		errs = p.processNode(child, delta, errs)
	}
	return errs
}
