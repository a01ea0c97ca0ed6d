package component

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/nucleus-go/common"
)

// ControllerState is the lifecycle state of a component or actor node.
type ControllerState int

const (
	StateCreated ControllerState = iota
	StateInitialized
	StatePlay
	StatePause
	StateStopped
)

func (s ControllerState) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateInitialized:
		return "INITIALIZED"
	case StatePlay:
		return "PLAY"
	case StatePause:
		return "PAUSE"
	case StateStopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("ControllerState(%d)", int(s))
	}
}

// Controller is the lifecycle of a node that holds components.
//
//	CREATED -> INITIALIZED -> PLAY <-> PAUSE
//	INITIALIZED, PLAY, PAUSE -> STOPPED
//	any -> CREATED (Reset)
type Controller interface {
	// ControllerState returns the current state.
	ControllerState() ControllerState

	// Play starts or resumes processing.
	//
	// Returns:
	//   - error: a configuration error unless the state is INITIALIZED or PAUSE
	Play() error

	// Pause suspends processing.
	//
	// Returns:
	//   - error: a configuration error unless the state is PLAY
	Pause() error

	// Stop ends processing until Reset.
	//
	// Returns:
	//   - error: a configuration error if the node was never initialized or is already stopped
	Stop() error

	// Reset returns the node to CREATED so the next process pass initializes it again.
	Reset()
}

// controller is the state machine shared by component and actor nodes.
type controller struct {
	mu    *sync.Mutex
	state ControllerState
}

func newController() controller {
	return controller{mu: &sync.Mutex{}, state: StateCreated}
}

func (c *controller) ControllerState() ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *controller) Play() error {
	return c.transition("Play", StatePlay, StateInitialized, StatePause)
}

func (c *controller) Pause() error {
	return c.transition("Pause", StatePause, StatePlay)
}

func (c *controller) Stop() error {
	return c.transition("Stop", StateStopped, StateInitialized, StatePlay, StatePause)
}

func (c *controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateCreated
}

// initialize moves CREATED to INITIALIZED and reports whether it did.
func (c *controller) initialize() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateCreated {
		return false
	}
	c.state = StateInitialized
	return true
}

func (c *controller) transition(op string, to ControllerState, from ...ControllerState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range from {
		if c.state == f {
			c.state = to
			return nil
		}
	}
	return common.ConfigurationError("component."+op, "cannot move from %s to %s", c.state, to)
}
