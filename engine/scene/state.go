package scene

import (
	"fmt"
	"strings"
)

// State controls whether a node and its subtree are rendered, processed by the component worker, or both.
// The zero value is unset and behaves like StateOn.
type State uint8

const (
	StateUnset  State = 0
	StateOn     State = 1
	StateOff    State = 2
	StateRender State = 4
	StateActor  State = 8
)

var stateNames = map[State]string{
	StateUnset:  "",
	StateOn:     "ON",
	StateOff:    "OFF",
	StateRender: "RENDER",
	StateActor:  "ACTOR",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		if n == "" {
			return "UNSET"
		}
		return n
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Renders reports whether the renderer descends into a node in this state.
func (s State) Renders() bool {
	return s == StateUnset || s == StateOn || s == StateRender
}

// Processes reports whether component processing descends into a node in this state.
func (s State) Processes() bool {
	return s == StateUnset || s == StateOn || s == StateActor
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	n, ok := stateNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown node state %d", uint8(s))
	}
	return []byte(n), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, accepting the names in any case.
func (s *State) UnmarshalText(text []byte) error {
	name := strings.ToUpper(strings.TrimSpace(string(text)))
	for state, n := range stateNames {
		if n == name {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown node state %q", string(text))
}
