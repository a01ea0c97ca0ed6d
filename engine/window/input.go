package window

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/nucleus-go/common"
)

// Action is the kind of a discrete input event.
type Action int

const (
	ActionDown Action = iota
	ActionMove
	ActionUp
	ActionZoom
	ActionKeyDown
	ActionKeyUp
)

var actionNames = [...]string{
	ActionDown:    "DOWN",
	ActionMove:    "MOVE",
	ActionUp:      "UP",
	ActionZoom:    "ZOOM",
	ActionKeyDown: "KEY_DOWN",
	ActionKeyUp:   "KEY_UP",
}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "UNKNOWN"
	}
	return actionNames[a]
}

// Pointer indices of the mouse buttons.
const (
	PointerPrimary   = 0
	PointerSecondary = 1
	PointerMiddle    = 2
)

// InputEvent is one pointer or key event.
type InputEvent struct {
	Action Action

	// Pointer is the pointer index, a mouse button for desktop windows. Key events leave it at -1.
	Pointer int

	X, Y     float32
	Pressure float32

	// Delta is the scroll amount of an ActionZoom event, positive zooms in.
	Delta float32

	Key  common.KeyCode
	Time time.Time
}

// InputQueue is an unbounded FIFO of input events. Platform callbacks push, the frame loop drains. Order is
// preserved across all pointers, and therefore per pointer index.
type InputQueue struct {
	mu     sync.Mutex
	events []InputEvent
}

// Push appends e.
func (q *InputQueue) Push(e InputEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, e)
}

// Drain removes and returns every queued event, oldest first. It returns nil when the queue is empty.
func (q *InputQueue) Drain() []InputEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil
	}
	events := q.events
	q.events = nil
	return events
}

// Len returns the number of queued events.
func (q *InputQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
