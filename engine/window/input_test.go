package window

import (
	"sync"
	"testing"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputQueueOrder(t *testing.T) {
	var q InputQueue
	assert.Nil(t, q.Drain())

	q.Push(InputEvent{Action: ActionDown, Pointer: PointerPrimary, X: 1})
	q.Push(InputEvent{Action: ActionMove, Pointer: PointerPrimary, X: 2})
	q.Push(InputEvent{Action: ActionKeyDown, Pointer: -1, Key: common.KeyW})
	q.Push(InputEvent{Action: ActionUp, Pointer: PointerPrimary, X: 3})
	assert.Equal(t, 4, q.Len())

	events := q.Drain()
	require.Len(t, events, 4)
	assert.Equal(t, []Action{ActionDown, ActionMove, ActionKeyDown, ActionUp},
		[]Action{events[0].Action, events[1].Action, events[2].Action, events[3].Action})
	assert.Equal(t, float32(3), events[3].X)
	assert.Zero(t, q.Len())
}

func TestInputQueueConcurrentPush(t *testing.T) {
	var q InputQueue
	var wg sync.WaitGroup
	for p := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				q.Push(InputEvent{Action: ActionMove, Pointer: p, X: float32(i)})
			}
		}()
	}
	wg.Wait()

	last := map[int]float32{0: -1, 1: -1, 2: -1, 3: -1}
	events := q.Drain()
	require.Len(t, events, 400)
	for _, e := range events {
		assert.Greater(t, e.X, last[e.Pointer], "pointer %d out of order", e.Pointer)
		last[e.Pointer] = e.X
	}
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "ZOOM", ActionZoom.String())
	assert.Equal(t, "UNKNOWN", Action(42).String())
}

func TestKeyDigit(t *testing.T) {
	n, ok := common.Key9.Digit()
	assert.True(t, ok)
	assert.Equal(t, 9, n)
	_, ok = common.KeyW.Digit()
	assert.False(t, ok)
}

func TestResizedIgnoresMinimize(t *testing.T) {
	w := &engineWindow{width: 100, height: 50}
	var got [][2]int
	w.SetResizeCallback(func(width, height int) { got = append(got, [2]int{width, height}) })

	w.resized(0, 0)
	w.resized(300, 200)
	assert.Equal(t, [][2]int{{300, 200}}, got)
	assert.Equal(t, 300, w.Width())
	assert.False(t, w.IsRunning())
	assert.Nil(t, w.SurfaceDescriptor())
}
