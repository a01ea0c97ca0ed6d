package component_test

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/engine/backend/backendtest"
	"github.com/Carmen-Shannon/nucleus-go/engine/component"
	"github.com/Carmen-Shannon/nucleus-go/engine/profiler"
	"github.com/Carmen-Shannon/nucleus-go/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder counts initializations and records processing order.
type recorder struct {
	mu      sync.Mutex
	inits   map[string]int
	visited []string
}

func newRecorder() *recorder {
	return &recorder{inits: make(map[string]int)}
}

func (r *recorder) Name() string { return "record" }

func (r *recorder) Init(node component.Node, c *component.Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inits[c.ID]++
	return nil
}

func (r *recorder) Process(node component.Node, c *component.Component, delta float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visited = append(r.visited, node.ID())
	return nil
}

func recorded(id string) *component.Component {
	return &component.Component{ID: id, System: "record"}
}

func TestInitRunsExactlyOnce(t *testing.T) {
	rec := newRecorder()
	parent := component.NewComponentNode([]*component.Component{recorded("p1"), recorded("p2")},
		scene.WithID("parent"),
		scene.WithChildren(
			scene.NewNode(scene.WithID("a")),
			component.NewComponentNode([]*component.Component{recorded("c1")}, scene.WithID("child")),
			scene.NewNode(scene.WithID("b")),
		))
	root := scene.NewRootNode(scene.WithChildren(parent))
	p := component.NewProcessor(component.NewSystems(rec), nil)

	for range 5 {
		require.NoError(t, p.ProcessRoot(root, 0.016))
	}
	assert.Equal(t, map[string]int{"p1": 1, "p2": 1, "c1": 1}, rec.inits)
	assert.Equal(t, component.StateInitialized, parent.ControllerState())
	assert.Len(t, rec.visited, 15)

	parent.Reset()
	require.NoError(t, p.ProcessRoot(root, 0.016))
	assert.Equal(t, 2, rec.inits["p1"], "reset makes the node initialize again")
	assert.Equal(t, 1, rec.inits["c1"])
}

func TestProcessorPreOrderAndStateFilter(t *testing.T) {
	rec := newRecorder()
	node := func(id string, state scene.State, children ...scene.Node) scene.Node {
		return component.NewComponentNode([]*component.Component{recorded(id)},
			scene.WithID(id), scene.WithState(state), scene.WithChildren(children...))
	}
	root := scene.NewRootNode(scene.WithChildren(
		node("a", scene.StateUnset, node("a1", scene.StateOn), node("a2", scene.StateActor)),
		node("off", scene.StateOff, node("under-off", scene.StateOn)),
		node("render", scene.StateRender),
		node("b", scene.StateActor),
	))

	require.NoError(t, component.NewProcessor(component.NewSystems(rec), nil).ProcessRoot(root, 0))
	assert.Equal(t, []string{"a", "a1", "a2", "b"}, rec.visited)
}

func TestControllerTransitions(t *testing.T) {
	n := component.NewComponentNode(nil)
	assert.Equal(t, component.StateCreated, n.ControllerState())
	assert.ErrorIs(t, n.Play(), common.ErrConfiguration, "cannot play before init")

	initialized, err := n.Init(component.NewSystems())
	require.NoError(t, err)
	assert.True(t, initialized)
	initialized, _ = n.Init(component.NewSystems())
	assert.False(t, initialized)

	require.NoError(t, n.Play())
	require.NoError(t, n.Pause())
	assert.Error(t, n.Pause())
	require.NoError(t, n.Play())
	require.NoError(t, n.Stop())
	assert.Error(t, n.Stop())
	assert.Error(t, n.Play())

	n.Reset()
	assert.Equal(t, component.StateCreated, n.ControllerState())
}

func TestActorNodeAdvancesOnlyInPlay(t *testing.T) {
	rec := newRecorder()
	systems := component.NewSystems(rec)
	actor := component.NewActorNode([]*component.Component{recorded("actor")}, false, scene.WithID("actor"))
	root := scene.NewRootNode(scene.WithChildren(actor))
	p := component.NewProcessor(systems, nil)

	require.NoError(t, p.ProcessRoot(root, 0))
	assert.Equal(t, component.StateInitialized, actor.ControllerState())
	assert.Empty(t, rec.visited)

	require.NoError(t, actor.Play())
	require.NoError(t, p.ProcessRoot(root, 0))
	assert.Equal(t, []string{"actor"}, rec.visited)

	require.NoError(t, actor.Pause())
	require.NoError(t, p.ProcessRoot(root, 0))
	assert.Len(t, rec.visited, 1)

	auto := component.NewActorNode([]*component.Component{recorded("auto")}, true)
	_, err := auto.Init(systems)
	require.NoError(t, err)
	assert.Equal(t, component.StatePlay, auto.ControllerState())
}

func TestProcessErrorsAreSkippable(t *testing.T) {
	failing := component.SystemFunc("fail", func(component.Node, *component.Component, float32) error {
		return errors.New("boom")
	})
	rec := newRecorder()
	n := component.NewComponentNode([]*component.Component{
		{ID: "x", System: "missing"},
		{ID: "y", System: "fail"},
		recorded("z"),
	}, scene.WithID("n"))
	root := scene.NewRootNode(scene.WithChildren(n))

	err := component.NewProcessor(component.NewSystems(failing, rec), nil).ProcessRoot(root, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDanglingReference)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, []string{"n"}, rec.visited, "later components still run")

	var joined interface{ Unwrap() []error }
	require.ErrorAs(t, err, &joined)
	for _, e := range joined.Unwrap() {
		assert.Equal(t, common.KindSkippable, common.KindOf(e))
	}
}

func TestWorkerProcessNeverBlocks(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	slow := component.SystemFunc("slow", func(component.Node, *component.Component, float32) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	})
	root := scene.NewRootNode(scene.WithChildren(
		component.NewComponentNode([]*component.Component{{ID: "s", System: "slow"}}),
	))
	sampler := profiler.NewFrameSampler()
	w := component.NewWorker(component.NewProcessor(component.NewSystems(slow), nil),
		component.WithMultiThread(true), component.WithSampler(sampler))

	w.Process(root, 0.016)
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never started processing")
	}

	begin := time.Now()
	for range 100 {
		w.Process(root, 0.016)
	}
	assert.Less(t, time.Since(begin), 100*time.Millisecond, "signalling a busy worker returns immediately")
	assert.True(t, w.Running())

	close(release)
	assert.Eventually(t, func() bool { return w.Processed() >= 2 }, 2*time.Second, time.Millisecond)

	w.Stop()
	w.Stop()
	assert.False(t, w.Running())
	processed := w.Processed()
	w.Process(root, 0.016)
	assert.Equal(t, processed, w.Processed(), "a stopped worker ignores frames")

	tags := sampler.Tags()
	require.Len(t, tags, 1)
	assert.Equal(t, profiler.TagComponentProcessor, tags[0].Name)
}

func TestWorkerInline(t *testing.T) {
	rec := newRecorder()
	root := scene.NewRootNode(scene.WithChildren(
		component.NewComponentNode([]*component.Component{recorded("c")}, scene.WithID("n")),
	))
	w := component.NewWorker(component.NewProcessor(component.NewSystems(rec), nil))
	assert.False(t, w.MultiThreaded())

	w.Process(root, 0.016)
	assert.Equal(t, uint64(1), w.Processed())
	assert.Equal(t, []string{"n"}, rec.visited)
	assert.False(t, w.Running())
}

func TestWorkerStopsOnPanic(t *testing.T) {
	var calls atomic.Int32
	panicking := component.SystemFunc("panic", func(component.Node, *component.Component, float32) error {
		calls.Add(1)
		panic("component bug")
	})
	root := scene.NewRootNode(scene.WithChildren(
		component.NewComponentNode([]*component.Component{{ID: "p", System: "panic"}}),
	))
	errs := make(chan error, 1)
	w := component.NewWorker(component.NewProcessor(component.NewSystems(panicking), nil),
		component.WithMultiThread(true),
		component.WithErrorHandler(func(err error) {
			select {
			case errs <- err:
			default:
			}
		}))

	w.Process(root, 0)
	select {
	case err := <-errs:
		assert.Contains(t, err.Error(), "component bug")
	case <-time.After(2 * time.Second):
		t.Fatal("panic was not reported")
	}
	assert.Eventually(t, func() bool { return !w.Running() }, 2*time.Second, time.Millisecond)
	w.Process(root, 0)
	w.Stop()
	assert.Equal(t, int32(1), calls.Load())
}

func TestComponentBuffer(t *testing.T) {
	b, err := component.NewComponentBuffer(3, 4)
	require.NoError(t, err)
	assert.Equal(t, 48, b.SizeInBytes())

	require.NoError(t, b.Put(1, 1, []float32{9, 1, 2, 3}, 1, 3))
	dest := make([]float32, 4)
	require.NoError(t, b.Get(1, dest))
	assert.Equal(t, []float32{0, 1, 2, 3}, dest)

	tests := map[string]func() error{
		"negative entity":  func() error { return b.Put(-1, 0, dest, 0, 1) },
		"entity too large": func() error { return b.Put(3, 0, dest, 0, 1) },
		"offset too large": func() error { return b.Put(0, 4, dest, 0, 1) },
		"overflow entity":  func() error { return b.Put(0, 2, dest, 0, 3) },
		"short source":     func() error { return b.Put(0, 0, dest, 3, 2) },
		"get out of range": func() error { return b.Get(3, dest) },
		"short dest":       func() error { return b.Get(0, dest[:2]) },
	}
	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, fn(), common.ErrInvalidArgument)
		})
	}
	assert.Equal(t, make([]float32, 4), b.Floats()[:4], "rejected writes leave the buffer untouched")

	_, err = component.NewComponentBuffer(0, 4)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestNativeComponentBuffer(t *testing.T) {
	api := backendtest.New()
	b, err := component.NewNativeComponentBuffer(api, 2, 2)
	require.NoError(t, err)
	assert.True(t, b.Dirty())

	require.NoError(t, b.Flush(api))
	assert.Len(t, api.Buffers[b.Name()], 16)
	assert.False(t, b.Dirty())
	require.NoError(t, b.Flush(api))
	assert.Len(t, api.CallsWithPrefix("BufferData"), 1, "clean buffers are not uploaded")

	require.NoError(t, b.Put(1, 0, []float32{1, 2}, 0, 2))
	assert.True(t, b.Dirty())
	require.NoError(t, b.Flush(api))
	assert.Len(t, api.CallsWithPrefix("BufferData"), 2)

	name := b.Name()
	b.Release(api)
	assert.NotContains(t, api.Buffers, name)
}

const componentScene = `
type: rootnode
children:
  - id: spinner
    type: componentnode
    components:
      - id: spin
        system: record
        properties:
          speed: 2.5
  - id: hero
    type: actornode
    properties:
      autoplay: "true"
    components:
      - id: walk
        system: record
`

func TestRegisterNodeTypes(t *testing.T) {
	registry := scene.NewRegistry()
	component.Register(registry)

	doc, err := scene.DecodeDocument(strings.NewReader(componentScene))
	require.NoError(t, err)
	root, err := registry.BuildRoot(doc)
	require.NoError(t, err)

	spinner, ok := root.NodeByID("spinner").(*component.ComponentNode)
	require.True(t, ok)
	require.Len(t, spinner.Components(), 1)
	assert.Equal(t, float32(2.5), spinner.Components()[0].Float("speed", 0))
	assert.Equal(t, float32(1), spinner.Components()[0].Float("missing", 1))

	hero, ok := root.NodeByID("hero").(*component.ActorNode)
	require.True(t, ok)
	assert.Same(t, root, hero.Parent())

	rec := newRecorder()
	require.NoError(t, component.NewProcessor(component.NewSystems(rec), nil).ProcessRoot(root, 0))
	assert.Equal(t, []string{"spinner", "hero"}, rec.visited)
	assert.Equal(t, component.StatePlay, hero.ControllerState())
}
