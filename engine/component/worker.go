package component

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/nucleus-go/common/log"
	"github.com/Carmen-Shannon/nucleus-go/engine/profiler"
	"github.com/Carmen-Shannon/nucleus-go/engine/scene"
)

// frame is the latest root and delta handed to the worker.
type frame struct {
	root  scene.Node
	delta float32
}

// Worker runs a Processor once per frame, either inline or on its own goroutine.
//
// In multi-threaded mode Process never blocks: it replaces the pending frame and signals the goroutine
// through a channel of capacity one. If the goroutine is still busy the signal stays pending and the
// goroutine picks up the newest frame when it finishes, so intermediate frames are skipped.
type Worker interface {
	// Process hands the root and frame delta to the worker.
	//
	// Parameters:
	//   - root: the scene root
	//   - delta: seconds since the previous frame
	Process(root scene.Node, delta float32)

	// Stop asks the goroutine to exit and waits until it has. A pass that is already running completes
	// first. Safe to call more than once.
	Stop()

	// Running reports whether the goroutine is started and not stopped.
	Running() bool

	// MultiThreaded reports whether processing happens off the calling goroutine.
	MultiThreaded() bool

	// Processed returns the number of completed process passes.
	Processed() uint64
}

type worker struct {
	processor   *Processor
	multiThread bool
	log         log.Log
	sampler     *profiler.FrameSampler
	onError     func(error)

	pending atomic.Pointer[frame]
	signal  chan struct{}
	quit    chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
	running   atomic.Bool
	stopped   atomic.Bool
	processed atomic.Uint64
}

var _ Worker = &worker{}

// NewWorker creates a worker around processor. The goroutine is started lazily by the first Process call.
//
// Parameters:
//   - processor: the processor run each frame
//   - options: functional options to configure the worker
//
// Returns:
//   - Worker: the worker
func NewWorker(processor *Processor, options ...WorkerBuilderOption) Worker {
	w := &worker{
		processor: processor,
		log:       log.NewNop(),
		signal:    make(chan struct{}, 1),
		quit:      make(chan struct{}),
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

func (w *worker) Process(root scene.Node, delta float32) {
	if !w.multiThread {
		w.run(&frame{root: root, delta: delta})
		return
	}
	if w.stopped.Load() {
		return
	}
	w.pending.Store(&frame{root: root, delta: delta})
	w.startOnce.Do(w.start)

	select {
	case w.signal <- struct{}{}:
	default:
		// a signal is already pending and will pick up the frame stored above
	}
}

func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		w.stopped.Store(true)
		w.running.Store(false)
		close(w.quit)
	})
	w.wg.Wait()
}

func (w *worker) Running() bool {
	return w.running.Load()
}

func (w *worker) MultiThreaded() bool {
	return w.multiThread
}

func (w *worker) Processed() uint64 {
	return w.processed.Load()
}

func (w *worker) start() {
	w.running.Store(true)
	w.wg.Add(1)
	go w.loop()
	w.log.Info("component worker started")
}

// loop waits for a signal, processes the newest frame and waits again. The running flag is checked after
// every wake so Stop takes effect at the next pass boundary.
func (w *worker) loop() {
	defer w.wg.Done()
	defer w.log.Info("component worker stopped")

	for {
		select {
		case <-w.quit:
			return
		case <-w.signal:
		}
		if !w.running.Load() {
			return
		}
		f := w.pending.Swap(nil)
		if f == nil {
			continue
		}
		if !w.run(f) {
			w.running.Store(false)
			return
		}
	}
}

// run processes one frame and reports false if the processor panicked.
func (w *worker) run(f *frame) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("component processor panicked: %v", r)
			w.log.Error("component worker recovered from panic", log.Error(err))
			w.report(err)
			ok = false
		}
	}()

	if w.sampler != nil {
		defer w.sampler.TagSince(profiler.TagComponentProcessor, w.sampler.Now())
	}
	if err := w.processor.ProcessRoot(f.root, f.delta); err != nil {
		w.log.Warn("component processing failed", log.Error(err))
		w.report(err)
	}
	w.processed.Add(1)
	return true
}

func (w *worker) report(err error) {
	if w.onError != nil {
		w.onError(err)
	}
}
