package profiler

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/nucleus-go/common/log"
)

// Timing tags recorded by the engine.
const (
	TagLoadBuffers        = "LOAD_BUFFERS"
	TagCreateTexture      = "CREATE_TEXTURE"
	TagCreateImage        = "CREATE_IMAGE"
	TagBuildTBN           = "BUILD_TBN"
	TagCreateVBO          = "CREATE_VBO"
	TagComponentProcessor = "COMPONENT_PROCESSOR"
	TagCompileProgram     = "COMPILE_PROGRAM"
)

// DefaultMinFPS is the frame-rate floor used when none is configured.
const DefaultMinFPS = 30

// TagStats is the accumulated time of one tag.
type TagStats struct {
	Name  string
	Count int
	Total time.Duration
	Max   time.Duration
}

// Average returns Total / Count.
func (t TagStats) Average() time.Duration {
	if t.Count == 0 {
		return 0
	}
	return t.Total / time.Duration(t.Count)
}

// Counters are the draw statistics since the last sample.
type Counters struct {
	DrawArrays       int
	DrawArrayVertex  int
	DrawElements     int
	DrawElementIndex int
	Culled           int
}

// FrameSampler measures frame deltas and frame rate and accumulates named timings.
// Update is called from the render goroutine; tags and counters may be added from any goroutine.
type FrameSampler struct {
	mu *sync.Mutex

	minFPS         int
	sampleInterval time.Duration
	logging        bool
	now            func() time.Time
	log            log.Log

	previous    time.Time
	delta       float32
	frames      int
	totalFrames uint64
	sampleStart time.Time
	fps         float64

	tags     map[string]*TagStats
	counters Counters

	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewFrameSampler creates a sampler with a 30 fps floor and a three second sample interval.
//
// Parameters:
//   - options: functional options to configure the sampler
//
// Returns:
//   - *FrameSampler: the newly created sampler
func NewFrameSampler(options ...FrameSamplerBuilderOption) *FrameSampler {
	s := &FrameSampler{
		mu:             &sync.Mutex{},
		minFPS:         DefaultMinFPS,
		sampleInterval: 3 * time.Second,
		logging:        true,
		now:            time.Now,
		log:            log.NewNop(),
		tags:           make(map[string]*TagStats),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// MaxDelta returns the largest delta Update can return, 1/minFPS seconds.
func (s *FrameSampler) MaxDelta() float32 {
	return 1 / float32(s.minFPS)
}

// Update advances the sampler by one frame and returns the seconds elapsed since the previous call,
// clamped to MaxDelta. The first call returns 0. When the sample interval has passed the frame rate is
// recomputed and, with logging enabled, written to the log together with memory and tag statistics.
//
// Returns:
//   - float32: the frame delta in seconds
func (s *FrameSampler) Update() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.previous.IsZero() {
		s.previous = now
		s.sampleStart = now
		s.delta = 0
		return 0
	}

	delta := float32(now.Sub(s.previous).Seconds())
	s.previous = now
	if maxDelta := 1 / float32(s.minFPS); delta > maxDelta {
		delta = maxDelta
	}
	if delta < 0 {
		delta = 0
	}
	s.delta = delta
	s.frames++
	s.totalFrames++

	if elapsed := now.Sub(s.sampleStart); elapsed >= s.sampleInterval {
		s.fps = float64(s.frames) / elapsed.Seconds()
		if s.logging {
			s.logSample()
		}
		s.frames = 0
		s.sampleStart = now
		s.counters = Counters{}
	}
	return delta
}

// Delta returns the value the last Update returned.
func (s *FrameSampler) Delta() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delta
}

// FPS returns the frame rate of the last completed sample interval.
func (s *FrameSampler) FPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fps
}

// Frames returns the number of frames measured since creation.
func (s *FrameSampler) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalFrames
}

// Tag adds one measurement of d to the named tag.
//
// Parameters:
//   - name: the tag, usually one of the Tag constants
//   - d: the measured duration
func (s *FrameSampler) Tag(name string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tags[name]
	if !ok {
		t = &TagStats{Name: name}
		s.tags[name] = t
	}
	t.Count++
	t.Total += d
	if d > t.Max {
		t.Max = d
	}
}

// TagSince adds the time elapsed since start to the named tag. Use it with defer.
func (s *FrameSampler) TagSince(name string, start time.Time) {
	s.Tag(name, s.now().Sub(start))
}

// Now returns the sampler clock.
func (s *FrameSampler) Now() time.Time {
	return s.now()
}

// Tags returns the accumulated tags sorted by name.
func (s *FrameSampler) Tags() []TagStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	tags := make([]TagStats, 0, len(s.tags))
	for _, t := range s.tags {
		tags = append(tags, *t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags
}

// AddDrawArrays counts one non-indexed draw of vertices vertices.
func (s *FrameSampler) AddDrawArrays(vertices int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.DrawArrays++
	s.counters.DrawArrayVertex += vertices
}

// AddDrawElements counts one indexed draw of indices indices.
func (s *FrameSampler) AddDrawElements(indices int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.DrawElements++
	s.counters.DrawElementIndex += indices
}

// AddCulled counts one primitive skipped by frustum culling.
func (s *FrameSampler) AddCulled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.Culled++
}

// Counters returns the draw counters of the current sample interval.
func (s *FrameSampler) Counters() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters
}

// Reset forgets the previous frame so the next Update returns 0, for example after the context was
// re-created or the application resumed.
func (s *FrameSampler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previous = time.Time{}
	s.frames = 0
}

// logSample writes frame rate, heap and tag statistics. Caller must hold the mutex.
func (s *FrameSampler) logSample() {
	runtime.ReadMemStats(&s.memStats)
	elapsed := s.now().Sub(s.sampleStart).Seconds()
	if elapsed <= 0 {
		elapsed = 1
	}
	// Alloc is live heap; TotalAlloc only grows and tracks churn
	allocMB := float64(s.memStats.Alloc) / 1024 / 1024
	allocRateMB := float64(s.memStats.TotalAlloc-s.lastTotalAlloc) / 1024 / 1024 / elapsed
	gcCount := s.memStats.NumGC

	s.log.Info("frame sample",
		log.Float64("fps", s.fps),
		log.Float64("heap_mb", allocMB),
		log.Float64("alloc_rate_mb_s", allocRateMB),
		log.Uint32("gc_count", gcCount-s.lastGCCount),
		log.Int("draw_arrays", s.counters.DrawArrays),
		log.Int("draw_arrays_vertices", s.counters.DrawArrayVertex),
		log.Int("draw_elements", s.counters.DrawElements),
		log.Int("draw_elements_indices", s.counters.DrawElementIndex),
		log.Int("culled", s.counters.Culled),
	)
	for _, t := range s.tags {
		s.log.Debug("timing tag",
			log.String("tag", t.Name),
			log.Int("count", t.Count),
			log.Duration("average", t.Average()),
			log.Duration("max", t.Max),
		)
	}

	s.lastGCCount = gcCount
	s.lastTotalAlloc = s.memStats.TotalAlloc
}
