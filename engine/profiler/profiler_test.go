package profiler_test

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/nucleus-go/engine/profiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func TestUpdateClampsToMinFPS(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	s := profiler.NewFrameSampler(profiler.WithMinFPS(30), profiler.WithClock(clock.now))

	assert.Zero(t, s.Update(), "first frame has no delta")

	clock.advance(10 * time.Millisecond)
	assert.InDelta(t, 0.01, s.Update(), 1e-6)

	clock.advance(5 * time.Second)
	assert.Equal(t, s.MaxDelta(), s.Update())
	assert.InDelta(t, 1.0/30, s.Delta(), 1e-6)

	s.Reset()
	clock.advance(time.Hour)
	assert.Zero(t, s.Update())
}

func TestFPSSample(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s := profiler.NewFrameSampler(
		profiler.WithClock(clock.now),
		profiler.WithSampleInterval(time.Second),
		profiler.WithLogging(false),
	)
	s.Update()
	for range 61 {
		clock.advance(time.Second / 60)
		s.Update()
	}
	assert.InDelta(t, 60, s.FPS(), 0.5)
	assert.Equal(t, uint64(61), s.Frames())
}

func TestTagsAndCounters(t *testing.T) {
	s := profiler.NewFrameSampler()
	s.Tag(profiler.TagBuildTBN, 2*time.Millisecond)
	s.Tag(profiler.TagBuildTBN, 4*time.Millisecond)
	s.Tag(profiler.TagCreateVBO, time.Millisecond)

	tags := s.Tags()
	require.Len(t, tags, 2)
	assert.Equal(t, profiler.TagBuildTBN, tags[0].Name)
	assert.Equal(t, 2, tags[0].Count)
	assert.Equal(t, 3*time.Millisecond, tags[0].Average())
	assert.Equal(t, 4*time.Millisecond, tags[0].Max)

	s.AddDrawArrays(3)
	s.AddDrawElements(6)
	s.AddDrawElements(6)
	s.AddCulled()
	assert.Equal(t, profiler.Counters{DrawArrays: 1, DrawArrayVertex: 3, DrawElements: 2, DrawElementIndex: 12, Culled: 1}, s.Counters())
}
