package profiler

import (
	"time"

	"github.com/Carmen-Shannon/nucleus-go/common/log"
)

// FrameSamplerBuilderOption is a functional option for configuring a FrameSampler.
type FrameSamplerBuilderOption func(*FrameSampler)

// WithMinFPS sets the frame-rate floor. Values below 1 are ignored.
//
// Parameters:
//   - fps: the lowest frame rate the delta is allowed to express
//
// Returns:
//   - FrameSamplerBuilderOption: option function to apply
func WithMinFPS(fps int) FrameSamplerBuilderOption {
	return func(s *FrameSampler) {
		if fps >= 1 {
			s.minFPS = fps
		}
	}
}

// WithSampleInterval sets how often the frame rate is recomputed.
func WithSampleInterval(d time.Duration) FrameSamplerBuilderOption {
	return func(s *FrameSampler) {
		if d > 0 {
			s.sampleInterval = d
		}
	}
}

// WithLogging enables or disables the periodic log output.
func WithLogging(enabled bool) FrameSamplerBuilderOption {
	return func(s *FrameSampler) {
		s.logging = enabled
	}
}

// WithLogger sets the logger samples are written to.
func WithLogger(l log.Log) FrameSamplerBuilderOption {
	return func(s *FrameSampler) {
		s.log = l
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) FrameSamplerBuilderOption {
	return func(s *FrameSampler) {
		s.now = now
	}
}
