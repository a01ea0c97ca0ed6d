package backend

import "github.com/Carmen-Shannon/nucleus-go/common/log"

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately. May tear.
	PresentModeUncapped
)

// MSAASampleCount is the multisample anti-aliasing sample count of the default framebuffer.
type MSAASampleCount uint32

const (
	MSAAOff MSAASampleCount = 1
	MSAA4x  MSAASampleCount = 4
	MSAA8x  MSAASampleCount = 8
	MSAA16x MSAASampleCount = 16
)

// Options are the construction settings shared by every concrete backend factory.
type Options struct {
	PresentMode          PresentMode
	MSAA                 MSAASampleCount
	ForceFallbackAdapter bool
	Logger               log.Log
}

// BuilderOption is a functional option applied to Options by a concrete backend factory.
type BuilderOption func(*Options)

// NewOptions applies options on top of the defaults: vsync, no MSAA, hardware adapter and the default logger.
func NewOptions(options ...BuilderOption) Options {
	o := Options{
		PresentMode: PresentModeVSync,
		MSAA:        MSAAOff,
	}
	for _, opt := range options {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = log.Provide()
	}
	return o
}

// WithPresentMode sets the surface present mode.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - BuilderOption: a function that applies the present mode option
func WithPresentMode(mode PresentMode) BuilderOption {
	return func(o *Options) {
		o.PresentMode = mode
	}
}

// WithMSAA sets the multisample sample count. Values above 4 are adapter-dependent on explicit APIs.
//
// Parameters:
//   - count: the MSAASampleCount to use
//
// Returns:
//   - BuilderOption: a function that applies the MSAA option
func WithMSAA(count MSAASampleCount) BuilderOption {
	return func(o *Options) {
		o.MSAA = count
	}
}

// WithForceSoftwareRenderer requests a CPU fallback adapter where the API supports one.
func WithForceSoftwareRenderer(force bool) BuilderOption {
	return func(o *Options) {
		o.ForceFallbackAdapter = force
	}
}

// WithLogger sets the logger the backend writes to.
func WithLogger(l log.Log) BuilderOption {
	return func(o *Options) {
		o.Logger = l
	}
}
