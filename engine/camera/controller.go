package camera

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Controller owns the positional state of a camera.
type Controller interface {
	// Position returns the eye position in world space.
	Position() mgl32.Vec3

	// Target returns the look-at point in world space.
	Target() mgl32.Vec3
}

// Orbit is a Controller placing the eye on a sphere around a target using radius, azimuth and elevation.
// Components drive it from the logic worker while the renderer reads it, so every method locks.
type Orbit struct {
	mu *sync.Mutex

	target    mgl32.Vec3
	position  mgl32.Vec3
	radius    float32
	azimuth   float32
	elevation float32

	minRadius, maxRadius       float32
	minElevation, maxElevation float32
}

var _ Controller = &Orbit{}

// NewOrbit creates an orbit controller around target.
//
// Parameters:
//   - target: the pivot point
//   - radius: the initial distance from the pivot, clamped to [0.1, 1000]
//
// Returns:
//   - *Orbit: the controller
func NewOrbit(target mgl32.Vec3, radius float32) *Orbit {
	o := &Orbit{
		mu:           &sync.Mutex{},
		target:       target,
		minRadius:    0.1,
		maxRadius:    1000,
		minElevation: -float32(math.Pi/2 - 0.1),
		maxElevation: float32(math.Pi/2 - 0.1),
	}
	o.radius = clamp(radius, o.minRadius, o.maxRadius)
	o.updatePosition()
	return o
}

func (o *Orbit) Position() mgl32.Vec3 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.position
}

func (o *Orbit) Target() mgl32.Vec3 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.target
}

// SetTarget moves the pivot and keeps the spherical offset.
func (o *Orbit) SetTarget(target mgl32.Vec3) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.target = target
	o.updatePosition()
}

// Rotate adds to azimuth and elevation, in radians. Elevation is clamped just short of the poles.
//
// Parameters:
//   - dAzimuth: rotation around the up axis
//   - dElevation: tilt toward the up axis
func (o *Orbit) Rotate(dAzimuth, dElevation float32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.azimuth += dAzimuth
	o.elevation = clamp(o.elevation+dElevation, o.minElevation, o.maxElevation)
	o.updatePosition()
}

// Zoom moves the eye toward the pivot by delta. Positive delta zooms in.
func (o *Orbit) Zoom(delta float32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.radius = clamp(o.radius-delta, o.minRadius, o.maxRadius)
	o.updatePosition()
}

// Radius returns the current distance from the pivot.
func (o *Orbit) Radius() float32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.radius
}

// updatePosition recomputes the eye position from spherical coordinates.
// Caller must hold the mutex.
func (o *Orbit) updatePosition() {
	cosElev := float32(math.Cos(float64(o.elevation)))
	sinElev := float32(math.Sin(float64(o.elevation)))
	cosAzim := float32(math.Cos(float64(o.azimuth)))
	sinAzim := float32(math.Sin(float64(o.azimuth)))

	o.position = mgl32.Vec3{
		o.target[0] + o.radius*cosElev*sinAzim,
		o.target[1] + o.radius*sinElev,
		o.target[2] + o.radius*cosElev*cosAzim,
	}
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
