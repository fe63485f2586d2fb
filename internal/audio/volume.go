// ABOUTME: Lock-free volume shared between the control loop and the refill path
// ABOUTME: Stores a float64 in [0, 1] as atomic bits, stepped in tenths
package audio

import (
	"math"
	"sync/atomic"
)

// VolumeStep is the change applied by one volume button press
const VolumeStep = 0.1

// Volume is a scalar in [0, 1] that is read far more often than written
type Volume struct {
	bits atomic.Uint64
}

// NewVolume creates a volume set to v (clamped)
func NewVolume(v float64) *Volume {
	vol := &Volume{}
	vol.Set(v)
	return vol
}

// Load returns the current volume
func (v *Volume) Load() float64 {
	return math.Float64frombits(v.bits.Load())
}

// Set stores a new volume, clamped to [0, 1] and rounded to hundredths
func (v *Volume) Set(value float64) float64 {
	value = clampVolume(value)
	v.bits.Store(math.Float64bits(value))
	return value
}

// Step adjusts the volume by delta and returns the new value
func (v *Volume) Step(delta float64) float64 {
	// Single writer (the control loop), so load-then-store is enough
	return v.Set(v.Load() + delta)
}

func clampVolume(value float64) float64 {
	if math.IsNaN(value) || value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return math.Round(value*100) / 100
}
