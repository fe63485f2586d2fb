// ABOUTME: Peak level meter over transfer words leaving the engine
// ABOUTME: Safe to update from the hardware context and read from the UI
package pwm

import (
	"math"
	"sync/atomic"

	"github.com/pwmaudio/pwmaudio-go/internal/audio"
)

// Meter tracks the peak deviation from the mid point, per channel, since the last read
type Meter struct {
	left  atomic.Uint32
	right atomic.Uint32
}

// Observe records the peaks of words produced at the given wrap
func (m *Meter) Observe(words []uint32, wrap uint16) {
	if wrap == 0 {
		return
	}
	mid := int32(audio.MidPoint(wrap))

	var l, r int32
	for _, w := range words {
		f := audio.Unpack(w)
		l = max(l, abs32(int32(f.Left)-mid))
		r = max(r, abs32(int32(f.Right)-mid))
	}

	storeMax(&m.left, scalePeak(l, mid))
	storeMax(&m.right, scalePeak(r, mid))
}

// Peaks returns the left and right peaks in [0, 1] and resets them
func (m *Meter) Peaks() (left, right float64) {
	l := m.left.Swap(0)
	r := m.right.Swap(0)
	return float64(l) / math.MaxUint16, float64(r) / math.MaxUint16
}

func scalePeak(dev, mid int32) uint32 {
	if mid == 0 {
		return 0
	}
	v := uint32(dev) * math.MaxUint16 / uint32(mid)
	return min(v, math.MaxUint16)
}

func storeMax(a *atomic.Uint32, v uint32) {
	for {
		cur := a.Load()
		if v <= cur || a.CompareAndSwap(cur, v) {
			return
		}
	}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
