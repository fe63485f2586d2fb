// ABOUTME: Audio type definitions
// ABOUTME: Defines samples, stereo frames and the packed transfer word layout
package audio

import "math"

const (
	// Silence is the mid-scale value of a full-range unsigned sample
	Silence uint16 = 0x8000

	// FullScale is the largest full-range unsigned sample
	FullScale = math.MaxUint16
)

// Format describes a PCM stream as delivered by a sample source
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// Frame is one stereo sample pair
type Frame struct {
	Left  uint16
	Right uint16
}

// Mono returns a frame with the same value on both channels
func Mono(v uint16) Frame {
	return Frame{Left: v, Right: v}
}

// Pack packs a frame into one transfer word: left in the upper half, right in the lower
func Pack(f Frame) uint32 {
	return uint32(f.Left)<<16 | uint32(f.Right)
}

// Unpack splits a transfer word into its frame
func Unpack(word uint32) Frame {
	return Frame{Left: uint16(word >> 16), Right: uint16(word)}
}

// MidPoint returns the silence level for a peripheral wrap value
func MidPoint(wrap uint16) uint16 {
	return wrap >> 1
}

// ToLevel maps a full-range sample onto [0, wrap]
func ToLevel(raw uint16, wrap uint16) uint16 {
	return uint16(uint32(raw) * uint32(wrap) / FullScale)
}

// ScaleLevel applies volume around the mid point and clamps into [0, wrap]
func ScaleLevel(level uint16, wrap uint16, volume float64) uint16 {
	mid := float64(MidPoint(wrap))
	out := math.Round((float64(level)-mid)*volume) + mid
	if out < 0 {
		return 0
	}
	if out > float64(wrap) {
		return wrap
	}
	return uint16(out)
}

// LevelToInt16 converts a peripheral level back to signed 16-bit PCM for monitoring
func LevelToInt16(level uint16, wrap uint16) int16 {
	if wrap == 0 {
		return 0
	}
	mid := int32(MidPoint(wrap))
	v := (int32(level) - mid) * math.MaxInt16 / mid
	if v > math.MaxInt16 {
		v = math.MaxInt16
	} else if v < math.MinInt16 {
		v = math.MinInt16
	}
	return int16(v)
}
