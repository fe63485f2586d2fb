// ABOUTME: RAM staging double buffer between sample sources and the transfer ring
// ABOUTME: One half is drained by the refill path while the other is filled from the source
package staging

import (
	"fmt"
)

// Puller is anything that can fill a buffer with samples
type Puller interface {
	Pull(dst []uint16)
}

// Buffer is a pair of equally sized sample buffers filled alternately
type Buffer struct {
	halves [2][]uint16
	last   int // Half most recently filled
	src    Puller
	fills  uint64
}

// New creates the double buffer over a and b and fills both halves from src before returning.
// Current is then the first half.
func New(a, b []uint16, src Puller) (*Buffer, error) {
	if len(a) == 0 || len(a) != len(b) {
		return nil, fmt.Errorf("staging halves must be equal and non-empty: %d vs %d", len(a), len(b))
	}

	sb := &Buffer{halves: [2][]uint16{a, b}}
	sb.Restart(src)
	return sb, nil
}

// Restart switches to a new source and re-primes both halves.
// Output must be stopped while this runs.
func (b *Buffer) Restart(src Puller) []uint16 {
	b.src = src
	b.last = 1 // Flipped to 0 by the first fill

	b.PopulateNext()
	b.PopulateNext()

	return b.halves[0]
}

// PopulateNext flips the active half and fills it from the source, verbatim
func (b *Buffer) PopulateNext() {
	b.last = 1 - b.last
	b.src.Pull(b.halves[b.last])
	b.fills++
}

// Last returns the most recently completed half
func (b *Buffer) Last() []uint16 {
	return b.halves[b.last]
}

// LastIndex returns which half was filled most recently
func (b *Buffer) LastIndex() int {
	return b.last
}

// Half returns half i (0 or 1)
func (b *Buffer) Half(i int) []uint16 {
	return b.halves[i]
}

// Len returns the number of samples in each half
func (b *Buffer) Len() int {
	return len(b.halves[0])
}

// Fills returns how many halves have been populated since creation
func (b *Buffer) Fills() uint64 {
	return b.fills
}
