// ABOUTME: Transfer ring refill from the staging double buffer into DMA transfer buffers
// ABOUTME: Applies repeat-shift oversampling, volume scaling and word packing
package ring

import (
	"errors"
	"fmt"

	"github.com/pwmaudio/pwmaudio-go/internal/audio"
	"github.com/pwmaudio/pwmaudio-go/internal/pwm"
	"github.com/pwmaudio/pwmaudio-go/internal/staging"
)

// ErrOutOfOrder is returned for a refill request that does not match the next free buffer
var ErrOutOfOrder = errors.New("ring: refill out of order")

// Output is the pair of transfer buffers the ring writes into
type Output interface {
	Buffer(index int) ([]uint32, error)
	Arm(index int) error
}

// Stats counts refill activity
type Stats struct {
	Refills      uint64 // Transfer buffers filled and armed
	Populates    uint64 // Staging populate requests raised
	StagingLate  uint64 // Staging halves replayed because the populate had not run
	StaleRefills uint64 // Refill requests ignored
}

// Ring converts staged samples into transfer words
type Ring struct {
	out     Output
	staging *staging.Buffer
	volume  *audio.Volume

	channels int
	shift    uint
	wrap     uint16

	cur      []uint16 // Staging half being read
	curIndex int
	tick     int
	next     int // Transfer buffer expected next

	onExhausted func()
	stats       Stats
}

// New creates a ring reading sb and writing out. onExhausted is called whenever a
// staging half has been consumed and the other half should be populated.
func New(out Output, sb *staging.Buffer, volume *audio.Volume, cfg pwm.Config, channels int, onExhausted func()) (*Ring, error) {
	r := &Ring{
		out:         out,
		staging:     sb,
		volume:      volume,
		onExhausted: onExhausted,
	}
	if err := r.Reset(cfg, channels); err != nil {
		return nil, err
	}
	return r, nil
}

// Reset restarts reading at the first staging half with a new timing and channel layout.
// Output must be stopped and the staging buffer freshly primed.
func (r *Ring) Reset(cfg pwm.Config, channels int) error {
	if channels != 1 && channels != 2 {
		return fmt.Errorf("unsupported channel count %d", channels)
	}
	if r.staging.Len()%channels != 0 {
		return fmt.Errorf("staging length %d not a whole number of %d-channel frames", r.staging.Len(), channels)
	}

	r.channels = channels
	r.shift = cfg.RepeatShift
	r.wrap = cfg.Wrap
	r.cur = r.staging.Half(0)
	r.curIndex = 0
	r.tick = 0
	r.next = 0
	return nil
}

// Refill writes the next run of words into transfer buffer index and re-arms it
func (r *Ring) Refill(index int) error {
	if index != r.next {
		r.stats.StaleRefills++
		return fmt.Errorf("%w: buffer %d, expected %d", ErrOutOfOrder, index, r.next)
	}

	buf, err := r.out.Buffer(index)
	if err != nil {
		r.stats.StaleRefills++
		return err
	}

	vol := r.volume.Load()
	frames := len(r.cur) / r.channels
	end := frames << r.shift

	for i := range buf {
		frame := (r.tick >> r.shift) * r.channels

		left := audio.ScaleLevel(audio.ToLevel(r.cur[frame], r.wrap), r.wrap, vol)
		right := left
		if r.channels == 2 {
			right = audio.ScaleLevel(audio.ToLevel(r.cur[frame+1], r.wrap), r.wrap, vol)
		}
		buf[i] = audio.Pack(audio.Frame{Left: left, Right: right})

		r.tick++
		if r.tick == end {
			r.advance()
		}
	}

	if err := r.out.Arm(index); err != nil {
		return err
	}
	r.next = 1 - index
	r.stats.Refills++
	return nil
}

// advance moves to the most recently completed staging half and asks for the drained one to be refilled
func (r *Ring) advance() {
	if r.staging.LastIndex() == r.curIndex {
		r.stats.StagingLate++
	}
	r.curIndex = r.staging.LastIndex()
	r.cur = r.staging.Last()
	r.tick = 0

	r.stats.Populates++
	if r.onExhausted != nil {
		r.onExhausted()
	}
}

// Next returns the transfer buffer the ring will fill next
func (r *Ring) Next() int {
	return r.next
}

// Stats returns a snapshot of the ring counters
func (r *Ring) Stats() Stats {
	return r.stats
}
