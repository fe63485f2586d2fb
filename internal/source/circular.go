// ABOUTME: Circular sample buffer held in memory
// ABOUTME: Repeats a fixed clip forever, optionally shifting narrow samples to full range
package source

import (
	"fmt"
	"math"
	"sync"

	"github.com/pwmaudio/pwmaudio-go/internal/audio"
	"github.com/pwmaudio/pwmaudio-go/internal/wave"
)

// ChimeRate is the sample rate of the built-in clip
const ChimeRate = 11000

// Circular replays a constant buffer, wrapping at its end
type Circular struct {
	data     []uint16
	channels int
	shift    uint
	rate     int
	pos      int
	laps     uint32
}

// NewCircular creates a circular source over data (interleaved when channels is 2).
// Each value is shifted left by shift bits on output.
func NewCircular(data []uint16, channels int, shift uint, rate int) (*Circular, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("unsupported channel count: %d", channels)
	}
	if len(data) == 0 || len(data)%channels != 0 {
		return nil, fmt.Errorf("buffer length %d is not a positive multiple of %d channels", len(data), channels)
	}
	if shift > 15 {
		return nil, fmt.Errorf("shift %d out of range", shift)
	}

	return &Circular{
		data:     data,
		channels: channels,
		shift:    shift,
		rate:     rate,
	}, nil
}

// Pull copies len(dst) samples, wrapping as often as needed
func (c *Circular) Pull(dst []uint16) {
	for i := range dst {
		dst[i] = c.data[c.pos] << c.shift
		c.pos++
		if c.pos == len(c.data) {
			c.pos = 0
			c.laps++
		}
	}
}

// Position returns the index of the next sample
func (c *Circular) Position() int {
	return c.pos
}

// Laps returns how many times the buffer has wrapped; it may itself wrap
func (c *Circular) Laps() uint32 {
	return c.laps
}

// Format returns the clip's format
func (c *Circular) Format() audio.Format {
	return audio.Format{SampleRate: c.rate, Channels: c.channels, BitDepth: 16 - int(c.shift)}
}

// LoadWave reads a whole WAV file into a circular source
func LoadWave(f *wave.File) (*Circular, error) {
	data := make([]uint16, f.Frames()*f.Channels)
	if err := f.Rewind(); err != nil {
		return nil, err
	}
	if err := f.Read(data); err != nil {
		return nil, fmt.Errorf("load %s: %w", f.Name(), err)
	}
	return NewCircular(data, f.Channels, 0, f.SampleRate)
}

var chime = sync.OnceValue(func() []uint16 {
	// One second of a decaying two-partial bell, 12-bit like a flash sample table
	data := make([]uint16, ChimeRate)
	for i := range data {
		t := float64(i) / ChimeRate
		env := math.Exp(-4 * t)
		v := env * (0.6*math.Sin(2*math.Pi*880*t) + 0.3*math.Sin(2*math.Pi*1320*t))
		data[i] = toSample(v) >> 4
	}
	return data
})

// Chime returns a circular source over the built-in clip
func Chime() *Circular {
	c, _ := NewCircular(chime(), 1, 4, ChimeRate)
	return c
}

// WithRate returns a new circular source over the same data, played at rate
func (c *Circular) WithRate(rate int) *Circular {
	return &Circular{data: c.data, channels: c.channels, shift: c.shift, rate: rate}
}
