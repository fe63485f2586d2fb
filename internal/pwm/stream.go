// ABOUTME: Signed 16-bit stereo PCM stream over the DMA engine for an audio device
// ABOUTME: Converts PWM levels to samples and holds each tick across device frames
package pwm

import (
	"encoding/binary"

	"github.com/pwmaudio/pwmaudio-go/internal/audio"
)

// BytesPerFrame is the size of one little-endian int16 stereo frame
const BytesPerFrame = 4

// Stream is an io.Reader that runs the engine at the device's pace.
// Each Read advances the engine by the PWM periods that elapse during the bytes returned,
// never more than one transfer buffer, so a large device request gets a short read.
type Stream struct {
	driver     *Driver
	meter      *Meter
	deviceRate int
	words      []uint32
	held       uint32
	carry      float64
}

// NewStream creates a stream producing deviceRate frames per second
func NewStream(driver *Driver, deviceRate int, meter *Meter) *Stream {
	return &Stream{
		driver:     driver,
		meter:      meter,
		deviceRate: deviceRate,
		held:       audio.Pack(audio.Mono(driver.Config().MidPoint())),
	}
}

// Read fills p with whole frames. It never fails; a stopped engine reads as silence.
func (s *Stream) Read(p []byte) (int, error) {
	frames := len(p) / BytesPerFrame
	if frames == 0 {
		return 0, nil
	}

	cfg := s.driver.Config()
	frames = min(frames, s.MaxFrames(cfg))

	exact := float64(frames)*cfg.TickRate()/float64(s.deviceRate) + s.carry
	ticks := int(exact)
	s.carry = exact - float64(ticks)

	var words []uint32
	if ticks == 0 {
		// No PWM period ends during these frames; repeat the held level
		words = []uint32{s.held}
		ticks = 1
	} else {
		if cap(s.words) < ticks {
			s.words = make([]uint32, ticks)
		}
		words = s.words[:ticks]
		s.driver.Engine().Fill(words)
		s.held = words[ticks-1]
		if s.meter != nil {
			s.meter.Observe(words, cfg.Wrap)
		}
	}

	for i := 0; i < frames; i++ {
		f := audio.Unpack(words[i*ticks/frames])
		binary.LittleEndian.PutUint16(p[i*BytesPerFrame:], uint16(audio.LevelToInt16(f.Left, cfg.Wrap)))
		binary.LittleEndian.PutUint16(p[i*BytesPerFrame+2:], uint16(audio.LevelToInt16(f.Right, cfg.Wrap)))
	}

	return frames * BytesPerFrame, nil
}

// MaxFrames returns the most device frames one Read serves at cfg: the frames
// during which at most one transfer buffer of PWM periods elapses
func (s *Stream) MaxFrames(cfg Config) int {
	return max(1, int(float64(s.driver.TransferLen())*float64(s.deviceRate)/cfg.TickRate()))
}
