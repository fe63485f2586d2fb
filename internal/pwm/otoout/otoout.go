// ABOUTME: Audio device hardware context using oto
// ABOUTME: The device's read callback pulls PWM periods through the DMA engine
package otoout

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/pwmaudio/pwmaudio-go/internal/pwm"
)

// DeviceRate is the rate the audio device is opened at
const DeviceRate = 48000

// BufferDuration is the audio queued ahead of the device. oto's default of half a
// second would drain both transfer buffers in one read.
const BufferDuration = 5 * time.Millisecond

// Output plays the PWM output on the default audio device
type Output struct {
	otoCtx *oto.Context
	stream *pwm.Stream
	driver *pwm.Driver
}

// New opens the audio device. Only one Output may exist per process.
func New(driver *pwm.Driver, meter *pwm.Meter) (*Output, error) {
	op := &oto.NewContextOptions{
		SampleRate:   DeviceRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   20 * time.Millisecond,
	}

	otoCtx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	log.Printf("Audio output initialized: %dHz, 2 channels", DeviceRate)

	return &Output{
		otoCtx: otoCtx,
		stream: pwm.NewStream(driver, DeviceRate, meter),
		driver: driver,
	}, nil
}

// Run plays until ctx is done
func (o *Output) Run(ctx context.Context) error {
	player := o.otoCtx.NewPlayer(o.stream)
	player.SetBufferSize(PlayerBufferSize(o.driver.TransferLen()))
	player.Play()

	<-ctx.Done()

	player.Pause()
	if err := player.Close(); err != nil {
		return fmt.Errorf("failed to close player: %w", err)
	}
	return o.otoCtx.Suspend()
}

// PlayerBufferSize returns the player buffer in bytes: BufferDuration of device frames,
// but no more than half a transfer buffer so the other half stays armed
func PlayerBufferSize(transferLen int) int {
	frames := int(int64(DeviceRate) * int64(BufferDuration) / int64(time.Second))
	frames = max(1, min(frames, transferLen/2))
	return frames * pwm.BytesPerFrame
}
