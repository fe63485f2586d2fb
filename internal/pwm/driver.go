// ABOUTME: PWM output driver owning the channel registry, transfer buffers and DMA engine
// ABOUTME: Start and stop switch DMA and PWM together; timing changes only while stopped
package pwm

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

var (
	// ErrRunning is returned when reconfiguring a driver that is producing output
	ErrRunning = errors.New("pwm: driver is running")

	// ErrBufferArmed is returned when software touches a buffer owned by the hardware
	ErrBufferArmed = errors.New("pwm: transfer buffer is armed")
)

// Driver is the PWM output with its two chained DMA descriptors
type Driver struct {
	mu       sync.Mutex
	cfg      Config
	registry *Registry
	buffers  [2][]uint32
	engine   *Engine
	stereo   bool
}

// NewDriver claims the output pins and allocates two transfer buffers of transferLen words.
// A stereo driver drives the right channel on pin+1.
func NewDriver(pin int, stereo bool, transferLen int, cfg Config) (*Driver, error) {
	if transferLen <= 0 {
		return nil, fmt.Errorf("transfer length %d must be positive", transferLen)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	registry := NewRegistry()
	if _, err := registry.Claim(Left, pin); err != nil {
		return nil, err
	}
	if stereo {
		if _, err := registry.Claim(Right, pin+1); err != nil {
			return nil, err
		}
	}

	d := &Driver{
		cfg:      cfg,
		registry: registry,
		stereo:   stereo,
	}
	for i := range d.buffers {
		d.buffers[i] = make([]uint32, transferLen)
	}
	d.engine = NewEngine(d.buffers, registry.Channels())
	d.engine.SetIdleLevel(cfg.MidPoint())

	for _, oc := range registry.Channels() {
		log.Printf("PWM %s channel on GPIO %d (slice %d, channel %c)", oc.ID, oc.Pin, oc.Slice, 'A'+oc.Channel)
	}
	log.Printf("PWM configured: %s", cfg)

	return d, nil
}

// Reconfigure changes the peripheral timing. The driver must be stopped.
func (d *Driver) Reconfigure(cfg Config) error {
	if d.engine.Running() {
		return ErrRunning
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()

	d.engine.SetIdleLevel(cfg.MidPoint())
	log.Printf("PWM reconfigured: %s", cfg)
	return nil
}

// Config returns the current timing
func (d *Driver) Config() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Start enables both DMA channels and all output channels at once, beginning with buffer 0
func (d *Driver) Start() {
	d.engine.SetEnabled(true)
}

// Stop disables DMA and output together. Both transfer buffers return to software.
func (d *Driver) Stop() {
	d.engine.SetEnabled(false)
}

// Running reports whether output is enabled
func (d *Driver) Running() bool {
	return d.engine.Running()
}

// Stereo reports whether a right channel was claimed
func (d *Driver) Stereo() bool {
	return d.stereo
}

// TransferLen returns the number of words per transfer buffer
func (d *Driver) TransferLen() int {
	return len(d.buffers[0])
}

// Buffer returns transfer buffer index for writing. It fails while the hardware owns it.
func (d *Driver) Buffer(index int) ([]uint32, error) {
	if index < 0 || index > 1 {
		return nil, fmt.Errorf("transfer buffer %d out of range", index)
	}
	if d.engine.Armed(index) {
		return nil, fmt.Errorf("buffer %d: %w", index, ErrBufferArmed)
	}
	return d.buffers[index], nil
}

// Arm hands a filled transfer buffer back to the hardware
func (d *Driver) Arm(index int) error {
	if index < 0 || index > 1 {
		return fmt.Errorf("transfer buffer %d out of range", index)
	}
	if !d.engine.Arm(index) {
		return fmt.Errorf("buffer %d: %w", index, ErrBufferArmed)
	}
	return nil
}

// Engine returns the DMA engine for a hardware context to drive
func (d *Driver) Engine() *Engine {
	return d.engine
}

// Registry returns the claimed output channels
func (d *Driver) Registry() *Registry {
	return d.registry
}

// Levels returns the last compare level of each output channel
func (d *Driver) Levels() map[ChannelID]uint16 {
	return d.engine.Levels()
}

// Stats returns the engine counters
func (d *Driver) Stats() EngineStats {
	return d.engine.Stats()
}
