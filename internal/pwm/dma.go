// ABOUTME: Software model of two chained DMA channels feeding the PWM compare register
// ABOUTME: Transfers one word per PWM period and raises a completion interrupt per buffer
package pwm

import (
	"sync"

	"github.com/pwmaudio/pwmaudio-go/internal/audio"
)

// IRQHandler is called from the hardware context when a descriptor completes.
// It must not block; returning false leaves the interrupt pending so it is raised again.
type IRQHandler func(index int) bool

// Descriptor is one DMA channel reading a transfer buffer into the compare register
type Descriptor struct {
	Channel int      // DMA channel number
	Buffer  []uint32 // Read address and transfer count
	ChainTo int      // Descriptor triggered on completion
	armed   bool     // Owned by hardware
}

// EngineStats counts hardware activity
type EngineStats struct {
	Transfers   uint64 // Words written to the compare register
	Completions uint64 // Descriptors drained
	Underruns   uint64 // Times the chain reached a buffer software had not re-armed
	IRQsDropped uint64 // Interrupt deliveries refused by the handler (retried later)
}

// Engine moves words from the armed transfer buffers to the output channels
type Engine struct {
	mu       sync.Mutex
	desc     [2]*Descriptor
	channels []*OutputChannel
	active   int
	pos      int
	running  bool
	stalled  bool
	hold     uint32 // Current compare register value
	idle     uint32 // Value seen while disabled
	pending  []int  // Completed descriptors awaiting interrupt delivery
	irq      IRQHandler
	stats    EngineStats
}

// NewEngine creates an engine with two descriptors chained to each other
func NewEngine(buffers [2][]uint32, channels []*OutputChannel) *Engine {
	return &Engine{
		desc: [2]*Descriptor{
			{Channel: 0, Buffer: buffers[0], ChainTo: 1},
			{Channel: 1, Buffer: buffers[1], ChainTo: 0},
		},
		channels: channels,
	}
}

// SetIRQHandler installs the completion interrupt handler
func (e *Engine) SetIRQHandler(h IRQHandler) {
	e.mu.Lock()
	e.irq = h
	e.mu.Unlock()
}

// SetIdleLevel sets the level reported while output is disabled
func (e *Engine) SetIdleLevel(level uint16) {
	e.mu.Lock()
	e.idle = audio.Pack(audio.Mono(level))
	if !e.running {
		e.hold = e.idle
	}
	e.mu.Unlock()
}

// Arm hands buffer index to the hardware. It reports false if it was already armed or out of range.
func (e *Engine) Arm(index int) bool {
	if index < 0 || index >= len(e.desc) {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	d := e.desc[index]
	if d.armed {
		return false
	}
	d.armed = true
	return true
}

// Armed reports whether buffer index is owned by the hardware
func (e *Engine) Armed(index int) bool {
	if index < 0 || index >= len(e.desc) {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.desc[index].armed
}

// SetEnabled starts or stops both DMA channels and all output channels in one operation.
// Starting restarts the chain at descriptor 0.
func (e *Engine) SetEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if enabled {
		e.active = 0
		e.pos = 0
		e.stalled = false
		e.pending = e.pending[:0]
	} else {
		e.hold = e.idle
		for _, d := range e.desc {
			d.armed = false
		}
	}
	e.running = enabled

	for _, oc := range e.channels {
		oc.Enabled = enabled
		if !enabled {
			oc.Level = audio.Unpack(e.idle).Left
		}
	}
}

// Running reports whether the DMA chain is enabled
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Fill performs len(dst) PWM periods, writing the compare value of each into dst.
// It is called only from the hardware context.
func (e *Engine) Fill(dst []uint32) {
	e.mu.Lock()

	for i := range dst {
		if !e.running {
			dst[i] = e.idle
			continue
		}

		d := e.desc[e.active]
		if !d.armed {
			// Chain reached a buffer that was not refilled in time; the compare value holds
			if !e.stalled {
				e.stalled = true
				e.stats.Underruns++
			}
			dst[i] = e.hold
			continue
		}
		e.stalled = false

		e.hold = d.Buffer[e.pos]
		dst[i] = e.hold
		e.pos++
		e.stats.Transfers++

		if e.pos == len(d.Buffer) {
			d.armed = false
			e.pending = append(e.pending, e.active)
			e.stats.Completions++
			e.pos = 0
			e.active = d.ChainTo
		}
	}

	if e.running && len(dst) > 0 {
		f := audio.Unpack(e.hold)
		for _, oc := range e.channels {
			if oc.ID == Right {
				oc.Level = f.Right
			} else {
				oc.Level = f.Left
			}
		}
	}

	e.mu.Unlock()
	e.raise()
}

// raise delivers pending interrupts in completion order, stopping at the first refusal
func (e *Engine) raise() {
	for {
		e.mu.Lock()
		if len(e.pending) == 0 || e.irq == nil {
			e.mu.Unlock()
			return
		}
		index, irq := e.pending[0], e.irq
		e.mu.Unlock()

		delivered := irq(index)

		e.mu.Lock()
		if !delivered {
			e.stats.IRQsDropped++
			e.mu.Unlock()
			return
		}
		// Stop/Start may have cleared the queue while the handler ran
		if len(e.pending) > 0 && e.pending[0] == index {
			e.pending = e.pending[1:]
		}
		e.mu.Unlock()
	}
}

// Levels returns the current compare level of each output channel
func (e *Engine) Levels() map[ChannelID]uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()

	levels := make(map[ChannelID]uint16, len(e.channels))
	for _, oc := range e.channels {
		levels[oc.ID] = oc.Level
	}
	return levels
}

// Stats returns a snapshot of the engine counters
func (e *Engine) Stats() EngineStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}
