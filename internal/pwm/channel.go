// ABOUTME: Registry of claimed PWM output channels
// ABOUTME: Maps logical audio channels to pins, slices and compare channels
package pwm

import (
	"fmt"
	"sort"
)

const (
	// NumPins is the number of GPIOs that can carry PWM
	NumPins = 30

	// NumSlices is the number of PWM slices, each with an A and B channel
	NumSlices = 8
)

// ChannelID names a logical audio channel
type ChannelID int

const (
	Left ChannelID = iota
	Right
)

func (id ChannelID) String() string {
	switch id {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("channel(%d)", int(id))
	}
}

// OutputChannel is one claimed PWM output
type OutputChannel struct {
	ID      ChannelID
	Pin     int
	Slice   int
	Channel int // 0 = A, 1 = B
	Level   uint16
	Enabled bool
}

// SliceForPin returns the slice and compare channel a GPIO is wired to
func SliceForPin(pin int) (slice, channel int) {
	return (pin >> 1) % NumSlices, pin & 1
}

// Registry owns the claimed output channels
type Registry struct {
	channels map[ChannelID]*OutputChannel
	pins     map[int]ChannelID
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[ChannelID]*OutputChannel),
		pins:     make(map[int]ChannelID),
	}
}

// Claim assigns a pin to a logical channel
func (r *Registry) Claim(id ChannelID, pin int) (*OutputChannel, error) {
	if pin < 0 || pin >= NumPins {
		return nil, fmt.Errorf("pin %d out of range", pin)
	}
	if _, ok := r.channels[id]; ok {
		return nil, fmt.Errorf("%s channel already claimed", id)
	}
	if owner, ok := r.pins[pin]; ok {
		return nil, fmt.Errorf("pin %d already claimed by %s channel", pin, owner)
	}

	slice, channel := SliceForPin(pin)
	oc := &OutputChannel{
		ID:      id,
		Pin:     pin,
		Slice:   slice,
		Channel: channel,
	}
	r.channels[id] = oc
	r.pins[pin] = id

	return oc, nil
}

// Get returns the channel claimed for id
func (r *Registry) Get(id ChannelID) (*OutputChannel, bool) {
	oc, ok := r.channels[id]
	return oc, ok
}

// Channels returns all claimed channels ordered by id
func (r *Registry) Channels() []*OutputChannel {
	out := make([]*OutputChannel, 0, len(r.channels))
	for _, oc := range r.channels {
		out = append(out, oc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SliceMask returns a bit per slice used by any claimed channel
func (r *Registry) SliceMask() uint32 {
	var mask uint32
	for _, oc := range r.channels {
		mask |= 1 << oc.Slice
	}
	return mask
}
