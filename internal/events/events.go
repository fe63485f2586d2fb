// ABOUTME: Events passed from the hardware context and front panel to the main loop
// ABOUTME: Bounded queue with non-blocking send and blocking receive
package events

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Kind identifies an event
type Kind int

const (
	TransferComplete Kind = iota + 1 // Index names the drained transfer buffer
	PopulateStaging
	VolumeUp
	VolumeDown
	ChangeSource
	Quit
)

func (k Kind) String() string {
	switch k {
	case TransferComplete:
		return "transfer-complete"
	case PopulateStaging:
		return "populate-staging"
	case VolumeUp:
		return "volume-up"
	case VolumeDown:
		return "volume-down"
	case ChangeSource:
		return "change-source"
	case Quit:
		return "quit"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseCommand maps a user command name to its event kind
func ParseCommand(name string) (Kind, bool) {
	switch name {
	case "up", "+", "volume-up":
		return VolumeUp, true
	case "down", "-", "volume-down":
		return VolumeDown, true
	case "next", "n", "change-source":
		return ChangeSource, true
	case "quit", "q", "exit":
		return Quit, true
	}
	return 0, false
}

// Event is one queued notification
type Event struct {
	Kind  Kind
	Index int
}

// Queue is a fixed-capacity FIFO of events
type Queue struct {
	ch      chan Event
	dropped atomic.Uint64
}

// NewQueue creates a queue holding up to capacity events
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan Event, capacity)}
}

// TrySend enqueues ev without blocking. It reports false when the queue is full.
func (q *Queue) TrySend(ev Event) bool {
	select {
	case q.ch <- ev:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Send enqueues ev, waiting for space until ctx is done
func (q *Queue) Send(ctx context.Context, ev Event) error {
	select {
	case q.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive waits for the next event
func (q *Queue) Receive(ctx context.Context) (Event, error) {
	select {
	case ev := <-q.ch:
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Len returns the number of queued events
func (q *Queue) Len() int {
	return len(q.ch)
}

// Dropped returns how many TrySend calls found the queue full
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
