// ABOUTME: Debouncing for front panel buttons
// ABOUTME: A press is accepted once per delay window; presses inside the window are bounce
package events

import (
	"sync"
	"time"
)

// DefaultDebounce is the settle time for a button press
const DefaultDebounce = 50 * time.Millisecond

// Debouncer filters repeated presses of the same button
type Debouncer struct {
	delay time.Duration
	now   func() time.Time

	mu   sync.Mutex
	last map[Kind]time.Time
}

// NewDebouncer creates a debouncer. A zero delay accepts every press.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay: delay,
		now:   time.Now,
		last:  make(map[Kind]time.Time),
	}
}

// Press reports whether a press of kind should be acted on
func (d *Debouncer) Press(kind Kind) bool {
	if d.delay <= 0 {
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.last[kind]; ok && now.Sub(last) < d.delay {
		return false
	}
	d.last[kind] = now
	return true
}
