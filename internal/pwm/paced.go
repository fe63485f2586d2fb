// ABOUTME: Headless hardware context that drains the DMA engine at the PWM tick rate
// ABOUTME: Used when no audio device is available or output should stay silent
package pwm

import (
	"context"
	"time"
)

// DefaultPacerInterval is how often the headless context runs the engine
const DefaultPacerInterval = 5 * time.Millisecond

// Pacer drives a driver's engine from a ticker instead of an audio device
type Pacer struct {
	driver   *Driver
	interval time.Duration
	meter    *Meter
	now      func() time.Time
}

// NewPacer creates a pacer. A nil meter disables level metering.
func NewPacer(driver *Driver, interval time.Duration, meter *Meter) *Pacer {
	if interval <= 0 {
		interval = DefaultPacerInterval
	}
	return &Pacer{
		driver:   driver,
		interval: interval,
		meter:    meter,
		now:      time.Now,
	}
}

// Run drains the engine until ctx is cancelled
func (p *Pacer) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var (
		buf   []uint32
		last  = p.now()
		carry float64
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		now := p.now()
		elapsed := now.Sub(last)
		last = now

		cfg := p.driver.Config()
		words, rest := p.ticksFor(elapsed, cfg, carry)
		carry = rest
		if words == 0 {
			continue
		}

		if cap(buf) < words {
			buf = make([]uint32, words)
		}
		buf = buf[:words]
		p.driver.Engine().Fill(buf)
		if p.meter != nil {
			p.meter.Observe(buf, cfg.Wrap)
		}
	}
}

// ticksFor converts elapsed time into whole PWM periods, carrying the fraction
func (p *Pacer) ticksFor(elapsed time.Duration, cfg Config, carry float64) (int, float64) {
	exact := elapsed.Seconds()*cfg.TickRate() + carry
	// Never try to catch up more than a quarter second after a stall
	if limit := cfg.TickRate() / 4; exact > limit {
		exact = limit
	}
	whole := int(exact)
	return whole, exact - float64(whole)
}
