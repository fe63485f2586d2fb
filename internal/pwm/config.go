// ABOUTME: PWM timing configuration for supported sample rates
// ABOUTME: Maps a sample rate to repeat shift, wrap and clock divider against the base clock
package pwm

import (
	"errors"
	"fmt"
	"math"
)

// BaseClock is the system clock feeding the PWM slices (176 MHz is 4000 * 44 kHz)
const BaseClock = 176_000_000

// DividerFracBits is the number of fractional bits in the clock divider
const DividerFracBits = 4

// ErrUnsupportedRate is returned for sample rates outside the fixed table
var ErrUnsupportedRate = errors.New("pwm: unsupported sample rate")

// Config is the peripheral timing for one sample rate
type Config struct {
	SampleRate  int     // Nominal source rate
	RepeatShift uint    // Each source sample is held for 1<<RepeatShift PWM periods
	Wrap        uint16  // Counter top, also the maximum output level
	Divider     float64 // Clock divider, integer plus 1/16ths
}

// MidPoint returns the level representing silence
func (c Config) MidPoint() uint16 {
	return c.Wrap >> 1
}

// TickRate returns PWM periods per second, the rate at which words leave the transfer buffers
func (c Config) TickRate() float64 {
	return BaseClock / (c.Divider * float64(c.Wrap))
}

// EffectiveRate returns the source sample rate actually produced
func (c Config) EffectiveRate() float64 {
	return c.TickRate() / float64(uint(1)<<c.RepeatShift)
}

// Validate checks that the configuration can be programmed into the peripheral
func (c Config) Validate() error {
	if c.Wrap < 2 {
		return fmt.Errorf("wrap %d too small", c.Wrap)
	}
	if c.Divider < 1 || c.Divider >= 256 {
		return fmt.Errorf("divider %.4f out of range [1, 256)", c.Divider)
	}
	frac := c.Divider * (1 << DividerFracBits)
	if frac != math.Trunc(frac) {
		return fmt.Errorf("divider %.4f is not a multiple of 1/%d", c.Divider, 1<<DividerFracBits)
	}
	if c.RepeatShift > 4 {
		return fmt.Errorf("repeat shift %d too large", c.RepeatShift)
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("%d Hz (shift %d, wrap %d, div %.4g, effective %.0f Hz)",
		c.SampleRate, c.RepeatShift, c.Wrap, c.Divider, c.EffectiveRate())
}

// Rate families share a divider and wrap and differ only in repeat shift.
// Wrap 4000 gives 44 kHz periods, 3990 gives 44.11 kHz and 3666 gives 48.01 kHz.
var rateTable = map[int]Config{
	8000:  {RepeatShift: 2, Wrap: 4000, Divider: 1.375},
	11000: {RepeatShift: 2, Wrap: 4000, Divider: 1},
	11025: {RepeatShift: 2, Wrap: 3990, Divider: 1},
	16000: {RepeatShift: 1, Wrap: 4000, Divider: 1.375},
	22000: {RepeatShift: 1, Wrap: 4000, Divider: 1},
	22050: {RepeatShift: 1, Wrap: 3990, Divider: 1},
	24000: {RepeatShift: 1, Wrap: 3666, Divider: 1},
	32000: {RepeatShift: 0, Wrap: 4000, Divider: 1.375},
	44000: {RepeatShift: 0, Wrap: 4000, Divider: 1},
	44100: {RepeatShift: 0, Wrap: 3990, Divider: 1},
	48000: {RepeatShift: 0, Wrap: 3666, Divider: 1},
}

// ComputeConfig returns the timing for a supported sample rate
func ComputeConfig(sampleRate int) (Config, error) {
	cfg, ok := rateTable[sampleRate]
	if !ok {
		return Config{}, fmt.Errorf("%w: %d Hz", ErrUnsupportedRate, sampleRate)
	}
	cfg.SampleRate = sampleRate
	return cfg, nil
}

// SupportedRates returns the table's rates in ascending order
func SupportedRates() []int {
	return []int{8000, 11000, 11025, 16000, 22000, 22050, 24000, 32000, 44000, 44100, 48000}
}
