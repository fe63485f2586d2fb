// ABOUTME: Tests for the PWM output driver
// ABOUTME: Tests pin claims, buffer ownership and reconfiguration rules
package pwm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func mustConfig(t *testing.T, rate int) Config {
	t.Helper()
	cfg, err := ComputeConfig(rate)
	if err != nil {
		t.Fatalf("config for %d Hz: %v", rate, err)
	}
	return cfg
}

func TestNewDriverClaimsPins(t *testing.T) {
	d, err := NewDriver(18, true, 16, mustConfig(t, 22050))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	right, ok := d.Registry().Get(Right)
	if !ok || right.Pin != 19 {
		t.Errorf("expected right channel on pin 19, got %+v", right)
	}
	if d.TransferLen() != 16 || !d.Stereo() {
		t.Errorf("unexpected driver shape: len %d stereo %v", d.TransferLen(), d.Stereo())
	}

	if _, err := NewDriver(29, true, 16, mustConfig(t, 22050)); err == nil {
		t.Error("expected error when pin+1 is out of range")
	}
	if _, err := NewDriver(0, false, 0, mustConfig(t, 22050)); err == nil {
		t.Error("expected error for empty transfer buffers")
	}
}

func TestDriverReconfigureWhileRunning(t *testing.T) {
	d, err := NewDriver(0, false, 4, mustConfig(t, 44100))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	d.Start()
	if err := d.Reconfigure(mustConfig(t, 8000)); !errors.Is(err, ErrRunning) {
		t.Errorf("expected ErrRunning, got %v", err)
	}

	d.Stop()
	if err := d.Reconfigure(mustConfig(t, 8000)); err != nil {
		t.Fatalf("reconfigure failed: %v", err)
	}
	if d.Config().SampleRate != 8000 {
		t.Errorf("expected 8000 Hz, got %d", d.Config().SampleRate)
	}
	if err := d.Reconfigure(Config{Wrap: 1, Divider: 1}); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestDriverBufferOwnership(t *testing.T) {
	d, err := NewDriver(0, false, 4, mustConfig(t, 44100))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := d.Buffer(0); err != nil {
		t.Fatalf("free buffer: %v", err)
	}
	if err := d.Arm(0); err != nil {
		t.Fatalf("arm: %v", err)
	}
	if _, err := d.Buffer(0); !errors.Is(err, ErrBufferArmed) {
		t.Errorf("expected ErrBufferArmed, got %v", err)
	}
	if err := d.Arm(0); !errors.Is(err, ErrBufferArmed) {
		t.Errorf("expected ErrBufferArmed on double arm, got %v", err)
	}
	if _, err := d.Buffer(2); err == nil {
		t.Error("expected error for out of range buffer")
	}
}

func TestPacerTicks(t *testing.T) {
	p := &Pacer{}
	cfg := mustConfig(t, 44000)

	words, carry := p.ticksFor(10*time.Millisecond, cfg, 0)
	if words != 440 || carry > 1e-6 {
		t.Errorf("expected 440 words, got %d (carry %f)", words, carry)
	}

	words, _ = p.ticksFor(10*time.Second, cfg, 0)
	if words != 11000 {
		t.Errorf("expected catch-up capped at 11000 words, got %d", words)
	}
}

func TestPacerDrivesEngine(t *testing.T) {
	d, err := NewDriver(0, true, 8, mustConfig(t, 8000))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		buf, _ := d.Buffer(i)
		for j := range buf {
			buf[j] = 0x0fa00000
		}
		d.Arm(i)
	}
	d.Start()

	var meter Meter
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := NewPacer(d, time.Millisecond, &meter).Run(ctx); err != nil {
		t.Fatalf("pacer: %v", err)
	}

	s := d.Stats()
	if s.Completions != 2 {
		t.Errorf("expected both buffers to complete, got %d", s.Completions)
	}
	if s.Underruns == 0 {
		t.Error("expected an underrun once both buffers drained")
	}
	if l, r := meter.Peaks(); l < 0.99 || r < 0.99 {
		t.Errorf("expected full-scale peaks, got %.2f %.2f", l, r)
	}
}
