// ABOUTME: Tests for the event queue
// ABOUTME: Tests ordering, capacity and cancellation
package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestQueueOrderAndCapacity(t *testing.T) {
	q := NewQueue(2)

	if !q.TrySend(Event{Kind: TransferComplete, Index: 0}) {
		t.Fatal("first send failed")
	}
	if !q.TrySend(Event{Kind: TransferComplete, Index: 1}) {
		t.Fatal("second send failed")
	}
	if q.TrySend(Event{Kind: VolumeUp}) {
		t.Error("expected send to full queue to fail")
	}
	if q.Dropped() != 1 {
		t.Errorf("expected 1 dropped, got %d", q.Dropped())
	}

	ctx := context.Background()
	for want := 0; want < 2; want++ {
		ev, err := q.Receive(ctx)
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		if ev.Kind != TransferComplete || ev.Index != want {
			t.Errorf("got %v/%d, want transfer-complete/%d", ev.Kind, ev.Index, want)
		}
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue, got %d", q.Len())
	}
}

func TestQueueReceiveCancelled(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := q.Receive(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}

	q.TrySend(Event{Kind: Quit})
	if err := q.Send(ctx, Event{Kind: Quit}); err == nil {
		t.Error("expected send to full queue to fail once cancelled")
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"up", VolumeUp, true},
		{"-", VolumeDown, true},
		{"next", ChangeSource, true},
		{"q", Quit, true},
		{"louder", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseCommand(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseCommand(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
	if Kind(99).String() != "kind(99)" {
		t.Errorf("unexpected name for unknown kind: %s", Kind(99))
	}
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	clock := time.Unix(0, 0)
	d.now = func() time.Time { return clock }

	if !d.Press(ChangeSource) {
		t.Fatal("first press rejected")
	}
	clock = clock.Add(10 * time.Millisecond)
	if d.Press(ChangeSource) {
		t.Error("bounce inside the window accepted")
	}
	if !d.Press(VolumeUp) {
		t.Error("other buttons should not be affected")
	}
	clock = clock.Add(50 * time.Millisecond)
	if !d.Press(ChangeSource) {
		t.Error("press after the window rejected")
	}

	if !NewDebouncer(0).Press(Quit) || !NewDebouncer(0).Press(Quit) {
		t.Error("zero delay should accept every press")
	}
}
