// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests key handling, status updates and rendering helpers
package ui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pwmaudio/pwmaudio-go/internal/events"
	"github.com/pwmaudio/pwmaudio-go/internal/player"
	"github.com/pwmaudio/pwmaudio-go/internal/pwm"
)

// fakePanel records commands
type fakePanel struct {
	commands []events.Kind
	status   player.Status
}

func (f *fakePanel) Command(ctx context.Context, kind events.Kind) bool {
	f.commands = append(f.commands, kind)
	return true
}

func (f *fakePanel) Status() player.Status {
	return f.status
}

func TestNewModel(t *testing.T) {
	model := NewModel(context.Background(), nil, nil)

	if model.showDebug {
		t.Error("expected showDebug to be false initially")
	}
	if model.quitting {
		t.Error("expected quitting to be false initially")
	}
}

func TestKeysSendCommands(t *testing.T) {
	tests := []struct {
		key  tea.KeyMsg
		want events.Kind
	}{
		{tea.KeyMsg{Type: tea.KeyUp}, events.VolumeUp},
		{tea.KeyMsg{Type: tea.KeyDown}, events.VolumeDown},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'+'}}, events.VolumeUp},
		{tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}, events.ChangeSource},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}}, events.ChangeSource},
	}

	for _, tt := range tests {
		panel := &fakePanel{}
		model := NewModel(context.Background(), panel, nil)
		model.Update(tt.key)

		if len(panel.commands) != 1 || panel.commands[0] != tt.want {
			t.Errorf("key %q: expected %v, got %v", tt.key.String(), tt.want, panel.commands)
		}
	}
}

func TestQuitKey(t *testing.T) {
	panel := &fakePanel{}
	model := NewModel(context.Background(), panel, nil)

	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !updated.(Model).quitting {
		t.Error("expected model to be quitting")
	}
	if len(panel.commands) != 1 || panel.commands[0] != events.Quit {
		t.Errorf("expected Quit to be sent, got %v", panel.commands)
	}
}

func TestDebugToggle(t *testing.T) {
	model := NewModel(context.Background(), nil, nil)

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	if !updated.(Model).showDebug {
		t.Error("expected debug to be shown")
	}
}

func TestPollReadsPanelAndMeter(t *testing.T) {
	panel := &fakePanel{status: player.Status{Source: "pink noise", Volume: 0.5}}
	meter := &pwm.Meter{}
	meter.Observe([]uint32{0x0fa00000}, 4000)

	msg := NewModel(context.Background(), panel, meter).poll().(StatusMsg)
	if msg.Status.Source != "pink noise" {
		t.Errorf("unexpected status %+v", msg.Status)
	}
	if msg.PeakLeft < 0.99 || msg.PeakRight < 0.99 {
		t.Errorf("expected full peaks, got %.2f %.2f", msg.PeakLeft, msg.PeakRight)
	}
}

func TestStatusMsgUpdatesView(t *testing.T) {
	model := NewModel(context.Background(), nil, nil)

	updated, _ := model.Update(StatusMsg{
		Status: player.Status{
			State:   player.State{Mode: player.ModeBrown},
			Source:  "brown noise",
			Running: true,
			Volume:  0.5,
			Stats:   player.Stats{Underruns: 3},
		},
	})
	view := updated.(Model).View()

	for _, want := range []string{"brown noise", "Underruns: 3", "50%"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "(stopped)") {
		t.Error("running output shown as stopped")
	}
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{0, "░░░░"},
		{0.5, "██░░"},
		{1, "████"},
		{2, "████"},
		{-1, "░░░░"},
	}

	for _, tt := range tests {
		if got := renderBar(tt.value, 4); got != tt.want {
			t.Errorf("renderBar(%v) = %q, expected %q", tt.value, got, tt.want)
		}
	}
}

func TestTruncateFunction(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"this is longer than allowed", 10, "this is..."},
		{"", 10, ""},
		{"abcd", 4, "abcd"},
		{"abcde", 4, "a..."},
		{"abcde", 3, "abc"},
		{"abcde", 2, "ab"},
		{"abcde", 0, ""},
	}

	for _, tt := range tests {
		result := truncate(tt.input, tt.maxLen)
		if result != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, expected %q",
				tt.input, tt.maxLen, result, tt.expected)
		}
	}
}

func TestChannelNameFunction(t *testing.T) {
	tests := []struct {
		channels int
		expected string
	}{
		{1, "Mono"},
		{2, "Stereo"},
	}

	for _, tt := range tests {
		result := channelName(tt.channels)
		if result != tt.expected {
			t.Errorf("channelName(%d) = %q, expected %q",
				tt.channels, result, tt.expected)
		}
	}
}
