// ABOUTME: Bubbletea model for the front panel
// ABOUTME: Keys act as the panel buttons; status is polled from the controller
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pwmaudio/pwmaudio-go/internal/events"
	"github.com/pwmaudio/pwmaudio-go/internal/player"
	"github.com/pwmaudio/pwmaudio-go/internal/pwm"
)

// refreshInterval is how often the panel polls status
const refreshInterval = 100 * time.Millisecond

// Panel is what the front panel drives and displays
type Panel interface {
	Command(ctx context.Context, kind events.Kind) bool
	Status() player.Status
}

// Model represents the TUI state
type Model struct {
	ctx   context.Context
	panel Panel
	meter *pwm.Meter

	status    player.Status
	peakLeft  float64
	peakRight float64

	showDebug bool
	quitting  bool

	width  int
	height int
}

// StatusMsg carries a status snapshot and meter peaks
type StatusMsg struct {
	Status    player.Status
	PeakLeft  float64
	PeakRight float64
}

type tickMsg time.Time

// NewModel creates a model. Commands are delivered until ctx is done. meter may be nil.
func NewModel(ctx context.Context, panel Panel, meter *pwm.Meter) Model {
	return Model{ctx: ctx, panel: panel, meter: meter}
}

// Init starts polling
func (m Model) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		return m, tea.Batch(m.poll, tickEvery())
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// poll reads the controller status
func (m Model) poll() tea.Msg {
	msg := StatusMsg{}
	if m.panel != nil {
		msg.Status = m.panel.Status()
	}
	if m.meter != nil {
		msg.PeakLeft, msg.PeakRight = m.meter.Peaks()
	}
	return msg
}

func (m *Model) applyStatus(msg StatusMsg) {
	m.status = msg.Status
	m.peakLeft = msg.PeakLeft
	m.peakRight = msg.PeakRight
}

// handleKey maps keys to panel buttons
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.send(events.Quit)
		m.quitting = true
		return m, tea.Quit
	case "up", "+", "=":
		m.send(events.VolumeUp)
	case "down", "-":
		m.send(events.VolumeDown)
	case " ", "n", "right", "enter":
		m.send(events.ChangeSource)
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

func (m Model) send(kind events.Kind) {
	if m.panel != nil {
		m.panel.Command(m.ctx, kind)
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	helpStyle = lipgloss.NewStyle().Faint(true)
)

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Stopping output...\n"
	}

	s := m.status
	var b strings.Builder

	b.WriteString(titleStyle.Render("PWM Audio"))
	b.WriteString("\n\n")

	field(&b, "State:   ", stateLine(s))
	field(&b, "Source:  ", fmt.Sprintf("%s (%d Hz, %s, %d-bit)",
		truncate(s.Source, 40), s.Format.SampleRate, channelName(s.Format.Channels), s.Format.BitDepth))
	field(&b, "Output:  ", fmt.Sprintf("wrap %d, shift %d, divider %.4g, %.0f Hz",
		s.PWM.Wrap, s.PWM.RepeatShift, s.PWM.Divider, s.PWM.EffectiveRate()))
	field(&b, "Volume:  ", fmt.Sprintf("[%s] %3.0f%%", renderBar(s.Volume, 20), s.Volume*100))
	field(&b, "Left:    ", renderBar(m.peakLeft, 20))
	field(&b, "Right:   ", renderBar(m.peakRight, 20))
	b.WriteString("\n")

	stats := fmt.Sprintf("Refills: %d  Underruns: %d  Late: %d", s.Stats.Refills, s.Stats.Underruns, s.Stats.StagingLate)
	if s.Stats.Underruns > 0 || s.Stats.StagingLate > 0 {
		b.WriteString(warnStyle.Render(stats))
	} else {
		b.WriteString(valueStyle.Render(stats))
	}
	b.WriteString("\n")

	if m.showDebug {
		b.WriteString("\n")
		field(&b, "Session: ", s.Session)
		field(&b, "Uptime:  ", s.Uptime.Round(time.Second).String())
		field(&b, "Events:  ", fmt.Sprintf("%d dropped, %d IRQ retries, %d stale refills",
			s.Stats.QueueDropped, s.Stats.IRQsRetried, s.Stats.StaleRefills))
		field(&b, "Changes: ", fmt.Sprintf("%d (%d failed)", s.Stats.SourceChanges, s.Stats.Failures))
		field(&b, "Levels:  ", fmt.Sprintf("L %d  R %d", s.Levels[pwm.Left], s.Levels[pwm.Right]))
		field(&b, "Files:   ", fmt.Sprintf("%d", len(s.Files)))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓:Volume  space:Next source  d:Debug  q:Quit"))
	b.WriteString("\n")

	return b.String()
}

func field(b *strings.Builder, name, value string) {
	b.WriteString(headerStyle.Render(name))
	b.WriteString(valueStyle.Render(value))
	b.WriteString("\n")
}

func stateLine(s player.Status) string {
	if !s.Running {
		return s.State.String() + " (stopped)"
	}
	return s.State.String()
}

// renderBar draws a bar for a value in [0, 1]
func renderBar(value float64, width int) string {
	filled := int(value*float64(width) + 0.5)
	filled = max(0, min(width, filled))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	if length <= 3 {
		return s[:max(length, 0)]
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	if channels == 1 {
		return "Mono"
	}
	return "Stereo"
}
