// ABOUTME: TUI initialization and control
// ABOUTME: Runs the front panel until quit or the context ends
package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pwmaudio/pwmaudio-go/internal/pwm"
)

// Run shows the front panel until the user quits or ctx is done
func Run(ctx context.Context, panel Panel, meter *pwm.Meter) error {
	p := tea.NewProgram(NewModel(ctx, panel, meter), tea.WithAltScreen(), tea.WithContext(ctx))

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
