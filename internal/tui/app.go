package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/loopscope/loopscope/internal/stream"
)

// Run drives the TUI until the user quits or ctx is cancelled. The event
// channel closing flips the status to done but keeps the screen up.
func Run(ctx context.Context, engine Engine, events <-chan *stream.Event, opts Options) error {
	model := New(engine, events, opts)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
