package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/cruise"
)

// Browse starts the interactive violation browser for a finished run and
// blocks until the user quits.
func Browse(res *cruise.Result) error {
	p := tea.NewProgram(NewBrowseModel(NewBrowseSession(res)), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
