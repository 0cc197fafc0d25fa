// Package tui holds the interactive wizard for creating templates and the
// styles used for command output.
package tui

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrCancelled is returned when the user leaves the wizard early
var ErrCancelled = errors.New("template creation cancelled")

// RunNewTUI asks for a template name and starter, then creates the files
func RunNewTUI(name string, config TemplateConfig) ([]string, error) {
	if !IsTerminal() {
		return nil, fmt.Errorf("not running in a terminal, use --no-interactive flag")
	}

	p := tea.NewProgram(NewModel(name, config))
	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("TUI error: %w", err)
	}

	m := finalModel.(Model)
	if !m.Done() {
		return nil, ErrCancelled
	}

	return CreateTemplate(m.Config())
}

// IsTerminal checks if stdout is a terminal
func IsTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
