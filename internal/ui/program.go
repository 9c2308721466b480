package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Run loads the configured page and drives the dashboard until the user
// quits. It blocks for the lifetime of the session.
func Run(cfg Config) error {
	m, err := New(cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
