package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

// keyMap defines the dashboard's global key bindings. Keys consumed by
// the focused field (editing keystrokes, steps, the plot key) never
// reach these bindings.
type keyMap struct {
	Navigate key.Binding
	Edit     key.Binding
	Step     key.Binding
	Info     key.Binding
	Repaint  key.Binding
	Quit     key.Binding
}

// ShortHelp returns keybindings to be shown in the footer legend
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Navigate, k.Edit, k.Step, k.Info, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Navigate, k.Edit, k.Step},
		{k.Info, k.Repaint, k.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		Navigate: key.NewBinding(
			key.WithKeys("up", "down", "left", "right"),
			key.WithHelp("arrows", "navigate"),
		),
		Edit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "edit/commit"),
		),
		Step: key.NewBinding(
			key.WithKeys("up", "down"),
			key.WithHelp("up/down", "step digit"),
		),
		Info: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "field info"),
		),
		Repaint: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "repaint"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "Q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
