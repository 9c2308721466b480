package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/veskel/pvdash/internal/field"
	"github.com/veskel/pvdash/internal/page"
)

// Color palette for the dashboard
var (
	TextColor         = lipgloss.Color("#FFFFFF") // White - static labels, values
	MutedColor        = lipgloss.Color("#626262") // Gray - footer, dividers
	AccentColor       = lipgloss.Color("#7D56F4") // Purple - header row, focus
	EditColor         = lipgloss.Color("#5FAFFF") // Blue - editable values
	EditingBgColor    = lipgloss.Color("#3A3A3A") // Dark gray - active edit buffer
	DisconnectedColor = lipgloss.Color("#FF5555") // Red - unreachable variables
	ButtonColor       = lipgloss.Color("#FFD75F") // Yellow - buttons
	LampRedColor      = lipgloss.Color("#FF5555")
	LampYellowColor   = lipgloss.Color("#FFD75F")
	LampGreenColor    = lipgloss.Color("#43BF6D")
	LampOffColor      = lipgloss.Color("#303030")
	LampInvalidColor  = lipgloss.Color("#FF00FF") // Magenta - contract violations
)

// Layout constants
const (
	MinTerminalWidth = 40
	DefaultHeight    = 24
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Bold(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	focusStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Background(AccentColor)

	overlayStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(AccentColor).
			Padding(1, 2)

	cursorStyle = lipgloss.NewStyle().Reverse(true)

	classStyles = map[field.StyleClass]lipgloss.Style{
		field.StyleNone:         lipgloss.NewStyle(),
		field.StyleStatic:       lipgloss.NewStyle().Foreground(TextColor),
		field.StyleDisconnected: lipgloss.NewStyle().Foreground(DisconnectedColor),
		field.StyleReadOnly:     lipgloss.NewStyle().Foreground(TextColor),
		field.StyleEdit:         lipgloss.NewStyle().Foreground(EditColor),
		field.StyleEditing:      lipgloss.NewStyle().Foreground(TextColor).Background(EditingBgColor),
		field.StyleLEDOff:       lipgloss.NewStyle().Background(LampOffColor),
		field.StyleLEDRed:       lipgloss.NewStyle().Background(LampRedColor),
		field.StyleLEDYellow:    lipgloss.NewStyle().Background(LampYellowColor),
		field.StyleLEDGreen:     lipgloss.NewStyle().Background(LampGreenColor),
		field.StyleLEDInvalid:   lipgloss.NewStyle().Background(LampInvalidColor),
		field.StyleButton:       lipgloss.NewStyle().Foreground(ButtonColor).Bold(true),
	}
)

// classStyle maps a field style class to its lipgloss style.
func classStyle(class field.StyleClass) lipgloss.Style {
	if s, ok := classStyles[class]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

// alignPosition converts a page alignment to a lipgloss position.
func alignPosition(a page.Align) lipgloss.Position {
	switch a {
	case page.AlignCenter:
		return lipgloss.Center
	case page.AlignRight:
		return lipgloss.Right
	default:
		return lipgloss.Left
	}
}

// GetTerminalSize returns the terminal dimensions with fallbacks for
// non-terminal outputs.
func GetTerminalSize() (int, int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return MinTerminalWidth, DefaultHeight
	}
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	return width, height
}
