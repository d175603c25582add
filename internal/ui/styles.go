package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette for the watch screen
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - ON state, checkmarks
	ErrorColor   = lipgloss.Color("#FF5555") // Red - errors
	WarningColor = lipgloss.Color("#FFA500") // Orange - degraded devices
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxContentWidth  = 120 // Maximum content width before capping
)

var (
	// TitleStyle is for the watch screen header line
	TitleStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true)

	// StatusStyle is for the round counter and data age line
	StatusStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	// SpinnerStyle is for the waiting-for-first-round spinner
	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	// ErrorStyle is for the fatal error banner
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	// HelpStyle is for the key binding hint at the bottom
	HelpStyle = lipgloss.NewStyle().
			Foreground(MutedColor)
)

// GetTerminalWidth returns the current terminal width, with fallback
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// IsInteractive reports whether stdout is a terminal. The watch command
// falls back to plain line output when it isn't.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
