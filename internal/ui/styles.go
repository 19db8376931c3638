package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	primaryColor = lipgloss.Color("#D08A2E") // Bard amber
	mutedColor   = lipgloss.Color("#888888") // Gray
	textColor    = lipgloss.Color("#FFFFFF") // White
	inTuneColor  = lipgloss.Color("#00AA00") // Green
	offColor     = lipgloss.Color("#A40000") // Red
	phaseColor   = lipgloss.Color("#3A7BD5") // Blue
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(offColor)

	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)

	NoteStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor).
			Padding(0, 1)

	lockedStyle = lipgloss.NewStyle().Bold(true).Foreground(inTuneColor)
	offStyle    = lipgloss.NewStyle().Foreground(offColor)
	helpStyle   = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)

	pulseStyle    = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	downbeatStyle = lipgloss.NewStyle().Bold(true).Foreground(offColor)
	idleStyle     = lipgloss.NewStyle().Foreground(mutedColor)

	chordStyle      = lipgloss.NewStyle().Bold(true).Foreground(textColor).Padding(0, 2)
	chordPhaseStyle = chordStyle.Background(phaseColor)
)

// PrintVersion prints version information
func PrintVersion(version string) {
	fmt.Println(TitleStyle.Render("Bard"))
	fmt.Printf("%s %s\n", KeyStyle.Render("Version:"), ValueStyle.Render(version))
	fmt.Println()
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), message)
}
