// Package ui renders run results for the terminal.
package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in terminal output.
var (
	ColorRed    = lipgloss.Color("#FF0000")
	ColorGreen  = lipgloss.Color("#00FF00")
	ColorYellow = lipgloss.Color("#FFFF00")
	ColorCyan   = lipgloss.Color("#00FFFF")
	ColorGray   = lipgloss.Color("#666666")
	ColorWhite  = lipgloss.Color("#FFFFFF")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	PassStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	FailStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	ExecutedStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Width(10)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGray).
			Padding(0, 1)
)
