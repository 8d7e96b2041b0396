package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorLeft      = lipgloss.Color("12")  // bright blue
	colorRight     = lipgloss.Color("10")  // bright green
	colorDim       = lipgloss.Color("240") // gray
	colorHighlight = lipgloss.Color("11")  // bright yellow
	colorBorder    = lipgloss.Color("238") // dark gray

	styleInput = lipgloss.NewStyle().
			Foreground(colorLeft).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(colorLeft).
				Bold(true)

	styleListSelected = lipgloss.NewStyle().
				Foreground(colorHighlight).
				Bold(true)

	styleFormatText = lipgloss.NewStyle().
			Foreground(colorLeft)

	styleFormatJSON = lipgloss.NewStyle().
			Foreground(colorRight)

	styleSender = lipgloss.NewStyle().
			Bold(true)

	stylePanelBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorBorder)

	styleActiveBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorLeft)

	styleStatusBar = lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(0, 1)

	styleFlash = lipgloss.NewStyle().
			Foreground(colorHighlight)
)
