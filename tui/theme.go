package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/tailored-agentic-units/converse/capability"
)

type theme struct {
	header    lipgloss.Style
	title     lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	notice    lipgloss.Style
	failure   lipgloss.Style
	input     lipgloss.Style
	footer    lipgloss.Style
	muted     lipgloss.Style
	states    map[capability.State]lipgloss.Style
}

func newTheme() theme {
	green := lipgloss.Color("#05ffa1")
	blue := lipgloss.Color("#01cdfe")
	amber := lipgloss.Color("#ffd166")
	red := lipgloss.Color("#ff5c8a")
	muted := lipgloss.Color("#9ca3d8")

	return theme{
		header: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue).
			Padding(0, 1),
		title:     lipgloss.NewStyle().Foreground(blue).Bold(true),
		user:      lipgloss.NewStyle().Foreground(green).Bold(true),
		assistant: lipgloss.NewStyle().Foreground(blue).Bold(true),
		notice:    lipgloss.NewStyle().Foreground(amber),
		failure:   lipgloss.NewStyle().Foreground(red).Bold(true),
		input: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1),
		footer: lipgloss.NewStyle().Foreground(muted),
		muted:  lipgloss.NewStyle().Foreground(muted),
		states: map[capability.State]lipgloss.Style{
			capability.Available:   lipgloss.NewStyle().Foreground(green),
			capability.Degraded:    lipgloss.NewStyle().Foreground(amber),
			capability.Unavailable: lipgloss.NewStyle().Foreground(red),
		},
	}
}
