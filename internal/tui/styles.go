// Package tui implements the interactive steerctl console: a bubbletea
// model that polls the RPC surface's network overview and renders it as a
// lipgloss table.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("#4ECDC4")
	colorMuted  = lipgloss.Color("#6c757d")
	colorAlert  = lipgloss.Color("#FF6B6B")

	styleTitle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	styleMuted = lipgloss.NewStyle().Foreground(colorMuted)
	styleAlert = lipgloss.NewStyle().Foreground(colorAlert)

	styleTableHeader = lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Padding(0, 1)
	styleTableRow    = lipgloss.NewStyle().Padding(0, 1)
)
