package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorDanger  = lipgloss.Color("#EF4444")
	colorInfo    = lipgloss.Color("#3B82F6")
	colorMuted   = lipgloss.Color("#6B7280")
	colorText    = lipgloss.Color("#F3F4F6")
	colorBorder  = lipgloss.Color("#4B5563")
	colorButton  = lipgloss.Color("#1F2937")
)

// Shared frame.
var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(1, 2)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).MarginBottom(1)
	helpStyle  = lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	keyStyle   = lipgloss.NewStyle().Foreground(colorPrimary)
)

// Idol browser.
var (
	infoStyle  = lipgloss.NewStyle().Foreground(colorInfo)
	errorStyle = lipgloss.NewStyle().
			Foreground(colorDanger).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDanger).
			Padding(0, 1)
)

// Delete confirmation.
var (
	buttonStyle         = lipgloss.NewStyle().Padding(0, 3)
	activeButtonStyle   = buttonStyle.Foreground(colorText).Background(colorDanger).Bold(true)
	inactiveButtonStyle = buttonStyle.Foreground(colorMuted).Background(colorButton)
)

// FormatKey renders one "key description" help entry.
func FormatKey(key, description string) string {
	return keyStyle.Render(key) + " " + mutedStyle.Render(description)
}
