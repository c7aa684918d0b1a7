package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ConfirmationDialog is a yes/no prompt. No is selected initially.
type ConfirmationDialog struct {
	Title       string
	Message     string
	YesSelected bool
	confirmed   bool
}

// NewConfirmationDialog creates a new confirmation dialog
func NewConfirmationDialog(title, message string) ConfirmationDialog {
	return ConfirmationDialog{Title: title, Message: message}
}

// Init implements tea.Model.
func (d ConfirmationDialog) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (d ConfirmationDialog) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "left", "h":
			d.YesSelected = true
		case "right", "l", "tab":
			d.YesSelected = !d.YesSelected
		case "y":
			d.confirmed = true
			return d, tea.Quit
		case "n", "esc", "q", "ctrl+c":
			d.confirmed = false
			return d, tea.Quit
		case "enter":
			d.confirmed = d.YesSelected
			return d, tea.Quit
		}
	}
	return d, nil
}

// View renders the confirmation dialog
func (d ConfirmationDialog) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(d.Title))
	b.WriteString("\n\n")
	b.WriteString(d.Message)
	b.WriteString("\n\n")

	yesButton := inactiveButtonStyle.Render("Yes")
	noButton := inactiveButtonStyle.Render("No")
	if d.YesSelected {
		yesButton = activeButtonStyle.Render("Yes")
	} else {
		noButton = activeButtonStyle.Render("No")
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Left, yesButton, "  ", noButton))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(FormatKey("←/→", "navigate") + " • " + FormatKey("enter", "confirm") + " • " + FormatKey("esc/q", "cancel")))

	return boxStyle.Render(b.String())
}

// Confirmed reports whether the user accepted.
func (d ConfirmationDialog) Confirmed() bool {
	return d.confirmed
}

// Confirm runs the dialog and reports the answer.
func Confirm(title, message string) (bool, error) {
	final, err := tea.NewProgram(NewConfirmationDialog(title, message)).Run()
	if err != nil {
		return false, fmt.Errorf("confirmation dialog: %w", err)
	}
	return final.(ConfirmationDialog).Confirmed(), nil
}
