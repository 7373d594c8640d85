package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/fms-tracker/internal/theme"
)

// Commands lists the palette commands offered as completions.
var Commands = []string{
	"refresh",
	"new",
	"check",
	"alerts",
	"report",
	"reset",
	"pending",
	"sort priority",
	"sort created",
	"quit",
}

// CommandMsg is emitted when the user executes a command.
type CommandMsg string

// Model is the command palette.
type Model struct {
	input textinput.Model
	width int
}

// New creates a command palette.
func New(width int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command, tab to complete"
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	ti.SetSuggestions(Commands)
	ti.Width = width - 6

	return Model{input: ti, width: width}
}

// Update handles input; enter emits the trimmed command.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "enter" {
		cmd := strings.ToLower(strings.TrimSpace(m.input.Value()))
		m.input.Reset()
		if cmd == "" {
			return m, nil
		}
		return m, func() tea.Msg { return CommandMsg(cmd) }
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the palette.
func (m Model) View() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.TitleStyle.Render("Command Palette"),
		m.input.View(),
	)
	return theme.PanelStyle.Width(max(m.width-4, 0)).Render(content)
}

// SetSize updates the palette width.
func (m *Model) SetSize(width, _ int) {
	m.width = width
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the input.
func (m *Model) Focus() tea.Cmd {
	m.input.Reset()
	return m.input.Focus()
}
