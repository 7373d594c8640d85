package help

import (
	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/fms-tracker/internal/keys"
	"github.com/nhle/fms-tracker/internal/theme"
)

// roleNotes explains which actions each role may take.
var roleNotes = map[string]string{
	"manager":  "Manager: all actions, including delay checks, the alert log and reset.",
	"planner":  "Planner: create tasks and complete steps.",
	"operator": "Operator: complete steps on existing tasks.",
}

// Model is the help overlay.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	role   string
	width  int
	height int
}

// New creates a help overlay for role.
func New(k *keys.KeyMap, role string, width, height int) Model {
	h := help.New()
	h.ShowAll = true
	h.Width = width - 4
	return Model{
		keys:   k,
		help:   h,
		role:   role,
		width:  width,
		height: height,
	}
}

// Update is a no-op; the parent closes the overlay.
func (m Model) Update(tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the full key list and the role note.
func (m Model) View() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.TitleStyle.Render("Keyboard Shortcuts"),
		m.help.View(m.keys),
		"",
		theme.DimmedStyle.Render(roleNotes[m.role]),
	)

	return theme.PanelStyle.
		Width(max(m.width-4, 0)).
		Height(max(m.height-4, 0)).
		Render(content)
}

// SetSize updates the overlay dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
