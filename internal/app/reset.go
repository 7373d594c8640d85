package app

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/fms-tracker/internal/tracker"
)

// resetDoneMsg is sent after all data has been cleared.
type resetDoneMsg struct{ err error }

// resetCancelledMsg is sent when the user declines the reset.
type resetCancelledMsg struct{}

// confirmReset asks before wiping every task, step, file and alert.
type confirmReset struct {
	form      *huh.Form
	confirmed *bool
	tracker   *tracker.Service
}

func newConfirmReset(t *tracker.Service) *confirmReset {
	confirmed := false
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Reset all FMS data?").
			Description("Every task, step, uploaded file and alert log entry is deleted.").
			Affirmative("Reset").
			Negative("Cancel").
			Value(&confirmed),
	)).WithKeyMap(resetKeyMap())
	return &confirmReset{form: form, confirmed: &confirmed, tracker: t}
}

// Update forwards input to the form and resolves it once answered.
func (c *confirmReset) Update(msg tea.Msg) tea.Cmd {
	mdl, cmd := c.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		c.form = f
	}

	switch c.form.State {
	case huh.StateCompleted:
		if !*c.confirmed {
			return func() tea.Msg { return resetCancelledMsg{} }
		}
		t := c.tracker
		return func() tea.Msg {
			return resetDoneMsg{err: t.ResetAll(context.Background())}
		}
	case huh.StateAborted:
		return func() tea.Msg { return resetCancelledMsg{} }
	}
	return cmd
}

func resetKeyMap() *huh.KeyMap {
	km := huh.NewDefaultKeyMap()
	km.Quit = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel"))
	return km
}

func (c *confirmReset) View() string {
	return lipgloss.NewStyle().Padding(1, 2).Render(c.form.View())
}

// startReset opens the reset confirmation.
func (m *Model) startReset() tea.Cmd {
	if !m.canManage() {
		m.setFlash("reset is "+errNotAllowed.Error(), true)
		return nil
	}
	m.confirm = newConfirmReset(m.deps.Tracker)
	m.previousView = m.currentView
	m.currentView = ViewConfirmReset
	return m.confirm.form.Init()
}
