package detail

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/fms-tracker/internal/keys"
	"github.com/nhle/fms-tracker/internal/model"
	"github.com/nhle/fms-tracker/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// DetailLoadedMsg carries the loaded task, or the error that prevented it.
type DetailLoadedMsg struct {
	Task *model.Task
	Err  error
}

// CompleteStepMsg asks the parent to mark the highlighted step Done.
type CompleteStepMsg struct {
	TaskID   int64
	StepName string
}

// Model is the task detail view: header fields, then one row per step with
// a cursor for step actions.
type Model struct {
	task      *model.Task
	cursor    int
	viewport  viewport.Model
	keys      *keys.KeyMap
	now       func() time.Time
	threshold float64
	canEdit   bool
	width     int
	height    int
	loading   bool
}

// New creates a detail view. canEdit enables step completion.
func New(k *keys.KeyMap, now func() time.Time, threshold float64, canEdit bool, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport:  vp,
		keys:      k,
		now:       now,
		threshold: threshold,
		canEdit:   canEdit,
		width:     width,
		height:    height,
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case DetailLoadedMsg:
		m.loading = false
		if msg.Err == nil {
			m.setTask(msg.Task)
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }

		case key.Matches(msg, m.keys.Down):
			if m.task != nil && m.cursor < len(m.task.Steps)-1 {
				m.cursor++
				m.refresh()
			}
			return m, nil

		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.refresh()
			}
			return m, nil

		case key.Matches(msg, m.keys.CompleteStep):
			step, ok := m.SelectedStep()
			if !ok || !m.canEdit || step.Status == model.StepStatusDone {
				return m, nil
			}
			taskID := m.task.ID
			return m, func() tea.Msg {
				return CompleteStepMsg{TaskID: taskID, StepName: step.StepName}
			}
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// SelectedStep returns the step under the cursor.
func (m Model) SelectedStep() (model.Step, bool) {
	if m.task == nil || m.cursor >= len(m.task.Steps) {
		return model.Step{}, false
	}
	return m.task.Steps[m.cursor], true
}

// CurrentTaskID returns the id of the displayed task, or 0.
func (m Model) CurrentTaskID() int64 {
	if m.task == nil {
		return 0
	}
	return m.task.ID
}

// View renders the detail view.
func (m Model) View() string {
	placeholder := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.loading {
		return placeholder.Render("Loading task...")
	}
	if m.task == nil {
		return placeholder.Render("Task not found")
	}
	return m.viewport.View()
}

func (m *Model) setTask(t *model.Task) {
	m.task = t
	if t == nil || m.cursor >= len(t.Steps) {
		m.cursor = 0
	}
	m.refresh()
	m.viewport.GotoTop()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderContent())
}

// renderContent builds the viewport content.
func (m Model) renderContent() string {
	if m.task == nil {
		return ""
	}
	task := m.task
	var sections []string

	title := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).
		Render(fmt.Sprintf("%s  %s", task.OrderID, task.ToolName))
	pri := theme.PriorityStyle(task.Priority).Render(task.Priority)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", pri), "")

	meta := []struct{ label, value string }{
		{"Requested by:", task.RequestedBy},
		{"Required by:", task.RequiredBy},
		{"Created:", formatTimestamp(task.Timestamp)},
		{"Progress:", fmt.Sprintf("%d of %d steps done", task.DoneCount(), len(task.Steps))},
	}
	for _, kv := range meta {
		sections = append(sections, fmt.Sprintf("%-14s %s",
			theme.LabelStyle.Render(kv.label), theme.ValueStyle.Render(kv.value)))
	}

	separator := lipgloss.NewStyle().Foreground(theme.ColorSubtle).
		Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "", separator, "")
	sections = append(sections, theme.LabelStyle.Render(fmt.Sprintf(
		"  %-24s %-10s %-10s %-13s %9s  %s",
		"Step", "Planned", "Actual", "Status", "Delay (h)", "Files")))

	now := m.now()
	for i, s := range task.Steps {
		actual := "-"
		if s.ActualDate != nil {
			actual = *s.ActualDate
		}
		delay := ""
		if s.TimeDelay != nil {
			delay = fmt.Sprintf("%.2f", *s.TimeDelay)
		}
		var names []string
		for _, f := range task.FilesForStep(s.StepName) {
			names = append(names, f.FileName)
		}

		status := theme.StepStatusStyle(s.Status).Render(fmt.Sprintf("%-11s", s.Status))
		row := fmt.Sprintf("%-24s %-10s %-10s %s %9s  %s",
			s.StepName, s.PlannedDate, actual, status, delay, strings.Join(names, ", "))
		if s.Late(now, m.threshold) {
			row += theme.LateStyle.Render(" LATE")
		}

		if i == m.cursor {
			row = theme.SelectedItemStyle.Render(row)
		} else {
			row = theme.ListItemStyle.Render(row)
		}
		sections = append(sections, row)
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.refresh()
}

func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04")
}
