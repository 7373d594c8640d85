package alertlog

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/fms-tracker/internal/keys"
	"github.com/nhle/fms-tracker/internal/model"
	"github.com/nhle/fms-tracker/internal/theme"
)

// Source loads the alert log.
type Source interface {
	EmailLog(ctx context.Context) ([]model.EmailLogEntry, error)
}

// LoadedMsg carries the alert log entries.
type LoadedMsg struct {
	Entries []model.EmailLogEntry
	Err     error
}

// CloseMsg signals the parent to leave the alert log.
type CloseMsg struct{}

// Model shows every delay alert that has been sent, newest first.
type Model struct {
	table  table.Model
	source Source
	keys   *keys.KeyMap
	count  int
	width  int
	height int
}

// New creates an alert log view.
func New(src Source, k *keys.KeyMap, width, height int) Model {
	t := table.New(
		table.WithColumns(columns(width)),
		table.WithFocused(true),
		table.WithHeight(max(height-4, 1)),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.ColorBorder).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(theme.ColorWhite).
		Background(theme.ColorBlue)
	t.SetStyles(styles)

	return Model{
		table:  t,
		source: src,
		keys:   k,
		width:  width,
		height: height,
	}
}

func columns(width int) []table.Column {
	step := max(width-4-10-8-22-8, 16)
	return []table.Column{
		{Title: "Order", Width: 10},
		{Title: "Task", Width: 8},
		{Title: "Step", Width: step},
		{Title: "Sent", Width: 22},
	}
}

// Load returns a command that fetches the log.
func (m Model) Load() tea.Cmd {
	src := m.source
	return func() tea.Msg {
		entries, err := src.EmailLog(context.Background())
		return LoadedMsg{Entries: entries, Err: err}
	}
}

// Update handles messages for the alert log.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		if msg.Err != nil {
			return m, nil
		}
		rows := make([]table.Row, 0, len(msg.Entries))
		for i := len(msg.Entries) - 1; i >= 0; i-- {
			e := msg.Entries[i]
			rows = append(rows, table.Row{
				e.OrderID,
				fmt.Sprintf("%d", e.TaskID),
				e.StepName,
				formatSent(e.AlertSentTime),
			})
		}
		m.count = len(rows)
		m.table.SetRows(rows)
		m.table.GotoTop()
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Back) {
			return m, func() tea.Msg { return CloseMsg{} }
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the log table.
func (m Model) View() string {
	title := theme.TitleStyle.Render(fmt.Sprintf("Alert Log (%d sent)", m.count))
	if m.count == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title,
			theme.DimmedStyle.Render("No delay alerts have been sent."))
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, m.table.View())
}

// SetSize updates the table dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetColumns(columns(width))
	m.table.SetHeight(max(height-4, 1))
}

func formatSent(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
