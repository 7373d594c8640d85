package tasklist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/fms-tracker/internal/model"
	"github.com/nhle/fms-tracker/internal/theme"
)

// TaskItem wraps a model.Task so it can be used in a bubbles/list.
type TaskItem struct {
	Task model.Task
}

// FilterValue returns the text matched by search.
func (i TaskItem) FilterValue() string {
	return i.Task.OrderID + " " + i.Task.ToolName + " " + i.Task.RequestedBy
}

// Title returns the order and tool name.
func (i TaskItem) Title() string {
	return i.Task.OrderID + " " + i.Task.ToolName
}

// Description returns a short progress summary.
func (i TaskItem) Description() string {
	next := "complete"
	if s, ok := i.Task.NextStep(); ok {
		next = s.StepName
	}
	return fmt.Sprintf("%s | %d/%d | %s", i.Task.Priority, i.Task.DoneCount(), len(i.Task.Steps), next)
}

// ItemDelegate renders one task per line.
type ItemDelegate struct {
	now       func() time.Time
	threshold float64
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single task line: priority, order, tool, progress bar,
// next step and a LATE badge when any step is past the alert threshold.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(TaskItem)
	if !ok {
		return
	}
	task := ti.Task

	priBadge := theme.PriorityStyle(task.Priority).Render(fmt.Sprintf("%-6s", task.Priority))
	order := lipgloss.NewStyle().Bold(true).Render(task.OrderID)
	tool := task.ToolName

	done := task.DoneCount()
	bar := progressBar(done, len(task.Steps))

	next := theme.StepStatusStyle(model.StepStatusDone).Render("complete")
	if s, ok := task.NextStep(); ok {
		next = lipgloss.NewStyle().Foreground(theme.ColorGray).
			Render("next: " + s.StepName + " (" + s.PlannedDate + ")")
	}

	late := ""
	if n := d.lateSteps(task); n > 0 {
		late = theme.LateStyle.Render(fmt.Sprintf(" LATE(%d)", n))
	}

	line := fmt.Sprintf("%s %s %s %s %s%s", priBadge, order, tool, bar, next, late)

	if !task.IsPending() {
		line = theme.DimmedStyle.Render(line)
	}
	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

func (d ItemDelegate) lateSteps(task model.Task) int {
	if d.now == nil {
		return 0
	}
	now := d.now()
	n := 0
	for _, s := range task.Steps {
		if s.Late(now, d.threshold) {
			n++
		}
	}
	return n
}

// progressBar renders done out of total as a fixed-width bar.
func progressBar(done, total int) string {
	if total == 0 {
		return "[]"
	}
	filled := lipgloss.NewStyle().Foreground(theme.ColorGreen).Render(strings.Repeat("■", done))
	empty := lipgloss.NewStyle().Foreground(theme.ColorSubtle).Render(strings.Repeat("□", total-done))
	return "[" + filled + empty + "]"
}
