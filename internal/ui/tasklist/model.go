package tasklist

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/fms-tracker/internal/keys"
	"github.com/nhle/fms-tracker/internal/model"
	"github.com/nhle/fms-tracker/internal/theme"
)

// Sort modes cycled by Tab.
const (
	SortPriority = "priority"
	SortCreated  = "created"
)

var sortModes = []string{SortPriority, SortCreated}

// Lister loads every task with its steps and files.
type Lister interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
}

// TasksLoadedMsg is sent when tasks have been loaded.
type TasksLoadedMsg struct {
	Tasks []model.Task
	Err   error
}

// SelectedTaskMsg is sent when a user opens a task.
type SelectedTaskMsg struct {
	TaskID int64
}

// Model is the task list view.
type Model struct {
	list        list.Model
	source      Lister
	keys        *keys.KeyMap
	all         []model.Task
	query       string
	pendingOnly bool
	sortIndex   int
	searchMode  bool
	searchInput textinput.Model
	width       int
	height      int
}

// New creates a task list. Rows whose steps are more than threshold hours
// late at now() are flagged.
func New(src Lister, k *keys.KeyMap, now func() time.Time, threshold float64, width, height int) Model {
	delegate := ItemDelegate{now: now, threshold: threshold}
	l := list.New([]list.Item{}, delegate, width, height-2)
	l.Title = "Tasks"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "order, tool or requester..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		source:      src,
		keys:        k,
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// Init loads the initial set of tasks.
func (m Model) Init() tea.Cmd {
	return m.LoadTasks()
}

// Update handles messages for the task list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TasksLoadedMsg:
		if msg.Err != nil {
			return m, nil
		}
		m.all = msg.Tasks
		return m, m.applyView()

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.query = strings.TrimSpace(m.searchInput.Value())
		return m, m.applyView()

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.query = ""
		return m, m.applyView()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		item, ok := m.list.SelectedItem().(TaskItem)
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			return SelectedTaskMsg{TaskID: item.Task.ID}
		}

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.Reset()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.TogglePending):
		return m, m.TogglePending()

	case key.Matches(msg, m.keys.CycleSort):
		m.sortIndex = (m.sortIndex + 1) % len(sortModes)
		return m, m.applyView()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// TogglePending switches between all tasks and pending tasks only.
func (m *Model) TogglePending() tea.Cmd {
	m.pendingOnly = !m.pendingOnly
	return m.applyView()
}

// SetSort selects a sort mode by name; unknown names are ignored.
func (m *Model) SetSort(mode string) tea.Cmd {
	for i, s := range sortModes {
		if s == mode {
			m.sortIndex = i
			return m.applyView()
		}
	}
	return nil
}

// applyView filters and sorts the loaded tasks into the list.
func (m *Model) applyView() tea.Cmd {
	tasks := m.all
	if m.pendingOnly {
		tasks = model.PendingTasks(tasks)
	}
	if m.query != "" {
		q := strings.ToLower(m.query)
		var matched []model.Task
		for _, t := range tasks {
			if strings.Contains(strings.ToLower(TaskItem{Task: t}.FilterValue()), q) {
				matched = append(matched, t)
			}
		}
		tasks = matched
	}

	switch sortModes[m.sortIndex] {
	case SortPriority:
		tasks = model.SortByPriority(tasks)
	case SortCreated:
		tasks = append([]model.Task(nil), tasks...)
		sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].ID > tasks[j].ID })
	}

	items := make([]list.Item, len(tasks))
	for i, t := range tasks {
		items[i] = TaskItem{Task: t}
	}
	m.list.Title = m.title(len(model.PendingTasks(m.all)))
	return m.list.SetItems(items)
}

func (m Model) title(pending int) string {
	return fmt.Sprintf("Tasks (%d pending) sorted by %s", pending, sortModes[m.sortIndex])
}

// FilterSummary describes active filters for the status bar.
func (m Model) FilterSummary() string {
	var parts []string
	if m.pendingOnly {
		parts = append(parts, "pending only")
	}
	if m.query != "" {
		parts = append(parts, fmt.Sprintf("search %q", m.query))
	}
	return strings.Join(parts, ", ")
}

// SelectedTask returns the highlighted task.
func (m Model) SelectedTask() (model.Task, bool) {
	item, ok := m.list.SelectedItem().(TaskItem)
	return item.Task, ok
}

// Tasks returns every loaded task, unfiltered.
func (m Model) Tasks() []model.Task {
	return m.all
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// View renders the task list view.
func (m Model) View() string {
	if m.searchMode {
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, searchBar, m.list.View())
	}

	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	return m.list.View()
}

func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if len(m.all) > 0 {
		return style.Render("No matching tasks.\nPress p or esc to clear filters.")
	}
	return style.Render("No tasks yet.\n\nPress n to create one.")
}

// LoadTasks returns a command that loads every task.
func (m Model) LoadTasks() tea.Cmd {
	src := m.source
	return func() tea.Msg {
		tasks, err := src.ListTasks(context.Background())
		return TasksLoadedMsg{Tasks: tasks, Err: err}
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
