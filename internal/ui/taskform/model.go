package taskform

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/fms-tracker/internal/model"
	"github.com/nhle/fms-tracker/internal/theme"
)

// TaskSubmittedMsg is dispatched when the form is completed.
type TaskSubmittedMsg struct {
	Task model.NewTask
}

// TaskFormCancelMsg is dispatched when the user cancels the form.
type TaskFormCancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	orderID     string
	toolName    string
	requestedBy string
	priority    string
	requiredBy  string
	steps       []string
}

// Model is the Bubble Tea model for the new task form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	now    func() time.Time
	width  int
	height int
}

// New creates a new task form model. now seeds the default planned dates.
func New(now func() time.Time, width, height int) Model {
	return Model{
		fb:     &formBindings{},
		now:    now,
		width:  width,
		height: height,
	}
}

// Start resets the form. Step dates default to one per day from tomorrow,
// so a planner only edits the ones that differ.
func (m *Model) Start() tea.Cmd {
	today := m.now().UTC()
	m.fb.orderID = ""
	m.fb.toolName = ""
	m.fb.requestedBy = ""
	m.fb.priority = model.PriorityMedium
	m.fb.requiredBy = today.AddDate(0, 0, len(model.StepNames)+1).Format(model.DateLayout)
	m.fb.steps = make([]string, len(model.StepNames))
	for i := range model.StepNames {
		m.fb.steps[i] = today.AddDate(0, 0, i+1).Format(model.DateLayout)
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		task := m.Value()
		m.form = nil
		return m, func() tea.Msg { return TaskSubmittedMsg{Task: task} }
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return TaskFormCancelMsg{} }
	}

	return m, cmd
}

// Value returns the request built from the current field values.
func (m Model) Value() model.NewTask {
	steps := make(map[string]string, len(model.StepNames))
	for i, name := range model.StepNames {
		steps[name] = strings.TrimSpace(m.fb.steps[i])
	}
	return model.NewTask{
		OrderID:     strings.TrimSpace(m.fb.orderID),
		ToolName:    strings.TrimSpace(m.fb.toolName),
		RequestedBy: strings.TrimSpace(m.fb.requestedBy),
		Priority:    m.fb.priority,
		RequiredBy:  strings.TrimSpace(m.fb.requiredBy),
		Steps:       steps,
	}
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	content := theme.TitleStyle.Render("New Task") + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth()).WithHeight(m.formHeight())
	}
}

func (m *Model) buildForm() *huh.Form {
	priorities := make([]huh.Option[string], len(model.Priorities))
	for i, p := range model.Priorities {
		priorities[i] = huh.NewOption(p, p)
	}

	base := huh.NewGroup(
		huh.NewInput().
			Title("Order ID").
			Value(&m.fb.orderID).
			Validate(validateRequired("Order ID")),
		huh.NewInput().
			Title("Tool Name").
			Value(&m.fb.toolName).
			Validate(validateRequired("Tool Name")),
		huh.NewInput().
			Title("Requested By").
			Value(&m.fb.requestedBy).
			Validate(validateRequired("Requested By")),
		huh.NewSelect[string]().
			Title("Priority").
			Options(priorities...).
			Value(&m.fb.priority),
		huh.NewInput().
			Title("Required By").
			Placeholder("YYYY-MM-DD").
			Value(&m.fb.requiredBy).
			Validate(validateDate),
	).Title("Order")

	stepFields := make([]huh.Field, len(model.StepNames))
	for i, name := range model.StepNames {
		stepFields[i] = huh.NewInput().
			Title(name).
			Placeholder("YYYY-MM-DD").
			Value(&m.fb.steps[i]).
			Validate(validateDate)
	}
	planned := huh.NewGroup(stepFields...).Title("Planned dates")

	return huh.NewForm(base, planned).
		WithKeyMap(keyMap()).
		WithWidth(m.formWidth()).
		WithHeight(m.formHeight())
}

// keyMap lets esc cancel the form.
func keyMap() *huh.KeyMap {
	km := huh.NewDefaultKeyMap()
	km.Quit = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel"))
	return km
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Model) formHeight() int {
	return max(m.height-4, 10)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateDate(s string) error {
	if !model.ValidDate(strings.TrimSpace(s)) {
		return fmt.Errorf("use YYYY-MM-DD")
	}
	return nil
}
