// Package app is the terminal dashboard: a Bubble Tea root model that
// routes between the task list, task detail, the new task form and the
// manager views.
package app

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/fms-tracker/internal/keys"
	appsync "github.com/nhle/fms-tracker/internal/sync"
	"github.com/nhle/fms-tracker/internal/theme"
	"github.com/nhle/fms-tracker/internal/tracker"
	"github.com/nhle/fms-tracker/internal/ui"
	"github.com/nhle/fms-tracker/internal/ui/alertlog"
	"github.com/nhle/fms-tracker/internal/ui/command"
	"github.com/nhle/fms-tracker/internal/ui/detail"
	helpview "github.com/nhle/fms-tracker/internal/ui/help"
	"github.com/nhle/fms-tracker/internal/ui/taskform"
	"github.com/nhle/fms-tracker/internal/ui/tasklist"
)

// Roles accepted by the dashboard.
const (
	RoleManager  = "manager"
	RolePlanner  = "planner"
	RoleOperator = "operator"
)

// refreshInterval is how often the list reloads to pick up changes made
// through the HTTP API.
const refreshInterval = 30 * time.Second

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewDetail
	ViewHelp
	ViewCommand
	ViewTaskCreate
	ViewAlertLog
	ViewConfirmReset
)

// ScanStatusMsg reports a background delay scan to the dashboard.
type ScanStatusMsg appsync.ScanStatus

type refreshTickMsg struct{}

// Deps are the services the dashboard drives.
type Deps struct {
	Tracker    *tracker.Service
	Scanner    appsync.Scanner
	Role       string
	Threshold  float64
	ReportPath string
	Now        func() time.Time
}

// ValidRole reports whether role is a known dashboard role.
func ValidRole(role string) bool {
	switch role {
	case RoleManager, RolePlanner, RoleOperator:
		return true
	}
	return false
}

// Model is the root Bubble Tea model that manages view routing and layout.
type Model struct {
	deps         Deps
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	taskList     tasklist.Model
	detail       detail.Model
	helpView     helpview.Model
	commandView  command.Model
	taskForm     taskform.Model
	alertLog     alertlog.Model
	confirm      *confirmReset
	ready        bool
	scan         *appsync.ScanStatus
	flash        string
	flashErr     bool
}

// New creates the root model for deps.Role.
func New(deps Deps) Model {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if !ValidRole(deps.Role) {
		deps.Role = RoleOperator
	}
	k := keys.DefaultKeyMap()

	return Model{
		deps:        deps,
		currentView: ViewList,
		keys:        k,
		taskList:    tasklist.New(deps.Tracker, k, deps.Now, deps.Threshold, 80, 24),
		detail:      detail.New(k, deps.Now, deps.Threshold, true, 80, 24),
		helpView:    helpview.New(k, deps.Role, 80, 24),
		commandView: command.New(80),
		taskForm:    taskform.New(deps.Now, 80, 24),
		alertLog:    alertlog.New(deps.Tracker, k, 80, 24),
	}
}

func (m Model) canCreate() bool { return m.deps.Role != RoleOperator }
func (m Model) canManage() bool { return m.deps.Role == RoleManager }

// Init loads tasks and schedules the periodic reload.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.taskList.Init(), scheduleRefresh())
}

func scheduleRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return refreshTickMsg{} })
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.taskList.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.taskForm.SetSize(w, h)
		m.alertLog.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case refreshTickMsg:
		return m, tea.Batch(m.reload(), scheduleRefresh())

	case ScanStatusMsg:
		status := appsync.ScanStatus(msg)
		m.scan = &status
		if status.LastSent > 0 {
			m.setFlash(fmt.Sprintf("%d delay alert(s) sent", status.LastSent), false)
			return m, m.reload()
		}
		return m, nil

	case tasklist.TasksLoadedMsg:
		if msg.Err != nil {
			m.setFlash("loading tasks: "+msg.Err.Error(), true)
		}
		var cmd tea.Cmd
		m.taskList, cmd = m.taskList.Update(msg)
		return m, cmd

	case tasklist.SelectedTaskMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detail.SetLoading(true)
		return m, m.loadTaskDetail(msg.TaskID)

	case detail.DetailLoadedMsg:
		if msg.Err != nil {
			m.setFlash(msg.Err.Error(), true)
		}
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd

	case detail.BackMsg:
		m.currentView = ViewList
		return m, nil

	case detail.CompleteStepMsg:
		return m, m.completeStep(msg.TaskID, msg.StepName)

	case stepCompletedMsg:
		if msg.err != nil {
			m.setFlash(msg.err.Error(), true)
			return m, nil
		}
		if msg.alreadyDone {
			m.setFlash(fmt.Sprintf("%s was already Done", msg.stepName), false)
		} else {
			m.setFlash(fmt.Sprintf("%s marked Done (%.2f h delay)", msg.stepName, msg.delay), false)
		}
		return m, tea.Batch(m.reload(), m.loadTaskDetail(msg.taskID))

	case taskform.TaskSubmittedMsg:
		m.currentView = ViewList
		return m, m.createTask(msg.Task)

	case taskform.TaskFormCancelMsg:
		m.currentView = ViewList
		return m, nil

	case taskCreatedMsg:
		if msg.err != nil {
			m.setFlash(msg.err.Error(), true)
			return m, nil
		}
		m.setFlash(fmt.Sprintf("task %d created", msg.id), false)
		return m, m.reload()

	case delaysCheckedMsg:
		if msg.err != nil {
			m.setFlash(fmt.Sprintf("%d alert(s) sent, then: %v", msg.sent, msg.err), true)
		} else {
			m.setFlash(fmt.Sprintf("%d delay alert(s) sent", msg.sent), false)
		}
		return m, tea.Batch(m.reload(), m.alertLog.Load())

	case reportWrittenMsg:
		if msg.err != nil {
			m.setFlash(msg.err.Error(), true)
		} else {
			m.setFlash("report written to "+msg.path, false)
		}
		return m, nil

	case resetDoneMsg:
		if msg.err != nil {
			m.setFlash(msg.err.Error(), true)
		} else {
			m.setFlash("all data cleared", false)
		}
		m.currentView = ViewList
		return m, tea.Batch(m.reload(), m.alertLog.Load())

	case resetCancelledMsg:
		m.currentView = ViewList
		return m, nil

	case alertlog.LoadedMsg:
		var cmd tea.Cmd
		m.alertLog, cmd = m.alertLog.Update(msg)
		return m, cmd

	case alertlog.CloseMsg:
		m.currentView = ViewList
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(string(msg))

	case tea.KeyMsg:
		if model, cmd, handled := m.handleGlobalKey(msg); handled {
			return model, cmd
		}
	}

	return m.updateActiveView(msg)
}

// handleGlobalKey processes keys that are not owned by the active view.
func (m Model) handleGlobalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit, true
	}

	// Text entry views own every other key.
	if m.currentView == ViewTaskCreate || m.currentView == ViewConfirmReset ||
		(m.currentView == ViewList && m.taskList.Searching()) {
		return m, nil, false
	}

	switch msg.String() {
	case "?":
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		if m.currentView == ViewCommand {
			return m, nil, false
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil, true

	case ":":
		if m.currentView == ViewCommand {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m, m.commandView.Focus(), true

	case "esc":
		if m.currentView == ViewHelp || m.currentView == ViewCommand {
			m.currentView = m.previousView
			return m, nil, true
		}
	}

	if m.currentView != ViewList {
		return m, nil, false
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit, true
	case "r":
		return m, m.reload(), true
	case "n":
		return m, m.startCreate(), true
	case "c":
		return m, m.checkDelays(), true
	case "l":
		return m, m.openAlertLog(), true
	case "e":
		return m, m.writeReport(), true
	case "R":
		return m, m.startReset(), true
	}
	return m, nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.taskList, cmd = m.taskList.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewTaskCreate:
		m.taskForm, cmd = m.taskForm.Update(msg)
	case ViewAlertLog:
		m.alertLog, cmd = m.alertLog.Update(msg)
	case ViewConfirmReset:
		if m.confirm != nil {
			cmd = m.confirm.Update(msg)
		}
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "FMS Tracker " + theme.RoleStyle(m.deps.Role).Render(m.deps.Role)
	header := m.layout.RenderHeader(title, m.scanStatus())
	content := m.renderContent()

	hint, isErr := m.keyHints(), false
	if m.flash != "" {
		hint, isErr = m.flash, m.flashErr
	}
	statusBar := m.layout.RenderStatusBar(hint, isErr)

	return m.layout.RenderWithFrame(header, content, statusBar)
}

func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.taskList.View()
	case ViewDetail:
		return m.detail.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewTaskCreate:
		return m.taskForm.View()
	case ViewAlertLog:
		return m.alertLog.View()
	case ViewConfirmReset:
		if m.confirm != nil {
			return m.confirm.View()
		}
	}
	return ""
}

// scanStatus summarizes the background delay scan for the header.
func (m Model) scanStatus() string {
	if m.scan == nil {
		return fmt.Sprintf("alert threshold %.0fh", m.deps.Threshold)
	}
	switch m.scan.State {
	case appsync.ScanRunning:
		return "scanning..."
	case appsync.ScanError:
		return "last scan failed"
	default:
		return fmt.Sprintf("last scan %s, %d alert(s) total",
			m.scan.LastRun.Local().Format("15:04"), m.scan.TotalSent)
	}
}

func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewDetail:
		return "esc back | j/k select step | x mark done"
	case ViewTaskCreate:
		return "enter next | shift+tab back | esc cancel"
	case ViewAlertLog:
		return "esc back | j/k scroll"
	case ViewConfirmReset:
		return "y reset | n or esc cancel"
	default:
		if s := m.taskList.FilterSummary(); s != "" {
			return s + " | p/esc clear"
		}
		hints := "q quit | ? help | enter open | / search | p pending | tab sort"
		if m.canCreate() {
			hints += " | n new"
		}
		if m.canManage() {
			hints += " | c check | l log | e report"
		}
		return hints
	}
}

func (m *Model) setFlash(msg string, isErr bool) {
	m.flash = msg
	m.flashErr = isErr
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	switch cmd {
	case "refresh":
		return m.reload()
	case "new":
		return m.startCreate()
	case "check":
		return m.checkDelays()
	case "alerts":
		return m.openAlertLog()
	case "report":
		return m.writeReport()
	case "reset":
		return m.startReset()
	case "pending":
		m.currentView = ViewList
		return m.taskList.TogglePending()
	case "sort priority":
		return m.taskList.SetSort(tasklist.SortPriority)
	case "sort created":
		return m.taskList.SetSort(tasklist.SortCreated)
	case "quit", "q":
		return tea.Quit
	default:
		m.setFlash(fmt.Sprintf("unknown command %q", cmd), true)
		return nil
	}
}
