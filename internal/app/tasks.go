package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/fms-tracker/internal/model"
	"github.com/nhle/fms-tracker/internal/report"
	"github.com/nhle/fms-tracker/internal/ui/detail"
)

// errNotAllowed is reported when the role may not perform an action.
var errNotAllowed = errors.New("not allowed for this role")

// stepCompletedMsg is sent after a step completion attempt.
type stepCompletedMsg struct {
	taskID      int64
	stepName    string
	delay       float64
	alreadyDone bool
	err         error
}

// taskCreatedMsg is sent after a task is persisted.
type taskCreatedMsg struct {
	id  int64
	err error
}

// delaysCheckedMsg carries the outcome of a manual delay scan.
type delaysCheckedMsg struct {
	sent int
	err  error
}

// reportWrittenMsg is sent after the CSV report is written.
type reportWrittenMsg struct {
	path string
	err  error
}

// reload refreshes the task list.
func (m *Model) reload() tea.Cmd {
	return m.taskList.LoadTasks()
}

// loadTaskDetail returns a command that loads a task by ID.
func (m *Model) loadTaskDetail(taskID int64) tea.Cmd {
	t := m.deps.Tracker
	return func() tea.Msg {
		task, err := t.GetTask(context.Background(), taskID)
		return detail.DetailLoadedMsg{Task: task, Err: err}
	}
}

// completeStep marks a step Done.
func (m *Model) completeStep(taskID int64, stepName string) tea.Cmd {
	t := m.deps.Tracker
	return func() tea.Msg {
		res, err := t.CompleteStep(context.Background(), taskID, stepName)
		if err != nil {
			return stepCompletedMsg{taskID: taskID, stepName: stepName, err: err}
		}
		msg := stepCompletedMsg{taskID: taskID, stepName: stepName, alreadyDone: res.AlreadyDone}
		if res.Step.TimeDelay != nil {
			msg.delay = *res.Step.TimeDelay
		}
		return msg
	}
}

// startCreate opens the new task form.
func (m *Model) startCreate() tea.Cmd {
	if !m.canCreate() {
		m.setFlash("creating tasks is "+errNotAllowed.Error(), true)
		return nil
	}
	m.previousView = m.currentView
	m.currentView = ViewTaskCreate
	return m.taskForm.Start()
}

// createTask persists a task submitted from the form.
func (m *Model) createTask(req model.NewTask) tea.Cmd {
	t := m.deps.Tracker
	return func() tea.Msg {
		id, err := t.CreateTask(context.Background(), req)
		return taskCreatedMsg{id: id, err: err}
	}
}

// checkDelays runs one delay scan.
func (m *Model) checkDelays() tea.Cmd {
	if !m.canManage() {
		m.setFlash("checking delays is "+errNotAllowed.Error(), true)
		return nil
	}
	if m.deps.Scanner == nil {
		m.setFlash("delay scanning is not configured", true)
		return nil
	}
	s := m.deps.Scanner
	m.setFlash("checking delays...", false)
	return func() tea.Msg {
		sent, err := s.Scan(context.Background())
		return delaysCheckedMsg{sent: sent, err: err}
	}
}

// openAlertLog switches to the alert log view.
func (m *Model) openAlertLog() tea.Cmd {
	if !m.canManage() {
		m.setFlash("the alert log is "+errNotAllowed.Error(), true)
		return nil
	}
	m.previousView = m.currentView
	m.currentView = ViewAlertLog
	return m.alertLog.Load()
}

// writeReport exports the CSV report to the configured path.
func (m *Model) writeReport() tea.Cmd {
	if !m.canManage() {
		m.setFlash("exporting the report is "+errNotAllowed.Error(), true)
		return nil
	}
	t := m.deps.Tracker
	path := m.deps.ReportPath
	if path == "" {
		path = report.FileName
	}
	return func() tea.Msg {
		return reportWrittenMsg{path: path, err: exportReport(t, path)}
	}
}

func exportReport(src report.TaskLister, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing report %s: %w", path, cerr)
		}
	}()
	return report.Export(context.Background(), src, f)
}
