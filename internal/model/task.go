package model

import (
	"fmt"
	"time"
)

// DateLayout is the storage and wire format for calendar dates.
const DateLayout = "2006-01-02"

// Step status constants.
const (
	StepStatusPending    = "Pending"
	StepStatusInProgress = "In Progress"
	StepStatusDone       = "Done"
)

// StepNames is the fixed, ordered workflow every task passes through.
// Clients receive it from GET /api/steps; joins match on exact string equality.
var StepNames = []string{
	"Receive Order",
	"Handover Drawing",
	"Model Designing",
	"Model Checking",
	"Get Metal",
	"Programming & Machining",
	"VMC Inspection",
	"Sampling",
}

// IsStepName reports whether name is one of StepNames.
func IsStepName(name string) bool {
	return StepIndex(name) >= 0
}

// StepIndex returns the position of name in StepNames, or -1.
func StepIndex(name string) int {
	for i, s := range StepNames {
		if s == name {
			return i
		}
	}
	return -1
}

// TaskRecord holds the columns of a tasks row.
type TaskRecord struct {
	ID          int64  `json:"id" db:"id"`
	OrderID     string `json:"order_id" db:"order_id"`
	Timestamp   string `json:"timestamp" db:"timestamp"`
	ToolName    string `json:"tool_name" db:"tool_name"`
	RequestedBy string `json:"requested_by" db:"requested_by"`
	Priority    string `json:"priority" db:"priority"`
	RequiredBy  string `json:"required_by" db:"required_by"`
}

// Task is a tool order tracked through the fixed step workflow.
type Task struct {
	TaskRecord

	// Steps and Files are populated by list queries.
	Steps []Step     `json:"steps" db:"-"`
	Files []TaskFile `json:"files" db:"-"`
}

// IsPending reports whether any step of the task is not yet Done.
func (t Task) IsPending() bool {
	for _, s := range t.Steps {
		if s.Status != StepStatusDone {
			return true
		}
	}
	return false
}

// DoneCount returns how many steps are Done.
func (t Task) DoneCount() int {
	n := 0
	for _, s := range t.Steps {
		if s.Status == StepStatusDone {
			n++
		}
	}
	return n
}

// NextStep returns the first step in workflow order that is not Done.
func (t Task) NextStep() (Step, bool) {
	for _, s := range t.Steps {
		if s.Status != StepStatusDone {
			return s, true
		}
	}
	return Step{}, false
}

// Step returns the step with the given name, if loaded.
func (t Task) Step(name string) (Step, bool) {
	for _, s := range t.Steps {
		if s.StepName == name {
			return s, true
		}
	}
	return Step{}, false
}

// FilesForStep returns the files attached to a single step.
func (t Task) FilesForStep(name string) []TaskFile {
	var out []TaskFile
	for _, f := range t.Files {
		if f.StepName == name {
			out = append(out, f)
		}
	}
	return out
}

// Step is one stage of a task's workflow.
type Step struct {
	ID          int64    `json:"id" db:"id"`
	TaskID      int64    `json:"task_id" db:"task_id"`
	StepName    string   `json:"step_name" db:"step_name"`
	PlannedDate string   `json:"planned_date" db:"planned_date"`
	ActualDate  *string  `json:"actual_date" db:"actual_date"`
	Status      string   `json:"status" db:"status"`
	TimeDelay   *float64 `json:"time_delay" db:"time_delay"`
}

// Late reports whether an unfinished step is more than thresholdHours past
// the start of its planned date at now. This matches the delay scan.
func (s Step) Late(now time.Time, thresholdHours float64) bool {
	if s.Status == StepStatusDone {
		return false
	}
	planned, err := time.Parse(DateLayout, s.PlannedDate)
	if err != nil {
		return false
	}
	return now.UTC().Sub(planned).Hours() > thresholdHours
}

// DelayHours returns the signed number of hours between the planned date and
// actual. Both are calendar dates, so the result is a multiple of 24.
func DelayHours(plannedDate string, actual time.Time) (float64, error) {
	planned, err := time.Parse(DateLayout, plannedDate)
	if err != nil {
		return 0, fmt.Errorf("parsing planned date %q: %w", plannedDate, err)
	}
	day := time.Date(actual.Year(), actual.Month(), actual.Day(), 0, 0, 0, 0, time.UTC)
	return day.Sub(planned).Hours(), nil
}

// ValidDate reports whether s is a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// NewTask is the input for creating a task: base fields plus a planned
// date for every entry in StepNames.
type NewTask struct {
	OrderID     string            `json:"order_id"`
	ToolName    string            `json:"tool_name"`
	RequestedBy string            `json:"requested_by"`
	Priority    string            `json:"priority"`
	RequiredBy  string            `json:"required_by"`
	Steps       map[string]string `json:"steps"`
}
