package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/fms-tracker/internal/model"
)

// ErrNotFound is returned when a referenced task, step or file does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for tasks, their steps, uploaded
// files and the delay alert log.
type Store interface {
	// === Tasks and steps ===

	// CreateTask inserts the task row and one Pending step per entry in
	// model.StepNames in a single transaction. planned must hold a date for
	// every step name.
	CreateTask(ctx context.Context, task model.TaskRecord, planned map[string]string) (int64, error)
	GetTasks(ctx context.Context) ([]model.Task, error)
	GetTaskByID(ctx context.Context, id int64) (*model.Task, error)
	GetStep(ctx context.Context, taskID int64, stepName string) (*model.Step, error)

	// CompleteStep marks a step Done unless it already is. It reports
	// whether a row was changed.
	CompleteStep(ctx context.Context, taskID int64, stepName, actualDate string, delayHours float64) (bool, error)

	// === Alerts ===

	// GetOverdueSteps returns unfinished steps planned more than
	// thresholdHours before now that have no alert logged yet.
	GetOverdueSteps(ctx context.Context, now time.Time, thresholdHours float64) ([]model.OverdueStep, error)

	// RecordAlert appends a log entry unless one exists for the same
	// task and step. It reports whether the entry was inserted.
	RecordAlert(ctx context.Context, entry model.EmailLogEntry) (bool, error)
	GetEmailLog(ctx context.Context) ([]model.EmailLogEntry, error)

	// === Files ===

	AddFile(ctx context.Context, file model.TaskFile) (int64, error)
	GetFile(ctx context.Context, id int64) (*model.TaskFile, error)

	// === Maintenance ===

	ResetAll(ctx context.Context) error
	Dump(ctx context.Context) (*model.Dump, error)
}
