// Package tracker implements the task lifecycle: creating orders with their
// fixed workflow, completing steps, attaching files and wiping all state.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/fms-tracker/internal/model"
	"github.com/nhle/fms-tracker/internal/store"
)

// ErrInvalid marks input that fails validation.
var ErrInvalid = errors.New("invalid input")

// CompleteResult describes the outcome of CompleteStep.
type CompleteResult struct {
	Step        model.Step
	AlreadyDone bool
}

// Service is the task lifecycle manager.
type Service struct {
	store  store.Store
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock used for completion dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger; the default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service backed by st.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTask validates req and stores the task with all eight steps Pending.
func (s *Service) CreateTask(ctx context.Context, req model.NewTask) (int64, error) {
	if err := ValidateNewTask(req); err != nil {
		return 0, err
	}

	planned := make(map[string]string, len(model.StepNames))
	for _, name := range model.StepNames {
		planned[name] = strings.TrimSpace(req.Steps[name])
	}

	id, err := s.store.CreateTask(ctx, model.TaskRecord{
		OrderID:     strings.TrimSpace(req.OrderID),
		ToolName:    strings.TrimSpace(req.ToolName),
		RequestedBy: strings.TrimSpace(req.RequestedBy),
		Priority:    req.Priority,
		RequiredBy:  strings.TrimSpace(req.RequiredBy),
		Timestamp:   s.now().UTC().Format(time.RFC3339Nano),
	}, planned)
	if err != nil {
		return 0, err
	}

	s.logger.Info("task created",
		zap.Int64("task_id", id),
		zap.String("order_id", req.OrderID),
		zap.String("priority", req.Priority))
	return id, nil
}

// ValidateNewTask checks that every base field is present, the priority is
// known and each of the fixed steps has a valid planned date.
func ValidateNewTask(req model.NewTask) error {
	var problems []string

	required := []struct{ name, value string }{
		{"order_id", req.OrderID},
		{"tool_name", req.ToolName},
		{"requested_by", req.RequestedBy},
		{"priority", req.Priority},
		{"required_by", req.RequiredBy},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			problems = append(problems, f.name+" is required")
		}
	}

	if req.Priority != "" && !model.IsPriority(req.Priority) {
		problems = append(problems, fmt.Sprintf("priority %q must be one of %s",
			req.Priority, strings.Join(model.Priorities, ", ")))
	}
	if rb := strings.TrimSpace(req.RequiredBy); rb != "" && !model.ValidDate(rb) {
		problems = append(problems, fmt.Sprintf("required_by %q is not a YYYY-MM-DD date", rb))
	}

	for _, name := range model.StepNames {
		d := strings.TrimSpace(req.Steps[name])
		switch {
		case d == "":
			problems = append(problems, fmt.Sprintf("planned date for %s is required", name))
		case !model.ValidDate(d):
			problems = append(problems, fmt.Sprintf("planned date for %s (%q) is not a YYYY-MM-DD date", name, d))
		}
	}
	for name := range req.Steps {
		if !model.IsStepName(name) {
			problems = append(problems, fmt.Sprintf("unknown step %q", name))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// CompleteStep marks a step Done, recording today's date and the delay in
// hours against its planned date. Completing a step that is already Done
// changes nothing and reports AlreadyDone.
func (s *Service) CompleteStep(ctx context.Context, taskID int64, stepName string) (*CompleteResult, error) {
	step, err := s.store.GetStep(ctx, taskID, stepName)
	if err != nil {
		return nil, err
	}
	if step.Status == model.StepStatusDone {
		return &CompleteResult{Step: *step, AlreadyDone: true}, nil
	}

	now := s.now().UTC()
	actual := now.Format(model.DateLayout)
	delay, err := model.DelayHours(step.PlannedDate, now)
	if err != nil {
		return nil, fmt.Errorf("computing delay for step %q of task %d: %w", stepName, taskID, err)
	}

	updated, err := s.store.CompleteStep(ctx, taskID, stepName, actual, delay)
	if err != nil {
		return nil, err
	}

	// A concurrent completion won the race; report its result.
	if !updated {
		current, err := s.store.GetStep(ctx, taskID, stepName)
		if err != nil {
			return nil, err
		}
		return &CompleteResult{Step: *current, AlreadyDone: true}, nil
	}

	step.Status = model.StepStatusDone
	step.ActualDate = &actual
	step.TimeDelay = &delay

	s.logger.Info("step completed",
		zap.Int64("task_id", taskID),
		zap.String("step", stepName),
		zap.Float64("delay_hours", delay))
	return &CompleteResult{Step: *step}, nil
}

// ResetAll removes every task, step, alert log entry and file.
func (s *Service) ResetAll(ctx context.Context) error {
	if err := s.store.ResetAll(ctx); err != nil {
		return err
	}
	s.logger.Warn("all FMS data cleared")
	return nil
}

// ListTasks returns all tasks with their steps and file metadata.
func (s *Service) ListTasks(ctx context.Context) ([]model.Task, error) {
	return s.store.GetTasks(ctx)
}

// GetTask returns one task with its steps and file metadata.
func (s *Service) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	return s.store.GetTaskByID(ctx, id)
}

// EmailLog returns the alert log.
func (s *Service) EmailLog(ctx context.Context) ([]model.EmailLogEntry, error) {
	return s.store.GetEmailLog(ctx)
}

// Dump returns the raw table contents.
func (s *Service) Dump(ctx context.Context) (*model.Dump, error) {
	return s.store.Dump(ctx)
}

// UploadFile attaches a file to an existing task step.
func (s *Service) UploadFile(
	ctx context.Context,
	taskID int64,
	stepName, fileName string,
	data []byte,
) (int64, error) {
	if strings.TrimSpace(fileName) == "" {
		return 0, fmt.Errorf("%w: file name is required", ErrInvalid)
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: file %q is empty", ErrInvalid, fileName)
	}
	if _, err := s.store.GetStep(ctx, taskID, stepName); err != nil {
		return 0, err
	}

	id, err := s.store.AddFile(ctx, model.TaskFile{
		TaskID:     taskID,
		StepName:   stepName,
		FileName:   fileName,
		Data:       data,
		UploadedAt: s.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("file uploaded",
		zap.Int64("task_id", taskID),
		zap.String("step", stepName),
		zap.String("file", fileName),
		zap.Int("bytes", len(data)))
	return id, nil
}

// GetFile returns a stored file with its contents.
func (s *Service) GetFile(ctx context.Context, id int64) (*model.TaskFile, error) {
	return s.store.GetFile(ctx, id)
}
