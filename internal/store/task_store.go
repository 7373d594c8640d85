package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/nhle/fms-tracker/internal/model"
)

const (
	selectTasks = `SELECT id, order_id, timestamp, tool_name, requested_by, priority, required_by FROM tasks`
	selectSteps = `SELECT id, task_id, step_name, planned_date, actual_date, status, time_delay FROM task_steps`
	selectFiles = `SELECT id, task_id, step_name, file_name, uploaded_at FROM task_files`
)

// CreateTask inserts a task and its eight steps atomically. The task's
// Timestamp is set from the store clock when empty.
func (s *SQLiteStore) CreateTask(
	ctx context.Context,
	task model.TaskRecord,
	planned map[string]string,
) (int64, error) {
	for _, name := range model.StepNames {
		if planned[name] == "" {
			return 0, fmt.Errorf("creating task: missing planned date for step %q", name)
		}
	}
	if task.Timestamp == "" {
		task.Timestamp = timestamp(s.now())
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO tasks (order_id, timestamp, tool_name, requested_by, priority, required_by)
		VALUES (?, ?, ?, ?, ?, ?)`,
		task.OrderID, task.Timestamp, task.ToolName,
		task.RequestedBy, task.Priority, task.RequiredBy,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting task: %w", err)
	}
	taskID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading task id: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO task_steps (task_id, step_name, planned_date, status)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing step insert: %w", err)
	}
	defer stmt.Close()

	for _, name := range model.StepNames {
		if _, err := stmt.ExecContext(ctx, taskID, name, planned[name], model.StepStatusPending); err != nil {
			return 0, fmt.Errorf("inserting step %q for task %d: %w", name, taskID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing task %d: %w", taskID, err)
	}
	return taskID, nil
}

// GetTasks returns every task in id order with its steps (in workflow order)
// and file metadata attached.
func (s *SQLiteStore) GetTasks(ctx context.Context) ([]model.Task, error) {
	var records []model.TaskRecord
	if err := s.db.SelectContext(ctx, &records, selectTasks+" ORDER BY id"); err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}

	var steps []model.Step
	if err := s.db.SelectContext(ctx, &steps, selectSteps); err != nil {
		return nil, fmt.Errorf("querying task steps: %w", err)
	}

	var files []model.TaskFile
	if err := s.db.SelectContext(ctx, &files, selectFiles+" ORDER BY id"); err != nil {
		return nil, fmt.Errorf("querying task files: %w", err)
	}

	stepsByTask := make(map[int64][]model.Step, len(records))
	for _, st := range steps {
		stepsByTask[st.TaskID] = append(stepsByTask[st.TaskID], st)
	}
	filesByTask := make(map[int64][]model.TaskFile, len(records))
	for _, f := range files {
		filesByTask[f.TaskID] = append(filesByTask[f.TaskID], f)
	}

	tasks := make([]model.Task, 0, len(records))
	for _, r := range records {
		tasks = append(tasks, assembleTask(r, stepsByTask[r.ID], filesByTask[r.ID]))
	}
	return tasks, nil
}

// GetTaskByID retrieves a single task with its steps and file metadata.
func (s *SQLiteStore) GetTaskByID(ctx context.Context, id int64) (*model.Task, error) {
	var r model.TaskRecord
	if err := s.db.GetContext(ctx, &r, selectTasks+" WHERE id = ?", id); err != nil {
		return nil, notFound(err, "getting task %d", id)
	}

	var steps []model.Step
	if err := s.db.SelectContext(ctx, &steps, selectSteps+" WHERE task_id = ?", id); err != nil {
		return nil, fmt.Errorf("querying steps for task %d: %w", id, err)
	}

	var files []model.TaskFile
	if err := s.db.SelectContext(ctx, &files, selectFiles+" WHERE task_id = ? ORDER BY id", id); err != nil {
		return nil, fmt.Errorf("querying files for task %d: %w", id, err)
	}

	task := assembleTask(r, steps, files)
	return &task, nil
}

// GetStep retrieves one step by task id and step name.
func (s *SQLiteStore) GetStep(
	ctx context.Context,
	taskID int64,
	stepName string,
) (*model.Step, error) {
	var st model.Step
	err := s.db.GetContext(ctx, &st,
		selectSteps+" WHERE task_id = ? AND step_name = ?", taskID, stepName)
	if err != nil {
		return nil, notFound(err, "getting step %q of task %d", stepName, taskID)
	}
	return &st, nil
}

// CompleteStep marks the step Done with the given actual date and delay.
// Steps already Done are left untouched.
func (s *SQLiteStore) CompleteStep(
	ctx context.Context,
	taskID int64,
	stepName, actualDate string,
	delayHours float64,
) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE task_steps SET status = ?, actual_date = ?, time_delay = ?
		WHERE task_id = ? AND step_name = ? AND status != ?`,
		model.StepStatusDone, actualDate, delayHours,
		taskID, stepName, model.StepStatusDone,
	)
	if err != nil {
		return false, fmt.Errorf("completing step %q of task %d: %w", stepName, taskID, err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// assembleTask attaches steps in workflow order and never-nil slices.
func assembleTask(r model.TaskRecord, steps []model.Step, files []model.TaskFile) model.Task {
	if steps == nil {
		steps = []model.Step{}
	}
	if files == nil {
		files = []model.TaskFile{}
	}
	sort.SliceStable(steps, func(i, j int) bool {
		return model.StepIndex(steps[i].StepName) < model.StepIndex(steps[j].StepName)
	})
	return model.Task{TaskRecord: r, Steps: steps, Files: files}
}
