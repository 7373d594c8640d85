package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/fms-tracker/internal/model"
)

var testNow = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	s.SetClock(func() time.Time { return testNow })
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func plannedFrom(first string) map[string]string {
	start, _ := time.Parse(model.DateLayout, first)
	dates := make(map[string]string, len(model.StepNames))
	for i, name := range model.StepNames {
		dates[name] = start.AddDate(0, 0, i).Format(model.DateLayout)
	}
	return dates
}

func createTask(t *testing.T, s *SQLiteStore, orderID, first string) int64 {
	t.Helper()
	id, err := s.CreateTask(context.Background(), model.TaskRecord{
		OrderID:     orderID,
		ToolName:    "Die " + orderID,
		RequestedBy: "planner",
		Priority:    model.PriorityHigh,
		RequiredBy:  "2024-12-31",
	}, plannedFrom(first))
	require.NoError(t, err)
	return id
}

func TestCreateTaskWritesAllSteps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id := createTask(t, s, "ORD-1", "2024-01-05")

	task, err := s.GetTaskByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", task.OrderID)
	assert.Equal(t, testNow.Format(time.RFC3339Nano), task.Timestamp)
	assert.Empty(t, task.Files)
	require.Len(t, task.Steps, len(model.StepNames))
	for i, st := range task.Steps {
		assert.Equal(t, model.StepNames[i], st.StepName)
		assert.Equal(t, model.StepStatusPending, st.Status)
		assert.Nil(t, st.ActualDate)
		assert.Nil(t, st.TimeDelay)
	}
	assert.Equal(t, "2024-01-05", task.Steps[0].PlannedDate)
	assert.Equal(t, "2024-01-12", task.Steps[7].PlannedDate)
}

func TestCreateTaskMissingPlannedDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	planned := plannedFrom("2024-01-05")
	delete(planned, "Get Metal")

	_, err := s.CreateTask(ctx, model.TaskRecord{OrderID: "X", Priority: model.PriorityLow}, planned)
	assert.ErrorContains(t, err, "Get Metal")

	tasks, err := s.GetTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestCreateTaskRollsBackOnStepFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.db.Exec(`
		CREATE TRIGGER reject_sampling BEFORE INSERT ON task_steps
		WHEN NEW.step_name = 'Sampling'
		BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	require.NoError(t, err)

	_, err = s.CreateTask(ctx, model.TaskRecord{
		OrderID: "ORD-1", ToolName: "Die", RequestedBy: "p",
		Priority: model.PriorityLow, RequiredBy: "2024-12-31",
	}, plannedFrom("2024-01-05"))
	require.Error(t, err)

	dump, err := s.Dump(ctx)
	require.NoError(t, err)
	assert.Empty(t, dump.Tasks)
	assert.Empty(t, dump.TaskSteps)
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := createTask(t, s, "ORD-1", "2024-01-05")

	_, err := s.GetTaskByID(ctx, id+1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetStep(ctx, id, "Painting")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetFile(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompleteStepIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := createTask(t, s, "ORD-1", "2024-01-08")

	changed, err := s.CompleteStep(ctx, id, "Receive Order", "2024-01-10", 48)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.CompleteStep(ctx, id, "Receive Order", "2024-01-15", 168)
	require.NoError(t, err)
	assert.False(t, changed)

	st, err := s.GetStep(ctx, id, "Receive Order")
	require.NoError(t, err)
	assert.Equal(t, model.StepStatusDone, st.Status)
	require.NotNil(t, st.ActualDate)
	assert.Equal(t, "2024-01-10", *st.ActualDate)
	require.NotNil(t, st.TimeDelay)
	assert.InDelta(t, 48.0, *st.TimeDelay, 1e-9)
}

func TestGetOverdueSteps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := createTask(t, s, "ORD-1", "2024-01-05")

	// At 2024-01-10 12:00 the first step is 132h past, the fifth 36h.
	overdue, err := s.GetOverdueSteps(ctx, testNow, 48)
	require.NoError(t, err)
	require.Len(t, overdue, 4)
	assert.Equal(t, "Receive Order", overdue[0].StepName)
	assert.Equal(t, "Model Checking", overdue[3].StepName)
	assert.InDelta(t, 132.0, overdue[0].HoursLate, 1e-6)
	assert.Equal(t, id, overdue[0].TaskID)

	_, err = s.CompleteStep(ctx, id, "Receive Order", "2024-01-10", 120)
	require.NoError(t, err)
	inserted, err := s.RecordAlert(ctx, model.EmailLogEntry{
		TaskID: id, OrderID: "ORD-1", StepName: "Handover Drawing",
	})
	require.NoError(t, err)
	require.True(t, inserted)

	overdue, err = s.GetOverdueSteps(ctx, testNow, 48)
	require.NoError(t, err)
	require.Len(t, overdue, 2)
	assert.Equal(t, "Model Designing", overdue[0].StepName)
}

func TestRecordAlertDeduplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	first := createTask(t, s, "ORD-1", "2024-01-05")
	second := createTask(t, s, "ORD-1", "2024-01-05")

	entry := model.EmailLogEntry{TaskID: first, OrderID: "ORD-1", StepName: "Sampling", MessageID: "<a@fms>"}
	inserted, err := s.RecordAlert(ctx, entry)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.RecordAlert(ctx, entry)
	require.NoError(t, err)
	assert.False(t, inserted)

	// Same order id on another task is a separate alert.
	entry.TaskID = second
	inserted, err = s.RecordAlert(ctx, entry)
	require.NoError(t, err)
	assert.True(t, inserted)

	log, err := s.GetEmailLog(ctx)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, first, log[0].TaskID)
	assert.Equal(t, testNow.Format(time.RFC3339Nano), log[0].AlertSentTime)
	assert.Equal(t, "<a@fms>", log[0].MessageID)
}

func TestFiles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := createTask(t, s, "ORD-1", "2024-01-05")

	fileID, err := s.AddFile(ctx, model.TaskFile{
		TaskID: id, StepName: "Handover Drawing", FileName: "part.dxf", Data: []byte("0\nSECTION"),
	})
	require.NoError(t, err)

	f, err := s.GetFile(ctx, fileID)
	require.NoError(t, err)
	assert.Equal(t, "part.dxf", f.FileName)
	assert.Equal(t, []byte("0\nSECTION"), f.Data)

	tasks, err := s.GetTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Len(t, tasks[0].Files, 1)
	assert.Equal(t, fileID, tasks[0].Files[0].ID)
	assert.Nil(t, tasks[0].Files[0].Data, "list queries omit file contents")
}

func TestResetAllAndDump(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := createTask(t, s, "ORD-1", "2024-01-05")
	_, err := s.AddFile(ctx, model.TaskFile{TaskID: id, StepName: "Sampling", FileName: "a", Data: []byte("a")})
	require.NoError(t, err)
	_, err = s.RecordAlert(ctx, model.EmailLogEntry{TaskID: id, OrderID: "ORD-1", StepName: "Sampling"})
	require.NoError(t, err)

	dump, err := s.Dump(ctx)
	require.NoError(t, err)
	assert.Len(t, dump.Tasks, 1)
	assert.Len(t, dump.TaskSteps, 8)
	assert.Len(t, dump.EmailLog, 1)

	require.NoError(t, s.ResetAll(ctx))

	dump, err = s.Dump(ctx)
	require.NoError(t, err)
	assert.NotNil(t, dump.Tasks)
	assert.Empty(t, dump.Tasks)
	assert.Empty(t, dump.TaskSteps)
	assert.Empty(t, dump.EmailLog)

	_, err = s.GetFile(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMigrationsAreReentrant(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.runMigrations())

	var version int
	require.NoError(t, s.db.Get(&version, "SELECT MAX(version) FROM schema_version"))
	assert.Equal(t, len(migrations), version)
}
