package report_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/fms-tracker/internal/model"
	"github.com/nhle/fms-tracker/internal/report"
)

func ptr[T any](v T) *T { return &v }

func sampleTask() model.Task {
	return model.Task{
		TaskRecord: model.TaskRecord{
			ID:          1,
			OrderID:     "ORD-1",
			Timestamp:   "2024-01-01T08:00:00Z",
			ToolName:    "Die, Stage 2",
			RequestedBy: "planner",
			Priority:    model.PriorityHigh,
			RequiredBy:  "2024-02-01",
		},
		Steps: []model.Step{
			{StepName: "Receive Order", PlannedDate: "2024-01-02", Status: model.StepStatusDone,
				ActualDate: ptr("2024-01-03"), TimeDelay: ptr(24.0)},
			{StepName: "Handover Drawing", PlannedDate: "2024-01-03", Status: model.StepStatusPending},
		},
		Files: []model.TaskFile{
			{FileName: "po.pdf", StepName: "Receive Order"},
			{FileName: "po-signed.pdf", StepName: "Receive Order"},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteCSV(&buf, []model.Task{sampleTask()}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, report.Header, rows[0])
	want := []string{
		"ORD-1", "Die, Stage 2", "planner", "High", "2024-02-01", "2024-01-01T08:00:00Z",
		"Receive Order", "Done", "2024-01-02", "2024-01-03", "24.00", "po.pdf; po-signed.pdf",
	}
	if diff := cmp.Diff(want, rows[1]); diff != "" {
		t.Errorf("first row mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "", rows[2][9])
	assert.Equal(t, "", rows[2][10])
	assert.Equal(t, "", rows[2][11])
}

func TestWriteCSVNoTasks(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteCSV(&buf, nil))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

type listerFunc func(context.Context) ([]model.Task, error)

func (f listerFunc) ListTasks(ctx context.Context) ([]model.Task, error) { return f(ctx) }

func TestExport(t *testing.T) {
	var buf bytes.Buffer
	err := report.Export(context.Background(), listerFunc(func(context.Context) ([]model.Task, error) {
		return []model.Task{sampleTask(), sampleTask()}, nil
	}), &buf)
	require.NoError(t, err)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 5)

	boom := errors.New("db closed")
	err = report.Export(context.Background(), listerFunc(func(context.Context) ([]model.Task, error) {
		return nil, boom
	}), &buf)
	assert.ErrorIs(t, err, boom)
}
