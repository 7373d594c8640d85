// Package report flattens tasks, steps and attached file names into CSV.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nhle/fms-tracker/internal/model"
)

// FileName is the attachment name used when serving the report.
const FileName = "task_report.csv"

// Header is the fixed column list of the report.
var Header = []string{
	"Order ID",
	"Tool Name",
	"Requested By",
	"Priority",
	"Required By",
	"Created At",
	"Step",
	"Status",
	"Planned Date",
	"Actual Date",
	"Time Delay (hours)",
	"Files",
}

// TaskLister is the subset of the tracker the report needs.
type TaskLister interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
}

// Export loads every task and writes the report to w.
func Export(ctx context.Context, src TaskLister, w io.Writer) error {
	tasks, err := src.ListTasks(ctx)
	if err != nil {
		return err
	}
	return WriteCSV(w, tasks)
}

// WriteCSV writes one row per (task, step), in task order and then
// workflow order, preceded by Header.
func WriteCSV(w io.Writer, tasks []model.Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing report header: %w", err)
	}

	for _, t := range tasks {
		for _, st := range t.Steps {
			if err := cw.Write(row(t, st)); err != nil {
				return fmt.Errorf("writing report row for task %d: %w", t.ID, err)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing report: %w", err)
	}
	return nil
}

func row(t model.Task, st model.Step) []string {
	var actual, delay string
	if st.ActualDate != nil {
		actual = *st.ActualDate
	}
	if st.TimeDelay != nil {
		delay = strconv.FormatFloat(*st.TimeDelay, 'f', 2, 64)
	}

	files := t.FilesForStep(st.StepName)
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.FileName
	}

	return []string{
		t.OrderID,
		t.ToolName,
		t.RequestedBy,
		t.Priority,
		t.RequiredBy,
		t.Timestamp,
		st.StepName,
		st.Status,
		st.PlannedDate,
		actual,
		delay,
		strings.Join(names, "; "),
	}
}
