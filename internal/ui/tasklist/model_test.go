package tasklist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/fms-tracker/internal/keys"
	"github.com/nhle/fms-tracker/internal/model"
)

func loaded() TasksLoadedMsg {
	mk := func(id int64, order, priority string, done bool) model.Task {
		status := model.StepStatusPending
		if done {
			status = model.StepStatusDone
		}
		return model.Task{
			TaskRecord: model.TaskRecord{ID: id, OrderID: order, ToolName: "Die " + order, Priority: priority},
			Steps:      []model.Step{{StepName: "Receive Order", Status: status}},
		}
	}
	return TasksLoadedMsg{Tasks: []model.Task{
		mk(1, "ORD-1", model.PriorityLow, false),
		mk(2, "ORD-2", model.PriorityUrgent, true),
		mk(3, "ORD-3", model.PriorityHigh, false),
	}}
}

func visibleIDs(m Model) []int64 {
	var out []int64
	for _, it := range m.list.Items() {
		out = append(out, it.(TaskItem).Task.ID)
	}
	return out
}

func newList() Model {
	return New(nil, keys.DefaultKeyMap(), time.Now, 48, 80, 24)
}

func TestViewSortsAndFilters(t *testing.T) {
	m, _ := newList().Update(loaded())
	assert.Equal(t, []int64{2, 3, 1}, visibleIDs(m))
	assert.Equal(t, "Tasks (2 pending) sorted by priority", m.list.Title)

	m.SetSort(SortCreated)
	assert.Equal(t, []int64{3, 2, 1}, visibleIDs(m))

	m.TogglePending()
	assert.Equal(t, []int64{3, 1}, visibleIDs(m))
	assert.Equal(t, "pending only", m.FilterSummary())

	m.query = "ord-1"
	m.applyView()
	assert.Equal(t, []int64{1}, visibleIDs(m))
	assert.Len(t, m.Tasks(), 3)
}

func TestSetSortIgnoresUnknownMode(t *testing.T) {
	m, _ := newList().Update(loaded())
	assert.Nil(t, m.SetSort("alphabetical"))
	assert.Equal(t, []int64{2, 3, 1}, visibleIDs(m))
}
