package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func taskWith(id int64, priority string, statuses ...string) Task {
	t := Task{TaskRecord: TaskRecord{ID: id, Priority: priority}}
	for _, s := range statuses {
		t.Steps = append(t.Steps, Step{Status: s})
	}
	return t
}

func ids(tasks []Task) []int64 {
	out := make([]int64, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestSortByPriority(t *testing.T) {
	tasks := []Task{
		taskWith(1, PriorityLow),
		taskWith(2, PriorityUrgent),
		taskWith(3, PriorityMedium),
		taskWith(4, PriorityUrgent),
		taskWith(5, PriorityHigh),
	}

	got := SortByPriority(tasks)

	if diff := cmp.Diff([]int64{2, 4, 5, 3, 1}, ids(got)); diff != "" {
		t.Errorf("SortByPriority order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids(tasks), "input must not be reordered")
}

func TestTopPriority(t *testing.T) {
	var tasks []Task
	for i, p := range []string{PriorityLow, PriorityHigh, PriorityLow, PriorityUrgent, PriorityMedium, PriorityHigh, PriorityLow} {
		tasks = append(tasks, taskWith(int64(i+1), p))
	}

	assert.Equal(t, []int64{4, 2, 6, 5, 1}, ids(TopPriority(tasks, 5)))
	assert.Len(t, TopPriority(tasks[:2], 5), 2)
	assert.Empty(t, TopPriority(nil, 5))
}

func TestPendingTasks(t *testing.T) {
	tasks := []Task{
		taskWith(1, PriorityLow, StepStatusDone, StepStatusDone),
		taskWith(2, PriorityLow, StepStatusDone, StepStatusPending),
		taskWith(3, PriorityLow, StepStatusInProgress),
	}

	assert.Equal(t, []int64{2, 3}, ids(PendingTasks(tasks)))
}

func TestPriorityWeight(t *testing.T) {
	assert.Greater(t, PriorityWeight(PriorityUrgent), PriorityWeight(PriorityHigh))
	assert.Greater(t, PriorityWeight(PriorityHigh), PriorityWeight(PriorityMedium))
	assert.Greater(t, PriorityWeight(PriorityMedium), PriorityWeight(PriorityLow))
	assert.Zero(t, PriorityWeight("Critical"))
	assert.False(t, IsPriority("urgent"))
}
