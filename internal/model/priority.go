package model

import "sort"

// Priority levels accepted for a task.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
	PriorityUrgent = "Urgent"
)

// Priorities lists the accepted priorities from lowest to highest.
var Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

var priorityWeights = map[string]int{
	PriorityUrgent: 4,
	PriorityHigh:   3,
	PriorityMedium: 2,
	PriorityLow:    1,
}

// IsPriority reports whether p is an accepted priority.
func IsPriority(p string) bool {
	_, ok := priorityWeights[p]
	return ok
}

// PriorityWeight ranks a priority; unknown values rank 0.
func PriorityWeight(p string) int {
	return priorityWeights[p]
}

// PendingTasks returns the tasks with at least one step not Done,
// preserving input order.
func PendingTasks(tasks []Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.IsPending() {
			out = append(out, t)
		}
	}
	return out
}

// SortByPriority returns a copy of tasks ordered from most to least urgent.
// Tasks of equal priority keep their relative order.
func SortByPriority(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool {
		return PriorityWeight(out[i].Priority) > PriorityWeight(out[j].Priority)
	})
	return out
}

// TopPriority returns at most n tasks from SortByPriority.
func TopPriority(tasks []Task, n int) []Task {
	sorted := SortByPriority(tasks)
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
