package testutil

import (
	"testing"
	"time"

	"github.com/nhle/fms-tracker/internal/model"
	"github.com/nhle/fms-tracker/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// FixedClock returns a clock that always reports at.
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// PlannedDates returns a planned date for every step, starting at first and
// advancing one day per step.
func PlannedDates(first string) map[string]string {
	start, err := time.Parse(model.DateLayout, first)
	if err != nil {
		panic(err)
	}
	dates := make(map[string]string, len(model.StepNames))
	for i, name := range model.StepNames {
		dates[name] = start.AddDate(0, 0, i).Format(model.DateLayout)
	}
	return dates
}

// NewTask returns a valid creation request for orderID with step dates
// starting at first.
func NewTask(orderID, priority, first string) model.NewTask {
	return model.NewTask{
		OrderID:     orderID,
		ToolName:    "Die " + orderID,
		RequestedBy: "planner",
		Priority:    priority,
		RequiredBy:  "2024-12-31",
		Steps:       PlannedDates(first),
	}
}
