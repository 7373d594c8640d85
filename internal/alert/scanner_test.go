package alert_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/fms-tracker/internal/alert"
	"github.com/nhle/fms-tracker/internal/model"
	"github.com/nhle/fms-tracker/internal/store"
	"github.com/nhle/fms-tracker/internal/tracker"
	"github.com/nhle/fms-tracker/tests/testutil"
)

var now = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []alert.Alert
	fail   func(alert.Alert) error
}

func (n *recordingNotifier) Notify(_ context.Context, a alert.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		if err := n.fail(a); err != nil {
			return err
		}
	}
	n.alerts = append(n.alerts, a)
	return nil
}

func setup(t *testing.T, orders ...string) (*store.SQLiteStore, []int64) {
	t.Helper()
	st := testutil.NewTestStore(t)
	st.SetClock(testutil.FixedClock(now))
	svc := tracker.New(st, tracker.WithClock(testutil.FixedClock(now)))

	var ids []int64
	for _, o := range orders {
		id, err := svc.CreateTask(context.Background(), testutil.NewTask(o, model.PriorityHigh, "2024-01-05"))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return st, ids
}

func TestScanSendsOncePerStep(t *testing.T) {
	st, ids := setup(t, "ORD-1")
	n := &recordingNotifier{}
	sc := alert.NewScanner(st, n, alert.WithClock(testutil.FixedClock(now)))
	ctx := context.Background()

	sent, err := sc.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, sent)
	require.Len(t, n.alerts, 4)
	assert.Equal(t, ids[0], n.alerts[0].TaskID)
	assert.Equal(t, "Receive Order", n.alerts[0].StepName)
	assert.InDelta(t, 132.0, n.alerts[0].HoursLate, 1e-6)
	assert.InDelta(t, alert.DefaultThresholdHours, n.alerts[0].ThresholdHours, 1e-9)

	sent, err = sc.Scan(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Len(t, n.alerts, 4)

	log, err := st.GetEmailLog(ctx)
	require.NoError(t, err)
	require.Len(t, log, 4)
	assert.Equal(t, n.alerts[0].MessageID, log[0].MessageID)
}

func TestScanSharedOrderIDAlertsEachTask(t *testing.T) {
	st, ids := setup(t, "ORD-1", "ORD-1")
	n := &recordingNotifier{}
	sc := alert.NewScanner(st, n, alert.WithClock(testutil.FixedClock(now)))

	sent, err := sc.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, sent)
	assert.Equal(t, ids[0], n.alerts[0].TaskID)
	assert.Equal(t, ids[1], n.alerts[7].TaskID)
}

func TestScanThreshold(t *testing.T) {
	st, _ := setup(t, "ORD-1")
	n := &recordingNotifier{}
	sc := alert.NewScanner(st, n,
		alert.WithClock(testutil.FixedClock(now)),
		alert.WithThreshold(100))

	assert.InDelta(t, 100.0, sc.Threshold(), 1e-9)
	sent, err := sc.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
}

func TestScanSkipsDoneSteps(t *testing.T) {
	st, ids := setup(t, "ORD-1")
	svc := tracker.New(st, tracker.WithClock(testutil.FixedClock(now)))
	_, err := svc.CompleteStep(context.Background(), ids[0], "Receive Order")
	require.NoError(t, err)

	n := &recordingNotifier{}
	sent, err := alert.NewScanner(st, n, alert.WithClock(testutil.FixedClock(now))).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sent)
	for _, a := range n.alerts {
		assert.NotEqual(t, "Receive Order", a.StepName)
	}
}

func TestScanRetriesFailedDelivery(t *testing.T) {
	st, _ := setup(t, "ORD-1")
	errDown := errors.New("relay down")
	n := &recordingNotifier{fail: func(a alert.Alert) error {
		if a.StepName == "Model Designing" {
			return errDown
		}
		return nil
	}}
	sc := alert.NewScanner(st, n, alert.WithClock(testutil.FixedClock(now)))
	ctx := context.Background()

	sent, err := sc.Scan(ctx)
	assert.Equal(t, 3, sent)
	require.ErrorIs(t, err, errDown)
	assert.ErrorContains(t, err, `"Model Designing"`)

	n.fail = nil
	sent, err = sc.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, "Model Designing", n.alerts[len(n.alerts)-1].StepName)
}

func TestScanNilNotifierLogs(t *testing.T) {
	st, _ := setup(t, "ORD-1")
	sc := alert.NewScanner(st, nil, alert.WithClock(testutil.FixedClock(now)))

	sent, err := sc.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, sent)
}

func TestScanCancelledContext(t *testing.T) {
	st, _ := setup(t, "ORD-1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sent, err := alert.NewScanner(st, &recordingNotifier{}, alert.WithClock(testutil.FixedClock(now))).Scan(ctx)
	assert.Zero(t, sent)
	assert.ErrorIs(t, err, context.Canceled)
}
