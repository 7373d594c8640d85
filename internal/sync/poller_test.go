package sync

import (
	"context"
	"errors"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeScanner struct {
	calls atomic.Int32
	sent  int
	err   error
}

func (f *fakeScanner) Scan(ctx context.Context) (int, error) {
	f.calls.Add(1)
	return f.sent, f.err
}

func runPoller(t *testing.T, p *Poller) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	return func() {
		stop()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("poller did not stop")
		}
	}
}

func TestPollerScansOnStartAndTrigger(t *testing.T) {
	sc := &fakeScanner{sent: 2}
	p := New(sc, time.Hour, nil)

	var mu gosync.Mutex
	var results []ScanStatus
	p.OnResult(func(s ScanStatus) {
		mu.Lock()
		results = append(results, s)
		mu.Unlock()
	})

	stop := runPoller(t, p)
	defer stop()

	require.Eventually(t, func() bool { return sc.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	p.Trigger()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(results) == 2
	}, time.Second, 5*time.Millisecond)

	st := p.Status()
	assert.Equal(t, ScanIdle, st.State)
	assert.Equal(t, 2, st.LastSent)
	assert.Equal(t, 4, st.TotalSent)
	assert.False(t, st.LastRun.IsZero())

	mu.Lock()
	assert.Equal(t, 4, results[1].TotalSent)
	mu.Unlock()
}

func TestPollerTicks(t *testing.T) {
	sc := &fakeScanner{}
	p := New(sc, 10*time.Millisecond, nil)
	stop := runPoller(t, p)
	defer stop()

	require.Eventually(t, func() bool { return sc.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestPollerRecordsError(t *testing.T) {
	boom := errors.New("database is locked")
	sc := &fakeScanner{sent: 1, err: boom}
	p := New(sc, time.Hour, nil)
	stop := runPoller(t, p)
	defer stop()

	require.Eventually(t, func() bool { return p.Status().State == ScanError }, time.Second, 5*time.Millisecond)
	st := p.Status()
	assert.ErrorIs(t, st.Error, boom)
	assert.Equal(t, 1, st.TotalSent)
}

func TestTriggerDoesNotBlock(t *testing.T) {
	p := New(&fakeScanner{}, time.Hour, nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			p.Trigger()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Trigger blocked without a running poller")
	}
}
