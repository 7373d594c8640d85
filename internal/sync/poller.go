// Package sync runs the delay scan on a fixed interval, outside of any
// request, for deployments that want periodic alerting without cron.
package sync

import (
	"context"
	gosync "sync"
	"time"

	"go.uber.org/zap"
)

// scanTimeout is the maximum time allowed for a single scan.
const scanTimeout = 30 * time.Second

// Scanner is the operation the poller repeats.
type Scanner interface {
	Scan(ctx context.Context) (int, error)
}

// ScanState represents the current state of the poller.
type ScanState int

const (
	ScanIdle ScanState = iota
	ScanRunning
	ScanError
)

// ScanStatus holds the outcome of the most recent scan.
type ScanStatus struct {
	State     ScanState
	LastRun   time.Time
	LastSent  int
	TotalSent int
	Error     error
}

// Poller invokes a Scanner on a ticker and on demand.
type Poller struct {
	scanner   Scanner
	interval  time.Duration
	logger    *zap.Logger
	triggerCh chan struct{}
	onResult  func(ScanStatus)

	mu     gosync.Mutex
	status ScanStatus
}

// New creates a Poller that scans every interval.
func New(scanner Scanner, interval time.Duration, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		scanner:   scanner,
		interval:  interval,
		logger:    logger,
		triggerCh: make(chan struct{}, 1),
	}
}

// OnResult registers a callback invoked after every scan. It must be set
// before Run.
func (p *Poller) OnResult(fn func(ScanStatus)) {
	p.onResult = fn
}

// Run scans immediately, then on every tick or trigger, until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	interval := p.interval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Info("delay scan poller started", zap.Duration("interval", interval))
	p.scanOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("delay scan poller stopped")
			return nil
		case <-ticker.C:
			p.scanOnce(ctx)
		case <-p.triggerCh:
			p.scanOnce(ctx)
		}
	}
}

// Trigger requests an immediate scan. It never blocks; a trigger that
// arrives while one is already queued is dropped.
func (p *Poller) Trigger() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

// Status returns the outcome of the most recent scan.
func (p *Poller) Status() ScanStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) scanOnce(parent context.Context) {
	p.setState(ScanRunning)

	ctx, cancel := context.WithTimeout(parent, scanTimeout)
	defer cancel()

	sent, err := p.scanner.Scan(ctx)

	p.mu.Lock()
	p.status.LastRun = time.Now()
	p.status.LastSent = sent
	p.status.TotalSent += sent
	p.status.Error = err
	if err != nil {
		p.status.State = ScanError
	} else {
		p.status.State = ScanIdle
	}
	status := p.status
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("scheduled delay scan failed", zap.Int("alerts_sent", sent), zap.Error(err))
	} else if sent > 0 {
		p.logger.Info("scheduled delay scan sent alerts", zap.Int("alerts_sent", sent))
	}

	if p.onResult != nil {
		p.onResult(status)
	}
}

func (p *Poller) setState(state ScanState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.State = state
}
