// Package alert finds overdue workflow steps and sends one delay alert per
// task step, recording each in the persistent email log.
package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/fms-tracker/internal/model"
	"github.com/nhle/fms-tracker/internal/store"
)

// DefaultThresholdHours is how late a step must be before it is alerted.
const DefaultThresholdHours = 48

// Scanner detects overdue steps and dispatches alerts through a Notifier.
type Scanner struct {
	store     store.Store
	notifier  Notifier
	threshold float64
	logger    *zap.Logger
	now       func() time.Time
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithThreshold sets the overdue threshold in hours.
func WithThreshold(hours float64) ScannerOption {
	return func(s *Scanner) { s.threshold = hours }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ScannerOption {
	return func(s *Scanner) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ScannerOption {
	return func(s *Scanner) { s.logger = l }
}

// NewScanner creates a Scanner. A nil notifier falls back to logging.
func NewScanner(st store.Store, notifier Notifier, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		store:     st,
		threshold: DefaultThresholdHours,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if notifier == nil {
		notifier = NewLogNotifier(s.logger)
	}
	s.notifier = notifier
	return s
}

// Threshold returns the configured overdue threshold in hours.
func (s *Scanner) Threshold() float64 { return s.threshold }

// Scan sends an alert for every overdue step that has not been alerted
// before and returns how many were sent. A step whose delivery fails is
// not logged, so the next scan retries it; the failures are returned
// joined alongside the count of successful alerts.
func (s *Scanner) Scan(ctx context.Context) (int, error) {
	now := s.now().UTC()

	overdue, err := s.store.GetOverdueSteps(ctx, now, s.threshold)
	if err != nil {
		return 0, err
	}

	sent := 0
	var errs []error
	for _, step := range overdue {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		a := Alert{
			OverdueStep:    step,
			MessageID:      NewMessageID(),
			SentAt:         now,
			ThresholdHours: s.threshold,
		}

		if err := s.notifier.Notify(ctx, a); err != nil {
			s.logger.Error("delay alert delivery failed",
				zap.Int64("task_id", step.TaskID),
				zap.String("step", step.StepName),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("alerting task %d step %q: %w", step.TaskID, step.StepName, err))
			continue
		}

		inserted, err := s.store.RecordAlert(ctx, model.EmailLogEntry{
			TaskID:        step.TaskID,
			OrderID:       step.OrderID,
			StepName:      step.StepName,
			AlertSentTime: now.Format(time.RFC3339Nano),
			MessageID:     a.MessageID,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if inserted {
			sent++
		}
	}

	s.logger.Debug("delay scan finished",
		zap.Int("overdue", len(overdue)),
		zap.Int("alerts_sent", sent))
	return sent, errors.Join(errs...)
}
