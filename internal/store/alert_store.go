package store

import (
	"context"
	"fmt"
	"time"

	"github.com/nhle/fms-tracker/internal/model"
)

const selectEmailLog = `SELECT id, task_id, order_id, step_name, alert_sent_time, message_id FROM email_log`

// GetOverdueSteps returns unfinished steps whose planned date lies more than
// thresholdHours before now and for which no alert has been logged.
func (s *SQLiteStore) GetOverdueSteps(
	ctx context.Context,
	now time.Time,
	thresholdHours float64,
) ([]model.OverdueStep, error) {
	ref := now.UTC().Format("2006-01-02 15:04:05")

	var steps []model.OverdueStep
	err := s.db.SelectContext(ctx, &steps, `
		SELECT t.id AS task_id, t.order_id, t.tool_name, t.priority,
		       ts.step_name, ts.planned_date,
		       (julianday(?) - julianday(ts.planned_date)) * 24 AS hours_late
		FROM tasks t
		JOIN task_steps ts ON t.id = ts.task_id
		WHERE ts.status != ?
		  AND ts.planned_date IS NOT NULL AND ts.planned_date != ''
		  AND (julianday(?) - julianday(ts.planned_date)) * 24 > ?
		  AND NOT EXISTS (
			SELECT 1 FROM email_log el
			WHERE el.task_id = ts.task_id AND el.step_name = ts.step_name
		  )
		ORDER BY t.id, ts.id`,
		ref, model.StepStatusDone, ref, thresholdHours,
	)
	if err != nil {
		return nil, fmt.Errorf("querying overdue steps: %w", err)
	}
	return steps, nil
}

// RecordAlert appends an alert log entry. A second entry for the same task
// and step is ignored, which keeps concurrent scans from double counting.
func (s *SQLiteStore) RecordAlert(ctx context.Context, entry model.EmailLogEntry) (bool, error) {
	if entry.AlertSentTime == "" {
		entry.AlertSentTime = timestamp(s.now())
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO email_log (task_id, order_id, step_name, alert_sent_time, message_id)
		VALUES (?, ?, ?, ?, ?)`,
		entry.TaskID, entry.OrderID, entry.StepName, entry.AlertSentTime, entry.MessageID,
	)
	if err != nil {
		return false, fmt.Errorf("recording alert for task %d step %q: %w", entry.TaskID, entry.StepName, err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// GetEmailLog returns all alert log entries in the order they were sent.
func (s *SQLiteStore) GetEmailLog(ctx context.Context) ([]model.EmailLogEntry, error) {
	entries := []model.EmailLogEntry{}
	if err := s.db.SelectContext(ctx, &entries, selectEmailLog+" ORDER BY id"); err != nil {
		return nil, fmt.Errorf("querying email log: %w", err)
	}
	return entries, nil
}
