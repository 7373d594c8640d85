package model

// EmailLogEntry records that a delay alert was sent for a task step.
// Existence of an entry for (TaskID, StepName) suppresses further alerts.
type EmailLogEntry struct {
	ID            int64  `json:"id" db:"id"`
	TaskID        int64  `json:"task_id" db:"task_id"`
	OrderID       string `json:"order_id" db:"order_id"`
	StepName      string `json:"step_name" db:"step_name"`
	AlertSentTime string `json:"alert_sent_time" db:"alert_sent_time"`
	MessageID     string `json:"message_id" db:"message_id"`
}

// OverdueStep is a step past its planned date by more than the alert
// threshold, joined with the owning task's identifying fields.
type OverdueStep struct {
	TaskID      int64   `db:"task_id"`
	OrderID     string  `db:"order_id"`
	ToolName    string  `db:"tool_name"`
	Priority    string  `db:"priority"`
	StepName    string  `db:"step_name"`
	PlannedDate string  `db:"planned_date"`
	HoursLate   float64 `db:"hours_late"`
}

// TaskFile is a file uploaded against a task step. Data is only populated
// when a single file is fetched for download.
type TaskFile struct {
	ID         int64  `json:"id" db:"id"`
	TaskID     int64  `json:"task_id" db:"task_id"`
	StepName   string `json:"step_name" db:"step_name"`
	FileName   string `json:"file_name" db:"file_name"`
	UploadedAt string `json:"uploaded_at" db:"uploaded_at"`
	Data       []byte `json:"-" db:"file_data"`
}

// Dump is the raw table snapshot served by GET /api/database.
type Dump struct {
	Tasks     []TaskRecord    `json:"tasks"`
	TaskSteps []Step          `json:"task_steps"`
	EmailLog  []EmailLogEntry `json:"email_log"`
}
