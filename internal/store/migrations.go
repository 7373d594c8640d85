package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id     TEXT NOT NULL,
	timestamp    TEXT NOT NULL,
	tool_name    TEXT NOT NULL,
	requested_by TEXT NOT NULL,
	priority     TEXT NOT NULL CHECK (priority IN ('Low', 'Medium', 'High', 'Urgent')),
	required_by  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS task_steps (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id      INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	step_name    TEXT NOT NULL,
	planned_date TEXT NOT NULL,
	actual_date  TEXT,
	status       TEXT NOT NULL DEFAULT 'Pending' CHECK (status IN ('Pending', 'In Progress', 'Done')),
	time_delay   REAL,
	UNIQUE (task_id, step_name)
);

CREATE TABLE IF NOT EXISTS email_log (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id        TEXT NOT NULL,
	step_name       TEXT NOT NULL,
	alert_sent_time TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS task_files (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id     INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	step_name   TEXT NOT NULL,
	file_name   TEXT NOT NULL,
	file_data   BLOB NOT NULL,
	uploaded_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_task_steps_status ON task_steps(status);
CREATE INDEX IF NOT EXISTS idx_task_files_task_step ON task_files(task_id, step_name);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		// Alerts are de-duplicated per task rather than per order_id, since
		// order_id is not unique across tasks.
		version: 2,
		sql: `
ALTER TABLE email_log ADD COLUMN task_id INTEGER NOT NULL DEFAULT 0;
ALTER TABLE email_log ADD COLUMN message_id TEXT NOT NULL DEFAULT '';

UPDATE email_log SET task_id = COALESCE(
	(SELECT MIN(t.id) FROM tasks t WHERE t.order_id = email_log.order_id), 0
);

DELETE FROM email_log WHERE id NOT IN (
	SELECT MIN(id) FROM email_log GROUP BY task_id, step_name
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_email_log_task_step
	ON email_log(task_id, step_name);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
