package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/fms-tracker/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A single connection serializes writers and keeps ":memory:"
	// databases on one connection.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// SetClock replaces the time source used for row timestamps.
func (s *SQLiteStore) SetClock(now func() time.Time) {
	s.now = now
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// ResetAll deletes every row from the four record tables.
func (s *SQLiteStore) ResetAll(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"task_files", "task_steps", "email_log", "tasks"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	return tx.Commit()
}

// Dump returns the raw contents of the tasks, task_steps and email_log tables.
func (s *SQLiteStore) Dump(ctx context.Context) (*model.Dump, error) {
	d := &model.Dump{
		Tasks:     []model.TaskRecord{},
		TaskSteps: []model.Step{},
		EmailLog:  []model.EmailLogEntry{},
	}

	if err := s.db.SelectContext(ctx, &d.Tasks, selectTasks+" ORDER BY id"); err != nil {
		return nil, fmt.Errorf("dumping tasks: %w", err)
	}
	if err := s.db.SelectContext(ctx, &d.TaskSteps, selectSteps+" ORDER BY id"); err != nil {
		return nil, fmt.Errorf("dumping task_steps: %w", err)
	}
	if err := s.db.SelectContext(ctx, &d.EmailLog, selectEmailLog+" ORDER BY id"); err != nil {
		return nil, fmt.Errorf("dumping email_log: %w", err)
	}

	return d, nil
}

// notFound maps sql.ErrNoRows onto ErrNotFound with context.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// timestamp formats t the way every *_time / *_at column stores it.
func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
