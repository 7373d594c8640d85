package store

import (
	"context"
	"fmt"

	"github.com/nhle/fms-tracker/internal/model"
)

// AddFile stores an uploaded file against a task step and returns its id.
func (s *SQLiteStore) AddFile(ctx context.Context, file model.TaskFile) (int64, error) {
	if file.UploadedAt == "" {
		file.UploadedAt = timestamp(s.now())
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO task_files (task_id, step_name, file_name, file_data, uploaded_at)
		VALUES (?, ?, ?, ?, ?)`,
		file.TaskID, file.StepName, file.FileName, file.Data, file.UploadedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("adding file %q to task %d: %w", file.FileName, file.TaskID, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading file id: %w", err)
	}
	return id, nil
}

// GetFile retrieves a stored file including its contents.
func (s *SQLiteStore) GetFile(ctx context.Context, id int64) (*model.TaskFile, error) {
	var f model.TaskFile
	err := s.db.GetContext(ctx, &f, `
		SELECT id, task_id, step_name, file_name, file_data, uploaded_at
		FROM task_files WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err, "getting file %d", id)
	}
	return &f, nil
}
