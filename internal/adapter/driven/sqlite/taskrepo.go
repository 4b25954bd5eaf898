package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/avillegas/studyhub/internal/domain/model"
	"github.com/avillegas/studyhub/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TaskStore = (*TaskRepo)(nil)

// TaskRepo is the SQLite implementation of the TaskStore port interface.
type TaskRepo struct {
	db *DB
}

// NewTaskRepo creates a new TaskRepo backed by the given DB.
func NewTaskRepo(db *DB) *TaskRepo {
	return &TaskRepo{db: db}
}

// Create inserts a new task and returns the stored row.
func (r *TaskRepo) Create(ctx context.Context, task model.Task) (model.Task, error) {
	const query = `
		INSERT INTO tasks (
			user_id, title, description, task_type, status, source_type,
			source_id, due_date, start_date, priority, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	status := task.Status
	if status == "" {
		status = model.TaskStatusPending
	}

	now := formatTime(time.Now())

	result, err := r.db.Writer.ExecContext(ctx, query,
		task.UserID, task.Title, task.Description, string(task.Type), string(status),
		string(task.Source), nullString(task.SourceID),
		formatNullTime(task.DueDate), formatNullTime(task.StartDate),
		task.Priority, nullString(task.Metadata), now, now,
	)
	if err != nil {
		return model.Task{}, fmt.Errorf("create task for user %d: %w", task.UserID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.Task{}, fmt.Errorf("last insert id: %w", err)
	}

	stored, err := r.GetByID(ctx, id, task.UserID)
	if err != nil {
		return model.Task{}, err
	}
	return *stored, nil
}

// Upsert inserts the task or updates the mutable fields of the row with the
// same (user, source, source id) key. Status is deliberately left out of the
// update list so a re-sync never reverts a user-set status. SQLite treats
// NULLs as distinct in UNIQUE constraints, so the key must be non-empty.
func (r *TaskRepo) Upsert(ctx context.Context, task model.Task) error {
	if task.SourceID == "" {
		return fmt.Errorf("upsert task for user %d: empty source id", task.UserID)
	}

	const query = `
		INSERT INTO tasks (
			user_id, title, description, task_type, status, source_type,
			source_id, due_date, start_date, priority, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, source_type, source_id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			due_date = excluded.due_date,
			start_date = excluded.start_date,
			priority = excluded.priority,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`

	status := task.Status
	if status == "" {
		status = model.TaskStatusPending
	}

	now := formatTime(time.Now())

	_, err := r.db.Writer.ExecContext(ctx, query,
		task.UserID, task.Title, task.Description, string(task.Type), string(status),
		string(task.Source), task.SourceID,
		formatNullTime(task.DueDate), formatNullTime(task.StartDate),
		task.Priority, nullString(task.Metadata), now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert task %d/%s/%s: %w", task.UserID, task.Source, task.SourceID, err)
	}

	return nil
}

// GetByID retrieves a task owned by the given user. Returns nil, nil if the
// task does not exist or belongs to another user.
func (r *TaskRepo) GetByID(ctx context.Context, id, userID int64) (*model.Task, error) {
	const query = taskSelect + ` WHERE id = ? AND user_id = ?`

	task, err := scanTask(r.db.Reader.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}

	return task, nil
}

// GetBySourceKey retrieves a synced task by its upsert key. Returns nil, nil
// if absent.
func (r *TaskRepo) GetBySourceKey(ctx context.Context, userID int64, source model.SourceType, sourceID string) (*model.Task, error) {
	const query = taskSelect + ` WHERE user_id = ? AND source_type = ? AND source_id = ?`

	task, err := scanTask(r.db.Reader.QueryRowContext(ctx, query, userID, string(source), sourceID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d/%s/%s: %w", userID, source, sourceID, err)
	}

	return task, nil
}

// Update applies a partial update to a task owned by the given user.
// Returns nil, nil if the task does not exist.
func (r *TaskRepo) Update(ctx context.Context, id, userID int64, update model.TaskUpdate) (*model.Task, error) {
	existing, err := r.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	if update.Status != nil {
		existing.Status = *update.Status
	}
	if update.Title != nil {
		existing.Title = *update.Title
	}
	if update.Description != nil {
		existing.Description = *update.Description
	}
	if update.Priority != nil {
		existing.Priority = *update.Priority
	}

	const query = `
		UPDATE tasks
		SET status = ?, title = ?, description = ?, priority = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`

	_, err = r.db.Writer.ExecContext(ctx, query,
		string(existing.Status), existing.Title, existing.Description,
		existing.Priority, formatTime(time.Now()), id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update task %d: %w", id, err)
	}

	return r.GetByID(ctx, id, userID)
}

// Delete removes a task owned by the given user. Returns model.ErrNotFound
// if no such task exists.
func (r *TaskRepo) Delete(ctx context.Context, id, userID int64) error {
	const query = `DELETE FROM tasks WHERE id = ? AND user_id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("task %d: %w", id, model.ErrNotFound)
	}

	return nil
}

// ListByUser returns the user's tasks ordered by due date ascending (tasks
// without a due date last) and priority descending, optionally filtered by
// status.
func (r *TaskRepo) ListByUser(ctx context.Context, userID int64, status *model.TaskStatus) ([]model.Task, error) {
	query := taskSelect + ` WHERE user_id = ?`
	args := []any{userID}

	if status != nil {
		query += ` AND status = ?`
		args = append(args, string(*status))
	}

	query += ` ORDER BY due_date IS NULL, due_date ASC, priority DESC, id`

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks for user %d: %w", userID, err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	return tasks, nil
}

// MarkOverdue flips pending tasks whose due date has passed to overdue.
// RFC 3339 UTC strings compare lexicographically in time order, so a plain
// string comparison against now is correct here.
func (r *TaskRepo) MarkOverdue(ctx context.Context, userID int64, now time.Time) (int, error) {
	const query = `
		UPDATE tasks
		SET status = ?, updated_at = ?
		WHERE user_id = ? AND status = ? AND due_date IS NOT NULL AND due_date < ?
	`

	result, err := r.db.Writer.ExecContext(ctx, query,
		string(model.TaskStatusOverdue), formatTime(now),
		userID, string(model.TaskStatusPending), formatTime(now),
	)
	if err != nil {
		return 0, fmt.Errorf("mark overdue for user %d: %w", userID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}

	return int(rows), nil
}

const taskSelect = `
	SELECT id, user_id, title, description, task_type, status, source_type,
	       source_id, due_date, start_date, priority, metadata, created_at, updated_at
	FROM tasks`

func scanTask(s scanner) (*model.Task, error) {
	var task model.Task
	var taskType, status, source string
	var sourceID, dueDate, startDate, metadata sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(
		&task.ID, &task.UserID, &task.Title, &task.Description,
		&taskType, &status, &source, &sourceID,
		&dueDate, &startDate, &task.Priority, &metadata,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Type = model.TaskType(taskType)
	task.Status = model.TaskStatus(status)
	task.Source = model.SourceType(source)
	task.SourceID = sourceID.String
	task.Metadata = metadata.String

	task.DueDate, err = parseNullTime(dueDate)
	if err != nil {
		return nil, fmt.Errorf("parse due_date: %w", err)
	}

	task.StartDate, err = parseNullTime(startDate)
	if err != nil {
		return nil, fmt.Errorf("parse start_date: %w", err)
	}

	task.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	task.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &task, nil
}

// nullString maps "" to SQL NULL for optional text columns.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
