package driven

import (
	"context"
	"time"

	"github.com/avillegas/studyhub/internal/domain/model"
)

// TaskStore defines the driven port for task persistence.
type TaskStore interface {
	// Create inserts a new task and returns the stored row.
	Create(ctx context.Context, task model.Task) (model.Task, error)

	// GetByID retrieves a task owned by the given user.
	// Returns nil, nil if absent or owned by someone else.
	GetByID(ctx context.Context, id, userID int64) (*model.Task, error)

	// GetBySourceKey retrieves a synced task by its upsert key.
	// Returns nil, nil if absent.
	GetBySourceKey(ctx context.Context, userID int64, source model.SourceType, sourceID string) (*model.Task, error)

	// Upsert inserts the task or, if a row with the same (user, source,
	// source id) exists, updates its mutable fields. Status is never
	// changed on update: sync must not downgrade a user-set status.
	// The task must carry a non-empty SourceID.
	Upsert(ctx context.Context, task model.Task) error

	// Update applies a partial update to a task owned by the given user
	// and returns the updated row. Returns nil, nil if absent.
	Update(ctx context.Context, id, userID int64, update model.TaskUpdate) (*model.Task, error)

	// Delete removes a task owned by the given user. Returns
	// model.ErrNotFound if absent.
	Delete(ctx context.Context, id, userID int64) error

	// ListByUser returns the user's tasks, optionally filtered by status,
	// ordered by due date ascending (tasks without a due date last) and
	// priority descending.
	ListByUser(ctx context.Context, userID int64, status *model.TaskStatus) ([]model.Task, error)

	// MarkOverdue flips pending tasks whose due date is before now to
	// overdue and reports how many rows changed.
	MarkOverdue(ctx context.Context, userID int64, now time.Time) (int, error)
}
