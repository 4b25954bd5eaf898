package model

import "time"

// Task is the canonical normalized unit of work shown to the user,
// regardless of which platform it came from.
//
// For non-manual sources, (UserID, Source, SourceID) is unique: a re-sync
// updates the existing row rather than creating a duplicate. Manual tasks
// have no SourceID and are never touched by sync.
type Task struct {
	ID          int64
	UserID      int64
	Title       string
	Description string
	Type        TaskType
	Status      TaskStatus
	Source      SourceType
	// SourceID is the source-native identifier; empty for manual tasks.
	SourceID  string
	DueDate   *time.Time
	StartDate *time.Time
	// Priority is a small integer; higher means more urgent.
	Priority int
	// Metadata is an opaque JSON payload with source-specific fields
	// (course name for Canvas, employer/location for Handshake, ...).
	// Its shape is only known to the adapter that produced it.
	Metadata  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaskUpdate carries a partial update to a task. Nil fields are left
// unchanged.
type TaskUpdate struct {
	Status      *TaskStatus
	Title       *string
	Description *string
	Priority    *int
}
