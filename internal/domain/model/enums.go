package model

import "fmt"

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending  TaskStatus = "pending"
	TaskStatusComplete TaskStatus = "complete"
	TaskStatusOverdue  TaskStatus = "overdue"
)

// TaskType classifies what kind of work a task represents.
type TaskType string

const (
	TaskTypeAssignment TaskType = "assignment"
	TaskTypeMeeting    TaskType = "meeting"
	TaskTypeInternship TaskType = "internship"
	TaskTypeManual     TaskType = "manual"
	TaskTypeEmail      TaskType = "email"
)

// SourceType identifies where a task or credential originated.
type SourceType string

const (
	SourceCanvas         SourceType = "canvas"
	SourceOutlook        SourceType = "outlook"
	SourceGoogleCalendar SourceType = "google_calendar"
	SourceHandshake      SourceType = "handshake"
	SourceManual         SourceType = "manual"
)

// SyncableSources lists the external sources the sync orchestrator iterates,
// in a stable order. SourceManual is deliberately absent -- manual tasks are
// never touched by sync.
var SyncableSources = []SourceType{
	SourceCanvas,
	SourceOutlook,
	SourceGoogleCalendar,
	SourceHandshake,
}

// ParseTaskStatus validates a status string from the API boundary.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch TaskStatus(s) {
	case TaskStatusPending, TaskStatusComplete, TaskStatusOverdue:
		return TaskStatus(s), nil
	}
	return "", fmt.Errorf("invalid task status %q: %w", s, ErrValidation)
}

// ParseTaskType validates a task type string from the API boundary.
func ParseTaskType(s string) (TaskType, error) {
	switch TaskType(s) {
	case TaskTypeAssignment, TaskTypeMeeting, TaskTypeInternship, TaskTypeManual, TaskTypeEmail:
		return TaskType(s), nil
	}
	return "", fmt.Errorf("invalid task type %q: %w", s, ErrValidation)
}

// ParseSourceSlug maps a URL slug to a source type. The OAuth routes use
// "microsoft" and "google" as slugs while the stored source types are
// "outlook" and "google_calendar"; "outlook" is accepted as an alias.
func ParseSourceSlug(slug string) (SourceType, error) {
	switch slug {
	case "canvas":
		return SourceCanvas, nil
	case "microsoft", "outlook":
		return SourceOutlook, nil
	case "google":
		return SourceGoogleCalendar, nil
	case "handshake":
		return SourceHandshake, nil
	}
	return "", fmt.Errorf("unsupported source %q: %w", slug, ErrValidation)
}
