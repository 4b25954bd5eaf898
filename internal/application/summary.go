package application

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/avillegas/studyhub/internal/domain/model"
	"github.com/avillegas/studyhub/internal/domain/port/driven"
)

// highPriorityWindow is how far ahead a due date counts as "due soon".
const highPriorityWindow = 48 * time.Hour

// TaskSummary aggregates a user's task list with counts for the dashboard.
type TaskSummary struct {
	TotalTasks        int
	PendingTasks      int
	OverdueTasks      int
	HighPriorityTasks int
	TasksBySource     map[string]int
	Tasks             []model.Task
}

// WeeklyOutlook buckets pending tasks by due-date horizon. Tasks without a
// due date are omitted; they have no horizon to bucket by.
type WeeklyOutlook struct {
	ThisWeek []model.Task
	NextWeek []model.Task
	Later    []model.Task
}

// SummaryService computes task summaries and outlooks. Every read path
// first sweeps pending tasks past their due date into overdue, so callers
// always see current statuses.
type SummaryService struct {
	tasks driven.TaskStore
	now   func() time.Time
}

// NewSummaryService creates a SummaryService over the given store.
func NewSummaryService(tasks driven.TaskStore) *SummaryService {
	return &SummaryService{
		tasks: tasks,
		now:   time.Now,
	}
}

// Summarize returns the user's task summary. Counts always cover the whole
// account; the status filter, when set, restricts only the task list.
func (s *SummaryService) Summarize(ctx context.Context, userID int64, status *model.TaskStatus) (TaskSummary, error) {
	now := s.now()

	if _, err := s.tasks.MarkOverdue(ctx, userID, now); err != nil {
		return TaskSummary{}, err
	}

	all, err := s.tasks.ListByUser(ctx, userID, nil)
	if err != nil {
		return TaskSummary{}, err
	}

	summary := TaskSummary{
		TotalTasks:    len(all),
		TasksBySource: map[string]int{},
		Tasks:         []model.Task{},
	}

	for _, task := range all {
		switch task.Status {
		case model.TaskStatusPending:
			summary.PendingTasks++
			summary.TasksBySource[string(task.Source)]++
			if task.DueDate != nil && task.DueDate.Sub(now) < highPriorityWindow {
				summary.HighPriorityTasks++
			}
		case model.TaskStatusOverdue:
			summary.OverdueTasks++
		}

		if status != nil {
			if task.Status == *status {
				summary.Tasks = append(summary.Tasks, task)
			}
		} else if task.Status == model.TaskStatusPending || task.Status == model.TaskStatusOverdue {
			summary.Tasks = append(summary.Tasks, task)
		}
	}

	sortTasks(summary.Tasks)
	return summary, nil
}

// PlainSummary renders the summary as human-readable text, for clients that
// want something pasteable rather than JSON.
func (s *SummaryService) PlainSummary(ctx context.Context, userID int64) (string, error) {
	summary, err := s.Summarize(ctx, userID, nil)
	if err != nil {
		return "", err
	}

	if summary.PendingTasks == 0 && summary.OverdueTasks == 0 {
		return "No pending tasks. You're all caught up!", nil
	}

	var b strings.Builder
	if summary.OverdueTasks > 0 {
		fmt.Fprintf(&b, "You have %d overdue task(s).\n", summary.OverdueTasks)
	}
	if summary.HighPriorityTasks > 0 {
		fmt.Fprintf(&b, "You have %d task(s) due within 48 hours.\n", summary.HighPriorityTasks)
	}
	fmt.Fprintf(&b, "You have %d pending task(s) total.\n", summary.PendingTasks)

	sources := make([]string, 0, len(summary.TasksBySource))
	for source := range summary.TasksBySource {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	for _, source := range sources {
		fmt.Fprintf(&b, "Tasks: %d from %s\n", summary.TasksBySource[source], source)
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

// WeeklyBuckets splits the user's open tasks into this week, next week, and
// later, by due date. Overdue tasks land in this week; they still need doing.
func (s *SummaryService) WeeklyBuckets(ctx context.Context, userID int64) (WeeklyOutlook, error) {
	now := s.now()

	if _, err := s.tasks.MarkOverdue(ctx, userID, now); err != nil {
		return WeeklyOutlook{}, err
	}

	all, err := s.tasks.ListByUser(ctx, userID, nil)
	if err != nil {
		return WeeklyOutlook{}, err
	}

	outlook := WeeklyOutlook{
		ThisWeek: []model.Task{},
		NextWeek: []model.Task{},
		Later:    []model.Task{},
	}

	for _, task := range all {
		if task.Status != model.TaskStatusPending && task.Status != model.TaskStatusOverdue {
			continue
		}
		if task.DueDate == nil {
			continue
		}

		until := task.DueDate.Sub(now)
		switch {
		case until < 7*24*time.Hour:
			outlook.ThisWeek = append(outlook.ThisWeek, task)
		case until < 14*24*time.Hour:
			outlook.NextWeek = append(outlook.NextWeek, task)
		default:
			outlook.Later = append(outlook.Later, task)
		}
	}

	return outlook, nil
}

// sortTasks orders overdue before pending, then due date ascending with
// undated tasks last, then priority descending.
func sortTasks(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]

		if a.Status != b.Status {
			return a.Status == model.TaskStatusOverdue
		}

		switch {
		case a.DueDate == nil && b.DueDate == nil:
		case a.DueDate == nil:
			return false
		case b.DueDate == nil:
			return true
		case !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		}

		return a.Priority > b.Priority
	})
}
