package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avillegas/studyhub/internal/domain/model"
	"github.com/avillegas/studyhub/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.SourceAdapter = (*CanvasAdapter)(nil)
	_ driven.TokenVerifier = (*CanvasAdapter)(nil)
)

// CanvasAdapter fetches upcoming assignments from the Canvas LMS REST API.
// Canvas is self-hosted per institution, so the base URL is configurable
// both globally and per credential.
type CanvasAdapter struct {
	client  *http.Client
	baseURL string
}

// NewCanvasAdapter creates a CanvasAdapter with the given default base URL,
// e.g. "https://canvas.instructure.com".
func NewCanvasAdapter(client *http.Client, baseURL string) *CanvasAdapter {
	return &CanvasAdapter{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Source identifies this adapter.
func (a *CanvasAdapter) Source() model.SourceType {
	return model.SourceCanvas
}

type canvasCourse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type canvasAssignment struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	DueAt           *string  `json:"due_at"`
	PointsPossible  *float64 `json:"points_possible"`
	SubmissionTypes []string `json:"submission_types"`
	HTMLURL         string   `json:"html_url"`
}

// Fetch lists the student's active courses and each course's upcoming
// assignments, normalized to assignment tasks. Assignments without a due
// date are skipped; Canvas keeps undated assignments in the upcoming bucket
// and they are not actionable here.
func (a *CanvasAdapter) Fetch(ctx context.Context, accessToken string, opts driven.FetchOptions) ([]model.Task, error) {
	base := a.baseURL
	if opts.BaseURL != "" {
		base = strings.TrimRight(opts.BaseURL, "/")
	}

	var courses []canvasCourse
	coursesURL := base + "/api/v1/courses?enrollment_type=student&enrollment_state=active&per_page=50"
	if err := getJSON(ctx, a.client, model.SourceCanvas, accessToken, coursesURL, &courses); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var tasks []model.Task

	for _, course := range courses {
		var assignments []canvasAssignment
		assignmentsURL := fmt.Sprintf("%s/api/v1/courses/%d/assignments?bucket=upcoming&per_page=50", base, course.ID)
		if err := getJSON(ctx, a.client, model.SourceCanvas, accessToken, assignmentsURL, &assignments); err != nil {
			return nil, fmt.Errorf("course %d assignments: %w", course.ID, err)
		}

		for _, assignment := range assignments {
			if assignment.DueAt == nil || *assignment.DueAt == "" {
				continue
			}

			due, err := time.Parse(time.RFC3339, *assignment.DueAt)
			if err != nil {
				continue
			}
			due = due.UTC()

			meta := map[string]any{
				"course_name": course.Name,
				"course_id":   course.ID,
			}
			if assignment.PointsPossible != nil {
				meta["points_possible"] = *assignment.PointsPossible
			}
			if len(assignment.SubmissionTypes) > 0 {
				meta["submission_types"] = assignment.SubmissionTypes
			}

			tasks = append(tasks, model.Task{
				Title:       assignment.Name,
				Description: assignment.Description,
				Type:        model.TaskTypeAssignment,
				Status:      model.TaskStatusPending,
				Source:      model.SourceCanvas,
				SourceID:    strconv.FormatInt(assignment.ID, 10),
				DueDate:     &due,
				Priority:    assignmentPriority(now, due),
				Metadata:    marshalMetadata(meta),
			})
		}
	}

	return tasks, nil
}

// VerifyToken checks a manually supplied access token against the profile
// endpoint, which every Canvas token can read.
func (a *CanvasAdapter) VerifyToken(ctx context.Context, accessToken, baseURL string) error {
	base := a.baseURL
	if baseURL != "" {
		base = strings.TrimRight(baseURL, "/")
	}
	if _, err := url.Parse(base); err != nil {
		return fmt.Errorf("canvas base url: %w", err)
	}

	var profile struct {
		ID int64 `json:"id"`
	}
	return getJSON(ctx, a.client, model.SourceCanvas, accessToken, base+"/api/v1/users/self", &profile)
}

// assignmentPriority ranks assignments by urgency: 3 if due within a day,
// 2 within two days, 1 within a week, otherwise 0.
func assignmentPriority(now, due time.Time) int {
	until := due.Sub(now)
	switch {
	case until < 24*time.Hour:
		return 3
	case until < 48*time.Hour:
		return 2
	case until < 7*24*time.Hour:
		return 1
	default:
		return 0
	}
}
