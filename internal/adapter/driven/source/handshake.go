package source

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avillegas/studyhub/internal/domain/model"
	"github.com/avillegas/studyhub/internal/domain/port/driven"
)

var _ driven.SourceAdapter = (*HandshakeAdapter)(nil)

// HandshakeAdapter fetches internship and job postings from the Handshake
// career platform API.
type HandshakeAdapter struct {
	client  *http.Client
	baseURL string
}

// NewHandshakeAdapter creates a HandshakeAdapter against the production API.
func NewHandshakeAdapter(client *http.Client) *HandshakeAdapter {
	return NewHandshakeAdapterWithBaseURL(client, "https://api.joinhandshake.com")
}

// NewHandshakeAdapterWithBaseURL creates a HandshakeAdapter with a custom
// base URL, allowing injection of an httptest server.
func NewHandshakeAdapterWithBaseURL(client *http.Client, baseURL string) *HandshakeAdapter {
	return &HandshakeAdapter{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Source identifies this adapter.
func (a *HandshakeAdapter) Source() model.SourceType {
	return model.SourceHandshake
}

type handshakeJob struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	EmployerName  string  `json:"employer_name"`
	JobType       string  `json:"job_type"`
	Location      string  `json:"location"`
	ApplyDeadline *string `json:"apply_deadline"`
}

// Fetch lists open postings and normalizes them to internship tasks keyed by
// the posting ID, with the application deadline as the due date.
func (a *HandshakeAdapter) Fetch(ctx context.Context, accessToken string, _ driven.FetchOptions) ([]model.Task, error) {
	var resp struct {
		Data []handshakeJob `json:"data"`
	}
	jobsURL := a.baseURL + "/v1/jobs?per_page=50"
	if err := getJSON(ctx, a.client, model.SourceHandshake, accessToken, jobsURL, &resp); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var tasks []model.Task

	for _, job := range resp.Data {
		var due *time.Time
		priority := 1
		if job.ApplyDeadline != nil && *job.ApplyDeadline != "" {
			if deadline, err := time.Parse(time.RFC3339, *job.ApplyDeadline); err == nil {
				deadline = deadline.UTC()
				due = &deadline
				if deadline.Sub(now) < 7*24*time.Hour {
					priority = 2
				}
			}
		}

		title := job.Title
		if job.EmployerName != "" {
			title = job.Title + " at " + job.EmployerName
		}

		tasks = append(tasks, model.Task{
			Title:       title,
			Description: job.Description,
			Type:        model.TaskTypeInternship,
			Status:      model.TaskStatusPending,
			Source:      model.SourceHandshake,
			SourceID:    strconv.FormatInt(job.ID, 10),
			DueDate:     due,
			Priority:    priority,
			Metadata: marshalMetadata(map[string]any{
				"employer": job.EmployerName,
				"job_type": job.JobType,
				"location": job.Location,
			}),
		})
	}

	return tasks, nil
}
