package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/avillegas/studyhub/internal/application"
	"github.com/avillegas/studyhub/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// UserResponse is the JSON representation of a user account.
type UserResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toUserResponse(u model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// TaskResponse is the JSON representation of a task. The raw metadata column
// is internal and deliberately not exposed.
type TaskResponse struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"user_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	TaskType    string  `json:"task_type"`
	Status      string  `json:"status"`
	SourceType  string  `json:"source_type"`
	SourceID    *string `json:"source_id"`
	DueDate     *string `json:"due_date"`
	StartDate   *string `json:"start_date"`
	Priority    int     `json:"priority"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func toTaskResponse(t model.Task) TaskResponse {
	resp := TaskResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		TaskType:    string(t.Type),
		Status:      string(t.Status),
		SourceType:  string(t.Source),
		DueDate:     formatTimePtr(t.DueDate),
		StartDate:   formatTimePtr(t.StartDate),
		Priority:    t.Priority,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   t.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if t.SourceID != "" {
		resp.SourceID = &t.SourceID
	}
	return resp
}

func toTaskResponses(tasks []model.Task) []TaskResponse {
	resp := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		resp = append(resp, toTaskResponse(t))
	}
	return resp
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// CredentialResponse is the JSON representation of a stored credential.
// Token material never leaves the server.
type CredentialResponse struct {
	ID         int64   `json:"id"`
	UserID     int64   `json:"user_id"`
	SourceType string  `json:"source_type"`
	ExpiresAt  *string `json:"expires_at"`
	CreatedAt  string  `json:"created_at"`
}

func toCredentialResponse(c model.Credential) CredentialResponse {
	resp := CredentialResponse{
		ID:         c.ID,
		UserID:     c.UserID,
		SourceType: string(c.Source),
		CreatedAt:  c.CreatedAt.UTC().Format(time.RFC3339),
	}
	if !c.ExpiresAt.IsZero() {
		expiry := c.ExpiresAt
		resp.ExpiresAt = formatTimePtr(&expiry)
	}
	return resp
}

// SummaryResponse is the JSON representation of the task summary.
type SummaryResponse struct {
	TotalTasks        int            `json:"total_tasks"`
	PendingTasks      int            `json:"pending_tasks"`
	OverdueTasks      int            `json:"overdue_tasks"`
	HighPriorityTasks int            `json:"high_priority_tasks"`
	TasksBySource     map[string]int `json:"tasks_by_source"`
	Tasks             []TaskResponse `json:"tasks"`
}

func toSummaryResponse(s application.TaskSummary) SummaryResponse {
	return SummaryResponse{
		TotalTasks:        s.TotalTasks,
		PendingTasks:      s.PendingTasks,
		OverdueTasks:      s.OverdueTasks,
		HighPriorityTasks: s.HighPriorityTasks,
		TasksBySource:     s.TasksBySource,
		Tasks:             toTaskResponses(s.Tasks),
	}
}

// WeeklyResponse is the JSON representation of the weekly outlook.
type WeeklyResponse struct {
	ThisWeek []TaskResponse `json:"this_week"`
	NextWeek []TaskResponse `json:"next_week"`
	Later    []TaskResponse `json:"later"`
}

// AuthURLResponse carries a provider authorization URL.
type AuthURLResponse struct {
	AuthURL string `json:"auth_url"`
}

// CallbackResponse confirms a completed OAuth code exchange.
type CallbackResponse struct {
	Message string `json:"message"`
	TokenID int64  `json:"token_id"`
	Source  string `json:"source"`
}

// SyncSourceResult is the per-source outcome within a sync response.
type SyncSourceResult struct {
	Source    string `json:"source"`
	Created   int    `json:"created"`
	Updated   int    `json:"updated"`
	Unchanged int    `json:"unchanged"`
	Error     string `json:"error,omitempty"`
}

// SyncResponse reports the outcome of a sync request.
type SyncResponse struct {
	Message     string             `json:"message"`
	TasksSynced int                `json:"tasks_synced"`
	Results     []SyncSourceResult `json:"results"`
}

func toSyncResponse(results []application.SourceResult) SyncResponse {
	resp := SyncResponse{
		Message: "Sync completed successfully",
		Results: make([]SyncSourceResult, 0, len(results)),
	}

	for _, r := range results {
		sr := SyncSourceResult{
			Source:    string(r.Source),
			Created:   r.Created,
			Updated:   r.Updated,
			Unchanged: r.Unchanged,
		}
		if r.Err != nil {
			sr.Error = r.Err.Error()
		}
		resp.Results = append(resp.Results, sr)
		resp.TasksSynced += r.Created + r.Updated
	}

	return resp
}

// HealthResponse is the liveness check payload.
type HealthResponse struct {
	Status string `json:"status"`
}
