// Package httphandler is the HTTP driving adapter that serves the REST API.
package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/avillegas/studyhub/internal/application"
	"github.com/avillegas/studyhub/internal/domain/model"
	"github.com/avillegas/studyhub/internal/domain/port/driven"
)

// backgroundSyncTimeout bounds the post-authentication sync that runs
// detached from the originating request.
const backgroundSyncTimeout = 2 * time.Minute

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	users          driven.UserStore
	creds          driven.CredentialStore
	tasks          driven.TaskStore
	oauth          *application.OAuthService
	sync           *application.SyncService
	summary        *application.SummaryService
	canvasVerifier driven.TokenVerifier
	logger         *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	users driven.UserStore,
	creds driven.CredentialStore,
	tasks driven.TaskStore,
	oauth *application.OAuthService,
	sync *application.SyncService,
	summary *application.SummaryService,
	canvasVerifier driven.TokenVerifier,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		users:          users,
		creds:          creds,
		tasks:          tasks,
		oauth:          oauth,
		sync:           sync,
		summary:        summary,
		canvasVerifier: canvasVerifier,
		logger:         logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with request-ID, CORS, logging, and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger, frontendOrigins []string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.Health)

	mux.HandleFunc("POST /api/users", h.CreateUser)
	mux.HandleFunc("GET /api/users/{id}", h.GetUser)

	mux.HandleFunc("GET /api/auth/{source}/login", h.AuthLogin)
	mux.HandleFunc("POST /api/auth/{source}/callback", h.AuthCallback)
	mux.HandleFunc("POST /api/auth/canvas/token", h.AddCanvasToken)
	mux.HandleFunc("GET /api/auth/tokens", h.ListTokens)

	mux.HandleFunc("GET /api/tasks", h.ListTasks)
	mux.HandleFunc("GET /api/tasks/plain", h.PlainTasks)
	mux.HandleFunc("GET /api/tasks/weekly", h.WeeklyTasks)
	mux.HandleFunc("POST /api/tasks/manual", h.CreateManualTask)
	mux.HandleFunc("GET /api/tasks/{id}", h.GetTask)
	mux.HandleFunc("PUT /api/tasks/{id}", h.UpdateTask)
	mux.HandleFunc("DELETE /api/tasks/{id}", h.DeleteTask)
	mux.HandleFunc("PUT /api/tasks/{id}/status", h.UpdateTaskStatus)

	mux.HandleFunc("POST /api/sync", h.SyncNow)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)
	wrapped = corsMiddleware(frontendOrigins, wrapped)

	return wrapped
}

// Health reports process liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// createUserRequest is the JSON body for registering a user.
type createUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// CreateUser registers a new user account. Email and name come from the JSON
// body, or from query parameters for clients that post without one.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := req.Email
	name := req.Name
	if email == "" {
		email = r.URL.Query().Get("email")
	}
	if name == "" {
		name = r.URL.Query().Get("name")
	}
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	user, err := h.users.Create(r.Context(), email, name)
	if err != nil {
		h.writeDomainError(w, err, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// GetUser returns a single user by ID.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r.PathValue("id"))
	if !ok {
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get user", "user_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(*user))
}

// AuthLogin returns the provider authorization URL for the given source.
func (h *Handler) AuthLogin(w http.ResponseWriter, r *http.Request) {
	source, err := model.ParseSourceSlug(r.PathValue("source"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown source")
		return
	}

	redirectURI := r.URL.Query().Get("redirect_uri")
	if redirectURI == "" {
		writeError(w, http.StatusBadRequest, "redirect_uri is required")
		return
	}

	authURL, err := h.oauth.AuthorizationURL(source, redirectURI, r.URL.Query().Get("state"))
	if err != nil {
		h.writeDomainError(w, err, "failed to build authorization url")
		return
	}

	writeJSON(w, http.StatusOK, AuthURLResponse{AuthURL: authURL})
}

// AuthCallback completes the OAuth code exchange for a user and kicks off a
// background sync of the newly connected source.
func (h *Handler) AuthCallback(w http.ResponseWriter, r *http.Request) {
	source, err := model.ParseSourceSlug(r.PathValue("source"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown source")
		return
	}

	q := r.URL.Query()
	code := q.Get("code")
	redirectURI := q.Get("redirect_uri")
	if code == "" || redirectURI == "" {
		writeError(w, http.StatusBadRequest, "code and redirect_uri are required")
		return
	}

	userID, ok := parseID(w, q.Get("user_id"))
	if !ok {
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to get user", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	cred, err := h.oauth.ExchangeCode(r.Context(), userID, source, code, redirectURI)
	if err != nil {
		h.writeDomainError(w, err, "code exchange failed")
		return
	}

	h.syncInBackground(userID, source)

	writeJSON(w, http.StatusOK, CallbackResponse{
		Message: "Authentication successful",
		TokenID: cred.ID,
		Source:  string(source),
	})
}

// AddCanvasToken stores a Canvas personal access token after verifying it
// against the Canvas API, then kicks off a background sync.
func (h *Handler) AddCanvasToken(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	accessToken := q.Get("access_token")
	if accessToken == "" {
		writeError(w, http.StatusBadRequest, "access_token is required")
		return
	}

	userID, ok := parseID(w, q.Get("user_id"))
	if !ok {
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to get user", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	baseURL := q.Get("canvas_base_url")
	if err := h.canvasVerifier.VerifyToken(r.Context(), accessToken, baseURL); err != nil {
		h.logger.Info("canvas token verification failed", "user_id", userID, "error", err)
		writeError(w, http.StatusBadRequest, "invalid Canvas token")
		return
	}

	cred, err := h.oauth.StoreManualToken(r.Context(), userID, model.SourceCanvas, accessToken, baseURL)
	if err != nil {
		h.writeDomainError(w, err, "failed to store token")
		return
	}

	h.syncInBackground(userID, model.SourceCanvas)

	writeJSON(w, http.StatusOK, CallbackResponse{
		Message: "Canvas token added successfully",
		TokenID: cred.ID,
		Source:  string(model.SourceCanvas),
	})
}

// ListTokens returns the user's stored credentials, without token material.
func (h *Handler) ListTokens(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(w, r.URL.Query().Get("user_id"))
	if !ok {
		return
	}

	creds, err := h.creds.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list credentials", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]CredentialResponse, 0, len(creds))
	for _, c := range creds {
		resp = append(resp, toCredentialResponse(c))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListTasks returns the user's task summary, optionally filtering the task
// list by status. Counts always cover the whole account.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(w, r.URL.Query().Get("user_id"))
	if !ok {
		return
	}

	var status *model.TaskStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := model.ParseTaskStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		status = &parsed
	}

	summary, err := h.summary.Summarize(r.Context(), userID, status)
	if err != nil {
		h.logger.Error("failed to summarize tasks", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toSummaryResponse(summary))
}

// PlainTasks returns the task summary as plain text.
func (h *Handler) PlainTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(w, r.URL.Query().Get("user_id"))
	if !ok {
		return
	}

	text, err := h.summary.PlainSummary(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to build plain summary", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

// WeeklyTasks returns the user's open tasks bucketed by due-date horizon.
func (h *Handler) WeeklyTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(w, r.URL.Query().Get("user_id"))
	if !ok {
		return
	}

	outlook, err := h.summary.WeeklyBuckets(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to build weekly outlook", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, WeeklyResponse{
		ThisWeek: toTaskResponses(outlook.ThisWeek),
		NextWeek: toTaskResponses(outlook.NextWeek),
		Later:    toTaskResponses(outlook.Later),
	})
}

// manualTaskRequest is the JSON body for creating a manual task.
type manualTaskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	TaskType    string  `json:"task_type"`
	DueDate     *string `json:"due_date"`
	StartDate   *string `json:"start_date"`
	Priority    int     `json:"priority"`
}

// CreateManualTask creates a user-authored task, outside any synced source.
func (h *Handler) CreateManualTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(w, r.URL.Query().Get("user_id"))
	if !ok {
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to get user", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	var req manualTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	taskType := model.TaskTypeManual
	if req.TaskType != "" {
		taskType, err = model.ParseTaskType(req.TaskType)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid task_type")
			return
		}
	}

	dueDate, ok := parseOptionalTime(w, req.DueDate, "due_date")
	if !ok {
		return
	}
	startDate, ok := parseOptionalTime(w, req.StartDate, "start_date")
	if !ok {
		return
	}

	task, err := h.tasks.Create(r.Context(), model.Task{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Type:        taskType,
		Status:      model.TaskStatusPending,
		Source:      model.SourceManual,
		DueDate:     dueDate,
		StartDate:   startDate,
		Priority:    req.Priority,
	})
	if err != nil {
		h.logger.Error("failed to create task", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toTaskResponse(task))
}

// GetTask returns a single task owned by the requesting user.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, userID, ok := h.taskKey(w, r)
	if !ok {
		return
	}

	task, err := h.tasks.GetByID(r.Context(), id, userID)
	if err != nil {
		h.logger.Error("failed to get task", "task_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	writeJSON(w, http.StatusOK, toTaskResponse(*task))
}

// taskUpdateRequest is the JSON body for partially updating a task.
type taskUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *int    `json:"priority"`
}

// UpdateTask applies a partial update to a task.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, userID, ok := h.taskKey(w, r)
	if !ok {
		return
	}

	var req taskUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	update := model.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	}
	if req.Status != nil {
		status, err := model.ParseTaskStatus(*req.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		update.Status = &status
	}

	task, err := h.tasks.Update(r.Context(), id, userID, update)
	if err != nil {
		h.logger.Error("failed to update task", "task_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	writeJSON(w, http.StatusOK, toTaskResponse(*task))
}

// UpdateTaskStatus sets just the status of a task.
func (h *Handler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, userID, ok := h.taskKey(w, r)
	if !ok {
		return
	}

	status, err := model.ParseTaskStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	task, err := h.tasks.Update(r.Context(), id, userID, model.TaskUpdate{Status: &status})
	if err != nil {
		h.logger.Error("failed to update task status", "task_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	writeJSON(w, http.StatusOK, toTaskResponse(*task))
}

// DeleteTask removes a task.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, userID, ok := h.taskKey(w, r)
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), id, userID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		h.logger.Error("failed to delete task", "task_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SyncNow runs a synchronous sync pass for the user, across all connected
// sources or just the one given.
func (h *Handler) SyncNow(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	userID, ok := parseID(w, q.Get("user_id"))
	if !ok {
		return
	}

	var only *model.SourceType
	if raw := q.Get("source"); raw != "" {
		source, err := model.ParseSourceSlug(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown source")
			return
		}
		only = &source
	}

	results, err := h.sync.SyncUser(r.Context(), userID, only)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("sync failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "Sync error")
		return
	}

	writeJSON(w, http.StatusOK, toSyncResponse(results))
}

// syncInBackground launches a detached sync of one source, so connecting an
// account populates tasks without blocking the auth response.
func (h *Handler) syncInBackground(userID int64, source model.SourceType) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundSyncTimeout)
		defer cancel()

		if _, err := h.sync.SyncUser(ctx, userID, &source); err != nil {
			h.logger.Error("background sync failed", "user_id", userID, "source", source, "error", err)
		}
	}()
}

// taskKey extracts the task ID path value and user_id query parameter.
func (h *Handler) taskKey(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	id, ok := parseID(w, r.PathValue("id"))
	if !ok {
		return 0, 0, false
	}

	userID, ok := parseID(w, r.URL.Query().Get("user_id"))
	if !ok {
		return 0, 0, false
	}

	return id, userID, true
}

// writeDomainError maps domain sentinel errors to HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, model.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotConfigured):
		writeError(w, http.StatusBadRequest, "source is not configured")
	case errors.Is(err, model.ErrExchangeFailed):
		writeError(w, http.StatusBadRequest, "authorization code exchange failed")
	default:
		h.logger.Error(logMsg, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func parseID(w http.ResponseWriter, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func parseOptionalTime(w http.ResponseWriter, raw *string, field string) (*time.Time, bool) {
	if raw == nil || *raw == "" {
		return nil, true
	}

	t, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+field)
		return nil, false
	}

	t = t.UTC()
	return &t, true
}
