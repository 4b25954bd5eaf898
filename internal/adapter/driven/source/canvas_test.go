package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avillegas/studyhub/internal/domain/model"
	"github.com/avillegas/studyhub/internal/domain/port/driven"
)

func canvasServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer canvas-token", r.Header.Get("Authorization"))
		assert.Equal(t, "student", r.URL.Query().Get("enrollment_type"))
		assert.Equal(t, "active", r.URL.Query().Get("enrollment_state"))

		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id": 42, "name": "Algorithms"},
		})
	})
	mux.HandleFunc("/api/v1/courses/42/assignments", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "upcoming", r.URL.Query().Get("bucket"))

		due := time.Now().Add(30 * time.Hour).UTC().Format(time.RFC3339)
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{
				"id":               7001,
				"name":             "Problem set 3",
				"description":      "Dynamic programming",
				"due_at":           due,
				"points_possible":  100.0,
				"submission_types": []string{"online_upload"},
			},
			{
				"id":     7002,
				"name":   "Undated reading",
				"due_at": nil,
			},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCanvasAdapter_Fetch(t *testing.T) {
	srv := canvasServer(t)
	adapter := NewCanvasAdapter(srv.Client(), srv.URL)

	tasks, err := adapter.Fetch(context.Background(), "canvas-token", driven.FetchOptions{})
	require.NoError(t, err)
	require.Len(t, tasks, 1, "assignments without a due date are skipped")

	task := tasks[0]
	assert.Equal(t, "Problem set 3", task.Title)
	assert.Equal(t, model.TaskTypeAssignment, task.Type)
	assert.Equal(t, model.SourceCanvas, task.Source)
	assert.Equal(t, "7001", task.SourceID)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, 2, task.Priority, "due within 48h ranks priority 2")
	assert.Contains(t, task.Metadata, "Algorithms")
	assert.Contains(t, task.Metadata, "points_possible")
}

func TestCanvasAdapter_FetchHonorsPerCredentialBaseURL(t *testing.T) {
	srv := canvasServer(t)
	adapter := NewCanvasAdapter(srv.Client(), "https://unreachable.invalid")

	tasks, err := adapter.Fetch(context.Background(), "canvas-token", driven.FetchOptions{BaseURL: srv.URL})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestCanvasAdapter_FetchUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"message":"Invalid access token."}]}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	adapter := NewCanvasAdapter(srv.Client(), srv.URL)

	_, err := adapter.Fetch(context.Background(), "bad-token", driven.FetchOptions{})
	var fetchErr *driven.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.True(t, fetchErr.Unauthorized())
	assert.Equal(t, model.SourceCanvas, fetchErr.Source)
}

func TestCanvasAdapter_VerifyToken(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "/api/v1/users/self", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer good-token" {
			http.Error(w, `{"errors":[{"message":"Invalid access token."}]}`, http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"id": 1, "name": "Ana"}`)
	}))
	t.Cleanup(srv.Close)

	adapter := NewCanvasAdapter(srv.Client(), srv.URL)

	require.NoError(t, adapter.VerifyToken(context.Background(), "good-token", ""))
	assert.Error(t, adapter.VerifyToken(context.Background(), "bad-token", ""))
	assert.Equal(t, 2, hits)
}

func TestAssignmentPriority(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		due  time.Time
		want int
	}{
		{"due in an hour", now.Add(time.Hour), 3},
		{"due tomorrow afternoon", now.Add(30 * time.Hour), 2},
		{"due in four days", now.Add(4 * 24 * time.Hour), 1},
		{"due next month", now.Add(30 * 24 * time.Hour), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, assignmentPriority(now, tt.due))
		})
	}
}

func TestGetJSON_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	var out any
	err := getJSON(context.Background(), srv.Client(), model.SourceCanvas, "tok", srv.URL, &out)

	var fetchErr *driven.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusInternalServerError, fetchErr.StatusCode)
	assert.False(t, fetchErr.Unauthorized())
}
