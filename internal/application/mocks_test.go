package application_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avillegas/studyhub/internal/domain/model"
	"github.com/avillegas/studyhub/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockUserStore struct {
	users []model.User
}

func (m *mockUserStore) Create(_ context.Context, email, name string) (model.User, error) {
	user := model.User{ID: int64(len(m.users) + 1), Email: email, Name: name}
	m.users = append(m.users, user)
	return user, nil
}

func (m *mockUserStore) GetByID(_ context.Context, id int64) (*model.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			user := u
			return &user, nil
		}
	}
	return nil, nil
}

func (m *mockUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, nil
}

func (m *mockUserStore) ListAll(_ context.Context) ([]model.User, error) {
	return m.users, nil
}

type mockCredentialStore struct {
	mu    sync.Mutex
	creds map[string]model.Credential
	seq   int64
}

func credKey(userID int64, source model.SourceType) string {
	return fmt.Sprintf("%d/%s", userID, source)
}

func (m *mockCredentialStore) Upsert(_ context.Context, cred model.Credential) (model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.creds == nil {
		m.creds = map[string]model.Credential{}
	}

	key := credKey(cred.UserID, cred.Source)
	if existing, ok := m.creds[key]; ok {
		cred.ID = existing.ID
	} else {
		m.seq++
		cred.ID = m.seq
	}
	m.creds[key] = cred
	return cred, nil
}

func (m *mockCredentialStore) Get(_ context.Context, userID int64, source model.SourceType) (*model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cred, ok := m.creds[credKey(userID, source)]; ok {
		return &cred, nil
	}
	return nil, nil
}

func (m *mockCredentialStore) ListByUser(_ context.Context, userID int64) ([]model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Credential
	for _, cred := range m.creds {
		if cred.UserID == userID {
			out = append(out, cred)
		}
	}
	return out, nil
}

type mockTaskStore struct {
	mu    sync.Mutex
	tasks []model.Task
	seq   int64
}

func (m *mockTaskStore) Create(_ context.Context, task model.Task) (model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	task.ID = m.seq
	if task.Status == "" {
		task.Status = model.TaskStatusPending
	}
	m.tasks = append(m.tasks, task)
	return task, nil
}

func (m *mockTaskStore) GetByID(_ context.Context, id, userID int64) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tasks {
		if t.ID == id && t.UserID == userID {
			task := t
			return &task, nil
		}
	}
	return nil, nil
}

func (m *mockTaskStore) GetBySourceKey(_ context.Context, userID int64, source model.SourceType, sourceID string) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tasks {
		if t.UserID == userID && t.Source == source && t.SourceID == sourceID {
			task := t
			return &task, nil
		}
	}
	return nil, nil
}

func (m *mockTaskStore) Upsert(_ context.Context, task model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if task.SourceID == "" {
		return fmt.Errorf("empty source id")
	}

	for i, t := range m.tasks {
		if t.UserID == task.UserID && t.Source == task.Source && t.SourceID == task.SourceID {
			task.ID = t.ID
			task.Status = t.Status // status is never changed by upsert
			m.tasks[i] = task
			return nil
		}
	}

	m.seq++
	task.ID = m.seq
	if task.Status == "" {
		task.Status = model.TaskStatusPending
	}
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *mockTaskStore) Update(_ context.Context, id, userID int64, update model.TaskUpdate) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, t := range m.tasks {
		if t.ID == id && t.UserID == userID {
			if update.Status != nil {
				t.Status = *update.Status
			}
			if update.Title != nil {
				t.Title = *update.Title
			}
			if update.Description != nil {
				t.Description = *update.Description
			}
			if update.Priority != nil {
				t.Priority = *update.Priority
			}
			m.tasks[i] = t
			task := t
			return &task, nil
		}
	}
	return nil, nil
}

func (m *mockTaskStore) Delete(_ context.Context, id, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, t := range m.tasks {
		if t.ID == id && t.UserID == userID {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("task %d: %w", id, model.ErrNotFound)
}

func (m *mockTaskStore) ListByUser(_ context.Context, userID int64, status *model.TaskStatus) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Task
	for _, t := range m.tasks {
		if t.UserID != userID {
			continue
		}
		if status != nil && t.Status != *status {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *mockTaskStore) MarkOverdue(_ context.Context, userID int64, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int
	for i, t := range m.tasks {
		if t.UserID == userID && t.Status == model.TaskStatusPending && t.DueDate != nil && t.DueDate.Before(now) {
			m.tasks[i].Status = model.TaskStatusOverdue
			n++
		}
	}
	return n, nil
}

type mockAdapter struct {
	source model.SourceType
	fetch  func(ctx context.Context, accessToken string, opts driven.FetchOptions) ([]model.Task, error)
	calls  int
}

func (m *mockAdapter) Source() model.SourceType {
	return m.source
}

func (m *mockAdapter) Fetch(ctx context.Context, accessToken string, opts driven.FetchOptions) ([]model.Task, error) {
	m.calls++
	return m.fetch(ctx, accessToken, opts)
}
