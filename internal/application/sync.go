package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/avillegas/studyhub/internal/domain/model"
	"github.com/avillegas/studyhub/internal/domain/port/driven"
)

// SourceResult reports the outcome of syncing one source for one user.
type SourceResult struct {
	Source    model.SourceType
	Created   int
	Updated   int
	Unchanged int
	Err       error
}

// SyncService orchestrates fetching tasks from every connected source and
// reconciling them into the task store. Syncs are idempotent: re-running
// against unchanged upstream data creates nothing and reverts nothing.
type SyncService struct {
	users        driven.UserStore
	creds        driven.CredentialStore
	tasks        driven.TaskStore
	oauth        *OAuthService
	adapters     map[model.SourceType]driven.SourceAdapter
	interval     time.Duration
	fetchTimeout time.Duration
	inflight     singleflight.Group
}

// NewSyncService creates a SyncService over the given adapters.
func NewSyncService(
	users driven.UserStore,
	creds driven.CredentialStore,
	tasks driven.TaskStore,
	oauth *OAuthService,
	adapters map[model.SourceType]driven.SourceAdapter,
	interval time.Duration,
	fetchTimeout time.Duration,
) *SyncService {
	return &SyncService{
		users:        users,
		creds:        creds,
		tasks:        tasks,
		oauth:        oauth,
		adapters:     adapters,
		interval:     interval,
		fetchTimeout: fetchTimeout,
	}
}

// SyncUser syncs one user's connected sources. When only is non-nil, just
// that source is synced. Sources without a stored credential are skipped
// silently; per-source failures are captured in the results. SyncUser
// returns an error only when the user does not exist, or when every
// attempted source failed.
func (s *SyncService) SyncUser(ctx context.Context, userID int64, only *model.SourceType) ([]SourceResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, model.ErrNotFound)
	}

	sources := model.SyncableSources
	if only != nil {
		sources = []model.SourceType{*only}
	}

	var results []SourceResult
	var attempted, failed int

	for _, source := range sources {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}

		result, err := s.syncSource(ctx, userID, source)
		if errors.Is(err, model.ErrNotConnected) {
			continue
		}

		attempted++
		if err != nil {
			failed++
			slog.Error("source sync failed", "user_id", userID, "source", source, "error", err)
			result = SourceResult{Source: source, Err: err}
		}
		results = append(results, result)
	}

	if attempted > 0 && failed == attempted {
		return results, fmt.Errorf("all %d source(s) failed for user %d", attempted, userID)
	}

	return results, nil
}

// syncSource deduplicates concurrent syncs of the same (user, source) pair:
// a manual sync racing the scheduler shares one fetch instead of running two.
func (s *SyncService) syncSource(ctx context.Context, userID int64, source model.SourceType) (SourceResult, error) {
	key := fmt.Sprintf("%d/%s", userID, source)
	v, err, _ := s.inflight.Do(key, func() (any, error) {
		return s.doSync(ctx, userID, source)
	})
	if err != nil {
		return SourceResult{Source: source}, err
	}
	return v.(SourceResult), nil
}

func (s *SyncService) doSync(ctx context.Context, userID int64, source model.SourceType) (SourceResult, error) {
	result := SourceResult{Source: source}

	cred, err := s.oauth.EnsureValidToken(ctx, userID, source)
	if err != nil {
		return result, err
	}

	adapter, ok := s.adapters[source]
	if !ok {
		return result, fmt.Errorf("no adapter for source %s", source)
	}

	fetched, err := s.fetch(ctx, adapter, cred)
	if err != nil {
		// A 401 on a token that looked valid locally usually means the
		// provider revoked or rotated it. Refresh once and retry.
		var fetchErr *driven.FetchError
		if !errors.As(err, &fetchErr) || !fetchErr.Unauthorized() {
			return result, err
		}

		slog.Info("token rejected upstream, refreshing", "user_id", userID, "source", source)
		cred, err = s.oauth.ForceRefresh(ctx, userID, source)
		if err != nil {
			return result, err
		}

		fetched, err = s.fetch(ctx, adapter, cred)
		if err != nil {
			return result, err
		}
	}

	for _, task := range fetched {
		if task.SourceID == "" {
			slog.Warn("skipping task with empty source id", "source", source, "title", task.Title)
			continue
		}
		task.UserID = userID

		existing, err := s.tasks.GetBySourceKey(ctx, userID, source, task.SourceID)
		if err != nil {
			slog.Error("lookup failed", "user_id", userID, "source", source, "source_id", task.SourceID, "error", err)
			continue
		}

		if existing != nil && taskUnchanged(*existing, task) {
			result.Unchanged++
			continue
		}

		if err := s.tasks.Upsert(ctx, task); err != nil {
			slog.Error("upsert failed", "user_id", userID, "source", source, "source_id", task.SourceID, "error", err)
			continue
		}

		if existing == nil {
			result.Created++
		} else {
			result.Updated++
		}
	}

	slog.Info("source synced",
		"user_id", userID,
		"source", source,
		"fetched", len(fetched),
		"created", result.Created,
		"updated", result.Updated,
		"unchanged", result.Unchanged,
	)

	return result, nil
}

func (s *SyncService) fetch(ctx context.Context, adapter driven.SourceAdapter, cred model.Credential) ([]model.Task, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	return adapter.Fetch(fetchCtx, cred.AccessToken, driven.FetchOptions{BaseURL: cred.BaseURL})
}

// taskUnchanged reports whether a fetched task matches the stored row on
// every field the sync is allowed to write. Status is excluded: it belongs
// to the user, not the source.
func taskUnchanged(stored, fetched model.Task) bool {
	return stored.Title == fetched.Title &&
		stored.Description == fetched.Description &&
		stored.Priority == fetched.Priority &&
		stored.Metadata == fetched.Metadata &&
		timePtrEqual(stored.DueDate, fetched.DueDate) &&
		timePtrEqual(stored.StartDate, fetched.StartDate)
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// Start begins the background sync loop: an immediate pass over all users,
// then one pass per interval. Start blocks until the context is canceled.
func (s *SyncService) Start(ctx context.Context) {
	if err := s.syncAll(ctx); err != nil {
		slog.Error("initial sync failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sync service stopped")
			return
		case <-ticker.C:
			if err := s.syncAll(ctx); err != nil {
				slog.Error("sync cycle failed", "error", err)
			}
		}
	}
}

// syncAll runs a sync pass for every user. Per-user failures are logged and
// do not abort the pass.
func (s *SyncService) syncAll(ctx context.Context) error {
	start := time.Now()

	users, err := s.users.ListAll(ctx)
	if err != nil {
		return err
	}

	var syncErrors int
	for _, user := range users {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if _, err := s.SyncUser(ctx, user.ID, nil); err != nil {
			slog.Error("user sync failed", "user_id", user.ID, "error", err)
			syncErrors++
		}
	}

	slog.Info("sync cycle complete",
		"users", len(users),
		"errors", syncErrors,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return nil
}
