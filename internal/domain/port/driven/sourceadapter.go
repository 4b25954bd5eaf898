package driven

import (
	"context"
	"fmt"
	"net/http"

	"github.com/avillegas/studyhub/internal/domain/model"
)

// FetchOptions carries per-credential fetch parameters.
type FetchOptions struct {
	// BaseURL overrides the adapter's default API base URL when non-empty.
	// Only Canvas honors this; hosted sources have a single endpoint.
	BaseURL string
}

// SourceAdapter defines the driven port for one external platform. Fetch
// issues authenticated reads against the platform's API and returns items
// already normalized to the canonical task shape (title, dates, source id,
// metadata, priority). UserID, Status, and persistence concerns are left to
// the sync orchestrator.
type SourceAdapter interface {
	Source() model.SourceType
	Fetch(ctx context.Context, accessToken string, opts FetchOptions) ([]model.Task, error)
}

// TokenVerifier checks that a manually submitted access token actually works
// against the source's API before it is stored.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, accessToken, baseURL string) error
}

// FetchError reports a non-2xx response from an upstream API. The status
// code is exposed so the sync layer can treat a 401 as a signal to refresh
// the token and retry once.
type FetchError struct {
	Source     model.SourceType
	StatusCode int
	Body       string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s fetch failed with status %d: %s", e.Source, e.StatusCode, e.Body)
}

// Unauthorized reports whether the upstream rejected the access token.
func (e *FetchError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}
