// Package source implements the SourceAdapter port for each external
// provider: Canvas LMS, Microsoft Graph, Google Calendar, and Handshake.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/avillegas/studyhub/internal/domain/model"
	"github.com/avillegas/studyhub/internal/domain/port/driven"
)

// NewHTTPClient creates the http.Client shared by the REST-based adapters,
// with an in-memory conditional-request cache (ETag / Last-Modified) so
// repeated sync passes hit 304s instead of re-downloading unchanged data.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: httpcache.NewMemoryCacheTransport(),
		Timeout:   30 * time.Second,
	}
}

// getJSON performs an authenticated GET and decodes the JSON response into
// out. Non-2xx responses become a *driven.FetchError carrying the status code
// and a truncated body, so callers can distinguish auth failures from the rest.
func getJSON(ctx context.Context, client *http.Client, source model.SourceType, accessToken, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", source, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &driven.FetchError{
			Source:     source,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", source, err)
	}

	return nil
}

// marshalMetadata serializes per-source extras into the opaque metadata
// column. Marshal failures are swallowed; metadata is best-effort.
func marshalMetadata(m map[string]any) string {
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
