package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every STUDYHUB_ env var that Load() reads.
var allConfigKeys = []string{
	"STUDYHUB_LISTEN_ADDR",
	"STUDYHUB_DB_PATH",
	"STUDYHUB_SYNC_ENABLED",
	"STUDYHUB_SYNC_INTERVAL",
	"STUDYHUB_FETCH_TIMEOUT",
	"STUDYHUB_FRONTEND_ORIGINS",
	"STUDYHUB_CANVAS_BASE_URL",
	"STUDYHUB_CANVAS_CLIENT_ID",
	"STUDYHUB_CANVAS_CLIENT_SECRET",
	"STUDYHUB_MICROSOFT_CLIENT_ID",
	"STUDYHUB_MICROSOFT_CLIENT_SECRET",
	"STUDYHUB_MICROSOFT_TENANT_ID",
	"STUDYHUB_GOOGLE_CLIENT_ID",
	"STUDYHUB_GOOGLE_CLIENT_SECRET",
	"STUDYHUB_HANDSHAKE_CLIENT_ID",
	"STUDYHUB_HANDSHAKE_CLIENT_SECRET",
}

// isolateConfigEnv saves and unsets all STUDYHUB_ env vars so tests don't
// inherit values from the host environment. t.Cleanup restores original
// values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("STUDYHUB_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("STUDYHUB_DB_PATH", "/tmp/test.db")
	t.Setenv("STUDYHUB_SYNC_ENABLED", "false")
	t.Setenv("STUDYHUB_SYNC_INTERVAL", "15m")
	t.Setenv("STUDYHUB_FETCH_TIMEOUT", "5s")
	t.Setenv("STUDYHUB_CANVAS_BASE_URL", "https://canvas.myschool.edu")
	t.Setenv("STUDYHUB_CANVAS_CLIENT_ID", "canvas-id")
	t.Setenv("STUDYHUB_MICROSOFT_TENANT_ID", "my-tenant")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.False(t, cfg.SyncEnabled)
	assert.Equal(t, 15*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "https://canvas.myschool.edu", cfg.CanvasBaseURL)
	assert.Equal(t, "canvas-id", cfg.CanvasClientID)
	assert.Equal(t, "my-tenant", cfg.MicrosoftTenantID)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "studyhub.db", cfg.DBPath)
	assert.True(t, cfg.SyncEnabled)
	assert.Equal(t, time.Hour, cfg.SyncInterval)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.FrontendOrigins)
	assert.Equal(t, "https://canvas.instructure.com", cfg.CanvasBaseURL)
	assert.Equal(t, "common", cfg.MicrosoftTenantID)
	assert.Empty(t, cfg.CanvasClientID)
}

func TestLoad_FrontendOrigins(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("STUDYHUB_FRONTEND_ORIGINS", "https://studyhub.example , http://localhost:4000,")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"https://studyhub.example", "http://localhost:4000"}, cfg.FrontendOrigins)
}

func TestLoad_InvalidSyncEnabled(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("STUDYHUB_SYNC_ENABLED", "sometimes")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "STUDYHUB_SYNC_ENABLED")
}

func TestLoad_InvalidSyncInterval(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("STUDYHUB_SYNC_INTERVAL", "soon")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "STUDYHUB_SYNC_INTERVAL")
}

func TestLoad_InvalidFetchTimeout(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("STUDYHUB_FETCH_TIMEOUT", "never")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "STUDYHUB_FETCH_TIMEOUT")
}
