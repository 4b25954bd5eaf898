// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr      string
	DBPath          string
	SyncEnabled     bool
	SyncInterval    time.Duration
	FetchTimeout    time.Duration
	FrontendOrigins []string

	CanvasBaseURL      string
	CanvasClientID     string
	CanvasClientSecret string

	MicrosoftClientID     string
	MicrosoftClientSecret string
	MicrosoftTenantID     string

	GoogleClientID     string
	GoogleClientSecret string

	HandshakeClientID     string
	HandshakeClientSecret string
}

// Load reads configuration from environment variables and returns a validated
// Config. All provider credentials are optional; unconfigured providers are
// still routable but reject code exchanges. Optional variables with defaults:
// STUDYHUB_LISTEN_ADDR (127.0.0.1:8080), STUDYHUB_DB_PATH (studyhub.db),
// STUDYHUB_SYNC_ENABLED (true), STUDYHUB_SYNC_INTERVAL (1h),
// STUDYHUB_FETCH_TIMEOUT (30s), STUDYHUB_CANVAS_BASE_URL
// (https://canvas.instructure.com).
func Load() (*Config, error) {
	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("STUDYHUB_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "studyhub.db"
	if v, ok := os.LookupEnv("STUDYHUB_DB_PATH"); ok {
		dbPath = v
	}

	syncEnabled := true
	if v, ok := os.LookupEnv("STUDYHUB_SYNC_ENABLED"); ok {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("STUDYHUB_SYNC_ENABLED has invalid value %q: %w", v, err)
		}
		syncEnabled = parsed
	}

	syncInterval := time.Hour
	if v, ok := os.LookupEnv("STUDYHUB_SYNC_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("STUDYHUB_SYNC_INTERVAL has invalid duration %q: %w", v, err)
		}
		syncInterval = parsed
	}

	fetchTimeout := 30 * time.Second
	if v, ok := os.LookupEnv("STUDYHUB_FETCH_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("STUDYHUB_FETCH_TIMEOUT has invalid duration %q: %w", v, err)
		}
		fetchTimeout = parsed
	}

	frontendOrigins := []string{"http://localhost:5173", "http://localhost:3000"}
	if v, ok := os.LookupEnv("STUDYHUB_FRONTEND_ORIGINS"); ok && v != "" {
		frontendOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				frontendOrigins = append(frontendOrigins, origin)
			}
		}
	}

	canvasBaseURL := "https://canvas.instructure.com"
	if v, ok := os.LookupEnv("STUDYHUB_CANVAS_BASE_URL"); ok && v != "" {
		canvasBaseURL = v
	}

	microsoftTenant := os.Getenv("STUDYHUB_MICROSOFT_TENANT_ID")
	if microsoftTenant == "" {
		microsoftTenant = "common"
	}

	return &Config{
		ListenAddr:      listenAddr,
		DBPath:          dbPath,
		SyncEnabled:     syncEnabled,
		SyncInterval:    syncInterval,
		FetchTimeout:    fetchTimeout,
		FrontendOrigins: frontendOrigins,

		CanvasBaseURL:      canvasBaseURL,
		CanvasClientID:     os.Getenv("STUDYHUB_CANVAS_CLIENT_ID"),
		CanvasClientSecret: os.Getenv("STUDYHUB_CANVAS_CLIENT_SECRET"),

		MicrosoftClientID:     os.Getenv("STUDYHUB_MICROSOFT_CLIENT_ID"),
		MicrosoftClientSecret: os.Getenv("STUDYHUB_MICROSOFT_CLIENT_SECRET"),
		MicrosoftTenantID:     microsoftTenant,

		GoogleClientID:     os.Getenv("STUDYHUB_GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("STUDYHUB_GOOGLE_CLIENT_SECRET"),

		HandshakeClientID:     os.Getenv("STUDYHUB_HANDSHAKE_CLIENT_ID"),
		HandshakeClientSecret: os.Getenv("STUDYHUB_HANDSHAKE_CLIENT_SECRET"),
	}, nil
}
