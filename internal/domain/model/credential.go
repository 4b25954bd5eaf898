package model

import "time"

// Credential holds OAuth (or manually issued) token material for one
// (user, source) pair. At most one credential exists per pair; a new
// exchange or manual token submission replaces the previous one.
//
// A zero ExpiresAt means no expiry is recorded. Manually issued tokens
// carry no refresh token and no expiry and are treated as non-expiring.
type Credential struct {
	ID           int64
	UserID       int64
	Source       SourceType
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
	// BaseURL overrides the source's API base URL for this credential.
	// Used for Canvas, where each institution runs its own instance.
	BaseURL   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
