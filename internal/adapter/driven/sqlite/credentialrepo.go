package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/avillegas/studyhub/internal/domain/model"
	"github.com/avillegas/studyhub/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port
// interface. Token material is stored as-is; encryption at rest is a known
// production gap.
type CredentialRepo struct {
	db *DB
}

// NewCredentialRepo creates a new CredentialRepo backed by the given DB.
func NewCredentialRepo(db *DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

// Upsert inserts or replaces the credential for (cred.UserID, cred.Source).
// The created_at of an existing row is preserved.
func (r *CredentialRepo) Upsert(ctx context.Context, cred model.Credential) (model.Credential, error) {
	const query = `
		INSERT INTO credentials (
			user_id, source_type, access_token, refresh_token, token_type,
			expires_at, base_url, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, source_type) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			expires_at = excluded.expires_at,
			base_url = excluded.base_url,
			updated_at = excluded.updated_at
	`

	tokenType := cred.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	var expiresAt any
	if !cred.ExpiresAt.IsZero() {
		expiresAt = formatTime(cred.ExpiresAt)
	}

	now := formatTime(time.Now())

	_, err := r.db.Writer.ExecContext(ctx, query,
		cred.UserID, string(cred.Source), cred.AccessToken, cred.RefreshToken,
		tokenType, expiresAt, cred.BaseURL, now, now,
	)
	if err != nil {
		return model.Credential{}, fmt.Errorf("upsert credential %d/%s: %w", cred.UserID, cred.Source, err)
	}

	stored, err := r.Get(ctx, cred.UserID, cred.Source)
	if err != nil {
		return model.Credential{}, err
	}
	return *stored, nil
}

// Get retrieves the credential for a (user, source) pair.
// Returns nil, nil if the pair is not connected.
func (r *CredentialRepo) Get(ctx context.Context, userID int64, source model.SourceType) (*model.Credential, error) {
	const query = `
		SELECT id, user_id, source_type, access_token, refresh_token, token_type,
		       expires_at, base_url, created_at, updated_at
		FROM credentials
		WHERE user_id = ? AND source_type = ?
	`

	cred, err := scanCredential(r.db.Reader.QueryRowContext(ctx, query, userID, string(source)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credential %d/%s: %w", userID, source, err)
	}

	return cred, nil
}

// ListByUser returns all credentials for a user, ordered by source type.
func (r *CredentialRepo) ListByUser(ctx context.Context, userID int64) ([]model.Credential, error) {
	const query = `
		SELECT id, user_id, source_type, access_token, refresh_token, token_type,
		       expires_at, base_url, created_at, updated_at
		FROM credentials
		WHERE user_id = ?
		ORDER BY source_type
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list credentials for user %d: %w", userID, err)
	}
	defer rows.Close()

	var creds []model.Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		creds = append(creds, *cred)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}

	return creds, nil
}

func scanCredential(s scanner) (*model.Credential, error) {
	var cred model.Credential
	var source string
	var expiresAt sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(
		&cred.ID, &cred.UserID, &source, &cred.AccessToken, &cred.RefreshToken,
		&cred.TokenType, &expiresAt, &cred.BaseURL, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	cred.Source = model.SourceType(source)

	if expiresAt.Valid {
		cred.ExpiresAt, err = parseTime(expiresAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse expires_at: %w", err)
		}
	}

	cred.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	cred.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &cred, nil
}
