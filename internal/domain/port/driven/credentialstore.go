package driven

import (
	"context"

	"github.com/avillegas/studyhub/internal/domain/model"
)

// CredentialStore defines the driven port for token persistence. At most one
// credential exists per (user, source); Upsert replaces any prior one.
type CredentialStore interface {
	// Upsert inserts or replaces the credential for (cred.UserID,
	// cred.Source) and returns the stored row.
	Upsert(ctx context.Context, cred model.Credential) (model.Credential, error)

	// Get retrieves the credential for a (user, source) pair.
	// Returns nil, nil if the pair is not connected.
	Get(ctx context.Context, userID int64, source model.SourceType) (*model.Credential, error)

	// ListByUser returns all credentials for a user, ordered by source.
	ListByUser(ctx context.Context, userID int64) ([]model.Credential, error)
}
