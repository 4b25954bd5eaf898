// Package driven defines the driven ports: interfaces the application core
// depends on, implemented by outbound adapters (sqlite, upstream APIs).
package driven

import (
	"context"

	"github.com/avillegas/studyhub/internal/domain/model"
)

// UserStore defines the driven port for user persistence.
type UserStore interface {
	// Create inserts a new user. Returns model.ErrDuplicateEmail if the
	// email is already registered.
	Create(ctx context.Context, email, name string) (model.User, error)

	// GetByID retrieves a user by id. Returns nil, nil if absent.
	GetByID(ctx context.Context, id int64) (*model.User, error)

	// GetByEmail retrieves a user by email. Returns nil, nil if absent.
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// ListAll returns every user, ordered by id. Used by the background
	// sync scheduler.
	ListAll(ctx context.Context) ([]model.User, error)
}
