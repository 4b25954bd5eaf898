package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avillegas/studyhub/internal/domain/model"
)

func TestUserRepo_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, "ana@university.edu", "Ana")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "ana@university.edu", created.Email)
	assert.Equal(t, "Ana", created.Name)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.Email, got.Email)
}

func TestUserRepo_DuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, "ana@university.edu", "Ana")
	require.NoError(t, err)

	_, err = repo.Create(ctx, "ana@university.edu", "Someone Else")
	assert.ErrorIs(t, err, model.ErrDuplicateEmail)
}

func TestUserRepo_GetByIDMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)

	got, err := repo.GetByID(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUserRepo_GetByEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, "ben@university.edu", "Ben")
	require.NoError(t, err)

	got, err := repo.GetByEmail(ctx, "ben@university.edu")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)

	missing, err := repo.GetByEmail(ctx, "nobody@university.edu")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepo_ListAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, "a@university.edu", "A")
	require.NoError(t, err)
	_, err = repo.Create(ctx, "b@university.edu", "B")
	require.NoError(t, err)

	users, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "a@university.edu", users[0].Email)
	assert.Equal(t, "b@university.edu", users[1].Email)
}
