package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketloom/user-api/internal/models"
)

func newUser(username, email string) *models.User {
	now := time.Now().UTC()
	return &models.User{
		UserID:       uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: "$2a$10$fakefakefakefakefakefake",
		Roles:        []string{models.DefaultRole},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func strPtr(s string) *string { return &s }

func TestMemoryStore_InsertAndFind(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	alice := newUser("alice", "a@x.com")
	require.NoError(t, s.Insert(ctx, alice))

	byID, err := s.FindByID(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, alice.Username, byID.Username)

	byEmail, err := s.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, alice.UserID, byEmail.UserID)

	// Email lookup is case-insensitive
	byEmail, err = s.FindByEmail(ctx, "A@X.COM")
	require.NoError(t, err)
	assert.Equal(t, alice.UserID, byEmail.UserID)

	_, err = s.FindByID(ctx, "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_DuplicateEmail(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, newUser("alice", "a@x.com")))

	err := s.Insert(ctx, newUser("impostor", "a@x.com"))
	assert.ErrorIs(t, err, ErrEmailExists)

	// Exactly one record persists
	users, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
}

func TestMemoryStore_UpdateByID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	alice := newUser("alice", "a@x.com")
	bob := newUser("bob", "b@x.com")
	require.NoError(t, s.Insert(ctx, alice))
	require.NoError(t, s.Insert(ctx, bob))

	t.Run("missing record", func(t *testing.T) {
		res, err := s.UpdateByID(ctx, "no-such-id", UserPatch{Username: strPtr("ghost")})
		require.NoError(t, err)
		assert.False(t, res.Matched)
	})

	t.Run("empty patch", func(t *testing.T) {
		res, err := s.UpdateByID(ctx, alice.UserID, UserPatch{})
		require.NoError(t, err)
		assert.False(t, res.Matched)
		assert.False(t, res.Modified)
	})

	t.Run("username change", func(t *testing.T) {
		res, err := s.UpdateByID(ctx, alice.UserID, UserPatch{Username: strPtr("alicia")})
		require.NoError(t, err)
		assert.True(t, res.Matched)
		assert.True(t, res.Modified)

		got, err := s.FindByID(ctx, alice.UserID)
		require.NoError(t, err)
		assert.Equal(t, "alicia", got.Username)
	})

	t.Run("no-op change", func(t *testing.T) {
		res, err := s.UpdateByID(ctx, alice.UserID, UserPatch{Username: strPtr("alicia")})
		require.NoError(t, err)
		assert.True(t, res.Matched)
		assert.False(t, res.Modified)
	})

	t.Run("email change to taken address", func(t *testing.T) {
		_, err := s.UpdateByID(ctx, alice.UserID, UserPatch{Email: strPtr("b@x.com")})
		assert.ErrorIs(t, err, ErrEmailExists)
	})

	t.Run("email change to free address", func(t *testing.T) {
		res, err := s.UpdateByID(ctx, alice.UserID, UserPatch{Email: strPtr("alicia@x.com")})
		require.NoError(t, err)
		assert.True(t, res.Modified)

		// Old address is released
		_, err = s.FindByEmail(ctx, "a@x.com")
		assert.ErrorIs(t, err, ErrNotFound)

		got, err := s.FindByEmail(ctx, "alicia@x.com")
		require.NoError(t, err)
		assert.Equal(t, alice.UserID, got.UserID)
	})
}

func TestMemoryStore_DeleteByID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	alice := newUser("alice", "a@x.com")
	require.NoError(t, s.Insert(ctx, alice))

	matched, err := s.DeleteByID(ctx, alice.UserID)
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = s.DeleteByID(ctx, alice.UserID)
	require.NoError(t, err)
	assert.False(t, matched)

	// The email is free for re-registration after deletion
	require.NoError(t, s.Insert(ctx, newUser("alice2", "a@x.com")))
}

func TestMemoryStore_ListOrdering(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first := newUser("first", "1@x.com")
	second := newUser("second", "2@x.com")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, s.Insert(ctx, second))
	require.NoError(t, s.Insert(ctx, first))

	users, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "first", users[0].Username)
	assert.Equal(t, "second", users[1].Username)
}
