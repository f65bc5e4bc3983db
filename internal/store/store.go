// Package store is the persistence boundary for user records. Email
// uniqueness is enforced here, at the store, so concurrent writers race
// on the backend's atomic conditional writes rather than on in-process
// checks.
package store

import (
	"context"
	"errors"

	"github.com/marketloom/user-api/internal/models"
)

var (
	// ErrNotFound is returned when no record matches the identifier.
	ErrNotFound = errors.New("store: user not found")

	// ErrEmailExists is returned when a write would violate the unique
	// email constraint. The existing record is never overwritten.
	ErrEmailExists = errors.New("store: email already registered")
)

// UserPatch is a partial update. Nil pointers leave the stored value
// untouched. Password updates arrive here already hashed; the store
// never sees plaintext.
type UserPatch struct {
	Username      *string
	Email         *string
	PasswordHash  *string
	ProfilePicURL *string
	Reviews       []models.Review
	LikedProducts []int64
	Roles         []string
}

// Empty reports whether the patch carries no field.
func (p *UserPatch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.PasswordHash == nil &&
		p.ProfilePicURL == nil && p.Reviews == nil && p.LikedProducts == nil &&
		p.Roles == nil
}

// UpdateResult reports the outcome of a partial update.
type UpdateResult struct {
	Matched  bool // a record with the id exists
	Modified bool // at least one stored value changed
}

// UserStore is the credential store adapter consumed by the handlers
// and the auth lifecycle.
type UserStore interface {
	// Insert persists a new record. Fails with ErrEmailExists when the
	// email is already registered.
	Insert(ctx context.Context, user *models.User) error

	// FindByID returns the record with the given id or ErrNotFound.
	FindByID(ctx context.Context, id string) (*models.User, error)

	// FindByEmail returns the record with the given email or ErrNotFound.
	// Email matching is case-insensitive, like the uniqueness constraint.
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// List returns all user records.
	List(ctx context.Context) ([]models.User, error)

	// UpdateByID applies a partial update. A missing record yields
	// {Matched: false} without error; an email collision yields
	// ErrEmailExists.
	UpdateByID(ctx context.Context, id string, patch UserPatch) (UpdateResult, error)

	// DeleteByID removes the record, reporting whether one matched.
	DeleteByID(ctx context.Context, id string) (bool, error)
}
