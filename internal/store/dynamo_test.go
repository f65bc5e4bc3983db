package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marketloom/user-api/internal/models"
)

func TestEmailGuardKey(t *testing.T) {
	// The guard key is the single definition of email identity: lookup
	// and uniqueness both normalize through it.
	assert.Equal(t, "email#alice@x.com", emailGuardKey("alice@x.com"))
	assert.Equal(t, "email#alice@x.com", emailGuardKey("Alice@X.com"))
	assert.Equal(t, emailGuardKey("A@X.COM"), emailGuardKey("a@x.com"))
}

func TestPatchModifies(t *testing.T) {
	current := &models.User{
		Username:      "alice",
		Email:         "Alice@X.com",
		PasswordHash:  "$2a$10$currenthash",
		ProfilePicURL: "https://cdn/x.png",
	}

	tests := []struct {
		name  string
		patch UserPatch
		want  bool
	}{
		{
			name:  "empty patch",
			patch: UserPatch{},
			want:  false,
		},
		{
			name:  "same username",
			patch: UserPatch{Username: strPtr("alice")},
			want:  false,
		},
		{
			name:  "new username",
			patch: UserPatch{Username: strPtr("alicia")},
			want:  true,
		},
		{
			name:  "case-only email change",
			patch: UserPatch{Email: strPtr("alice@x.com")},
			want:  false,
		},
		{
			name:  "new email",
			patch: UserPatch{Email: strPtr("alicia@x.com")},
			want:  true,
		},
		{
			name:  "same password hash",
			patch: UserPatch{PasswordHash: strPtr("$2a$10$currenthash")},
			want:  false,
		},
		{
			name:  "new password hash",
			patch: UserPatch{PasswordHash: strPtr("$2a$10$freshhash")},
			want:  true,
		},
		{
			name:  "reviews replacement",
			patch: UserPatch{Reviews: []models.Review{{Review: "great"}}},
			want:  true,
		},
		{
			name:  "liked products replacement",
			patch: UserPatch{LikedProducts: []int64{7}},
			want:  true,
		},
		{
			name:  "roles replacement",
			patch: UserPatch{Roles: []string{"admin"}},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, patchModifies(tt.patch, current))
		})
	}
}
