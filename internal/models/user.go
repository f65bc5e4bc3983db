package models

import "time"

// DefaultRole is assigned to every user created without an explicit role set.
const DefaultRole = "guest"

// Review is an auxiliary payload attached to a user. The auth layer
// treats it as opaque data.
type Review struct {
	Review string `json:"review" dynamodbav:"review"`
}

// User represents a user record in the system
type User struct {
	UserID        string    `json:"id" dynamodbav:"user_id"`                                 // Primary key
	Username      string    `json:"username" dynamodbav:"username"`                          // Display name, not unique
	Email         string    `json:"email" dynamodbav:"email"`                                // Login identifier, globally unique
	PasswordHash  string    `json:"-" dynamodbav:"password_hash"`                            // bcrypt hash (never in JSON)
	Roles         []string  `json:"roles" dynamodbav:"roles"`                                // Never empty; defaults to ["guest"]
	ProfilePicURL string    `json:"profile_pic_url,omitempty" dynamodbav:"profile_pic_url"`  // Optional
	Reviews       []Review  `json:"reviews" dynamodbav:"reviews"`                            // Opaque to auth
	LikedProducts []int64   `json:"liked_products" dynamodbav:"liked_products"`              // Opaque to auth
	CreatedAt     time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// CreateUserRequest represents registration request payload
type CreateUserRequest struct {
	Username      string `json:"username" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=6"`
	ProfilePicURL string `json:"profile_pic_url"`
}

// MissingFields returns the names of required fields absent from the payload.
func (r *CreateUserRequest) MissingFields() []string {
	var missing []string
	if r.Username == "" {
		missing = append(missing, "username")
	}
	if r.Email == "" {
		missing = append(missing, "email")
	}
	if r.Password == "" {
		missing = append(missing, "password")
	}
	return missing
}

// LoginRequest represents login request payload. Email is the login
// identifier.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// MissingFields returns the names of required fields absent from the payload.
func (r *LoginRequest) MissingFields() []string {
	var missing []string
	if r.Email == "" {
		missing = append(missing, "email")
	}
	if r.Password == "" {
		missing = append(missing, "password")
	}
	return missing
}

// UpdateUserRequest represents a partial update. Nil pointers leave the
// stored value untouched. A non-nil Password is re-hashed before it ever
// reaches the store.
type UpdateUserRequest struct {
	Username      *string  `json:"username"`
	Email         *string  `json:"email"`
	Password      *string  `json:"password"`
	ProfilePicURL *string  `json:"profile_pic_url"`
	Reviews       []Review `json:"reviews"`
	LikedProducts []int64  `json:"liked_products"`
}

// Empty reports whether the request carries no updatable field.
func (r *UpdateUserRequest) Empty() bool {
	return r.Username == nil && r.Email == nil && r.Password == nil &&
		r.ProfilePicURL == nil && r.Reviews == nil && r.LikedProducts == nil
}

// SetRolesRequest replaces a user's role set (admin only)
type SetRolesRequest struct {
	Roles []string `json:"roles" validate:"required,min=1"`
}

// AuthResponse represents authentication response. The user projection
// never carries the password hash (excluded by the User JSON tags).
type AuthResponse struct {
	Token     string `json:"token"`
	User      User   `json:"user"`
	ExpiresIn int    `json:"expires_in"` // seconds
}
