package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrEmptyPassword is returned when an empty plaintext is submitted
	// for hashing. Empty credentials are never hashed.
	ErrEmptyPassword = errors.New("auth: password must not be empty")

	// ErrMismatchedHashAndPassword is returned when the plaintext does
	// not match the stored digest.
	ErrMismatchedHashAndPassword = errors.New("auth: password does not match")
)

// bcryptCost is the fixed work factor for all digests. The cost is
// embedded in the digest itself, so verification needs no side channel.
const bcryptCost = bcrypt.DefaultCost

// HashPassword generates a salted bcrypt digest for the given plaintext.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(h), err
}

// ComparePasswordAndHash validates that the given cleartext password
// matches the stored digest.
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}
