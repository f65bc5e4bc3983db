package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingSecret is returned by NewTokenService when no signing
	// secret is configured. The process must refuse to start rather than
	// sign with an empty key.
	ErrMissingSecret = errors.New("auth: signing secret is not configured")

	// ErrTokenExpired marks a structurally valid token past its expiry.
	// The distinction from ErrTokenInvalid exists for metrics only;
	// callers report both as the same rejection.
	ErrTokenExpired = errors.New("auth: token expired")

	// ErrTokenInvalid covers malformed tokens, signature mismatches and
	// wrong signing keys.
	ErrTokenInvalid = errors.New("auth: token invalid")
)

// DefaultTokenTTL is the fixed session window.
const DefaultTokenTTL = 20 * time.Minute

// Claims are the identity facts embedded in a session token. No user id
// and no password material is ever included.
type Claims struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claim set carries any of the given roles.
func (c *Claims) HasRole(roles ...string) bool {
	for _, want := range roles {
		for _, have := range c.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// TokenService issues and verifies HS256-signed session tokens. The
// secret is immutable after construction and safe for concurrent use.
//
// Tokens are not revocable before expiry. Deleting a user or changing
// roles does not invalidate tokens already in flight; rotating the
// signing secret invalidates every session at once.
type TokenService struct {
	secret []byte
	ttl    time.Duration

	// now is replaceable in tests
	now func() time.Time
}

// NewTokenService creates a token service with the given signing secret
// and expiry window. A zero ttl falls back to DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL returns the configured expiry window.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue builds a signed token embedding username, email and roles with a
// fixed expiry offset from issuance time.
func (s *TokenService) Issue(username, email string, roles []string) (string, error) {
	now := s.now()
	claims := Claims{
		Username: username,
		Email:    email,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks signature validity and expiry and returns the decoded
// claims. Failures map to ErrTokenExpired or ErrTokenInvalid.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
