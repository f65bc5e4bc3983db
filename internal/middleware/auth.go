package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/marketloom/user-api/internal/auth"
	"github.com/marketloom/user-api/internal/metrics"
	apperrors "github.com/marketloom/user-api/pkg/errors"
)

// TokenCookieName is the single token transport. Bearer headers are
// deliberately not read; supporting both would make authorization
// decisions depend on which transport wins.
const TokenCookieName = "token"

// claimsLocalKey stores the typed *auth.Claims in the request Locals.
const claimsLocalKey = "identity_claims"

// AuthMiddleware gates protected routes. Each request is authenticated
// independently; nothing is cached between requests.
type AuthMiddleware struct {
	tokens *auth.TokenService
	logger *logrus.Logger
}

// NewAuthMiddleware creates the auth gate on top of the token service.
func NewAuthMiddleware(tokens *auth.TokenService, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		logger: logger,
	}
}

// Authenticate extracts the session cookie, verifies it and attaches the
// decoded claims to the request. A missing token is 401; a failed
// verification is 403 with no detail about why (expired vs malformed is
// recorded in metrics only, never told to the caller).
func (a *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies(TokenCookieName)
		if tokenString == "" {
			metrics.RecordAuthRejection("missing_token")
			return rejectRequest(c, apperrors.CodeUnauthorized, "Authentication required")
		}

		claims, err := a.tokens.Verify(tokenString)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				metrics.RecordTokenVerification("expired")
			} else {
				metrics.RecordTokenVerification("invalid")
			}
			metrics.RecordAuthRejection("invalid_token")
			a.logger.WithError(err).WithField("path", c.Path()).Debug("Token verification failed")
			return rejectRequest(c, apperrors.CodeInvalidToken, "Invalid token")
		}
		metrics.RecordTokenVerification("ok")

		c.Locals(claimsLocalKey, claims)
		return c.Next()
	}
}

// RequireRole authorizes a previously authenticated request. The gate
// admits when the attached claims carry any of the given roles; it runs
// only behind Authenticate, so a missing claim set means a wiring bug
// and is rejected rather than admitted.
func (a *AuthMiddleware) RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := GetClaims(c)
		if claims == nil || !claims.HasRole(roles...) {
			metrics.RecordAuthRejection("forbidden")
			return rejectRequest(c, apperrors.CodeForbidden, "Forbidden: insufficient permissions")
		}
		return c.Next()
	}
}

// rejectRequest writes a standardized auth rejection
func rejectRequest(c *fiber.Ctx, code apperrors.ErrorCode, message string) error {
	return c.Status(apperrors.HTTPStatusMap[code]).JSON(fiber.Map{
		"error": fiber.Map{
			"code":     code,
			"message":  message,
			"trace_id": c.Get("X-Request-ID"),
		},
	})
}

// GetClaims extracts the attached identity claims from the request
func GetClaims(c *fiber.Ctx) *auth.Claims {
	if claims, ok := c.Locals(claimsLocalKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}

// GetUsername extracts the authenticated username from the request
func GetUsername(c *fiber.Ctx) string {
	if claims := GetClaims(c); claims != nil {
		return claims.Username
	}
	return ""
}
