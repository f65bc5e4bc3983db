package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketloom/user-api/internal/auth"
)

func newTestApp(t *testing.T) (*fiber.App, *auth.TokenService) {
	t.Helper()

	tokens, err := auth.NewTokenService("test-secret", time.Minute)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	am := NewAuthMiddleware(tokens, logger)

	app := fiber.New()
	app.Get("/protected", am.Authenticate(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"username": GetUsername(c)})
	})
	app.Get("/admin", am.Authenticate(), am.RequireRole("admin"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	return app, tokens
}

func requestWithToken(target, token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: token})
	}
	return req
}

func TestAuthenticate_MissingToken(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(requestWithToken("/protected", ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(requestWithToken("/protected", "not-a-jwt"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAuthenticate_WrongKeyToken(t *testing.T) {
	app, _ := newTestApp(t)

	other, err := auth.NewTokenService("a-different-secret", time.Minute)
	require.NoError(t, err)
	token, err := other.Issue("mallory", "m@x.com", []string{"admin"})
	require.NoError(t, err)

	resp, err := app.Test(requestWithToken("/protected", token))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAuthenticate_ValidToken(t *testing.T) {
	app, tokens := newTestApp(t)

	token, err := tokens.Issue("alice", "a@x.com", []string{"guest"})
	require.NoError(t, err)

	resp, err := app.Test(requestWithToken("/protected", token))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"username":"alice"`)
}

func TestRequireRole_Forbidden(t *testing.T) {
	app, tokens := newTestApp(t)

	token, err := tokens.Issue("alice", "a@x.com", []string{"guest"})
	require.NoError(t, err)

	resp, err := app.Test(requestWithToken("/admin", token))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRequireRole_Admitted(t *testing.T) {
	app, tokens := newTestApp(t)

	token, err := tokens.Issue("root", "root@x.com", []string{"guest", "admin"})
	require.NoError(t, err)

	resp, err := app.Test(requestWithToken("/admin", token))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetClaims_Unset(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		assert.Nil(t, GetClaims(c))
		assert.Empty(t, GetUsername(c))
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
