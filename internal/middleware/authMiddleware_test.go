package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sol1corejz/gobank/internal/auth"
	"github.com/sol1corejz/gobank/internal/models"
	"github.com/sol1corejz/gobank/internal/tokenstorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(tokens *auth.Manager, revoked *tokenstorage.Store) *fiber.App {
	app := fiber.New()
	app.Get("/me", Auth(tokens, revoked), func(c *fiber.Ctx) error {
		id, _ := IdentityFrom(c)
		return c.SendString(id.UserID.String())
	})
	app.Get("/admin", Auth(tokens, revoked), RequireRole(models.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func status(t *testing.T, app *fiber.App, req *http.Request) int {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestAuthAcceptsCookieAndBearer(t *testing.T) {
	tokens := auth.NewManager("mw-secret", time.Hour)
	app := newApp(tokens, tokenstorage.New())
	token, err := tokens.GenerateToken(auth.Identity{UserID: uuid.New(), Role: models.RoleUser})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: token})
	assert.Equal(t, http.StatusOK, status(t, app, req))

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, status(t, app, req))

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status(t, app, req))
}

func TestAuthRejectsRevokedToken(t *testing.T) {
	tokens := auth.NewManager("mw-secret", time.Hour)
	revoked := tokenstorage.New()
	app := newApp(tokens, revoked)
	token, err := tokens.GenerateToken(auth.Identity{UserID: uuid.New(), Role: models.RoleUser})
	require.NoError(t, err)

	revoked.Revoke(token, time.Now().Add(time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, status(t, app, req))
}

func TestRequireRole(t *testing.T) {
	tokens := auth.NewManager("mw-secret", time.Hour)
	app := newApp(tokens, nil)

	user, err := tokens.GenerateToken(auth.Identity{UserID: uuid.New(), Role: models.RoleUser})
	require.NoError(t, err)
	admin, err := tokens.GenerateToken(auth.Identity{UserID: uuid.New(), Role: models.RoleAdmin})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+user)
	assert.Equal(t, http.StatusForbidden, status(t, app, req))

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	assert.Equal(t, http.StatusOK, status(t, app, req))
}

func TestTokenOutlivesRequest(t *testing.T) {
	var seen []string
	app := fiber.New()
	app.Get("/token", func(c *fiber.Ctx) error {
		seen = append(seen, Token(c))
		return c.SendStatus(fiber.StatusOK)
	})

	first := strings.Repeat("a", 64)
	second := strings.Repeat("b", 64)

	req := httptest.NewRequest(http.MethodGet, "/token", nil)
	req.Header.Set("Authorization", "Bearer "+first)
	require.Equal(t, http.StatusOK, status(t, app, req))

	req = httptest.NewRequest(http.MethodGet, "/token", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: second})
	require.Equal(t, http.StatusOK, status(t, app, req))

	assert.Equal(t, []string{first, second}, seen)
}
