package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sol1corejz/gobank/internal/apperr"
	"github.com/sol1corejz/gobank/internal/auth"
	"github.com/sol1corejz/gobank/internal/models"
	"github.com/sol1corejz/gobank/internal/tokenstorage"
)

const (
	identityKey = "identity"
	tokenKey    = "token"
)

// TokenParser resolves a raw token to the caller identity.
type TokenParser interface {
	Parse(token string) (auth.Identity, error)
}

// Auth reads the token from the "jwt" cookie or the Authorization header and
// stores the resolved identity in the request locals.
func Auth(tokens TokenParser, revoked *tokenstorage.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := Token(c)
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		if revoked != nil && revoked.IsRevoked(tokenString) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Token revoked",
			})
		}

		id, err := tokens.Parse(tokenString)
		if err != nil {
			msg := apperr.Message(err)
			if msg == "" {
				msg = "Invalid or expired token"
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": msg,
			})
		}

		c.Locals(identityKey, id)
		c.Locals(tokenKey, tokenString)
		return c.Next()
	}
}

// RequireRole lets the request through only for the listed roles.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := IdentityFrom(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		for _, r := range roles {
			if id.Role == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Access denied",
		})
	}
}

func IdentityFrom(c *fiber.Ctx) (auth.Identity, bool) {
	id, ok := c.Locals(identityKey).(auth.Identity)
	return id, ok
}

// Token returns the raw token of the request, preferring the cookie. The
// result is a copy and stays valid after the request ends.
func Token(c *fiber.Ctx) string {
	if token := c.Cookies("jwt"); token != "" {
		return utils.CopyString(token)
	}
	header := c.Get(fiber.HeaderAuthorization)
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return utils.CopyString(strings.TrimSpace(token))
	}
	return ""
}
