package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sol1corejz/gobank/internal/logger"
	"github.com/sol1corejz/gobank/internal/middleware"
	"github.com/sol1corejz/gobank/internal/service"
	"go.uber.org/zap"
)

type SigninRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Signup(c *fiber.Ctx) error {
	var request service.SignupRequest
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, client, err := h.Users.Signup(ctx, request)
	if err != nil {
		return respondError(c, err)
	}

	logger.Log.Info("User registered", zap.String("userID", user.ID.String()))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
		"client":  client,
	})
}

func (h *Handler) Signin(c *fiber.Ctx) error {
	var request SigninRequest
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, "Invalid request body")
	}

	session, err := h.Users.Signin(ctx, request.Username, request.Password)
	if err != nil {
		return respondError(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     "jwt",
		Value:    session.Token,
		Expires:  time.Now().Add(h.Tokens.TokenExp()),
		HTTPOnly: true,
	})
	c.Set(fiber.HeaderAuthorization, "Bearer "+session.Token)

	return c.Status(fiber.StatusOK).JSON(session)
}

// Signout revokes the presented token and clears the cookie.
func (h *Handler) Signout(c *fiber.Ctx) error {
	token := middleware.Token(c)
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	h.Revoked.Revoke(token, time.Now().Add(h.Tokens.TokenExp()))

	c.Cookie(&fiber.Cookie{
		Name:     "jwt",
		Value:    "",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
	})

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Signed out",
	})
}
