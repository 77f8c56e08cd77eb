package handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sol1corejz/gobank/internal/apperr"
	"github.com/sol1corejz/gobank/internal/auth"
	"github.com/sol1corejz/gobank/internal/logger"
	"github.com/sol1corejz/gobank/internal/middleware"
	"github.com/sol1corejz/gobank/internal/reporting"
	"github.com/sol1corejz/gobank/internal/service"
	"github.com/sol1corejz/gobank/internal/tokenstorage"
	"go.uber.org/zap"
)

const requestTimeout = 10 * time.Second

type Handler struct {
	Accounts     *service.Accounts
	Applications *service.Applications
	Users        *service.Users
	Employees    *service.Employees
	Reports      *reporting.Reports
	Tokens       *auth.Manager
	Revoked      *tokenstorage.Store
}

func requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), requestTimeout)
}

// caller returns the identity set by middleware.Auth.
func caller(c *fiber.Ctx) auth.Identity {
	id, _ := middleware.IdentityFrom(c)
	return id
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.InvalidArgument("invalid %s", name)
	}
	return id, nil
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}

// respondError writes the status matching the error category. Uncategorized
// errors are logged and hidden behind a 500.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, apperr.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, apperr.ErrInvalidArgument), errors.Is(err, apperr.ErrInvalidState):
		status = fiber.StatusBadRequest
	case errors.Is(err, apperr.ErrConflict):
		status = fiber.StatusConflict
	case errors.Is(err, apperr.ErrUnauthenticated):
		status = fiber.StatusUnauthorized
	case errors.Is(err, context.DeadlineExceeded):
		logger.Log.Warn("Context canceled or timeout exceeded", zap.String("path", c.Path()))
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	}

	if status == fiber.StatusInternalServerError {
		logger.Log.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(status).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"error": apperr.Message(err),
	})
}

func Healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
