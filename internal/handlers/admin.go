package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sol1corejz/gobank/internal/logger"
	"github.com/sol1corejz/gobank/internal/models"
	"github.com/sol1corejz/gobank/internal/service"
	"github.com/sol1corejz/gobank/internal/storage"
	"go.uber.org/zap"
)

// --- accounts ---------------------------------------------------------------

func (h *Handler) AdminListAccounts(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	views, err := h.Reports.AdminAccounts(ctx, storage.AccountFilter{})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(views)
}

func (h *Handler) AdminAccountsByOwner(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return badRequest(c, "invalid userId")
	}

	accounts, err := h.Accounts.ListByOwner(ctx, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(accounts)
}

func (h *Handler) AdminBlockedAccounts(c *fiber.Ctx) error {
	return h.accountsByStatus(c, models.AccountBlocked)
}

func (h *Handler) AdminActiveAccounts(c *fiber.Ctx) error {
	return h.accountsByStatus(c, models.AccountActive)
}

func (h *Handler) accountsByStatus(c *fiber.Ctx, status models.AccountStatus) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	accounts, err := h.Accounts.ListByStatus(ctx, status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(accounts)
}

// AdminFilterAccounts lists accounts by ?type=, or all of them without one.
func (h *Handler) AdminFilterAccounts(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	var (
		accounts []models.Account
		err      error
	)
	if t := c.Query("type"); t != "" {
		accounts, err = h.Accounts.ListByType(ctx, models.AccountType(t))
	} else {
		accounts, err = h.Accounts.ListAll(ctx)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(accounts)
}

func (h *Handler) AdminAccountStats(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	stats, err := h.Accounts.Stats(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

func (h *Handler) AdminBlockAccount(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	account, err := h.Accounts.Block(ctx, id)
	if err != nil {
		return respondError(c, err)
	}

	logger.Log.Info("Account blocked", zap.Int64("accountID", id), zap.String("by", caller(c).UserID.String()))
	return c.JSON(account)
}

func (h *Handler) AdminUnblockAccount(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	account, err := h.Accounts.Unblock(ctx, id)
	if err != nil {
		return respondError(c, err)
	}

	logger.Log.Info("Account unblocked", zap.Int64("accountID", id), zap.String("by", caller(c).UserID.String()))
	return c.JSON(account)
}

// --- users ------------------------------------------------------------------

func (h *Handler) AdminListUsers(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := h.Users.ListUsers(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

func (h *Handler) AdminListClients(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	clients, err := h.Users.ListClients(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(clients)
}

func (h *Handler) AdminBlockClient(c *fiber.Ctx) error {
	return h.setClientBlocked(c, true)
}

func (h *Handler) AdminUnblockClient(c *fiber.Ctx) error {
	return h.setClientBlocked(c, false)
}

func (h *Handler) setClientBlocked(c *fiber.Ctx, blocked bool) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var client models.Client
	if blocked {
		client, err = h.Users.BlockClient(ctx, id)
	} else {
		client, err = h.Users.UnblockClient(ctx, id)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(client)
}

// --- employees --------------------------------------------------------------

func (h *Handler) AdminListEmployees(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	employees, err := h.Employees.List(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(employees)
}

func (h *Handler) AdminGetEmployee(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	employee, err := h.Employees.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(employee)
}

func (h *Handler) AdminCreateEmployee(c *fiber.Ctx) error {
	var request service.EmployeeRequest
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, "Invalid request body")
	}

	employee, err := h.Employees.Create(ctx, request)
	if err != nil {
		return respondError(c, err)
	}

	logger.Log.Info("Employee created", zap.Int64("employeeID", employee.ID))
	return c.Status(fiber.StatusCreated).JSON(employee)
}

func (h *Handler) AdminUpdateEmployee(c *fiber.Ctx) error {
	var request service.EmployeeUpdate
	ctx, cancel := requestContext(c)
	defer cancel()

	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, "Invalid request body")
	}

	employee, err := h.Employees.Update(ctx, id, request)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(employee)
}

func (h *Handler) AdminDeleteEmployee(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.Employees.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}

	logger.Log.Info("Employee deleted", zap.Int64("employeeID", id))
	return c.SendStatus(fiber.StatusNoContent)
}
