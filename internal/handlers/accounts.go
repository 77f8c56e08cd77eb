package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sol1corejz/gobank/internal/logger"
	"github.com/sol1corejz/gobank/internal/models"
	"github.com/sol1corejz/gobank/internal/service"
	"github.com/sol1corejz/gobank/internal/storage"
	"go.uber.org/zap"
)

type CreateAccountRequest struct {
	Type models.AccountType `json:"type"`
}

type TransferRequest struct {
	FromAccountID int64            `json:"fromAccountId"`
	ToAccountID   int64            `json:"toAccountId"`
	Amount        *decimal.Decimal `json:"amount"`
}

type ExternalTransferRequest struct {
	FromAccountID   int64            `json:"fromAccountId"`
	ToAccountNumber string           `json:"toAccountNumber"`
	Amount          *decimal.Decimal `json:"amount"`
}

func (h *Handler) ListAccounts(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	accounts, err := h.Accounts.ListOwn(ctx, caller(c).UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(accounts)
}

func (h *Handler) CreateAccount(c *fiber.Ctx) error {
	var request CreateAccountRequest
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, "Invalid request body")
	}

	account, err := h.Accounts.Create(ctx, caller(c).UserID, request.Type)
	if err != nil {
		return respondError(c, err)
	}

	logger.Log.Info("Account opened", zap.Int64("accountID", account.ID), zap.String("number", account.AccountNumber))
	return c.Status(fiber.StatusCreated).JSON(account)
}

func (h *Handler) GetAccount(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	account, err := h.Accounts.Get(ctx, caller(c).UserID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(account)
}

func (h *Handler) UpdateAccount(c *fiber.Ctx) error {
	var request service.AccountUpdate
	ctx, cancel := requestContext(c)
	defer cancel()

	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, "Invalid request body")
	}

	account, err := h.Accounts.Update(ctx, caller(c).UserID, id, request)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(account)
}

func (h *Handler) CloseAccount(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.Accounts.Close(ctx, caller(c).UserID, id); err != nil {
		return respondError(c, err)
	}

	logger.Log.Info("Account closed", zap.Int64("accountID", id))
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) Transfer(c *fiber.Ctx) error {
	var request TransferRequest
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if request.Amount == nil {
		return badRequest(c, "amount is required")
	}

	tx, err := h.Accounts.TransferInternal(ctx, caller(c).UserID, request.FromAccountID, request.ToAccountID, *request.Amount)
	if err != nil {
		return respondError(c, err)
	}

	logger.Log.Info("Internal transfer completed",
		zap.Int64("from", request.FromAccountID),
		zap.Int64("to", request.ToAccountID),
		zap.String("amount", request.Amount.String()))
	return c.JSON(tx)
}

func (h *Handler) ExternalTransfer(c *fiber.Ctx) error {
	var request ExternalTransferRequest
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if request.Amount == nil {
		return badRequest(c, "amount is required")
	}

	tx, err := h.Accounts.TransferExternal(ctx, caller(c).UserID, request.FromAccountID, request.ToAccountNumber, *request.Amount)
	if err != nil {
		return respondError(c, err)
	}

	logger.Log.Info("External transfer completed",
		zap.Int64("from", request.FromAccountID),
		zap.String("to", request.ToAccountNumber),
		zap.String("amount", request.Amount.String()))
	return c.JSON(tx)
}

func (h *Handler) ListTransactions(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	txs, err := h.Accounts.ListTransactions(ctx, caller(c).UserID, id, storage.TimeRange{})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(txs)
}

// FilterTransactions narrows the history to [startDate, endDate].
func (h *Handler) FilterTransactions(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	r, err := h.Accounts.ParseTimeRange(c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		return respondError(c, err)
	}

	txs, err := h.Accounts.ListTransactions(ctx, caller(c).UserID, id, r)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(txs)
}
