package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sol1corejz/gobank/internal/models"
	"github.com/sol1corejz/gobank/internal/reporting"
)

type SubmitApplicationRequest struct {
	AccountID int64   `json:"accountId"`
	Comment   *string `json:"comment"`
}

type UpdateStatusRequest struct {
	Status  models.ApplicationStatus `json:"status"`
	Comment *string                  `json:"comment"`
}

func (h *Handler) SubmitCardApplication(c *fiber.Ctx) error {
	var request SubmitApplicationRequest
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, "Invalid request body")
	}

	app, err := h.Applications.SubmitCard(ctx, caller(c).UserID, request.AccountID, request.Comment)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(app)
}

func (h *Handler) SubmitCloseApplication(c *fiber.Ctx) error {
	var request SubmitApplicationRequest
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, "Invalid request body")
	}

	app, err := h.Applications.SubmitClose(ctx, caller(c).UserID, request.AccountID, request.Comment)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(app)
}

func (h *Handler) ListOwnApplications(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	apps, err := h.Applications.ListOwn(ctx, caller(c).UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(apps)
}

func (h *Handler) GetOwnApplication(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	app, err := h.Applications.GetOwn(ctx, caller(c).UserID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(app)
}

// --- employee review --------------------------------------------------------

func (h *Handler) ListApplications(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	infos, err := h.Reports.Applications(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(infos)
}

func (h *Handler) ApplicationStats(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	var status *models.ApplicationStatus
	if raw := c.Query("status"); raw != "" {
		s := models.ApplicationStatus(raw)
		status = &s
	}
	page := reporting.Page{
		Number: c.QueryInt("page", 0),
		Size:   c.QueryInt("size", reporting.DefaultPageSize),
	}

	stats, err := h.Reports.ApplicationStats(ctx, status, page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

func (h *Handler) GetApplication(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	info, err := h.Reports.Application(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(info)
}

func (h *Handler) UpdateApplicationStatus(c *fiber.Ctx) error {
	var request UpdateStatusRequest
	ctx, cancel := requestContext(c)
	defer cancel()

	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, "Invalid request body")
	}

	app, err := h.Applications.UpdateStatus(ctx, id, request.Status, request.Comment)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(app)
}
