package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sol1corejz/gobank/internal/metrics"
	"github.com/sol1corejz/gobank/internal/middleware"
	"github.com/sol1corejz/gobank/internal/models"
)

// Routes mounts every endpoint on app.
func Routes(app *fiber.App, h *Handler) {
	app.Get("/healthz", Healthz)
	app.Get("/metrics", metrics.Handler())

	authRoutes := app.Group("/auth")
	authRoutes.Post("/signup", h.Signup)
	authRoutes.Post("/signin", h.Signin)
	authRoutes.Post("/signout", h.Signout)

	authenticated := middleware.Auth(h.Tokens, h.Revoked)

	accounts := app.Group("/api/accounts", authenticated, middleware.RequireRole(models.RoleUser))
	accounts.Get("/", h.ListAccounts)
	accounts.Post("/", h.CreateAccount)
	accounts.Post("/transfer", h.Transfer)
	accounts.Post("/external-transfer", h.ExternalTransfer)
	accounts.Get("/:id/transactions", h.ListTransactions)
	accounts.Get("/:id/transactions/filter", h.FilterTransactions)
	accounts.Get("/:id", h.GetAccount)
	accounts.Put("/:id", h.UpdateAccount)
	accounts.Delete("/:id", h.CloseAccount)

	applications := app.Group("/api/applications", authenticated, middleware.RequireRole(models.RoleUser))
	applications.Post("/card", h.SubmitCardApplication)
	applications.Post("/close", h.SubmitCloseApplication)
	applications.Get("/", h.ListOwnApplications)
	applications.Get("/:id", h.GetOwnApplication)

	employee := app.Group("/api/employee/applications", authenticated, middleware.RequireRole(models.RoleEmployee))
	employee.Get("/", h.ListApplications)
	employee.Get("/stats", h.ApplicationStats)
	employee.Get("/:id", h.GetApplication)
	employee.Put("/:id/status", h.UpdateApplicationStatus)

	admin := app.Group("/secured/admin", authenticated, middleware.RequireRole(models.RoleAdmin))

	adminAccounts := admin.Group("/accounts")
	adminAccounts.Get("/", h.AdminListAccounts)
	adminAccounts.Get("/user/:userId", h.AdminAccountsByOwner)
	adminAccounts.Get("/blocked", h.AdminBlockedAccounts)
	adminAccounts.Get("/active", h.AdminActiveAccounts)
	adminAccounts.Get("/filter", h.AdminFilterAccounts)
	adminAccounts.Get("/static", h.AdminAccountStats)
	adminAccounts.Post("/:id/block", h.AdminBlockAccount)
	adminAccounts.Post("/:id/unblock", h.AdminUnblockAccount)

	adminUsers := admin.Group("/users")
	adminUsers.Get("/", h.AdminListUsers)
	adminUsers.Get("/clients", h.AdminListClients)
	adminUsers.Post("/clients/:id/block", h.AdminBlockClient)
	adminUsers.Post("/clients/:id/unblock", h.AdminUnblockClient)

	adminEmployees := admin.Group("/employees")
	adminEmployees.Get("/", h.AdminListEmployees)
	adminEmployees.Post("/", h.AdminCreateEmployee)
	adminEmployees.Get("/:id", h.AdminGetEmployee)
	adminEmployees.Put("/:id", h.AdminUpdateEmployee)
	adminEmployees.Delete("/:id", h.AdminDeleteEmployee)
}
