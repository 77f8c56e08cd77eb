package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sol1corejz/gobank/cmd/config"
	"github.com/sol1corejz/gobank/internal/auth"
	"github.com/sol1corejz/gobank/internal/handlers"
	"github.com/sol1corejz/gobank/internal/logger"
	"github.com/sol1corejz/gobank/internal/metrics"
	"github.com/sol1corejz/gobank/internal/middleware"
	"github.com/sol1corejz/gobank/internal/reporting"
	"github.com/sol1corejz/gobank/internal/service"
	"github.com/sol1corejz/gobank/internal/storage"
	"github.com/sol1corejz/gobank/internal/storage/memory"
	"github.com/sol1corejz/gobank/internal/storage/postgres"
	"github.com/sol1corejz/gobank/internal/tokenstorage"
	"go.uber.org/zap"
)

func main() {
	config.ParseFlags()

	if err := logger.Initialize(config.LogLevel); err != nil {
		logger.Log.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer logger.Log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx)
	if err != nil {
		logger.Log.Error("Failed to init storage", zap.Error(err))
		return
	}
	defer store.Close()

	if err := run(ctx, store); err != nil {
		logger.Log.Fatal("Failed to run server", zap.Error(err))
	}
}

// openStore uses PostgreSQL when a database URI is configured and falls back
// to the in-memory store otherwise.
func openStore(ctx context.Context) (storage.Store, error) {
	if config.DatabaseURI == "" {
		logger.Log.Warn("DATABASE_URI is empty, using in-memory storage")
		return memory.New(), nil
	}

	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pg, err := postgres.Open(initCtx, config.DatabaseDriver, config.DatabaseURI)
	if err != nil {
		return nil, err
	}
	if err := pg.Init(initCtx); err != nil {
		_ = pg.Close()
		return nil, err
	}
	return pg, nil
}

func run(ctx context.Context, store storage.Store) error {
	if config.JWTSecret == "" {
		return errors.New("jwt secret is not configured")
	}
	tokens := auth.NewManager(config.JWTSecret, config.TokenTTL)

	h := &handlers.Handler{
		Accounts:     service.NewAccounts(store),
		Applications: service.NewApplications(store, service.CloseAccountOnApproval),
		Users:        service.NewUsers(store, tokens),
		Employees:    service.NewEmployees(store),
		Reports:      reporting.New(store),
		Tokens:       tokens,
		Revoked:      tokenstorage.New(),
	}

	if err := h.Users.EnsureAdmin(ctx, config.AdminUsername, config.AdminEmail, config.AdminPassword); err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		AppName: "gobank",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
	}))
	app.Use(middleware.RequestLogger)
	app.Use(metrics.Middleware)

	handlers.Routes(app, h)

	go func() {
		<-ctx.Done()
		logger.Log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shut down server", zap.Error(err))
		}
	}()

	logger.Log.Info("Running server", zap.String("address", config.RunAddress))
	return app.Listen(config.RunAddress)
}
