package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sol1corejz/gobank/internal/logger"
	"go.uber.org/zap"
)

func RequestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	logger.Log.Info("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("latency", time.Since(start)),
	)
	return err
}
