package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/memalihaider/ai-business-developer-sub004/config"
)

// CronAuth guards the scheduler trigger surface with the shared CRON_SECRET.
// The secret is accepted either as the X-Cron-Secret header or as a bearer
// token. An empty configured secret disables the check (local development).
func CronAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret := config.AppConfig.CronSecret
		if secret == "" {
			return c.Next()
		}

		provided := c.Get("X-Cron-Secret")
		if provided == "" {
			auth := c.Get("Authorization")
			provided = strings.TrimPrefix(auth, "Bearer ")
		}

		if provided != secret {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or missing scheduler credentials",
			})
		}

		return c.Next()
	}
}
