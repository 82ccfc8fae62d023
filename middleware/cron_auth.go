package middleware

import (
	"crypto/subtle"
	"strings"

	"dunly/config"

	"github.com/gofiber/fiber/v2"
)

// CronProtected guards the externally-triggered processing endpoint with a
// dedicated bearer secret, separate from user sessions. Cron-like callers
// hold only this secret and never a user token.
func CronProtected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret := config.AppConfig.CronSecret
		if secret == "" {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Processing endpoint is not configured",
			})
		}

		authHeader := c.Get("Authorization")
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization required",
			})
		}

		if subtle.ConstantTimeCompare([]byte(tokenParts[1]), []byte(secret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid processing secret",
			})
		}

		return c.Next()
	}
}
