package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/meryambn/ScaleUpMessaging/internal/models"
	"github.com/meryambn/ScaleUpMessaging/pkg/utils"
)

// AuthRequired validates the bearer token and the messaging identity it
// carries. Identity here is always the (id, role) pair; a token with a
// non-numeric id or a role outside the platform's set is rejected at the
// boundary so handlers never see a malformed actor.
func AuthRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c.Get("Authorization"))
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing bearer token",
			})
		}

		claims, err := utils.ValidateToken(tokenString, secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		id, err := strconv.ParseInt(claims.UserID, 10, 64)
		if err != nil || id <= 0 || !models.Role(claims.Role).Valid() {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token claims",
			})
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("role", claims.Role)

		return c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}
