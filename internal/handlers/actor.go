package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/meryambn/ScaleUpMessaging/internal/models"
)

// parseActor reads the authenticated (id, role) pair placed in Locals by
// the auth middleware.
func parseActor(c *fiber.Ctx) (models.Peer, error) {
	rawID, ok := c.Locals("user_id").(string)
	if !ok {
		return models.Peer{}, errors.New("missing user id")
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return models.Peer{}, errors.New("invalid user id")
	}

	role, ok := c.Locals("role").(string)
	if !ok || !models.Role(role).Valid() {
		return models.Peer{}, errors.New("invalid role")
	}

	return models.Peer{ID: id, Role: models.Role(role)}, nil
}
