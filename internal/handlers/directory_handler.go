package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/meryambn/ScaleUpMessaging/internal/models"
	"github.com/meryambn/ScaleUpMessaging/internal/services"
)

type directoryApplicationService interface {
	ListContacts(ctx context.Context, actorID int64, role models.Role) ([]models.Contact, error)
}

type DirectoryHandler struct {
	service directoryApplicationService
}

func NewDirectoryHandler(service directoryApplicationService) *DirectoryHandler {
	return &DirectoryHandler{service: service}
}

func (h *DirectoryHandler) ListContacts(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	contacts, err := h.service.ListContacts(c.Context(), actor.ID, actor.Role)
	if err != nil {
		if errors.Is(err, services.ErrForbidden) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load contacts"})
	}

	return c.JSON(fiber.Map{"contacts": contacts})
}
