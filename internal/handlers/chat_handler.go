package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/meryambn/ScaleUpMessaging/internal/models"
	"github.com/meryambn/ScaleUpMessaging/internal/services"
	chatws "github.com/meryambn/ScaleUpMessaging/internal/websocket"
	"github.com/meryambn/ScaleUpMessaging/pkg/utils"
)

type chatApplicationService interface {
	ListConversations(ctx context.Context, actor models.Peer) ([]models.ConversationSummary, error)
	ListMessages(ctx context.Context, actor, peer models.Peer, page, limit int) ([]models.Message, int, error)
	SendMessage(ctx context.Context, actor, recipient models.Peer, content string) (*services.ChatDelivery, error)
	MarkRead(ctx context.Context, actor models.Peer, messageID int64) (*models.Message, bool, error)
	MarkConversationRead(ctx context.Context, actor, peer models.Peer) (int64, error)
}

type ChatHandler struct {
	service   chatApplicationService
	hub       *chatws.Hub
	jwtSecret string
}

type sendMessageRequest struct {
	RecipientID   int64       `json:"recipient_id"`
	RecipientRole models.Role `json:"recipient_role"`
	Content       string      `json:"content"`
}

type markConversationReadRequest struct {
	ContactID   int64       `json:"contact_id"`
	ContactRole models.Role `json:"contact_role"`
}

func NewChatHandler(service chatApplicationService, hub *chatws.Hub, jwtSecret string) *ChatHandler {
	return &ChatHandler{
		service:   service,
		hub:       hub,
		jwtSecret: jwtSecret,
	}
}

func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversations, err := h.service.ListConversations(c.Context(), actor)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"conversations": conversations})
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	contactID, err := strconv.ParseInt(c.Query("contactId"), 10, 64)
	if err != nil || contactID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid contact id"})
	}
	contactRole := models.Role(c.Query("role"))
	if !contactRole.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid contact role"})
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	peer := models.Peer{ID: contactID, Role: contactRole}
	messages, total, err := h.service.ListMessages(c.Context(), actor, peer, page, limit)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{
		"messages":   messages,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	recipient := models.Peer{ID: req.RecipientID, Role: req.RecipientRole}
	delivery, err := h.service.SendMessage(c.Context(), actor, recipient, req.Content)
	if err != nil {
		return mapChatError(c, err)
	}

	h.hub.Push(delivery.Recipient, models.EventNewMessage, delivery.Message)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": delivery.Message})
}

func (h *ChatHandler) MarkMessageRead(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	messageID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || messageID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid message id"})
	}

	message, changed, err := h.service.MarkRead(c.Context(), actor, messageID)
	if err != nil {
		return mapChatError(c, err)
	}

	if changed {
		h.hub.Push(message.Sender(), models.EventMessageRead, models.ReadPayload{
			MessageID:  message.ID,
			ReaderID:   actor.ID,
			ReaderRole: actor.Role,
		})
	}

	return c.JSON(fiber.Map{"message": message})
}

func (h *ChatHandler) MarkConversationRead(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req markConversationReadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	peer := models.Peer{ID: req.ContactID, Role: req.ContactRole}
	affected, err := h.service.MarkConversationRead(c.Context(), actor, peer)
	if err != nil {
		return mapChatError(c, err)
	}

	if affected > 0 {
		h.hub.Push(peer, models.EventConversationRead, models.ConversationReadPayload{
			ReaderID:   actor.ID,
			ReaderRole: actor.Role,
		})
	}

	return c.JSON(fiber.Map{"updated": affected})
}

func (h *ChatHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("role", claims.Role)
	return c.Next()
}

func (h *ChatHandler) HandleWebSocket(conn *websocket.Conn) {
	rawID, _ := conn.Locals("user_id").(string)
	role, _ := conn.Locals("role").(string)

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || !models.Role(role).Valid() {
		_ = conn.Close()
		return
	}

	client := chatws.NewClient(h.hub, conn, models.Peer{ID: id, Role: models.Role(role)})
	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump()
}

func (h *ChatHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		authHeader := strings.TrimSpace(c.Get("Authorization"))
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}

func mapChatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrContactNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Contact not found"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Message not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process chat request"})
	}
}
