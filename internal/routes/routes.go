package routes

import (
	"log/slog"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meryambn/ScaleUpMessaging/internal/config"
	"github.com/meryambn/ScaleUpMessaging/internal/handlers"
	"github.com/meryambn/ScaleUpMessaging/internal/middleware"
	"github.com/meryambn/ScaleUpMessaging/internal/repository"
	"github.com/meryambn/ScaleUpMessaging/internal/services"
	chatws "github.com/meryambn/ScaleUpMessaging/internal/websocket"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool, logger *slog.Logger) error {
	userRepo := repository.NewUserRepository(db)
	contactRepo := repository.NewContactRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	chatHub := chatws.NewHub(logger, cfg.WriteTimeout)
	go chatHub.Run()

	directoryService := services.NewDirectoryService(contactRepo)
	chatService := services.NewChatService(messageRepo, conversationRepo, userRepo, contactRepo)

	directoryHandler := handlers.NewDirectoryHandler(directoryService)
	chatHandler := handlers.NewChatHandler(chatService, chatHub, cfg.JWTSecret)

	api := app.Group("/api")
	v1 := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	v1.Get("/realtime/config", realtimeConfigHandler(cfg))
	v1.Get("/contacts", directoryHandler.ListContacts)
	v1.Get("/conversations", chatHandler.ListConversations)
	v1.Put("/conversations/read", chatHandler.MarkConversationRead)
	v1.Get("/messages", chatHandler.GetMessages)
	v1.Post("/messages", chatHandler.SendMessage)
	v1.Put("/messages/:id/read", chatHandler.MarkMessageRead)

	api.Use("/v1/ws", chatHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(chatHandler.HandleWebSocket))

	return registerDocsRoutes(app, cfg)
}

// realtimeConfigHandler advertises the server-side freshness settings so
// every client shell polls and expires typing indicators on the same
// schedule the deployment was tuned for.
func realtimeConfigHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"poll_interval_seconds": int(cfg.PollInterval.Seconds()),
			"typing_expiry_seconds": int(cfg.TypingExpiry.Seconds()),
		})
	}
}
