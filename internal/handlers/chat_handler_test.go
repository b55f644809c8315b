package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/meryambn/ScaleUpMessaging/internal/models"
	"github.com/meryambn/ScaleUpMessaging/internal/services"
	chatws "github.com/meryambn/ScaleUpMessaging/internal/websocket"
)

type stubChatService struct {
	conversationsResult []models.ConversationSummary
	conversationsErr    error
	messagesResult      []models.Message
	messagesTotal       int
	messagesErr         error
	sendResult          *services.ChatDelivery
	sendErr             error
	markResult          *models.Message
	markChanged         bool
	markErr             error
	conversationRead    int64
	conversationReadErr error
	lastActor           models.Peer
	lastPeer            models.Peer
	lastContent         string
	lastMessageID       int64
	lastPage            int
	lastLimit           int
}

func (s *stubChatService) ListConversations(_ context.Context, actor models.Peer) ([]models.ConversationSummary, error) {
	s.lastActor = actor
	return s.conversationsResult, s.conversationsErr
}

func (s *stubChatService) ListMessages(_ context.Context, actor, peer models.Peer, page, limit int) ([]models.Message, int, error) {
	s.lastActor = actor
	s.lastPeer = peer
	s.lastPage = page
	s.lastLimit = limit
	return s.messagesResult, s.messagesTotal, s.messagesErr
}

func (s *stubChatService) SendMessage(_ context.Context, actor, recipient models.Peer, content string) (*services.ChatDelivery, error) {
	s.lastActor = actor
	s.lastPeer = recipient
	s.lastContent = content
	return s.sendResult, s.sendErr
}

func (s *stubChatService) MarkRead(_ context.Context, actor models.Peer, messageID int64) (*models.Message, bool, error) {
	s.lastActor = actor
	s.lastMessageID = messageID
	return s.markResult, s.markChanged, s.markErr
}

func (s *stubChatService) MarkConversationRead(_ context.Context, actor, peer models.Peer) (int64, error) {
	s.lastActor = actor
	s.lastPeer = peer
	return s.conversationRead, s.conversationReadErr
}

func authedApp(userID, role string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		c.Locals("role", role)
		return c.Next()
	})
	return app
}

func TestListConversationsReturnsSummaries(t *testing.T) {
	service := &stubChatService{
		conversationsResult: []models.ConversationSummary{
			{
				Contact: models.Contact{ID: 7, Role: models.RoleMentor, Name: "Amel"},
				LastMessage: &models.Message{
					ID:        3,
					SenderID:  7,
					Content:   "See you tomorrow",
					CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
				},
				UnreadCount: 2,
			},
		},
	}
	handler := NewChatHandler(service, chatws.NewHub(nil, 0), "secret")

	app := authedApp("42", "startup")
	app.Get("/api/v1/conversations", handler.ListConversations)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastActor.ID != 42 || service.lastActor.Role != models.RoleStartup {
		t.Fatalf("unexpected actor: %+v", service.lastActor)
	}

	var body struct {
		Conversations []models.ConversationSummary `json:"conversations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(body.Conversations) != 1 || body.Conversations[0].UnreadCount != 2 {
		t.Fatalf("unexpected response: %+v", body.Conversations)
	}
}

func TestListConversationsWithoutAuthContextReturnsUnauthorized(t *testing.T) {
	handler := NewChatHandler(&stubChatService{}, chatws.NewHub(nil, 0), "secret")

	app := fiber.New()
	app.Get("/api/v1/conversations", handler.ListConversations)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestGetMessagesValidatesContactParams(t *testing.T) {
	handler := NewChatHandler(&stubChatService{}, chatws.NewHub(nil, 0), "secret")

	app := authedApp("42", "startup")
	app.Get("/api/v1/messages", handler.GetMessages)

	cases := []struct {
		name  string
		query string
	}{
		{"missing contact id", "role=mentor"},
		{"non-numeric contact id", "contactId=abc&role=mentor"},
		{"invalid role", "contactId=7&role=ghost"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/messages?"+tc.query, nil))
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestGetMessagesReturnsPageWithPagination(t *testing.T) {
	service := &stubChatService{
		messagesResult: []models.Message{
			{ID: 1, SenderID: 7, SenderRole: models.RoleMentor, RecipientID: 42, RecipientRole: models.RoleStartup, Content: "hello"},
		},
		messagesTotal: 120,
	}
	handler := NewChatHandler(service, chatws.NewHub(nil, 0), "secret")

	app := authedApp("42", "startup")
	app.Get("/api/v1/messages", handler.GetMessages)

	target := "/api/v1/messages?contactId=7&role=mentor&page=2&limit=50"
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastPeer != (models.Peer{ID: 7, Role: models.RoleMentor}) {
		t.Fatalf("unexpected peer: %+v", service.lastPeer)
	}
	if service.lastPage != 2 || service.lastLimit != 50 {
		t.Fatalf("unexpected paging: page=%d limit=%d", service.lastPage, service.lastLimit)
	}

	var body struct {
		Messages   []models.Message      `json:"messages"`
		Pagination models.PaginationMeta `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(body.Messages) != 1 {
		t.Fatalf("expected one message, got %d", len(body.Messages))
	}
	if body.Pagination.Total != 120 || body.Pagination.TotalPages != 3 {
		t.Fatalf("unexpected pagination: %+v", body.Pagination)
	}
}

func TestGetMessagesClampsLimit(t *testing.T) {
	service := &stubChatService{}
	handler := NewChatHandler(service, chatws.NewHub(nil, 0), "secret")

	app := authedApp("42", "startup")
	app.Get("/api/v1/messages", handler.GetMessages)

	target := "/api/v1/messages?contactId=7&role=mentor&limit=10000"
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if service.lastLimit != maxPageLimit {
		t.Fatalf("expected limit clamped to %d, got %d", maxPageLimit, service.lastLimit)
	}
}

func TestSendMessageReturnsCreatedMessage(t *testing.T) {
	created := &models.Message{
		ID:            11,
		SenderID:      42,
		SenderRole:    models.RoleStartup,
		RecipientID:   7,
		RecipientRole: models.RoleMentor,
		Content:       "hello there",
	}
	service := &stubChatService{
		sendResult: &services.ChatDelivery{
			Message:   created,
			Recipient: models.Peer{ID: 7, Role: models.RoleMentor},
		},
	}
	handler := NewChatHandler(service, chatws.NewHub(nil, 0), "secret")

	app := authedApp("42", "startup")
	app.Post("/api/v1/messages", handler.SendMessage)

	payload := `{"recipient_id":7,"recipient_role":"mentor","content":"hello there"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastPeer != (models.Peer{ID: 7, Role: models.RoleMentor}) || service.lastContent != "hello there" {
		t.Fatalf("unexpected call: peer=%+v content=%q", service.lastPeer, service.lastContent)
	}

	var body struct {
		Message *models.Message `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.Message == nil || body.Message.ID != 11 {
		t.Fatalf("unexpected response: %+v", body.Message)
	}
}

func TestSendMessageMapsServiceErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"forbidden", services.ErrForbidden, http.StatusForbidden},
		{"invalid input", services.ErrInvalidInput, http.StatusBadRequest},
		{"unknown contact", services.ErrContactNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewChatHandler(&stubChatService{sendErr: tc.err}, chatws.NewHub(nil, 0), "secret")

			app := authedApp("42", "startup")
			app.Post("/api/v1/messages", handler.SendMessage)

			payload := `{"recipient_id":7,"recipient_role":"mentor","content":"hi"}`
			req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
		})
	}
}

func TestMarkMessageReadReturnsMessage(t *testing.T) {
	service := &stubChatService{
		markResult: &models.Message{
			ID:            5,
			SenderID:      7,
			SenderRole:    models.RoleMentor,
			RecipientID:   42,
			RecipientRole: models.RoleStartup,
			IsRead:        true,
		},
		markChanged: true,
	}
	handler := NewChatHandler(service, chatws.NewHub(nil, 0), "secret")

	app := authedApp("42", "startup")
	app.Put("/api/v1/messages/:id/read", handler.MarkMessageRead)

	resp, err := app.Test(httptest.NewRequest(http.MethodPut, "/api/v1/messages/5/read", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastMessageID != 5 {
		t.Fatalf("unexpected message id: %d", service.lastMessageID)
	}

	var body struct {
		Message *models.Message `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.Message == nil || !body.Message.IsRead {
		t.Fatalf("unexpected response: %+v", body.Message)
	}
}

func TestMarkMessageReadRejectsBadID(t *testing.T) {
	handler := NewChatHandler(&stubChatService{}, chatws.NewHub(nil, 0), "secret")

	app := authedApp("42", "startup")
	app.Put("/api/v1/messages/:id/read", handler.MarkMessageRead)

	resp, err := app.Test(httptest.NewRequest(http.MethodPut, "/api/v1/messages/abc/read", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestMarkConversationReadReturnsAffectedCount(t *testing.T) {
	service := &stubChatService{conversationRead: 6}
	handler := NewChatHandler(service, chatws.NewHub(nil, 0), "secret")

	app := authedApp("42", "startup")
	app.Put("/api/v1/conversations/read", handler.MarkConversationRead)

	payload := `{"contact_id":7,"contact_role":"mentor"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/conversations/read", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastPeer != (models.Peer{ID: 7, Role: models.RoleMentor}) {
		t.Fatalf("unexpected peer: %+v", service.lastPeer)
	}

	var body struct {
		Updated int64 `json:"updated"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.Updated != 6 {
		t.Fatalf("expected 6 updated, got %d", body.Updated)
	}
}
