package services

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/meryambn/ScaleUpMessaging/internal/models"
)

type stubMessageRepo struct {
	createResult  *models.Message
	createErr     error
	getResult     *models.Message
	getErr        error
	listResult    []models.Message
	listTotal     int
	listErr       error
	markChanged   bool
	markErr       error
	markCalls     int
	convAffected  int64
	convErr       error
	lastSender    models.Peer
	lastRecipient models.Peer
	lastContent   string
	lastLimit     int
	lastOffset    int
}

func (s *stubMessageRepo) Create(_ context.Context, sender, recipient models.Peer, content string) (*models.Message, error) {
	s.lastSender = sender
	s.lastRecipient = recipient
	s.lastContent = content
	return s.createResult, s.createErr
}

func (s *stubMessageRepo) GetByID(_ context.Context, _ int64) (*models.Message, error) {
	return s.getResult, s.getErr
}

func (s *stubMessageRepo) ListBetween(_ context.Context, _, _ models.Peer, limit, offset int) ([]models.Message, int, error) {
	s.lastLimit = limit
	s.lastOffset = offset
	return s.listResult, s.listTotal, s.listErr
}

func (s *stubMessageRepo) MarkRead(_ context.Context, _ int64, _ models.Peer) (bool, error) {
	s.markCalls++
	return s.markChanged, s.markErr
}

func (s *stubMessageRepo) MarkConversationRead(_ context.Context, _, _ models.Peer) (int64, error) {
	return s.convAffected, s.convErr
}

type stubSummaryRepo struct {
	result []models.ConversationSummary
	err    error
}

func (s *stubSummaryRepo) ListSummaries(_ context.Context, _ models.Peer) ([]models.ConversationSummary, error) {
	return s.result, s.err
}

type stubUserRepo struct {
	user *models.User
	err  error
}

func (s *stubUserRepo) GetByPeer(_ context.Context, _ models.Peer) (*models.User, error) {
	return s.user, s.err
}

type stubContactRepo struct {
	linked bool
	err    error
}

func (s *stubContactRepo) AreLinked(_ context.Context, _, _ models.Peer) (bool, error) {
	return s.linked, s.err
}

var (
	actorStartup = models.Peer{ID: 42, Role: models.RoleStartup}
	peerMentor   = models.Peer{ID: 7, Role: models.RoleMentor}
)

func newChatService(messages *stubMessageRepo, users *stubUserRepo, contacts *stubContactRepo) *ChatService {
	return NewChatService(messages, &stubSummaryRepo{}, users, contacts)
}

func TestListConversationsRejectsInvalidRole(t *testing.T) {
	service := newChatService(&stubMessageRepo{}, &stubUserRepo{}, &stubContactRepo{})

	_, err := service.ListConversations(context.Background(), models.Peer{ID: 42, Role: "ghost"})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestListMessagesValidatesInput(t *testing.T) {
	service := newChatService(&stubMessageRepo{}, &stubUserRepo{}, &stubContactRepo{})

	cases := []struct {
		name  string
		peer  models.Peer
		page  int
		limit int
		want  error
	}{
		{"invalid peer role", models.Peer{ID: 7, Role: "ghost"}, 1, 50, ErrForbidden},
		{"zero peer id", models.Peer{ID: 0, Role: models.RoleMentor}, 1, 50, ErrInvalidInput},
		{"zero page", peerMentor, 0, 50, ErrInvalidInput},
		{"zero limit", peerMentor, 1, 0, ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := service.ListMessages(context.Background(), actorStartup, tc.peer, tc.page, tc.limit)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestListMessagesComputesOffsetFromPage(t *testing.T) {
	messages := &stubMessageRepo{listTotal: 100}
	service := newChatService(messages, &stubUserRepo{}, &stubContactRepo{})

	_, total, err := service.ListMessages(context.Background(), actorStartup, peerMentor, 3, 20)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if total != 100 {
		t.Fatalf("expected total 100, got %d", total)
	}
	if messages.lastLimit != 20 || messages.lastOffset != 40 {
		t.Fatalf("unexpected paging: limit=%d offset=%d", messages.lastLimit, messages.lastOffset)
	}
}

func TestSendMessageRejectsBlankContent(t *testing.T) {
	service := newChatService(&stubMessageRepo{}, &stubUserRepo{}, &stubContactRepo{})

	_, err := service.SendMessage(context.Background(), actorStartup, peerMentor, "   \n\t ")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSendMessageRejectsSelfAsRecipient(t *testing.T) {
	service := newChatService(&stubMessageRepo{}, &stubUserRepo{}, &stubContactRepo{})

	_, err := service.SendMessage(context.Background(), actorStartup, actorStartup, "hello")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSendMessageUnknownRecipient(t *testing.T) {
	service := newChatService(&stubMessageRepo{}, &stubUserRepo{err: pgx.ErrNoRows}, &stubContactRepo{})

	_, err := service.SendMessage(context.Background(), actorStartup, peerMentor, "hello")
	if !errors.Is(err, ErrContactNotFound) {
		t.Fatalf("expected ErrContactNotFound, got %v", err)
	}
}

func TestSendMessageRequiresLinkedContacts(t *testing.T) {
	users := &stubUserRepo{user: &models.User{ID: 7, Role: models.RoleMentor}}
	service := newChatService(&stubMessageRepo{}, users, &stubContactRepo{linked: false})

	_, err := service.SendMessage(context.Background(), actorStartup, peerMentor, "hello")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestSendMessageTrimsContentAndReturnsDelivery(t *testing.T) {
	messages := &stubMessageRepo{
		createResult: &models.Message{ID: 11, Content: "hello"},
	}
	users := &stubUserRepo{user: &models.User{ID: 7, Role: models.RoleMentor}}
	service := newChatService(messages, users, &stubContactRepo{linked: true})

	delivery, err := service.SendMessage(context.Background(), actorStartup, peerMentor, "  hello  ")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if messages.lastContent != "hello" {
		t.Fatalf("expected trimmed content, got %q", messages.lastContent)
	}
	if messages.lastSender != actorStartup || messages.lastRecipient != peerMentor {
		t.Fatalf("unexpected pair: %+v -> %+v", messages.lastSender, messages.lastRecipient)
	}
	if delivery.Recipient != peerMentor || delivery.Message.ID != 11 {
		t.Fatalf("unexpected delivery: %+v", delivery)
	}
}

func TestMarkReadOnlyByRecipient(t *testing.T) {
	messages := &stubMessageRepo{
		getResult: &models.Message{
			ID:            5,
			SenderID:      actorStartup.ID,
			SenderRole:    actorStartup.Role,
			RecipientID:   peerMentor.ID,
			RecipientRole: peerMentor.Role,
		},
	}
	service := newChatService(messages, &stubUserRepo{}, &stubContactRepo{})

	// The sender cannot mark their own message read.
	_, _, err := service.MarkRead(context.Background(), actorStartup, 5)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestMarkReadAlreadyReadIsNoOp(t *testing.T) {
	messages := &stubMessageRepo{
		getResult: &models.Message{
			ID:            5,
			SenderID:      peerMentor.ID,
			SenderRole:    peerMentor.Role,
			RecipientID:   actorStartup.ID,
			RecipientRole: actorStartup.Role,
			IsRead:        true,
		},
	}
	service := newChatService(messages, &stubUserRepo{}, &stubContactRepo{})

	message, changed, err := service.MarkRead(context.Background(), actorStartup, 5)
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if changed {
		t.Fatalf("expected no change for already-read message")
	}
	if messages.markCalls != 0 {
		t.Fatalf("expected no repository write, got %d", messages.markCalls)
	}
	if !message.IsRead {
		t.Fatalf("expected message returned as read")
	}
}

func TestMarkReadFlipsUnreadMessage(t *testing.T) {
	messages := &stubMessageRepo{
		getResult: &models.Message{
			ID:            5,
			SenderID:      peerMentor.ID,
			SenderRole:    peerMentor.Role,
			RecipientID:   actorStartup.ID,
			RecipientRole: actorStartup.Role,
		},
		markChanged: true,
	}
	service := newChatService(messages, &stubUserRepo{}, &stubContactRepo{})

	message, changed, err := service.MarkRead(context.Background(), actorStartup, 5)
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if !changed {
		t.Fatalf("expected change flag for first read")
	}
	if !message.IsRead {
		t.Fatalf("expected message flipped to read")
	}
}

func TestMarkConversationReadValidatesPeer(t *testing.T) {
	service := newChatService(&stubMessageRepo{}, &stubUserRepo{}, &stubContactRepo{})

	if _, err := service.MarkConversationRead(context.Background(), actorStartup, models.Peer{ID: 0, Role: models.RoleMentor}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := service.MarkConversationRead(context.Background(), actorStartup, models.Peer{ID: 7, Role: "ghost"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
