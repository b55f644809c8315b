package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/meryambn/ScaleUpMessaging/internal/models"
)

type messageStore interface {
	Create(ctx context.Context, sender, recipient models.Peer, content string) (*models.Message, error)
	GetByID(ctx context.Context, messageID int64) (*models.Message, error)
	ListBetween(ctx context.Context, actor, peer models.Peer, limit, offset int) ([]models.Message, int, error)
	MarkRead(ctx context.Context, messageID int64, reader models.Peer) (bool, error)
	MarkConversationRead(ctx context.Context, reader, peer models.Peer) (int64, error)
}

type summaryLister interface {
	ListSummaries(ctx context.Context, actor models.Peer) ([]models.ConversationSummary, error)
}

type userReader interface {
	GetByPeer(ctx context.Context, peer models.Peer) (*models.User, error)
}

type contactLinker interface {
	AreLinked(ctx context.Context, actor, peer models.Peer) (bool, error)
}

type ChatService struct {
	messageRepo      messageStore
	conversationRepo summaryLister
	userRepo         userReader
	contactRepo      contactLinker
}

// ChatDelivery carries a stored message plus the peer it should be pushed
// to over the realtime channel.
type ChatDelivery struct {
	Message   *models.Message
	Recipient models.Peer
}

func NewChatService(
	messageRepo messageStore,
	conversationRepo summaryLister,
	userRepo userReader,
	contactRepo contactLinker,
) *ChatService {
	return &ChatService{
		messageRepo:      messageRepo,
		conversationRepo: conversationRepo,
		userRepo:         userRepo,
		contactRepo:      contactRepo,
	}
}

func (s *ChatService) ListConversations(
	ctx context.Context,
	actor models.Peer,
) ([]models.ConversationSummary, error) {
	if !actor.Role.Valid() {
		return nil, ErrForbidden
	}

	return s.conversationRepo.ListSummaries(ctx, actor)
}

// ListMessages returns one page of history between actor and peer. Unlike
// a read-on-list design, listing never flips read flags: read receipts are
// an explicit client action so the receipt push can be causally ordered
// after the message itself.
func (s *ChatService) ListMessages(
	ctx context.Context,
	actor models.Peer,
	peer models.Peer,
	page int,
	limit int,
) ([]models.Message, int, error) {
	if !actor.Role.Valid() || !peer.Role.Valid() {
		return nil, 0, ErrForbidden
	}
	if peer.ID <= 0 || page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}

	return s.messageRepo.ListBetween(ctx, actor, peer, limit, (page-1)*limit)
}

func (s *ChatService) SendMessage(
	ctx context.Context,
	actor models.Peer,
	recipient models.Peer,
	content string,
) (*ChatDelivery, error) {
	if !actor.Role.Valid() || !recipient.Role.Valid() {
		return nil, ErrForbidden
	}
	if recipient.ID <= 0 || recipient == actor {
		return nil, ErrInvalidInput
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, ErrInvalidInput
	}

	if _, err := s.userRepo.GetByPeer(ctx, recipient); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}

	linked, err := s.contactRepo.AreLinked(ctx, actor, recipient)
	if err != nil {
		return nil, err
	}
	if !linked {
		return nil, ErrForbidden
	}

	message, err := s.messageRepo.Create(ctx, actor, recipient, trimmed)
	if err != nil {
		return nil, err
	}

	return &ChatDelivery{Message: message, Recipient: recipient}, nil
}

// MarkRead flips one message to read. Marking an already-read message is a
// no-op success; the returned flag tells the caller whether a receipt
// should be pushed to the sender.
func (s *ChatService) MarkRead(
	ctx context.Context,
	actor models.Peer,
	messageID int64,
) (*models.Message, bool, error) {
	if messageID <= 0 {
		return nil, false, ErrInvalidInput
	}

	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, false, err
	}

	if message.RecipientID != actor.ID || message.RecipientRole != actor.Role {
		return nil, false, ErrForbidden
	}

	if message.IsRead {
		return message, false, nil
	}

	changed, err := s.messageRepo.MarkRead(ctx, messageID, actor)
	if err != nil {
		return nil, false, err
	}

	message.IsRead = true
	return message, changed, nil
}

// MarkConversationRead marks every unread message from peer to actor and
// reports how many were affected.
func (s *ChatService) MarkConversationRead(
	ctx context.Context,
	actor models.Peer,
	peer models.Peer,
) (int64, error) {
	if !peer.Role.Valid() || peer.ID <= 0 {
		return 0, ErrInvalidInput
	}

	return s.messageRepo.MarkConversationRead(ctx, actor, peer)
}

func FormatChatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
