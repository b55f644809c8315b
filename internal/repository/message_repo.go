package repository

import (
	"context"

	"github.com/meryambn/ScaleUpMessaging/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(
	ctx context.Context,
	sender models.Peer,
	recipient models.Peer,
	content string,
) (*models.Message, error) {
	query := `
		INSERT INTO messages (sender_id, sender_role, recipient_id, recipient_role, content, is_read)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		RETURNING id, sender_id, sender_role, recipient_id, recipient_role, content, is_read, created_at
	`

	var message models.Message
	err := r.db.QueryRow(ctx, query, sender.ID, sender.Role, recipient.ID, recipient.Role, content).Scan(
		&message.ID,
		&message.SenderID,
		&message.SenderRole,
		&message.RecipientID,
		&message.RecipientRole,
		&message.Content,
		&message.IsRead,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, messageID int64) (*models.Message, error) {
	query := `
		SELECT id, sender_id, sender_role, recipient_id, recipient_role, content, is_read, created_at
		FROM messages
		WHERE id = $1
	`

	var message models.Message
	err := r.db.QueryRow(ctx, query, messageID).Scan(
		&message.ID,
		&message.SenderID,
		&message.SenderRole,
		&message.RecipientID,
		&message.RecipientRole,
		&message.Content,
		&message.IsRead,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

// ListBetween returns the conversation between actor and peer, newest page
// first in storage order; callers re-sort ascending for display.
func (r *MessageRepository) ListBetween(
	ctx context.Context,
	actor models.Peer,
	peer models.Peer,
	limit int,
	offset int,
) ([]models.Message, int, error) {
	const pairFilter = `
		((sender_id = $1 AND sender_role = $2 AND recipient_id = $3 AND recipient_role = $4)
		 OR (sender_id = $3 AND sender_role = $4 AND recipient_id = $1 AND recipient_role = $2))
	`

	totalQuery := `
		SELECT COUNT(*)
		FROM messages
		WHERE ` + pairFilter

	var total int
	if err := r.db.QueryRow(ctx, totalQuery, actor.ID, actor.Role, peer.ID, peer.Role).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, sender_id, sender_role, recipient_id, recipient_role, content, is_read, created_at
		FROM messages
		WHERE ` + pairFilter + `
		ORDER BY created_at DESC, id DESC
		LIMIT $5 OFFSET $6
	`

	rows, err := r.db.Query(ctx, query, actor.ID, actor.Role, peer.ID, peer.Role, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var message models.Message
		if err := rows.Scan(
			&message.ID,
			&message.SenderID,
			&message.SenderRole,
			&message.RecipientID,
			&message.RecipientRole,
			&message.Content,
			&message.IsRead,
			&message.CreatedAt,
		); err != nil {
			return nil, 0, err
		}

		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// MarkRead flips a single message to read and reports whether a transition
// happened, so callers can suppress duplicate receipt pushes.
func (r *MessageRepository) MarkRead(
	ctx context.Context,
	messageID int64,
	reader models.Peer,
) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE messages
		SET is_read = TRUE
		WHERE id = $1
		  AND recipient_id = $2
		  AND recipient_role = $3
		  AND is_read = FALSE
	`, messageID, reader.ID, reader.Role)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkConversationRead marks every unread message from peer to reader and
// returns the number of messages affected.
func (r *MessageRepository) MarkConversationRead(
	ctx context.Context,
	reader models.Peer,
	peer models.Peer,
) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE messages
		SET is_read = TRUE
		WHERE recipient_id = $1
		  AND recipient_role = $2
		  AND sender_id = $3
		  AND sender_role = $4
		  AND is_read = FALSE
	`, reader.ID, reader.Role, peer.ID, peer.Role)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
