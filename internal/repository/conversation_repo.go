package repository

import (
	"context"
	"database/sql"

	"github.com/meryambn/ScaleUpMessaging/internal/models"
)

type ConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// ListSummaries returns one row per peer the actor has exchanged messages
// with: the peer's identity, the latest message, and the unread count. A
// conversation is not a stored row, it is derived from the message pair.
func (r *ConversationRepository) ListSummaries(
	ctx context.Context,
	actor models.Peer,
) ([]models.ConversationSummary, error) {
	query := `
		WITH peers AS (
			SELECT DISTINCT
				CASE WHEN sender_id = $1 AND sender_role = $2 THEN recipient_id ELSE sender_id END AS peer_id,
				CASE WHEN sender_id = $1 AND sender_role = $2 THEN recipient_role ELSE sender_role END AS peer_role
			FROM messages
			WHERE (sender_id = $1 AND sender_role = $2)
			   OR (recipient_id = $1 AND recipient_role = $2)
		)
		SELECT
			p.peer_id,
			p.peer_role,
			COALESCE(u.name, ''),
			u.avatar_url,
			lm.id,
			lm.sender_id,
			lm.sender_role,
			lm.recipient_id,
			lm.recipient_role,
			lm.content,
			lm.is_read,
			lm.created_at,
			COALESCE(uc.unread_count, 0)
		FROM peers p
		LEFT JOIN users u ON u.id = p.peer_id AND u.role = p.peer_role
		LEFT JOIN LATERAL (
			SELECT id, sender_id, sender_role, recipient_id, recipient_role, content, is_read, created_at
			FROM messages m
			WHERE (m.sender_id = $1 AND m.sender_role = $2 AND m.recipient_id = p.peer_id AND m.recipient_role = p.peer_role)
			   OR (m.sender_id = p.peer_id AND m.sender_role = p.peer_role AND m.recipient_id = $1 AND m.recipient_role = $2)
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT 1
		) lm ON TRUE
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS unread_count
			FROM messages m
			WHERE m.recipient_id = $1
			  AND m.recipient_role = $2
			  AND m.sender_id = p.peer_id
			  AND m.sender_role = p.peer_role
			  AND m.is_read = FALSE
		) uc ON TRUE
		ORDER BY lm.created_at DESC NULLS LAST, p.peer_id
	`

	rows, err := r.db.Query(ctx, query, actor.ID, actor.Role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]models.ConversationSummary, 0)
	for rows.Next() {
		var summary models.ConversationSummary
		var messageID sql.NullInt64
		var senderID sql.NullInt64
		var senderRole sql.NullString
		var recipientID sql.NullInt64
		var recipientRole sql.NullString
		var content sql.NullString
		var isRead sql.NullBool
		var createdAt sql.NullTime

		if err := rows.Scan(
			&summary.ID,
			&summary.Role,
			&summary.Name,
			&summary.AvatarURL,
			&messageID,
			&senderID,
			&senderRole,
			&recipientID,
			&recipientRole,
			&content,
			&isRead,
			&createdAt,
			&summary.UnreadCount,
		); err != nil {
			return nil, err
		}

		if messageID.Valid {
			summary.LastMessage = &models.Message{
				ID:            messageID.Int64,
				SenderID:      senderID.Int64,
				SenderRole:    models.Role(senderRole.String),
				RecipientID:   recipientID.Int64,
				RecipientRole: models.Role(recipientRole.String),
				Content:       content.String,
				IsRead:        isRead.Bool,
				CreatedAt:     createdAt.Time,
			}
		}

		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}
