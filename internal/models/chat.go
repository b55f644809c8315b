package models

import "time"

type Message struct {
	ID            int64     `json:"id"`
	SenderID      int64     `json:"sender_id"`
	SenderRole    Role      `json:"sender_role"`
	RecipientID   int64     `json:"recipient_id"`
	RecipientRole Role      `json:"recipient_role"`
	Content       string    `json:"content"`
	IsRead        bool      `json:"is_read"`
	CreatedAt     time.Time `json:"created_at"`
}

// Sender returns the peer that authored the message.
func (m Message) Sender() Peer {
	return Peer{ID: m.SenderID, Role: m.SenderRole}
}

// PeerOf returns the other end of the message relative to actor.
func (m Message) PeerOf(actor Peer) Peer {
	if m.SenderID == actor.ID && m.SenderRole == actor.Role {
		return Peer{ID: m.RecipientID, Role: m.RecipientRole}
	}
	return Peer{ID: m.SenderID, Role: m.SenderRole}
}

type Contact struct {
	ID        int64   `json:"id"`
	Role      Role    `json:"role"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

func (c Contact) Peer() Peer {
	return Peer{ID: c.ID, Role: c.Role}
}

type ConversationSummary struct {
	Contact
	LastMessage *Message `json:"last_message,omitempty"`
	UnreadCount int      `json:"unread_count"`
}

type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
