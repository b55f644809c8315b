package models

import (
	"encoding/json"
	"time"
)

// Realtime event names shared by the hub and the client transport.
const (
	EventNewMessage       = "new_message"
	EventTypingStart      = "typing_start"
	EventTypingStop       = "typing_stop"
	EventMessageRead      = "message_read"
	EventConversationRead = "conversation_read"
)

// Envelope is the wire frame for every realtime event.
type Envelope struct {
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp string          `json:"timestamp"`
}

func NewEnvelope(event string, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Event:     event,
		Payload:   raw,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// TypingPayload travels in both directions: clients send it with only the
// recipient pair set, the hub fills in the sender pair before relaying.
type TypingPayload struct {
	SenderID      int64 `json:"sender_id,omitempty"`
	SenderRole    Role  `json:"sender_role,omitempty"`
	RecipientID   int64 `json:"recipient_id"`
	RecipientRole Role  `json:"recipient_role"`
}

// ReadPayload notifies a sender that one of their messages was read.
type ReadPayload struct {
	MessageID  int64 `json:"message_id"`
	ReaderID   int64 `json:"reader_id"`
	ReaderRole Role  `json:"reader_role"`
}

// ConversationReadPayload notifies a sender that the whole thread with the
// reader was marked read in one batch.
type ConversationReadPayload struct {
	ReaderID   int64 `json:"reader_id"`
	ReaderRole Role  `json:"reader_role"`
}
