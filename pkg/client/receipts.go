package client

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/meryambn/ScaleUpMessaging/internal/models"
)

type readAPI interface {
	MarkRead(ctx context.Context, messageID int64) error
	MarkConversationRead(ctx context.Context, peer models.Peer) error
}

type receiptStore interface {
	MarkReadLocal(messageID int64) bool
	MarkOutgoingRead(peer models.Peer) int
	IsRead(messageID int64) (bool, bool)
	UnreadIncomingIDs(peer models.Peer) []int64
	OnInsert(fn func(models.Message))
}

// ReceiptTracker propagates read state in both directions: local views
// become server-side marks, and remote receipts flip the user's own sent
// messages to read.
//
// A receipt may race its message across the two channels (REST backfill vs
// transport delta). Receipts for ids the store does not know yet are
// buffered and applied when the message is inserted, never out of order.
type ReceiptTracker struct {
	mu      sync.Mutex
	api     readAPI
	store   receiptStore
	pending map[int64]struct{}
}

func NewReceiptTracker(api readAPI, store receiptStore) *ReceiptTracker {
	t := &ReceiptTracker{
		api:     api,
		store:   store,
		pending: make(map[int64]struct{}),
	}
	store.OnInsert(t.applyPending)
	return t
}

// MarkAsRead marks a single message read server-side. Marking an already
// read message is a no-op success without a network call.
func (t *ReceiptTracker) MarkAsRead(ctx context.Context, messageID int64) error {
	if read, known := t.store.IsRead(messageID); known && read {
		return nil
	}

	if err := t.api.MarkRead(ctx, messageID); err != nil {
		return err
	}
	t.store.MarkReadLocal(messageID)
	return nil
}

// MarkAllAsRead batch-marks every unread message from the peer. Invoked as
// a side effect of viewing a conversation, not an explicit user action.
func (t *ReceiptTracker) MarkAllAsRead(ctx context.Context, peer models.Peer) error {
	unread := t.store.UnreadIncomingIDs(peer)
	if len(unread) == 0 {
		return nil
	}

	if err := t.api.MarkConversationRead(ctx, peer); err != nil {
		return err
	}
	for _, id := range unread {
		t.store.MarkReadLocal(id)
	}
	return nil
}

// HandleRemoteRead applies a message_read push for one of the user's own
// sent messages.
func (t *ReceiptTracker) HandleRemoteRead(payload json.RawMessage) {
	var receipt models.ReadPayload
	if err := json.Unmarshal(payload, &receipt); err != nil {
		return
	}
	t.apply(receipt.MessageID)
}

// HandleRemoteConversationRead applies a batch receipt: the reader has seen
// everything the user sent them.
func (t *ReceiptTracker) HandleRemoteConversationRead(payload json.RawMessage) {
	var receipt models.ConversationReadPayload
	if err := json.Unmarshal(payload, &receipt); err != nil {
		return
	}
	t.store.MarkOutgoingRead(models.Peer{ID: receipt.ReaderID, Role: receipt.ReaderRole})
}

func (t *ReceiptTracker) apply(messageID int64) {
	if t.store.MarkReadLocal(messageID) {
		return
	}
	if _, known := t.store.IsRead(messageID); known {
		// Already read; nothing to buffer.
		return
	}

	t.mu.Lock()
	t.pending[messageID] = struct{}{}
	t.mu.Unlock()
}

func (t *ReceiptTracker) applyPending(message models.Message) {
	t.mu.Lock()
	_, buffered := t.pending[message.ID]
	if buffered {
		delete(t.pending, message.ID)
	}
	t.mu.Unlock()

	if buffered {
		t.store.MarkReadLocal(message.ID)
	}
}

// PendingReceipts reports how many receipts are waiting for their message,
// exposed for diagnostics.
func (t *ReceiptTracker) PendingReceipts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
