// Package client implements the messaging core used by the ScaleUp web and
// mobile shells: contact directory, conversation store, typing coordinator,
// read receipts, and the realtime transport with polling fallback. The
// rendering layer consumes these components through subscriptions; it never
// mutates state directly.
package client

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrNotConnected = errors.New("transport not connected")

// Handler consumes one inbound realtime event payload.
type Handler func(payload json.RawMessage)

// Transport is the bidirectional realtime channel. Implementations must be
// non-fatal throughout: a dead channel degrades features (no live typing,
// delayed receipts) but never blocks message sending, which always goes
// over REST.
//
// No ordering is guaranteed across a reconnect. Consumers register an
// OnReconnect hook and reconcile by refetching instead of trusting deltas
// received after a gap.
type Transport interface {
	Connect(ctx context.Context, token string) error
	Send(event string, payload any) error
	On(event string, handler Handler)
	OnReconnect(fn func())
	IsConnected() bool
	Disconnect()
}
