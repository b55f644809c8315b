package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/meryambn/ScaleUpMessaging/internal/models"
)

const defaultPollInterval = 30 * time.Second

// ConnectionState is surfaced as the always-visible badge while the
// messaging surface is open.
type ConnectionState string

const (
	StateConnected ConnectionState = "connected"
	StateOffline   ConnectionState = "offline"
)

// Options configures a Controller. Transport may be left nil to get the
// production websocket transport derived from BaseURL.
type Options struct {
	BaseURL      string
	WSURL        string
	Token        string
	Self         models.Peer
	Transport    Transport
	PollInterval time.Duration
	Typing       []TypingOption
	Logger       *slog.Logger
}

// Controller is the UI-facing facade over the messaging core: it owns the
// component lifecycle, selects conversations, and routes transport events
// into the stores. Rendering layers read through the components (Directory,
// Store, Typing) and subscribe for changes; they never mutate them.
type Controller struct {
	mu       sync.Mutex
	self     models.Peer
	token    string
	logger   *slog.Logger
	interval time.Duration

	transport Transport
	api       *API
	directory *Directory
	store     *Store
	typing    *TypingCoordinator
	receipts  *ReceiptTracker

	open     bool
	stopPoll chan struct{}
}

func NewController(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	transport := opts.Transport
	if transport == nil {
		wsURL := opts.WSURL
		if wsURL == "" {
			wsURL = deriveWSURL(opts.BaseURL)
		}
		transport = NewWSTransport(wsURL, logger)
	}

	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	api := NewAPI(opts.BaseURL, opts.Token)
	store := NewStore(api, opts.Self)
	directory := NewDirectory(api, store)
	typing := NewTypingCoordinator(transport, opts.Self, opts.Typing...)
	receipts := NewReceiptTracker(api, store)

	c := &Controller{
		self:      opts.Self,
		token:     opts.Token,
		logger:    logger,
		interval:  interval,
		transport: transport,
		api:       api,
		directory: directory,
		store:     store,
		typing:    typing,
		receipts:  receipts,
	}

	// The directory derives previews and unread badges from the store
	// rather than keeping its own authoritative copy.
	store.OnInsert(func(message models.Message) {
		directory.ApplyMessage(opts.Self, message)
	})
	store.Subscribe(func(peer models.Peer) {
		directory.RecountUnread(peer)
	})

	transport.On(models.EventNewMessage, c.handleNewMessage)
	transport.On(models.EventMessageRead, receipts.HandleRemoteRead)
	transport.On(models.EventConversationRead, receipts.HandleRemoteConversationRead)
	transport.OnReconnect(c.reconcile)

	return c
}

func (c *Controller) Directory() *Directory      { return c.directory }
func (c *Controller) Store() *Store              { return c.store }
func (c *Controller) Typing() *TypingCoordinator { return c.typing }
func (c *Controller) Receipts() *ReceiptTracker  { return c.receipts }

// Open connects the transport and loads the initial directory. Transport
// failure is non-fatal: the controller starts on the polling path and the
// transport keeps redialing in the background.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.open {
		c.mu.Unlock()
		return nil
	}
	c.open = true
	c.stopPoll = make(chan struct{})
	stop := c.stopPoll
	c.mu.Unlock()

	if err := c.transport.Connect(ctx, c.token); err != nil {
		c.logger.Warn("realtime channel unavailable, polling only", "error", err)
	}

	if _, err := c.directory.RefreshContacts(ctx); err != nil {
		c.logger.Warn("contact refresh failed", "error", err)
	}
	if err := c.directory.RefreshConversations(ctx); err != nil {
		c.logger.Warn("conversation refresh failed", "error", err)
	}

	go c.pollLoop(stop)
	return nil
}

// Close tears the dialog down: the polling timer stops, pending typing
// emissions are dropped, and the transport disconnects. No timers survive
// the dialog.
func (c *Controller) Close() {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return
	}
	c.open = false
	close(c.stopPoll)
	c.mu.Unlock()

	c.typing.Close()
	c.store.ClearSelection()
	c.transport.Disconnect()
}

// SelectContact opens the thread with the peer: loads history if needed
// and marks the visible unread messages read as a side effect of viewing.
func (c *Controller) SelectContact(ctx context.Context, peer models.Peer) error {
	if previous, ok := c.store.Selected(); ok && previous != peer {
		c.typing.FlushStop(previous)
	}

	c.store.Select(peer)
	err := c.store.LoadMessages(ctx, peer)

	if readErr := c.receipts.MarkAllAsRead(ctx, peer); readErr != nil {
		c.logger.Warn("mark all read failed", "peer", peer.String(), "error", readErr)
	}
	c.directory.RecountUnread(peer)
	return err
}

// RefreshSelected is the explicit user retry for a failed or stale thread.
func (c *Controller) RefreshSelected(ctx context.Context) error {
	peer, ok := c.store.Selected()
	if !ok {
		return ErrNoConversation
	}
	return c.store.Refresh(ctx, peer)
}

// InputChanged tracks the compose box. Non-blank focused input drives the
// typing start signal; the stop signal re-arms on every change and fires
// after the quiet window.
func (c *Controller) InputChanged(content string, focused bool) {
	peer, ok := c.store.Selected()
	if !ok {
		return
	}
	c.typing.StartTyping(peer, focused, content)
	c.typing.StopTyping(peer)
}

// InputBlurred flushes the stop signal immediately.
func (c *Controller) InputBlurred() {
	if peer, ok := c.store.Selected(); ok {
		c.typing.FlushStop(peer)
	}
}

// SendMessage sends over REST and stops the typing indicator. The caller
// clears the input optimistically on invocation; the returned message
// carries the server-assigned id and timestamp.
func (c *Controller) SendMessage(ctx context.Context, content string) (*models.Message, error) {
	message, err := c.store.Send(ctx, content)
	if err != nil {
		return nil, err
	}
	if peer, ok := c.store.Selected(); ok {
		c.typing.FlushStop(peer)
	}
	return message, nil
}

func (c *Controller) ConnectionState() ConnectionState {
	if c.transport.IsConnected() {
		return StateConnected
	}
	return StateOffline
}

// pollLoop is the freshness fallback: while the transport is down, the
// directory refreshes on a fixed interval. The loop exits when the dialog
// closes, so a closed dialog issues zero further calls.
func (c *Controller) pollLoop(stop chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if c.transport.IsConnected() {
				continue
			}
			c.pollOnce()
		}
	}
}

func (c *Controller) pollOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), c.interval)
	defer cancel()

	if _, err := c.directory.RefreshContacts(ctx); err != nil {
		c.logger.Debug("poll contacts failed", "error", err)
	}
	if err := c.directory.RefreshConversations(ctx); err != nil {
		c.logger.Debug("poll conversations failed", "error", err)
	}
	if peer, ok := c.store.Selected(); ok {
		if err := c.store.Refresh(ctx, peer); err != nil {
			c.logger.Debug("poll selected refresh failed", "error", err)
		}
	}
}

func (c *Controller) handleNewMessage(payload json.RawMessage) {
	var message models.Message
	if err := json.Unmarshal(payload, &message); err != nil {
		c.logger.Debug("dropping malformed message push", "error", err)
		return
	}

	if !c.store.AppendIncoming(message) {
		return
	}

	peer := message.PeerOf(c.self)
	c.typing.ClearFor(peer)

	// Viewing side effect: a message arriving into the open conversation
	// is read immediately.
	if selected, ok := c.store.Selected(); ok && selected == peer &&
		message.RecipientID == c.self.ID && message.RecipientRole == c.self.Role {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.receipts.MarkAsRead(ctx, message.ID); err != nil {
			c.logger.Debug("auto mark read failed", "message_id", message.ID, "error", err)
		}
	}
}

// reconcile runs after a transport gap: pushed deltas may have been lost,
// so the affected state is refetched instead of trusted.
func (c *Controller) reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := c.directory.RefreshContacts(ctx); err != nil {
		c.logger.Debug("reconcile contacts failed", "error", err)
	}
	if err := c.directory.RefreshConversations(ctx); err != nil {
		c.logger.Debug("reconcile conversations failed", "error", err)
	}
	if peer, ok := c.store.Selected(); ok {
		if err := c.store.Refresh(ctx, peer); err != nil {
			c.logger.Debug("reconcile selected refresh failed", "error", err)
		}
	}
}

func deriveWSURL(baseURL string) string {
	wsURL := baseURL
	switch {
	case len(wsURL) >= 8 && wsURL[:8] == "https://":
		wsURL = "wss://" + wsURL[8:]
	case len(wsURL) >= 7 && wsURL[:7] == "http://":
		wsURL = "ws://" + wsURL[7:]
	}
	return wsURL + "/api/v1/ws"
}
