package client

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/meryambn/ScaleUpMessaging/internal/models"
)

var (
	ErrNoConversation = errors.New("no conversation selected")
	ErrEmptyMessage   = errors.New("message content is empty")
)

// LoadState tracks the fetch lifecycle of one conversation. The empty
// terminal state is distinct from unloaded so a genuinely empty thread is
// never reloaded in a loop, and distinct from error so failures stay
// visible until an explicit refresh.
type LoadState int

const (
	LoadUnloaded LoadState = iota
	LoadLoading
	LoadLoaded
	LoadEmpty
	LoadError
)

func (s LoadState) String() string {
	switch s {
	case LoadUnloaded:
		return "unloaded"
	case LoadLoading:
		return "loading"
	case LoadLoaded:
		return "loaded"
	case LoadEmpty:
		return "empty"
	case LoadError:
		return "error"
	default:
		return "unknown"
	}
}

type historyAPI interface {
	Messages(ctx context.Context, peer models.Peer, page, limit int) ([]models.Message, error)
	Send(ctx context.Context, recipient models.Peer, content string) (*models.Message, error)
}

type conversation struct {
	messages []models.Message
	byID     map[int64]int
	state    LoadState
	loadErr  error
	loadDone chan struct{}
}

// Store owns every message the client knows about, keyed by the peer of
// the conversation. Mutation goes exclusively through its methods and every
// mutation notifies subscribers, so concurrent consumers (contact list,
// message pane) render one consistent view.
//
// The store never trusts arrival order: display order is recomputed from
// createdAt on read, and incoming deltas are deduplicated against REST
// backfill by message id.
type Store struct {
	mu            sync.Mutex
	api           historyAPI
	self          models.Peer
	conversations map[models.Peer]*conversation
	selected      *models.Peer
	onChange      []func(models.Peer)
	onInsert      []func(models.Message)
	pageLimit     int
}

func NewStore(api historyAPI, self models.Peer) *Store {
	return &Store{
		api:           api,
		self:          self,
		conversations: make(map[models.Peer]*conversation),
		pageLimit:     200,
	}
}

// Subscribe registers a callback fired after any mutation of the given
// conversation. Callbacks run without the store lock held.
func (s *Store) Subscribe(fn func(models.Peer)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// OnInsert registers a callback fired for every message newly inserted,
// whether from REST backfill, a transport delta, or a local send.
func (s *Store) OnInsert(fn func(models.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onInsert = append(s.onInsert, fn)
}

func (s *Store) Select(peer models.Peer) {
	s.mu.Lock()
	s.selected = &peer
	s.mu.Unlock()
	s.notify(peer)
}

func (s *Store) Selected() (models.Peer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return models.Peer{}, false
	}
	return *s.selected, true
}

func (s *Store) ClearSelection() {
	s.mu.Lock()
	s.selected = nil
	s.mu.Unlock()
}

func (s *Store) State(peer models.Peer) LoadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[peer]
	if !ok {
		return LoadUnloaded
	}
	return c.state
}

// LoadErr returns the failure of the last load attempt, if the
// conversation is in the error state.
func (s *Store) LoadErr(peer models.Peer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[peer]
	if !ok || c.state != LoadError {
		return nil
	}
	return c.loadErr
}

// LoadMessages fetches history for the conversation once. A second caller
// arriving while a load is in flight waits for that load instead of
// issuing another fetch, and a conversation already in a terminal state
// (loaded, empty, error) is left alone; retry is an explicit Refresh.
func (s *Store) LoadMessages(ctx context.Context, peer models.Peer) error {
	s.mu.Lock()
	c := s.ensure(peer)

	switch c.state {
	case LoadLoading:
		done := c.loadDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		return s.LoadErr(peer)
	case LoadLoaded, LoadEmpty, LoadError:
		s.mu.Unlock()
		return nil
	}

	c.state = LoadLoading
	c.loadDone = make(chan struct{})
	s.mu.Unlock()
	s.notify(peer)

	return s.fetch(ctx, peer)
}

// Refresh reloads the conversation regardless of its terminal state. Used
// for the explicit user action and for reconciliation after a transport
// gap. A refresh while a load is already in flight is a no-op.
func (s *Store) Refresh(ctx context.Context, peer models.Peer) error {
	s.mu.Lock()
	c := s.ensure(peer)
	if c.state == LoadLoading {
		s.mu.Unlock()
		return nil
	}
	c.state = LoadLoading
	c.loadDone = make(chan struct{})
	s.mu.Unlock()
	s.notify(peer)

	return s.fetch(ctx, peer)
}

func (s *Store) fetch(ctx context.Context, peer models.Peer) error {
	messages, err := s.api.Messages(ctx, peer, 1, s.pageLimit)

	s.mu.Lock()
	c := s.ensure(peer)
	var inserted []models.Message
	if err != nil {
		c.state = LoadError
		c.loadErr = err
	} else {
		c.loadErr = nil
		for _, message := range messages {
			if s.insertLocked(c, message) {
				inserted = append(inserted, message)
			}
		}
		if len(c.messages) == 0 {
			c.state = LoadEmpty
		} else {
			c.state = LoadLoaded
		}
	}
	if c.loadDone != nil {
		close(c.loadDone)
		c.loadDone = nil
	}
	inserts := append([]func(models.Message){}, s.onInsert...)
	s.mu.Unlock()

	for _, message := range inserted {
		for _, fn := range inserts {
			fn(message)
		}
	}
	s.notify(peer)
	return err
}

// AppendIncoming inserts a message delivered over the transport (or echoed
// back from a send) into its conversation. Duplicates by id are dropped,
// and receiving any message promotes the conversation to loaded.
func (s *Store) AppendIncoming(message models.Message) bool {
	peer := message.PeerOf(s.self)

	s.mu.Lock()
	c := s.ensure(peer)
	added := s.insertLocked(c, message)
	if added {
		c.state = LoadLoaded
	}
	inserts := append([]func(models.Message){}, s.onInsert...)
	s.mu.Unlock()

	if !added {
		return false
	}
	for _, fn := range inserts {
		fn(message)
	}
	s.notify(peer)
	return true
}

func (s *Store) insertLocked(c *conversation, message models.Message) bool {
	if _, exists := c.byID[message.ID]; exists {
		return false
	}
	c.byID[message.ID] = len(c.messages)
	c.messages = append(c.messages, message)
	return true
}

// Ordered returns the conversation ascending by createdAt, ties broken by
// id. The sort is recomputed from insertion order on every call; the store
// never assumes the transport delivered in order.
func (s *Store) Ordered(peer models.Peer) []models.Message {
	s.mu.Lock()
	c, ok := s.conversations[peer]
	if !ok {
		s.mu.Unlock()
		return []models.Message{}
	}
	ordered := make([]models.Message, len(c.messages))
	copy(ordered, c.messages)
	s.mu.Unlock()

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})
	return ordered
}

// Send posts the message over REST, the authoritative path regardless of
// transport health, and appends the server-assigned result to the store.
func (s *Store) Send(ctx context.Context, content string) (*models.Message, error) {
	peer, ok := s.Selected()
	if !ok {
		return nil, ErrNoConversation
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, ErrEmptyMessage
	}

	message, err := s.api.Send(ctx, peer, trimmed)
	if err != nil {
		return nil, err
	}

	s.AppendIncoming(*message)
	return message, nil
}

// MarkReadLocal flips one known message to read. Returns false when the
// message is unknown or already read; the transition is monotonic.
func (s *Store) MarkReadLocal(messageID int64) bool {
	s.mu.Lock()
	var peer models.Peer
	changed := false
	for key, c := range s.conversations {
		if idx, ok := c.byID[messageID]; ok {
			if !c.messages[idx].IsRead {
				c.messages[idx].IsRead = true
				changed = true
				peer = key
			}
			break
		}
	}
	s.mu.Unlock()

	if changed {
		s.notify(peer)
	}
	return changed
}

// MarkOutgoingRead flips every message the user sent to peer to read, for
// batch conversation_read receipts.
func (s *Store) MarkOutgoingRead(peer models.Peer) int {
	s.mu.Lock()
	c, ok := s.conversations[peer]
	count := 0
	if ok {
		for i := range c.messages {
			m := &c.messages[i]
			if m.SenderID == s.self.ID && m.SenderRole == s.self.Role && !m.IsRead {
				m.IsRead = true
				count++
			}
		}
	}
	s.mu.Unlock()

	if count > 0 {
		s.notify(peer)
	}
	return count
}

// HasMessage reports whether the message id is known to any conversation.
func (s *Store) HasMessage(messageID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conversations {
		if _, ok := c.byID[messageID]; ok {
			return true
		}
	}
	return false
}

// IsRead reports the read flag of a known message.
func (s *Store) IsRead(messageID int64) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conversations {
		if idx, ok := c.byID[messageID]; ok {
			return c.messages[idx].IsRead, true
		}
	}
	return false, false
}

// UnreadIncomingIDs lists unread messages authored by peer, oldest first.
func (s *Store) UnreadIncomingIDs(peer models.Peer) []int64 {
	ids := []int64{}
	for _, message := range s.Ordered(peer) {
		if message.RecipientID == s.self.ID && message.RecipientRole == s.self.Role && !message.IsRead {
			ids = append(ids, message.ID)
		}
	}
	return ids
}

// UnreadFrom counts unread messages authored by peer. The second return is
// false while the conversation has never finished loading, letting callers
// fall back to the server-provided seed count.
func (s *Store) UnreadFrom(peer models.Peer) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[peer]
	if !ok || (c.state != LoadLoaded && c.state != LoadEmpty) {
		return 0, false
	}

	count := 0
	for _, m := range c.messages {
		if m.RecipientID == s.self.ID && m.RecipientRole == s.self.Role && !m.IsRead {
			count++
		}
	}
	return count, true
}

func (s *Store) ensure(peer models.Peer) *conversation {
	c, ok := s.conversations[peer]
	if !ok {
		c = &conversation{byID: make(map[int64]int)}
		s.conversations[peer] = c
	}
	return c
}

func (s *Store) notify(peer models.Peer) {
	s.mu.Lock()
	subscribers := append([]func(models.Peer){}, s.onChange...)
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(peer)
	}
}
