package client

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/meryambn/ScaleUpMessaging/internal/models"
)

type directoryAPI interface {
	Contacts(ctx context.Context) ([]models.Contact, error)
	Conversations(ctx context.Context) ([]models.ConversationSummary, error)
}

// countSource is the authoritative unread count: a per-message scan over
// the conversation store. The summary endpoint only seeds the value until
// the conversation has actually been loaded.
type countSource interface {
	UnreadFrom(peer models.Peer) (int, bool)
}

// Directory holds the set of people the current user may message, with
// last-message preview and unread count per contact. The selectable set is
// decided server-side by role; the only client-side filtering is free-text
// search.
type Directory struct {
	mu       sync.Mutex
	api      directoryAPI
	counts   countSource
	entries  map[models.Peer]*models.ConversationSummary
	fetching bool
	lastErr  error
	onChange []func()
}

func NewDirectory(api directoryAPI, counts countSource) *Directory {
	return &Directory{
		api:     api,
		counts:  counts,
		entries: make(map[models.Peer]*models.ConversationSummary),
	}
}

func (d *Directory) Subscribe(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onChange = append(d.onChange, fn)
}

// RefreshContacts replaces the directory snapshot with the role-scoped
// contact list. Concurrent calls collapse to one fetch: a caller arriving
// while a fetch is in flight returns immediately.
func (d *Directory) RefreshContacts(ctx context.Context) ([]models.Contact, error) {
	d.mu.Lock()
	if d.fetching {
		d.mu.Unlock()
		return nil, nil
	}
	d.fetching = true
	d.mu.Unlock()

	contacts, err := d.api.Contacts(ctx)

	d.mu.Lock()
	d.fetching = false
	if err != nil {
		d.lastErr = err
		d.mu.Unlock()
		return nil, err
	}
	d.lastErr = nil

	fresh := make(map[models.Peer]*models.ConversationSummary, len(contacts))
	for _, contact := range contacts {
		peer := contact.Peer()
		entry := &models.ConversationSummary{Contact: contact}
		if previous, ok := d.entries[peer]; ok {
			entry.LastMessage = previous.LastMessage
			entry.UnreadCount = previous.UnreadCount
		}
		fresh[peer] = entry
	}
	d.entries = fresh
	d.mu.Unlock()

	d.notify()
	return contacts, nil
}

// RefreshConversations merges last-message previews and unread counts into
// the directory. Contacts absent from the response are kept untouched, so
// a partial result never erases known state.
func (d *Directory) RefreshConversations(ctx context.Context) error {
	summaries, err := d.api.Conversations(ctx)
	if err != nil {
		d.mu.Lock()
		d.lastErr = err
		d.mu.Unlock()
		return err
	}

	d.mu.Lock()
	d.lastErr = nil
	for _, summary := range summaries {
		peer := summary.Peer()
		entry, ok := d.entries[peer]
		if !ok {
			copied := summary
			d.entries[peer] = &copied
			continue
		}
		entry.LastMessage = summary.LastMessage
		if count, known := d.counts.UnreadFrom(peer); known {
			entry.UnreadCount = count
		} else {
			entry.UnreadCount = summary.UnreadCount
		}
	}
	d.mu.Unlock()

	d.notify()
	return nil
}

// ApplyMessage updates the preview for the conversation the message belongs
// to. Called for every insertion into the store.
func (d *Directory) ApplyMessage(self models.Peer, message models.Message) {
	peer := message.PeerOf(self)

	d.mu.Lock()
	entry, ok := d.entries[peer]
	if !ok {
		entry = &models.ConversationSummary{
			Contact: models.Contact{ID: peer.ID, Role: peer.Role, Name: "Unknown"},
		}
		d.entries[peer] = entry
	}
	if entry.LastMessage == nil || !message.CreatedAt.Before(entry.LastMessage.CreatedAt) {
		copied := message
		entry.LastMessage = &copied
	}
	d.mu.Unlock()

	d.RecountUnread(peer)
}

// RecountUnread refreshes the derived unread count for one contact from
// the store scan, keeping the seeded value while the thread is unloaded.
func (d *Directory) RecountUnread(peer models.Peer) {
	count, known := d.counts.UnreadFrom(peer)

	d.mu.Lock()
	entry, ok := d.entries[peer]
	if ok && known && entry.UnreadCount != count {
		entry.UnreadCount = count
		d.mu.Unlock()
		d.notify()
		return
	}
	d.mu.Unlock()
}

// Contacts returns the directory ordered by most recent activity, then
// name.
func (d *Directory) Contacts() []models.ConversationSummary {
	d.mu.Lock()
	result := make([]models.ConversationSummary, 0, len(d.entries))
	for _, entry := range d.entries {
		result = append(result, *entry)
	}
	d.mu.Unlock()

	sort.Slice(result, func(i, j int) bool {
		ti, tj := lastActivity(result[i]), lastActivity(result[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// Search filters the directory by case-insensitive substring over name and
// role.
func (d *Directory) Search(query string) []models.ConversationSummary {
	needle := strings.ToLower(strings.TrimSpace(query))
	all := d.Contacts()
	if needle == "" {
		return all
	}

	matched := []models.ConversationSummary{}
	for _, entry := range all {
		if strings.Contains(strings.ToLower(entry.Name), needle) ||
			strings.Contains(strings.ToLower(string(entry.Role)), needle) {
			matched = append(matched, entry)
		}
	}
	return matched
}

// TotalUnread sums unread counts across the directory, for the global
// badge.
func (d *Directory) TotalUnread() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := 0
	for _, entry := range d.entries {
		total += entry.UnreadCount
	}
	return total
}

// LastErr exposes the most recent fetch failure for the inline error text;
// it clears on the next successful refresh.
func (d *Directory) LastErr() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

func (d *Directory) notify() {
	d.mu.Lock()
	subscribers := append([]func(){}, d.onChange...)
	d.mu.Unlock()

	for _, fn := range subscribers {
		fn()
	}
}

func lastActivity(entry models.ConversationSummary) time.Time {
	if entry.LastMessage != nil {
		return entry.LastMessage.CreatedAt
	}
	return time.Time{}
}
