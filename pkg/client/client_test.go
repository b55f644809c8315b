package client

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/meryambn/ScaleUpMessaging/internal/models"
)

// fakeTransport records outbound events and lets tests inject inbound ones.
type fakeTransport struct {
	mu          sync.Mutex
	connected   bool
	handlers    map[string][]Handler
	onReconnect []func()
	sent        []sentEvent
}

type sentEvent struct {
	event   string
	payload any
}

func newFakeTransport(connected bool) *fakeTransport {
	return &fakeTransport{
		connected: connected,
		handlers:  make(map[string][]Handler),
	}
}

func (f *fakeTransport) Connect(_ context.Context, _ string) error { return nil }

func (f *fakeTransport) Send(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return ErrNotConnected
	}
	f.sent = append(f.sent, sentEvent{event: event, payload: payload})
	return nil
}

func (f *fakeTransport) On(event string, handler Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = append(f.handlers[event], handler)
}

func (f *fakeTransport) OnReconnect(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onReconnect = append(f.onReconnect, fn)
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

func (f *fakeTransport) setConnected(connected bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = connected
}

func (f *fakeTransport) emit(t *testing.T, event string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	f.mu.Lock()
	handlers := append([]Handler{}, f.handlers[event]...)
	f.mu.Unlock()
	for _, handler := range handlers {
		handler(raw)
	}
}

func mustJSON(t *testing.T, payload any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

func (f *fakeTransport) sentEvents() []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentEvent{}, f.sent...)
}

var (
	testSelf   = models.Peer{ID: 42, Role: models.RoleStartup}
	testMentor = models.Peer{ID: 7, Role: models.RoleMentor}
)
