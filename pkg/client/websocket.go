package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/meryambn/ScaleUpMessaging/internal/models"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// WSTransport is the production Transport over gorilla/websocket. It keeps
// a background loop that redials with exponential backoff; every dial
// failure leaves IsConnected false and the rest of the client on the REST
// polling path.
type WSTransport struct {
	wsURL  string
	logger *slog.Logger

	mu          sync.Mutex
	conn        *websocket.Conn
	handlers    map[string][]Handler
	onReconnect []func()
	started     bool
	closed      chan struct{}
	everOnline  bool

	// Gorilla connections support at most one concurrent writer. Sends
	// originate from debounce timers and UI calls alike, so they are
	// serialized here rather than at every call site.
	writeMu sync.Mutex
}

func NewWSTransport(wsURL string, logger *slog.Logger) *WSTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSTransport{
		wsURL:    wsURL,
		logger:   logger,
		handlers: make(map[string][]Handler),
		closed:   make(chan struct{}),
	}
}

// Connect starts the dial loop. It returns immediately; connection failures
// are retried in the background and never surface to callers.
func (t *WSTransport) Connect(ctx context.Context, token string) error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return nil
	}
	t.started = true
	t.mu.Unlock()

	go t.run(ctx, token)
	return nil
}

func (t *WSTransport) run(ctx context.Context, token string) {
	backoff := initialBackoff
	for {
		select {
		case <-t.closed:
			return
		case <-ctx.Done():
			return
		default:
		}

		conn, err := t.dial(ctx, token)
		if err != nil {
			t.logger.Debug("websocket dial failed", "error", err)
			select {
			case <-time.After(backoff):
			case <-t.closed:
				return
			case <-ctx.Done():
				return
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = initialBackoff

		t.mu.Lock()
		t.conn = conn
		reconnected := t.everOnline
		t.everOnline = true
		callbacks := append([]func(){}, t.onReconnect...)
		t.mu.Unlock()

		// The gap between sessions may have dropped deltas; let the
		// stores refetch rather than trust what arrives next.
		if reconnected {
			for _, fn := range callbacks {
				fn()
			}
		}

		t.readLoop(conn)

		t.mu.Lock()
		if t.conn == conn {
			t.conn = nil
		}
		t.mu.Unlock()
	}
}

func (t *WSTransport) dial(ctx context.Context, token string) (*websocket.Conn, error) {
	endpoint, err := url.Parse(t.wsURL)
	if err != nil {
		return nil, err
	}
	query := endpoint.Query()
	query.Set("token", token)
	endpoint.RawQuery = query.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(), nil)
	return conn, err
}

func (t *WSTransport) readLoop(conn *websocket.Conn) {
	defer conn.Close()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var envelope models.Envelope
		if err := json.Unmarshal(payload, &envelope); err != nil {
			t.logger.Debug("dropping malformed frame", "error", err)
			continue
		}

		t.mu.Lock()
		handlers := append([]Handler{}, t.handlers[envelope.Event]...)
		t.mu.Unlock()

		for _, handler := range handlers {
			handler(envelope.Payload)
		}
	}
}

func (t *WSTransport) Send(event string, payload any) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	envelope, err := models.NewEnvelope(event, payload)
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return conn.WriteJSON(envelope)
}

func (t *WSTransport) On(event string, handler Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[event] = append(t.handlers[event], handler)
}

func (t *WSTransport) OnReconnect(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReconnect = append(t.onReconnect, fn)
}

func (t *WSTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

func (t *WSTransport) Disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()

	select {
	case <-t.closed:
	default:
		close(t.closed)
	}
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
}
