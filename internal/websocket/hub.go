package chatws

import (
	"encoding/json"
	"log/slog"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/meryambn/ScaleUpMessaging/internal/models"
)

const defaultWriteTimeout = 10 * time.Second

// Hub routes realtime events to connected users. Clients are keyed by the
// peer string "id:role" so the same numeric id under two roles stays two
// distinct destinations.
type Hub struct {
	clients      map[string]map[*Client]struct{}
	register     chan *Client
	unregister   chan *Client
	push         chan *delivery
	logger       *slog.Logger
	writeTimeout time.Duration
}

type delivery struct {
	target   models.Peer
	envelope *models.Envelope
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	peer models.Peer
	send chan []byte
}

func NewHub(logger *slog.Logger, writeTimeout time.Duration) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Hub{
		clients:      make(map[string]map[*Client]struct{}),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		push:         make(chan *delivery, 64),
		logger:       logger,
		writeTimeout: writeTimeout,
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, peer models.Peer) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		peer: peer,
		send: make(chan []byte, 32),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			key := client.peer.String()
			set, ok := h.clients[key]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[key] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			key := client.peer.String()
			set, ok := h.clients[key]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				delete(set, client)
				close(client.send)
			}
			if len(set) == 0 {
				delete(h.clients, key)
			}
		case d := <-h.push:
			h.deliver(d)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Push queues an event for every open connection of the target user. Events
// are advisory: a user with no open connection simply misses the push and
// reconciles over REST.
func (h *Hub) Push(target models.Peer, event string, payload any) {
	envelope, err := models.NewEnvelope(event, payload)
	if err != nil {
		h.logger.Error("chat hub encode event", "event", event, "error", err)
		return
	}
	h.push <- &delivery{target: target, envelope: envelope}
}

func (h *Hub) deliver(d *delivery) {
	encoded, err := json.Marshal(d.envelope)
	if err != nil {
		h.logger.Error("chat hub encode envelope", "error", err)
		return
	}
	h.sendToPeer(d.target, encoded)
}

func (h *Hub) sendToPeer(target models.Peer, payload []byte) {
	key := target.String()
	set, ok := h.clients[key]
	if !ok {
		return
	}

	for client := range set {
		select {
		case client.send <- payload:
		default:
			delete(set, client)
			close(client.send)
		}
	}
	if len(set) == 0 {
		delete(h.clients, key)
	}
}

// ReadPump consumes inbound frames. Clients may only send typing signals;
// messages themselves travel over REST so delivery does not depend on the
// socket being healthy.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var envelope models.Envelope
		if err := json.Unmarshal(payload, &envelope); err != nil {
			writeError(c, "invalid event payload")
			continue
		}

		switch envelope.Event {
		case models.EventTypingStart, models.EventTypingStop:
		default:
			writeError(c, "unsupported event")
			continue
		}

		var typing models.TypingPayload
		if err := json.Unmarshal(envelope.Payload, &typing); err != nil {
			writeError(c, "invalid typing payload")
			continue
		}
		if typing.RecipientID <= 0 || !typing.RecipientRole.Valid() {
			writeError(c, "invalid typing recipient")
			continue
		}

		typing.SenderID = c.peer.ID
		typing.SenderRole = c.peer.Role

		// Relayed to the addressed party only, never broadcast.
		c.hub.Push(
			models.Peer{ID: typing.RecipientID, Role: typing.RecipientRole},
			envelope.Event,
			typing,
		)
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		// A stalled reader must not wedge the pump for everyone queued
		// behind it.
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func writeError(client *Client, message string) {
	envelope, err := models.NewEnvelope("error", map[string]string{"message": message})
	if err != nil {
		return
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return
	}
	select {
	case client.send <- payload:
	default:
		client.hub.Unregister(client)
	}
}
