package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/meryambn/ScaleUpMessaging/internal/models"
)

var ErrUnauthorized = errors.New("unauthorized")

// API wraps the messaging REST endpoints. Decoding is defensive: a missing
// array is an empty result and a missing name becomes a placeholder, so the
// caller stays usable on partial data.
type API struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewAPI(baseURL, token string) *API {
	return &API{
		baseURL: baseURL,
		token:   token,
		http:    http.DefaultClient,
	}
}

// RealtimeConfig carries the server-advertised freshness settings.
type RealtimeConfig struct {
	PollInterval time.Duration
	TypingExpiry time.Duration
}

func (a *API) RealtimeConfig(ctx context.Context) (*RealtimeConfig, error) {
	var body struct {
		PollIntervalSeconds int `json:"poll_interval_seconds"`
		TypingExpirySeconds int `json:"typing_expiry_seconds"`
	}
	if err := a.get(ctx, "/api/v1/realtime/config", nil, &body); err != nil {
		return nil, err
	}
	return &RealtimeConfig{
		PollInterval: time.Duration(body.PollIntervalSeconds) * time.Second,
		TypingExpiry: time.Duration(body.TypingExpirySeconds) * time.Second,
	}, nil
}

func (a *API) Contacts(ctx context.Context) ([]models.Contact, error) {
	var body struct {
		Contacts []models.Contact `json:"contacts"`
	}
	if err := a.get(ctx, "/api/v1/contacts", nil, &body); err != nil {
		return nil, err
	}

	contacts := body.Contacts
	if contacts == nil {
		contacts = []models.Contact{}
	}
	for i := range contacts {
		if contacts[i].Name == "" {
			contacts[i].Name = "Unknown"
		}
	}
	return contacts, nil
}

func (a *API) Conversations(ctx context.Context) ([]models.ConversationSummary, error) {
	var body struct {
		Conversations []models.ConversationSummary `json:"conversations"`
	}
	if err := a.get(ctx, "/api/v1/conversations", nil, &body); err != nil {
		return nil, err
	}

	summaries := body.Conversations
	if summaries == nil {
		summaries = []models.ConversationSummary{}
	}
	for i := range summaries {
		if summaries[i].Name == "" {
			summaries[i].Name = "Unknown"
		}
	}
	return summaries, nil
}

func (a *API) Messages(ctx context.Context, peer models.Peer, page, limit int) ([]models.Message, error) {
	query := url.Values{}
	query.Set("contactId", strconv.FormatInt(peer.ID, 10))
	query.Set("role", string(peer.Role))
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	var body struct {
		Messages []models.Message `json:"messages"`
	}
	if err := a.get(ctx, "/api/v1/messages", query, &body); err != nil {
		return nil, err
	}

	if body.Messages == nil {
		return []models.Message{}, nil
	}
	return body.Messages, nil
}

func (a *API) Send(ctx context.Context, recipient models.Peer, content string) (*models.Message, error) {
	payload := map[string]any{
		"recipient_id":   recipient.ID,
		"recipient_role": recipient.Role,
		"content":        content,
	}

	var body struct {
		Message *models.Message `json:"message"`
	}
	if err := a.do(ctx, http.MethodPost, "/api/v1/messages", payload, &body); err != nil {
		return nil, err
	}
	if body.Message == nil {
		return nil, errors.New("send: malformed response")
	}
	return body.Message, nil
}

func (a *API) MarkRead(ctx context.Context, messageID int64) error {
	path := "/api/v1/messages/" + strconv.FormatInt(messageID, 10) + "/read"
	return a.do(ctx, http.MethodPut, path, nil, nil)
}

func (a *API) MarkConversationRead(ctx context.Context, peer models.Peer) error {
	payload := map[string]any{
		"contact_id":   peer.ID,
		"contact_role": peer.Role,
	}
	return a.do(ctx, http.MethodPut, "/api/v1/conversations/read", payload, nil)
}

func (a *API) get(ctx context.Context, path string, query url.Values, out any) error {
	target := a.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	return a.send(req, out)
}

func (a *API) do(ctx context.Context, method, path string, payload, out any) error {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.send(req, out)
}

func (a *API) send(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
