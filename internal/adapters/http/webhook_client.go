package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// WebhookClient wraps the SIP webhook registry endpoints.
type WebhookClient struct {
	*Client
}

func NewWebhookClient(c *Client) *WebhookClient {
	return &WebhookClient{Client: c}
}

// Webhook is a registered callback subscription.
type Webhook struct {
	ID        string   `json:"id"`
	URL       string   `json:"url"`
	Events    []string `json:"events"`
	CreatedAt string   `json:"createdAt,omitempty"`
	UpdatedAt string   `json:"updatedAt,omitempty"`
}

// WebhooksPage is the paginated webhook listing.
type WebhooksPage struct {
	PageInfo PageInfo  `json:"pageInfo"`
	Data     []Webhook `json:"data"`
}

// rawWebhook tolerates the id field appearing as id, _id or webhookId
// depending on the endpoint.
type rawWebhook struct {
	ID        string   `json:"id"`
	MongoID   string   `json:"_id"`
	WebhookID string   `json:"webhookId"`
	URL       string   `json:"url"`
	Events    []string `json:"events"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
}

func (rw rawWebhook) normalize() Webhook {
	id := rw.ID
	if id == "" {
		id = rw.MongoID
	}
	if id == "" {
		id = rw.WebhookID
	}
	return Webhook{
		ID:        id,
		URL:       rw.URL,
		Events:    rw.Events,
		CreatedAt: rw.CreatedAt,
		UpdatedAt: rw.UpdatedAt,
	}
}

// CreateWebhook registers a callback URL for the given call events and
// returns the normalized webhook.
func (wc *WebhookClient) CreateWebhook(ctx context.Context, callbackURL string, events []string) (*Webhook, error) {
	payload := map[string]interface{}{
		"url":    callbackURL,
		"events": events,
	}

	var raw rawWebhook
	if err := wc.doJSON(ctx, http.MethodPost, "/sip/webhooks", nil, payload, &raw); err != nil {
		return nil, err
	}

	hook := raw.normalize()
	if hook.ID == "" {
		return nil, fmt.Errorf("webhook registry returned no id")
	}
	return &hook, nil
}

// FetchWebhooks lists registered webhooks.
func (wc *WebhookClient) FetchWebhooks(ctx context.Context, search string, page, perPage int) (*WebhooksPage, error) {
	query := url.Values{}
	if search != "" {
		query.Set("search", search)
	}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		query.Set("perPage", strconv.Itoa(perPage))
	}

	var rawPage struct {
		PageInfo PageInfo          `json:"pageInfo"`
		Data     []json.RawMessage `json:"data"`
	}
	if err := wc.doJSON(ctx, http.MethodGet, "/sip/webhooks", query, nil, &rawPage); err != nil {
		return nil, err
	}

	out := WebhooksPage{PageInfo: rawPage.PageInfo}
	for _, item := range rawPage.Data {
		var raw rawWebhook
		if err := json.Unmarshal(item, &raw); err != nil {
			continue
		}
		out.Data = append(out.Data, raw.normalize())
	}
	return &out, nil
}

// FetchWebhook retrieves a single webhook by id.
func (wc *WebhookClient) FetchWebhook(ctx context.Context, webhookID string) (*Webhook, error) {
	var raw rawWebhook
	if err := wc.doJSON(ctx, http.MethodGet, "/sip/webhooks/"+webhookID, nil, nil, &raw); err != nil {
		return nil, err
	}
	hook := raw.normalize()
	return &hook, nil
}

// UpdateWebhook replaces the URL and event set of a webhook.
func (wc *WebhookClient) UpdateWebhook(ctx context.Context, webhookID, callbackURL string, events []string) (*Webhook, error) {
	payload := map[string]interface{}{
		"url":    callbackURL,
		"events": events,
	}

	var raw rawWebhook
	if err := wc.doJSON(ctx, http.MethodPut, "/sip/webhooks/"+webhookID, nil, payload, &raw); err != nil {
		return nil, err
	}
	hook := raw.normalize()
	return &hook, nil
}

// DeleteWebhook removes a webhook registration.
func (wc *WebhookClient) DeleteWebhook(ctx context.Context, webhookID string) error {
	return wc.doJSON(ctx, http.MethodDelete, "/sip/webhooks/"+webhookID, nil, nil, nil)
}
