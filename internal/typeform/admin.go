package typeform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultAPIBaseURL = "https://api.typeform.com"

// Webhook is a webhook registration on a form.
type Webhook struct {
	ID        string `json:"id,omitempty"`
	FormID    string `json:"form_id,omitempty"`
	Tag       string `json:"tag"`
	URL       string `json:"url"`
	Enabled   bool   `json:"enabled"`
	VerifySSL bool   `json:"verify_ssl"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// RegisterWebhookParams configures a webhook. Secret is sent only when set.
type RegisterWebhookParams struct {
	FormID    string
	Tag       string
	URL       string
	Secret    string
	Enabled   bool
	VerifySSL bool
}

// AdminClient talks to the Typeform Create API webhook endpoints.
type AdminClient struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// NewAdminClient returns an AdminClient authenticated with a personal access
// token. An empty baseURL selects the public API.
func NewAdminClient(token, baseURL string) *AdminClient {
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	return &AdminClient{
		token:      token,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// ListWebhooks returns every webhook registered on formID.
func (c *AdminClient) ListWebhooks(ctx context.Context, formID string) ([]Webhook, error) {
	var out struct {
		Items []Webhook `json:"items"`
	}
	path := fmt.Sprintf("/forms/%s/webhooks", url.PathEscape(formID))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("typeform: list webhooks: %w", err)
	}
	return out.Items, nil
}

// RegisterWebhook creates or replaces the webhook identified by p.Tag.
func (c *AdminClient) RegisterWebhook(ctx context.Context, p RegisterWebhookParams) (Webhook, error) {
	body := map[string]any{
		"url":        p.URL,
		"enabled":    p.Enabled,
		"verify_ssl": p.VerifySSL,
	}
	if p.Secret != "" {
		body["secret"] = p.Secret
	}

	var out Webhook
	path := fmt.Sprintf("/forms/%s/webhooks/%s", url.PathEscape(p.FormID), url.PathEscape(p.Tag))
	if err := c.do(ctx, http.MethodPut, path, body, &out); err != nil {
		return Webhook{}, fmt.Errorf("typeform: register webhook %q: %w", p.Tag, err)
	}
	return out, nil
}

func (c *AdminClient) do(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("API returned %d: %.200s", resp.StatusCode, respBody)
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
