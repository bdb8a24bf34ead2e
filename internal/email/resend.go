package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const resendDefaultURL = "https://api.resend.com"

// resendClient is the Sender backed by the Resend API. Resend has no
// server-side templates here, so it always sends the rendered bodies.
type resendClient struct {
	apiKey     string
	baseURL    string
	cfg        Config
	httpClient *http.Client
}

// NewResendClient returns a Sender that delivers email via Resend. An empty
// baseURL selects the public API.
func NewResendClient(apiKey, baseURL string, cfg Config, timeout time.Duration) Sender {
	if baseURL == "" {
		baseURL = resendDefaultURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &resendClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ─── RESEND API SHAPES ────────────────────────────────────────────────────────

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

type resendResponse struct {
	ID string `json:"id"`

	// Resend reports errors either flat or nested depending on endpoint
	// version; both shapes are accepted.
	Name    string `json:"name"`
	Message string `json:"message"`
	Error   *struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

// ─── SENDER IMPLEMENTATION ────────────────────────────────────────────────────

func (c *resendClient) SendAuditResults(ctx context.Context, p AuditResultsParams) Result {
	subject, text, html, err := Render(p, c.cfg.CTAURL)
	if err != nil {
		return failed(err)
	}

	id, err := c.send(ctx, p.To, subject, text, html)
	if err != nil {
		return failed(err)
	}
	if id == "" {
		id = DefaultMessageID
	}
	return Result{Success: true, MessageID: id}
}

// ─── HTTP SEND ────────────────────────────────────────────────────────────────

func (c *resendClient) send(ctx context.Context, to, subject, text, html string) (string, error) {
	from := fmt.Sprintf("%s <%s>", c.cfg.FromName, c.cfg.FromAddr)

	reqBody := resendRequest{
		From:    from,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
		Text:    text,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("email: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/emails",
		bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return "", fmt.Errorf("email: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("email: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("email: read response: %w", err)
	}

	var parsed resendResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("email: unmarshal response (status %d): %w", resp.StatusCode, err)
	}

	if parsed.Error != nil {
		return "", fmt.Errorf("email: Resend error %s: %s", parsed.Error.Name, parsed.Error.Message)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("email: Resend status %d: %s %s", resp.StatusCode, parsed.Name, parsed.Message)
	}

	return parsed.ID, nil
}
