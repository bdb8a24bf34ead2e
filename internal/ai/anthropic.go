package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/nyashahama/roi-audit-backend/internal/roi"
	"github.com/nyashahama/roi-audit-backend/internal/typeform"
)

const (
	anthropicProvider     = "anthropic"
	anthropicDefaultURL   = "https://api.anthropic.com"
	anthropicDefaultModel = "claude-sonnet-4-5"
	recommendationTool    = "record_recommendation"
)

// anthropicClient is the Recommender backed by the Anthropic Messages API.
// The output shape is enforced by forcing a single tool call whose input
// schema is the recommendation schema.
type anthropicClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewAnthropicClient returns a Recommender that calls the Anthropic API.
func NewAnthropicClient(cfg ProviderConfig) Recommender {
	c := &anthropicClient{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.timeout()},
	}
	if c.model == "" {
		c.model = anthropicDefaultModel
	}
	if c.baseURL == "" {
		c.baseURL = anthropicDefaultURL
	}
	return c
}

// ─── ANTHROPIC API SHAPES ─────────────────────────────────────────────────────

type anthropicRequest struct {
	Model      string             `json:"model"`
	MaxTokens  int                `json:"max_tokens"`
	System     string             `json:"system"`
	Messages   []anthropicMessage `json:"messages"`
	Tools      []anthropicTool    `json:"tools"`
	ToolChoice anthropicChoice    `json:"tool_choice"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicChoice struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type anthropicResponse struct {
	Content []struct {
		Type  string          `json:"type"`
		Text  string          `json:"text"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

const anthropicSystemPrompt = `You write concise, commercially grounded automation proposals for small and medium businesses.
Always answer by calling the record_recommendation tool exactly once.`

// ─── IMPLEMENTATION ───────────────────────────────────────────────────────────

func (c *anthropicClient) Recommend(ctx context.Context, in typeform.AuditInput, m roi.Metrics) (Recommendation, error) {
	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: 1024,
		System:    anthropicSystemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: BuildPrompt(in, m)},
		},
		Tools: []anthropicTool{{
			Name:        recommendationTool,
			Description: "Record the single automation recommendation for this client.",
			InputSchema: recommendationSchema(),
		}},
		ToolChoice: anthropicChoice{Type: "tool", Name: recommendationTool},
	}

	raw, err := c.call(ctx, reqBody)
	if err != nil {
		return Recommendation{}, &ServiceError{Provider: anthropicProvider, Err: err}
	}
	return decodeRecommendation(anthropicProvider, raw)
}

// call sends one request to the Messages API and returns the JSON input of
// the forced tool call, or the first text block if the model answered in
// prose instead.
func (c *anthropicClient) call(ctx context.Context, reqBody anthropicRequest) (string, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/messages",
		bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB cap
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("API error %s: %s", parsed.Error.Type, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d: %.200s", resp.StatusCode, string(respBytes))
	}

	for _, block := range parsed.Content {
		if block.Type == "tool_use" && block.Name == recommendationTool && len(block.Input) > 0 {
			return string(block.Input), nil
		}
	}
	for _, block := range parsed.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no tool call or text content in response")
}
