package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/nyashahama/roi-audit-backend/internal/roi"
	"github.com/nyashahama/roi-audit-backend/internal/typeform"
)

const (
	geminiProvider     = "gemini"
	geminiDefaultURL   = "https://generativelanguage.googleapis.com/v1beta"
	geminiDefaultModel = "gemini-2.5-flash"
)

// geminiClient is the Recommender backed by the Gemini generateContent API.
type geminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiClient returns a Recommender that calls Gemini with JSON-mode
// output constrained by the recommendation schema.
func NewGeminiClient(cfg ProviderConfig) Recommender {
	c := &geminiClient{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.timeout()},
	}
	if c.model == "" {
		c.model = geminiDefaultModel
	}
	if c.baseURL == "" {
		c.baseURL = geminiDefaultURL
	}
	return c
}

// ─── GEMINI API SHAPES ────────────────────────────────────────────────────────

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func geminiSchema() map[string]any {
	str := func(desc string) map[string]any {
		return map[string]any{"type": "STRING", "description": desc}
	}
	return map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"strategy":       str(strategyDesc),
			"implementation": str(implementationDesc),
			"savings":        str(savingsDesc),
		},
		"required": []string{"strategy", "implementation", "savings"},
	}
}

// ─── IMPLEMENTATION ───────────────────────────────────────────────────────────

func (c *geminiClient) Recommend(ctx context.Context, in typeform.AuditInput, m roi.Metrics) (Recommendation, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: BuildPrompt(in, m)}}},
		},
		GenerationConfig: geminiGenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   geminiSchema(),
		},
	}

	raw, err := c.call(ctx, reqBody)
	if err != nil {
		return Recommendation{}, &ServiceError{Provider: geminiProvider, Err: err}
	}
	return decodeRecommendation(geminiProvider, raw)
}

// call sends one generateContent request and returns the text of the first
// candidate.
func (c *geminiClient) call(ctx context.Context, reqBody geminiRequest) (string, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB cap
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal response: %w (status %d)", err, resp.StatusCode)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("API error %s: %s", parsed.Error.Status, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d: %.200s", resp.StatusCode, string(respBytes))
	}

	for _, cand := range parsed.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				return part.Text, nil
			}
		}
	}
	return "", fmt.Errorf("no response text")
}
