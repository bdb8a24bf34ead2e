package ai

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/nyashahama/roi-audit-backend/internal/roi"
	"github.com/nyashahama/roi-audit-backend/internal/typeform"
)

const (
	openAIProvider     = "openai"
	openAIDefaultModel = "gpt-4o-mini"
)

// openAIClient is the Recommender backed by any OpenAI-compatible chat
// completions endpoint (OpenAI, DeepSeek, a local gateway). The base URL
// selects the vendor.
type openAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient returns a Recommender that uses structured outputs
// (response_format json_schema, strict) on a chat completions endpoint.
func NewOpenAIClient(cfg ProviderConfig) Recommender {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	config.HTTPClient = &http.Client{Timeout: cfg.timeout()}

	model := cfg.Model
	if model == "" {
		model = openAIDefaultModel
	}
	return &openAIClient{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

var recommendationDefinition = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"strategy":       {Type: jsonschema.String, Description: strategyDesc},
		"implementation": {Type: jsonschema.String, Description: implementationDesc},
		"savings":        {Type: jsonschema.String, Description: savingsDesc},
	},
	Required:             []string{"strategy", "implementation", "savings"},
	AdditionalProperties: false,
}

func (c *openAIClient) Recommend(ctx context.Context, in typeform.AuditInput, m roi.Metrics) (Recommendation, error) {
	req := openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: 1024,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(in, m)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "recommendation",
				Schema: &recommendationDefinition,
				Strict: true,
			},
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return Recommendation{}, serviceErr(openAIProvider, "API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return Recommendation{}, serviceErr(openAIProvider, "chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Recommendation{}, serviceErr(openAIProvider, "no choices in response")
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonLength {
		return Recommendation{}, serviceErr(openAIProvider, "response truncated (finish_reason=length)")
	}
	if choice.Message.Refusal != "" {
		return Recommendation{}, serviceErr(openAIProvider, "model refused: %s", choice.Message.Refusal)
	}
	return decodeRecommendation(openAIProvider, choice.Message.Content)
}
