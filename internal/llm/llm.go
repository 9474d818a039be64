package llm

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/gradesheet/internal/llm/prompts"
	"github.com/pavelanni/gradesheet/internal/model"
	"github.com/pavelanni/gradesheet/internal/report"
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	variant prompts.PromptVariant
	policy  *bluemonday.Policy
}

// New creates a new LLM client. An unknown variant falls back to standard.
func New(baseURL, apiKey, modelName, variant string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	v := prompts.PromptVariant(strings.ToLower(strings.TrimSpace(variant)))
	if !prompts.IsValidVariant(string(v)) {
		slog.Warn("invalid prompt variant, using standard", "variant", variant)
		v = prompts.PromptStandard
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		variant: v,
		policy:  bluemonday.StrictPolicy(),
	}
}

// Ping checks that the endpoint answers and knows the configured model.
func (c *Client) Ping(ctx context.Context) error {
	models, err := c.api.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	for _, m := range models.Models {
		if m.ID == c.model {
			return nil
		}
	}
	slog.Warn("model not listed by endpoint", "model", c.model, "available", len(models.Models))
	return nil
}

// Insights asks the model for a short written commentary on an
// assessment's aggregate results, in the given language.
func (c *Client) Insights(ctx context.Context, a model.AssessmentMetadata, s report.Summary, lang string) (string, error) {
	systemPrompt, err := prompts.BuildInsightsPrompt(c.variant, prompts.NewInsightData(a, s, lang))
	if err != nil {
		return "", fmt.Errorf("build insights prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Write the commentary now."},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("LLM returned no choices")
	}

	// Spreadsheet cells are plain text; drop any markup the model produced.
	text := strings.TrimSpace(html.UnescapeString(c.policy.Sanitize(resp.Choices[0].Message.Content)))
	slog.Debug("LLM insights", "assessment_id", a.ID, "variant", c.variant, "chars", len(text))
	if text == "" {
		return "", errors.New("LLM returned an empty commentary")
	}
	return text, nil
}
