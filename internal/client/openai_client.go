package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	openAISystemPrompt = "You format SMS messages for a fintech business."
	openAIMaxTokens    = 160
	temperature        = 0.3
)

// OpenAIClient calls the chat completions endpoint of an OpenAI-compatible API.
type OpenAIClient struct {
	model  string
	client *openai.Client
}

func NewOpenAIClient(baseURL, apiKey, model string, timeout time.Duration) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIClient{
		model:  model,
		client: openai.NewClientWithConfig(cfg),
	}
}

func (c *OpenAIClient) Name() string { return "openai" }

// Generate returns the trimmed content of the first choice, or "" when the
// API answered without one.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: openAISystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   openAIMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
