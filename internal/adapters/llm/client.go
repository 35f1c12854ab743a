// Package llm talks to an OpenAI-compatible chat completion endpoint
// (GitHub Models by default).
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"review_sentiment/internal/adapters/observability"
)

const (
	DefaultEndpoint = "https://models.github.ai/inference"
	DefaultModel    = "gpt-4o-mini"

	maxTokens = 1000
)

type Config struct {
	Token    string
	Endpoint string
	Model    string
	Timeout  time.Duration
}

type Client struct {
	api   *openai.Client
	model string
}

// New returns nil, nil when no token is configured: running without a remote
// model is a supported mode.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, nil
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	clientConfig := openai.DefaultConfig(cfg.Token)
	clientConfig.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{api: openai.NewClientWithConfig(clientConfig), model: cfg.Model}, nil
}

func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 1.0,
		TopP:        1.0,
		MaxTokens:   maxTokens,
	})
	observability.ObserveExternal("model", c.model, statusOf(err), time.Since(start))
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func statusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
