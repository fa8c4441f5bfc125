package inference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// Gemini's OpenAI-compatible endpoint and default model.
const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultModel   = "gemini-2.5-flash"
)

// Provider completes a single prompt. The response is free-form text.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Config configures the chat completion client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
	// MaxRetries is the SDK's retry count for 408/409/429/5xx and
	// connection errors. Retries are not counted against a Budget.
	MaxRetries int
}

// ChatClient implements Provider over any OpenAI-compatible chat API.
type ChatClient struct {
	client      *openai.Client
	model       string
	temperature float64
}

var _ Provider = (*ChatClient)(nil)

// NewChatClient builds a client. The API key is required.
func NewChatClient(cfg Config) (*ChatClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("inference: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(cfg.MaxRetries),
	)
	return &ChatClient{client: &client, model: cfg.Model, temperature: cfg.Temperature}, nil
}

// Name implements Provider.
func (c *ChatClient) Name() string { return "gemini" }

// Complete implements Provider.
func (c *ChatClient) Complete(ctx context.Context, prompt string) (string, error) {
	response, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(prompt),
					},
				},
			},
		},
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("inference request failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", errors.New("inference: no choices in response")
	}
	return response.Choices[0].Message.Content, nil
}
