// Package anthropic translates questions into SQL with Anthropic's Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/tomventa/sqlwarden/internal/config"
)

const maxTokens = 1024

// ErrNoAPIKey is returned when the provider is selected without a key.
var ErrNoAPIKey = errors.New("ANTHROPIC_API_KEY is not set")

// Client wraps the Messages API for single-turn SQL generation.
type Client struct {
	client *anthropic.Client
	model  string
}

// New creates a new Anthropic client
func New(cfg *config.Config) (*Client, error) {
	if strings.TrimSpace(cfg.AnthropicAPIKey) == "" {
		return nil, ErrNoAPIKey
	}
	return &Client{
		client: anthropic.NewClient(cfg.AnthropicAPIKey),
		model:  cfg.AnthropicModel,
	}, nil
}

// Name identifies the provider in messages.
func (c *Client) Name() string { return "anthropic/" + c.model }

// Query sends a prompt and returns the first text block of the reply.
func (c *Client) Query(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	text := extractText(resp)
	if text == "" {
		return "", errors.New("anthropic returned no text")
	}
	return text, nil
}

func extractText(resp anthropic.MessagesResponse) string {
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			return *block.Text
		}
	}
	return ""
}
