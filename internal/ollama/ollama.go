package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tomventa/sqlwarden/internal/config"
)

const (
	// SQL generation wants the most likely answer, not a creative one.
	temperature   = 0.1
	statusTimeout = 1200 * time.Millisecond
)

// generateRequest represents the request payload for the Ollama API
type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

// generateResponse represents the response from the Ollama API
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

// Client represents an Ollama API client
type Client struct {
	baseURL string
	model   string
	http    *http.Client
}

// New creates a new Ollama client
func New(cfg *config.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.OllamaURL, "/"),
		model:   cfg.Model,
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// Name identifies the provider in messages.
func (c *Client) Name() string { return "ollama/" + c.model }

// Query sends a prompt to Ollama and returns the response
func (c *Client) Query(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Options: map[string]any{"temperature": temperature},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var ollamaResp generateResponse
	if err := json.Unmarshal(body, &ollamaResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("ollama returned HTTP %d", resp.StatusCode)
		}
		return "", fmt.Errorf("failed to decode ollama response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || ollamaResp.Error != "" {
		return "", fmt.Errorf("ollama returned HTTP %d: %s", resp.StatusCode, ollamaResp.Error)
	}

	return ollamaResp.Response, nil
}

// Status checks whether the Ollama server answers at all.
func (c *Client) Status(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("not reachable at %s", c.baseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d at %s", resp.StatusCode, c.baseURL)
	}
	return nil
}
