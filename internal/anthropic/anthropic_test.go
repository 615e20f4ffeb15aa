package anthropic

import (
	"testing"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomventa/sqlwarden/internal/config"
)

func TestNew(t *testing.T) {
	cfg := config.Default()
	_, err := New(cfg)
	assert.ErrorIs(t, err, ErrNoAPIKey)

	cfg.AnthropicAPIKey = "sk-ant-test"
	cfg.AnthropicModel = "claude-3-5-haiku-latest"
	c, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-3-5-haiku-latest", c.Name())
}

func TestExtractText(t *testing.T) {
	sql := "SELECT 1"
	resp := anthropic.MessagesResponse{Content: []anthropic.MessageContent{
		{Type: "tool_use"},
		{Type: "text", Text: &sql},
	}}
	assert.Equal(t, "SELECT 1", extractText(resp))
	assert.Empty(t, extractText(anthropic.MessagesResponse{}))
}
