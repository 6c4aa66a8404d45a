// Package compare asks an OpenAI-compatible chat model to compare two
// passages, such as the text selected from two articles side by side.
package compare

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/leofalp/aigo/providers/ai"
	"github.com/leofalp/aigo/providers/ai/openai"

	"github.com/tsawler/wikibox/config"
)

var (
	// ErrEmptyText is returned when either passage is blank.
	ErrEmptyText = errors.New("both texts are required")

	// ErrNotConfigured is returned by a Comparer without a provider.
	ErrNotConfigured = errors.New("comparison is not configured")

	// ErrEmptyResponse is returned when the model answers with no text.
	ErrEmptyResponse = errors.New("empty response from model")
)

// SystemPrompt frames the model as an article comparison expert.
const SystemPrompt = "你是一个文章对比专家，能够帮助用户对比两篇文章的内容。"

// Comparer sends comparison prompts to a chat provider.
type Comparer struct {
	provider    ai.Provider
	model       string
	temperature float32
}

// New returns a Comparer using provider. An empty model leaves the choice
// to the provider.
func New(provider ai.Provider, model string, temperature float32) *Comparer {
	return &Comparer{provider: provider, model: model, temperature: temperature}
}

// NewFromConfig returns a Comparer backed by the OpenAI-compatible endpoint
// in cfg, or nil when no API key is configured.
func NewFromConfig(cfg config.LLMConfig) *Comparer {
	if cfg.APIKey == "" {
		return nil
	}
	p := openai.NewOpenAIProvider()
	p.WithAPIKey(cfg.APIKey)
	p.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	p.WithHttpClient(&http.Client{Timeout: cfg.Timeout})
	return New(p, cfg.Model, cfg.Temperature)
}

// Prompt builds the user message for two passages.
func Prompt(text1, text2 string) string {
	return fmt.Sprintf("请对比以下两篇文章的内容：\n文章1:\n%s\n文章2:\n%s", text1, text2)
}

// Compare returns the model's comparison of text1 and text2.
func (c *Comparer) Compare(ctx context.Context, text1, text2 string) (string, error) {
	if c == nil || c.provider == nil {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(text1) == "" || strings.TrimSpace(text2) == "" {
		return "", ErrEmptyText
	}

	resp, err := c.provider.SendMessage(ctx, ai.ChatRequest{
		Model:        c.model,
		SystemPrompt: SystemPrompt,
		Messages: []ai.Message{
			{Role: ai.RoleUser, Content: Prompt(text1, text2)},
		},
		GenerationConfig: &ai.GenerationConfig{Temperature: c.temperature},
	})
	if err != nil {
		return "", fmt.Errorf("comparing texts: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Content, nil
}
