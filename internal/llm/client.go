// Package llm is a thin OpenAI-compatible chat client.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 60 * time.Second
)

// Client sends chat completions to an OpenAI-compatible endpoint.
type Client struct {
	api     *openai.Client
	apiKey  string
	baseURL string
	model   string
	label   string // tier name used in log lines (e.g. "TUTOR")
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.logger = l } }

// normalizeBaseURL strips trailing slashes and the "/chat/completions" suffix
// from a raw base URL; the SDK appends the path itself.
func normalizeBaseURL(raw string) string {
	s := strings.TrimRight(raw, "/")
	return strings.TrimSuffix(s, "/chat/completions")
}

// NewTier creates a Client for a named tier. For each setting it first tries
// {prefix}_{KEY}; if unset it falls back to the shared OPENAI_{KEY}.
//
//	TUTOR_API_KEY   → OPENAI_API_KEY
//	TUTOR_BASE_URL  → OPENAI_BASE_URL
//	TUTOR_MODEL     → OPENAI_MODEL
//
// Expectations:
//   - Uses {prefix}_API_KEY / _BASE_URL / _MODEL when set and non-empty
//   - Falls back to OPENAI_* vars for any unset tier-specific var
//   - Empty prefix reads only OPENAI_*
//   - An unset model resolves to a default model
func NewTier(prefix string, opts ...Option) *Client {
	get := func(suffix, fallback string) string {
		if prefix != "" {
			if v := os.Getenv(prefix + "_" + suffix); v != "" {
				return v
			}
		}
		return os.Getenv(fallback)
	}
	label := prefix
	if label == "" {
		label = "LLM"
	}
	c := &Client{
		apiKey:  get("API_KEY", "OPENAI_API_KEY"),
		baseURL: normalizeBaseURL(get("BASE_URL", "OPENAI_BASE_URL")),
		model:   get("MODEL", "OPENAI_MODEL"),
		label:   label,
		logger:  zap.NewNop(),
	}
	if c.model == "" {
		c.model = defaultModel
	}
	for _, opt := range opts {
		opt(c)
	}

	cfg := openai.DefaultConfig(c.apiKey)
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: defaultTimeout}
	c.api = openai.NewClientWithConfig(cfg)
	return c
}

// Configured reports whether an API key is available.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Model returns the resolved model name.
func (c *Client) Model() string { return c.model }

// Usage reports token consumption for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Chat sends a system + user prompt and returns the assistant's text and
// token usage.
func (c *Client) Chat(ctx context.Context, system, user string) (string, Usage, error) {
	if !c.Configured() {
		return "", Usage{}, errors.New("llm: no API key configured")
	}
	c.logger.Debug("["+c.label+"] request",
		zap.String("model", c.model),
		zap.Int("system_len", len(system)),
		zap.String("user", user))

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", Usage{}, fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", Usage{}, errors.New("llm: no choices in response")
	}

	usage := Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	content := resp.Choices[0].Message.Content
	c.logger.Debug("["+c.label+"] response",
		zap.Int("prompt_tokens", usage.PromptTokens),
		zap.Int("completion_tokens", usage.CompletionTokens),
		zap.String("content", content))
	return content, usage, nil
}

// StripThinkBlocks removes all <think>...</think> blocks from s. Reasoning
// models emit these ahead of the actual answer; an unclosed block runs to the
// end of s.
func StripThinkBlocks(s string) string {
	for {
		start := strings.Index(s, "<think>")
		if start == -1 {
			break
		}
		end := strings.Index(s[start:], "</think>")
		if end == -1 {
			s = s[:start]
			break
		}
		s = s[:start] + s[start+end+len("</think>"):]
	}
	return strings.TrimSpace(s)
}
