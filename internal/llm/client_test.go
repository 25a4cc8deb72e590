package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBaseURL(t *testing.T) {
	// Trailing slashes and a pasted completions path reduce to the API root
	cases := []struct{ in, want string }{
		{"https://openrouter.ai/api/v1/chat/completions", "https://openrouter.ai/api/v1"},
		{"https://openrouter.ai/api/v1/chat/completions/", "https://openrouter.ai/api/v1"},
		{"http://localhost:11434/v1//", "http://localhost:11434/v1"},
		{"https://tutor.example.org", "https://tutor.example.org"},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, normalizeBaseURL(c.in), c.in)
	}
}

// clearTier empties every variable NewTier reads for the TUTOR tier.
func clearTier(t *testing.T) {
	t.Helper()
	for _, k := range []string{"TUTOR_API_KEY", "TUTOR_BASE_URL", "TUTOR_MODEL", "OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL"} {
		t.Setenv(k, "")
	}
}

func TestNewTier_Resolution(t *testing.T) {
	// Tier variables win; unset ones fall back to OPENAI_*; the model has a default
	tests := []struct {
		name      string
		prefix    string
		env       map[string]string
		wantKey   string
		wantURL   string
		wantModel string
		wantLabel string
	}{
		{
			name:   "tier values",
			prefix: "TUTOR",
			env: map[string]string{
				"TUTOR_API_KEY": "sk-kid", "TUTOR_BASE_URL": "https://proxy.local/v1/", "TUTOR_MODEL": "small",
				"OPENAI_API_KEY": "sk-shared", "OPENAI_MODEL": "big",
			},
			wantKey: "sk-kid", wantURL: "https://proxy.local/v1", wantModel: "small", wantLabel: "TUTOR",
		},
		{
			name:      "shared fallback",
			prefix:    "TUTOR",
			env:       map[string]string{"OPENAI_API_KEY": "sk-shared", "OPENAI_MODEL": "big"},
			wantKey:   "sk-shared",
			wantModel: "big",
			wantLabel: "TUTOR",
		},
		{
			name:      "no prefix",
			prefix:    "",
			env:       map[string]string{"TUTOR_API_KEY": "sk-kid", "OPENAI_API_KEY": "sk-shared"},
			wantKey:   "sk-shared",
			wantModel: defaultModel,
			wantLabel: "LLM",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTier(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			c := NewTier(tt.prefix)
			assert.Equal(t, tt.wantKey, c.apiKey)
			assert.Equal(t, tt.wantURL, c.baseURL)
			assert.Equal(t, tt.wantModel, c.Model())
			assert.Equal(t, tt.wantLabel, c.label)
		})
	}
}

func TestConfigured(t *testing.T) {
	// Configured is false without a key and on a nil client
	clearTier(t)
	assert.False(t, NewTier("TUTOR").Configured())
	var c *Client
	assert.False(t, c.Configured())
}

func TestChat_NoKey(t *testing.T) {
	// Chat refuses to send without a key
	clearTier(t)
	_, _, err := NewTier("TUTOR").Chat(context.Background(), "sys", "hi")
	require.Error(t, err)
	assert.Regexp(t, `^llm: `, err.Error())
}

func TestChat_SendsPromptsAndReadsReply(t *testing.T) {
	// Chat posts system and user messages and returns the first choice with usage
	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, path = r.Header.Get("Authorization"), r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Count the squares!"},"finish_reason":"stop"}],"usage":{"prompt_tokens":12,"completion_tokens":4,"total_tokens":16}}`)
	}))
	defer srv.Close()

	clearTier(t)
	t.Setenv("TUTOR_API_KEY", "sk-test")
	t.Setenv("TUTOR_BASE_URL", srv.URL+"/v1/chat/completions")
	t.Setenv("TUTOR_MODEL", "m1")

	text, usage, err := NewTier("TUTOR").Chat(context.Background(), "be kind", "what next?")
	require.NoError(t, err)
	assert.Equal(t, "Count the squares!", text)
	assert.Equal(t, 12, usage.PromptTokens)
	assert.Equal(t, 16, usage.TotalTokens)
	assert.Equal(t, "/v1/chat/completions", path)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "m1", body.Model)
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "system", body.Messages[0].Role)
	assert.Equal(t, "what next?", body.Messages[1].Content)
}

func TestChat_HTTPErrorWrapped(t *testing.T) {
	// Non-2xx responses surface as wrapped llm errors
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	}))
	defer srv.Close()

	clearTier(t)
	t.Setenv("TUTOR_API_KEY", "sk-test")
	t.Setenv("TUTOR_BASE_URL", srv.URL)
	_, _, err := NewTier("TUTOR").Chat(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Regexp(t, `^llm: chat completion`, err.Error())
}

func TestStripThinkBlocks(t *testing.T) {
	// Reasoning blocks are removed, closed or not, and the rest is trimmed
	cases := []struct{ in, want string }{
		{"<think>let me reason</think>\nTry turning right!", "Try turning right!"},
		{"<think>a</think>Move<think>b</think> forward", "Move forward"},
		{"Nice work! <think>orphaned reasoning", "Nice work!"},
		{"  Keep going 🐝 ", "Keep going 🐝"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, StripThinkBlocks(c.in), c.in)
	}
}
