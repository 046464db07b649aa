package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMService(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *LLMConfig
		expectError bool
	}{
		{"OpenAI config", &LLMConfig{Provider: "openai", Model: "gpt-4o-mini", APIKey: "k"}, false},
		{"Compatible endpoint", &LLMConfig{Model: "local", BaseURL: "http://localhost:8080/v1"}, false},
		{"Missing model", &LLMConfig{Provider: "openai"}, true},
		{"Unsupported provider", &LLMConfig{Provider: "unsupported", Model: "m"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLLMService(tt.cfg)
			assert.Equal(t, tt.expectError, err != nil, "err = %v", err)
		})
	}
}

func TestConvertMessages(t *testing.T) {
	out := convertMessages([]Message{
		SystemPrompt("be brief"),
		UserMessage("hi"),
		AssistantMessage("hello"),
		{Role: "unknown", Content: "?"},
	})
	require.Len(t, out, 4)
	assert.Equal(t, "system", out[0].Role)
	assert.Equal(t, "user", out[1].Role)
	assert.Equal(t, "assistant", out[2].Role)
	assert.Equal(t, "user", out[3].Role)
	assert.Equal(t, "hello", out[2].Content)
}

func TestFormatMessages(t *testing.T) {
	msgs := FormatMessages("sys", "question", []Message{AssistantMessage("earlier")})
	require.Len(t, msgs, 3)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "earlier", msgs[1].Content)
	assert.Equal(t, UserMessage("question"), msgs[2])

	assert.Len(t, FormatMessages("", "q", nil), 1)
}

func TestLLMServiceChat(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"  Sure, Friday works.  "},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	llm, err := NewLLMService(&LLMConfig{Provider: "openai", Model: "gpt-4o-mini", APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)

	reply, err := llm.Chat(context.Background(), []Message{SystemPrompt("s"), UserMessage("Free Friday?")})
	require.NoError(t, err)
	assert.Equal(t, "  Sure, Friday works.  ", reply)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "Free Friday?", got.Messages[1].Content)
}

func TestLLMServiceChatErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") == "Bearer bad" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"invalid key","type":"invalid_request_error"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[]}`))
	}))
	defer server.Close()

	bad, err := NewLLMService(&LLMConfig{Model: "m", APIKey: "bad", BaseURL: server.URL})
	require.NoError(t, err)
	_, err = bad.Chat(context.Background(), []Message{UserMessage("x")})
	assert.ErrorContains(t, err, "chat completion failed")

	empty, err := NewLLMService(&LLMConfig{Model: "m", APIKey: "ok", BaseURL: server.URL})
	require.NoError(t, err)
	_, err = empty.Chat(context.Background(), []Message{UserMessage("x")})
	assert.ErrorContains(t, err, "empty response")
}
