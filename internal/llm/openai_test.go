package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/deedscan/internal/common"
)

func TestNewOpenAIClient(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		wantModel string
		wantErr   bool
	}{
		{
			name:      "valid config",
			config:    Config{APIKey: "test-key"},
			wantModel: "gpt-4o-mini",
		},
		{
			name:    "missing API key",
			config:  Config{},
			wantErr: true,
		},
		{
			name:      "custom model",
			config:    Config{APIKey: "test-key", Model: "gpt-4o", MaxTokens: 200},
			wantModel: "gpt-4o",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := newOpenAIClient(tt.config)
			if tt.wantErr {
				require.ErrorIs(t, err, common.ErrMissingConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, client.model)
		})
	}
}

func newOpenAITestServer(t *testing.T, handler http.HandlerFunc) *openAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := newOpenAIClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1/"})
	require.NoError(t, err)
	return client
}

func TestOpenAIComplete(t *testing.T) {
	var got map[string]any
	client := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "[{\"surveyNumber\":\"1\",\"documentNumber\":\"A\"}]"}
			}]
		}`))
	})

	out, err := client.Complete(context.Background(), Request{
		SystemPrompt:    "system",
		UserPrompt:      "segment text",
		MaxOutputTokens: 8000,
	})
	require.NoError(t, err)
	assert.Equal(t, `[{"surveyNumber":"1","documentNumber":"A"}]`, out)

	assert.Equal(t, "gpt-4o-mini", got["model"])
	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
	assert.EqualValues(t, 8000, got["max_tokens"])
}

func TestOpenAIRateLimit(t *testing.T) {
	client := newOpenAITestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
	})

	_, err := client.Complete(context.Background(), Request{UserPrompt: "x"})
	require.Error(t, err)

	var rl *RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 7*time.Second, rl.RetryAfter)
	assert.Equal(t, http.StatusTooManyRequests, rl.StatusCode)
	assert.ErrorIs(t, err, common.ErrExtractionTransport)
}

func TestOpenAIServerError(t *testing.T) {
	client := newOpenAITestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
	})

	_, err := client.Complete(context.Background(), Request{UserPrompt: "x"})
	require.ErrorIs(t, err, common.ErrExtractionTransport)

	var rl *RateLimitError
	assert.False(t, errors.As(err, &rl))
}

func TestOpenAINoChoices(t *testing.T) {
	client := newOpenAITestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[]}`))
	})

	_, err := client.Complete(context.Background(), Request{UserPrompt: "x"})
	assert.ErrorIs(t, err, common.ErrExtractionTransport)
}
