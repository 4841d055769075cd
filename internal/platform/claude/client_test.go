package claude

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/fred-backend/internal/platform/httpx"
	"github.com/yungbote/fred-backend/internal/platform/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(logger.Nop(), Config{APIKey: "test-key", BaseURL: srv.URL + "/", MaxRetries: 0})
	require.NoError(t, err)
	return c
}

func TestCreateMessageSendsCachedSystemBlock(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1", "type": "message", "role": "assistant",
			"model": "claude-sonnet-4-5-20250929",
			"content": [{"type": "text", "text": "I'm here with you."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 7, "cache_creation_input_tokens": 0, "cache_read_input_tokens": 900}
		}`)
	})

	resp, err := c.CreateMessage(context.Background(), MessageRequest{
		System:      "be kind",
		CacheSystem: true,
		Turns:       []Turn{{Role: "user", Content: "hi"}},
		MaxTokens:   300,
		Temperature: 0.7,
	})
	require.NoError(t, err)
	require.Equal(t, "I'm here with you.", resp.Text)
	require.EqualValues(t, 12, resp.Usage.InputTokens)
	require.EqualValues(t, 7, resp.Usage.OutputTokens)
	require.EqualValues(t, 900, resp.Usage.CacheReadInputTokens)

	require.Equal(t, DefaultModel, body["model"])
	require.EqualValues(t, 300, body["max_tokens"])
	system, ok := body["system"].([]any)
	require.True(t, ok, "system should be a block list, got %T", body["system"])
	require.Len(t, system, 1)
	block := system[0].(map[string]any)
	require.Equal(t, "be kind", block["text"])
	require.Equal(t, map[string]any{"type": "ephemeral"}, block["cache_control"])
}

func TestCreateMessageCarriesStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	})

	_, err := c.CreateMessage(context.Background(), MessageRequest{
		Turns:     []Turn{{Role: "user", Content: "hi"}},
		MaxTokens: 10,
	})
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, httpx.StatusCode(err))
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(logger.Nop(), Config{})
	require.Error(t, err)
}
