package sendgrid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/fred-backend/internal/platform/httpx"
	"github.com/yungbote/fred-backend/internal/platform/logger"
)

func TestSendBuildsMailPayload(t *testing.T) {
	var got mailSendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v3/mail/send", r.URL.Path)
		require.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("X-Message-Id", "m-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c, err := New(logger.Nop(), Config{APIKey: "sg-key", BaseURL: srv.URL, DefaultFromEmail: "alerts@fred.example", DefaultFromName: "FRED"})
	require.NoError(t, err)

	res, err := c.Send(context.Background(), SendEmailRequest{
		To:      []EmailAddress{{Email: "oncall@fred.example"}},
		Subject: "High severity crisis flag",
		Text:    "flag id 1",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, res.StatusCode)
	require.Equal(t, "m-1", res.MessageID)
	require.Equal(t, "alerts@fred.example", got.From.Email)
	require.Equal(t, "FRED", got.From.Name)
	require.Len(t, got.Personalizations, 1)
	require.Equal(t, "text/plain", got.Content[0].Type)
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad from"}]}`))
	}))
	defer srv.Close()

	c, err := New(logger.Nop(), Config{APIKey: "k", BaseURL: srv.URL, DefaultFromEmail: "a@b.c", MaxRetries: 3})
	require.NoError(t, err)
	_, err = c.Send(context.Background(), SendEmailRequest{To: []EmailAddress{{Email: "x@y.z"}}, Subject: "s", Text: "t"})
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, httpx.StatusCode(err))
	require.Contains(t, err.Error(), "bad from")
	require.EqualValues(t, 1, calls.Load())
}

func TestSendValidates(t *testing.T) {
	c, err := New(logger.Nop(), Config{APIKey: "k", BaseURL: "http://127.0.0.1:0"})
	require.NoError(t, err)
	_, err = c.Send(context.Background(), SendEmailRequest{To: []EmailAddress{{Email: "x@y.z"}}, Subject: "s", Text: "t"})
	require.Error(t, err)
}
