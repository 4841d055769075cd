package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/fred-backend/internal/platform/apierr"
)

type denied struct{ at time.Time }

func (d denied) Error() string      { return "limit" }
func (d denied) RetryAt() time.Time { return d.at }

func render(t *testing.T, err error) (*httptest.ResponseRecorder, ErrorBody) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	RespondError(c, err)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestRespondErrorEnvelope(t *testing.T) {
	at := time.Now().Add(time.Hour)
	cases := []struct {
		name      string
		err       error
		status    int
		msg       string
		wantReset bool
	}{
		{name: "public_4xx", err: apierr.Public(http.StatusNotFound, "conversation_not_found", "Conversation not found", nil), status: 404, msg: "Conversation not found"},
		{name: "rate_limited", err: apierr.Public(http.StatusTooManyRequests, "rate_limited", "Daily message limit (20) reached. Please try again tomorrow.", denied{at: at}), status: 429, msg: "Daily message limit (20) reached. Please try again tomorrow.", wantReset: true},
		{name: "internal_hidden", err: apierr.New(http.StatusInternalServerError, "save_message_failed", errors.New("pq: relation missing")), status: 500},
		{name: "plain_error", err: errors.New("boom"), status: 500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := render(t, tc.err)
			require.Equal(t, tc.status, rec.Code)
			if tc.msg != "" {
				require.Equal(t, tc.msg, body.Error)
			}
			require.NotContains(t, body.Error, "pq:")
			require.NotContains(t, body.Error, "boom")
			require.Equal(t, tc.wantReset, body.ResetAt != nil)
			if tc.wantReset {
				require.WithinDuration(t, at, *body.ResetAt, time.Second)
				require.NotEmpty(t, rec.Header().Get("Retry-After"))
			}
		})
	}
}
