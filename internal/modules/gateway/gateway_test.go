package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/fred-backend/internal/platform/apierr"
	"github.com/yungbote/fred-backend/internal/platform/claude"
	"github.com/yungbote/fred-backend/internal/platform/logger"
)

type fakeClient struct {
	got  claude.MessageRequest
	resp *claude.MessageResponse
	err  error
}

func (f *fakeClient) CreateMessage(ctx context.Context, req claude.MessageRequest) (*claude.MessageResponse, error) {
	f.got = req
	return f.resp, f.err
}

func TestSendAttachesCachedSystemPrompt(t *testing.T) {
	fc := &fakeClient{resp: &claude.MessageResponse{
		Text:  "ok",
		Model: "claude-sonnet-4-5-20250929",
		Usage: claude.Usage{InputTokens: 10, OutputTokens: 4, CacheCreationInputTokens: 1500, CacheReadInputTokens: 0},
	}}
	g := New(logger.Nop(), fc, Config{})

	res, err := g.Send(context.Background(), []Message{{Role: "user", Content: "hello"}}, Options{MaxTokens: 300, Temperature: 0.7})
	require.NoError(t, err)
	require.Equal(t, "ok", res.Text)
	require.EqualValues(t, 1500, res.Usage.CacheCreationTokens)

	require.Equal(t, SystemPrompt, fc.got.System)
	require.True(t, fc.got.CacheSystem)
	require.EqualValues(t, 300, fc.got.MaxTokens)
	require.Equal(t, 0.7, fc.got.Temperature)
	require.Equal(t, claude.DefaultModel, fc.got.Model)
}

func TestSendPlainHasNoSystemBlock(t *testing.T) {
	fc := &fakeClient{resp: &claude.MessageResponse{Text: "summary"}}
	g := New(logger.Nop(), fc, Config{Model: "custom-model"})

	res, err := g.SendPlain(context.Background(), SummaryPrompt("user: hi"), Options{MaxTokens: 300})
	require.NoError(t, err)
	require.Equal(t, "custom-model", res.Model)
	require.Empty(t, fc.got.System)
	require.False(t, fc.got.CacheSystem)
	require.Len(t, fc.got.Turns, 1)
	require.Contains(t, fc.got.Turns[0].Content, "Do not include any personally identifying information.\n\nuser: hi")
}

func TestSendWithSystemUsesCallerInstruction(t *testing.T) {
	fc := &fakeClient{resp: &claude.MessageResponse{Text: "{}"}}
	g := New(logger.Nop(), fc, Config{})

	_, err := g.SendWithSystem(context.Background(), HandoffInstruction, "User: hi", Options{MaxTokens: 1000, Temperature: 0.3})
	require.NoError(t, err)
	require.Equal(t, HandoffInstruction, fc.got.System)
	require.NotEqual(t, SystemPrompt, fc.got.System)
	require.Len(t, fc.got.Turns, 1)
	require.Equal(t, "User: hi", fc.got.Turns[0].Content)
	require.EqualValues(t, 1000, fc.got.MaxTokens)
}

func TestResourceMatchPromptLayout(t *testing.T) {
	got := ResourceMatchPrompt("user: hi", []string{"[a] A (hotline, National) - Tags: crisis - x", "[b] B (gp, Victoria) - Tags:  - y"})
	require.Contains(t, got, "\n\nConversation:\nuser: hi\n\nAvailable resources:\n[a] A (hotline, National) - Tags: crisis - x\n[b] B")
	require.True(t, strings.HasSuffix(got, "- y\n\nReturn valid JSON only, no markdown."))
}

func TestUnavailableKeepsClassifiedMessage(t *testing.T) {
	ae := apierr.As(Unavailable(classify(statusErr(http.StatusTooManyRequests))))
	require.Equal(t, http.StatusServiceUnavailable, ae.Status)
	require.Equal(t, "ai_unavailable", ae.Code)
	require.Equal(t, "AI service rate limit or credit limit reached. Please try again later.", ae.PublicMessage())

	ae = apierr.As(Unavailable(errors.New("boom")))
	require.Equal(t, http.StatusServiceUnavailable, ae.Status)
	require.NotContains(t, ae.PublicMessage(), "boom")
}

type statusErr int

func (s statusErr) Error() string       { return http.StatusText(int(s)) }
func (s statusErr) HTTPStatusCode() int { return int(s) }

func TestSendClassifiesProviderErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "rate_limited", err: statusErr(http.StatusTooManyRequests), want: KindCapacityExceeded},
		{name: "unauthorized", err: statusErr(http.StatusUnauthorized), want: KindAuthFailed},
		{name: "bad_request", err: statusErr(http.StatusBadRequest), want: KindMalformedRequest},
		{name: "overloaded", err: statusErr(529), want: KindOther},
		{name: "timeout", err: context.DeadlineExceeded, want: KindOther},
		{name: "network", err: errors.New("connection reset"), want: KindOther},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := New(logger.Nop(), &fakeClient{err: tc.err}, Config{})
			_, err := g.Send(context.Background(), []Message{{Role: "user", Content: "hi"}}, Options{MaxTokens: 10})
			var ge *Error
			require.ErrorAs(t, err, &ge)
			require.Equal(t, tc.want, ge.Kind)
			require.NotEmpty(t, ge.Message)
			if raw := tc.err.Error(); raw != "" {
				require.NotContains(t, ge.Message, raw)
			}
		})
	}
}

func TestNormalizeTurns(t *testing.T) {
	cases := []struct {
		name string
		in   []Message
		want []claude.Turn
	}{
		{name: "empty", in: nil, want: []claude.Turn{}},
		{
			name: "drops_leading_assistant",
			in:   []Message{{Role: "assistant", Content: "a"}, {Role: "user", Content: "u"}},
			want: []claude.Turn{{Role: "user", Content: "u"}},
		},
		{
			name: "joins_repeated_roles",
			in: []Message{
				{Role: "user", Content: "[summary]"},
				{Role: "assistant", Content: "ack"},
				{Role: "assistant", Content: "older reply"},
				{Role: "user", Content: "now"},
			},
			want: []claude.Turn{
				{Role: "user", Content: "[summary]"},
				{Role: "assistant", Content: "ack\n\nolder reply"},
				{Role: "user", Content: "now"},
			},
		},
		{
			name: "system_role_sent_as_user",
			in:   []Message{{Role: "system", Content: "s"}, {Role: "assistant", Content: "a"}},
			want: []claude.Turn{{Role: "user", Content: "s"}, {Role: "assistant", Content: "a"}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, normalizeTurns(tc.in))
		})
	}
}

func TestSendRejectsAssistantOnlyInput(t *testing.T) {
	fc := &fakeClient{}
	g := New(logger.Nop(), fc, Config{})
	_, err := g.Send(context.Background(), []Message{{Role: "assistant", Content: "a"}}, Options{MaxTokens: 10})
	var ge *Error
	require.ErrorAs(t, err, &ge)
	require.Equal(t, KindMalformedRequest, ge.Kind)
	require.Empty(t, fc.got.Turns)
}
