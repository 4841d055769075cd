package chat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/fred-backend/internal/data/repos"
	"github.com/yungbote/fred-backend/internal/data/repos/testutil"
	types "github.com/yungbote/fred-backend/internal/domain"
	"github.com/yungbote/fred-backend/internal/modules/conversation"
	"github.com/yungbote/fred-backend/internal/modules/crisis"
	"github.com/yungbote/fred-backend/internal/modules/gateway"
	"github.com/yungbote/fred-backend/internal/modules/ratelimit"
	"github.com/yungbote/fred-backend/internal/modules/safety"
	"github.com/yungbote/fred-backend/internal/modules/usage"
	"github.com/yungbote/fred-backend/internal/platform/apierr"
	"github.com/yungbote/fred-backend/internal/platform/claude"
	"github.com/yungbote/fred-backend/internal/platform/dbctx"
)

type fakeClaude struct {
	reqs  []claude.MessageRequest
	reply string
	usage claude.Usage
	err   error
}

func (f *fakeClaude) CreateMessage(_ context.Context, req claude.MessageRequest) (*claude.MessageResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &claude.MessageResponse{Text: f.reply, Model: req.Model, StopReason: "end_turn", Usage: f.usage}, nil
}

type statusErr int

func (s statusErr) Error() string       { return "provider says no" }
func (s statusErr) HTTPStatusCode() int { return int(s) }

type harness struct {
	uc     Usecases
	model  *fakeClaude
	users  repos.UserRepo
	convs  repos.ConversationRepo
	msgs   repos.MessageRepo
	flags  repos.CrisisFlagRepo
	usage  repos.UsageLogRepo
	userID uuid.UUID
}

func newHarness(t *testing.T, dailyLimit int) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	h := &harness{
		model:  &fakeClaude{reply: "That sounds really hard.", usage: claude.Usage{InputTokens: 1200, OutputTokens: 80, CacheReadInputTokens: 1000}},
		users:  repos.NewUserRepo(db, log),
		convs:  repos.NewConversationRepo(db, log),
		msgs:   repos.NewMessageRepo(db, log),
		flags:  repos.NewCrisisFlagRepo(db, log),
		usage:  repos.NewUsageLogRepo(db, log),
		userID: uuid.New(),
	}
	limiter := ratelimit.New(ratelimit.Deps{Log: log, Users: h.users, Limits: ratelimit.Limits{DailyMessages: dailyLimit, WeeklyConversations: 5}})
	h.uc = New(UsecasesDeps{
		Log:           log,
		Conversations: h.convs,
		Messages:      h.msgs,
		Limiter:       limiter,
		Crisis:        crisis.New(crisis.UsecasesDeps{Log: log, Flags: h.flags, RedactSnippets: true}),
		Context: conversation.NewBuilder(conversation.BuilderDeps{
			Log: log, Conversations: h.convs, Messages: h.msgs,
			Config: conversation.ContextConfig{WindowSize: 10, SummarizationThreshold: 20},
		}),
		Model: gateway.New(log, h.model, gateway.Config{}),
		Usage: usage.New(usage.UsecasesDeps{Log: log, Usage: h.usage}),
		Config: TurnConfig{
			MaxMessageLength: 2000,
			ChatMaxTokens:    300,
			CrisisMaxTokens:  500,
			Temperature:      0.7,
		},
	})
	return h
}

func (h *harness) messages(t *testing.T, convID uuid.UUID) []*types.Message {
	t.Helper()
	out, err := h.msgs.ListByConversation(dbctx.Context{Ctx: context.Background()}, convID)
	require.NoError(t, err)
	return out
}

func (h *harness) allFlags(t *testing.T) []*types.CrisisFlag {
	t.Helper()
	out, _, err := h.flags.List(dbctx.Context{Ctx: context.Background()}, repos.CrisisFlagFilter{}, 0, 100)
	require.NoError(t, err)
	return out
}

func requireStatus(t *testing.T, err error, status int) *apierr.Error {
	t.Helper()
	var ae *apierr.Error
	require.True(t, errors.As(err, &ae), "expected *apierr.Error, got %v", err)
	require.Equal(t, status, ae.Status)
	return ae
}

func TestSendTurnHappyPath(t *testing.T) {
	h := newHarness(t, 20)
	ctx := context.Background()
	msg := "I've been feeling stressed about exams and can't sleep well lately"

	out, err := h.uc.SendTurn(ctx, TurnInput{UserID: h.userID, Message: msg})
	require.NoError(t, err)
	require.Equal(t, "That sounds really hard.", out.Message)
	require.False(t, out.IsCrisis)
	require.EqualValues(t, 1200, out.Usage.InputTokens)
	require.EqualValues(t, 80, out.Usage.OutputTokens)
	require.EqualValues(t, 1000, out.Usage.CachedTokens)
	require.Equal(t, usage.EstimateCostCents(usage.Tokens{InputTokens: 1200, OutputTokens: 80, CacheReadTokens: 1000}), out.Usage.EstimatedCost)

	require.Len(t, h.model.reqs, 1)
	require.EqualValues(t, 300, h.model.reqs[0].MaxTokens)
	require.Equal(t, 0.7, h.model.reqs[0].Temperature)

	conv, err := h.convs.GetOwned(dbctx.Context{Ctx: ctx}, out.ConversationID, h.userID)
	require.NoError(t, err)
	require.NotNil(t, conv)
	require.Equal(t, msg[:50], conv.Title)

	stored := h.messages(t, out.ConversationID)
	require.Len(t, stored, 2)
	require.Equal(t, types.RoleUser, stored[0].Role)
	require.Equal(t, types.RoleAssistant, stored[1].Role)
	require.True(t, stored[1].HasUsage())
	require.EqualValues(t, 1000, *stored[1].CachedTokens)

	u, err := h.users.GetByID(dbctx.Context{Ctx: ctx}, h.userID)
	require.NoError(t, err)
	require.Equal(t, 1, u.DailyMessageCount)
	require.Equal(t, 0, u.WeeklyConversationCount)

	day, err := h.usage.GetForDay(dbctx.Context{Ctx: ctx}, h.userID, time.Now())
	require.NoError(t, err)
	require.NotNil(t, day)
	require.EqualValues(t, 1, day.MessageCount)

	// Continue the same conversation.
	_, err = h.uc.SendTurn(ctx, TurnInput{UserID: h.userID, Message: "thanks", ConversationID: out.ConversationID.String()})
	require.NoError(t, err)
	require.Len(t, h.messages(t, out.ConversationID), 4)
	require.Len(t, h.model.reqs[1].Turns, 3)
}

func TestSendTurnCrisisGetsLargerBudgetAndFlag(t *testing.T) {
	h := newHarness(t, 20)
	out, err := h.uc.SendTurn(context.Background(), TurnInput{UserID: h.userID, Message: "I want to kill myself tonight"})
	require.NoError(t, err)
	require.True(t, out.IsCrisis)
	require.EqualValues(t, 500, h.model.reqs[0].MaxTokens)

	flags := h.allFlags(t)
	require.Len(t, flags, 1)
	require.Equal(t, types.SeverityHigh, flags[0].Severity)
}

func TestSendTurnCrisisFlagReferencesNewConversation(t *testing.T) {
	h := newHarness(t, 20)
	out, err := h.uc.SendTurn(context.Background(), TurnInput{UserID: h.userID, Message: "I want to kill myself tonight"})
	require.NoError(t, err)

	flags := h.allFlags(t)
	require.Len(t, flags, 1)
	require.NotNil(t, flags[0].ConversationID)
	require.Equal(t, out.ConversationID, *flags[0].ConversationID)
	require.Equal(t, h.userID, flags[0].UserID)
}

func TestSendTurnCrisisFlagIgnoresForeignConversation(t *testing.T) {
	h := newHarness(t, 20)
	ctx := context.Background()
	other, err := h.uc.SendTurn(ctx, TurnInput{UserID: uuid.New(), Message: "hello"})
	require.NoError(t, err)

	for _, id := range []string{other.ConversationID.String(), uuid.NewString(), "not-a-uuid"} {
		_, err := h.uc.SendTurn(ctx, TurnInput{UserID: h.userID, Message: "I want to kill myself tonight", ConversationID: id})
		requireStatus(t, err, http.StatusNotFound)
	}

	flags := h.allFlags(t)
	require.Len(t, flags, 3)
	for _, f := range flags {
		require.Equal(t, h.userID, f.UserID)
		require.Nil(t, f.ConversationID)
	}
	require.Len(t, h.messages(t, other.ConversationID), 2)
	require.Len(t, h.model.reqs, 1)
}

func TestSendTurnValidation(t *testing.T) {
	h := newHarness(t, 20)
	cases := []struct {
		name string
		msg  string
	}{
		{name: "empty", msg: ""},
		{name: "whitespace", msg: "   \n"},
		{name: "too_long", msg: strings.Repeat("a", 2001)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.uc.SendTurn(context.Background(), TurnInput{UserID: h.userID, Message: tc.msg})
			requireStatus(t, err, http.StatusBadRequest)
		})
	}
	require.Empty(t, h.model.reqs)

	_, err := h.uc.SendTurn(context.Background(), TurnInput{UserID: h.userID, Message: strings.Repeat("a", 2000)})
	require.NoError(t, err)
}

func TestSendTurnDailyLimit(t *testing.T) {
	h := newHarness(t, 2)
	ctx := context.Background()
	first, err := h.uc.SendTurn(ctx, TurnInput{UserID: h.userID, Message: "one"})
	require.NoError(t, err)
	_, err = h.uc.SendTurn(ctx, TurnInput{UserID: h.userID, Message: "two", ConversationID: first.ConversationID.String()})
	require.NoError(t, err)

	_, err = h.uc.SendTurn(ctx, TurnInput{UserID: h.userID, Message: "three", ConversationID: first.ConversationID.String()})
	ae := requireStatus(t, err, http.StatusTooManyRequests)
	require.Equal(t, "Daily message limit (2) reached. Please try again tomorrow.", ae.PublicMessage())
	var denied *ratelimit.DeniedError
	require.True(t, errors.As(err, &denied))
	require.True(t, denied.ResetAt.After(time.Now()))

	require.Len(t, h.messages(t, first.ConversationID), 4)
	require.Len(t, h.model.reqs, 2)
}

func TestSendTurnBlockedReplyIsNotCounted(t *testing.T) {
	h := newHarness(t, 20)
	h.model.reply = "You have depression and should rest."
	ctx := context.Background()

	out, err := h.uc.SendTurn(ctx, TurnInput{UserID: h.userID, Message: "why do I feel flat all the time"})
	require.NoError(t, err)
	require.Equal(t, safety.FallbackReply, out.Message)
	require.Equal(t, TurnUsage{}, out.Usage)

	stored := h.messages(t, out.ConversationID)
	require.Len(t, stored, 2)
	require.Equal(t, safety.FallbackReply, stored[1].Content)
	require.False(t, stored[1].HasUsage())
	require.NotNil(t, stored[1].ModelUsed)

	u, err := h.users.GetByID(dbctx.Context{Ctx: ctx}, h.userID)
	require.NoError(t, err)
	require.Equal(t, 0, u.DailyMessageCount)
	day, err := h.usage.GetForDay(dbctx.Context{Ctx: ctx}, h.userID, time.Now())
	require.NoError(t, err)
	require.Nil(t, day)
}

func TestSendTurnUnknownConversation(t *testing.T) {
	h := newHarness(t, 20)
	ctx := context.Background()
	other, err := h.uc.SendTurn(ctx, TurnInput{UserID: uuid.New(), Message: "hello"})
	require.NoError(t, err)

	for _, id := range []string{uuid.NewString(), other.ConversationID.String(), "not-a-uuid"} {
		_, err := h.uc.SendTurn(ctx, TurnInput{UserID: h.userID, Message: "hi", ConversationID: id})
		requireStatus(t, err, http.StatusNotFound)
	}
	require.Len(t, h.messages(t, other.ConversationID), 2)
}

func TestSendTurnProviderFailure(t *testing.T) {
	h := newHarness(t, 20)
	h.model.err = statusErr(http.StatusTooManyRequests)
	ctx := context.Background()

	_, err := h.uc.SendTurn(ctx, TurnInput{UserID: h.userID, Message: "I can't go on like this"})
	ae := requireStatus(t, err, http.StatusServiceUnavailable)
	require.NotContains(t, ae.PublicMessage(), "provider says no")

	// The flag is written before the model is called.
	require.Len(t, h.allFlags(t), 1)

	convs, err := h.convs.ListByUser(dbctx.Context{Ctx: ctx}, h.userID, 10)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	stored := h.messages(t, convs[0].ID)
	require.Len(t, stored, 1)
	require.Equal(t, types.RoleUser, stored[0].Role)

	u, err := h.users.GetByID(dbctx.Context{Ctx: ctx}, h.userID)
	require.NoError(t, err)
	require.Equal(t, 0, u.DailyMessageCount)
}
