package conversation

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/fred-backend/internal/data/repos"
	types "github.com/yungbote/fred-backend/internal/domain"
	"github.com/yungbote/fred-backend/internal/modules/ratelimit"
	"github.com/yungbote/fred-backend/internal/platform/apierr"
	"github.com/yungbote/fred-backend/internal/platform/dbctx"
	"github.com/yungbote/fred-backend/internal/platform/logger"
)

const (
	defaultTitle  = "New conversation"
	maxTitleRunes = 100
	listLimit     = 100
)

type ConversationLimiter interface {
	CheckConversation(ctx context.Context, userID uuid.UUID) (ratelimit.Decision, error)
	ConsumeConversation(ctx context.Context, userID uuid.UUID) error
}

type UsecasesDeps struct {
	Log           *logger.Logger
	Conversations repos.ConversationRepo
	Messages      repos.MessageRepo
	Limiter       ConversationLimiter
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	return Usecases{deps: deps}
}

type Summary struct {
	*types.Conversation
	MessageCount int64 `json:"messageCount"`
}

func (u Usecases) List(ctx context.Context, userID uuid.UUID) ([]Summary, error) {
	dbc := dbctx.Context{Ctx: ctx}
	convs, err := u.deps.Conversations.ListByUser(dbc, userID, listLimit)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "load_conversations_failed", err)
	}
	ids := make([]uuid.UUID, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}
	counts, err := u.deps.Messages.CountByConversations(dbc, ids)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "load_conversations_failed", err)
	}
	out := make([]Summary, 0, len(convs))
	for _, c := range convs {
		out = append(out, Summary{Conversation: c, MessageCount: counts[c.ID]})
	}
	return out, nil
}

// Create opens a conversation explicitly and counts it against the weekly window.
func (u Usecases) Create(ctx context.Context, userID uuid.UUID, title string) (*types.Conversation, error) {
	decision, err := u.deps.Limiter.CheckConversation(ctx, userID)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "rate_limit_check_failed", err)
	}
	if !decision.Allowed {
		return nil, decision.APIError()
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultTitle
	}
	if r := []rune(title); len(r) > maxTitleRunes {
		title = string(r[:maxTitleRunes])
	}
	rows, err := u.deps.Conversations.Create(dbctx.Context{Ctx: ctx}, []*types.Conversation{{UserID: userID, Title: title}})
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "create_conversation_failed", err)
	}
	if err := u.deps.Limiter.ConsumeConversation(ctx, userID); err != nil {
		u.deps.Log.Warn("weekly conversation count not incremented", "user_id", userID.String(), "error", err)
	}
	return rows[0], nil
}

type Detail struct {
	*types.Conversation
	Messages []*types.Message `json:"messages"`
}

func (u Usecases) Get(ctx context.Context, userID, conversationID uuid.UUID) (*Detail, error) {
	conv, err := u.owned(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	msgs, err := u.deps.Messages.ListByConversation(dbctx.Context{Ctx: ctx}, conv.ID)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "load_messages_failed", err)
	}
	return &Detail{Conversation: conv, Messages: msgs}, nil
}

func (u Usecases) Messages(ctx context.Context, userID, conversationID uuid.UUID, limit int, before *time.Time) ([]*types.Message, error) {
	conv, err := u.owned(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	msgs, err := u.deps.Messages.ListPage(dbctx.Context{Ctx: ctx}, conv.ID, limit, before)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "load_messages_failed", err)
	}
	return msgs, nil
}

func (u Usecases) Delete(ctx context.Context, userID, conversationID uuid.UUID) error {
	ok, err := u.deps.Conversations.SoftDeleteOwned(dbctx.Context{Ctx: ctx}, conversationID, userID)
	if err != nil {
		return apierr.New(http.StatusInternalServerError, "delete_conversation_failed", err)
	}
	if !ok {
		return notFound(conversationID)
	}
	return nil
}

func (u Usecases) owned(ctx context.Context, userID, conversationID uuid.UUID) (*types.Conversation, error) {
	conv, err := u.deps.Conversations.GetOwned(dbctx.Context{Ctx: ctx}, conversationID, userID)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "load_conversation_failed", err)
	}
	if conv == nil {
		return nil, notFound(conversationID)
	}
	return conv, nil
}

func notFound(id uuid.UUID) *apierr.Error {
	return apierr.Public(http.StatusNotFound, "conversation_not_found", "Conversation not found", fmt.Errorf("conversation %s not found", id))
}
