package conversation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/fred-backend/internal/data/repos"
	types "github.com/yungbote/fred-backend/internal/domain"
	"github.com/yungbote/fred-backend/internal/jobs/runtime"
	"github.com/yungbote/fred-backend/internal/modules/gateway"
	perrors "github.com/yungbote/fred-backend/internal/pkg/errors"
	"github.com/yungbote/fred-backend/internal/platform/dbctx"
	"github.com/yungbote/fred-backend/internal/platform/logger"
)

const (
	summaryAck = "I understand. Thank you for the context. I'll keep our previous conversation in mind as we continue."

	TaskSummarize = "conversation.summarize"
)

type ContextConfig struct {
	WindowSize             int
	SummarizationThreshold int
}

type TaskQueue interface {
	Enqueue(task runtime.Task) error
}

// SummarizeTask is the payload of a TaskSummarize task.
type SummarizeTask struct {
	ConversationID uuid.UUID
}

type BuilderDeps struct {
	Log           *logger.Logger
	Conversations repos.ConversationRepo
	Messages      repos.MessageRepo
	Queue         TaskQueue
	Config        ContextConfig
}

// Builder assembles the bounded history sent with each turn.
type Builder struct {
	log   *logger.Logger
	convs repos.ConversationRepo
	msgs  repos.MessageRepo
	queue TaskQueue
	cfg   ContextConfig
}

func NewBuilder(deps BuilderDeps) *Builder {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Builder{
		log:   log.With("service", "ContextBuilder"),
		convs: deps.Conversations,
		msgs:  deps.Messages,
		queue: deps.Queue,
		cfg:   deps.Config,
	}
}

// Build returns the conversation's history for the model and may schedule a background summary.
// It never waits on summarization.
func (b *Builder) Build(ctx context.Context, conversationID uuid.UUID) ([]gateway.Message, error) {
	dbc := dbctx.Context{Ctx: ctx}
	conv, err := b.convs.GetByID(dbc, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, perrors.ErrNotFound)
	}
	all, err := b.msgs.ListByConversation(dbc, conversationID)
	if err != nil {
		return nil, err
	}

	out := assemble(conv, all, b.cfg.WindowSize)

	if ShouldSummarize(conv, len(all), b.cfg) && b.queue != nil {
		if err := b.queue.Enqueue(runtime.Task{Type: TaskSummarize, Payload: SummarizeTask{ConversationID: conversationID}}); err != nil {
			b.log.Warn("summarization not scheduled", "conversation_id", conversationID.String(), "error", err)
		}
	}
	return out, nil
}

func assemble(conv *types.Conversation, all []*types.Message, window int) []gateway.Message {
	if len(all) <= window {
		out := make([]gateway.Message, 0, len(all))
		for _, m := range all {
			out = append(out, gateway.Message{Role: m.Role, Content: m.Content})
		}
		return out
	}

	recent := all[len(all)-window:]
	out := make([]gateway.Message, 0, window+2)
	if conv.HasSummary() {
		out = append(out,
			gateway.Message{Role: types.RoleUser, Content: fmt.Sprintf("[Previous conversation summary: %s]", *conv.SummaryText)},
			gateway.Message{Role: types.RoleAssistant, Content: summaryAck},
		)
	}
	for _, m := range recent {
		out = append(out, gateway.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

// ShouldSummarize is true past the threshold when no summary exists yet or when more than a
// window's worth of messages has arrived since the last one.
func ShouldSummarize(conv *types.Conversation, count int, cfg ContextConfig) bool {
	if conv == nil || count <= cfg.SummarizationThreshold {
		return false
	}
	if !conv.HasSummary() || conv.LastSummaryAt == nil {
		return true
	}
	return count-conv.SummaryMessageCount > cfg.WindowSize
}
