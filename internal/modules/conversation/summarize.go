package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/fred-backend/internal/data/repos"
	"github.com/yungbote/fred-backend/internal/jobs/runtime"
	"github.com/yungbote/fred-backend/internal/modules/gateway"
	"github.com/yungbote/fred-backend/internal/observability"
	"github.com/yungbote/fred-backend/internal/platform/dbctx"
	"github.com/yungbote/fred-backend/internal/platform/logger"
	"github.com/yungbote/fred-backend/internal/platform/redis"
)

const (
	DefaultSummaryMaxTokens = 300
	summaryLockTTL          = 2 * time.Minute
)

type PlainSender interface {
	SendPlain(ctx context.Context, prompt string, opts gateway.Options) (*gateway.Result, error)
}

type SummarizerDeps struct {
	Log           *logger.Logger
	Conversations repos.ConversationRepo
	Messages      repos.MessageRepo
	Model         PlainSender
	// Locker serializes runs across processes; nil limits serialization to this process.
	Locker redis.Locker
	Config ContextConfig
	// MaxTokens defaults to DefaultSummaryMaxTokens.
	MaxTokens   int64
	Temperature float64
	Now         func() time.Time
}

// Summarizer refreshes a conversation's rolling summary. At most one run per conversation is in
// flight at a time, and each run re-checks whether a summary is still due.
type Summarizer struct {
	deps  SummarizerDeps
	log   *logger.Logger
	group singleflight.Group
}

func NewSummarizer(deps SummarizerDeps) *Summarizer {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MaxTokens <= 0 {
		deps.MaxTokens = DefaultSummaryMaxTokens
	}
	return &Summarizer{deps: deps, log: deps.Log.With("service", "Summarizer")}
}

func (s *Summarizer) Type() string { return TaskSummarize }

func (s *Summarizer) Run(ctx context.Context, task runtime.Task) error {
	p, ok := task.Payload.(SummarizeTask)
	if !ok {
		return fmt.Errorf("summarize: unexpected payload %T", task.Payload)
	}
	key := p.ConversationID.String()
	_, err, _ := s.group.Do(key, func() (any, error) {
		return nil, s.summarize(ctx, p)
	})
	return err
}

func (s *Summarizer) summarize(ctx context.Context, p SummarizeTask) (err error) {
	ctx, span := observability.Tracer().Start(ctx, "conversation.summarize")
	defer span.End()
	span.SetAttributes(attribute.String("conversation.id", p.ConversationID.String()))

	result := "ok"
	defer func() {
		if err != nil {
			result = "error"
			span.RecordError(err)
		}
		observability.Summarizations.WithLabelValues(result).Inc()
	}()

	if s.deps.Locker != nil {
		release, lockErr := s.deps.Locker.TryLock(ctx, "summarize:"+p.ConversationID.String(), summaryLockTTL)
		if errors.Is(lockErr, redis.ErrNotAcquired) {
			result = "skipped"
			return nil
		}
		if lockErr != nil {
			return lockErr
		}
		defer func() { _ = release(context.WithoutCancel(ctx)) }()
	}

	dbc := dbctx.Context{Ctx: ctx}
	conv, err := s.deps.Conversations.GetByID(dbc, p.ConversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		result = "skipped"
		return nil
	}
	all, err := s.deps.Messages.ListByConversation(dbc, p.ConversationID)
	if err != nil {
		return err
	}
	if !ShouldSummarize(conv, len(all), s.deps.Config) {
		result = "skipped"
		return nil
	}
	older := all[:len(all)-s.deps.Config.WindowSize]
	if len(older) == 0 {
		result = "skipped"
		return nil
	}

	lines := make([]string, 0, len(older))
	for _, m := range older {
		lines = append(lines, m.Role+": "+m.Content)
	}
	res, err := s.deps.Model.SendPlain(ctx, gateway.SummaryPrompt(strings.Join(lines, "\n\n")), gateway.Options{
		MaxTokens:   s.deps.MaxTokens,
		Temperature: s.deps.Temperature,
	})
	if err != nil {
		return err
	}
	summary := strings.TrimSpace(res.Text)
	if summary == "" {
		return fmt.Errorf("summarize: empty summary")
	}
	if err := s.deps.Conversations.SaveSummary(dbc, p.ConversationID, summary, len(all), s.deps.Now()); err != nil {
		return err
	}
	s.log.Info("conversation summarized", "conversation_id", p.ConversationID.String(), "summarized_messages", len(older))
	return nil
}
