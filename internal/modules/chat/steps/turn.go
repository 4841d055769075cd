package steps

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/fred-backend/internal/data/repos"
	types "github.com/yungbote/fred-backend/internal/domain"
	"github.com/yungbote/fred-backend/internal/modules/gateway"
	"github.com/yungbote/fred-backend/internal/modules/ratelimit"
	"github.com/yungbote/fred-backend/internal/modules/safety"
	"github.com/yungbote/fred-backend/internal/modules/usage"
	"github.com/yungbote/fred-backend/internal/observability"
	"github.com/yungbote/fred-backend/internal/platform/apierr"
	"github.com/yungbote/fred-backend/internal/platform/ctxutil"
	"github.com/yungbote/fred-backend/internal/platform/dbctx"
	"github.com/yungbote/fred-backend/internal/platform/logger"
)

const titleRunes = 50

type MessageLimiter interface {
	CheckMessage(ctx context.Context, userID uuid.UUID) (ratelimit.Decision, error)
	ConsumeMessage(ctx context.Context, userID uuid.UUID) error
}

type CrisisRecorder interface {
	Record(ctx context.Context, userID uuid.UUID, conversationID *uuid.UUID, message string, a safety.Assessment) (*types.CrisisFlag, error)
}

type ContextBuilder interface {
	Build(ctx context.Context, conversationID uuid.UUID) ([]gateway.Message, error)
}

type ModelSender interface {
	Send(ctx context.Context, msgs []gateway.Message, opts gateway.Options) (*gateway.Result, error)
	Model() string
}

type UsageLogger interface {
	EstimateCostCents(t usage.Tokens) int64
	LogUsage(ctx context.Context, userID uuid.UUID, t usage.Tokens) (*types.UsageLog, error)
}

type TurnConfig struct {
	MaxMessageLength int
	ChatMaxTokens    int64
	CrisisMaxTokens  int64
	Temperature      float64
}

type TurnDeps struct {
	Log           *logger.Logger
	Conversations repos.ConversationRepo
	Messages      repos.MessageRepo
	Limiter       MessageLimiter
	Crisis        CrisisRecorder
	Context       ContextBuilder
	Model         ModelSender
	Usage         UsageLogger
	Lexicon       *safety.Lexicon
	Config        TurnConfig
	Now           func() time.Time
}

type TurnInput struct {
	UserID         uuid.UUID
	Message        string
	ConversationID string
}

type TurnUsage struct {
	InputTokens   int64 `json:"inputTokens"`
	OutputTokens  int64 `json:"outputTokens"`
	CachedTokens  int64 `json:"cachedTokens"`
	EstimatedCost int64 `json:"estimatedCost"`
}

type TurnOutput struct {
	Message        string    `json:"message"`
	ConversationID uuid.UUID `json:"conversationId"`
	Usage          TurnUsage `json:"usage"`
	IsCrisis       bool      `json:"isCrisis"`
}

// Turn runs one chat exchange. The crisis flag is written before the conversation is resolved or the
// model is called, and a blocked reply is persisted without usage and not counted.
func Turn(ctx context.Context, deps TurnDeps, in TurnInput) (out TurnOutput, err error) {
	if deps.Log == nil || deps.Conversations == nil || deps.Messages == nil || deps.Limiter == nil ||
		deps.Crisis == nil || deps.Context == nil || deps.Model == nil || deps.Usage == nil {
		return out, apierr.New(http.StatusInternalServerError, "chat_misconfigured", fmt.Errorf("chat turn: missing deps"))
	}
	if deps.Lexicon == nil {
		deps.Lexicon = safety.DefaultLexicon()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	log := deps.Log.With(append(ctxutil.TraceFields(ctx), "user_id", in.UserID.String())...)

	ctx, span := observability.Tracer().Start(ctx, "chat.turn")
	defer span.End()

	outcome := "ok"
	defer func() {
		if err != nil {
			outcome = outcomeFor(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.SetAttributes(attribute.String("chat.outcome", outcome))
		observability.TurnOutcomes.WithLabelValues(outcome).Inc()
	}()

	// received
	if err := validateMessage(in.Message, deps.Config.MaxMessageLength); err != nil {
		return out, err
	}

	// rate_checked
	decision, err := deps.Limiter.CheckMessage(ctx, in.UserID)
	if err != nil {
		return out, apierr.New(http.StatusInternalServerError, "rate_limit_check_failed", err)
	}
	if !decision.Allowed {
		return out, decision.APIError()
	}

	// crisis_checked
	assessment := deps.Lexicon.Detect(in.Message)
	span.SetAttributes(attribute.Bool("chat.crisis", assessment.IsCrisis))

	dbc := dbctx.Context{Ctx: ctx}
	conv, convErr := resolveConversation(dbc, deps, in)

	// The flag is written even when the conversation is rejected, but only references one the caller owns.
	if assessment.IsCrisis {
		span.SetAttributes(attribute.String("chat.crisis_severity", assessment.Severity))
		var flagConv *uuid.UUID
		if conv != nil {
			id := conv.ID
			flagConv = &id
		}
		if _, ferr := deps.Crisis.Record(ctx, in.UserID, flagConv, in.Message, assessment); ferr != nil {
			log.Error("crisis flag not recorded", "severity", assessment.Severity, "error", ferr)
		}
	}
	if convErr != nil {
		return out, convErr
	}
	span.SetAttributes(attribute.String("conversation.id", conv.ID.String()))

	if _, err := deps.Messages.Create(dbc, []*types.Message{{
		ConversationID: conv.ID,
		Role:           types.RoleUser,
		Content:        in.Message,
	}}); err != nil {
		return out, apierr.New(http.StatusInternalServerError, "save_message_failed", err)
	}

	// context_built
	history, err := deps.Context.Build(ctx, conv.ID)
	if err != nil {
		return out, apierr.New(http.StatusInternalServerError, "build_context_failed", err)
	}

	// model_called
	opts := gateway.Options{MaxTokens: deps.Config.ChatMaxTokens, Temperature: deps.Config.Temperature}
	if assessment.IsCrisis {
		opts.MaxTokens = deps.Config.CrisisMaxTokens
	}
	res, err := deps.Model.Send(ctx, history, opts)
	if err != nil {
		var ge *gateway.Error
		if errors.As(err, &ge) {
			log.Warn("model call failed", "conversation_id", conv.ID.String(), "kind", string(ge.Kind), "status", ge.StatusCode)
			return out, apierr.Public(http.StatusServiceUnavailable, "ai_unavailable", ge.Message, err)
		}
		return out, apierr.New(http.StatusServiceUnavailable, "ai_unavailable", err)
	}
	model := res.Model
	if model == "" {
		model = deps.Model.Model()
	}

	out.ConversationID = conv.ID
	out.IsCrisis = assessment.IsCrisis

	// safety_checked
	if verdict := deps.Lexicon.ShouldBlock(res.Text); verdict.Blocked {
		observability.SafetyBlocks.WithLabelValues(verdict.Reason).Inc()
		log.Warn("model reply replaced by fallback", "conversation_id", conv.ID.String(), "reason", verdict.Reason)
		if _, err := deps.Messages.Create(dbc, []*types.Message{{
			ConversationID: conv.ID,
			Role:           types.RoleAssistant,
			Content:        safety.FallbackReply,
			ModelUsed:      &model,
		}}); err != nil {
			return out, apierr.New(http.StatusInternalServerError, "save_message_failed", err)
		}
		touch(dbc, deps, log, conv.ID)
		outcome = "blocked"
		out.Message = safety.FallbackReply
		return out, nil
	}

	// persisted
	tokens := res.Usage
	cached := tokens.CacheReadTokens
	if _, err := deps.Messages.Create(dbc, []*types.Message{{
		ConversationID: conv.ID,
		Role:           types.RoleAssistant,
		Content:        res.Text,
		InputTokens:    &tokens.InputTokens,
		OutputTokens:   &tokens.OutputTokens,
		CachedTokens:   &cached,
		ModelUsed:      &model,
	}}); err != nil {
		return out, apierr.New(http.StatusInternalServerError, "save_message_failed", err)
	}
	touch(dbc, deps, log, conv.ID)

	if _, err := deps.Usage.LogUsage(ctx, in.UserID, tokens); err != nil {
		log.Error("usage not logged", "conversation_id", conv.ID.String(), "error", err)
	}
	if err := deps.Limiter.ConsumeMessage(ctx, in.UserID); err != nil {
		log.Error("daily message count not incremented", "error", err)
	}

	// responded
	out.Message = res.Text
	out.Usage = TurnUsage{
		InputTokens:   tokens.InputTokens,
		OutputTokens:  tokens.OutputTokens,
		CachedTokens:  cached,
		EstimatedCost: deps.Usage.EstimateCostCents(tokens),
	}
	return out, nil
}

func resolveConversation(dbc dbctx.Context, deps TurnDeps, in TurnInput) (*types.Conversation, error) {
	raw := strings.TrimSpace(in.ConversationID)
	if raw == "" {
		rows, err := deps.Conversations.Create(dbc, []*types.Conversation{{
			UserID: in.UserID,
			Title:  safety.Truncate(strings.TrimSpace(in.Message), titleRunes),
		}})
		if err != nil {
			return nil, apierr.New(http.StatusInternalServerError, "create_conversation_failed", err)
		}
		return rows[0], nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, conversationNotFound(fmt.Errorf("conversation id %q: %w", raw, err))
	}
	conv, err := deps.Conversations.GetOwned(dbc, id, in.UserID)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "load_conversation_failed", err)
	}
	if conv == nil {
		return nil, conversationNotFound(fmt.Errorf("conversation %s not found", id))
	}
	return conv, nil
}

func touch(dbc dbctx.Context, deps TurnDeps, log *logger.Logger, id uuid.UUID) {
	if err := deps.Conversations.Touch(dbc, id, deps.Now()); err != nil {
		log.Warn("conversation not touched", "conversation_id", id.String(), "error", err)
	}
}

func conversationNotFound(err error) *apierr.Error {
	return apierr.Public(http.StatusNotFound, "conversation_not_found", "Conversation not found", err)
}

func outcomeFor(err error) string {
	switch apierr.As(err).Status {
	case http.StatusBadRequest:
		return "invalid"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusServiceUnavailable:
		return "provider_error"
	default:
		return "error"
	}
}
