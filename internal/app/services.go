package app

import (
	"fmt"
	"time"

	"github.com/yungbote/fred-backend/internal/jobs/runtime"
	"github.com/yungbote/fred-backend/internal/jobs/worker"
	"github.com/yungbote/fred-backend/internal/modules/chat"
	"github.com/yungbote/fred-backend/internal/modules/conversation"
	"github.com/yungbote/fred-backend/internal/modules/crisis"
	"github.com/yungbote/fred-backend/internal/modules/gateway"
	"github.com/yungbote/fred-backend/internal/modules/handoff"
	"github.com/yungbote/fred-backend/internal/modules/ratelimit"
	"github.com/yungbote/fred-backend/internal/modules/resources"
	"github.com/yungbote/fred-backend/internal/modules/safety"
	"github.com/yungbote/fred-backend/internal/modules/usage"
	"github.com/yungbote/fred-backend/internal/platform/logger"
	"github.com/yungbote/fred-backend/internal/platform/redis"
	"github.com/yungbote/fred-backend/internal/services"
)

type Services struct {
	Auth services.AuthService

	Limiter       *ratelimit.Limiter
	Gateway       *gateway.Gateway
	Context       *conversation.Builder
	Summarizer    *conversation.Summarizer
	Conversations conversation.Usecases
	Resources     resources.Usecases
	Handoff       handoff.Usecases
	Crisis        crisis.Usecases
	Alerter       *crisis.Alerter
	Usage         usage.Usecases
	Chat          chat.Usecases

	Tasks  *runtime.Registry
	Worker *worker.Worker
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, r Repos) (Services, error) {
	log.Info("Wiring services...")

	auth, err := services.NewAuthService(log, cfg.Auth.JWTSecretKey, cfg.Auth.Issuer)
	if err != nil {
		return Services{}, fmt.Errorf("init auth service: %w", err)
	}

	registry := runtime.NewRegistry()
	tasks := worker.NewWorker(log, registry, worker.Config{
		Concurrency: cfg.Worker.Concurrency,
		QueueSize:   cfg.Worker.QueueSize,
		TaskTimeout: cfg.Worker.TaskTimeout,
	})

	lexicon := safety.DefaultLexicon()

	limiter := ratelimit.New(ratelimit.Deps{
		Log:   log,
		Users: r.User,
		Limits: ratelimit.Limits{
			DailyMessages:       cfg.Limits.DailyMessages,
			WeeklyConversations: cfg.Limits.WeeklyConversations,
		},
	})

	gw := gateway.New(log, clients.Claude, gateway.Config{
		Model:             cfg.Anthropic.Model,
		RequestsPerSecond: cfg.Anthropic.RequestsPerSecond,
		Burst:             cfg.Anthropic.Burst,
		Timeout:           cfg.Anthropic.Timeout,
	})

	ctxCfg := conversation.ContextConfig{
		WindowSize:             cfg.Context.WindowSize,
		SummarizationThreshold: cfg.Context.SummarizationThreshold,
	}
	builder := conversation.NewBuilder(conversation.BuilderDeps{
		Log:           log,
		Conversations: r.Conversation,
		Messages:      r.Message,
		Queue:         tasks,
		Config:        ctxCfg,
	})

	var locker redis.Locker
	if clients.Redis != nil {
		locker = redis.NewLocker(log, clients.Redis, cfg.Redis.Prefix)
	}
	summarizer := conversation.NewSummarizer(conversation.SummarizerDeps{
		Log:           log,
		Conversations: r.Conversation,
		Messages:      r.Message,
		Model:         gw,
		Locker:        locker,
		Config:        ctxCfg,
		MaxTokens:     cfg.Summary.MaxTokens,
		Temperature:   cfg.Summary.Temperature,
	})

	crisisUC := crisis.New(crisis.UsecasesDeps{
		Log:            log,
		Flags:          r.CrisisFlag,
		Lexicon:        lexicon,
		Queue:          tasks,
		RedactSnippets: cfg.Safety.RedactSnippets,
	})
	alerter := crisis.NewAlerter(crisis.AlerterDeps{
		Log:        log,
		Mail:       clients.Mail,
		Recipients: cfg.SendGrid.AlertRecipients,
	})

	usageUC := usage.New(usage.UsecasesDeps{
		Log:   log,
		Usage: r.UsageLog,
		Pricing: usage.Pricing{
			InputPerMTok:      cfg.Usage.Pricing.InputPerMTok,
			OutputPerMTok:     cfg.Usage.Pricing.OutputPerMTok,
			CacheWritePerMTok: cfg.Usage.Pricing.CacheWritePerMTok,
			CacheReadPerMTok:  cfg.Usage.Pricing.CacheReadPerMTok,
		},
		DailyThresholdCents: cfg.Usage.DailyCostThresholdCents,
	})

	convUC := conversation.New(conversation.UsecasesDeps{
		Log:           log,
		Conversations: r.Conversation,
		Messages:      r.Message,
		Limiter:       limiter,
	})

	resourcesUC := resources.New(resources.UsecasesDeps{
		Log:           log,
		Resources:     r.Resource,
		Conversations: r.Conversation,
		Messages:      r.Message,
		Model:         gw,
		MaxTokens:     cfg.Resources.MatchMaxTokens,
	})

	loc, err := time.LoadLocation(cfg.Handoff.Timezone)
	if err != nil {
		log.Warn("Unknown handoff timezone, using UTC", "timezone", cfg.Handoff.Timezone, "error", err)
		loc = time.UTC
	}
	handoffUC := handoff.New(handoff.UsecasesDeps{
		Log:              log,
		Conversations:    r.Conversation,
		Messages:         r.Message,
		Model:            gw,
		MaxTokens:        cfg.Handoff.MaxTokens,
		Temperature:      cfg.Handoff.Temperature,
		MaxConversations: cfg.Handoff.MaxConversations,
		Location:         loc,
	})

	chatUC := chat.New(chat.UsecasesDeps{
		Log:           log,
		Conversations: r.Conversation,
		Messages:      r.Message,
		Limiter:       limiter,
		Crisis:        crisisUC,
		Context:       builder,
		Model:         gw,
		Usage:         usageUC,
		Lexicon:       lexicon,
		Config: chat.TurnConfig{
			MaxMessageLength: cfg.Limits.MaxMessageLength,
			ChatMaxTokens:    cfg.Chat.MaxTokens,
			CrisisMaxTokens:  cfg.Chat.CrisisMaxTokens,
			Temperature:      cfg.Chat.Temperature,
		},
	})

	for _, h := range []runtime.Handler{summarizer, alerter} {
		if err := registry.Register(h); err != nil {
			return Services{}, fmt.Errorf("register task %s: %w", h.Type(), err)
		}
	}

	return Services{
		Auth:          auth,
		Limiter:       limiter,
		Gateway:       gw,
		Context:       builder,
		Summarizer:    summarizer,
		Conversations: convUC,
		Resources:     resourcesUC,
		Handoff:       handoffUC,
		Crisis:        crisisUC,
		Alerter:       alerter,
		Usage:         usageUC,
		Chat:          chatUC,
		Tasks:         registry,
		Worker:        tasks,
	}, nil
}
