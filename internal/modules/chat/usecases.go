package chat

import (
	"context"
	"time"

	"github.com/yungbote/fred-backend/internal/data/repos"
	"github.com/yungbote/fred-backend/internal/modules/chat/steps"
	"github.com/yungbote/fred-backend/internal/modules/safety"
	"github.com/yungbote/fred-backend/internal/platform/logger"
)

type UsecasesDeps struct {
	Log *logger.Logger

	Conversations repos.ConversationRepo
	Messages      repos.MessageRepo

	Limiter steps.MessageLimiter
	Crisis  steps.CrisisRecorder
	Context steps.ContextBuilder
	Model   steps.ModelSender
	Usage   steps.UsageLogger
	Lexicon *safety.Lexicon

	Config steps.TurnConfig
	Now    func() time.Time
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases { return Usecases{deps: deps} }

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

type (
	TurnInput  = steps.TurnInput
	TurnOutput = steps.TurnOutput
	TurnUsage  = steps.TurnUsage
	TurnConfig = steps.TurnConfig
)

func (u Usecases) SendTurn(ctx context.Context, in TurnInput) (TurnOutput, error) {
	return steps.Turn(ctx, steps.TurnDeps{
		Log:           u.deps.Log,
		Conversations: u.deps.Conversations,
		Messages:      u.deps.Messages,
		Limiter:       u.deps.Limiter,
		Crisis:        u.deps.Crisis,
		Context:       u.deps.Context,
		Model:         u.deps.Model,
		Usage:         u.deps.Usage,
		Lexicon:       u.deps.Lexicon,
		Config:        u.deps.Config,
		Now:           u.deps.Now,
	}, in)
}
