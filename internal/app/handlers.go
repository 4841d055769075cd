package app

import (
	"context"
	"fmt"

	httpH "github.com/yungbote/fred-backend/internal/http/handlers"
	httpMW "github.com/yungbote/fred-backend/internal/http/middleware"
	"github.com/yungbote/fred-backend/internal/platform/logger"
)

type Handlers struct {
	Chat         *httpH.ChatHandler
	Conversation *httpH.ConversationHandler
	Resource     *httpH.ResourceHandler
	Handoff      *httpH.HandoffHandler
	Operator     *httpH.OperatorHandler
	Usage        *httpH.UsageHandler
	Health       *httpH.HealthHandler
}

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

func wireHandlers(log *logger.Logger, s Services, probes []httpH.Pinger) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Chat:         httpH.NewChatHandler(s.Chat),
		Conversation: httpH.NewConversationHandler(s.Conversations),
		Resource:     httpH.NewResourceHandler(s.Resources),
		Handoff:      httpH.NewHandoffHandler(s.Handoff),
		Operator:     httpH.NewOperatorHandler(s.Crisis),
		Usage:        httpH.NewUsageHandler(s.Usage),
		Health:       httpH.NewHealthHandler(log, probes...),
	}
}

func wireMiddleware(log *logger.Logger, r Repos, s Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, s.Auth, r.User),
	}
}

// readinessProbes checks the database and, when configured, redis.
func (a *App) readinessProbes() []httpH.Pinger {
	probes := []httpH.Pinger{{
		Name: "database",
		Ping: func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return fmt.Errorf("database handle: %w", err)
			}
			return sqlDB.PingContext(ctx)
		},
	}}
	if a.Clients.Redis != nil {
		probes = append(probes, httpH.Pinger{
			Name: "redis",
			Ping: func(ctx context.Context) error { return a.Clients.Redis.Ping(ctx).Err() },
		})
	}
	return probes
}
