package app

import (
	"github.com/gin-gonic/gin"

	apphttp "github.com/yungbote/fred-backend/internal/http"
	"github.com/yungbote/fred-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg Config, h Handlers, mw Middleware) *gin.Engine {
	log.Info("Wiring router...")
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	serviceName := ""
	if cfg.OTel.Enabled {
		serviceName = cfg.OTel.ServiceName
	}
	return apphttp.NewRouter(apphttp.RouterConfig{
		Log:                 log,
		ServiceName:         serviceName,
		CORSOrigins:         cfg.HTTP.CORSOrigins,
		MetricsPath:         cfg.HTTP.MetricsPath,
		AuthMiddleware:      mw.Auth,
		ChatHandler:         h.Chat,
		ConversationHandler: h.Conversation,
		ResourceHandler:     h.Resource,
		HandoffHandler:      h.Handoff,
		OperatorHandler:     h.Operator,
		UsageHandler:        h.Usage,
		HealthHandler:       h.Health,
	})
}
