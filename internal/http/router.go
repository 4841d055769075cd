package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/fred-backend/internal/http/handlers"
	httpMW "github.com/yungbote/fred-backend/internal/http/middleware"
	"github.com/yungbote/fred-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	// MetricsPath is left unregistered when empty.
	MetricsPath string

	AuthMiddleware *httpMW.AuthMiddleware

	ChatHandler         *httpH.ChatHandler
	ConversationHandler *httpH.ConversationHandler
	ResourceHandler     *httpH.ResourceHandler
	HandoffHandler      *httpH.HandoffHandler
	OperatorHandler     *httpH.OperatorHandler
	UsageHandler        *httpH.UsageHandler
	HealthHandler       *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics())
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.MetricsPath != "" {
		r.GET(cfg.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")
	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Chat
		if cfg.ChatHandler != nil {
			protected.POST("/chat", cfg.ChatHandler.SendMessage)
		}

		// Conversations
		if cfg.ConversationHandler != nil {
			protected.GET("/conversations", cfg.ConversationHandler.List)
			protected.POST("/conversations", cfg.ConversationHandler.Create)
			protected.GET("/conversations/:id", cfg.ConversationHandler.Get)
			protected.GET("/conversations/:id/messages", cfg.ConversationHandler.Messages)
			protected.DELETE("/conversations/:id", cfg.ConversationHandler.Delete)
		}

		// Resources
		if cfg.ResourceHandler != nil {
			protected.GET("/resources", cfg.ResourceHandler.List)
			protected.POST("/resources/match", cfg.ResourceHandler.Match)
		}

		// Handoff
		if cfg.HandoffHandler != nil {
			protected.POST("/handoff", cfg.HandoffHandler.Generate)
		}

		// Usage
		if cfg.UsageHandler != nil {
			protected.GET("/usage", cfg.UsageHandler.Get)
		}

		// Operator
		if cfg.OperatorHandler != nil {
			operator := protected.Group("/operator")
			if cfg.AuthMiddleware != nil {
				operator.Use(cfg.AuthMiddleware.RequireOperator())
			}
			operator.GET("/crisis-flags", cfg.OperatorHandler.ListCrisisFlags)
			operator.PATCH("/crisis-flags/:id", cfg.OperatorHandler.HandleCrisisFlag)
		}
	}

	return r
}
