package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/fred-backend/internal/domain"
	"github.com/yungbote/fred-backend/internal/http/response"
	"github.com/yungbote/fred-backend/internal/platform/ctxutil"
	"github.com/yungbote/fred-backend/internal/platform/dbctx"
	"github.com/yungbote/fred-backend/internal/platform/logger"
	"github.com/yungbote/fred-backend/internal/services"
)

// UserProvisioner creates the local user row on first use.
type UserProvisioner interface {
	EnsureByID(dbc dbctx.Context, userID uuid.UUID, now time.Time) (*types.User, error)
}

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
	users       UserProvisioner
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService, users UserProvisioner) *AuthMiddleware {
	middlewareLogger := log.With("middleware", "AuthMiddleware")
	return &AuthMiddleware{log: middlewareLogger, authService: authService, users: users}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractBearer(c)
		if tokenString == "" {
			response.RespondStatus(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
			return
		}
		ctx, err := am.authService.SetContextFromToken(c.Request.Context(), tokenString)
		if err != nil {
			am.log.Debug("token rejected", "error", err)
			response.RespondStatus(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
			return
		}
		rd := ctxutil.GetRequestData(ctx)
		if rd == nil || rd.UserID == uuid.Nil {
			response.RespondStatus(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
			return
		}
		if am.users != nil {
			if _, err := am.users.EnsureByID(dbctx.Context{Ctx: ctx}, rd.UserID, time.Now()); err != nil {
				am.log.Error("user provisioning failed", "user_id", rd.UserID.String(), "error", err)
				response.RespondStatus(c, http.StatusInternalServerError, "internal_error", "Internal server error")
				return
			}
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireOperator must run after RequireAuth.
func (am *AuthMiddleware) RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		if rd == nil {
			response.RespondStatus(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
			return
		}
		if !rd.IsOperator() {
			response.RespondStatus(c, http.StatusForbidden, "forbidden", "Forbidden")
			return
		}
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
