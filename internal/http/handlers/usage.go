package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/fred-backend/internal/http/response"
	"github.com/yungbote/fred-backend/internal/modules/usage"
	"github.com/yungbote/fred-backend/internal/platform/ctxutil"
)

type UsageReport interface {
	Summary(ctx context.Context, userID uuid.UUID) (usage.Summary, error)
}

type UsageHandler struct {
	usage UsageReport
}

func NewUsageHandler(u UsageReport) *UsageHandler { return &UsageHandler{usage: u} }

// GET /api/usage
func (h *UsageHandler) Get(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	out, err := h.usage.Summary(c.Request.Context(), rd.UserID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, out)
}
