package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/fred-backend/internal/http/response"
	"github.com/yungbote/fred-backend/internal/modules/handoff"
	"github.com/yungbote/fred-backend/internal/platform/apierr"
	"github.com/yungbote/fred-backend/internal/platform/ctxutil"
)

type HandoffSummaries interface {
	Generate(ctx context.Context, userID uuid.UUID, conversationIDs []string) (*handoff.Summary, error)
}

type HandoffHandler struct {
	summaries HandoffSummaries
}

func NewHandoffHandler(summaries HandoffSummaries) *HandoffHandler {
	return &HandoffHandler{summaries: summaries}
}

type handoffReq struct {
	ConversationIDs []string `json:"conversationIds"`
}

// POST /api/handoff
func (h *HandoffHandler) Generate(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	var req handoffReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Public(http.StatusBadRequest, "invalid_request", "Invalid request body", err))
		return
	}
	out, err := h.summaries.Generate(c.Request.Context(), rd.UserID, req.ConversationIDs)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"summary": out})
}
