package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fred-backend/internal/http/response"
	"github.com/yungbote/fred-backend/internal/modules/chat"
	"github.com/yungbote/fred-backend/internal/platform/apierr"
	"github.com/yungbote/fred-backend/internal/platform/ctxutil"
)

type ChatTurns interface {
	SendTurn(ctx context.Context, in chat.TurnInput) (chat.TurnOutput, error)
}

type ChatHandler struct {
	chat ChatTurns
}

func NewChatHandler(chat ChatTurns) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type sendMessageReq struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

// POST /api/chat
func (h *ChatHandler) SendMessage(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil {
		response.RespondStatus(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Public(http.StatusBadRequest, "invalid_request", "Invalid request body", err))
		return
	}
	out, err := h.chat.SendTurn(c.Request.Context(), chat.TurnInput{
		UserID:         rd.UserID,
		Message:        req.Message,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, out)
}
