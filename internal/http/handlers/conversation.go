package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/fred-backend/internal/domain"
	"github.com/yungbote/fred-backend/internal/http/response"
	"github.com/yungbote/fred-backend/internal/modules/conversation"
	"github.com/yungbote/fred-backend/internal/platform/apierr"
	"github.com/yungbote/fred-backend/internal/platform/ctxutil"
)

type Conversations interface {
	List(ctx context.Context, userID uuid.UUID) ([]conversation.Summary, error)
	Create(ctx context.Context, userID uuid.UUID, title string) (*types.Conversation, error)
	Get(ctx context.Context, userID, conversationID uuid.UUID) (*conversation.Detail, error)
	Messages(ctx context.Context, userID, conversationID uuid.UUID, limit int, before *time.Time) ([]*types.Message, error)
	Delete(ctx context.Context, userID, conversationID uuid.UUID) error
}

type ConversationHandler struct {
	convs Conversations
}

func NewConversationHandler(convs Conversations) *ConversationHandler {
	return &ConversationHandler{convs: convs}
}

// GET /api/conversations
func (h *ConversationHandler) List(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	out, err := h.convs.List(c.Request.Context(), rd.UserID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"conversations": out})
}

type createConversationReq struct {
	Title string `json:"title"`
}

// POST /api/conversations
func (h *ConversationHandler) Create(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	var req createConversationReq
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(c, apierr.Public(http.StatusBadRequest, "invalid_request", "Invalid request body", err))
		return
	}
	conv, err := h.convs.Create(c.Request.Context(), rd.UserID, req.Title)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"conversation": conv})
}

// GET /api/conversations/:id
func (h *ConversationHandler) Get(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	id, ok := conversationIDParam(c)
	if !ok {
		return
	}
	out, err := h.convs.Get(c.Request.Context(), rd.UserID, id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"conversation": out})
}

// GET /api/conversations/:id/messages?limit=50&before=<RFC3339>
func (h *ConversationHandler) Messages(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	id, ok := conversationIDParam(c)
	if !ok {
		return
	}
	limit := 50
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	var before *time.Time
	if v := strings.TrimSpace(c.Query("before")); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			response.RespondError(c, apierr.Public(http.StatusBadRequest, "invalid_before", "before must be an RFC3339 timestamp", err))
			return
		}
		before = &t
	}
	msgs, err := h.convs.Messages(c.Request.Context(), rd.UserID, id, limit, before)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"messages": msgs})
}

// DELETE /api/conversations/:id
func (h *ConversationHandler) Delete(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	id, ok := conversationIDParam(c)
	if !ok {
		return
	}
	if err := h.convs.Delete(c.Request.Context(), rd.UserID, id); err != nil {
		response.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Malformed ids are indistinguishable from ids the caller does not own.
func conversationIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.RespondError(c, apierr.Public(http.StatusNotFound, "conversation_not_found", "Conversation not found", err))
		return uuid.Nil, false
	}
	return id, true
}
