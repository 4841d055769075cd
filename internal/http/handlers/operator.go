package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/fred-backend/internal/http/response"
	"github.com/yungbote/fred-backend/internal/modules/crisis"
	"github.com/yungbote/fred-backend/internal/platform/apierr"
	"github.com/yungbote/fred-backend/internal/platform/ctxutil"
)

type CrisisQueue interface {
	List(ctx context.Context, q crisis.ListQuery) (*crisis.Page, error)
	Handle(ctx context.Context, operatorID, flagID uuid.UUID, notes string) (*crisis.FlagView, error)
}

type OperatorHandler struct {
	flags CrisisQueue
}

func NewOperatorHandler(flags CrisisQueue) *OperatorHandler {
	return &OperatorHandler{flags: flags}
}

// GET /api/operator/crisis-flags?severity=&handled=&page=
func (h *OperatorHandler) ListCrisisFlags(c *gin.Context) {
	q := crisis.ListQuery{Severity: c.Query("severity"), Page: 1}
	if v := strings.TrimSpace(c.Query("page")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.Page = n
		}
	}
	if v := strings.TrimSpace(c.Query("handled")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			response.RespondError(c, apierr.Public(http.StatusBadRequest, "invalid_handled", "handled must be true or false", err))
			return
		}
		q.Handled = &b
	}
	page, err := h.flags.List(c.Request.Context(), q)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, page)
}

type handleFlagReq struct {
	Notes string `json:"notes"`
}

// PATCH /api/operator/crisis-flags/:id
func (h *OperatorHandler) HandleCrisisFlag(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.RespondError(c, apierr.Public(http.StatusNotFound, "crisis_flag_not_found", "Crisis flag not found", err))
		return
	}
	var req handleFlagReq
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(c, apierr.Public(http.StatusBadRequest, "invalid_request", "Invalid request body", err))
		return
	}
	flag, err := h.flags.Handle(c.Request.Context(), rd.UserID, id, req.Notes)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"flag": flag})
}
