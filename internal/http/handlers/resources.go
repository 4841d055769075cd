package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/fred-backend/internal/domain"
	"github.com/yungbote/fred-backend/internal/http/response"
	"github.com/yungbote/fred-backend/internal/modules/resources"
	"github.com/yungbote/fred-backend/internal/platform/apierr"
	"github.com/yungbote/fred-backend/internal/platform/ctxutil"
)

type ResourceCatalog interface {
	List(ctx context.Context, q resources.ListQuery) ([]*types.Resource, error)
	Match(ctx context.Context, userID uuid.UUID, in resources.MatchInput) (*resources.MatchResult, error)
}

type ResourceHandler struct {
	catalog ResourceCatalog
}

func NewResourceHandler(catalog ResourceCatalog) *ResourceHandler {
	return &ResourceHandler{catalog: catalog}
}

// GET /api/resources?type=&region=&tag=
func (h *ResourceHandler) List(c *gin.Context) {
	out, err := h.catalog.List(c.Request.Context(), resources.ListQuery{
		Type:   c.Query("type"),
		Region: c.Query("region"),
		Tag:    c.Query("tag"),
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"resources": out})
}

// POST /api/resources/match
func (h *ResourceHandler) Match(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	var req resources.MatchInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Public(http.StatusBadRequest, "invalid_request", "Invalid request body", err))
		return
	}
	out, err := h.catalog.Match(c.Request.Context(), rd.UserID, req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, out)
}
