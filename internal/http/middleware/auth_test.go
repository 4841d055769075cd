package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/fred-backend/internal/data/repos"
	"github.com/yungbote/fred-backend/internal/data/repos/testutil"
	"github.com/yungbote/fred-backend/internal/platform/ctxutil"
	"github.com/yungbote/fred-backend/internal/platform/dbctx"
	"github.com/yungbote/fred-backend/internal/services"
)

func TestRequireAuthAndOperator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)
	users := repos.NewUserRepo(db, log)
	auth, err := services.NewAuthService(log, "mw-secret", "")
	require.NoError(t, err)
	am := NewAuthMiddleware(log, auth, users)

	r := gin.New()
	api := r.Group("/api", am.RequireAuth())
	api.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, ctxutil.GetRequestData(c.Request.Context()).UserID.String())
	})
	api.GET("/operator", am.RequireOperator(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	member := uuid.New()
	memberTok, err := auth.IssueToken(member, "", time.Hour)
	require.NoError(t, err)
	opTok, err := auth.IssueToken(uuid.New(), ctxutil.RoleOperator, time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{name: "no_token", path: "/api/me", header: "", status: http.StatusUnauthorized},
		{name: "bad_token", path: "/api/me", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "member", path: "/api/me", header: "Bearer " + memberTok, status: http.StatusOK},
		{name: "member_not_operator", path: "/api/operator", header: "Bearer " + memberTok, status: http.StatusForbidden},
		{name: "operator", path: "/api/operator", header: "Bearer " + opTok, status: http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}

	u, err := users.GetByID(dbctx.Context{Ctx: t.Context()}, member)
	require.NoError(t, err)
	require.NotNil(t, u)
	require.Equal(t, 0, u.DailyMessageCount)
}
