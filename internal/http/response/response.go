package response

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fred-backend/internal/platform/apierr"
)

// ErrorBody is the error shape for every non-2xx response.
type ErrorBody struct {
	Error   string     `json:"error"`
	Code    string     `json:"code,omitempty"`
	ResetAt *time.Time `json:"resetAt,omitempty"`
}

type retryAfter interface {
	RetryAt() time.Time
}

// RespondError renders err. Anything that is not an *apierr.Error is a 500 with a generic message.
func RespondError(c *gin.Context, err error) {
	ae := apierr.As(err)
	if ae == nil {
		ae = apierr.New(http.StatusInternalServerError, "internal_error", nil)
	}
	status := ae.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	body := ErrorBody{Error: ae.PublicMessage(), Code: ae.Code}
	var ra retryAfter
	if errors.As(err, &ra) {
		if at := ra.RetryAt(); !at.IsZero() {
			at = at.UTC()
			body.ResetAt = &at
			c.Header("Retry-After", retryAfterSeconds(at))
		}
	}
	if status >= 500 {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, body)
}

// RespondStatus renders an error body without an underlying error value.
func RespondStatus(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: msg, Code: code})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func retryAfterSeconds(at time.Time) string {
	secs := int64(time.Until(at).Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}
