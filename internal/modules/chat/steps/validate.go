package steps

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	perrors "github.com/yungbote/fred-backend/internal/pkg/errors"
	"github.com/yungbote/fred-backend/internal/platform/apierr"
)

const DefaultMaxMessageLength = 2000

func validateMessage(msg string, maxLen int) error {
	if maxLen <= 0 {
		maxLen = DefaultMaxMessageLength
	}
	if strings.TrimSpace(msg) == "" {
		return apierr.Public(http.StatusBadRequest, "message_required", "Message is required", perrors.ErrInvalidArgument)
	}
	if utf8.RuneCountInString(msg) > maxLen {
		return apierr.Public(http.StatusBadRequest, "message_too_long",
			fmt.Sprintf("Message too long (max %d characters)", maxLen), perrors.ErrInvalidArgument)
	}
	return nil
}
