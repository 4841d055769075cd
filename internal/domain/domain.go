package domain

import (
	"github.com/yungbote/fred-backend/internal/domain/chat"
	"github.com/yungbote/fred-backend/internal/domain/resource"
	"github.com/yungbote/fred-backend/internal/domain/safety"
	"github.com/yungbote/fred-backend/internal/domain/usage"
	"github.com/yungbote/fred-backend/internal/domain/user"
)

const (
	RoleUser      = chat.RoleUser
	RoleAssistant = chat.RoleAssistant
	RoleSystem    = chat.RoleSystem

	SeverityHigh   = safety.SeverityHigh
	SeverityMedium = safety.SeverityMedium
	SeverityLow    = safety.SeverityLow

	ResourceTagCrisis     = resource.TagCrisis
	ResourceDefaultRegion = resource.DefaultRegion
)

type (
	User = user.User

	Conversation = chat.Conversation
	Message      = chat.Message

	CrisisFlag = safety.CrisisFlag

	UsageLog = usage.UsageLog

	Resource = resource.Resource
)

var (
	EncodeIndicators  = safety.EncodeIndicators
	UsageDay          = usage.Day
	EncodeTags        = resource.EncodeTags
	ValidResourceType = resource.ValidType
	ResourceTypes     = resource.Types
)

// All lists every persisted model in migration order.
func All() []any {
	return []any{
		&User{},
		&Conversation{},
		&Message{},
		&CrisisFlag{},
		&UsageLog{},
		&Resource{},
	}
}
