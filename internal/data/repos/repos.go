package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/fred-backend/internal/data/repos/chat"
	"github.com/yungbote/fred-backend/internal/data/repos/resource"
	"github.com/yungbote/fred-backend/internal/data/repos/safety"
	"github.com/yungbote/fred-backend/internal/data/repos/usage"
	"github.com/yungbote/fred-backend/internal/data/repos/user"
	"github.com/yungbote/fred-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo

type ConversationRepo = chat.ConversationRepo
type MessageRepo = chat.MessageRepo

type CrisisFlagRepo = safety.CrisisFlagRepo
type CrisisFlagFilter = safety.CrisisFlagFilter

type UsageLogRepo = usage.UsageLogRepo
type UsageDelta = usage.Delta

type ResourceRepo = resource.ResourceRepo
type ResourceFilter = resource.ResourceFilter

func NewUserRepo(db *gorm.DB, log *logger.Logger) UserRepo { return user.NewUserRepo(db, log) }

func NewConversationRepo(db *gorm.DB, log *logger.Logger) ConversationRepo {
	return chat.NewConversationRepo(db, log)
}

func NewMessageRepo(db *gorm.DB, log *logger.Logger) MessageRepo { return chat.NewMessageRepo(db, log) }

func NewCrisisFlagRepo(db *gorm.DB, log *logger.Logger) CrisisFlagRepo {
	return safety.NewCrisisFlagRepo(db, log)
}

func NewUsageLogRepo(db *gorm.DB, log *logger.Logger) UsageLogRepo {
	return usage.NewUsageLogRepo(db, log)
}

func NewResourceRepo(db *gorm.DB, log *logger.Logger) ResourceRepo {
	return resource.NewResourceRepo(db, log)
}
