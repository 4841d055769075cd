package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/fred-backend/internal/data/repos"
	"github.com/yungbote/fred-backend/internal/platform/logger"
)

type Repos struct {
	User         repos.UserRepo
	Conversation repos.ConversationRepo
	Message      repos.MessageRepo
	CrisisFlag   repos.CrisisFlagRepo
	UsageLog     repos.UsageLogRepo
	Resource     repos.ResourceRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:         repos.NewUserRepo(db, log),
		Conversation: repos.NewConversationRepo(db, log),
		Message:      repos.NewMessageRepo(db, log),
		CrisisFlag:   repos.NewCrisisFlagRepo(db, log),
		UsageLog:     repos.NewUsageLogRepo(db, log),
		Resource:     repos.NewResourceRepo(db, log),
	}
}
