package user

import (
	"time"

	"github.com/google/uuid"
)

// User holds the per-user rate-limit windows. Identity itself lives with the external auth provider;
// rows are provisioned on first authenticated use.
type User struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	DailyMessageCount   int       `gorm:"column:daily_message_count;not null;default:0" json:"dailyMessageCount"`
	DailyMessageResetAt time.Time `gorm:"column:daily_message_reset_at;not null" json:"dailyMessageResetAt"`

	WeeklyConversationCount   int       `gorm:"column:weekly_conversation_count;not null;default:0" json:"weeklyConversationCount"`
	WeeklyConversationResetAt time.Time `gorm:"column:weekly_conversation_reset_at;not null" json:"weeklyConversationResetAt"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (User) TableName() string { return "user_account" }
