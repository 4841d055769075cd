package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Conversation struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index:idx_conversation_user_updated,priority:1" json:"-"`

	Title string `gorm:"column:title;not null;default:''" json:"title"`

	// Rolling summary of everything older than the context window.
	SummaryText   *string    `gorm:"column:summary_text;type:text" json:"-"`
	LastSummaryAt *time.Time `gorm:"column:last_summary_at" json:"lastSummaryAt,omitempty"`
	// Message count at the moment SummaryText was stored.
	SummaryMessageCount int `gorm:"column:summary_message_count;not null;default:0" json:"-"`

	CreatedAt time.Time      `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"not null;index:idx_conversation_user_updated,priority:2" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Conversation) TableName() string { return "conversation" }

func (c *Conversation) HasSummary() bool {
	return c != nil && c.SummaryText != nil && *c.SummaryText != ""
}
