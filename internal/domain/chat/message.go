package chat

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is append-only. Usage fields are set only on assistant replies that were delivered as generated.
type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index:idx_message_conversation_created,priority:1" json:"conversationId"`

	Role    string `gorm:"column:role;not null" json:"role"`
	Content string `gorm:"column:content;type:text;not null" json:"content"`

	InputTokens  *int64  `gorm:"column:input_tokens" json:"inputTokens,omitempty"`
	OutputTokens *int64  `gorm:"column:output_tokens" json:"outputTokens,omitempty"`
	CachedTokens *int64  `gorm:"column:cached_tokens" json:"cachedTokens,omitempty"`
	ModelUsed    *string `gorm:"column:model_used" json:"modelUsed,omitempty"`

	CreatedAt time.Time `gorm:"not null;index:idx_message_conversation_created,priority:2" json:"createdAt"`
}

func (Message) TableName() string { return "message" }

func (m *Message) HasUsage() bool {
	return m != nil && (m.InputTokens != nil || m.OutputTokens != nil || m.CachedTokens != nil)
}
