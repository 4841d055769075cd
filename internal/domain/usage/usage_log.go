package usage

import (
	"time"

	"github.com/google/uuid"
)

// UsageLog is an additive per-user, per-day projection of turn usage.
type UsageLog struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_usage_log_user_date,priority:1" json:"userId"`
	Date   time.Time `gorm:"column:date;type:date;not null;uniqueIndex:idx_usage_log_user_date,priority:2" json:"date"`

	MessageCount int64 `gorm:"column:message_count;not null;default:0" json:"messageCount"`
	InputTokens  int64 `gorm:"column:input_tokens;not null;default:0" json:"inputTokens"`
	OutputTokens int64 `gorm:"column:output_tokens;not null;default:0" json:"outputTokens"`
	CachedTokens int64 `gorm:"column:cached_tokens;not null;default:0" json:"cachedTokens"`
	// Cents.
	EstimatedCost int64 `gorm:"column:estimated_cost;not null;default:0" json:"estimatedCost"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (UsageLog) TableName() string { return "usage_log" }

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
