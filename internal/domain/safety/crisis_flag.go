package safety

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

type CrisisFlag struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"userId"`
	ConversationID *uuid.UUID `gorm:"type:uuid;index" json:"conversationId,omitempty"`

	Severity   string         `gorm:"column:severity;not null;index:idx_crisis_flag_queue,priority:2" json:"severity"`
	Indicators datatypes.JSON `gorm:"column:indicators;not null" json:"indicators"`
	// Redacted and capped at 500 characters.
	MessageSnippet string `gorm:"column:message_snippet;type:text;not null" json:"messageSnippet"`

	Handled   bool       `gorm:"column:handled;not null;default:false;index:idx_crisis_flag_queue,priority:1" json:"handled"`
	HandledBy *uuid.UUID `gorm:"type:uuid;column:handled_by" json:"handledBy,omitempty"`
	HandledAt *time.Time `gorm:"column:handled_at" json:"handledAt,omitempty"`
	Notes     *string    `gorm:"column:notes;type:text" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"not null;index:idx_crisis_flag_queue,priority:3" json:"createdAt"`
}

func (CrisisFlag) TableName() string { return "crisis_flag" }

func (f *CrisisFlag) IndicatorList() []string {
	if f == nil || len(f.Indicators) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(f.Indicators, &out); err != nil {
		return nil
	}
	return out
}

func EncodeIndicators(in []string) datatypes.JSON {
	if in == nil {
		in = []string{}
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(raw)
}
