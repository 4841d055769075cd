package resource

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	TypeHotline      = "hotline"
	TypeService      = "service"
	TypeHospital     = "hospital"
	TypePsychologist = "psychologist"
	TypeGP           = "gp"

	DefaultRegion = "Victoria"

	TagCrisis = "crisis"
)

var Types = []string{TypeHotline, TypeService, TypeHospital, TypePsychologist, TypeGP}

func ValidType(t string) bool {
	for _, v := range Types {
		if v == t {
			return true
		}
	}
	return false
}

// Resource is a support service the assistant can refer a user to.
type Resource struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Type string    `gorm:"column:type;not null" json:"type"`

	Description string  `gorm:"column:description;type:text;not null" json:"description"`
	Phone       *string `gorm:"column:phone" json:"phone,omitempty"`
	Website     *string `gorm:"column:website" json:"website,omitempty"`
	Address     *string `gorm:"column:address" json:"address,omitempty"`
	Region      string  `gorm:"column:region;not null;default:'Victoria'" json:"region"`

	Tags     datatypes.JSON `gorm:"column:tags;not null" json:"tags"`
	Priority int            `gorm:"column:priority;not null;default:0;index:idx_resource_active_priority,priority:2" json:"priority"`
	Active   bool           `gorm:"column:active;not null;index:idx_resource_active_priority,priority:1" json:"active"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (Resource) TableName() string { return "resource" }

func (r *Resource) TagList() []string {
	if r == nil || len(r.Tags) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(r.Tags, &out); err != nil {
		return nil
	}
	return out
}

func (r *Resource) HasTag(tag string) bool {
	for _, t := range r.TagList() {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func EncodeTags(in []string) datatypes.JSON {
	if in == nil {
		in = []string{}
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(raw)
}
