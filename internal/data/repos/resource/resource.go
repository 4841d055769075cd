package resource

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/fred-backend/internal/domain"
	"github.com/yungbote/fred-backend/internal/platform/dbctx"
	"github.com/yungbote/fred-backend/internal/platform/logger"
)

const maxActive = 500

type ResourceFilter struct {
	Type   string
	Region string
	// Tag is matched case-insensitively after the query; tags are stored as a JSON array.
	Tag string
}

type ResourceRepo interface {
	// ListActive orders by priority descending, then name.
	ListActive(dbc dbctx.Context, filter ResourceFilter) ([]*types.Resource, error)
	// UpsertByName inserts rows or overwrites the catalog fields of rows with the same name.
	UpsertByName(dbc dbctx.Context, rows []*types.Resource) error
	Count(dbc dbctx.Context) (int64, error)
}

type resourceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResourceRepo(db *gorm.DB, baseLog *logger.Logger) ResourceRepo {
	return &resourceRepo{db: db, log: baseLog.With("repo", "ResourceRepo")}
}

func (r *resourceRepo) ListActive(dbc dbctx.Context, filter ResourceFilter) ([]*types.Resource, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	q := txx.WithContext(dbc.Ctx).Model(&types.Resource{}).Where("active = ?", true)
	if t := strings.TrimSpace(filter.Type); t != "" {
		q = q.Where("type = ?", t)
	}
	if region := strings.TrimSpace(filter.Region); region != "" {
		q = q.Where("region = ?", region)
	}
	var rows []*types.Resource
	if err := q.Order("priority DESC").Order("name ASC").Limit(maxActive).Find(&rows).Error; err != nil {
		return nil, err
	}
	tag := strings.TrimSpace(filter.Tag)
	if tag == "" {
		return rows, nil
	}
	out := rows[:0]
	for _, row := range rows {
		if row.HasTag(tag) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *resourceRepo) UpsertByName(dbc dbctx.Context, rows []*types.Resource) error {
	if len(rows) == 0 {
		return nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	now := time.Now().UTC()
	for _, row := range rows {
		row.Name = strings.TrimSpace(row.Name)
		if row.Name == "" {
			return fmt.Errorf("missing resource name")
		}
		if !types.ValidResourceType(row.Type) {
			return fmt.Errorf("resource %q: invalid type %q", row.Name, row.Type)
		}
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.Region == "" {
			row.Region = types.ResourceDefaultRegion
		}
		if len(row.Tags) == 0 {
			row.Tags = types.EncodeTags(nil)
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		row.UpdatedAt = now
	}
	return txx.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"type", "description", "phone", "website", "address",
				"region", "tags", "priority", "active", "updated_at",
			}),
		}).
		Create(&rows).Error
}

func (r *resourceRepo) Count(dbc dbctx.Context) (int64, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var n int64
	if err := txx.WithContext(dbc.Ctx).Model(&types.Resource{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
