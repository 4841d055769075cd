package safety

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/fred-backend/internal/domain"
	perrors "github.com/yungbote/fred-backend/internal/pkg/errors"
	"github.com/yungbote/fred-backend/internal/platform/dbctx"
	"github.com/yungbote/fred-backend/internal/platform/logger"
)

type CrisisFlagFilter struct {
	Severity string
	Handled  *bool
}

type CrisisFlagRepo interface {
	Create(dbc dbctx.Context, rows []*types.CrisisFlag) ([]*types.CrisisFlag, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CrisisFlag, error)
	List(dbc dbctx.Context, filter CrisisFlagFilter, offset, limit int) ([]*types.CrisisFlag, int64, error)
	// MarkHandled flips handled=false to true exactly once.
	MarkHandled(dbc dbctx.Context, id uuid.UUID, handledBy uuid.UUID, notes *string, at time.Time) (*types.CrisisFlag, error)
}

type crisisFlagRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCrisisFlagRepo(db *gorm.DB, baseLog *logger.Logger) CrisisFlagRepo {
	return &crisisFlagRepo{db: db, log: baseLog.With("repo", "CrisisFlagRepo")}
}

func (r *crisisFlagRepo) Create(dbc dbctx.Context, rows []*types.CrisisFlag) ([]*types.CrisisFlag, error) {
	if len(rows) == 0 {
		return []*types.CrisisFlag{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row.UserID == uuid.Nil {
			return nil, fmt.Errorf("missing user_id")
		}
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		if len(row.Indicators) == 0 {
			row.Indicators = types.EncodeIndicators(nil)
		}
	}
	if err := txx.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *crisisFlagRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CrisisFlag, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out types.CrisisFlag
	if err := txx.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *crisisFlagRepo) List(dbc dbctx.Context, filter CrisisFlagFilter, offset, limit int) ([]*types.CrisisFlag, int64, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	q := txx.WithContext(dbc.Ctx).Model(&types.CrisisFlag{})
	if filter.Severity != "" {
		q = q.Where("severity = ?", filter.Severity)
	}
	if filter.Handled != nil {
		q = q.Where("handled = ?", *filter.Handled)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.CrisisFlag
	if err := q.Order("created_at DESC").Order("id DESC").Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *crisisFlagRepo) MarkHandled(dbc dbctx.Context, id uuid.UUID, handledBy uuid.UUID, notes *string, at time.Time) (*types.CrisisFlag, error) {
	if id == uuid.Nil {
		return nil, perrors.ErrNotFound
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	res := txx.WithContext(dbc.Ctx).
		Model(&types.CrisisFlag{}).
		Where("id = ? AND handled = ?", id, false).
		UpdateColumns(map[string]any{
			"handled":    true,
			"handled_by": handledBy,
			"handled_at": at.UTC(),
			"notes":      notes,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	row, err := r.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, perrors.ErrNotFound
	}
	if res.RowsAffected == 0 {
		return row, perrors.ErrAlreadyHandled
	}
	return row, nil
}
