package usage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/fred-backend/internal/data/dberr"
	types "github.com/yungbote/fred-backend/internal/domain"
	"github.com/yungbote/fred-backend/internal/platform/dbctx"
	"github.com/yungbote/fred-backend/internal/platform/logger"
)

// Delta is one turn's contribution to a day's usage row.
type Delta struct {
	Messages     int64
	InputTokens  int64
	OutputTokens int64
	CachedTokens int64
	CostCents    int64
}

type UsageLogRepo interface {
	// AddForDay inserts the row for (user, day) or adds delta to every counter of the existing row.
	AddForDay(dbc dbctx.Context, userID uuid.UUID, day time.Time, delta Delta) (*types.UsageLog, error)
	GetForDay(dbc dbctx.Context, userID uuid.UUID, day time.Time) (*types.UsageLog, error)
	ListSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) ([]*types.UsageLog, error)
}

type usageLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUsageLogRepo(db *gorm.DB, baseLog *logger.Logger) UsageLogRepo {
	return &usageLogRepo{db: db, log: baseLog.With("repo", "UsageLogRepo")}
}

func (r *usageLogRepo) AddForDay(dbc dbctx.Context, userID uuid.UUID, day time.Time, delta Delta) (*types.UsageLog, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	day = types.UsageDay(day)
	now := time.Now().UTC()

	err := dberr.RetryOnce(func() error {
		row := &types.UsageLog{
			ID:            uuid.New(),
			UserID:        userID,
			Date:          day,
			MessageCount:  delta.Messages,
			InputTokens:   delta.InputTokens,
			OutputTokens:  delta.OutputTokens,
			CachedTokens:  delta.CachedTokens,
			EstimatedCost: delta.CostCents,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return txx.WithContext(dbc.Ctx).
			Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
				DoUpdates: clause.Assignments(map[string]any{
					"message_count":  gorm.Expr("usage_log.message_count + EXCLUDED.message_count"),
					"input_tokens":   gorm.Expr("usage_log.input_tokens + EXCLUDED.input_tokens"),
					"output_tokens":  gorm.Expr("usage_log.output_tokens + EXCLUDED.output_tokens"),
					"cached_tokens":  gorm.Expr("usage_log.cached_tokens + EXCLUDED.cached_tokens"),
					"estimated_cost": gorm.Expr("usage_log.estimated_cost + EXCLUDED.estimated_cost"),
					"updated_at":     gorm.Expr("EXCLUDED.updated_at"),
				}),
			}).
			Create(row).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetForDay(dbc, userID, day)
}

func (r *usageLogRepo) GetForDay(dbc dbctx.Context, userID uuid.UUID, day time.Time) (*types.UsageLog, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out types.UsageLog
	if err := txx.WithContext(dbc.Ctx).
		Where("user_id = ? AND date = ?", userID, types.UsageDay(day)).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *usageLogRepo) ListSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) ([]*types.UsageLog, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.UsageLog
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.UsageLog{}).
		Where("user_id = ? AND date >= ?", userID, types.UsageDay(since)).
		Order("date ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
