package user

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

type UserRepo interface {
	EnsureByID(dbc dbctx.Context, userID uuid.UUID, now time.Time) (*types.User, error)
	GetByID(dbc dbctx.Context, userID uuid.UUID) (*types.User, error)
	ResetDailyWindow(dbc dbctx.Context, userID uuid.UUID, at time.Time) error
	ResetWeeklyWindow(dbc dbctx.Context, userID uuid.UUID, at time.Time) error
	IncrementDailyMessages(dbc dbctx.Context, userID uuid.UUID) error
	IncrementWeeklyConversations(dbc dbctx.Context, userID uuid.UUID) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

// EnsureByID provisions a zeroed rate-limit row for an authenticated subject seen for the first time.
func (ur *userRepo) EnsureByID(dbc dbctx.Context, userID uuid.UUID, now time.Time) (*types.User, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	now = now.UTC()
	row := &types.User{
		ID:                        userID,
		DailyMessageResetAt:       now,
		WeeklyConversationResetAt: now,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
	if err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(row).Error; err != nil {
		return nil, err
	}
	return ur.GetByID(dbc, userID)
}

func (ur *userRepo) GetByID(dbc dbctx.Context, userID uuid.UUID) (*types.User, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	var out types.User
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", userID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (ur *userRepo) ResetDailyWindow(dbc dbctx.Context, userID uuid.UUID, at time.Time) error {
	return ur.update(dbc, userID, map[string]any{
		"daily_message_count":    0,
		"daily_message_reset_at": at.UTC(),
		"updated_at":             time.Now().UTC(),
	})
}

func (ur *userRepo) ResetWeeklyWindow(dbc dbctx.Context, userID uuid.UUID, at time.Time) error {
	return ur.update(dbc, userID, map[string]any{
		"weekly_conversation_count":    0,
		"weekly_conversation_reset_at": at.UTC(),
		"updated_at":                   time.Now().UTC(),
	})
}

func (ur *userRepo) IncrementDailyMessages(dbc dbctx.Context, userID uuid.UUID) error {
	return ur.update(dbc, userID, map[string]any{
		"daily_message_count": gorm.Expr("daily_message_count + ?", 1),
		"updated_at":          time.Now().UTC(),
	})
}

func (ur *userRepo) IncrementWeeklyConversations(dbc dbctx.Context, userID uuid.UUID) error {
	return ur.update(dbc, userID, map[string]any{
		"weekly_conversation_count": gorm.Expr("weekly_conversation_count + ?", 1),
		"updated_at":                time.Now().UTC(),
	})
}

func (ur *userRepo) update(dbc dbctx.Context, userID uuid.UUID, cols map[string]any) error {
	if userID == uuid.Nil {
		return fmt.Errorf("missing user_id")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	return dberr.RetryOnce(func() error {
		return transaction.WithContext(dbc.Ctx).
			Model(&types.User{}).
			Where("id = ?", userID).
			UpdateColumns(cols).Error
	})
}
