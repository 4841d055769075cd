package testutil

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/fred-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB) *types.User {
	tb.Helper()
	now := time.Now().UTC()
	u := &types.User{
		ID:                        uuid.New(),
		DailyMessageResetAt:       now,
		WeeklyConversationResetAt: now,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedConversation(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID) *types.Conversation {
	tb.Helper()
	now := time.Now().UTC()
	c := &types.Conversation{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     "seeded",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed conversation: %v", err)
	}
	return c
}

// SeedMessages appends n alternating messages (user first) one second apart, ending at base.
func SeedMessages(tb testing.TB, ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, n int, base time.Time) []*types.Message {
	tb.Helper()
	out := make([]*types.Message, 0, n)
	start := base.Add(-time.Duration(n) * time.Second)
	for i := 0; i < n; i++ {
		role := types.RoleUser
		if i%2 == 1 {
			role = types.RoleAssistant
		}
		m := &types.Message{
			ID:             uuid.New(),
			ConversationID: conversationID,
			Role:           role,
			Content:        "message " + strconv.Itoa(i),
			CreatedAt:      start.Add(time.Duration(i) * time.Second).UTC(),
		}
		out = append(out, m)
	}
	if n > 0 {
		if err := tx.WithContext(ctx).Create(&out).Error; err != nil {
			tb.Fatalf("seed messages: %v", err)
		}
	}
	return out
}
