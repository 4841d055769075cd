package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/fred-backend/internal/platform/logger"
)

func TestLockerExcludesSecondHolder(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := New(ctx, logger.Nop(), Config{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	l := NewLocker(logger.Nop(), rdb, "fred-test")
	key := "summarize:" + uuid.NewString()

	release, err := l.TryLock(ctx, key, 5*time.Second)
	require.NoError(t, err)

	_, err = l.TryLock(ctx, key, 5*time.Second)
	require.True(t, errors.Is(err, ErrNotAcquired), "err=%v", err)

	require.NoError(t, release(ctx))
	again, err := l.TryLock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestNewRequiresAddr(t *testing.T) {
	_, err := New(context.Background(), logger.Nop(), Config{})
	require.Error(t, err)
}
