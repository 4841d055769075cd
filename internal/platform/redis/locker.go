package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/fred-backend/internal/platform/logger"
)

var ErrNotAcquired = errors.New("lock not acquired")

// Locker hands out short-lived advisory locks keyed by name.
type Locker interface {
	// TryLock returns a release func, or ErrNotAcquired when someone else holds the key.
	TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

// Only the holder's token may delete the key.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type locker struct {
	log    *logger.Logger
	rdb    goredis.Cmdable
	prefix string
}

func NewLocker(log *logger.Logger, rdb goredis.Cmdable, prefix string) Locker {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "fred"
	}
	return &locker{log: log.With("client", "RedisLocker"), rdb: rdb, prefix: prefix}
}

func (l *locker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("lock ttl must be positive")
	}
	full := l.prefix + ":lock:" + key
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx %s: %w", full, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.rdb, []string{full}, token).Err(); err != nil && !errors.Is(err, goredis.Nil) {
			l.log.Warn("lock release failed", "key", full, "error", err)
			return err
		}
		return nil
	}
	return release, nil
}
