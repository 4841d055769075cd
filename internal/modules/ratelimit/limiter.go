package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/fred-backend/internal/data/repos"
	types "github.com/yungbote/fred-backend/internal/domain"
	"github.com/yungbote/fred-backend/internal/observability"
	"github.com/yungbote/fred-backend/internal/platform/apierr"
	"github.com/yungbote/fred-backend/internal/platform/dbctx"
	"github.com/yungbote/fred-backend/internal/platform/logger"
)

const (
	day = 24 * time.Hour

	dailyWindowDays  = 1
	weeklyWindowDays = 7
)

type Limits struct {
	DailyMessages       int
	WeeklyConversations int
}

// Decision is the outcome of a check. ResetAt is set only when the request is denied.
type Decision struct {
	Allowed bool
	Reason  string
	ResetAt *time.Time
}

// DeniedError carries a denial to the HTTP layer.
type DeniedError struct {
	Reason  string
	ResetAt time.Time
}

func (e *DeniedError) Error() string { return e.Reason }

func (e *DeniedError) RetryAt() time.Time { return e.ResetAt }

// APIError renders the denial as a 429.
func (d Decision) APIError() *apierr.Error {
	if d.Allowed {
		return nil
	}
	de := &DeniedError{Reason: d.Reason}
	if d.ResetAt != nil {
		de.ResetAt = *d.ResetAt
	}
	return apierr.Public(http.StatusTooManyRequests, "rate_limited", d.Reason, de)
}

type Deps struct {
	Log    *logger.Logger
	Users  repos.UserRepo
	Limits Limits
	Now    func() time.Time
}

// Limiter gates message sends and conversation creation on per-user windows stored on the user row.
// Check and Consume are separate steps; concurrent requests from one user can overshoot a limit by
// the number of requests in flight.
type Limiter struct {
	log    *logger.Logger
	users  repos.UserRepo
	limits Limits
	now    func() time.Time
}

func New(deps Deps) *Limiter {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Limiter{log: log.With("service", "RateLimiter"), users: deps.Users, limits: deps.Limits, now: now}
}

func (l *Limiter) Limits() Limits { return l.limits }

// CheckMessage applies the daily message window.
func (l *Limiter) CheckMessage(ctx context.Context, userID uuid.UUID) (Decision, error) {
	u, err := l.load(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	return l.check(ctx, window{
		name:    "daily_messages",
		days:    dailyWindowDays,
		limit:   l.limits.DailyMessages,
		count:   u.DailyMessageCount,
		resetAt: u.DailyMessageResetAt,
		reason:  fmt.Sprintf("Daily message limit (%d) reached. Please try again tomorrow.", l.limits.DailyMessages),
		doReset: l.users.ResetDailyWindow,
		userID:  userID,
	})
}

// CheckConversation applies the weekly conversation-creation window.
func (l *Limiter) CheckConversation(ctx context.Context, userID uuid.UUID) (Decision, error) {
	u, err := l.load(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	return l.check(ctx, window{
		name:    "weekly_conversations",
		days:    weeklyWindowDays,
		limit:   l.limits.WeeklyConversations,
		count:   u.WeeklyConversationCount,
		resetAt: u.WeeklyConversationResetAt,
		reason:  fmt.Sprintf("Weekly conversation limit (%d) reached", l.limits.WeeklyConversations),
		doReset: l.users.ResetWeeklyWindow,
		userID:  userID,
	})
}

func (l *Limiter) ConsumeMessage(ctx context.Context, userID uuid.UUID) error {
	return l.users.IncrementDailyMessages(dbctx.Context{Ctx: ctx}, userID)
}

func (l *Limiter) ConsumeConversation(ctx context.Context, userID uuid.UUID) error {
	return l.users.IncrementWeeklyConversations(dbctx.Context{Ctx: ctx}, userID)
}

type window struct {
	name    string
	days    int
	limit   int
	count   int
	resetAt time.Time
	reason  string
	doReset func(dbc dbctx.Context, userID uuid.UUID, at time.Time) error
	userID  uuid.UUID
}

func (l *Limiter) check(ctx context.Context, w window) (Decision, error) {
	now := l.now().UTC()
	daysSinceReset := int(now.Sub(w.resetAt) / day)
	if daysSinceReset >= w.days {
		if err := w.doReset(dbctx.Context{Ctx: ctx}, w.userID, now); err != nil {
			return Decision{}, err
		}
		return Decision{Allowed: true}, nil
	}
	if w.count >= w.limit {
		resetAt := w.resetAt.UTC().Add(time.Duration(w.days) * day)
		observability.RateLimitDenials.WithLabelValues(w.name).Inc()
		l.log.Info("rate limit denied", "user_id", w.userID.String(), "window", w.name, "limit", w.limit)
		return Decision{Allowed: false, Reason: w.reason, ResetAt: &resetAt}, nil
	}
	return Decision{Allowed: true}, nil
}

func (l *Limiter) load(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	u, err := l.users.EnsureByID(dbctx.Context{Ctx: ctx}, userID, l.now())
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %s not provisioned", userID)
	}
	return u, nil
}
