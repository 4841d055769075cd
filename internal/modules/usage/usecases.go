package usage

import (
	"context"
	"math"
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

const summaryDays = 30

type UsecasesDeps struct {
	Log   *logger.Logger
	Usage repos.UsageLogRepo

	Pricing Pricing
	// DailyThresholdCents enables the per-user daily cost warning when > 0.
	DailyThresholdCents int64
	Now                 func() time.Time
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Pricing == (Pricing{}) {
		deps.Pricing = DefaultPricing
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return Usecases{deps: deps}
}

func (u Usecases) EstimateCostCents(t Tokens) int64 { return u.deps.Pricing.EstimateCostCents(t) }

// LogUsage adds one turn to today's row for the user. Retries are the caller's concern.
func (u Usecases) LogUsage(ctx context.Context, userID uuid.UUID, t Tokens) (*types.UsageLog, error) {
	cost := u.deps.Pricing.EstimateCostCents(t)
	row, err := u.deps.Usage.AddForDay(dbctx.Context{Ctx: ctx}, userID, u.deps.Now(), repos.UsageDelta{
		Messages:     1,
		InputTokens:  t.InputTokens,
		OutputTokens: t.OutputTokens,
		CachedTokens: t.CacheReadTokens,
		CostCents:    cost,
	})
	if err != nil {
		return nil, err
	}
	observability.RecordTokens(t.InputTokens, t.OutputTokens, t.CacheCreationTokens, t.CacheReadTokens, cost)

	if u.deps.DailyThresholdCents > 0 && row != nil && row.EstimatedCost > u.deps.DailyThresholdCents {
		observability.CostThresholdBreaches.Inc()
		if u.deps.Log != nil {
			u.deps.Log.Warn("daily cost threshold exceeded",
				"user_id", userID.String(),
				"day_cost_cents", row.EstimatedCost,
				"threshold_cents", u.deps.DailyThresholdCents,
			)
		}
	}
	return row, nil
}

type Summary struct {
	Days          int     `json:"days"`
	TotalMessages int64   `json:"totalMessages"`
	InputTokens   int64   `json:"inputTokens"`
	OutputTokens  int64   `json:"outputTokens"`
	CachedTokens  int64   `json:"cachedTokens"`
	TotalCost     int64   `json:"totalCost"`
	CacheHitRate  float64 `json:"cacheHitRate"`
}

func (u Usecases) Summary(ctx context.Context, userID uuid.UUID) (Summary, error) {
	out := Summary{Days: summaryDays}
	since := u.deps.Now().UTC().AddDate(0, 0, -summaryDays)
	rows, err := u.deps.Usage.ListSince(dbctx.Context{Ctx: ctx}, userID, since)
	if err != nil {
		return out, apierr.New(http.StatusInternalServerError, "usage_summary_failed", err)
	}
	for _, r := range rows {
		out.TotalMessages += r.MessageCount
		out.InputTokens += r.InputTokens
		out.OutputTokens += r.OutputTokens
		out.CachedTokens += r.CachedTokens
		out.TotalCost += r.EstimatedCost
	}
	out.CacheHitRate = CacheHitRate(out.InputTokens, out.CachedTokens)
	return out, nil
}

// CacheHitRate is cached / (input + cached) as a percentage with one decimal.
func CacheHitRate(input, cached int64) float64 {
	total := input + cached
	if total <= 0 {
		return 0
	}
	return math.Round(float64(cached)/float64(total)*1000) / 10
}
