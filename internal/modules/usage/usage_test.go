package usage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/fred-backend/internal/data/repos"
	"github.com/yungbote/fred-backend/internal/data/repos/testutil"
)

func TestEstimateCostCents(t *testing.T) {
	cases := []struct {
		name string
		in   Tokens
		want int64
	}{
		{name: "zero", in: Tokens{}, want: 0},
		{name: "one_million_input", in: Tokens{InputTokens: 1_000_000}, want: 300},
		{name: "one_million_output", in: Tokens{OutputTokens: 1_000_000}, want: 1500},
		{name: "one_million_cache_write", in: Tokens{CacheCreationTokens: 1_000_000}, want: 375},
		{name: "one_million_cache_read", in: Tokens{CacheReadTokens: 1_000_000}, want: 30},
		{name: "typical_turn_rounds", in: Tokens{InputTokens: 1200, OutputTokens: 250, CacheReadTokens: 2000}, want: 1},
		{name: "tiny_rounds_down", in: Tokens{InputTokens: 100, OutputTokens: 10}, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EstimateCostCents(tc.in); got != tc.want {
				t.Fatalf("EstimateCostCents(%+v)=%d, want %d", tc.in, got, tc.want)
			}
		})
	}
}

func TestCacheHitRate(t *testing.T) {
	cases := []struct {
		input, cached int64
		want          float64
	}{
		{0, 0, 0},
		{100, 0, 0},
		{0, 100, 100},
		{2, 1, 33.3},
		{1, 2, 66.7},
	}
	for _, tc := range cases {
		if got := CacheHitRate(tc.input, tc.cached); got != tc.want {
			t.Fatalf("CacheHitRate(%d, %d)=%v, want %v", tc.input, tc.cached, got, tc.want)
		}
	}
}

func TestLogUsageIsAdditive(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, db)

	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	uc := New(UsecasesDeps{
		Log:                 testutil.Logger(t),
		Usage:               repos.NewUsageLogRepo(db, testutil.Logger(t)),
		DailyThresholdCents: 1,
		Now:                 func() time.Time { return now },
	})

	first, err := uc.LogUsage(ctx, u.ID, Tokens{InputTokens: 1_000_000})
	require.NoError(t, err)
	require.EqualValues(t, 1, first.MessageCount)
	require.EqualValues(t, 300, first.EstimatedCost)

	second, err := uc.LogUsage(ctx, u.ID, Tokens{OutputTokens: 1_000_000, CacheReadTokens: 500})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.EqualValues(t, 2, second.MessageCount)
	require.EqualValues(t, 1800, second.EstimatedCost)
	require.EqualValues(t, 500, second.CachedTokens)

	sum, err := uc.Summary(ctx, u.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, sum.TotalMessages)
	require.EqualValues(t, 1800, sum.TotalCost)
	require.Equal(t, 30, sum.Days)
}
