package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fred"

var (
	// Labels: method, route, status
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Labels: outcome (ok, blocked, rate_limited, invalid, not_found, provider_error, error)
	TurnOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Chat turns by outcome",
		},
		[]string{"outcome"},
	)

	CrisisFlags = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "safety",
			Name:      "crisis_flags_total",
			Help:      "Crisis flags raised by severity",
		},
		[]string{"severity"},
	)

	SafetyBlocks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "safety",
			Name:      "reply_blocks_total",
			Help:      "Generated replies replaced by the fallback, by reason",
		},
		[]string{"reason"},
	)

	// Labels: window (daily_messages, weekly_conversations)
	RateLimitDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "denials_total",
			Help:      "Requests denied by the per-user limiter",
		},
		[]string{"window"},
	)

	// Labels: kind (ok, capacity_exceeded, auth_failed, malformed_request, other)
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Language model calls by result kind",
		},
		[]string{"kind"},
	)

	ProviderLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "call_duration_seconds",
			Help:      "Language model call latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
	)

	// Labels: kind (input, output, cache_write, cache_read)
	Tokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "usage",
			Name:      "tokens_total",
			Help:      "Tokens accounted to users",
		},
		[]string{"kind"},
	)

	CostCents = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "usage",
			Name:      "estimated_cost_cents_total",
			Help:      "Estimated spend in cents",
		},
	)

	CostThresholdBreaches = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "usage",
			Name:      "cost_threshold_breaches_total",
			Help:      "Usage updates that left a user's daily cost above the threshold",
		},
	)

	// Labels: result (ok, skipped, error)
	Summarizations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "context",
			Name:      "summarizations_total",
			Help:      "Background conversation summarizations by result",
		},
		[]string{"result"},
	)

	// Labels: result (matched, topped_up, fallback, empty, error)
	ResourceMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resources",
			Name:      "matches_total",
			Help:      "Resource match requests by result",
		},
		[]string{"result"},
	)

	// Labels: result (ok, unparsed, error)
	HandoffSummaries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handoff",
			Name:      "summaries_total",
			Help:      "Clinician handoff summaries by result",
		},
		[]string{"result"},
	)

	// Labels: type, result (ok, error, panic)
	BackgroundTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "tasks_total",
			Help:      "Background tasks by type and result",
		},
		[]string{"type", "result"},
	)
)

func RecordTokens(input, output, cacheWrite, cacheRead, costCents int64) {
	Tokens.WithLabelValues("input").Add(float64(input))
	Tokens.WithLabelValues("output").Add(float64(output))
	Tokens.WithLabelValues("cache_write").Add(float64(cacheWrite))
	Tokens.WithLabelValues("cache_read").Add(float64(cacheRead))
	if costCents > 0 {
		CostCents.Add(float64(costCents))
	}
}

func ObserveHTTP(method, route, status string, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	HTTPLatency.WithLabelValues(method, route, status).Observe(d.Seconds())
}
