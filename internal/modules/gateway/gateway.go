package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	types "github.com/yungbote/fred-backend/internal/domain"
	"github.com/yungbote/fred-backend/internal/modules/usage"
	"github.com/yungbote/fred-backend/internal/observability"
	"github.com/yungbote/fred-backend/internal/platform/claude"
	"github.com/yungbote/fred-backend/internal/platform/logger"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Options struct {
	MaxTokens   int64
	Temperature float64
}

type Result struct {
	Text  string
	Model string
	Usage usage.Tokens
}

type Config struct {
	Model string
	// RequestsPerSecond throttles outbound calls process-wide; zero disables throttling.
	RequestsPerSecond float64
	Burst             int
	// Timeout bounds a single call, including the wait for a throttle token.
	Timeout time.Duration
}

type Gateway struct {
	log     *logger.Logger
	client  claude.Client
	model   string
	limiter *rate.Limiter
	timeout time.Duration
}

func New(log *logger.Logger, client claude.Client, cfg Config) *Gateway {
	if log == nil {
		log = logger.Nop()
	}
	g := &Gateway{
		log:     log.With("service", "ModelGateway"),
		client:  client,
		model:   strings.TrimSpace(cfg.Model),
		timeout: cfg.Timeout,
	}
	if g.model == "" {
		g.model = claude.DefaultModel
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return g
}

func (g *Gateway) Model() string { return g.model }

// Send runs a chat call with the cached system prompt.
func (g *Gateway) Send(ctx context.Context, msgs []Message, opts Options) (*Result, error) {
	return g.call(ctx, "chat", SystemPrompt, msgs, opts)
}

// SendPlain runs a single user prompt with no system block.
func (g *Gateway) SendPlain(ctx context.Context, prompt string, opts Options) (*Result, error) {
	return g.call(ctx, "plain", "", []Message{{Role: types.RoleUser, Content: prompt}}, opts)
}

// SendWithSystem runs a single user prompt under a caller-supplied system block.
func (g *Gateway) SendWithSystem(ctx context.Context, system, prompt string, opts Options) (*Result, error) {
	return g.call(ctx, "instructed", system, []Message{{Role: types.RoleUser, Content: prompt}}, opts)
}

func (g *Gateway) call(ctx context.Context, purpose, system string, msgs []Message, opts Options) (*Result, error) {
	ctx, span := observability.Tracer().Start(ctx, "gateway.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("gateway.purpose", purpose),
		attribute.Int("gateway.turns", len(msgs)),
		attribute.Int64("gateway.max_tokens", opts.MaxTokens),
	)

	turns := normalizeTurns(msgs)
	if len(turns) == 0 {
		ge := &Error{Kind: KindMalformedRequest, Err: fmt.Errorf("no user turn to send"),
			Message: "AI service could not process this request. Please try again."}
		observability.ProviderCalls.WithLabelValues(string(ge.Kind)).Inc()
		span.SetStatus(codes.Error, string(ge.Kind))
		return nil, ge
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			ge := classify(err)
			observability.ProviderCalls.WithLabelValues(string(ge.Kind)).Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, string(ge.Kind))
			return nil, ge
		}
	}

	start := time.Now()
	resp, err := g.client.CreateMessage(ctx, claude.MessageRequest{
		Model:       g.model,
		System:      system,
		CacheSystem: system != "",
		Turns:       turns,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	observability.ProviderLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		ge := classify(err)
		observability.ProviderCalls.WithLabelValues(string(ge.Kind)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, string(ge.Kind))
		g.log.Warn("model call failed", "purpose", purpose, "kind", string(ge.Kind), "status", ge.StatusCode, "error", err)
		return nil, ge
	}
	observability.ProviderCalls.WithLabelValues("ok").Inc()

	out := &Result{
		Text:  resp.Text,
		Model: resp.Model,
		Usage: usage.Tokens{
			InputTokens:         resp.Usage.InputTokens,
			OutputTokens:        resp.Usage.OutputTokens,
			CacheCreationTokens: resp.Usage.CacheCreationInputTokens,
			CacheReadTokens:     resp.Usage.CacheReadInputTokens,
		},
	}
	if out.Model == "" {
		out.Model = g.model
	}
	span.SetAttributes(
		attribute.Int64("gateway.input_tokens", out.Usage.InputTokens),
		attribute.Int64("gateway.output_tokens", out.Usage.OutputTokens),
		attribute.Int64("gateway.cache_read_tokens", out.Usage.CacheReadTokens),
	)
	return out, nil
}

// normalizeTurns makes the list open with a user turn and strictly alternate.
func normalizeTurns(msgs []Message) []claude.Turn {
	out := make([]claude.Turn, 0, len(msgs))
	for _, m := range msgs {
		role := types.RoleUser
		if m.Role == types.RoleAssistant {
			role = types.RoleAssistant
		}
		if len(out) == 0 && role == types.RoleAssistant {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content += "\n\n" + m.Content
			continue
		}
		out = append(out, claude.Turn{Role: role, Content: m.Content})
	}
	return out
}
