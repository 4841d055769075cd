package claude

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/yungbote/fred-backend/internal/platform/logger"
)

const DefaultModel = "claude-sonnet-4-5-20250929"

type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
}

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

type Turn struct {
	Role    string
	Content string
}

// MessageRequest is one non-streaming Messages API call. When CacheSystem is set the system
// block is marked for the ephemeral prompt cache.
type MessageRequest struct {
	Model       string
	System      string
	CacheSystem bool
	Turns       []Turn
	MaxTokens   int64
	Temperature float64
}

type Usage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

type MessageResponse struct {
	Text       string
	Model      string
	StopReason string
	Usage      Usage
}

type client struct {
	log   *logger.Logger
	sdk   anthropic.Client
	model string
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing ANTHROPIC_API_KEY")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}

	return &client{
		log:   log.With("client", "ClaudeClient"),
		sdk:   anthropic.NewClient(opts...),
		model: model,
	}, nil
}

func (c *client) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.model
	}
	if req.MaxTokens <= 0 {
		return nil, fmt.Errorf("claude: max tokens must be positive")
	}
	if len(req.Turns) == 0 {
		return nil, fmt.Errorf("claude: no turns")
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   req.MaxTokens,
		Temperature: anthropic.Float(req.Temperature),
		Messages:    make([]anthropic.MessageParam, 0, len(req.Turns)),
	}
	if sys := req.System; sys != "" {
		block := anthropic.TextBlockParam{Text: sys}
		if req.CacheSystem {
			block.CacheControl = anthropic.NewCacheControlEphemeralParam()
		}
		params.System = []anthropic.TextBlockParam{block}
	}
	for _, t := range req.Turns {
		switch t.Role {
		case "assistant":
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Content)))
		}
	}

	msg, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return nil, wrapError(err)
	}

	out := &MessageResponse{
		Model:      string(msg.Model),
		StopReason: string(msg.StopReason),
		Usage: Usage{
			InputTokens:              msg.Usage.InputTokens,
			OutputTokens:             msg.Usage.OutputTokens,
			CacheCreationInputTokens: msg.Usage.CacheCreationInputTokens,
			CacheReadInputTokens:     msg.Usage.CacheReadInputTokens,
		},
	}
	// Only the first block is used; it is text for plain conversational calls.
	if len(msg.Content) > 0 && msg.Content[0].Type == "text" {
		out.Text = msg.Content[0].Text
	}

	switch {
	case out.Usage.CacheReadInputTokens > 0:
		c.log.Debug("prompt cache hit", "cache_read_tokens", out.Usage.CacheReadInputTokens)
	case out.Usage.CacheCreationInputTokens > 0:
		c.log.Debug("prompt cache write", "cache_write_tokens", out.Usage.CacheCreationInputTokens)
	}
	return out, nil
}

// APIError is a provider failure that carries the upstream HTTP status.
type APIError struct {
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e == nil {
		return "claude: <nil error>"
	}
	return fmt.Sprintf("claude http %d: %v", e.StatusCode, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

func (e *APIError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func wrapError(err error) error {
	var sdkErr *anthropic.Error
	if errors.As(err, &sdkErr) {
		return &APIError{StatusCode: sdkErr.StatusCode, Err: err}
	}
	return err
}
