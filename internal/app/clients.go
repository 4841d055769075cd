package app

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/fred-backend/internal/platform/claude"
	"github.com/yungbote/fred-backend/internal/platform/logger"
	"github.com/yungbote/fred-backend/internal/platform/redis"
	"github.com/yungbote/fred-backend/internal/platform/sendgrid"
)

type Clients struct {
	Claude claude.Client
	// Redis and Mail are nil when not configured.
	Redis *goredis.Client
	Mail  sendgrid.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Anthropic
	cc, err := claude.New(log, claude.Config{
		APIKey:     cfg.Anthropic.APIKey,
		BaseURL:    cfg.Anthropic.BaseURL,
		Model:      cfg.Anthropic.Model,
		Timeout:    cfg.Anthropic.Timeout,
		MaxRetries: cfg.Anthropic.MaxRetries,
	})
	if err != nil {
		return Clients{}, fmt.Errorf("init anthropic client: %w", err)
	}
	out := Clients{Claude: cc}

	// Redis
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		rdb, err := redis.New(ctx, log, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
	} else {
		log.Info("Redis not configured, summarization locks are process-local")
	}

	// SendGrid
	if strings.TrimSpace(cfg.SendGrid.APIKey) != "" {
		mail, err := sendgrid.New(log, sendgrid.Config{
			APIKey:           cfg.SendGrid.APIKey,
			BaseURL:          cfg.SendGrid.BaseURL,
			DefaultFromEmail: cfg.SendGrid.FromEmail,
			DefaultFromName:  cfg.SendGrid.FromName,
			Timeout:          cfg.SendGrid.Timeout,
			MaxRetries:       cfg.SendGrid.MaxRetries,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init sendgrid client: %w", err)
		}
		out.Mail = mail
	} else {
		log.Info("SendGrid not configured, crisis alerts disabled")
	}

	return out, nil
}

func (c Clients) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
