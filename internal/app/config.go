package app

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	App       AppConfig       `koanf:"app"`
	HTTP      HTTPConfig      `koanf:"http"`
	Log       LogConfig       `koanf:"log"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Auth      AuthConfig      `koanf:"auth"`
	Anthropic AnthropicConfig `koanf:"anthropic"`
	Limits    LimitsConfig    `koanf:"limits"`
	Context   ContextConfig   `koanf:"context"`
	Chat      ChatConfig      `koanf:"chat"`
	Summary   SummaryConfig   `koanf:"summary"`
	Resources ResourcesConfig `koanf:"resources"`
	Handoff   HandoffConfig   `koanf:"handoff"`
	Safety    SafetyConfig    `koanf:"safety"`
	Usage     UsageConfig     `koanf:"usage"`
	SendGrid  SendGridConfig  `koanf:"sendgrid"`
	Worker    WorkerConfig    `koanf:"worker"`
	OTel      OTelConfig      `koanf:"otel"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Environment string `koanf:"environment"`
	Version     string `koanf:"version"`
}

type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MetricsPath     string        `koanf:"metrics_path"`
}

type LogConfig struct {
	Mode     string `koanf:"mode"`
	Level    string `koanf:"level"`
	Redact   bool   `koanf:"redact"`
	HashSalt string `koanf:"hash_salt"`
}

type DatabaseConfig struct {
	URL           string        `koanf:"url"`
	Host          string        `koanf:"host"`
	Port          int           `koanf:"port"`
	User          string        `koanf:"user"`
	Password      string        `koanf:"password"`
	Name          string        `koanf:"name"`
	SSLMode       string        `koanf:"sslmode"`
	MaxOpenConns  int           `koanf:"max_open_conns"`
	MaxIdleConns  int           `koanf:"max_idle_conns"`
	SlowThreshold time.Duration `koanf:"slow_threshold"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

type AuthConfig struct {
	JWTSecretKey string        `koanf:"jwt_secret_key"`
	Issuer       string        `koanf:"issuer"`
	DevTokenTTL  time.Duration `koanf:"dev_token_ttl"`
}

type AnthropicConfig struct {
	APIKey            string        `koanf:"api_key"`
	BaseURL           string        `koanf:"base_url"`
	Model             string        `koanf:"model"`
	Timeout           time.Duration `koanf:"timeout"`
	MaxRetries        int           `koanf:"max_retries"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
}

type LimitsConfig struct {
	DailyMessages       int `koanf:"daily_messages"`
	WeeklyConversations int `koanf:"weekly_conversations"`
	MaxMessageLength    int `koanf:"max_message_length"`
}

type ContextConfig struct {
	WindowSize             int `koanf:"window_size"`
	SummarizationThreshold int `koanf:"summarization_threshold"`
}

type ChatConfig struct {
	MaxTokens       int64   `koanf:"max_tokens"`
	CrisisMaxTokens int64   `koanf:"crisis_max_tokens"`
	Temperature     float64 `koanf:"temperature"`
}

type SummaryConfig struct {
	MaxTokens   int64   `koanf:"max_tokens"`
	Temperature float64 `koanf:"temperature"`
}

type ResourcesConfig struct {
	MatchMaxTokens int64 `koanf:"match_max_tokens"`
	// SeedOnStart upserts the built-in catalog when the server starts.
	SeedOnStart bool `koanf:"seed_on_start"`
}

type HandoffConfig struct {
	MaxTokens        int64   `koanf:"max_tokens"`
	Temperature      float64 `koanf:"temperature"`
	MaxConversations int     `koanf:"max_conversations"`
	// Timezone is an IANA zone name used for transcript dates.
	Timezone string `koanf:"timezone"`
}

type SafetyConfig struct {
	RedactSnippets bool `koanf:"redact_snippets"`
}

type PricingConfig struct {
	InputPerMTok      float64 `koanf:"input_per_mtok"`
	OutputPerMTok     float64 `koanf:"output_per_mtok"`
	CacheWritePerMTok float64 `koanf:"cache_write_per_mtok"`
	CacheReadPerMTok  float64 `koanf:"cache_read_per_mtok"`
}

type UsageConfig struct {
	DailyCostThresholdCents int64         `koanf:"daily_cost_threshold_cents"`
	Pricing                 PricingConfig `koanf:"pricing"`
}

type SendGridConfig struct {
	APIKey          string        `koanf:"api_key"`
	BaseURL         string        `koanf:"base_url"`
	FromEmail       string        `koanf:"from_email"`
	FromName        string        `koanf:"from_name"`
	Timeout         time.Duration `koanf:"timeout"`
	MaxRetries      int           `koanf:"max_retries"`
	AlertRecipients []string      `koanf:"alert_recipients"`
}

type WorkerConfig struct {
	Concurrency int           `koanf:"concurrency"`
	QueueSize   int           `koanf:"queue_size"`
	TaskTimeout time.Duration `koanf:"task_timeout"`
}

type OTelConfig struct {
	Enabled     bool    `koanf:"enabled"`
	ServiceName string  `koanf:"service_name"`
	Endpoint    string  `koanf:"endpoint"`
	Headers     string  `koanf:"headers"`
	Insecure    bool    `koanf:"insecure"`
	SampleRatio float64 `koanf:"sample_ratio"`
}

// envKeys maps deployment environment variables onto config keys. Anything else is ignored.
var envKeys = map[string]string{
	"APP_ENV":     "app.environment",
	"APP_VERSION": "app.version",

	"HTTP_ADDR":    "http.addr",
	"CORS_ORIGINS": "http.cors_origins",

	"LOG_MODE":      "log.mode",
	"LOG_LEVEL":     "log.level",
	"LOG_REDACT":    "log.redact",
	"LOG_HASH_SALT": "log.hash_salt",

	"DATABASE_URL":      "database.url",
	"POSTGRES_HOST":     "database.host",
	"POSTGRES_PORT":     "database.port",
	"POSTGRES_USER":     "database.user",
	"POSTGRES_PASSWORD": "database.password",
	"POSTGRES_NAME":     "database.name",
	"POSTGRES_DB":       "database.name",
	"POSTGRES_SSLMODE":  "database.sslmode",

	"REDIS_ADDR":     "redis.addr",
	"REDIS_PASSWORD": "redis.password",
	"REDIS_DB":       "redis.db",

	"JWT_SECRET_KEY": "auth.jwt_secret_key",
	"JWT_ISSUER":     "auth.issuer",

	"ANTHROPIC_API_KEY":  "anthropic.api_key",
	"ANTHROPIC_BASE_URL": "anthropic.base_url",
	"ANTHROPIC_MODEL":    "anthropic.model",

	"DAILY_MESSAGE_LIMIT":       "limits.daily_messages",
	"WEEKLY_CONVERSATION_LIMIT": "limits.weekly_conversations",
	"MAX_MESSAGE_LENGTH":        "limits.max_message_length",
	"CONTEXT_WINDOW_SIZE":       "context.window_size",
	"SUMMARIZATION_THRESHOLD":   "context.summarization_threshold",

	"REDACT_CRISIS_SNIPPETS":     "safety.redact_snippets",
	"SEED_RESOURCES":             "resources.seed_on_start",
	"HANDOFF_TIMEZONE":           "handoff.timezone",
	"DAILY_COST_THRESHOLD_CENTS": "usage.daily_cost_threshold_cents",

	"SENDGRID_API_KEY":    "sendgrid.api_key",
	"SENDGRID_BASE_URL":   "sendgrid.base_url",
	"SENDGRID_FROM_EMAIL": "sendgrid.from_email",
	"SENDGRID_FROM_NAME":  "sendgrid.from_name",
	"CRISIS_ALERT_EMAILS": "sendgrid.alert_recipients",

	"WORKER_CONCURRENCY": "worker.concurrency",

	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_EXPORTER_OTLP_HEADERS":  "otel.headers",
	"OTEL_EXPORTER_OTLP_INSECURE": "otel.insecure",
	"OTEL_TRACES_SAMPLER_ARG":     "otel.sample_ratio",
}

// LoadConfig layers embedded defaults, then the optional YAML file at path (or FRED_CONFIG), then the
// environment.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(defaultsYAML), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if strings.TrimSpace(path) == "" {
		path = os.Getenv("FRED_CONFIG")
	}
	if path = strings.TrimSpace(path); path != "" {
		raw, err := readConfigFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := k.Load(rawbytes.Provider(raw), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return envKeys[s]
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.SendGrid.AlertRecipients = splitList(cfg.SendGrid.AlertRecipients)
	cfg.HTTP.CORSOrigins = splitList(cfg.HTTP.CORSOrigins)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	return io.ReadAll(io.LimitReader(f, maxConfigFileSize))
}

// Validate checks the settings that the core algorithms depend on. Provider and database credentials
// are checked where they are used, so that migrate and token can run without them.
func (c Config) Validate() error {
	var errs []error
	if c.Limits.DailyMessages <= 0 {
		errs = append(errs, errors.New("limits.daily_messages must be positive"))
	}
	if c.Limits.WeeklyConversations <= 0 {
		errs = append(errs, errors.New("limits.weekly_conversations must be positive"))
	}
	if c.Limits.MaxMessageLength <= 0 {
		errs = append(errs, errors.New("limits.max_message_length must be positive"))
	}
	if c.Context.WindowSize <= 0 {
		errs = append(errs, errors.New("context.window_size must be positive"))
	}
	if c.Context.SummarizationThreshold < c.Context.WindowSize {
		errs = append(errs, fmt.Errorf("context.summarization_threshold (%d) must be >= context.window_size (%d)",
			c.Context.SummarizationThreshold, c.Context.WindowSize))
	}
	if c.Chat.MaxTokens <= 0 || c.Chat.CrisisMaxTokens <= 0 || c.Summary.MaxTokens <= 0 {
		errs = append(errs, errors.New("chat and summary token budgets must be positive"))
	}
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 1 {
		errs = append(errs, errors.New("chat.temperature must be within [0, 1]"))
	}
	if c.Resources.MatchMaxTokens <= 0 || c.Handoff.MaxTokens <= 0 {
		errs = append(errs, errors.New("resources and handoff token budgets must be positive"))
	}
	if c.Handoff.Temperature < 0 || c.Handoff.Temperature > 1 {
		errs = append(errs, errors.New("handoff.temperature must be within [0, 1]"))
	}
	if c.Usage.DailyCostThresholdCents < 0 {
		errs = append(errs, errors.New("usage.daily_cost_threshold_cents must not be negative"))
	}
	if c.Worker.Concurrency <= 0 {
		errs = append(errs, errors.New("worker.concurrency must be positive"))
	}
	return errors.Join(errs...)
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
