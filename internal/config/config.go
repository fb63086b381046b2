package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// DefaultCopyNumbers receive a copy of every webhook message unless
// COPY_NUMBERS overrides them.
var DefaultCopyNumbers = []string{"0720363215", "0768741104"}

type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	AI        AIConfig
	Database  DatabaseConfig
	Supabase  SupabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Queue     QueueConfig
	Dashboard DashboardConfig
}

type ServerConfig struct {
	Address         string `env:"SERVER_ADDRESS,default=:8080"`
	LogLevel        string `env:"LOG_LEVEL,default=info"`
	ShutdownSeconds int    `env:"SHUTDOWN_TIMEOUT_SECONDS,default=10"`
}

type AuthConfig struct {
	APIKey    string `env:"API_KEY"`
	JWTSecret string `env:"SUPABASE_JWT_SECRET"`
}

type AIConfig struct {
	OpenAIKey      string `env:"OPENAI_API_KEY"`
	OpenAIModel    string `env:"OPENAI_MODEL,default=gpt-3.5-turbo"`
	OpenAIBaseURL  string `env:"OPENAI_BASE_URL,default=https://api.openai.com/v1"`
	HFKey          string `env:"HF_API_KEY"`
	HFModel        string `env:"HF_MODEL,default=mistralai/Mistral-7B-Instruct-v0.2"`
	HFBaseURL      string `env:"HF_BASE_URL,default=https://api-inference.huggingface.co"`
	TimeoutSeconds int    `env:"AI_TIMEOUT_SECONDS,default=10"`
}

type DatabaseConfig struct {
	PostgresURL string `env:"POSTGRES_URL"`
}

type SupabaseConfig struct {
	URL            string `env:"SUPABASE_URL"`
	ServiceRoleKey string `env:"SUPABASE_SERVICE_ROLE_KEY"`
}

type RedisConfig struct {
	Address  string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,default=0"`
}

func (r RedisConfig) Enabled() bool { return r.Address != "" }

type RateLimitConfig struct {
	Window     time.Duration `env:"RATE_LIMIT_WINDOW,default=60s"`
	Webhook    int           `env:"RATE_LIMIT_WEBHOOK,default=30"`
	GetSMS     int           `env:"RATE_LIMIT_GET_SMS,default=120"`
	ConfirmSMS int           `env:"RATE_LIMIT_CONFIRM_SMS,default=120"`
	ResendSMS  int           `env:"RATE_LIMIT_RESEND_SMS,default=60"`
}

type QueueConfig struct {
	CopyNumbers []string `env:"COPY_NUMBERS"`
}

type DashboardConfig struct {
	PublicBaseURL string `env:"NEXT_PUBLIC_BASE_URL"`
}

// StoreKind names the backing store the configuration selects.
type StoreKind string

const (
	StorePostgres StoreKind = "postgres"
	StoreSupabase StoreKind = "supabase"
)

// Store picks Postgres when POSTGRES_URL is set, the Supabase REST API otherwise.
func (c *Config) Store() StoreKind {
	if c.Database.PostgresURL != "" {
		return StorePostgres
	}
	return StoreSupabase
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownSeconds) * time.Second
}

func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}

// LoadAll reads the configuration from the process environment.
func LoadAll(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.ProcessWith(ctx, cfg, l); err != nil {
		return nil, fmt.Errorf("parsing env vars: %w", err)
	}

	if len(cfg.Queue.CopyNumbers) == 0 {
		cfg.Queue.CopyNumbers = append([]string(nil), DefaultCopyNumbers...)
	}
	cfg.Supabase.URL = strings.TrimRight(cfg.Supabase.URL, "/")
	cfg.Dashboard.PublicBaseURL = strings.TrimRight(cfg.Dashboard.PublicBaseURL, "/")

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabase is the subset of LoadAll the migrate command needs.
func LoadDatabase(ctx context.Context, l envconfig.Lookuper) (DatabaseConfig, error) {
	var db DatabaseConfig
	if err := envconfig.ProcessWith(ctx, &db, l); err != nil {
		return DatabaseConfig{}, fmt.Errorf("parsing env vars: %w", err)
	}
	if db.PostgresURL == "" {
		return DatabaseConfig{}, errors.New("missing required env var: POSTGRES_URL")
	}
	return db, nil
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Database.PostgresURL == "" {
		if cfg.Supabase.URL == "" {
			errs = append(errs, errors.New("missing required env var: POSTGRES_URL or SUPABASE_URL"))
		} else if cfg.Supabase.ServiceRoleKey == "" {
			errs = append(errs, errors.New("missing required env var: SUPABASE_SERVICE_ROLE_KEY"))
		}
	}

	if cfg.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be > 0"))
	}
	limits := map[string]int{
		"RATE_LIMIT_WEBHOOK":     cfg.RateLimit.Webhook,
		"RATE_LIMIT_GET_SMS":     cfg.RateLimit.GetSMS,
		"RATE_LIMIT_CONFIRM_SMS": cfg.RateLimit.ConfirmSMS,
		"RATE_LIMIT_RESEND_SMS":  cfg.RateLimit.ResendSMS,
	}
	for key, v := range limits {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0", key))
		}
	}
	if cfg.AI.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("AI_TIMEOUT_SECONDS must be > 0"))
	}
	if cfg.Server.ShutdownSeconds <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT_SECONDS must be > 0"))
	}
	if _, err := ParseLevel(cfg.Server.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ParseLevel maps LOG_LEVEL onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid LOG_LEVEL: %q", s)
}
